// Copyright 2019 Northern.tech AS
//
//    Licensed under the Apache License, Version 2.0 (the "License");
//    you may not use this file except in compliance with the License.
//    You may obtain a copy of the License at
//
//        http://www.apache.org/licenses/LICENSE-2.0
//
//    Unless required by applicable law or agreed to in writing, software
//    distributed under the License is distributed on an "AS IS" BASIS,
//    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//    See the License for the specific language governing permissions and
//    limitations under the License.

// Package bundle implements the InstallBundle boundary: a staged
// directory holding manifest.json plus the component payloads it
// references by relative filename.
package bundle

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Bundle exposes the bytes of a named entry and, when known, its size.
// Lifetime of a Bundle must strictly enclose the install run using it.
type Bundle interface {
	// Open returns a fresh reader positioned at the start of filename.
	// Callers may open the same filename more than once (the verifier's
	// hash pre-pass relies on this).
	Open(filename string) (io.ReadCloser, error)
	// Size reports the byte length of filename, when known up front.
	Size(filename string) (int64, bool)
	// ManifestPath returns the path to the bundle's manifest.json.
	ManifestPath() string
	// Close releases any resources (e.g. the staging directory for a
	// StdinBundle). Idempotent.
	Close() error
}

// DirBundle is a bundle backed by an already-staged directory tree.
type DirBundle struct {
	root string
}

// NewDirBundle opens a directory-backed bundle rooted at root. root
// must contain a manifest.json.
func NewDirBundle(root string) (*DirBundle, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, errors.Wrap(err, "bundle: stat root")
	}
	if !info.IsDir() {
		return nil, errors.Errorf("bundle: %s is not a directory", root)
	}
	return &DirBundle{root: root}, nil
}

func (b *DirBundle) Open(filename string) (io.ReadCloser, error) {
	p, err := b.resolve(filename)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, errors.Wrapf(err, "bundle: open %s", filename)
	}
	return f, nil
}

func (b *DirBundle) Size(filename string) (int64, bool) {
	p, err := b.resolve(filename)
	if err != nil {
		return 0, false
	}
	info, err := os.Stat(p)
	if err != nil {
		return 0, false
	}
	return info.Size(), true
}

func (b *DirBundle) ManifestPath() string {
	return filepath.Join(b.root, "manifest.json")
}

func (b *DirBundle) Close() error { return nil }

// resolve rejects any filename that would escape the bundle root,
// mirroring the path-safety discipline the archive installer applies
// to tar entries.
func (b *DirBundle) resolve(filename string) (string, error) {
	clean := filepath.Clean(filename)
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", errors.Errorf("bundle: unsafe entry path %q", filename)
	}
	joined := filepath.Join(b.root, clean)
	rel, err := filepath.Rel(b.root, joined)
	if err != nil || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", errors.Errorf("bundle: entry %q escapes bundle root", filename)
	}
	return joined, nil
}
