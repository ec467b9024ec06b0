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

package bundle

import (
	"archive/tar"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// StdinBundle drains a tar stream from r into a private staging
// directory, then behaves exactly like a DirBundle. Staging is
// required because component writers need random access (Size) that a
// single-pass stdin stream cannot provide.
type StdinBundle struct {
	*DirBundle
	stageDir string
}

// NewStdinBundle reads a tar stream (as produced by `tar -c bundle/`)
// from r, unpacks it under a fresh temp directory, and returns a
// bundle over that directory.
func NewStdinBundle(r io.Reader) (*StdinBundle, error) {
	dir, err := os.MkdirTemp("", "ota-bundle-")
	if err != nil {
		return nil, errors.Wrap(err, "bundle: create staging dir")
	}

	if err := stageTar(r, dir); err != nil {
		os.RemoveAll(dir)
		return nil, err
	}

	db, err := NewDirBundle(dir)
	if err != nil {
		os.RemoveAll(dir)
		return nil, err
	}
	return &StdinBundle{DirBundle: db, stageDir: dir}, nil
}

func stageTar(r io.Reader, dir string) error {
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "bundle: read staged tar")
		}
		dest := filepath.Join(dir, filepath.Clean(hdr.Name))
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(dest, 0755); err != nil {
				return errors.Wrap(err, "bundle: stage directory")
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
				return errors.Wrap(err, "bundle: stage directory")
			}
			f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(hdr.Mode))
			if err != nil {
				return errors.Wrap(err, "bundle: stage file")
			}
			_, err = io.Copy(f, tr)
			closeErr := f.Close()
			if err != nil {
				return errors.Wrap(err, "bundle: stage file contents")
			}
			if closeErr != nil {
				return errors.Wrap(closeErr, "bundle: close staged file")
			}
		}
	}
}

func (b *StdinBundle) Close() error {
	return os.RemoveAll(b.stageDir)
}
