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

package installer

import (
	"archive/tar"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/tegraota/otainstaller/stream"
	"github.com/tegraota/otainstaller/utils"
)

// ArchiveInstallerOptions configures mount behavior and extraction
// safety. Mount flags are option-driven rather than hard-coded.
type ArchiveInstallerOptions struct {
	MountBaseDir          string
	FSType                string
	MountFlags            uintptr
	SafePathsOnly         bool
	ProgressIntervalBytes uint64
}

// DefaultArchiveInstallerOptions matches the teacher's historical
// defaults: relatime mounts, ext4 filesystem, path safety enforced.
func DefaultArchiveInstallerOptions() ArchiveInstallerOptions {
	return ArchiveInstallerOptions{
		MountBaseDir:          "/mnt",
		FSType:                "ext4",
		MountFlags:            unix.MS_RELATIME,
		SafePathsOnly:         true,
		ProgressIntervalBytes: 1 << 20,
	}
}

// ArchiveInstaller streams a tar archive into a target directory,
// mounting a block device first when the destination is one.
type ArchiveInstaller struct {
	opt ArchiveInstallerOptions
}

func NewArchiveInstaller(opt ArchiveInstallerOptions) *ArchiveInstaller {
	return &ArchiveInstaller{opt: opt}
}

// InstallTarStreamToTarget extracts r into installTo. When installTo
// begins with "/dev/" it is mounted into a scratch directory first
// (Mode A); otherwise it is treated as a plain directory, created if
// missing (Mode B).
func (a *ArchiveInstaller) InstallTarStreamToTarget(
	ctx context.Context, r stream.Reader, installTo string, progress ProgressFunc,
) error {
	if progress == nil {
		progress = noopProgress
	}

	if strings.HasPrefix(installTo, "/dev/") {
		return a.installToDevice(ctx, r, installTo, progress)
	}
	if err := os.MkdirAll(installTo, 0755); err != nil {
		return errors.Wrapf(ErrExtraction, "create target directory %s: %v", installTo, err)
	}
	return a.extractTarStreamToDir(ctx, r, installTo, progress)
}

func (a *ArchiveInstaller) installToDevice(
	ctx context.Context, r stream.Reader, device string, progress ProgressFunc,
) error {
	mountDir, err := os.MkdirTemp(a.opt.MountBaseDir, "ota-")
	if err != nil {
		return errors.Wrapf(ErrExtraction, "create mount dir: %v", err)
	}
	defer os.Remove(mountDir)

	if err := unix.Mount(device, mountDir, a.opt.FSType, a.opt.MountFlags, ""); err != nil {
		return errors.Wrapf(ErrExtraction, "mount %s on %s: %v", device, mountDir, err)
	}
	guard := &mountGuard{path: mountDir, mounted: true}
	defer guard.release()

	if err := a.extractTarStreamToDir(ctx, r, mountDir, progress); err != nil {
		return err
	}

	if err := unix.Unmount(mountDir, 0); err != nil {
		return errors.Wrapf(ErrExtraction, "unmount %s: %v", mountDir, err)
	}
	guard.mounted = false
	return nil
}

// mountGuard unmounts its target on teardown unless the mount was
// already explicitly released. Grounded on the reference
// implementation's scoped MountGuard: every error path unwinds
// through the same deferred release.
type mountGuard struct {
	path    string
	mounted bool
}

func (g *mountGuard) release() {
	if g.mounted {
		unix.Unmount(g.path, unix.MNT_DETACH)
		g.mounted = false
	}
}

// chdirGuard restores the process working directory on release,
// mirroring the reference implementation's ChdirGuard. Extraction
// rewrites every tar entry to a relative path and relies on the CWD
// being scoped to the destination for the duration of the extract.
type chdirGuard struct {
	orig string
}

func newChdirGuard(dir string) (*chdirGuard, error) {
	orig, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrap(err, "installer: getwd")
	}
	if err := os.Chdir(dir); err != nil {
		return nil, errors.Wrapf(err, "installer: chdir %s", dir)
	}
	return &chdirGuard{orig: orig}, nil
}

func (g *chdirGuard) release() {
	os.Chdir(g.orig)
}

// normalizeTarPath strips a leading "./" run, a leading "/", and
// collapses duplicate slashes, matching the path rules a hardened tar
// extractor must apply before trusting an entry name.
func normalizeTarPath(p string) string {
	for strings.HasPrefix(p, "./") {
		p = p[2:]
	}
	p = strings.TrimPrefix(p, "/")
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}
	return p
}

// isSafeRelativePath rejects empty paths, leading slashes, backslashes
// and any ".." path segment.
func isSafeRelativePath(p string) bool {
	if p == "" || p == "." {
		return false
	}
	if strings.HasPrefix(p, "/") || strings.Contains(p, "\\") {
		return false
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return false
		}
	}
	return true
}

func (a *ArchiveInstaller) extractTarStreamToDir(
	ctx context.Context, r stream.Reader, dstDir string, progress ProgressFunc,
) error {
	guard, err := newChdirGuard(dstDir)
	if err != nil {
		return errors.Wrap(ErrExtraction, err.Error())
	}
	defer guard.release()

	tr := tar.NewReader(&cancelableReader{ctx: ctx, r: r})
	var extracted uint64
	var sinceProgress uint64

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err == context.Canceled {
			return errors.Wrap(ErrCancelled, "extraction cancelled")
		}
		if err != nil {
			return errors.Wrap(ErrExtraction, err.Error())
		}

		name := normalizeTarPath(hdr.Name)
		if name == "" || name == "." {
			continue
		}
		if a.opt.SafePathsOnly && !isSafeRelativePath(name) {
			return errors.Wrapf(ErrUnsafePath, "entry %q", hdr.Name)
		}

		if hdr.Typeflag == tar.TypeLink {
			linkName := normalizeTarPath(hdr.Linkname)
			if a.opt.SafePathsOnly && !isSafeRelativePath(linkName) {
				return errors.Wrapf(ErrUnsafePath, "hardlink target %q", hdr.Linkname)
			}
			hdr.Linkname = linkName
		}

		if err := extractEntry(tr, hdr, name, a.opt.ProgressIntervalBytes, &extracted, &sinceProgress, progress); err != nil {
			return err
		}
	}

	progress(ProgressRecord{Percent: -1, Message: "extraction complete", Final: true})
	return nil
}

func extractEntry(
	tr *tar.Reader, hdr *tar.Header, name string,
	progressInterval uint64, extracted, sinceProgress *uint64, progress ProgressFunc,
) error {
	switch hdr.Typeflag {
	case tar.TypeDir:
		if err := os.MkdirAll(name, os.FileMode(hdr.Mode)); err != nil {
			return errors.Wrap(ErrExtraction, err.Error())
		}
		return nil
	case tar.TypeSymlink:
		os.Remove(name)
		if err := os.MkdirAll(filepath.Dir(name), 0755); err != nil {
			return errors.Wrap(ErrExtraction, err.Error())
		}
		if err := os.Symlink(hdr.Linkname, name); err != nil {
			return errors.Wrap(ErrExtraction, err.Error())
		}
		return nil
	case tar.TypeLink:
		os.Remove(name)
		if err := os.MkdirAll(filepath.Dir(name), 0755); err != nil {
			return errors.Wrap(ErrExtraction, err.Error())
		}
		if err := os.Link(hdr.Linkname, name); err != nil {
			return errors.Wrap(ErrExtraction, err.Error())
		}
		return nil
	case tar.TypeReg:
		if err := os.MkdirAll(filepath.Dir(name), 0755); err != nil {
			return errors.Wrap(ErrExtraction, err.Error())
		}
		os.Remove(name)
		f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(hdr.Mode))
		if err != nil {
			return errors.Wrap(ErrExtraction, err.Error())
		}
		// Bound writes to the size the header declared: a tar stream
		// whose entry body runs longer than its header is either
		// corrupt or hostile.
		dst := &utils.LimitedWriter{W: f, N: uint64(hdr.Size)}
		buf := make([]byte, 1<<20)
		for {
			n, rerr := tr.Read(buf)
			if n > 0 {
				if _, werr := dst.Write(buf[:n]); werr != nil {
					f.Close()
					return errors.Wrap(ErrExtraction, werr.Error())
				}
				*extracted += uint64(n)
				*sinceProgress += uint64(n)
				if progressInterval > 0 && *sinceProgress >= progressInterval {
					progress(ProgressRecord{Percent: -1, Message: "extracting archive"})
					*sinceProgress = 0
				}
			}
			if rerr == io.EOF {
				break
			}
			if rerr != nil {
				f.Close()
				if rerr == context.Canceled {
					return errors.Wrap(ErrCancelled, "extraction cancelled")
				}
				return errors.Wrap(ErrExtraction, rerr.Error())
			}
		}
		if err := f.Close(); err != nil {
			return errors.Wrap(ErrExtraction, err.Error())
		}
		os.Chtimes(name, hdr.ModTime, hdr.ModTime)
		return nil
	default:
		// Unrecognized entry types (device nodes, fifos) are skipped;
		// this installer only handles regular files, dirs and links.
		return nil
	}
}

// cancelableReader checks ctx before every Read so a long archive
// extraction can be unwound promptly by the engine's cancellation
// path.
type cancelableReader struct {
	ctx context.Context
	r   stream.Reader
}

func (c *cancelableReader) Read(p []byte) (int, error) {
	select {
	case <-c.ctx.Done():
		return 0, context.Canceled
	default:
	}
	return c.r.Read(p)
}
