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
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"

	"github.com/tegraota/otainstaller/manifest"
	"github.com/tegraota/otainstaller/stream"
)

// PipeOptions configures the byte-interval cadence for progress and
// fsync inside InternalPipe, and the overall progress band a
// component's work is reported within.
type PipeOptions struct {
	ProgressIntervalBytes uint64
	FsyncIntervalBytes    uint64
	BandBase              float64
	BandSpan              float64
	// ExpectedSize is the known post-decompression byte length used as
	// the progress denominator; 0 means unknown, progress falls back
	// to raw byte counts.
	ExpectedSize int64
}

// UpdateModule installs a single Component: it builds the
// reader chain (counting wrapper, optional decompressor) and
// dispatches to the raw, archive, or atomic-file writer.
type UpdateModule struct {
	archiver *ArchiveInstaller
}

func NewUpdateModule(archiver *ArchiveInstaller) *UpdateModule {
	return &UpdateModule{archiver: archiver}
}

// ExecuteComponent installs comp, reading its payload from src.
func (u *UpdateModule) ExecuteComponent(
	ctx context.Context, comp manifest.Component, src stream.Reader, opt PipeOptions, progress ProgressFunc,
) error {
	if progress == nil {
		progress = noopProgress
	}
	if opt.ExpectedSize == 0 {
		opt.ExpectedSize = comp.ExpectedSize
	}

	counted := stream.NewCountingReader(src)
	decompressed, err := stream.NewDecompressor(comp.Filename, counted)
	if err != nil {
		return errors.Wrap(ErrSourceIO, err.Error())
	}
	if closer, ok := decompressed.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	switch comp.Type {
	case manifest.ComponentRaw:
		return u.installRaw(ctx, comp, decompressed, counted, opt, progress)
	case manifest.ComponentArchive:
		return u.installArchive(ctx, comp, decompressed, progress)
	case manifest.ComponentFile:
		return u.installAtomicFile(ctx, comp, decompressed, counted, opt, progress)
	default:
		return errors.Wrapf(ErrUnsupportedComponentType, "%q", comp.Type)
	}
}

func (u *UpdateModule) installRaw(
	ctx context.Context, comp manifest.Component, src stream.Reader, counted *stream.CountingReader,
	opt PipeOptions, progress ProgressFunc,
) error {
	w, err := OpenPartitionWriter(comp.InstallTo, PartitionWriterOptions{
		FsyncIntervalBytes: opt.FsyncIntervalBytes,
		ExpectedSize:       comp.ExpectedSize,
	})
	if err != nil {
		return err
	}
	defer w.Close()
	return internalPipe(ctx, src, w, counted, opt, progress)
}

func (u *UpdateModule) installArchive(
	ctx context.Context, comp manifest.Component, src stream.Reader, progress ProgressFunc,
) error {
	if u.archiver == nil {
		u.archiver = NewArchiveInstaller(DefaultArchiveInstallerOptions())
	}
	return u.archiver.InstallTarStreamToTarget(ctx, src, comp.InstallTo, progress)
}

func (u *UpdateModule) installAtomicFile(
	ctx context.Context, comp manifest.Component, src stream.Reader, counted *stream.CountingReader,
	opt PipeOptions, progress ProgressFunc,
) error {
	if comp.Path == "" {
		return errors.Wrap(ErrDestinationIO, "file component missing path")
	}
	dir := parentDir(comp.Path)
	if _, err := os.Stat(dir); err != nil {
		if !comp.CreateDestination {
			return errors.Wrapf(ErrDestinationIO, "parent dir %s does not exist", dir)
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrap(ErrDestinationIO, err.Error())
		}
	}

	tmpPath := comp.Path + ".tmp"
	w, err := OpenPartitionWriter(tmpPath, PartitionWriterOptions{
		FsyncIntervalBytes: opt.FsyncIntervalBytes,
		ExpectedSize:       comp.ExpectedSize,
		Truncate:           true,
	})
	if err != nil {
		return err
	}

	if err := internalPipe(ctx, src, w, counted, opt, progress); err != nil {
		w.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := w.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}

	if err := os.Rename(tmpPath, comp.Path); err != nil {
		os.Remove(tmpPath)
		return errors.Wrap(ErrDestinationIO, err.Error())
	}

	if comp.Permissions != "" {
		mode, perr := strconv.ParseUint(comp.Permissions, 8, 32)
		if perr != nil {
			return errors.Wrapf(ErrDestinationIO, "bad permissions %q: %v", comp.Permissions, perr)
		}
		if err := os.Chmod(comp.Path, os.FileMode(mode)); err != nil {
			return errors.Wrap(ErrDestinationIO, err.Error())
		}
	}
	return nil
}

// internalPipe moves bytes from src to w a 1 MiB buffer at a time,
// emitting progress at ProgressIntervalBytes crossings of input
// bytes-read (each record's percentage is bytes written against
// ExpectedSize), finishing with one final FsyncNow and terminal
// record. Interval fsyncs are not issued here: PartitionWriter
// performs them itself at its own FsyncIntervalBytes.
func internalPipe(
	ctx context.Context, src stream.Reader, w stream.Writer, counted *stream.CountingReader,
	opt PipeOptions, progress ProgressFunc,
) error {
	buf := make([]byte, 1<<20)
	var written uint64
	var sinceProgress int64
	var lastCount int64

	for {
		select {
		case <-ctx.Done():
			return errors.Wrap(ErrCancelled, "pipe cancelled")
		default:
		}

		n, rerr := src.Read(buf)
		if n > 0 {
			if werr := w.WriteAll(buf[:n]); werr != nil {
				return werr
			}
			written += uint64(n)

			now := counted.BytesRead()
			sinceProgress += now - lastCount
			lastCount = now
			if uint64(sinceProgress) >= opt.ProgressIntervalBytes && opt.ProgressIntervalBytes > 0 {
				emitProgress(opt, int64(written), progress, false)
				sinceProgress = 0
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return errors.Wrap(ErrSourceIO, rerr.Error())
		}
	}

	if err := w.FsyncNow(); err != nil {
		return err
	}
	emitProgress(opt, int64(written), progress, true)
	return nil
}

func emitProgress(opt PipeOptions, bytesOut int64, progress ProgressFunc, final bool) {
	var frac float64
	if total, ok := totalSize(opt); ok && total > 0 {
		frac = float64(bytesOut) / float64(total)
	}
	progress(ProgressRecord{
		Percent: band(opt.BandBase, opt.BandSpan, frac),
		Message: fmt.Sprintf("%d bytes processed", bytesOut),
		Final:   final,
	})
}

func totalSize(opt PipeOptions) (int64, bool) {
	if opt.ExpectedSize > 0 {
		return opt.ExpectedSize, true
	}
	return 0, false
}

func parentDir(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			if i == 0 {
				return "/"
			}
			return path[:i]
		}
	}
	return "."
}
