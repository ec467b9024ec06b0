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
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/tegraota/otainstaller/system"
)

// PartitionWriterOptions configures durability and size-check
// behavior. FsyncIntervalBytes == 0 disables interval fsyncs (tests,
// tmpfs); ExpectedSize == 0 skips the destination capacity check.
type PartitionWriterOptions struct {
	FsyncIntervalBytes uint64
	ExpectedSize       int64
	// Truncate selects create+truncate semantics, used for regular
	// files staged under a ".tmp" path. Block devices are always
	// opened without truncation.
	Truncate bool
}

// PartitionWriter implements stream.Writer over a block device or a
// regular file, with a periodic fsync cadence bounding how much data
// is exposed to a power loss. Grounded on the teacher's
// FlushingWriter/BlockDevice pair: sequential, append-only writes with
// no seeking. WriteAll hands each slice straight to the file; there is
// no intermediate write buffer.
type PartitionWriter struct {
	f    *os.File
	opt  PartitionWriterOptions
	n    uint64 // bytes written
	sync uint64 // bytes written since last fsync
	errd bool   // a write already failed; further writes are refused
}

// OpenPartitionWriter opens path for writing. Block devices are opened
// O_RDWR without truncation; regular files are created/truncated when
// opt.Truncate is set.
func OpenPartitionWriter(path string, opt PartitionWriterOptions) (*PartitionWriter, error) {
	info, statErr := os.Stat(path)
	isDevice := statErr == nil && info.Mode()&os.ModeDevice != 0

	var flags int
	switch {
	case isDevice:
		flags = os.O_RDWR
	case opt.Truncate:
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	default:
		flags = os.O_WRONLY | os.O_CREATE
	}

	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return nil, errors.Wrapf(ErrDestinationIO, "open %s: %v", path, err)
	}

	if isDevice && opt.ExpectedSize > 0 {
		if size, err := system.GetBlockDeviceSize(f); err == nil {
			if uint64(opt.ExpectedSize) > size {
				logrus.Warnf(
					"partition writer: %s is %d bytes but image is %d bytes",
					path, size, opt.ExpectedSize)
			}
		}
	}

	return &PartitionWriter{f: f, opt: opt}, nil
}

// WriteAll writes every byte of p, fsyncing whenever the cumulative
// write count crosses an FsyncIntervalBytes boundary. On error, no
// further writes are attempted by this writer.
func (w *PartitionWriter) WriteAll(p []byte) error {
	if w.errd {
		return errors.Wrap(ErrDestinationIO, "write after previous failure")
	}
	if _, err := w.f.Write(p); err != nil {
		w.errd = true
		return errors.Wrap(ErrDestinationIO, err.Error())
	}
	w.n += uint64(len(p))
	w.sync += uint64(len(p))

	if w.opt.FsyncIntervalBytes > 0 {
		for w.sync >= w.opt.FsyncIntervalBytes {
			w.sync -= w.opt.FsyncIntervalBytes
			if err := w.syncFile(); err != nil {
				return err
			}
		}
	}
	return nil
}

// FsyncNow forces durability of everything written so far.
func (w *PartitionWriter) FsyncNow() error {
	if err := w.syncFile(); err != nil {
		return err
	}
	w.sync = 0
	return nil
}

func (w *PartitionWriter) syncFile() error {
	if err := w.f.Sync(); err != nil {
		w.errd = true
		return errors.Wrap(ErrDestinationIO, err.Error())
	}
	return nil
}

// BytesWritten reports the cumulative count of bytes accepted by
// WriteAll.
func (w *PartitionWriter) BytesWritten() uint64 {
	return w.n
}

// Close performs a best-effort close. It does not swallow a
// previously reported write/sync error.
func (w *PartitionWriter) Close() error {
	err := w.f.Close()
	if err != nil && !w.errd {
		return errors.Wrap(ErrDestinationIO, err.Error())
	}
	return nil
}
