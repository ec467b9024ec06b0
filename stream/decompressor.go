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

package stream

import (
	"compress/gzip"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

// NewDecompressor selects a decompression wrapper for r based on the
// suffix of filename: ".gz" activates gzip, ".zst"/".zstd" activates
// zstd, anything else is passed through unchanged (identity).
// A malformed gzip header is reported by NewDecompressor itself; errors
// further into a compressed stream surface through Read exactly like any
// other source I/O error. The caller aborts the component on either.
func NewDecompressor(filename string, r Reader) (Reader, error) {
	switch {
	case strings.HasSuffix(filename, ".gz"):
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, errors.Wrap(err, "stream: open gzip stream")
		}
		return &closingReader{Reader: gz, closer: gz}, nil
	case strings.HasSuffix(filename, ".zst"), strings.HasSuffix(filename, ".zstd"):
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, errors.Wrap(err, "stream: open zstd stream")
		}
		return &closingReader{Reader: zr, closer: zstdCloser{zr}}, nil
	default:
		return r, nil
	}
}

type closer interface {
	Close() error
}

type zstdCloser struct {
	d *zstd.Decoder
}

func (z zstdCloser) Close() error {
	z.d.Close()
	return nil
}

// closingReader lets the pipeline release the decompressor's
// resources once the component finishes, without requiring every
// caller to type-switch on the concrete decompressor.
type closingReader struct {
	Reader
	closer closer
}

func (c *closingReader) Close() error {
	return c.closer.Close()
}
