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

// Package stream holds the pipeline primitives shared by every
// component installer: a counting Reader wrapper, the Writer
// contract, and the decompressor chain.
package stream

import "io"

// Reader is the pull side of the install pipeline. It is a plain
// io.Reader; the optional Sizer interface lets a source expose its
// total size up front for progress denominators.
type Reader interface {
	io.Reader
}

// Sizer is implemented by readers that know their total byte length
// ahead of time (e.g. a bundle entry backed by a regular file).
type Sizer interface {
	TotalSize() (int64, bool)
}

// CountingReader wraps a Reader and tracks how many bytes have been
// pulled through it. It is transparent to TotalSize when the wrapped
// reader implements Sizer.
type CountingReader struct {
	r     Reader
	count int64
}

// NewCountingReader wraps r.
func NewCountingReader(r Reader) *CountingReader {
	return &CountingReader{r: r}
}

func (c *CountingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.count += int64(n)
	return n, err
}

// BytesRead returns the cumulative count of bytes returned by Read so
// far.
func (c *CountingReader) BytesRead() int64 {
	return c.count
}

func (c *CountingReader) TotalSize() (int64, bool) {
	if s, ok := c.r.(Sizer); ok {
		return s.TotalSize()
	}
	return 0, false
}

// sizedReader adapts a plain io.Reader plus a known size into a Reader
// that also implements Sizer.
type sizedReader struct {
	io.Reader
	size int64
}

// NewSizedReader wraps r and reports size via TotalSize.
func NewSizedReader(r io.Reader, size int64) Reader {
	return &sizedReader{Reader: r, size: size}
}

func (s *sizedReader) TotalSize() (int64, bool) {
	return s.size, true
}
