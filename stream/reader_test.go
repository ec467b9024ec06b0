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
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountingReaderTracksBytesRead(t *testing.T) {
	c := NewCountingReader(strings.NewReader("hello world"))
	buf := make([]byte, 5)
	n, err := c.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.EqualValues(t, 5, c.BytesRead())

	rest, err := io.ReadAll(c)
	require.NoError(t, err)
	assert.Len(t, rest, 6)
	assert.EqualValues(t, 11, c.BytesRead())
}

func TestCountingReaderPropagatesSizer(t *testing.T) {
	sized := NewSizedReader(strings.NewReader("abc"), 3)
	c := NewCountingReader(sized)
	size, ok := c.TotalSize()
	assert.True(t, ok)
	assert.EqualValues(t, 3, size)
}

func TestCountingReaderSizerFalseWhenUnsized(t *testing.T) {
	c := NewCountingReader(strings.NewReader("abc"))
	_, ok := c.TotalSize()
	assert.False(t, ok)
}
