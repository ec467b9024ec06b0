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
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDirBundle(t *testing.T) (*DirBundle, string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "manifest.json"), []byte("{}"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rootfs.img"), []byte("image bytes"), 0644))
	b, err := NewDirBundle(dir)
	require.NoError(t, err)
	return b, dir
}

func TestDirBundleOpenAndSize(t *testing.T) {
	b, _ := newDirBundle(t)
	r, err := b.Open("rootfs.img")
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "image bytes", string(data))

	size, ok := b.Size("rootfs.img")
	assert.True(t, ok)
	assert.EqualValues(t, len("image bytes"), size)
}

func TestDirBundleManifestPath(t *testing.T) {
	b, dir := newDirBundle(t)
	assert.Equal(t, filepath.Join(dir, "manifest.json"), b.ManifestPath())
}

func TestDirBundleRejectsPathEscape(t *testing.T) {
	b, _ := newDirBundle(t)
	_, err := b.Open("../../etc/passwd")
	assert.Error(t, err)

	_, err = b.Open("/etc/passwd")
	assert.Error(t, err)
}

func TestDirBundleOpenSameFileTwice(t *testing.T) {
	b, _ := newDirBundle(t)
	r1, err := b.Open("rootfs.img")
	require.NoError(t, err)
	defer r1.Close()
	r2, err := b.Open("rootfs.img")
	require.NoError(t, err)
	defer r2.Close()

	d1, _ := io.ReadAll(r1)
	d2, _ := io.ReadAll(r2)
	assert.Equal(t, d1, d2)
}
