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
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tegraota/otainstaller/manifest"
)

// S6: a file-type component is replaced atomically: no .tmp file
// survives a success, and the destination content is the new payload.
func TestExecuteComponentAtomicFileReplace(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "foo.conf")
	require.NoError(t, os.WriteFile(dst, []byte("old"), 0644))

	comp := manifest.Component{
		Name: "conf", Type: manifest.ComponentFile,
		Filename: "foo.conf", Path: dst, Permissions: "0600",
	}

	u := NewUpdateModule(nil)
	err := u.ExecuteComponent(context.Background(), comp, strings.NewReader("new content"), PipeOptions{}, nil)
	require.NoError(t, err)

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "new content", string(got))

	_, err = os.Stat(dst + ".tmp")
	assert.True(t, os.IsNotExist(err))

	info, err := os.Stat(dst)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestExecuteComponentAtomicFileCleansUpOnFailure(t *testing.T) {
	dir := t.TempDir()
	comp := manifest.Component{
		Name: "conf", Type: manifest.ComponentFile,
		Filename: "foo.conf", Path: filepath.Join(dir, "missing-parent", "foo.conf"),
	}

	u := NewUpdateModule(nil)
	err := u.ExecuteComponent(context.Background(), comp, strings.NewReader("x"), PipeOptions{}, nil)
	assert.ErrorIs(t, err, ErrDestinationIO)

	_, statErr := os.Stat(comp.Path + ".tmp")
	assert.True(t, os.IsNotExist(statErr))
}

func TestExecuteComponentRawWritesDestination(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "rootfs.img")
	comp := manifest.Component{
		Name: "rootfs", Type: manifest.ComponentRaw, Filename: "rootfs.img", InstallTo: dst,
	}
	u := NewUpdateModule(nil)
	var last ProgressRecord
	err := u.ExecuteComponent(context.Background(), comp, strings.NewReader("image-bytes"), PipeOptions{}, func(r ProgressRecord) {
		last = r
	})
	require.NoError(t, err)
	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "image-bytes", string(got))
	assert.True(t, last.Final)
}

func TestExecuteComponentUsesExpectedSizeForProgress(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "rootfs.img")
	comp := manifest.Component{
		Name: "rootfs", Type: manifest.ComponentRaw, Filename: "rootfs.img",
		InstallTo: dst, ExpectedSize: 10,
	}
	u := NewUpdateModule(nil)
	var pcts []float64
	err := u.ExecuteComponent(context.Background(), comp, strings.NewReader("0123456789"), PipeOptions{
		ProgressIntervalBytes: 1, BandSpan: 100,
	}, func(r ProgressRecord) {
		pcts = append(pcts, r.Percent)
	})
	require.NoError(t, err)
	require.NotEmpty(t, pcts)
	assert.Equal(t, float64(100), pcts[len(pcts)-1])
}

func TestExecuteComponentRejectsUnsupportedType(t *testing.T) {
	comp := manifest.Component{Name: "x", Type: "weird", Filename: "x.img", InstallTo: "/dev/null"}
	u := NewUpdateModule(nil)
	err := u.ExecuteComponent(context.Background(), comp, strings.NewReader(""), PipeOptions{}, nil)
	assert.ErrorIs(t, err, ErrUnsupportedComponentType)
}
