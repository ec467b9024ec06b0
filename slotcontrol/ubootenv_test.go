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

package slotcontrol

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tegraota/otainstaller/manifest"
)

func TestUBootEnvCurrentSlotParsesEnvLine(t *testing.T) {
	fc := &fakeCommander{output: "boot_slot=B\n"}
	u := NewUBootEnv(fc, "boot_slot")
	slot, err := u.CurrentSlot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, manifest.SlotB, slot)
}

func TestUBootEnvCurrentSlotMissingVarIsUnknown(t *testing.T) {
	fc := &fakeCommander{output: "other_var=1\n"}
	u := NewUBootEnv(fc, "boot_slot")
	slot, err := u.CurrentSlot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, manifest.SlotUnknown, slot)
}

func TestUBootEnvDefaultsVarName(t *testing.T) {
	u := NewUBootEnv(&fakeCommander{}, "")
	assert.Equal(t, "boot_slot", u.VarName)
}

func TestUBootEnvMarkActiveWritesThroughStdin(t *testing.T) {
	fc := &fakeCommander{captureStdin: true}
	u := NewUBootEnv(fc, "boot_slot")
	require.NoError(t, u.MarkActive(context.Background(), manifest.SlotA))
	assert.Equal(t, "boot_slot A\n", fc.capture.String())
}

func TestUBootEnvMarkActiveRejectsUnknownSlot(t *testing.T) {
	u := NewUBootEnv(&fakeCommander{}, "boot_slot")
	err := u.MarkActive(context.Background(), manifest.SlotUnknown)
	assert.Error(t, err)
}
