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

func TestNvBootCtlCurrentSlotParsesA(t *testing.T) {
	fc := &fakeCommander{output: "CURRENT_SLOT: 0"}
	n := NewNvBootCtl(fc)
	slot, err := n.CurrentSlot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, manifest.SlotA, slot)
}

func TestNvBootCtlCurrentSlotParsesB(t *testing.T) {
	fc := &fakeCommander{output: "CURRENT_SLOT: 1"}
	n := NewNvBootCtl(fc)
	slot, err := n.CurrentSlot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, manifest.SlotB, slot)
}

func TestNvBootCtlCurrentSlotUnrecognizedIsUnknown(t *testing.T) {
	fc := &fakeCommander{output: "garbage"}
	n := NewNvBootCtl(fc)
	slot, err := n.CurrentSlot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, manifest.SlotUnknown, slot)
}

func TestNvBootCtlMarkActivePassesCorrectIndex(t *testing.T) {
	fc := &fakeCommander{}
	n := NewNvBootCtl(fc)
	require.NoError(t, n.MarkActive(context.Background(), manifest.SlotB))
	require.Len(t, fc.calls, 1)
	assert.Equal(t, []string{"nvbootctrl", "set-active-boot-slot", "1"}, fc.calls[0])
}

func TestNvBootCtlMarkActiveRejectsUnknownSlot(t *testing.T) {
	fc := &fakeCommander{}
	n := NewNvBootCtl(fc)
	err := n.MarkActive(context.Background(), manifest.SlotUnknown)
	assert.Error(t, err)
}
