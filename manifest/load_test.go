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

package manifest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeModernLayout(t *testing.T) {
	raw := `{
		"version": "1.2.3",
		"slots": {"A": {"rootfs": "/dev/mmcblk0p2"}, "B": {"rootfs": "/dev/mmcblk0p4"}},
		"components": [
			{"name": "rootfs", "type": "raw", "filename": "rootfs.img", "target": "rootfs"}
		]
	}`
	m, err := decode(strings.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "1.2.3", m.Version)
	require.Len(t, m.Components, 1)
	assert.Equal(t, ComponentRaw, m.Components[0].Type)
	assert.Equal(t, "/dev/mmcblk0p4", m.Slots[SlotB]["rootfs"])
}

func TestDecodeLegacyArtifactsLayout(t *testing.T) {
	raw := `{
		"version": "1.0",
		"slots": {"A": {"rootfs": "/dev/mmcblk0p2"}, "B": {"rootfs": "/dev/mmcblk0p4"}},
		"artifacts": [
			{"items": [{"name": "rootfs", "type": "raw", "filename": "rootfs.img", "target": "rootfs"}]}
		]
	}`
	m, err := decode(strings.NewReader(raw))
	require.NoError(t, err)
	require.Len(t, m.Components, 1)
	assert.Equal(t, "rootfs", m.Components[0].Name)
}

func TestDecodeMissingSlots(t *testing.T) {
	raw := `{"version": "1.0", "components": [{"name":"a","type":"raw","filename":"a.img","target":"rootfs"}]}`
	_, err := decode(strings.NewReader(raw))
	assert.ErrorIs(t, err, ErrManifestInvalid)
}

func TestValidateRejectsUnknownType(t *testing.T) {
	m := Manifest{
		Slots: map[Slot]map[string]string{SlotA: {"rootfs": "/dev/x"}},
		Components: []Component{
			{Name: "a", Type: "weird", Filename: "a.img", Target: "rootfs"},
		},
	}
	assert.ErrorIs(t, m.Validate(), ErrManifestInvalid)
}

func TestValidateRejectsDuplicateNames(t *testing.T) {
	m := Manifest{
		Slots: map[Slot]map[string]string{SlotA: {"rootfs": "/dev/x"}},
		Components: []Component{
			{Name: "a", Type: ComponentRaw, Filename: "a.img", Target: "rootfs"},
			{Name: "a", Type: ComponentRaw, Filename: "b.img", Target: "rootfs"},
		},
	}
	assert.ErrorIs(t, m.Validate(), ErrManifestInvalid)
}

func TestSlotOther(t *testing.T) {
	assert.Equal(t, SlotB, SlotA.Other())
	assert.Equal(t, SlotA, SlotB.Other())
	assert.Panics(t, func() { SlotUnknown.Other() })
}
