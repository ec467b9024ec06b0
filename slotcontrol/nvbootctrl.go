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
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/tegraota/otainstaller/manifest"
	"github.com/tegraota/otainstaller/system"
)

// NvBootCtl implements SlotControl for Tegra boards via the
// nvbootctrl tool. Tegra reports slots as the integers "0"/"1"; these
// map to manifest.SlotA/manifest.SlotB.
type NvBootCtl struct {
	cmd system.Commander
}

func NewNvBootCtl(cmd system.Commander) *NvBootCtl {
	return &NvBootCtl{cmd: cmd}
}

// CurrentSlot runs `nvbootctrl get-current-slot` and maps its output
// to a Slot. An unparseable result reports SlotUnknown rather than
// erroring, matching the reference backend's defensive logging
// behavior.
func (n *NvBootCtl) CurrentSlot(ctx context.Context) (manifest.Slot, error) {
	out, err := n.cmd.Command("nvbootctrl", "get-current-slot").Output()
	if err != nil {
		return manifest.SlotUnknown, errors.Wrap(err, "nvbootctrl: get-current-slot")
	}
	s := strings.TrimSpace(string(out))
	switch {
	case strings.Contains(s, "0"):
		return manifest.SlotA, nil
	case strings.Contains(s, "1"):
		return manifest.SlotB, nil
	default:
		logrus.Errorf("nvbootctrl: unrecognized current-slot output %q", s)
		return manifest.SlotUnknown, nil
	}
}

// MarkActive runs `nvbootctrl set-active-boot-slot <idx>`.
func (n *NvBootCtl) MarkActive(ctx context.Context, slot manifest.Slot) error {
	var idx string
	switch slot {
	case manifest.SlotA:
		idx = "0"
	case manifest.SlotB:
		idx = "1"
	default:
		return errors.Errorf("nvbootctrl: cannot mark unknown slot active")
	}
	if err := n.cmd.Command("nvbootctrl", "set-active-boot-slot", idx).Run(); err != nil {
		return errors.Wrap(err, "nvbootctrl: set-active-boot-slot")
	}
	return nil
}
