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

// Package slotcontrol implements the SlotControl capability against
// real bootloader backends: Tegra's nvbootctrl and U-Boot's
// fw_printenv/fw_setenv.
package slotcontrol

import (
	"context"

	"github.com/tegraota/otainstaller/manifest"
)

// SlotControl reports the currently-booted slot and persists the
// selection for the next boot. MarkActive must be the last action of
// a successful run; it is the commit point.
type SlotControl interface {
	CurrentSlot(ctx context.Context) (manifest.Slot, error)
	MarkActive(ctx context.Context, slot manifest.Slot) error
}
