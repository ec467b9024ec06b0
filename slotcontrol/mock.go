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

	"github.com/tegraota/otainstaller/manifest"
)

// Mock is an in-memory SlotControl double for engine and planner
// tests.
type Mock struct {
	Current      manifest.Slot
	MarkedActive []manifest.Slot
	CurrentErr   error
	MarkErr      error
}

func (m *Mock) CurrentSlot(ctx context.Context) (manifest.Slot, error) {
	if m.CurrentErr != nil {
		return manifest.SlotUnknown, m.CurrentErr
	}
	return m.Current, nil
}

func (m *Mock) MarkActive(ctx context.Context, slot manifest.Slot) error {
	if m.MarkErr != nil {
		return m.MarkErr
	}
	m.MarkedActive = append(m.MarkedActive, slot)
	return nil
}
