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

// Package manifest holds the in-memory update manifest model and its
// JSON loader. Parsing the bundle's manifest file into this model is
// the only responsibility of this package; the install engine consumes
// the model, never the raw JSON.
package manifest

import "github.com/pkg/errors"

// Slot identifies one of the two redundant installation targets.
type Slot string

const (
	SlotA       Slot = "A"
	SlotB       Slot = "B"
	SlotUnknown Slot = ""
)

// Other returns the alternate slot. Calling it on SlotUnknown is a
// programming error and panics, since the planner must never reach
// that far with an undetected current slot.
func (s Slot) Other() Slot {
	switch s {
	case SlotA:
		return SlotB
	case SlotB:
		return SlotA
	default:
		panic("manifest: Other() called on unknown slot")
	}
}

func (s Slot) String() string {
	if s == SlotUnknown {
		return "unknown"
	}
	return string(s)
}

// ComponentType is the closed set of ways a Component can be installed.
type ComponentType string

const (
	ComponentRaw     ComponentType = "raw"
	ComponentArchive ComponentType = "archive"
	ComponentFile    ComponentType = "file"
)

// Component is one unit of the update: a partition image, a tar
// archive, or a plain file.
type Component struct {
	Name              string        `json:"name"`
	Type              ComponentType `json:"type"`
	Filename          string        `json:"filename"`
	Target            string        `json:"target"`
	Path              string        `json:"path,omitempty"`
	Permissions       string        `json:"permissions,omitempty"`
	CreateDestination bool          `json:"create-destination,omitempty"`
	ExpectedHash      string        `json:"expected-hash,omitempty"`
	ExpectedSize      int64         `json:"expected-size,omitempty"`
	Signature         string        `json:"signature,omitempty"`

	// InstallTo is resolved by the Planner, never set by the loader.
	InstallTo string `json:"-"`
}

// BootConfig carries the optional override for the slot activation
// command as read from the manifest. The install engine does not pass
// it on: the SlotControl backends always run their own fixed commands.
type BootConfig struct {
	SwitchCmd string `json:"switch_cmd,omitempty"`
}

// Manifest is the normalized form consumed by the install engine.
type Manifest struct {
	Version    string                       `json:"version"`
	Slots      map[Slot]map[string]string   `json:"slots"`
	Components []Component                  `json:"components"`
	Boot       BootConfig                   `json:"boot"`
}

// ErrManifestInvalid is returned whenever a required field is missing
// or contradictory.
var ErrManifestInvalid = errors.New("manifest: invalid")

// Validate checks the structural invariants this package guarantees
// callers can rely on: every component has a name, a known type, and a
// source filename.
func (m Manifest) Validate() error {
	if len(m.Components) == 0 {
		return errors.Wrap(ErrManifestInvalid, "manifest has no components")
	}
	seen := make(map[string]bool, len(m.Components))
	for _, c := range m.Components {
		if c.Name == "" {
			return errors.Wrap(ErrManifestInvalid, "component missing name")
		}
		if seen[c.Name] {
			return errors.Wrapf(ErrManifestInvalid, "duplicate component name %q", c.Name)
		}
		seen[c.Name] = true
		switch c.Type {
		case ComponentRaw, ComponentArchive, ComponentFile:
		default:
			return errors.Wrapf(ErrManifestInvalid, "component %q has unknown type %q", c.Name, c.Type)
		}
		if c.Filename == "" {
			return errors.Wrapf(ErrManifestInvalid, "component %q missing filename", c.Name)
		}
		if c.Type == ComponentFile && c.Path == "" {
			return errors.Wrapf(ErrManifestInvalid, "file component %q missing path", c.Name)
		}
	}
	return nil
}
