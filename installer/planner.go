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
	"github.com/pkg/errors"

	"github.com/tegraota/otainstaller/manifest"
)

// InstallStep is one resolved unit of work: a component plus its
// concrete destination under the target slot.
type InstallStep struct {
	Component manifest.Component
}

// InstallPlan is the ordered, deterministic output of Plan.
type InstallPlan struct {
	Steps []InstallStep
}

// Plan resolves m's components against target's slot table into an
// ordered InstallPlan. Plan is a pure function: identical inputs
// produce a byte-identical plan.
func Plan(m manifest.Manifest, target manifest.Slot) (InstallPlan, error) {
	destinations, ok := m.Slots[target]
	if !ok {
		return InstallPlan{}, errors.Wrapf(ErrManifestIncomplete, "no slot table for target %s", target)
	}

	seen := make(map[string]bool, len(m.Components))
	plan := InstallPlan{Steps: make([]InstallStep, 0, len(m.Components))}

	for _, c := range m.Components {
		var installTo string
		if c.Type == manifest.ComponentFile {
			// file-type components resolve their destination from
			// their own explicit Path, not the slot table.
			installTo = c.Path
		} else {
			dest, ok := destinations[c.Target]
			if !ok {
				return InstallPlan{}, errors.Wrapf(
					ErrManifestIncomplete, "component %q: no destination for target %q in slot %s",
					c.Name, c.Target, target)
			}
			installTo = dest
		}
		if seen[installTo] {
			return InstallPlan{}, errors.Wrapf(ErrDuplicateDestination, "%q", installTo)
		}
		seen[installTo] = true

		c.InstallTo = installTo
		plan.Steps = append(plan.Steps, InstallStep{Component: c})
	}

	return plan, nil
}
