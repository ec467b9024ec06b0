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
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"
)

// legacyArtifact mirrors the older "artifacts[].items[]" manifest
// layout that some staged bundles still carry. The loader accepts
// both layouts and normalizes into Manifest.Components.
type legacyArtifact struct {
	Items []Component `json:"items"`
}

type wireManifest struct {
	Version    string                      `json:"version"`
	Slots      map[Slot]map[string]string  `json:"slots"`
	Components []Component                 `json:"components"`
	Artifacts  []legacyArtifact            `json:"artifacts"`
	Boot       BootConfig                  `json:"boot"`
}

// Load reads and parses the manifest at path. Unknown JSON keys are
// ignored. Missing required keys produce ErrManifestInvalid.
func Load(path string) (Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return Manifest{}, errors.Wrap(err, "manifest: open")
	}
	defer f.Close()
	return decode(f)
}

func decode(r io.Reader) (Manifest, error) {
	var w wireManifest
	dec := json.NewDecoder(r)
	if err := dec.Decode(&w); err != nil {
		return Manifest{}, errors.Wrap(err, "manifest: decode json")
	}

	m := Manifest{
		Version: w.Version,
		Slots:   w.Slots,
		Boot:    w.Boot,
	}

	switch {
	case len(w.Components) > 0:
		m.Components = w.Components
	case len(w.Artifacts) > 0:
		m.Components = loadLegacyComponents(w.Artifacts)
	}

	if m.Slots == nil {
		return Manifest{}, errors.Wrap(ErrManifestInvalid, "manifest missing slots")
	}
	if err := m.Validate(); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

func loadLegacyComponents(artifacts []legacyArtifact) []Component {
	var out []Component
	for _, a := range artifacts {
		out = append(out, a.Items...)
	}
	return out
}
