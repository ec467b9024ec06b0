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

// Package journal implements the best-effort, post-mortem-only state
// file the install engine writes at every state transition. It is
// never read back to resume a partially-applied update; the
// authoritative state at power-off is the bootloader's active-slot
// variable.
package journal

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

// Step names the engine's state machine positions, as recorded in the
// journal for post-mortem inspection.
type Step string

const (
	StepNone             Step = "none"
	StepVerifying        Step = "verifying"
	StepWritingArtifact  Step = "writing_artifact"
	StepPostInstallCheck Step = "post_install_checks"
	StepSwitchingBoot    Step = "switching_boot"
	StepCompleted        Step = "completed"
	StepFailed           Step = "failed"
)

// UpdateState is the full journal record written at each transition.
type UpdateState struct {
	Version         string `json:"version"`
	CurrentStep     Step   `json:"current_step"`
	CurrentArtifact string `json:"current_artifact,omitempty"`
	BytesWritten    uint64 `json:"bytes_written"`
	Target          string `json:"target,omitempty"`
	Error           string `json:"error,omitempty"`
}

// Journal truncates and rewrites a single state file at path on every
// Save call.
type Journal struct {
	path string
}

func New(path string) *Journal {
	return &Journal{path: path}
}

// Save truncates and rewrites the journal file with state. Failure to
// write the journal is never fatal to the update itself; callers log
// but do not abort on a Save error.
func (j *Journal) Save(state UpdateState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return errors.Wrap(err, "journal: marshal state")
	}
	f, err := os.OpenFile(j.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return errors.Wrap(err, "journal: open")
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		return errors.Wrap(err, "journal: write")
	}
	return nil
}

// Clear removes the journal file. Absence of a journal is not an
// error condition for callers.
func (j *Journal) Clear() error {
	if err := os.Remove(j.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "journal: remove")
	}
	return nil
}
