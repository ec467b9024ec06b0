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
	"context"
	"io"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/tegraota/otainstaller/bundle"
	"github.com/tegraota/otainstaller/journal"
	"github.com/tegraota/otainstaller/manifest"
	"github.com/tegraota/otainstaller/slotcontrol"
	"github.com/tegraota/otainstaller/stream"
	"github.com/tegraota/otainstaller/verifier"
)

// EngineOptions configures the fsync/progress cadence and verification
// policy shared across every step of a run.
type EngineOptions struct {
	FsyncIntervalBytes    uint64
	ProgressIntervalBytes uint64
	TrustBundlePath       string
}

// Engine is the top-level install state machine: plan, verify, apply
// each step, then commit. It never calls SlotControl.MarkActive unless
// every step succeeded.
type Engine struct {
	Slots    slotcontrol.SlotControl
	Verifier verifier.Verifier
	Journal  *journal.Journal
	Opt      EngineOptions
	Progress ProgressFunc

	archiver *ArchiveInstaller
}

func NewEngine(slots slotcontrol.SlotControl, opt EngineOptions) *Engine {
	return &Engine{
		Slots:    slots,
		Opt:      opt,
		archiver: NewArchiveInstaller(DefaultArchiveInstallerOptions()),
	}
}

// Run executes one full update from the staged bundle b: load its
// manifest, plan against the inactive slot, verify, apply every step,
// and commit.
func (e *Engine) Run(ctx context.Context, b bundle.Bundle) (err error) {
	progress := e.Progress
	if progress == nil {
		progress = noopProgress
	}
	defer func() {
		if err != nil {
			progress(ProgressRecord{Percent: -1, Message: "update failed: " + err.Error(), Final: true})
		}
	}()

	m, err := manifest.Load(b.ManifestPath())
	if err != nil {
		e.save(journal.StepFailed, m.Version, "", 0, "", err)
		return err
	}

	current, err := e.Slots.CurrentSlot(ctx)
	if err != nil {
		e.save(journal.StepFailed, m.Version, "", 0, "", err)
		return errors.Wrap(ErrSlot, err.Error())
	}
	if current == manifest.SlotUnknown {
		err := errors.Wrap(ErrSlot, "current slot is unknown")
		e.save(journal.StepFailed, m.Version, "", 0, "", err)
		return err
	}
	target := current.Other()

	plan, err := Plan(m, target)
	if err != nil {
		e.save(journal.StepFailed, m.Version, "", 0, string(target), err)
		return err
	}

	e.save(journal.StepVerifying, m.Version, "", 0, string(target), nil)
	if err := e.verifyPlan(ctx, plan, b, progress); err != nil {
		e.save(journal.StepFailed, m.Version, "", 0, string(target), err)
		return err
	}

	e.save(journal.StepWritingArtifact, m.Version, "", 0, string(target), nil)
	if err := e.applyPlan(ctx, plan, b, progress); err != nil {
		e.save(journal.StepFailed, m.Version, "", 0, string(target), err)
		return err
	}

	e.save(journal.StepSwitchingBoot, m.Version, "", 0, string(target), nil)
	progress(ProgressRecord{Percent: 95, Message: "switching boot slot"})
	if err := e.Slots.MarkActive(ctx, target); err != nil {
		err = errors.Wrap(ErrSlot, err.Error())
		e.save(journal.StepFailed, m.Version, "", 0, string(target), err)
		return err
	}

	e.save(journal.StepCompleted, m.Version, "", 0, string(target), nil)
	progress(ProgressRecord{Percent: 100, Message: "update completed", Final: true})
	return nil
}

func (e *Engine) verifyPlan(ctx context.Context, plan InstallPlan, b bundle.Bundle, progress ProgressFunc) error {
	if e.Verifier == nil {
		return nil
	}
	for _, step := range plan.Steps {
		c := step.Component
		if c.ExpectedHash != "" {
			rc, r, err := e.openDecompressed(b, c)
			if err != nil {
				return err
			}
			ok, err := e.Verifier.VerifyHash(ctx, r, c.ExpectedHash, func(p float64, msg string) {
				progress(ProgressRecord{Percent: p, Message: msg})
			})
			closeReader(r)
			rc.Close()
			if err != nil {
				return errors.Wrap(ErrVerify, err.Error())
			}
			if !ok {
				return errors.Wrapf(ErrVerify, "hash mismatch for component %q", c.Name)
			}
		}
		if c.Signature != "" && e.Opt.TrustBundlePath != "" {
			ok, err := e.Verifier.VerifySignature(c.Filename, c.Signature, e.Opt.TrustBundlePath)
			if err != nil {
				return errors.Wrap(ErrVerify, err.Error())
			}
			if !ok {
				return errors.Wrapf(ErrVerify, "signature mismatch for component %q", c.Name)
			}
		}
	}
	return nil
}

func (e *Engine) openDecompressed(b bundle.Bundle, c manifest.Component) (io.ReadCloser, stream.Reader, error) {
	rc, err := b.Open(c.Filename)
	if err != nil {
		return nil, nil, errors.Wrap(ErrSourceIO, err.Error())
	}
	r, err := stream.NewDecompressor(c.Filename, rc)
	if err != nil {
		rc.Close()
		return nil, nil, errors.Wrap(ErrSourceIO, err.Error())
	}
	return rc, r, nil
}

func closeReader(r stream.Reader) {
	if c, ok := r.(interface{ Close() error }); ok {
		c.Close()
	}
}

func (e *Engine) applyPlan(ctx context.Context, plan InstallPlan, b bundle.Bundle, progress ProgressFunc) error {
	um := NewUpdateModule(e.archiver)
	n := len(plan.Steps)
	for i, step := range plan.Steps {
		c := step.Component
		rc, err := b.Open(c.Filename)
		if err != nil {
			return errors.Wrap(ErrSourceIO, err.Error())
		}

		base := band(10, 80, float64(i)/float64(n))
		span := 80.0 / float64(n)
		pipeOpt := PipeOptions{
			ProgressIntervalBytes: e.Opt.ProgressIntervalBytes,
			FsyncIntervalBytes:    e.Opt.FsyncIntervalBytes,
			BandBase:              base,
			BandSpan:              span,
		}

		err = um.ExecuteComponent(ctx, c, rc, pipeOpt, progress)
		closeErr := rc.Close()
		if err != nil {
			logrus.Errorf("installer: component %q failed: %v", c.Name, err)
			return err
		}
		if closeErr != nil {
			return errors.Wrap(ErrSourceIO, closeErr.Error())
		}
	}
	return nil
}

func (e *Engine) save(step journal.Step, version, artifact string, bytesWritten uint64, target string, err error) {
	if e.Journal == nil {
		return
	}
	state := journal.UpdateState{
		Version:         version,
		CurrentStep:     step,
		CurrentArtifact: artifact,
		BytesWritten:    bytesWritten,
		Target:          target,
	}
	if err != nil {
		state.Error = err.Error()
	}
	if jerr := e.Journal.Save(state); jerr != nil {
		logrus.Warnf("installer: journal save failed: %v", jerr)
	}
}
