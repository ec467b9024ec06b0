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

// Package installer implements the install engine: the planner, the
// per-component pipeline (partition writer, archive installer, update
// module) and the top-level state machine that sequences them.
package installer

import "github.com/pkg/errors"

// Sentinel error kinds. Errors returned from this package wrap one of
// these via errors.Wrap/Wrapf so errors.Cause recovers it. The one
// exception is a manifest load failure in Engine.Run, which is returned
// exactly as manifest.Load reported it.
var (
	ErrManifestIncomplete       = errors.New("installer: manifest incomplete for target slot")
	ErrDuplicateDestination     = errors.New("installer: duplicate install destination")
	ErrUnsupportedComponentType = errors.New("installer: unsupported component type")
	ErrSourceIO                 = errors.New("installer: source read error")
	ErrDestinationIO            = errors.New("installer: destination write error")
	ErrExtraction               = errors.New("installer: archive extraction error")
	ErrUnsafePath               = errors.New("installer: unsafe archive entry path")
	ErrVerify                   = errors.New("installer: verification failed")
	ErrSlot                     = errors.New("installer: slot control error")
	ErrCancelled                = errors.New("installer: cancelled")
)
