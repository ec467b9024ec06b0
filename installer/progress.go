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

// ProgressRecord is the single channel every layer of the pipeline
// reports through. Percent is in [0,100], or -1 for a purely
// informational or terminal-error message.
type ProgressRecord struct {
	Percent float64
	Message string
	Final   bool
}

// ProgressFunc is the sink signature accepted throughout the engine.
type ProgressFunc func(ProgressRecord)

func noopProgress(ProgressRecord) {}

// band computes the absolute percentage for a fractional position
// `frac` (0..1) inside a [base, base+span] window.
func band(base, span, frac float64) float64 {
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	return base + span*frac
}
