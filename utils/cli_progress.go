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

package utils

import (
	"fmt"
	"os"

	"github.com/mendersoftware/progressbar"
)

// CLIProgressSink renders install-engine progress records to a
// terminal bar, adapting the single {percent, message} progress
// channel to the teacher's progressbar.Bar, which only understands
// incremental ticks.
type CLIProgressSink struct {
	bar     *progressbar.Bar
	lastPct int64
}

// NewCLIProgressSink creates a sink over a 0-100 scale bar.
func NewCLIProgressSink() *CLIProgressSink {
	return &CLIProgressSink{bar: progressbar.New(100)}
}

// Report renders one progress update. percent of -1 marks a purely
// informational or terminal message, printed as a log line instead of
// advancing the bar.
func (s *CLIProgressSink) Report(percent float64, message string, final bool) {
	if percent < 0 {
		fmt.Fprintf(os.Stderr, "%s\n", message)
		return
	}
	target := int64(percent)
	if delta := target - s.lastPct; delta > 0 {
		s.bar.Tick(delta)
		s.lastPct = target
	}
	if final {
		s.bar.Finish()
	}
}
