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
	"bytes"

	"github.com/tegraota/otainstaller/system"
)

// fakeCommander records every invocation and runs a real, trivial
// coreutils program in place of the real boot tool so CurrentSlot and
// MarkActive can be exercised without touching actual bootloader state.
type fakeCommander struct {
	calls [][]string

	// output, when non-empty, is echoed back verbatim as the command's
	// stdout via printf.
	output string

	// captureStdin, when set, runs `cat` so whatever the caller piped
	// to the returned Cmd's Stdin shows up in capture.
	captureStdin bool
	capture      *bytes.Buffer
}

func (f *fakeCommander) Command(name string, args ...string) *system.Cmd {
	call := append([]string{name}, args...)
	f.calls = append(f.calls, call)

	if f.captureStdin {
		f.capture = &bytes.Buffer{}
		c := system.Command("cat")
		c.Stdout = f.capture
		return c
	}
	return system.Command("printf", "%s", f.output)
}
