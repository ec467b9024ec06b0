// Copyright 2016 Mender Software AS
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
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/tegraota/otainstaller/manifest"
	"github.com/tegraota/otainstaller/system"
)

// UBootEnv implements SlotControl via fw_printenv/fw_setenv, the
// U-Boot environment tools. Grounded on the teacher's bootenv.go: the
// key=value parsing and the atomic fw_setenv via stdin. The teacher's
// environment canary check is not carried over.
type UBootEnv struct {
	cmd system.Commander
	// VarName is the environment variable holding the boot slot
	// marker, e.g. "boot_slot" or "mender_boot_part".
	VarName string
}

func NewUBootEnv(cmd system.Commander, varName string) *UBootEnv {
	if varName == "" {
		varName = "boot_slot"
	}
	return &UBootEnv{cmd: cmd, VarName: varName}
}

func (u *UBootEnv) CurrentSlot(ctx context.Context) (manifest.Slot, error) {
	vars, err := u.readEnv(u.VarName)
	if err != nil {
		return manifest.SlotUnknown, err
	}
	val, ok := vars[u.VarName]
	if !ok {
		return manifest.SlotUnknown, nil
	}
	switch strings.ToUpper(strings.TrimSpace(val)) {
	case "A", "0":
		return manifest.SlotA, nil
	case "B", "1":
		return manifest.SlotB, nil
	default:
		return manifest.SlotUnknown, nil
	}
}

func (u *UBootEnv) MarkActive(ctx context.Context, slot manifest.Slot) error {
	if slot != manifest.SlotA && slot != manifest.SlotB {
		return errors.Errorf("ubootenv: cannot mark unknown slot active")
	}
	return u.writeEnv(map[string]string{u.VarName: string(slot)})
}

// readEnv runs fw_printenv and parses its "key=value" output lines.
func (u *UBootEnv) readEnv(names ...string) (map[string]string, error) {
	args := append([]string{}, names...)
	out, err := u.cmd.Command("fw_printenv", args...).Output()
	if err != nil {
		return nil, errors.Wrap(err, "ubootenv: fw_printenv")
	}

	vars := make(map[string]string)
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := scanner.Text()
		idx := strings.IndexByte(line, '=')
		if idx < 0 {
			continue
		}
		vars[line[:idx]] = line[idx+1:]
	}
	return vars, nil
}

// writeEnv writes every var atomically via `fw_setenv -s -`, piping
// "key value\n" lines on stdin, matching the teacher's approach.
func (u *UBootEnv) writeEnv(vars map[string]string) error {
	var buf bytes.Buffer
	for k, v := range vars {
		fmt.Fprintf(&buf, "%s %s\n", k, v)
	}

	cmd := u.cmd.Command("fw_setenv", "-s", "-")
	cmd.Stdin = &buf
	if err := cmd.Run(); err != nil {
		return errors.Wrap(err, "ubootenv: fw_setenv")
	}
	return nil
}
