// Copyright 2026 The TaskFlow Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

//go:build linux

package procutil

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// descendantPIDs walks /proc, builds the full parent->children map from
// every process's stat file, and returns root plus every transitive
// descendant. Reading /proc directly, rather than shelling out to ps,
// matches how the rest of the pack inspects Linux process state when it
// needs more than a single pid's status.
func descendantPIDs(root int) ([]int, error) {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return nil, fmt.Errorf("procutil: read /proc: %w", err)
	}

	children := map[int][]int{}
	for _, e := range entries {
		pid, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}
		ppid, ok := readPPID(pid)
		if !ok {
			continue
		}
		children[ppid] = append(children[ppid], pid)
	}

	var out []int
	var walk func(pid int)
	seen := map[int]bool{}
	walk = func(pid int) {
		if seen[pid] {
			return
		}
		seen[pid] = true
		out = append(out, pid)
		for _, c := range children[pid] {
			walk(c)
		}
	}
	walk(root)
	return out, nil
}

// readPPID parses field 4 of /proc/<pid>/stat. The second field, comm, is
// the process name in parentheses and may itself contain spaces or
// parentheses, so splitting on the LAST ')' is the only safe way to find
// where the fixed-width fields resume.
func readPPID(pid int) (int, bool) {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		return 0, false
	}
	line := string(data)
	close := strings.LastIndexByte(line, ')')
	if close < 0 || close+2 >= len(line) {
		return 0, false
	}
	rest := strings.Fields(line[close+2:])
	// rest[0] is state, rest[1] is ppid.
	if len(rest) < 2 {
		return 0, false
	}
	ppid, err := strconv.Atoi(rest[1])
	if err != nil {
		return 0, false
	}
	return ppid, true
}
