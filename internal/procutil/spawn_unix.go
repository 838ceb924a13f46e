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

//go:build linux || darwin

package procutil

import (
	"fmt"
	"os/exec"
	"syscall"
)

// Start launches cmd in a new session, which on POSIX also makes it its own
// process group leader (pgid == pid). That single pgid is what lets
// Terminate reach every descendant in one signal.
func Start(cmd *exec.Cmd) (*Handle, error) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setsid = true

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("procutil: start: %w", err)
	}
	return &Handle{Cmd: cmd, pid: cmd.Process.Pid}, nil
}

// Terminate stops the tree rooted at h. A SIGTERM request is a single
// signal to the negative of h's pid: fast, and sufficient for any child
// that re-parents cooperatively within its own group. A SIGKILL request is
// stronger: the whole process table is walked to find every descendant
// (children can rejoin a different process group, e.g. when they call
// setsid themselves), grouped by the process group each one actually
// belongs to, and the kill signal is sent to the negation of each of those
// groups in turn.
func Terminate(h *Handle, sig Signal) error {
	if h == nil || h.pid <= 0 {
		return nil
	}
	if sig == SIGTERM {
		if err := syscall.Kill(-h.pid, syscall.SIGTERM); err != nil && err != syscall.ESRCH {
			return fmt.Errorf("procutil: interrupt process group %d: %w", h.pid, err)
		}
		return nil
	}

	pids, err := descendantPIDs(h.pid)
	if err != nil {
		log.WithError(err).WithField("pid", h.pid).Debug("process-tree enumeration failed, falling back to group signal")
		pids = []int{h.pid}
	}

	groups := map[int]bool{}
	for _, pid := range pids {
		pgid, err := syscall.Getpgid(pid)
		if err != nil || pgid == 0 {
			pgid = pid
		}
		groups[pgid] = true
	}
	groups[h.pid] = true

	for pgid := range groups {
		if err := syscall.Kill(-pgid, syscall.SIGKILL); err != nil && err != syscall.ESRCH {
			log.WithError(err).WithField("pgid", pgid).Debug("kill of process group failed")
		}
	}
	return nil
}
