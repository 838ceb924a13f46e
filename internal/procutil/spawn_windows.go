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

//go:build windows

package procutil

import (
	"fmt"
	"os/exec"
	"strconv"
	"syscall"

	"golang.org/x/sys/windows"
)

// Start launches cmd in its own process group (CREATE_NEW_PROCESS_GROUP),
// which is what lets Windows' taskkill /T walk the tree from this pid in
// Terminate below.
func Start(cmd *exec.Cmd) (*Handle, error) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.CreationFlags |= windows.CREATE_NEW_PROCESS_GROUP

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("procutil: start: %w", err)
	}
	return &Handle{Cmd: cmd, pid: cmd.Process.Pid}, nil
}

// Terminate shells out to taskkill /T /F, the only portable way to reach a
// whole process tree on Windows without depending on a cgo job-object
// wrapper; sig is accepted for API symmetry with the POSIX build but
// ignored, since taskkill has no equivalent of signal selection.
func Terminate(h *Handle, sig Signal) error {
	if h == nil || h.pid <= 0 {
		return nil
	}
	cmd := exec.Command("taskkill", "/PID", strconv.Itoa(h.pid), "/T", "/F")
	if err := cmd.Run(); err != nil {
		log.WithError(err).WithField("pid", h.pid).Debug("taskkill reported an error; process may have already exited")
	}
	return nil
}
