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

// Package procutil starts child processes in their own process group and
// can tear down the whole tree a child may have spawned beneath it, not
// just the direct child. Every task's command runs under a shell, and a
// shell that gets SIGTERM'd does not reliably forward the signal to its own
// children, so killing just the pid the Go runtime knows about routinely
// leaves orphaned grandchildren behind; the workspace layer needs the
// stronger guarantee this package provides.
package procutil

import (
	"os/exec"

	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "procutil")

// Handle wraps a running command together with enough bookkeeping to kill
// its whole process tree later.
type Handle struct {
	Cmd *exec.Cmd
	pid int
}

// PID returns the process id of the command's direct child.
func (h *Handle) PID() int {
	return h.pid
}

// Signal is a termination request, kept platform-agnostic so that callers
// never import syscall themselves: SIGTERM asks the tree to clean up and
// SIGKILL kills it now. Windows has no signal delivery model, so Terminate
// on that platform ignores the value and always force-kills the tree.
type Signal int

const (
	SIGTERM Signal = iota
	SIGKILL
)
