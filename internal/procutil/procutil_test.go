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

package procutil

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/go-quicktest/qt"
)

func TestRunAndCollectCapturesExitCodeAndStreams(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out, err := RunAndCollect(ctx, t.TempDir(), "sh", "-c", "echo out; echo err 1>&2; exit 3")
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(out.ExitCode, 3))
	qt.Assert(t, qt.Equals(out.Stdout, "out\n"))
	qt.Assert(t, qt.Equals(out.Stderr, "err\n"))
}

func TestRunAndCollectZeroExit(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out, err := RunAndCollect(ctx, t.TempDir(), "true")
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(out.ExitCode, 0))
}

func TestTerminateKillsProcessGroup(t *testing.T) {
	if testing.Short() {
		t.Skip("spawns a real child process tree")
	}
	cmd := exec.CommandContext(context.Background(), "sh", "-c", "sleep 30 & wait")
	h, err := Start(cmd)
	qt.Assert(t, qt.IsNil(err))

	qt.Assert(t, qt.IsNil(Terminate(h, SIGKILL)))

	done := make(chan struct{})
	go func() {
		cmd.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("process tree was not terminated")
	}
}
