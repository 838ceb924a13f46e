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

package workspace

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-quicktest/qt"

	"github.com/taskflow/taskflow/configloader"
	"github.com/taskflow/taskflow/internal/procutil"
	"github.com/taskflow/taskflow/taskgraph"
)

// writeScript creates an executable shell script at dir/name with body as
// its content, standing in for a real configuration's subprocess.
func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	full := "#!/bin/sh\n" + body + "\n"
	qt.Assert(t, qt.IsNil(os.WriteFile(path, []byte(full), 0o755)))
	return path
}

// declaredOptionsProbe returns a ProbeFunc that answers every path in opts
// with a fixed JSON declaration and fails for anything else.
func declaredOptionsProbe(opts map[string]string) configloader.ProbeFunc {
	return func(ctx context.Context, configPath string) (procutil.CollectedOutput, error) {
		decl, ok := opts[configPath]
		if !ok {
			return procutil.CollectedOutput{ExitCode: 1, Combined: "unknown config"}, nil
		}
		return procutil.CollectedOutput{ExitCode: 0, Stdout: decl}, nil
	}
}

func waitForStatus(t *testing.T, w *Workspace, want Status) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if w.WorkspaceStatus() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("workspace status never reached %q, last was %q", want, w.WorkspaceStatus())
}

func TestWorkspaceRunsSingleProjectToSuccess(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, "a.taskflow.sh", "echo building; exit 0")

	w := New(Options{
		Roots: []string{script},
		Jobs:  taskgraph.JobsUnlimited,
		Probe: declaredOptionsProbe(map[string]string{script: `{}`}),
	})
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		w.Stop(ctx)
	}()

	waitForStatus(t, w, StatusOK)

	projects := w.BFSProjects()
	qt.Assert(t, qt.HasLen(projects, 1))
	qt.Assert(t, qt.StringContains(string(projects[0].Output()), "building"))
}

func TestWorkspaceSentinelThenLateExit(t *testing.T) {
	dir := t.TempDir()
	// Announces readiness via the sentinel immediately, then exits non-zero
	// later; the sentinel path should have already marked it a success.
	script := writeScript(t, dir, "a.taskflow.sh", "echo task-done >&3; sleep 0.3; exit 7")

	w := New(Options{
		Roots: []string{script},
		Jobs:  taskgraph.JobsUnlimited,
		Probe: declaredOptionsProbe(map[string]string{script: `{}`}),
	})
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		w.Stop(ctx)
	}()

	waitForStatus(t, w, StatusOK)
	time.Sleep(500 * time.Millisecond) // outlive the script's late exit
	qt.Assert(t, qt.Equals(w.WorkspaceStatus(), StatusOK))

	projects := w.BFSProjects()
	qt.Assert(t, qt.HasLen(projects, 1))
	qt.Assert(t, qt.StringContains(string(projects[0].Output()), "process exited with code=7"))
}

func TestWorkspaceDependencyOrdering(t *testing.T) {
	dir := t.TempDir()
	dep := writeScript(t, dir, "dep.taskflow.sh", "exit 0")
	root := writeScript(t, dir, "root.taskflow.sh", "exit 0")

	probes := map[string]string{
		dep:  `{}`,
		root: `{"deps":["dep.taskflow.sh"]}`,
	}
	w := New(Options{
		Roots: []string{root},
		Jobs:  taskgraph.JobsUnlimited,
		Probe: declaredOptionsProbe(probes),
	})
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		w.Stop(ctx)
	}()

	waitForStatus(t, w, StatusOK)
	order := w.BFSProjects()
	qt.Assert(t, qt.HasLen(order, 2))
	// BFS walks from roots (tasks nothing depends on) downward, so the
	// dependent project comes first and its dependency follows.
	qt.Assert(t, qt.Equals(order[0].ConfigPath(), root))
	qt.Assert(t, qt.Equals(order[1].ConfigPath(), dep))
}

func TestWorkspaceCycleEntersErrorState(t *testing.T) {
	dir := t.TempDir()
	a := writeScript(t, dir, "a.taskflow.sh", "exit 0")
	b := writeScript(t, dir, "b.taskflow.sh", "exit 0")

	probes := map[string]string{
		a: `{"deps":["b.taskflow.sh"]}`,
		b: `{"deps":["a.taskflow.sh"]}`,
	}
	w := New(Options{
		Roots: []string{a},
		Jobs:  taskgraph.JobsUnlimited,
		Probe: declaredOptionsProbe(probes),
	})
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		w.Stop(ctx)
	}()

	waitForStatus(t, w, StatusError)
	qt.Assert(t, qt.StringContains(w.WorkspaceError(), "cycle"))
}

func TestWorkspaceScheduleUpdateReRunsProject(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "marker")
	script := writeScript(t, dir, "a.taskflow.sh", "echo run >> "+marker+"; exit 0")

	w := New(Options{
		Roots: []string{script},
		Jobs:  taskgraph.JobsUnlimited,
		Probe: declaredOptionsProbe(map[string]string{script: `{}`}),
	})
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		w.Stop(ctx)
	}()

	waitForStatus(t, w, StatusOK)
	projects := w.BFSProjects()
	qt.Assert(t, qt.HasLen(projects, 1))

	w.ScheduleUpdate(projects[0], false)
	waitForStatus(t, w, StatusOK)

	time.Sleep(300 * time.Millisecond)
	data, err := os.ReadFile(marker)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(strings.Count(string(data), "run"), 2))
}
