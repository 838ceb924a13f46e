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
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"github.com/taskflow/taskflow/internal/procutil"
	"github.com/taskflow/taskflow/taskgraph"
)

const sentinelLine = "task-done"

// runProject is the taskgraph.RunCallback: it implements the "Project
// execution" procedure of spec.md §4.4 steps 1-8.
func (w *Workspace) runProject(ctx context.Context, id taskgraph.TaskID, onComplete taskgraph.OnComplete) {
	w.mu.Lock()
	p, ok := w.projects[string(id)]
	w.mu.Unlock()
	if !ok {
		onComplete(false)
		return
	}

	if err := p.ConfigurationError(); err != nil {
		p.appendOutput(err.Error() + "\n")
		onComplete(false)
		return
	}

	stopProject(p)
	p.resetForRun()

	cmd, sentinelR, sentinelW, err := w.buildCommand(ctx, p)
	if err != nil {
		msg := fmt.Sprintf("spawn error: %s\n", err)
		p.appendOutput(msg)
		w.emit(Event{Kind: EventBuildStderr, ConfigPath: string(id), Text: msg})
		onComplete(false)
		return
	}

	handle, err := procutil.Start(cmd)
	sentinelW.Close()
	if err != nil {
		msg := fmt.Sprintf("spawn error: %s\n", err)
		p.appendOutput(msg)
		w.emit(Event{Kind: EventBuildStderr, ConfigPath: string(id), Text: msg})
		onComplete(false)
		return
	}
	p.mu.Lock()
	p.handle = handle
	p.mu.Unlock()
	p.setPID(handle.PID())
	w.emit(Event{Kind: EventPIDChanged, ConfigPath: string(id), PID: handle.PID()})

	var once completeOnce
	complete := func(success bool) {
		if !once.do() {
			return
		}
		p.setStopped(exitCodeOf(success))
		p.setPID(0)
		w.emit(Event{Kind: EventPIDChanged, ConfigPath: string(id), PID: 0})
		onComplete(success)
	}

	go watchSentinel(sentinelR, p, func() { complete(true) })

	go func() {
		<-ctx.Done()
		msg := "terminated\n"
		p.appendOutput(msg)
		w.emit(Event{Kind: EventBuildStderr, ConfigPath: string(id), Text: msg})
		_ = procutil.Terminate(handle, procutil.SIGKILL)
	}()

	go func() {
		waitErr := cmd.Wait()
		if p.hasSentinel() {
			p.appendOutput(fmt.Sprintf("process exited with code=%s\n", exitCodeString(waitErr)))
			return
		}
		complete(waitErr == nil)
	}()
}

// completeOnce guards against both the sentinel path and the process-exit
// path racing to call complete for the same dispatched execution.
type completeOnce struct {
	mu   sync.Mutex
	done bool
}

func (c *completeOnce) do() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done {
		return false
	}
	c.done = true
	return true
}

func exitCodeOf(success bool) int {
	if success {
		return 0
	}
	return 1
}

func exitCodeString(err error) string {
	if err == nil {
		return "0"
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return fmt.Sprintf("%d", exitErr.ExitCode())
	}
	return "unknown"
}

// buildCommand wires stdout/stderr pipes (appended to the project's output
// buffer and forwarded as events) plus a dedicated fd-3 pipe carrying the
// task-done sentinel, and sets the environment markers a configuration
// inspects to know it is running under the engine.
func (w *Workspace) buildCommand(ctx context.Context, p *Project) (*exec.Cmd, *os.File, *os.File, error) {
	dir := filepath.Dir(p.ConfigPath())
	cmd := exec.CommandContext(ctx, p.ConfigPath())
	cmd.Dir = dir

	env := append(os.Environ(), "TASKFLOW_RUNNER_MODE=run")
	if w.opts.WatchMode {
		env = append(env, "TASKFLOW_WATCH_MODE=1")
	}
	env = append(env, w.opts.NodeOptions...)
	cmd.Env = env

	stdoutR, stdoutW := io.Pipe()
	stderrR, stderrW := io.Pipe()
	sentinelR, sentinelW, err := os.Pipe()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("workspace: create sentinel pipe: %w", err)
	}
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW
	cmd.ExtraFiles = []*os.File{sentinelW}

	id := p.ConfigPath()
	go pipeToProject(stdoutR, p, w, id, EventBuildStdout)
	go pipeToProject(stderrR, p, w, id, EventBuildStderr)

	go func() {
		<-ctx.Done()
		stdoutW.Close()
		stderrW.Close()
	}()

	return cmd, sentinelR, sentinelW, nil
}

func pipeToProject(r io.Reader, p *Project, w *Workspace, id string, kind EventKind) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text() + "\n"
		p.appendOutput(line)
		w.emit(Event{Kind: kind, ConfigPath: id, Text: line})
	}
}

func watchSentinel(r *os.File, p *Project, onSentinel func()) {
	if r == nil {
		return
	}
	defer r.Close()
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if scanner.Text() == sentinelLine {
			if p.markSentinelSeen() {
				onSentinel()
			}
			return
		}
	}
}

// stopProject terminates p's current child process tree, if any.
func stopProject(p *Project) {
	p.mu.Lock()
	handle := p.handle
	p.mu.Unlock()
	if handle == nil {
		return
	}
	_ = procutil.Terminate(handle, procutil.SIGKILL)
}
