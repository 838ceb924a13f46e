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
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/taskflow/taskflow/configloader"
	"github.com/taskflow/taskflow/internal/procutil"
)

// conventionalSiblings are watched in addition to a project's declared
// watch list and its own configuration path, the way a real build would
// also want to notice a dependency manifest changing next to the config
// that reads it.
var conventionalSiblings = []string{"tsconfig.json", "package.json", "package-lock.json"}

// Project is one configuration's live state: its resolved config (or load
// error), its accumulated output, and whatever child process is currently
// running on its behalf.
type Project struct {
	mu sync.Mutex

	configPath string
	name       string
	loadErr    error
	config     *configloader.Config

	output       []byte
	startTimeMS  int64
	stopTimeMS   int64
	pid          int
	exitCode     *int
	handle       *procutil.Handle
	sentinelSeen bool

	watcher *fsnotify.Watcher
}

func newProject(configPath string) *Project {
	return &Project{configPath: configPath}
}

// ConfigPath returns the absolute path this project was created from.
func (p *Project) ConfigPath() string {
	return p.configPath
}

// Name returns the configuration's declared name, or "" if unset or unloaded.
func (p *Project) Name() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.name
}

// Output returns a snapshot of the accumulated stdout+stderr in arrival order.
func (p *Project) Output() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]byte, len(p.output))
	copy(out, p.output)
	return out
}

// PID returns the live child pid, or 0 if nothing is running.
func (p *Project) PID() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pid
}

// ExitCode returns the status recorded when the last execution completed,
// and whether one has been recorded yet. The status is 0 when the execution
// succeeded (including by the task-done sentinel) and 1 when it failed; the
// child's own numeric exit code is not recorded here.
func (p *Project) ExitCode() (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.exitCode == nil {
		return 0, false
	}
	return *p.exitCode, true
}

// Duration returns how long the project's last dispatched execution took.
// If it is still running, it reports the elapsed time so far; if it has
// never run, it reports zero.
func (p *Project) Duration() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.startTimeMS == 0 {
		return 0
	}
	end := p.stopTimeMS
	if end == 0 {
		end = nowMillis()
	}
	return time.Duration(end-p.startTimeMS) * time.Millisecond
}

// ConfigurationError returns the error from the most recent ConfigLoader
// pass for this project's path, if any.
func (p *Project) ConfigurationError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loadErr
}

func (p *Project) setConfig(cfg *configloader.Config, loadErr error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.config = cfg
	p.loadErr = loadErr
	if cfg != nil {
		p.name = cfg.Name
	}
}

func (p *Project) appendOutput(text string) {
	p.mu.Lock()
	p.output = append(p.output, text...)
	p.mu.Unlock()
}

func (p *Project) resetForRun() {
	p.mu.Lock()
	p.output = nil
	p.startTimeMS = nowMillis()
	p.stopTimeMS = 0
	p.exitCode = nil
	p.sentinelSeen = false
	p.mu.Unlock()
}

func (p *Project) setStopped(exitCode int) {
	p.mu.Lock()
	p.stopTimeMS = nowMillis()
	p.exitCode = &exitCode
	p.pid = 0
	p.handle = nil
	p.mu.Unlock()
}

func (p *Project) setPID(pid int) {
	p.mu.Lock()
	p.pid = pid
	p.mu.Unlock()
}

func (p *Project) markSentinelSeen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sentinelSeen {
		return false
	}
	p.sentinelSeen = true
	return true
}

func (p *Project) hasSentinel() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sentinelSeen
}

// watchPaths is the configured watch list plus the project's own config
// path plus the conventional manifest siblings, per spec.md §4.4.
func (p *Project) watchPaths() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	dir := filepath.Dir(p.configPath)
	paths := []string{p.configPath}
	if p.config != nil {
		paths = append(paths, p.config.Watch...)
	}
	for _, s := range conventionalSiblings {
		paths = append(paths, filepath.Join(dir, s))
	}
	return paths
}

func (p *Project) ignorePaths() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.config == nil {
		return nil
	}
	return p.config.Ignore
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
