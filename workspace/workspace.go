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

// Package workspace composes a TaskGraph with ConfigLoader, a filesystem
// watcher and a process spawner into the top-level engine a front end
// drives: give it a set of root configuration paths and it discovers,
// runs, and (in watch mode) continuously re-runs the graph they describe.
package workspace

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/taskflow/taskflow/configloader"
	"github.com/taskflow/taskflow/internal/multimap"
	"github.com/taskflow/taskflow/taskgraph"
)

var log = logrus.WithField("component", "workspace")

// Status mirrors taskgraph.Status plus the workspace-only "error" state
// that a cycle in the discovered configuration graph produces.
type Status string

const (
	StatusError   Status = "error"
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusOK      Status = "ok"
	StatusFail    Status = "fail"
)

// coalesceDelay is how long schedule_update waits before acting, so that a
// burst of filesystem events (an editor's save-as-rename-write dance, a
// package manager touching a dozen files) collapses into one update pass.
const coalesceDelay = 150 * time.Millisecond

// Options configures a new Workspace.
type Options struct {
	Roots       []string
	Jobs        taskgraph.Jobs
	WatchMode   bool
	Probe       configloader.ProbeFunc
	NodeOptions []string // extra environment entries forwarded to every child

	// DiscoverOnly skips dispatching task executions entirely; only
	// configuration discovery (and, in watch mode, re-discovery) runs.
	// Meant for read-only introspection such as the "graph" CLI command.
	DiscoverOnly bool
}

// Workspace is the top-level orchestrator.
type Workspace struct {
	opts Options

	graph *taskgraph.Graph

	mu        sync.Mutex
	projects  map[string]*Project // keyed by config path
	status    Status
	statusErr error

	// pending coalesced update.
	pendingMu          sync.Mutex
	changedProjects    map[string]bool
	needsRereadConfigs bool
	updateTimer        *time.Timer
	updateInFlight     bool
	moreChangesArrived bool

	subsMu sync.RWMutex
	subs   []chan Event

	stopOnce sync.Once
	stopped  chan struct{}
}

// New constructs a Workspace and schedules its initial configuration read.
func New(opts Options) *Workspace {
	w := &Workspace{
		opts:            opts,
		projects:        map[string]*Project{},
		status:          StatusPending,
		changedProjects: map[string]bool{},
		stopped:         make(chan struct{}),
	}
	w.graph = taskgraph.New(opts.Jobs, w.runProject)

	go w.forwardGraphEvents(w.graph.Events())

	w.pendingMu.Lock()
	w.needsRereadConfigs = true
	w.armTimerLocked()
	w.pendingMu.Unlock()
	return w
}

// forwardGraphEvents translates taskgraph events into build_status_changed
// notifications on the corresponding Project.
func (w *Workspace) forwardGraphEvents(ch <-chan taskgraph.Event) {
	for ev := range ch {
		if ev.TaskID == "" {
			continue
		}
		w.emit(Event{Kind: EventBuildStatusChanged, ConfigPath: string(ev.TaskID)})
	}
}

// BFSProjects returns the current Projects in breadth-first topological
// order, mirroring the graph's own bfs_order().
func (w *Workspace) BFSProjects() []*Project {
	order := w.graph.BFSOrder()
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]*Project, 0, len(order))
	for _, id := range order {
		if p, ok := w.projects[string(id)]; ok {
			out = append(out, p)
		}
	}
	return out
}

// DirectDependencies returns the Projects project directly depends on.
func (w *Workspace) DirectDependencies(project *Project) []*Project {
	return w.projectsFor(w.graph.Children(taskgraph.TaskID(project.ConfigPath())))
}

// DirectDependants returns the Projects that directly depend on project.
func (w *Workspace) DirectDependants(project *Project) []*Project {
	return w.projectsFor(w.graph.Parents(taskgraph.TaskID(project.ConfigPath())))
}

func (w *Workspace) projectsFor(ids []taskgraph.TaskID) []*Project {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]*Project, 0, len(ids))
	for _, id := range ids {
		if p, ok := w.projects[string(id)]; ok {
			out = append(out, p)
		}
	}
	return out
}

// ProjectStatus reports a single project's own task status within the
// graph, distinct from WorkspaceStatus which summarizes the whole tree.
func (w *Workspace) ProjectStatus(p *Project) taskgraph.Status {
	return w.graph.TaskStatus(taskgraph.TaskID(p.ConfigPath()))
}

// WorkspaceStatus reports "error" if the last configuration read produced a
// cycle, else the TaskGraph's own tree_status.
func (w *Workspace) WorkspaceStatus() Status {
	w.mu.Lock()
	inError := w.status == StatusError
	w.mu.Unlock()
	if inError {
		return StatusError
	}
	return Status(w.graph.TreeStatus())
}

// WorkspaceError returns a human-readable description of the error state,
// or "" if not in error.
func (w *Workspace) WorkspaceError() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.statusErr == nil {
		return ""
	}
	return w.statusErr.Error()
}

func (w *Workspace) setStatus(s Status, err error) {
	w.mu.Lock()
	changed := w.status != s
	w.status = s
	w.statusErr = err
	w.mu.Unlock()
	if changed {
		w.emit(Event{Kind: EventWorkspaceStatusChanged, WorkspaceStatus: s})
	}
}

// ScheduleUpdate marks project as changed and arms the coalesced update
// timer. Passing a nil project marks nothing as changed and only arms the
// timer (with a configuration re-read if needsRereadConfigs is set). The
// fsnotify handler passes the watching project and sets needsRereadConfigs
// when the changed path is that project's own config file.
func (w *Workspace) ScheduleUpdate(project *Project, needsRereadConfigs bool) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	if project != nil {
		w.changedProjects[project.ConfigPath()] = true
	}
	if needsRereadConfigs {
		w.needsRereadConfigs = true
	}
	if w.updateInFlight {
		w.moreChangesArrived = true
		return
	}
	w.armTimerLocked()
}

func (w *Workspace) armTimerLocked() {
	if w.updateTimer != nil {
		w.updateTimer.Stop()
	}
	w.updateTimer = time.AfterFunc(coalesceDelay, w.runUpdate)
}

// Stop cancels the pending update timer, resets all tasks, and disposes
// every project's child process tree. Asynchronous: it returns once
// teardown has been requested, not once every process has exited; callers
// that need a bound should derive ctx with a deadline.
func (w *Workspace) Stop(ctx context.Context) {
	w.stopOnce.Do(func() {
		w.pendingMu.Lock()
		if w.updateTimer != nil {
			w.updateTimer.Stop()
		}
		w.pendingMu.Unlock()

		w.graph.ResetAllTasks()

		w.mu.Lock()
		projects := make([]*Project, 0, len(w.projects))
		for _, p := range w.projects {
			projects = append(projects, p)
		}
		w.mu.Unlock()

		var wg sync.WaitGroup
		for _, p := range projects {
			p := p
			wg.Add(1)
			go func() {
				defer wg.Done()
				stopProject(p)
			}()
		}
		done := make(chan struct{})
		go func() { wg.Wait(); close(done) }()
		select {
		case <-done:
		case <-ctx.Done():
			log.Warn("workspace stop: context deadline exceeded waiting for child process trees")
		}

		w.graph.Close()

		w.subsMu.Lock()
		for _, ch := range w.subs {
			close(ch)
		}
		w.subs = nil
		w.subsMu.Unlock()

		close(w.stopped)
	})
}

// Stopped returns a channel closed once Stop has completed teardown.
func (w *Workspace) Stopped() <-chan struct{} {
	return w.stopped
}

func adjacencyFromResults(results map[string]configloader.Result) *multimap.Multimap[taskgraph.TaskID, taskgraph.TaskID] {
	adj := multimap.New[taskgraph.TaskID, taskgraph.TaskID]()
	for path, res := range results {
		id := taskgraph.TaskID(path)
		adj.EnsureKey(id)
		if res.Config == nil {
			continue
		}
		for _, dep := range res.Config.Deps {
			adj.Insert(id, taskgraph.TaskID(dep))
		}
	}
	return adj
}

func renderCycle(cycle []taskgraph.TaskID) string {
	s := ""
	for i, id := range cycle {
		if i > 0 {
			s += " -> "
		}
		s += string(id)
	}
	if len(cycle) > 0 {
		s += " -> " + string(cycle[0])
	}
	return s
}
