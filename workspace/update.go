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
	"errors"

	"github.com/taskflow/taskflow/configloader"
	"github.com/taskflow/taskflow/taskgraph"
)

// runUpdate is the coalesced update procedure from spec.md §4.4. It is
// invoked by the timer armed in ScheduleUpdate/New, never directly.
func (w *Workspace) runUpdate() {
	w.pendingMu.Lock()
	changed := w.changedProjects
	rereadConfigs := w.needsRereadConfigs
	w.changedProjects = map[string]bool{}
	w.needsRereadConfigs = false
	w.updateInFlight = true
	w.updateTimer = nil
	w.pendingMu.Unlock()

	for path := range changed {
		w.graph.MarkChanged(taskgraph.TaskID(path))
	}

	if rereadConfigs {
		w.rereadConfigs(context.Background())
	}

	w.pendingMu.Lock()
	more := w.moreChangesArrived
	w.moreChangesArrived = false
	w.updateInFlight = false
	if more {
		w.armTimerLocked()
	}
	w.pendingMu.Unlock()

	if !more && !w.opts.DiscoverOnly {
		w.graph.Run()
	}
}

func (w *Workspace) rereadConfigs(ctx context.Context) {
	results, err := configloader.Load(ctx, w.opts.Roots, w.opts.Probe)
	if err != nil {
		w.setStatus(StatusError, err)
		return
	}

	adj := adjacencyFromResults(results)
	if err := w.graph.SetTasks(adj); err != nil {
		w.graph.Clear()
		var cycleErr *taskgraph.CycleError
		if errors.As(err, &cycleErr) {
			w.setStatus(StatusError, renderCycleError(cycleErr))
		} else {
			w.setStatus(StatusError, err)
		}
		return
	}

	w.setStatus(StatusPending, nil)
	w.reconcileProjects(results)
}

func (w *Workspace) reconcileProjects(results map[string]configloader.Result) {
	w.mu.Lock()
	defer w.mu.Unlock()

	seen := map[string]bool{}
	for path, res := range results {
		seen[path] = true
		p, ok := w.projects[path]
		if !ok {
			p = newProject(path)
			w.projects[path] = p
			w.emit(Event{Kind: EventProjectAdded, ConfigPath: path})
		}
		p.setConfig(res.Config, res.Error)
		if w.opts.WatchMode {
			w.rearmWatcher(p)
		}
	}

	for path, p := range w.projects {
		if seen[path] {
			continue
		}
		p.closeWatcher()
		delete(w.projects, path)
		w.emit(Event{Kind: EventProjectRemoved, ConfigPath: path})
	}

	w.emit(Event{Kind: EventProjectsChanged})
}

func renderCycleError(e *taskgraph.CycleError) error {
	return &cycleRenderError{cycle: e.Cycle}
}

type cycleRenderError struct {
	cycle []taskgraph.TaskID
}

func (e *cycleRenderError) Error() string {
	return "configuration dependency cycle: " + renderCycle(e.cycle)
}
