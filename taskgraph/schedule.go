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

package taskgraph

import "context"

// Run schedules as many executions as the parallelism budget allows. It is
// safe to call at any time; if capacity is exhausted or nothing is
// runnable it is a no-op beyond recomputing tree status.
func (g *Graph) Run() {
	g.call(g.runLocked)
}

// runnable reports whether t has no execution and every child has a
// current successful execution.
func (g *Graph) runnableLocked(t *task) bool {
	if t.execution != nil {
		return false
	}
	for id := range t.children {
		c := g.tasks[id]
		if c.execution == nil || c.execution.versionAtDispatch != c.version() || c.execution.outcome != OutcomeSuccess {
			return false
		}
	}
	return true
}

func (g *Graph) inFlightLocked() int {
	n := 0
	for _, t := range g.tasks {
		if t.execution != nil && t.execution.outcome == OutcomeUnset {
			n++
		}
	}
	return n
}

func (g *Graph) runnableTasksLocked() []TaskID {
	ids := map[TaskID]bool{}
	for id, t := range g.tasks {
		if g.runnableLocked(t) {
			ids[id] = true
		}
	}
	return sortedIDs(ids)
}

func (g *Graph) runLocked() {
	inFlight := g.inFlightLocked()
	capacity := g.capacityLocked(inFlight)
	runnable := g.runnableTasksLocked()

	if capacity <= 0 || len(runnable) == 0 {
		g.recomputeTreeStatusLocked()
		return
	}

	g.setTreeStatusLocked(StatusRunning)

	if capacity < len(runnable) {
		runnable = runnable[:capacity]
	}
	for _, id := range runnable {
		g.dispatchLocked(id)
	}
}

func (g *Graph) capacityLocked(inFlight int) int {
	if g.jobs == JobsUnlimited {
		return 1<<31 - 1
	}
	return int(g.jobs) - inFlight
}

func (g *Graph) dispatchLocked(id TaskID) {
	t := g.tasks[id]
	ctx, cancel := context.WithCancel(context.Background())
	exec := &execution{
		id:                newExecutionID(),
		cancel:            cancel,
		versionAtDispatch: t.version(),
		outcome:           OutcomeUnset,
	}
	t.execution = exec

	// task_started is emitted before the callback runs so that even a
	// synchronous completion observes started -> finished in order.
	g.emit(Event{Kind: EventTaskStarted, TaskID: id})

	onComplete := func(success bool) {
		g.call(func() { g.completeLocked(id, exec, success) })
	}

	log.WithFields(map[string]interface{}{
		"task_id":    id,
		"execution":  exec.id,
		"generation": t.generation,
	}).Debug("dispatching task")

	go g.run(ctx, id, onComplete)
}

// completeLocked implements the at-most-once completion protocol: a call
// is ignored if the execution is gone, superseded, or already resolved.
func (g *Graph) completeLocked(id TaskID, exec *execution, success bool) {
	t, ok := g.tasks[id]
	if !ok || t.execution != exec {
		return
	}
	if exec.versionAtDispatch != t.version() {
		return
	}
	if exec.outcome != OutcomeUnset {
		return
	}
	if success {
		exec.outcome = OutcomeSuccess
	} else {
		exec.outcome = OutcomeFailure
	}
	g.emit(Event{Kind: EventTaskFinished, TaskID: id, Status: outcomeStatus(exec.outcome)})
	g.needsRun = true
	g.recomputeTreeStatusLocked()
}

func outcomeStatus(o Outcome) Status {
	if o == OutcomeSuccess {
		return StatusOK
	}
	return StatusFail
}

// TaskStatus reports the current status of a single task.
func (g *Graph) TaskStatus(id TaskID) Status {
	var s Status
	g.call(func() { s = g.taskStatusLocked(id) })
	return s
}

func (g *Graph) taskStatusLocked(id TaskID) Status {
	t, ok := g.tasks[id]
	if !ok {
		return StatusNA
	}
	if t.execution == nil {
		if g.treeStatus == StatusOK || g.treeStatus == StatusFail {
			return StatusNA
		}
		return StatusPending
	}
	switch t.execution.outcome {
	case OutcomeUnset:
		return StatusRunning
	case OutcomeSuccess:
		return StatusOK
	default:
		return StatusFail
	}
}

// TreeStatus reports the status of the scheduler as a whole.
func (g *Graph) TreeStatus() Status {
	var s Status
	g.call(func() { s = g.treeStatus })
	return s
}

func (g *Graph) recomputeTreeStatusLocked() {
	inFlight := g.inFlightLocked()
	if inFlight > 0 {
		g.setTreeStatusLocked(StatusRunning)
		return
	}
	runnable := g.runnableTasksLocked()
	if len(runnable) > 0 {
		g.setTreeStatusLocked(StatusPending)
		return
	}
	anyFailed := false
	for _, t := range g.tasks {
		if t.execution != nil && t.execution.outcome == OutcomeFailure {
			anyFailed = true
			break
		}
	}
	if anyFailed {
		g.setTreeStatusLocked(StatusFail)
	} else {
		g.setTreeStatusLocked(StatusOK)
	}
}

func (g *Graph) setTreeStatusLocked(s Status) {
	if g.treeStatus == s {
		return
	}
	g.treeStatus = s
	g.emit(Event{Kind: EventTreeStatusChanged, Status: s})
}

// TaskVersion returns the digest of (generation, subtree_sha) for id.
func (g *Graph) TaskVersion(id TaskID) Version {
	var v Version
	g.call(func() {
		if t, ok := g.tasks[id]; ok {
			v = t.version()
		}
	})
	return v
}

// TopologicalOrder returns a DFS post-order traversal over sorted roots:
// for every edge parent->child, child precedes parent.
func (g *Graph) TopologicalOrder() []TaskID {
	var order []TaskID
	g.call(func() {
		visited := map[TaskID]bool{}
		var visit func(id TaskID)
		visit = func(id TaskID) {
			if visited[id] {
				return
			}
			visited[id] = true
			t := g.tasks[id]
			for _, c := range sortedIDs(t.children) {
				visit(c)
			}
			order = append(order, id)
		}
		for _, r := range g.rootsLocked() {
			visit(r)
		}
	})
	return order
}

// BFSOrder returns a breadth-first traversal from roots, layer by layer.
func (g *Graph) BFSOrder() []TaskID {
	var order []TaskID
	g.call(func() {
		visited := map[TaskID]bool{}
		queue := append([]TaskID{}, g.rootsLocked()...)
		for _, id := range queue {
			visited[id] = true
		}
		for len(queue) > 0 {
			id := queue[0]
			queue = queue[1:]
			order = append(order, id)
			t := g.tasks[id]
			for _, c := range sortedIDs(t.children) {
				if !visited[c] {
					visited[c] = true
					queue = append(queue, c)
				}
			}
		}
	})
	return order
}
