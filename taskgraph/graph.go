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

import (
	"fmt"
	"sync"

	"github.com/taskflow/taskflow/internal/digest"
	"github.com/taskflow/taskflow/internal/multimap"
)

// Jobs describes the graph's parallelism budget. Use JobsUnlimited for "no
// cap".
type Jobs int

const JobsUnlimited Jobs = -1

// Graph is the scheduling kernel. All mutating operations are serialized
// through a single actor goroutine so that the invariants in spec.md §3
// hold without requiring callers to take any lock themselves; the only
// true parallelism is the run callback itself, which executes on its own
// goroutine per dispatched task.
type Graph struct {
	jobs Jobs
	run  RunCallback

	cmds   chan func()
	closed chan struct{}
	wg     sync.WaitGroup

	subsMu sync.RWMutex
	subs   []chan Event

	// actor-owned state; only ever touched from the loop goroutine.
	tasks      map[TaskID]*task
	treeStatus Status
	needsRun   bool
}

// New creates a Graph with the given parallelism budget and run callback.
// The callback must not be nil; it is the caller's responsibility to know
// how to execute a task given only its id.
func New(jobs Jobs, cb RunCallback) *Graph {
	g := &Graph{
		jobs:       jobs,
		run:        cb,
		cmds:       make(chan func()),
		closed:     make(chan struct{}),
		tasks:      map[TaskID]*task{},
		treeStatus: StatusOK,
	}
	g.wg.Add(1)
	go g.loop()
	return g
}

// Close stops the actor loop. Pending executions are not cancelled; call
// ResetAllTasks first if that is required.
func (g *Graph) Close() {
	close(g.closed)
	g.wg.Wait()
	g.subsMu.Lock()
	for _, ch := range g.subs {
		close(ch)
	}
	g.subs = nil
	g.subsMu.Unlock()
}

// loop is the single-threaded cooperative core: one goroutine draining
// commands, running the deferred scheduling pass between commands rather
// than recursively within one, exactly the re-entrancy discipline spec.md
// §5 requires of run().
func (g *Graph) loop() {
	defer g.wg.Done()
	for {
		select {
		case <-g.closed:
			return
		case cmd := <-g.cmds:
			cmd()
			for g.needsRun {
				g.needsRun = false
				g.runLocked()
			}
		}
	}
}

// call posts fn onto the actor loop and blocks until it has run.
func (g *Graph) call(fn func()) {
	done := make(chan struct{})
	select {
	case g.cmds <- func() { fn(); close(done) }:
		<-done
	case <-g.closed:
	}
}

// SetTasks atomically replaces the adjacency. adj maps a task to its direct
// dependencies (children). Rejects cyclic input with no change made.
func (g *Graph) SetTasks(adj *multimap.Multimap[TaskID, TaskID]) error {
	var err error
	g.call(func() {
		err = g.setTasksLocked(adj)
	})
	return err
}

func (g *Graph) setTasksLocked(adj *multimap.Multimap[TaskID, TaskID]) error {
	all := map[TaskID]bool{}
	for _, k := range adj.Keys() {
		all[k] = true
		for _, v := range adj.GetAll(k) {
			all[v] = true
		}
	}

	if cycle := detectCycle(all, adj); cycle != nil {
		return &CycleError{Cycle: cycle}
	}

	// Build fresh parent/child sets.
	next := make(map[TaskID]*task, len(all))
	for id := range all {
		if old, ok := g.tasks[id]; ok {
			next[id] = &task{id: id, generation: old.generation, execution: old.execution}
		} else {
			next[id] = &task{id: id}
		}
		next[id].children = map[TaskID]bool{}
		next[id].parents = map[TaskID]bool{}
	}
	for _, k := range adj.Keys() {
		for _, v := range adj.GetAll(k) {
			next[k].children[v] = true
			next[v].parents[k] = true
		}
	}

	// Cancel executions of tasks that disappeared.
	for id, old := range g.tasks {
		if _, ok := next[id]; !ok {
			g.cancelExecution(old)
		}
	}

	g.tasks = next

	// Recompute subtree_sha by post-order DFS over sorted roots; any task
	// whose digest changes loses its execution.
	roots := g.rootsLocked()
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
		childDigests := make([]string, 0, len(t.children))
		for _, c := range sortedIDs(t.children) {
			childDigests = append(childDigests, string(c)+":"+g.tasks[c].subtreeSHA)
		}
		sha := digest.Strings(string(id), fmt.Sprintf("%v", childDigests))
		if t.subtreeSHA != "" && t.subtreeSHA != sha {
			g.cancelExecution(t)
		}
		t.subtreeSHA = sha
	}
	for _, r := range roots {
		visit(r)
	}
	// Any task whose version no longer matches its execution's recorded
	// version loses that execution (covers generation carried over from
	// the previous graph together with an unchanged shape).
	for _, t := range g.tasks {
		if t.execution != nil && t.execution.versionAtDispatch != t.version() {
			g.cancelExecution(t)
		}
	}

	g.recomputeTreeStatusLocked()
	return nil
}

// Children returns id's direct dependencies, sorted. Empty if id is unknown.
func (g *Graph) Children(id TaskID) []TaskID {
	var out []TaskID
	g.call(func() {
		if t, ok := g.tasks[id]; ok {
			out = sortedIDs(t.children)
		}
	})
	return out
}

// Parents returns the tasks that directly depend on id, sorted. Empty if
// id is unknown.
func (g *Graph) Parents(id TaskID) []TaskID {
	var out []TaskID
	g.call(func() {
		if t, ok := g.tasks[id]; ok {
			out = sortedIDs(t.parents)
		}
	})
	return out
}

// rootsLocked returns tasks with no parents, sorted by id.
func (g *Graph) rootsLocked() []TaskID {
	roots := map[TaskID]bool{}
	for id, t := range g.tasks {
		if len(t.parents) == 0 {
			roots[id] = true
		}
	}
	return sortedIDs(roots)
}

// cancelExecution fires the cancel token (if any) and emits task_reset. Idempotent.
func (g *Graph) cancelExecution(t *task) {
	if t.execution == nil {
		return
	}
	t.execution.cancel()
	t.execution = nil
	g.emit(Event{Kind: EventTaskReset, TaskID: t.id})
}

// MarkChanged bumps the generation of id and every ancestor, cancelling any
// in-flight execution for each.
func (g *Graph) MarkChanged(id TaskID) {
	g.call(func() { g.markChangedLocked(id) })
}

func (g *Graph) markChangedLocked(id TaskID) {
	t, ok := g.tasks[id]
	if !ok {
		return
	}
	visited := map[TaskID]bool{}
	var bump func(id TaskID)
	bump = func(id TaskID) {
		if visited[id] {
			return
		}
		visited[id] = true
		cur := g.tasks[id]
		cur.generation++
		g.cancelExecution(cur)
		for _, p := range sortedIDs(cur.parents) {
			bump(p)
		}
	}
	_ = t
	bump(id)
	g.recomputeTreeStatusLocked()
}

// ResetAllTasks cancels every in-flight execution. Idempotent: calling it
// twice in a row emits no duplicate events.
func (g *Graph) ResetAllTasks() {
	g.call(func() {
		for _, t := range g.tasks {
			g.cancelExecution(t)
		}
		g.recomputeTreeStatusLocked()
	})
}

// Clear removes every task, equivalent to SetTasks with an empty adjacency.
func (g *Graph) Clear() {
	g.call(func() {
		_ = g.setTasksLocked(multimap.New[TaskID, TaskID]())
	})
}

// detectCycle performs a depth-first search that keeps the current path on
// an explicit stack; on revisiting a node already on the stack it returns
// the stack slice from that node's first index, which is exactly a rotation
// of the cycle. The traversal is recursive, not iterative, so its call depth
// grows with the longest dependency chain. A
// graph consisting entirely of a cycle (no roots) is still detected since
// every node is eventually visited as a DFS start point.
func detectCycle(all map[TaskID]bool, adj *multimap.Multimap[TaskID, TaskID]) []TaskID {
	const (
		unvisited = 0
		onStack   = 1
		done      = 2
	)
	state := make(map[TaskID]int, len(all))
	var stack []TaskID

	ids := make([]TaskID, 0, len(all))
	for id := range all {
		ids = append(ids, id)
	}
	sortTaskIDs(ids)

	var visit func(id TaskID) []TaskID
	visit = func(id TaskID) []TaskID {
		state[id] = onStack
		stack = append(stack, id)

		children := adj.GetAll(id)
		sortTaskIDs(children)
		for _, c := range children {
			switch state[c] {
			case unvisited:
				if cyc := visit(c); cyc != nil {
					return cyc
				}
			case onStack:
				for i, s := range stack {
					if s == c {
						cyc := make([]TaskID, len(stack)-i)
						copy(cyc, stack[i:])
						return cyc
					}
				}
			}
		}

		stack = stack[:len(stack)-1]
		state[id] = done
		return nil
	}

	for _, id := range ids {
		if state[id] == unvisited {
			if cyc := visit(id); cyc != nil {
				return cyc
			}
		}
	}
	return nil
}

func sortTaskIDs(ids []TaskID) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
}
