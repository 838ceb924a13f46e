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

// Package taskgraph implements the scheduling kernel of the task runner: a
// directed acyclic graph of tasks with version-tracked incremental
// re-execution. It owns no child processes and knows nothing about the
// filesystem; callers supply a RunCallback that knows how to execute one
// task and report back.
package taskgraph

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/taskflow/taskflow/internal/digest"
)

// TaskID is an opaque stable identifier for a task. In practice this is the
// absolute path of the task's configuration file.
type TaskID string

// Status is the lifecycle state of a task or of the tree as a whole.
type Status string

const (
	StatusNA      Status = "n/a"
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusOK      Status = "ok"
	StatusFail    Status = "fail"
)

// Outcome is the terminal result of a finished execution.
type Outcome int

const (
	OutcomeUnset Outcome = iota
	OutcomeSuccess
	OutcomeFailure
)

// Version fingerprints a task's (generation, subtree_sha) pair. Two
// executions compare equal iff dispatched against an identical version.
type Version string

// CycleError is returned by SetTasks when the proposed adjacency contains a
// cycle. Cycle is a rotation of the offending loop, e.g. [n1, n2, n3] for
// n1->n2->n3->n1.
type CycleError struct {
	Cycle []TaskID
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle detected: %v", e.Cycle)
}

// OnComplete reports the outcome of a dispatched execution back to the
// graph. It is effective at most once per execution; further calls are
// silently ignored.
type OnComplete func(success bool)

// RunCallback is invoked by the graph to request execution of one task. The
// graph does not know how to run a task; that is the caller's job. ctx is
// cancelled when the execution must be abandoned (version change, graph
// mutation, or explicit reset).
type RunCallback func(ctx context.Context, id TaskID, onComplete OnComplete)

// task is the internal record owned by the graph. All cross references
// (parents/children) are by id, never by pointer, since the graph forms
// cycles of back-references that a Go GC has no trouble with but that are
// easier to reason about, audit and log when kept id-keyed.
type task struct {
	id       TaskID
	parents  map[TaskID]bool
	children map[TaskID]bool

	generation int
	subtreeSHA string

	execution *execution
}

type execution struct {
	id                string
	cancel            context.CancelFunc
	versionAtDispatch Version
	outcome           Outcome
}

func (t *task) version() Version {
	return Version(digest.Strings(fmt.Sprintf("%d", t.generation), t.subtreeSHA))
}

// sortedIDs returns ids sorted for canonical ordering.
func sortedIDs(ids map[TaskID]bool) []TaskID {
	out := make([]TaskID, 0, len(ids))
	for id := range ids {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func newExecutionID() string {
	return uuid.NewString()
}

var log = logrus.WithField("component", "taskgraph")
