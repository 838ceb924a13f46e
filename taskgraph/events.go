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

// EventKind tags the payload shape of an Event.
type EventKind string

const (
	EventTaskStarted       EventKind = "task_started"
	EventTaskFinished      EventKind = "task_finished"
	EventTaskReset         EventKind = "task_reset"
	EventTreeStatusChanged EventKind = "tree_status_changed"
)

// Event is the tagged union of everything the graph reports to observers.
// TaskID and Status are populated according to Kind.
type Event struct {
	Kind   EventKind
	TaskID TaskID
	Status Status
}

const eventBufferSize = 256

// emit delivers an event to every subscriber without blocking the actor
// loop. A slow subscriber drops events rather than stalling scheduling;
// this is logged once per drop so it is never silent.
func (g *Graph) emit(ev Event) {
	g.subsMu.RLock()
	defer g.subsMu.RUnlock()
	for _, ch := range g.subs {
		select {
		case ch <- ev:
		default:
			log.WithFields(map[string]interface{}{
				"kind":    ev.Kind,
				"task_id": ev.TaskID,
			}).Warn("dropping event: subscriber channel full")
		}
	}
}

// Events returns a channel of lifecycle events. The channel is closed when
// the graph is closed. Callers that care about every event should drain it
// promptly; see emit for the drop policy under backpressure.
func (g *Graph) Events() <-chan Event {
	g.subsMu.Lock()
	defer g.subsMu.Unlock()
	ch := make(chan Event, eventBufferSize)
	g.subs = append(g.subs, ch)
	return ch
}
