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

// EventKind tags the events a Workspace and its Projects emit.
type EventKind string

const (
	EventProjectAdded           EventKind = "project_added"
	EventProjectRemoved         EventKind = "project_removed"
	EventProjectsChanged        EventKind = "projects_changed"
	EventWorkspaceStatusChanged EventKind = "workspace_status_changed"
	EventBuildStatusChanged     EventKind = "build_status_changed"
	EventBuildStdout            EventKind = "build_stdout"
	EventBuildStderr            EventKind = "build_stderr"
	EventPIDChanged             EventKind = "pid_changed"
)

// Event is a single notification. Only the fields relevant to Kind are
// populated; the rest are zero.
type Event struct {
	Kind            EventKind
	ConfigPath      string // identifies the Project the event concerns, if any
	Text            string // build_stdout / build_stderr payload
	PID             int    // pid_changed payload; 0 means "no longer running"
	WorkspaceStatus Status
}

const eventBufferSize = 256

func (w *Workspace) emit(ev Event) {
	w.subsMu.RLock()
	defer w.subsMu.RUnlock()
	for _, ch := range w.subs {
		select {
		case ch <- ev:
		default:
			log.WithField("kind", ev.Kind).Warn("dropping workspace event, subscriber too slow")
		}
	}
}

// Events subscribes to the workspace's event stream. The returned channel
// is closed when Stop completes.
func (w *Workspace) Events() <-chan Event {
	w.subsMu.Lock()
	defer w.subsMu.Unlock()
	ch := make(chan Event, eventBufferSize)
	w.subs = append(w.subs, ch)
	return ch
}
