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

	"github.com/fsnotify/fsnotify"
)

// rearmWatcher replaces p's filesystem watcher with one covering its
// current watch list, its own config path, and the conventional manifest
// siblings, applying the configuration's ignore patterns. Called with
// w.mu held by reconcileProjects.
func (w *Workspace) rearmWatcher(p *Project) {
	p.closeWatcher()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.WithError(err).WithField("config_path", p.ConfigPath()).Warn("could not create filesystem watcher")
		return
	}

	ignore := ignoreSet(p.ignorePaths())
	for _, path := range p.watchPaths() {
		if ignore[path] {
			continue
		}
		if err := watcher.Add(path); err != nil {
			log.WithError(err).WithField("path", path).Debug("could not watch path, it may not exist yet")
		}
	}

	p.mu.Lock()
	p.watcher = watcher
	p.mu.Unlock()

	go w.watchLoop(p, watcher)
}

func (w *Workspace) watchLoop(p *Project, watcher *fsnotify.Watcher) {
	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			w.onFileChanged(p, ev.Name)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.WithError(err).WithField("config_path", p.ConfigPath()).Debug("filesystem watcher error")
		}
	}
}

func (w *Workspace) onFileChanged(p *Project, changedPath string) {
	rereadConfigs := filepath.Clean(changedPath) == filepath.Clean(p.ConfigPath())
	w.ScheduleUpdate(p, rereadConfigs)
}

func (p *Project) closeWatcher() {
	p.mu.Lock()
	watcher := p.watcher
	p.watcher = nil
	p.mu.Unlock()
	if watcher != nil {
		_ = watcher.Close()
	}
}

func ignoreSet(paths []string) map[string]bool {
	set := make(map[string]bool, len(paths))
	for _, p := range paths {
		set[p] = true
	}
	return set
}
