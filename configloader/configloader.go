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

// Package configloader discovers the transitive graph of configuration
// files reachable from a set of roots. Each configuration is probed by
// spawning it in a mode where it prints its own declared options instead of
// doing real work; configloader never executes a configuration's real
// build, that is workspace's job once the graph is known.
package configloader

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/taskflow/taskflow/internal/procutil"
)

// ProbeFunc runs one configuration's probe and returns its combined output.
// Production code wires this to procutil.RunAndCollect against the
// configuration's own interpreter/runtime; tests can substitute a fake.
type ProbeFunc func(ctx context.Context, configPath string) (procutil.CollectedOutput, error)

// Config is one configuration's declared options, with every path field
// already resolved to an absolute path.
type Config struct {
	Name   string
	Watch  []string
	Ignore []string
	Deps   []string
}

// Result is what the loader knows about one configuration path: either a
// resolved Config, or an Error describing why it could not be loaded. Both
// are never set together.
type Result struct {
	ConfigPath string
	Config     *Config
	Error      error
}

// declaredOptions is the wire shape a probe prints as a single line of
// JSON. Each of watch/ignore/deps accepts either a bare string or an array
// of strings; json.RawMessage defers the decode until normalizeStrings
// knows which shape it got.
type declaredOptions struct {
	Name   string          `json:"name"`
	Watch  json.RawMessage `json:"watch"`
	Ignore json.RawMessage `json:"ignore"`
	Deps   json.RawMessage `json:"deps"`
}

func normalizeStrings(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		if single == "" {
			return nil, nil
		}
		return []string{single}, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("configloader: field is neither a string nor a string array: %w", err)
	}
	return list, nil
}

// Load probes every root and its transitive deps closure, in parallel up to
// runtime.NumCPU() concurrent probes, and returns one Result per absolute
// configuration path discovered.
func Load(ctx context.Context, roots []string, probe ProbeFunc) (map[string]Result, error) {
	results := make(map[string]Result)
	pending := make(map[string]bool)
	var order []string

	for _, r := range roots {
		abs, err := filepath.Abs(r)
		if err != nil {
			return nil, fmt.Errorf("configloader: resolve root %q: %w", r, err)
		}
		if !pending[abs] {
			pending[abs] = true
			order = append(order, abs)
		}
	}

	for len(order) > 0 {
		batch := order
		order = nil

		loaded, err := loadBatch(ctx, batch, probe)
		if err != nil {
			return nil, err
		}
		for path, res := range loaded {
			results[path] = res
			if res.Config == nil {
				continue
			}
			for _, dep := range res.Config.Deps {
				if !pending[dep] {
					pending[dep] = true
					order = append(order, dep)
				}
			}
		}
	}

	return results, nil
}

func loadBatch(ctx context.Context, paths []string, probe ProbeFunc) (map[string]Result, error) {
	out := make(map[string]Result, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	type pair struct {
		path string
		res  Result
	}
	resultsCh := make(chan pair, len(paths))

	for _, p := range paths {
		p := p
		g.Go(func() error {
			resultsCh <- pair{path: p, res: loadOne(gctx, p, probe)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	close(resultsCh)
	for pr := range resultsCh {
		out[pr.path] = pr.res
	}
	return out, nil
}

func loadOne(ctx context.Context, path string, probe ProbeFunc) Result {
	if _, err := os.Stat(path); err != nil {
		return Result{ConfigPath: path, Error: fmt.Errorf("configloader: configuration %q does not exist: %w", path, err)}
	}

	collected, err := probe(ctx, path)
	if err != nil {
		return Result{ConfigPath: path, Error: fmt.Errorf("configloader: probing %q: %w", path, err)}
	}
	if collected.ExitCode != 0 {
		return Result{ConfigPath: path, Error: fmt.Errorf("configloader: probe for %q exited with code=%d:\n%s", path, collected.ExitCode, collected.Combined)}
	}

	var decl declaredOptions
	if err := json.Unmarshal([]byte(collected.Stdout), &decl); err != nil {
		return Result{ConfigPath: path, Error: fmt.Errorf("configloader: parsing declared options for %q: %w", path, err)}
	}

	dir := filepath.Dir(path)
	cfg, err := resolveConfig(dir, decl)
	if err != nil {
		return Result{ConfigPath: path, Error: fmt.Errorf("configloader: %q: %w", path, err)}
	}
	return Result{ConfigPath: path, Config: cfg}
}

func resolveConfig(dir string, decl declaredOptions) (*Config, error) {
	watch, err := normalizeStrings(decl.Watch)
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	ignore, err := normalizeStrings(decl.Ignore)
	if err != nil {
		return nil, fmt.Errorf("ignore: %w", err)
	}
	deps, err := normalizeStrings(decl.Deps)
	if err != nil {
		return nil, fmt.Errorf("deps: %w", err)
	}

	return &Config{
		Name:   decl.Name,
		Watch:  resolveAll(dir, watch),
		Ignore: resolveAll(dir, ignore),
		Deps:   resolveAll(dir, deps),
	}, nil
}

func resolveAll(dir string, paths []string) []string {
	if paths == nil {
		return nil
	}
	out := make([]string, len(paths))
	for i, p := range paths {
		if filepath.IsAbs(p) {
			out[i] = p
		} else {
			out[i] = filepath.Join(dir, p)
		}
	}
	return out
}
