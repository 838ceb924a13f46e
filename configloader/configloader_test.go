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

package configloader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-quicktest/qt"

	"github.com/taskflow/taskflow/internal/procutil"
)

// fakeProbe maps an absolute config path to the JSON stdout line its probe
// would print; anything not in the map fails with a non-zero exit.
func fakeProbe(t *testing.T, probes map[string]string) ProbeFunc {
	return func(ctx context.Context, configPath string) (procutil.CollectedOutput, error) {
		stdout, ok := probes[configPath]
		if !ok {
			return procutil.CollectedOutput{ExitCode: 1, Stderr: "no such config", Combined: "no such config"}, nil
		}
		return procutil.CollectedOutput{ExitCode: 0, Stdout: stdout}, nil
	}
}

func touch(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	qt.Assert(t, qt.IsNil(os.WriteFile(path, nil, 0o644)))
	return path
}

func TestLoadResolvesRelativePathsAndStringOrSlice(t *testing.T) {
	dir := t.TempDir()
	root := touch(t, dir, "a.taskflow.js")

	probes := map[string]string{
		root: `{"name":"a","watch":"src","ignore":["node_modules"],"deps":[]}`,
	}
	results, err := Load(context.Background(), []string{root}, fakeProbe(t, probes))
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.HasLen(results, 1))

	res := results[root]
	qt.Assert(t, qt.IsNil(res.Error))
	qt.Assert(t, qt.Equals(res.Config.Name, "a"))
	qt.Assert(t, qt.DeepEquals(res.Config.Watch, []string{filepath.Join(dir, "src")}))
	qt.Assert(t, qt.DeepEquals(res.Config.Ignore, []string{filepath.Join(dir, "node_modules")}))
}

func TestLoadFollowsDepsClosure(t *testing.T) {
	dir := t.TempDir()
	root := touch(t, dir, "root.taskflow.js")
	dep := touch(t, dir, "dep.taskflow.js")

	probes := map[string]string{
		root: `{"deps":"dep.taskflow.js"}`,
		dep:  `{}`,
	}
	results, err := Load(context.Background(), []string{root}, fakeProbe(t, probes))
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.HasLen(results, 2))
	qt.Assert(t, qt.IsNil(results[dep].Error))
}

func TestLoadNonExistentRootIsAFriendlyError(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "missing.taskflow.js")

	results, err := Load(context.Background(), []string{missing}, fakeProbe(t, nil))
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.IsNotNil(results[missing].Error))
}

func TestLoadNonZeroProbeExitIncludesCombinedOutput(t *testing.T) {
	dir := t.TempDir()
	root := touch(t, dir, "bad.taskflow.js")

	probe := func(ctx context.Context, configPath string) (procutil.CollectedOutput, error) {
		return procutil.CollectedOutput{ExitCode: 7, Combined: "boom"}, nil
	}
	results, err := Load(context.Background(), []string{root}, probe)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.IsNotNil(results[root].Error))
	qt.Assert(t, qt.StringContains(results[root].Error.Error(), "boom"))
}

func TestLoadDedupesSharedDeps(t *testing.T) {
	dir := t.TempDir()
	a := touch(t, dir, "a.taskflow.js")
	b := touch(t, dir, "b.taskflow.js")
	shared := touch(t, dir, "shared.taskflow.js")

	probes := map[string]string{
		a:      `{"deps":["shared.taskflow.js"]}`,
		b:      `{"deps":["shared.taskflow.js"]}`,
		shared: `{}`,
	}
	results, err := Load(context.Background(), []string{a, b}, fakeProbe(t, probes))
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.HasLen(results, 3))
}
