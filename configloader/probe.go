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
	"path/filepath"

	"github.com/taskflow/taskflow/internal/procutil"
)

// RunnerModeEnv is set on a probe's environment to tell a configuration it
// should print its declared options and exit, rather than run for real.
const RunnerModeEnv = "TASKFLOW_RUNNER_MODE=introspect"

// ExecProbe returns a ProbeFunc that runs configPath itself (relying on its
// shebang, as the real execution in workspace.runProject does) with the
// introspection environment variable set, collecting combined output. An
// empty interpreter execs configPath directly; a non-empty one (a fixed
// runtime like "node") is run against configPath as its sole argument, for
// configurations whose execute bit can't be relied on.
func ExecProbe(interpreter string) ProbeFunc {
	return func(ctx context.Context, configPath string) (procutil.CollectedOutput, error) {
		dir := filepath.Dir(configPath)
		if interpreter == "" {
			return procutil.RunAndCollectEnv(ctx, dir, []string{RunnerModeEnv}, configPath)
		}
		return procutil.RunAndCollectEnv(ctx, dir, []string{RunnerModeEnv}, interpreter, configPath)
	}
}
