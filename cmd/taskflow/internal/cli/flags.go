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

package cli

import (
	"os"

	"github.com/spf13/pflag"

	"github.com/taskflow/taskflow/cmd/taskflow/internal/settings"
	"github.com/taskflow/taskflow/taskgraph"
)

// flags shared across the root command and its subcommands.
type flags struct {
	jobs        int
	watch       bool
	interpreter string
	config      string

	nodeOptions []string
}

func addGlobalFlags(fs *pflag.FlagSet, f *flags) {
	fs.IntVar(&f.jobs, "jobs", 0, "maximum number of tasks to run concurrently (0 means unlimited)")
	fs.BoolVar(&f.watch, "watch", false, "keep running and re-run tasks affected by filesystem changes")
	fs.StringVar(&f.interpreter, "interpreter", "", "run configurations through this interpreter instead of executing them directly")
	fs.StringVar(&f.config, "config", "taskflow.yaml", "path to an optional defaults file")
}

// applySettings loads f.config, if present, and fills in any of
// jobs/watch/interpreter/nodeOptions the caller did not set explicitly on
// the command line.
func applySettings(fs *pflag.FlagSet, f *flags) error {
	s, err := settings.Load(f.config)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if !fs.Changed("jobs") && s.Jobs != 0 {
		f.jobs = s.Jobs
	}
	if !fs.Changed("watch") && s.Watch {
		f.watch = s.Watch
	}
	if !fs.Changed("interpreter") && s.Interpreter != "" {
		f.interpreter = s.Interpreter
	}
	f.nodeOptions = s.NodeOptions
	return nil
}

func jobsFromFlag(n int) taskgraph.Jobs {
	if n <= 0 {
		return taskgraph.JobsUnlimited
	}
	return taskgraph.Jobs(n)
}
