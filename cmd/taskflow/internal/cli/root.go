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

// Package cli assembles the taskflow command-line front end on top of the
// workspace engine.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// New builds the top-level "taskflow" command.
func New() *cobra.Command {
	f := &flags{}

	root := &cobra.Command{
		Use:   "taskflow [root-config...]",
		Short: "run dependency-ordered development tasks",
		Long: `taskflow discovers a tree of task configurations starting from the
given root paths, follows their declared dependencies, and runs them in
order. With --watch it stays up and re-runs whatever a filesystem change
affects.`,
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := applySettings(cmd.Flags(), f); err != nil {
				return err
			}
			return runWorkspace(cmd, args, f)
		},
	}

	addGlobalFlags(root.PersistentFlags(), f)
	root.AddCommand(newGraphCmd(f))

	return root
}

// Main runs the command built from os.Args and returns the code to pass to
// os.Exit, so tests can drive it without a real process exit.
func Main() int {
	if err := New().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "taskflow:", err)
		return 1
	}
	return 0
}
