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
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/taskflow/taskflow/configloader"
	"github.com/taskflow/taskflow/workspace"
)

// newGraphCmd is a read-only introspection command: it discovers the
// configuration graph from the given roots and prints its order without
// running anything.
func newGraphCmd(f *flags) *cobra.Command {
	var bfs bool

	cmd := &cobra.Command{
		Use:   "graph [root-config...]",
		Short: "print the discovered task graph's order",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := applySettings(cmd.Flags(), f); err != nil {
				return err
			}
			w := workspace.New(workspace.Options{
				Roots:        args,
				Jobs:         jobsFromFlag(f.jobs),
				Probe:        configloader.ExecProbe(f.interpreter),
				DiscoverOnly: true,
			})
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				w.Stop(ctx)
			}()

			if !waitForDiscovered(cmd.Context(), w) {
				return fmt.Errorf("configuration discovery did not settle: %s", w.WorkspaceError())
			}
			if w.WorkspaceStatus() == workspace.StatusError {
				return errors.New(w.WorkspaceError())
			}

			projects := w.BFSProjects()
			if bfs {
				for _, p := range projects {
					fmt.Fprintln(cmd.OutOrStdout(), p.ConfigPath())
				}
				return nil
			}
			for i, p := range projects {
				deps := w.DirectDependencies(p)
				names := make([]string, len(deps))
				for j, d := range deps {
					names[j] = d.ConfigPath()
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d. %s %v\n", i+1, p.ConfigPath(), names)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&bfs, "bfs", false, "print breadth-first order only, one path per line")
	return cmd
}

// waitForDiscovered blocks until the initial configuration read has
// produced either a ready workspace or an error.
func waitForDiscovered(ctx context.Context, w *workspace.Workspace) bool {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if w.WorkspaceStatus() == workspace.StatusError || len(w.BFSProjects()) > 0 {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(20 * time.Millisecond):
		}
	}
	return false
}
