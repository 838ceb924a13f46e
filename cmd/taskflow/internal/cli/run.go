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
	"fmt"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/taskflow/taskflow/configloader"
	"github.com/taskflow/taskflow/workspace"
)

func runWorkspace(cmd *cobra.Command, roots []string, f *flags) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	w := workspace.New(workspace.Options{
		Roots:       roots,
		Jobs:        jobsFromFlag(f.jobs),
		WatchMode:   f.watch,
		Probe:       configloader.ExecProbe(f.interpreter),
		NodeOptions: f.nodeOptions,
	})

	if f.watch {
		fmt.Fprintln(cmd.OutOrStdout(), "watching for changes, press ctrl-c to stop")
		<-ctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		w.Stop(stopCtx)
		return nil
	}

	waitForSettled(ctx, w)
	printSummary(cmd, w)
	status := w.WorkspaceStatus()

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	w.Stop(stopCtx)

	if status != workspace.StatusOK {
		return fmt.Errorf("run finished with status %q", status)
	}
	return nil
}

// waitForSettled blocks until the workspace is in error, or configuration
// discovery has produced at least one project and the tree status has left
// "pending" and "running"; or until ctx is cancelled.
func waitForSettled(ctx context.Context, w *workspace.Workspace) {
	events := w.Events()
	for {
		switch w.WorkspaceStatus() {
		case workspace.StatusError:
			return
		case workspace.StatusOK, workspace.StatusFail:
			if len(w.BFSProjects()) > 0 {
				return
			}
		}
		select {
		case <-ctx.Done():
			return
		case _, ok := <-events:
			if !ok {
				return
			}
		case <-time.After(200 * time.Millisecond):
		}
	}
}

// printSummary prints one line per project in breadth-first order from the
// roots: its configuration path, final status, and how long its last
// execution took.
func printSummary(cmd *cobra.Command, w *workspace.Workspace) {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
	defer tw.Flush()
	fmt.Fprintln(tw, "CONFIG\tSTATUS\tDURATION")
	for _, p := range w.BFSProjects() {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", p.ConfigPath(), w.ProjectStatus(p), p.Duration().Round(time.Millisecond))
	}
}
