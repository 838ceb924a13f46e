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

// Command introspect is a reference task configuration: a stand-in a real
// configuration (a shell script, a node program, whatever a project uses)
// would implement itself. It is not part of the engine; it exists so the
// engine has something real to spawn end to end instead of only an
// in-process fake probe.
//
// Under TASKFLOW_RUNNER_MODE=introspect it prints its declaration (read
// from a sibling "<config>.json" file, or "{}" if absent) to stdout and
// exits zero. Under any other mode it announces completion on fd 3, the
// same sentinel a real task is expected to write, and exits zero.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "introspect:", err)
		os.Exit(1)
	}
}

func run() error {
	switch os.Getenv("TASKFLOW_RUNNER_MODE") {
	case "introspect":
		return printDeclaration()
	default:
		return announceDone()
	}
}

// printDeclaration prints the contents of argv[0]+".json" verbatim, or an
// empty declaration if that sidecar file does not exist.
func printDeclaration() error {
	if len(os.Args) == 0 {
		_, err := fmt.Println("{}")
		return err
	}
	data, err := os.ReadFile(os.Args[0] + ".json")
	if os.IsNotExist(err) {
		_, err := fmt.Println("{}")
		return err
	}
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}

// announceDone writes the task-done sentinel on fd 3, matching the fd the
// engine wires up via exec.Cmd.ExtraFiles, then exits.
func announceDone() error {
	fd3 := os.NewFile(3, "sentinel")
	if fd3 == nil {
		return nil
	}
	defer fd3.Close()
	_, err := fmt.Fprintln(fd3, "task-done")
	return err
}
