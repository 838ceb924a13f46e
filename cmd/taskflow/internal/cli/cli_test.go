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
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-quicktest/qt"
)

func writeConfig(t *testing.T, dir, name, declaration string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	script := fmt.Sprintf("#!/bin/sh\n"+
		"if [ \"$TASKFLOW_RUNNER_MODE\" = introspect ]; then\n"+
		"  printf '%%s' '%s'\n"+
		"else\n"+
		"  echo task-done >&3\n"+
		"fi\n", declaration)
	qt.Assert(t, qt.IsNil(os.WriteFile(path, []byte(script), 0o755)))
	return path
}

func TestGraphCommandListsEveryProject(t *testing.T) {
	dir := t.TempDir()
	dep := writeConfig(t, dir, "dep.taskflow.sh", `{}`)
	root := writeConfig(t, dir, "root.taskflow.sh", `{"deps":["dep.taskflow.sh"]}`)

	cmd := New()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"graph", root, dep})

	qt.Assert(t, qt.IsNil(cmd.Execute()))
	qt.Assert(t, qt.StringContains(out.String(), root))
	qt.Assert(t, qt.StringContains(out.String(), dep))
}

func TestGraphCommandBFSFlagListsOnePathPerLine(t *testing.T) {
	dir := t.TempDir()
	script := writeConfig(t, dir, "a.taskflow.sh", `{}`)

	cmd := New()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"graph", "--bfs", script})

	qt.Assert(t, qt.IsNil(cmd.Execute()))
	qt.Assert(t, qt.Equals(out.String(), script+"\n"))
}

func TestGraphCommandReportsCycles(t *testing.T) {
	dir := t.TempDir()
	a := writeConfig(t, dir, "a.taskflow.sh", `{"deps":["b.taskflow.sh"]}`)
	_ = writeConfig(t, dir, "b.taskflow.sh", `{"deps":["a.taskflow.sh"]}`)

	cmd := New()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"graph", a})

	err := cmd.Execute()
	qt.Assert(t, qt.IsNotNil(err))
	qt.Assert(t, qt.StringContains(err.Error(), "cycle"))
}
