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

// Package settings reads the optional human-edited defaults file a
// workspace can carry (taskflow.yaml by convention) so that --jobs/--watch
// don't have to be repeated on every invocation. Command-line flags that
// were explicitly set always win over what this file declares.
package settings

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Settings is the shape of the on-disk defaults file.
type Settings struct {
	Jobs        int      `yaml:"jobs"`
	Watch       bool     `yaml:"watch"`
	Interpreter string   `yaml:"interpreter"`
	NodeOptions []string `yaml:"node_options"`
}

// Load reads and parses path. A missing file is returned as the underlying
// read error; callers that treat a missing file as "no settings" check
// os.IsNotExist on it to tell that case apart from a malformed file.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("settings: parse %s: %w", path, err)
	}
	return &s, nil
}
