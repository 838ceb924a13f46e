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

// Package digest computes the short content digests used as task versions
// and subtree fingerprints. It has no dependents outside this module and
// exists as its own package so that every digest taskgraph computes shares
// one definition of "what a digest looks like" (truncation and encoding).
package digest

import (
	"crypto/sha256"
	"encoding/hex"
)

// shortLen is the number of hex characters kept from the full sha256 sum.
// 16 hex chars (64 bits) is ample to avoid accidental collisions across the
// handful of tasks a single workspace declares, while keeping version
// strings short enough to log and compare by eye.
const shortLen = 16

// String returns a short, stable digest of s.
func String(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:shortLen]
}

// Strings digests the concatenation of parts, each separated so that
// Strings("ab", "c") and Strings("a", "bc") never collide.
func Strings(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte{0})
		h.Write([]byte(p))
	}
	sum := h.Sum(nil)
	return hex.EncodeToString(sum)[:shortLen]
}
