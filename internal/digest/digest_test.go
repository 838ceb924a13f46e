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

package digest

import (
	"testing"

	"github.com/go-quicktest/qt"
)

func TestStringIsStableAndSensitive(t *testing.T) {
	qt.Assert(t, qt.Equals(String("a"), String("a")))
	qt.Assert(t, qt.Not(qt.Equals(String("a"), String("b"))))
}

func TestStringsAvoidsConcatenationCollision(t *testing.T) {
	qt.Assert(t, qt.Not(qt.Equals(Strings("ab", "c"), Strings("a", "bc"))))
}

func TestStringsOrderSensitive(t *testing.T) {
	qt.Assert(t, qt.Not(qt.Equals(Strings("a", "b"), Strings("b", "a"))))
}
