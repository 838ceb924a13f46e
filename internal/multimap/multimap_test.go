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

package multimap

import (
	"sort"
	"testing"

	"github.com/go-quicktest/qt"
)

func TestInsertAbsorbsDuplicates(t *testing.T) {
	mm := New[string, string]()
	mm.Insert("a", "x")
	mm.Insert("a", "x")
	mm.Insert("a", "y")
	qt.Assert(t, qt.IsTrue(mm.Has("a", "x")))
	qt.Assert(t, qt.HasLen(mm.GetAll("a"), 2))
}

func TestInsertAll(t *testing.T) {
	mm := New[string, int]()
	mm.InsertAll("a", []int{1, 2, 2, 3})
	got := mm.GetAll("a")
	sort.Ints(got)
	qt.Assert(t, qt.DeepEquals(got, []int{1, 2, 3}))
}

func TestFrom(t *testing.T) {
	mm := From([]Entry[string, string]{
		{Key: "a", Values: []string{"x", "y"}},
		{Key: "b", Values: []string{"z"}},
	})
	keys := mm.Keys()
	sort.Strings(keys)
	qt.Assert(t, qt.DeepEquals(keys, []string{"a", "b"}))
}

func TestDelete(t *testing.T) {
	mm := New[string, string]()
	mm.Insert("a", "x")
	mm.Insert("a", "y")
	mm.Delete("a", "x")
	qt.Assert(t, qt.IsFalse(mm.Has("a", "x")))
	qt.Assert(t, qt.HasLen(mm.GetAll("a"), 1))

	mm.Delete("a", "y")
	qt.Assert(t, qt.HasLen(mm.Keys(), 0))
}

func TestDeleteAll(t *testing.T) {
	mm := New[string, string]()
	mm.InsertAll("a", []string{"x", "y"})
	mm.DeleteAll("a")
	qt.Assert(t, qt.HasLen(mm.GetAll("a"), 0))
}

func TestValuesFlattened(t *testing.T) {
	mm := New[string, int]()
	mm.InsertAll("a", []int{1, 2})
	mm.InsertAll("b", []int{3})
	got := mm.Values()
	sort.Ints(got)
	qt.Assert(t, qt.DeepEquals(got, []int{1, 2, 3}))
}

func TestAllIteration(t *testing.T) {
	mm := New[string, int]()
	mm.InsertAll("a", []int{1, 2})
	mm.InsertAll("b", []int{3})

	seen := map[string][]int{}
	mm.All(func(k string, values []int) bool {
		sort.Ints(values)
		seen[k] = values
		return true
	})
	qt.Assert(t, qt.DeepEquals(seen, map[string][]int{"a": {1, 2}, "b": {3}}))
}

func TestEnsureKeyRegistersEmptyKey(t *testing.T) {
	mm := New[string, string]()
	mm.EnsureKey("a")
	qt.Assert(t, qt.DeepEquals(mm.Keys(), []string{"a"}))
	qt.Assert(t, qt.HasLen(mm.GetAll("a"), 0))

	mm.EnsureKey("a")
	qt.Assert(t, qt.DeepEquals(mm.Keys(), []string{"a"}))
}

func TestAllEarlyStop(t *testing.T) {
	mm := New[string, int]()
	mm.InsertAll("a", []int{1})
	mm.InsertAll("b", []int{2})

	n := 0
	mm.All(func(k string, values []int) bool {
		n++
		return false
	})
	qt.Assert(t, qt.Equals(n, 1))
}
