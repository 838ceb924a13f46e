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

// Package multimap provides a small associative container mapping each key
// to a set of values, absorbing duplicates under set semantics. It is the
// auxiliary container the scheduling kernel uses to express "task -> its
// direct dependencies", wrapping a plain map behind a typed API rather than
// pulling in a generic collections dependency.
package multimap

// Multimap maps each key to a set of values. The zero value is not usable;
// construct with New or From.
type Multimap[K comparable, V comparable] struct {
	m map[K]map[V]struct{}
}

// New creates an empty Multimap.
func New[K comparable, V comparable]() *Multimap[K, V] {
	return &Multimap[K, V]{m: map[K]map[V]struct{}{}}
}

// Entry is one (key, values) pair, used by From and All.
type Entry[K comparable, V comparable] struct {
	Key    K
	Values []V
}

// From builds a Multimap from a sequence of (key, values) entries.
func From[K comparable, V comparable](entries []Entry[K, V]) *Multimap[K, V] {
	mm := New[K, V]()
	for _, e := range entries {
		mm.InsertAll(e.Key, e.Values)
	}
	return mm
}

// Insert adds v to the set for k, creating the set if necessary. Inserting
// a value already present is a no-op.
func (mm *Multimap[K, V]) Insert(k K, v V) {
	set, ok := mm.m[k]
	if !ok {
		set = map[V]struct{}{}
		mm.m[k] = set
	}
	set[v] = struct{}{}
}

// InsertAll adds every value in values to the set for k.
func (mm *Multimap[K, V]) InsertAll(k K, values []V) {
	for _, v := range values {
		mm.Insert(k, v)
	}
}

// EnsureKey makes k present with an empty value set if it is not already a
// key, so that a key with no values can still show up in Keys/All. Insert
// and InsertAll cannot express this on their own since a set emptied by
// Delete is removed entirely.
func (mm *Multimap[K, V]) EnsureKey(k K) {
	if _, ok := mm.m[k]; !ok {
		mm.m[k] = map[V]struct{}{}
	}
}

// Has reports whether v is present in the set for k.
func (mm *Multimap[K, V]) Has(k K, v V) bool {
	set, ok := mm.m[k]
	if !ok {
		return false
	}
	_, ok = set[v]
	return ok
}

// GetAll returns the values associated with k, in unspecified order.
// Callers that rely on order must sort explicitly.
func (mm *Multimap[K, V]) GetAll(k K) []V {
	set, ok := mm.m[k]
	if !ok {
		return nil
	}
	out := make([]V, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	return out
}

// Keys returns every key present in the map, including ones with an empty
// value set (see EnsureKey), in unspecified order.
func (mm *Multimap[K, V]) Keys() []K {
	out := make([]K, 0, len(mm.m))
	for k := range mm.m {
		out = append(out, k)
	}
	return out
}

// Values returns every value across every key, flattened, with duplicates
// across distinct keys preserved (but not within one key's set).
func (mm *Multimap[K, V]) Values() []V {
	var out []V
	for _, set := range mm.m {
		for v := range set {
			out = append(out, v)
		}
	}
	return out
}

// All iterates over (key, value-set) pairs. The yielded slice is a fresh
// copy; mutating it does not affect the Multimap.
func (mm *Multimap[K, V]) All(yield func(k K, values []V) bool) {
	for k, set := range mm.m {
		values := make([]V, 0, len(set))
		for v := range set {
			values = append(values, v)
		}
		if !yield(k, values) {
			return
		}
	}
}

// Delete removes v from the set for k. Deleting the last value for k
// removes k entirely.
func (mm *Multimap[K, V]) Delete(k K, v V) {
	set, ok := mm.m[k]
	if !ok {
		return
	}
	delete(set, v)
	if len(set) == 0 {
		delete(mm.m, k)
	}
}

// DeleteAll removes every value associated with k.
func (mm *Multimap[K, V]) DeleteAll(k K) {
	delete(mm.m, k)
}
