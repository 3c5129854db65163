// Copyright 2018-2022 CERN
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
//
// In applying this license, CERN does not waive the privileges and immunities
// granted to it by virtue of its status as an Intergovernmental Organization
// or submit itself to any jurisdiction.

package node

import (
	"sort"
	"strings"
)

// Reserved context keys. Server and world constrain where a node applies and
// are carried on the node itself, not inside its tag set.
const (
	ContextKeyServer = "server"
	ContextKeyWorld  = "world"
)

// ContextPair is a single key/value tag.
type ContextPair struct {
	Key   string
	Value string
}

// ContextSet is an immutable set of key/value tags. A key may carry several
// values. The zero value is the empty set.
type ContextSet struct {
	pairs []ContextPair
}

// NewContextSet builds a set from the given pairs, dropping duplicates.
func NewContextSet(pairs ...ContextPair) ContextSet {
	s := ContextSet{}
	for _, p := range pairs {
		s = s.With(p.Key, p.Value)
	}
	return s
}

// ContextSetFromMap builds a set from a plain map.
func ContextSetFromMap(m map[string]string) ContextSet {
	s := ContextSet{}
	for k, v := range m {
		s = s.With(k, v)
	}
	return s
}

// With returns a copy of the set extended with (key, value). Adding a pair
// that is already present returns the set unchanged.
func (s ContextSet) With(key, value string) ContextSet {
	if key == "" || s.Has(key, value) {
		return s
	}
	pairs := make([]ContextPair, 0, len(s.pairs)+1)
	pairs = append(pairs, s.pairs...)
	pairs = append(pairs, ContextPair{Key: key, Value: value})
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Key != pairs[j].Key {
			return pairs[i].Key < pairs[j].Key
		}
		return pairs[i].Value < pairs[j].Value
	})
	return ContextSet{pairs: pairs}
}

// Without returns a copy of the set with all pairs for the given keys removed.
func (s ContextSet) Without(keys ...string) ContextSet {
	drop := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		drop[k] = struct{}{}
	}
	pairs := make([]ContextPair, 0, len(s.pairs))
	for _, p := range s.pairs {
		if _, ok := drop[p.Key]; !ok {
			pairs = append(pairs, p)
		}
	}
	if len(pairs) == len(s.pairs) {
		return s
	}
	return ContextSet{pairs: pairs}
}

// Has reports whether the exact pair (key, value) is present.
func (s ContextSet) Has(key, value string) bool {
	for _, p := range s.pairs {
		if p.Key == key && p.Value == value {
			return true
		}
	}
	return false
}

// Values returns all values recorded for key.
func (s ContextSet) Values(key string) []string {
	var vals []string
	for _, p := range s.pairs {
		if p.Key == key {
			vals = append(vals, p.Value)
		}
	}
	return vals
}

// AnyValue returns one value for key, if any is present.
func (s ContextSet) AnyValue(key string) (string, bool) {
	for _, p := range s.pairs {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

// Pairs returns a copy of the pairs in stable order.
func (s ContextSet) Pairs() []ContextPair {
	return append([]ContextPair(nil), s.pairs...)
}

// Size returns the number of pairs.
func (s ContextSet) Size() int { return len(s.pairs) }

// IsEmpty reports whether the set holds no pairs.
func (s ContextSet) IsEmpty() bool { return len(s.pairs) == 0 }

// Equals reports whether both sets hold exactly the same pairs.
func (s ContextSet) Equals(o ContextSet) bool {
	if len(s.pairs) != len(o.pairs) {
		return false
	}
	for i := range s.pairs {
		if s.pairs[i] != o.pairs[i] {
			return false
		}
	}
	return true
}

// IsSatisfiedBy reports whether every pair of this set is present in other.
// The empty set is satisfied by anything.
func (s ContextSet) IsSatisfiedBy(other ContextSet) bool {
	for _, p := range s.pairs {
		if !other.Has(p.Key, p.Value) {
			return false
		}
	}
	return true
}

func (s ContextSet) String() string {
	if len(s.pairs) == 0 {
		return "{}"
	}
	var b strings.Builder
	b.WriteByte('{')
	for i, p := range s.pairs {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.Key)
		b.WriteByte('=')
		b.WriteString(p.Value)
	}
	b.WriteByte('}')
	return b.String()
}

// Contexts carries the caller-supplied lookup context plus the flags steering
// how inherited and global nodes are considered during resolution.
type Contexts struct {
	// Context holds the lookup tags. The reserved server and world keys are
	// extracted through Server and World and stripped for tag matching.
	Context ContextSet

	// ApplyGroups enables walking inherited groups at all.
	ApplyGroups bool
	// ApplyGlobalGroups lets group nodes without a server apply.
	ApplyGlobalGroups bool
	// ApplyGlobalWorldGroups lets group nodes without a world apply.
	ApplyGlobalWorldGroups bool
	// IncludeGlobal lets regular nodes without a server apply.
	IncludeGlobal bool
	// IncludeGlobalWorld lets regular nodes without a world apply.
	IncludeGlobalWorld bool
}

// AllowAll returns a Contexts value that applies every node everywhere.
func AllowAll() Contexts {
	return Contexts{
		ApplyGroups:            true,
		ApplyGlobalGroups:      true,
		ApplyGlobalWorldGroups: true,
		IncludeGlobal:          true,
		IncludeGlobalWorld:     true,
	}
}

// WithContext returns a copy with the lookup tags replaced.
func (c Contexts) WithContext(s ContextSet) Contexts {
	c.Context = s
	return c
}

// Server returns the server extracted from the reserved context key.
func (c Contexts) Server() string {
	v, _ := c.Context.AnyValue(ContextKeyServer)
	return v
}

// World returns the world extracted from the reserved context key.
func (c Contexts) World() string {
	v, _ := c.Context.AnyValue(ContextKeyWorld)
	return v
}

// TagsOnly returns the lookup tags with the reserved keys stripped.
func (c Contexts) TagsOnly() ContextSet {
	return c.Context.Without(ContextKeyServer, ContextKeyWorld)
}
