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

// Compare defines the priority order of nodes. It returns a negative value
// when a ranks before b (a has the higher effective priority), positive when
// b ranks first and zero when both rank equal.
//
// The order is: server-specific before global, then world-specific before
// global, then fewer wildcard segments first, then temporary before
// permanent, then lexicographic by lowercased permission as a deterministic
// tiebreaker.
func Compare(a, b Node) int {
	if a.IsServerSpecific() != b.IsServerSpecific() {
		if a.IsServerSpecific() {
			return -1
		}
		return 1
	}
	if a.IsWorldSpecific() != b.IsWorldSpecific() {
		if a.IsWorldSpecific() {
			return -1
		}
		return 1
	}
	if aw, bw := a.WildcardLevel(), b.WildcardLevel(); aw != bw {
		if aw < bw {
			return -1
		}
		return 1
	}
	if a.IsTemporary() != b.IsTemporary() {
		if a.IsTemporary() {
			return -1
		}
		return 1
	}
	return strings.Compare(strings.ToLower(a.permission), strings.ToLower(b.permission))
}

// Sort orders localized nodes by priority. The sort is stable, so nodes that
// rank equal keep their insertion order and the first inserted wins any
// later deduplication.
func Sort(nodes []Localized) {
	sort.SliceStable(nodes, func(i, j int) bool {
		return Compare(nodes[i].Node, nodes[j].Node) < 0
	})
}
