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

package holder

import (
	"strings"

	"github.com/oliverfjones0/permgraph/pkg/node"
)

// GetAllNodes returns the holder's merged nodes plus the nodes inherited
// transitively from its groups, in priority order. A child node shadows an
// almost-equal inherited node ("first seen wins"); inherited nodes keep the
// object name of the holder that supplied them.
//
// excludedGroups names groups the walk must not descend into. The slice is
// never mutated; the walk tracks its own exclusion state, growing it with
// every holder it enters, so cyclic group graphs terminate.
func (h *Holder) GetAllNodes(excludedGroups []string, c node.Contexts) []node.Localized {
	visited := make(map[string]struct{}, len(excludedGroups)+1)
	for _, g := range excludedGroups {
		visited[strings.ToLower(g)] = struct{}{}
	}
	return h.allNodes(visited, c)
}

func (h *Holder) allNodes(visited map[string]struct{}, c node.Contexts) []node.Localized {
	visited[h.objectName] = struct{}{}

	own := h.Permissions(true)
	all := append([]node.Localized(nil), own...)

	if h.registry != nil {
		for _, ln := range own {
			n := ln.Node
			if !n.IsGroupNode() || !n.Value() {
				continue
			}
			if !n.ShouldApplyOnServer(c.Server(), c.ApplyGlobalGroups, h.applyingRegex) {
				continue
			}
			if !n.ShouldApplyOnWorld(c.World(), c.ApplyGlobalWorldGroups, h.applyingRegex) {
				continue
			}
			if !n.AppliesWithContext(c.TagsOnly()) {
				continue
			}

			name := n.GroupName()
			if _, seen := visited[name]; seen {
				continue
			}
			parent, ok := h.registry.GroupHolder(name)
			if !ok || parent == nil {
				// unknown groups are skipped, not an error
				continue
			}
			for _, inherited := range parent.allNodes(visited, c) {
				if !containsAlmostEqual(all, inherited.Node) {
					all = append(all, inherited)
				}
			}
		}
	}

	node.Sort(all)
	return all
}

// GetAllNodesFiltered resolves the holder under the given context and
// reduces the result to one effective node per permission string: iterating
// in priority order, the first node for a permission wins.
func (h *Holder) GetAllNodesFiltered(c node.Contexts) []node.Localized {
	var all []node.Localized
	if c.ApplyGroups {
		all = h.GetAllNodes(nil, c)
	} else {
		all = h.Permissions(true)
	}

	tags := c.TagsOnly()
	seen := make(map[string]struct{}, len(all))
	out := make([]node.Localized, 0, len(all))
	for _, ln := range all {
		n := ln.Node
		if !n.ShouldApplyOnServer(c.Server(), c.IncludeGlobal, h.applyingRegex) {
			continue
		}
		if !n.ShouldApplyOnWorld(c.World(), c.IncludeGlobalWorld, h.applyingRegex) {
			continue
		}
		if !n.AppliesWithContext(tags) {
			continue
		}
		if _, dup := seen[n.Permission()]; dup {
			continue
		}
		seen[n.Permission()] = struct{}{}
		out = append(out, ln)
	}
	return out
}

// ExportNodes renders the resolved view as a permission-to-value map. With
// shorthand expansion enabled, every implied permission of a node is added
// with the node's value unless an earlier entry already claimed it.
func (h *Holder) ExportNodes(c node.Contexts, lowerCase bool) map[string]bool {
	out := make(map[string]bool)
	for _, ln := range h.GetAllNodesFiltered(c) {
		n := ln.Node
		perm := n.Permission()
		if lowerCase {
			perm = strings.ToLower(perm)
		}
		if _, ok := out[perm]; !ok {
			out[perm] = n.Value()
		}
		if !h.applyingShorthand {
			continue
		}
		for _, implied := range n.ResolveShorthand() {
			if lowerCase {
				implied = strings.ToLower(implied)
			}
			if _, ok := out[implied]; !ok {
				out[implied] = n.Value()
			}
		}
	}
	return out
}

// ExportLegacyNodes renders the enduring set in the legacy serialized form.
func (h *Holder) ExportLegacyNodes() map[string]bool {
	out := make(map[string]bool)
	for _, n := range h.Nodes() {
		out[n.ToSerializedNode()] = n.Value()
	}
	return out
}

// SetNodesFromLegacy replaces the enduring set with nodes parsed from the
// legacy serialized form.
func (h *Holder) SetNodesFromLegacy(m map[string]bool) error {
	nodes := make([]node.Node, 0, len(m))
	for key, value := range m {
		n, err := node.FromSerializedNode(key, value)
		if err != nil {
			return err
		}
		nodes = append(nodes, n)
	}
	h.SetNodes(nodes)
	return nil
}

func containsAlmostEqual(all []node.Localized, n node.Node) bool {
	for _, ln := range all {
		if ln.Node.AlmostEquals(n) {
			return true
		}
	}
	return false
}
