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

// Package node holds the permission node model: a single permission
// assertion with its value, scope and optional expiry, plus the ordering
// and matching rules resolution is built on.
package node

import (
	"regexp"
	"strings"
	"time"

	"github.com/oliverfjones0/permgraph/pkg/errtypes"
)

const (
	groupNodePrefix  = "group."
	metaNodePrefix   = "meta."
	prefixNodePrefix = "prefix."
	suffixNodePrefix = "suffix."

	// regexMarker marks a server or world value as a regular expression.
	regexMarker = "r="
)

// Node is a single permission assertion. Nodes are immutable values; build
// them with NewBuilder or parse them with FromSerializedNode.
type Node struct {
	permission string
	value      bool
	server     string // empty means all servers
	world      string // empty means all worlds
	context    ContextSet
	expiry     int64 // unix seconds, zero means permanent
}

// Builder assembles a Node.
type Builder struct {
	n Node
}

// NewBuilder starts a node for the given permission and value.
func NewBuilder(permission string, value bool) *Builder {
	return &Builder{n: Node{permission: permission, value: value}}
}

// Server scopes the node to a server. The sentinels "global" and the empty
// string leave the node unscoped.
func (b *Builder) Server(server string) *Builder {
	if strings.EqualFold(server, "global") {
		server = ""
	}
	b.n.server = server
	return b
}

// World scopes the node to a world. The sentinels "null" and the empty
// string leave the node unscoped.
func (b *Builder) World(world string) *Builder {
	if strings.EqualFold(world, "null") {
		world = ""
	}
	b.n.world = world
	return b
}

// WithContext adds a context tag. The reserved server and world keys are
// routed to the dedicated fields instead of the tag set.
func (b *Builder) WithContext(key, value string) *Builder {
	switch strings.ToLower(key) {
	case ContextKeyServer:
		return b.Server(value)
	case ContextKeyWorld:
		return b.World(value)
	}
	b.n.context = b.n.context.With(key, value)
	return b
}

// WithContextSet adds every tag of the given set.
func (b *Builder) WithContextSet(s ContextSet) *Builder {
	for _, p := range s.Pairs() {
		b.WithContext(p.Key, p.Value)
	}
	return b
}

// ExpiresAt sets an absolute expiry in unix seconds. Zero means permanent.
func (b *Builder) ExpiresAt(unix int64) *Builder {
	b.n.expiry = unix
	return b
}

// Build validates and returns the node.
func (b *Builder) Build() (Node, error) {
	if b.n.permission == "" {
		return Node{}, errtypes.BadRequest("node: empty permission")
	}
	return b.n, nil
}

// MustBuild is Build for static nodes known to be valid.
func (b *Builder) MustBuild() Node {
	n, err := b.Build()
	if err != nil {
		panic(err)
	}
	return n
}

// Permission returns the permission string with its original case.
func (n Node) Permission() string { return n.permission }

// Value returns the boolean value of the assertion.
func (n Node) Value() bool { return n.value }

// Tristate returns the value as a Tristate.
func (n Node) Tristate() Tristate { return TristateOf(n.value) }

// Server returns the server scope, if any.
func (n Node) Server() (string, bool) { return n.server, n.server != "" }

// World returns the world scope, if any.
func (n Node) World() (string, bool) { return n.world, n.world != "" }

// IsServerSpecific reports whether the node is scoped to a server.
func (n Node) IsServerSpecific() bool { return n.server != "" }

// IsWorldSpecific reports whether the node is scoped to a world.
func (n Node) IsWorldSpecific() bool { return n.world != "" }

// Context returns the tag set of the node.
func (n Node) Context() ContextSet { return n.context }

// Expiry returns the absolute expiry in unix seconds, zero when permanent.
func (n Node) Expiry() int64 { return n.expiry }

// IsTemporary reports whether the node carries an expiry.
func (n Node) IsTemporary() bool { return n.expiry != 0 }

// HasExpired reports whether a temporary node's expiry lies at or before now.
func (n Node) HasExpired(now time.Time) bool {
	return n.expiry != 0 && n.expiry <= now.Unix()
}

// IsGroupNode reports whether the node expresses group inheritance.
func (n Node) IsGroupNode() bool {
	lower := strings.ToLower(n.permission)
	return strings.HasPrefix(lower, groupNodePrefix) && len(lower) > len(groupNodePrefix)
}

// GroupName returns the lowercased name of the inherited group. It is only
// meaningful when IsGroupNode reports true.
func (n Node) GroupName() string {
	if !n.IsGroupNode() {
		return ""
	}
	return strings.ToLower(n.permission)[len(groupNodePrefix):]
}

// IsMeta reports whether the node encodes a meta entry (meta.<key>.<value>).
func (n Node) IsMeta() bool {
	lower := strings.ToLower(n.permission)
	return strings.HasPrefix(lower, metaNodePrefix) && strings.Count(lower, ".") >= 2
}

// MetaEntry returns the key and value of a meta node.
func (n Node) MetaEntry() (string, string) {
	if !n.IsMeta() {
		return "", ""
	}
	rest := n.permission[len(metaNodePrefix):]
	parts := strings.SplitN(rest, ".", 2)
	return parts[0], parts[1]
}

// IsPrefix reports whether the node encodes a chat prefix
// (prefix.<weight>.<value>).
func (n Node) IsPrefix() bool {
	lower := strings.ToLower(n.permission)
	return strings.HasPrefix(lower, prefixNodePrefix) && strings.Count(lower, ".") >= 2
}

// IsSuffix reports whether the node encodes a chat suffix
// (suffix.<weight>.<value>).
func (n Node) IsSuffix() bool {
	lower := strings.ToLower(n.permission)
	return strings.HasPrefix(lower, suffixNodePrefix) && strings.Count(lower, ".") >= 2
}

// WildcardLevel counts the wildcard segments of the permission.
func (n Node) WildcardLevel() int {
	level := 0
	for _, seg := range strings.Split(n.permission, ".") {
		if seg == "*" {
			level++
		}
	}
	return level
}

// IsWildcard reports whether the permission contains a wildcard segment.
func (n Node) IsWildcard() bool { return n.WildcardLevel() > 0 }

// ShouldApplyOnServer reports whether the node applies on the given server.
// A node without a server scope is global and applies iff includeGlobal.
func (n Node) ShouldApplyOnServer(server string, includeGlobal, regex bool) bool {
	if n.server == "" {
		return includeGlobal
	}
	return matchesScopeValue(n.server, server, regex)
}

// ShouldApplyOnWorld reports whether the node applies in the given world.
// A node without a world scope is global and applies iff includeGlobal.
func (n Node) ShouldApplyOnWorld(world string, includeGlobal, regex bool) bool {
	if n.world == "" {
		return includeGlobal
	}
	return matchesScopeValue(n.world, world, regex)
}

// AppliesWithContext reports whether every tag of the node is present in the
// supplied set. A node without tags applies everywhere.
func (n Node) AppliesWithContext(supplied ContextSet) bool {
	return n.context.IsSatisfiedBy(supplied)
}

// matchesScopeValue matches a node's server or world declaration against a
// concrete value. Declarations support "(a|b|c)" alternation and, when regex
// matching is enabled, an "r=" prefixed regular expression.
func matchesScopeValue(declared, value string, regex bool) bool {
	if value == "" {
		return false
	}
	if regex && strings.HasPrefix(declared, regexMarker) {
		matched, err := regexp.MatchString("(?i)^(?:"+declared[len(regexMarker):]+")$", value)
		return err == nil && matched
	}
	if strings.HasPrefix(declared, "(") && strings.HasSuffix(declared, ")") && strings.Contains(declared, "|") {
		for _, opt := range strings.Split(declared[1:len(declared)-1], "|") {
			if strings.EqualFold(opt, value) {
				return true
			}
		}
		return false
	}
	return strings.EqualFold(declared, value)
}

// Equals reports full equality, including value and exact expiry.
func (n Node) Equals(o Node) bool {
	return n.AlmostEquals(o) && n.expiry == o.expiry
}

// AlmostEquals reports whether both nodes are the same assertion modulo the
// exact expiry time: permission, value, server, world, context and the
// is-temporary flag all agree.
func (n Node) AlmostEquals(o Node) bool {
	return n.value == o.value &&
		n.IsTemporary() == o.IsTemporary() &&
		n.EqualsIgnoringValueOrTemp(o)
}

// EqualsIgnoringValueOrTemp reports whether both nodes target the same
// permission in the same scope, regardless of value or temporariness. Merged
// views use it to collapse contradicting duplicates.
func (n Node) EqualsIgnoringValueOrTemp(o Node) bool {
	return strings.EqualFold(n.permission, o.permission) &&
		strings.EqualFold(n.server, o.server) &&
		strings.EqualFold(n.world, o.world) &&
		n.context.Equals(o.context)
}

func (n Node) String() string {
	return n.ToSerializedNode()
}
