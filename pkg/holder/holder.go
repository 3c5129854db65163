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

// Package holder implements the permission holder engine: a user or group
// owning an enduring and a transient node set, with snapshot caches for
// reads, a mutation API for administration, and context-filtered transitive
// resolution over inherited groups.
package holder

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	microevents "go-micro.dev/v4/events"

	"github.com/oliverfjones0/permgraph/pkg/clock"
	"github.com/oliverfjones0/permgraph/pkg/errtypes"
	"github.com/oliverfjones0/permgraph/pkg/events"
	"github.com/oliverfjones0/permgraph/pkg/node"
)

// Kind discriminates users from groups. Groups are the only holders other
// holders can inherit from.
type Kind int

const (
	// KindUser identifies a user holder.
	KindUser Kind = iota
	// KindGroup identifies a group holder.
	KindGroup
)

func (k Kind) String() string {
	if k == KindGroup {
		return "group"
	}
	return "user"
}

// Registry looks up the holder backing a group by its lowercased name.
// Group managers implement it; resolution consults it while walking the
// inheritance graph.
type Registry interface {
	GroupHolder(name string) (*Holder, bool)
}

// Holder owns the permission nodes of a user or group. All methods are safe
// for concurrent use. Reads are served from immutable snapshots; mutations
// serialize on per-set locks and invalidate the derived snapshots.
type Holder struct {
	objectName string
	kind       Kind

	emu      sync.RWMutex
	enduring []node.Node

	tmu       sync.RWMutex
	transient []node.Node

	// ioLock is handed out to external persistence code to serialize
	// save/load against administrative operations. The engine itself
	// never acquires it.
	ioLock sync.Mutex

	registry          Registry
	stream            microevents.Stream
	clk               clock.Clock
	applyingShorthand bool
	applyingRegex     bool

	enduringCache   *snapshot[[]node.Node]
	transientCache  *snapshot[[]node.Node]
	mergedCache     *snapshot[[]node.Localized]
	resolutionCache *snapshot[[]node.Localized]
}

// New creates a holder. The object name is the stable identity: the UUID
// string for users, the lowercased name for groups.
func New(objectName string, kind Kind, opts ...Option) *Holder {
	h := &Holder{
		objectName: strings.ToLower(objectName),
		kind:       kind,
		clk:        clock.System(),
	}
	for _, o := range opts {
		o(h)
	}
	h.enduringCache = newSnapshot(func() []node.Node {
		h.emu.RLock()
		defer h.emu.RUnlock()
		return append([]node.Node(nil), h.enduring...)
	})
	h.transientCache = newSnapshot(func() []node.Node {
		h.tmu.RLock()
		defer h.tmu.RUnlock()
		return append([]node.Node(nil), h.transient...)
	})
	h.mergedCache = newSnapshot(func() []node.Localized {
		return h.buildMerged(true)
	})
	h.resolutionCache = newSnapshot(func() []node.Localized {
		return h.buildMerged(false)
	})
	return h
}

// NewUser creates a user holder identified by its UUID.
func NewUser(id uuid.UUID, opts ...Option) *Holder {
	return New(id.String(), KindUser, opts...)
}

// NewGroup creates a group holder identified by its lowercased name.
func NewGroup(name string, opts ...Option) *Holder {
	return New(name, KindGroup, opts...)
}

// ObjectName returns the stable identity of the holder.
func (h *Holder) ObjectName() string { return h.objectName }

// Kind returns whether the holder is a user or a group.
func (h *Holder) Kind() Kind { return h.kind }

// IOLock returns the handle persistence code uses to serialize save/load
// against administrative operations.
func (h *Holder) IOLock() *sync.Mutex { return &h.ioLock }

// Nodes returns an immutable snapshot of the enduring set. Callers must not
// modify the returned slice.
func (h *Holder) Nodes() []node.Node { return h.enduringCache.get() }

// TransientNodes returns an immutable snapshot of the transient set.
func (h *Holder) TransientNodes() []node.Node { return h.transientCache.get() }

// Permissions returns the merged enduring and transient nodes, each tagged
// with this holder's object name, in priority order with lower-priority
// duplicates removed. With mergeTemp, duplicates collapse regardless of
// value or temporariness; without it only nodes equal modulo exact expiry
// collapse. Expired nodes are filtered out.
func (h *Holder) Permissions(mergeTemp bool) []node.Localized {
	var all []node.Localized
	if mergeTemp {
		all = h.mergedCache.get()
	} else {
		all = h.resolutionCache.get()
	}
	return filterExpired(all, h.clk.Now())
}

func (h *Holder) buildMerged(mergeTemp bool) []node.Localized {
	en := h.enduringCache.get()
	tr := h.transientCache.get()
	// expired nodes are dropped before dedup: a dead temporary node must
	// not claim the dedup slot of a live node in the same scope
	now := h.clk.Now()
	all := make([]node.Localized, 0, len(en)+len(tr))
	for _, n := range en {
		if n.HasExpired(now) {
			continue
		}
		all = append(all, node.Localize(n, h.objectName))
	}
	for _, n := range tr {
		if n.HasExpired(now) {
			continue
		}
		all = append(all, node.Localize(n, h.objectName))
	}
	node.Sort(all)

	out := make([]node.Localized, 0, len(all))
	for _, ln := range all {
		dup := false
		for _, kept := range out {
			if mergeTemp {
				dup = kept.Node.EqualsIgnoringValueOrTemp(ln.Node)
			} else {
				dup = kept.Node.AlmostEquals(ln.Node)
			}
			if dup {
				break
			}
		}
		if !dup {
			out = append(out, ln)
		}
	}
	return out
}

func filterExpired(all []node.Localized, now time.Time) []node.Localized {
	for i, ln := range all {
		if ln.Node.HasExpired(now) {
			out := make([]node.Localized, 0, len(all)-1)
			out = append(out, all[:i]...)
			for _, rest := range all[i+1:] {
				if !rest.Node.HasExpired(now) {
					out = append(out, rest)
				}
			}
			return out
		}
	}
	return all
}

// HasPermission scans the chosen set and returns the value of the first node
// almost-equal to probe, or Undefined when none matches. Expired nodes never
// match.
func (h *Holder) HasPermission(probe node.Node, transient bool) node.Tristate {
	var set []node.Node
	if transient {
		set = h.transientCache.get()
	} else {
		set = h.enduringCache.get()
	}
	now := h.clk.Now()
	for _, n := range set {
		if n.HasExpired(now) {
			continue
		}
		if n.AlmostEquals(probe) {
			return n.Tristate()
		}
	}
	return node.Undefined
}

// HasPermissionValue reports whether an enduring probe built from the
// arguments resolves to want. An Undefined outcome collapses to false, so a
// lookup with want == false reports true when the permission is not held at
// all. Callers that need to distinguish use HasPermission.
func (h *Holder) HasPermissionValue(permission string, want bool, server, world string) bool {
	probe, err := node.NewBuilder(permission, want).Server(server).World(world).Build()
	if err != nil {
		return false
	}
	return h.HasPermission(probe, false).AsBoolean() == want
}

// SetPermission adds a node to the enduring set. It fails with AlreadyHeld
// when an almost-equal node is already present.
func (h *Holder) SetPermission(n node.Node) error {
	if err := h.setEnduring(n); err != nil {
		return err
	}
	h.publish(events.NodeSet{Holder: h.objectName, Node: n.ToSerializedNode(), Value: n.Value()})
	return nil
}

// SetTransientPermission adds a node to the transient set. It fails with
// AlreadyHeld when an almost-equal node is already present.
func (h *Holder) SetTransientPermission(n node.Node) error {
	if err := h.setTransient(n); err != nil {
		return err
	}
	h.publish(events.NodeSet{Holder: h.objectName, Node: n.ToSerializedNode(), Value: n.Value()})
	return nil
}

func (h *Holder) setEnduring(n node.Node) error {
	h.emu.Lock()
	defer h.emu.Unlock()
	if hasAlmostEqual(h.enduring, n, h.clk.Now()) {
		return errtypes.AlreadyHeld(n.ToSerializedNode())
	}
	h.enduring = append(h.enduring, n)
	h.invalidateEnduring()
	return nil
}

func (h *Holder) setTransient(n node.Node) error {
	h.tmu.Lock()
	defer h.tmu.Unlock()
	if hasAlmostEqual(h.transient, n, h.clk.Now()) {
		return errtypes.AlreadyHeld(n.ToSerializedNode())
	}
	h.transient = append(h.transient, n)
	h.invalidateTransient()
	return nil
}

// UnsetPermission removes every enduring node almost-equal to n. It fails
// with NotHeld when no live almost-equal node exists.
func (h *Holder) UnsetPermission(n node.Node) error {
	if err := h.unset(&h.emu, &h.enduring, h.invalidateEnduring, n); err != nil {
		return err
	}
	h.publishUnset(n)
	return nil
}

// UnsetTransientPermission removes every transient node almost-equal to n.
// It fails with NotHeld when no live almost-equal node exists.
func (h *Holder) UnsetTransientPermission(n node.Node) error {
	if err := h.unset(&h.tmu, &h.transient, h.invalidateTransient, n); err != nil {
		return err
	}
	h.publishUnset(n)
	return nil
}

func (h *Holder) unset(mu *sync.RWMutex, set *[]node.Node, invalidate func(), n node.Node) error {
	mu.Lock()
	defer mu.Unlock()
	if !hasAlmostEqual(*set, n, h.clk.Now()) {
		return errtypes.NotHeld(n.ToSerializedNode())
	}
	kept := make([]node.Node, 0, len(*set))
	for _, m := range *set {
		if !m.AlmostEquals(n) {
			kept = append(kept, m)
		}
	}
	*set = kept
	invalidate()
	return nil
}

func (h *Holder) publishUnset(n node.Node) {
	if n.IsGroupNode() {
		server, _ := n.Server()
		world, _ := n.World()
		h.publish(events.GroupRemove{
			Holder:    h.objectName,
			Group:     n.GroupName(),
			Server:    server,
			World:     world,
			Temporary: n.IsTemporary(),
		})
		return
	}
	h.publish(events.NodeUnset{Holder: h.objectName, Node: n.ToSerializedNode(), Value: n.Value()})
}

// SetNodes replaces the enduring set. Replacing with an equal set is a
// no-op: no invalidation, no events.
func (h *Holder) SetNodes(nodes []node.Node) {
	h.emu.Lock()
	defer h.emu.Unlock()
	if nodeSetsEqual(h.enduring, nodes) {
		return
	}
	h.enduring = append([]node.Node(nil), nodes...)
	h.invalidateEnduring()
}

// SetTransientNodes replaces the transient set. Replacing with an equal set
// is a no-op.
func (h *Holder) SetTransientNodes(nodes []node.Node) {
	h.tmu.Lock()
	defer h.tmu.Unlock()
	if nodeSetsEqual(h.transient, nodes) {
		return
	}
	h.transient = append([]node.Node(nil), nodes...)
	h.invalidateTransient()
}

// AddNodeUnchecked adds an enduring node without the almost-equal
// precondition and without emitting an event. Loader paths use it.
func (h *Holder) AddNodeUnchecked(n node.Node) {
	h.emu.Lock()
	defer h.emu.Unlock()
	h.enduring = append(h.enduring, n)
	h.invalidateEnduring()
}

// ClearNodes removes all enduring nodes.
func (h *Holder) ClearNodes() {
	h.clearEnduring(func(node.Node) bool { return true })
}

// ClearNodesForServer removes the enduring nodes matching the server scope.
// The empty string matches unscoped nodes via the "global" sentinel.
func (h *Holder) ClearNodesForServer(server string) {
	h.clearEnduring(func(n node.Node) bool {
		return scopeMatchesServer(n, server)
	})
}

// ClearNodesForServerWorld removes the enduring nodes matching both scopes.
// Empty strings match unscoped nodes via the "global" and "null" sentinels.
func (h *Holder) ClearNodesForServerWorld(server, world string) {
	h.clearEnduring(func(n node.Node) bool {
		return scopeMatchesServer(n, server) && scopeMatchesWorld(n, world)
	})
}

// ClearParents removes all enduring group nodes.
func (h *Holder) ClearParents() {
	h.clearEnduring(func(n node.Node) bool { return n.IsGroupNode() })
}

// ClearParentsForServer removes the enduring group nodes matching the
// server scope.
func (h *Holder) ClearParentsForServer(server string) {
	h.clearEnduring(func(n node.Node) bool {
		return n.IsGroupNode() && scopeMatchesServer(n, server)
	})
}

// ClearParentsForServerWorld removes the enduring group nodes matching both
// scopes.
func (h *Holder) ClearParentsForServerWorld(server, world string) {
	h.clearEnduring(func(n node.Node) bool {
		return n.IsGroupNode() && scopeMatchesServer(n, server) && scopeMatchesWorld(n, world)
	})
}

// ClearMeta removes all enduring meta, prefix and suffix nodes.
func (h *Holder) ClearMeta() {
	h.clearEnduring(isMetaLike)
}

// ClearMetaForServer removes the meta-like enduring nodes matching the
// server scope.
func (h *Holder) ClearMetaForServer(server string) {
	h.clearEnduring(func(n node.Node) bool {
		return isMetaLike(n) && scopeMatchesServer(n, server)
	})
}

// ClearMetaForServerWorld removes the meta-like enduring nodes matching both
// scopes.
func (h *Holder) ClearMetaForServerWorld(server, world string) {
	h.clearEnduring(func(n node.Node) bool {
		return isMetaLike(n) && scopeMatchesServer(n, server) && scopeMatchesWorld(n, world)
	})
}

// ClearMetaKeys removes the enduring meta nodes for the given key with the
// given temporariness, within the given scope.
func (h *Holder) ClearMetaKeys(key, server, world string, temporary bool) {
	h.clearEnduring(func(n node.Node) bool {
		if !n.IsMeta() || n.IsTemporary() != temporary {
			return false
		}
		k, _ := n.MetaEntry()
		return strings.EqualFold(k, key) &&
			scopeMatchesServer(n, server) &&
			scopeMatchesWorld(n, world)
	})
}

// ClearTransientNodes drops all transient nodes.
func (h *Holder) ClearTransientNodes() {
	h.tmu.Lock()
	defer h.tmu.Unlock()
	if len(h.transient) == 0 {
		return
	}
	h.transient = nil
	h.invalidateTransient()
}

func (h *Holder) clearEnduring(match func(node.Node) bool) {
	h.emu.Lock()
	defer h.emu.Unlock()
	kept := make([]node.Node, 0, len(h.enduring))
	for _, n := range h.enduring {
		if !match(n) {
			kept = append(kept, n)
		}
	}
	if len(kept) == len(h.enduring) {
		return
	}
	h.enduring = kept
	h.invalidateEnduring()
}

// AuditTemporaryPermissions removes every expired node from both sets,
// emits one NodeExpire event per removed node, and reports whether anything
// was removed.
func (h *Holder) AuditTemporaryPermissions() bool {
	now := h.clk.Now()
	var removed []node.Node

	h.emu.Lock()
	h.enduring, removed = partitionExpired(h.enduring, removed, now)
	if len(removed) > 0 {
		h.invalidateEnduring()
	}
	h.emu.Unlock()

	enduringRemoved := len(removed)
	h.tmu.Lock()
	h.transient, removed = partitionExpired(h.transient, removed, now)
	if len(removed) > enduringRemoved {
		h.invalidateTransient()
	}
	h.tmu.Unlock()

	for _, n := range removed {
		h.publish(events.NodeExpire{Holder: h.objectName, Node: n.ToSerializedNode(), Value: n.Value()})
	}
	return len(removed) > 0
}

func partitionExpired(set []node.Node, removed []node.Node, now time.Time) ([]node.Node, []node.Node) {
	kept := set[:0:0]
	for _, n := range set {
		if n.HasExpired(now) {
			removed = append(removed, n)
		} else {
			kept = append(kept, n)
		}
	}
	return kept, removed
}

// InheritsGroup reports whether the holder is the group itself or holds a
// live group node granting the group within the given scope.
func (h *Holder) InheritsGroup(name, server, world string) bool {
	if name == "" {
		return false
	}
	name = strings.ToLower(name)
	if name == h.objectName {
		return true
	}
	probe, err := node.NewBuilder("group."+name, true).Server(server).World(world).Build()
	if err != nil {
		return false
	}
	return h.HasPermission(probe, false) == node.True
}

// SetInheritGroup adds a group node granting the named group, optionally
// scoped and expiring, and emits a GroupAdd event. Inheriting oneself fails
// with AlreadyHeld.
func (h *Holder) SetInheritGroup(name, server, world string, expireAt int64) error {
	name = strings.ToLower(name)
	if name == "" || name == h.objectName {
		return errtypes.AlreadyHeld("group " + name)
	}
	n, err := node.NewBuilder("group."+name, true).Server(server).World(world).ExpiresAt(expireAt).Build()
	if err != nil {
		return err
	}
	if err := h.setEnduring(n); err != nil {
		return err
	}
	h.publish(events.GroupAdd{
		Holder:   h.objectName,
		Group:    name,
		Server:   server,
		World:    world,
		ExpireAt: expireAt,
	})
	return nil
}

// UnsetInheritGroup removes the group node for the named group within the
// given scope and emits a GroupRemove event.
func (h *Holder) UnsetInheritGroup(name, server, world string, temporary bool) error {
	name = strings.ToLower(name)
	b := node.NewBuilder("group."+name, true).Server(server).World(world)
	if temporary {
		b.ExpiresAt(h.clk.Now().Unix() + 1)
	}
	probe, err := b.Build()
	if err != nil {
		return err
	}
	return h.UnsetPermission(probe)
}

// InvalidateCaches drops every derived snapshot. The next read recomputes
// from the raw sets.
func (h *Holder) InvalidateCaches() {
	h.enduringCache.invalidate()
	h.transientCache.invalidate()
	h.mergedCache.invalidate()
	h.resolutionCache.invalidate()
}

func (h *Holder) invalidateEnduring() {
	h.enduringCache.invalidate()
	h.mergedCache.invalidate()
	h.resolutionCache.invalidate()
}

func (h *Holder) invalidateTransient() {
	h.transientCache.invalidate()
	h.mergedCache.invalidate()
	h.resolutionCache.invalidate()
}

func (h *Holder) publish(ev interface{}) {
	if h.stream == nil {
		return
	}
	s := h.stream
	go func() {
		_ = events.Publish(ev, s)
	}()
}

func hasAlmostEqual(set []node.Node, probe node.Node, now time.Time) bool {
	for _, n := range set {
		if n.HasExpired(now) {
			continue
		}
		if n.AlmostEquals(probe) {
			return true
		}
	}
	return false
}

// nodeSetsEqual compares two slices as multisets under full node equality.
func nodeSetsEqual(a, b []node.Node) bool {
	if len(a) != len(b) {
		return false
	}
	used := make([]bool, len(b))
outer:
	for _, n := range a {
		for i, m := range b {
			if !used[i] && n.Equals(m) {
				used[i] = true
				continue outer
			}
		}
		return false
	}
	return true
}

func isMetaLike(n node.Node) bool {
	return n.IsMeta() || n.IsPrefix() || n.IsSuffix()
}

func scopeMatchesServer(n node.Node, server string) bool {
	declared, ok := n.Server()
	if !ok {
		declared = "global"
	}
	if server == "" {
		server = "global"
	}
	return strings.EqualFold(declared, server)
}

func scopeMatchesWorld(n node.Node, world string) bool {
	declared, ok := n.World()
	if !ok {
		declared = "null"
	}
	if world == "" {
		world = "null"
	}
	return strings.EqualFold(declared, world)
}
