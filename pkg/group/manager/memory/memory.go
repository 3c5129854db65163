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

// Package memory provides an in-memory group directory, mostly used by
// tests and embedding applications that manage groups programmatically.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"

	"github.com/oliverfjones0/permgraph/pkg/errtypes"
	"github.com/oliverfjones0/permgraph/pkg/group"
	"github.com/oliverfjones0/permgraph/pkg/group/registry"
	"github.com/oliverfjones0/permgraph/pkg/holder"
)

func init() {
	registry.Register("memory", New)
}

// Manager is an in-memory group directory. Besides the group.Manager
// interface it offers programmatic group administration.
type Manager struct {
	sync.RWMutex
	groups        map[string]*group.Group
	holderOpts    []holder.Option
	defaultWeight int
}

type config struct {
	// DefaultWeight is assigned to groups created without a weight.
	DefaultWeight int `mapstructure:"default_weight"`
}

// New returns a group manager holding all groups in memory.
func New(m map[string]interface{}) (group.Manager, error) {
	c := &config{}
	if err := mapstructure.Decode(m, c); err != nil {
		return nil, errors.Wrap(err, "memory: error decoding conf")
	}
	mgr := NewWithOptions()
	mgr.defaultWeight = c.DefaultWeight
	return mgr, nil
}

// NewWithOptions returns an in-memory group manager. The holder options are
// applied to the holder of every created group, in addition to the manager
// registering itself for inheritance lookups.
func NewWithOptions(opts ...holder.Option) *Manager {
	return &Manager{
		groups:     map[string]*group.Group{},
		holderOpts: opts,
	}
}

func (m *Manager) GetGroup(ctx context.Context, name string) (*group.Group, error) {
	m.RLock()
	defer m.RUnlock()
	g, ok := m.groups[strings.ToLower(name)]
	if !ok {
		return nil, errtypes.NotFound("group " + name)
	}
	return g, nil
}

func (m *Manager) ListGroups(ctx context.Context) ([]*group.Group, error) {
	m.RLock()
	defer m.RUnlock()
	groups := make([]*group.Group, 0, len(m.groups))
	for _, g := range m.groups {
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })
	return groups, nil
}

// GroupHolder implements holder.Registry.
func (m *Manager) GroupHolder(name string) (*holder.Holder, bool) {
	m.RLock()
	defer m.RUnlock()
	g, ok := m.groups[strings.ToLower(name)]
	if !ok {
		return nil, false
	}
	return g.Holder, true
}

// CreateGroup adds a new group backed by a fresh holder wired for
// inheritance lookups through this manager.
func (m *Manager) CreateGroup(ctx context.Context, name string, weight int) (*group.Group, error) {
	name = strings.ToLower(name)
	if name == "" {
		return nil, errtypes.BadRequest("memory: empty group name")
	}
	m.Lock()
	defer m.Unlock()
	if _, ok := m.groups[name]; ok {
		return nil, errtypes.AlreadyHeld("group " + name)
	}
	if weight == 0 {
		weight = m.defaultWeight
	}
	opts := append([]holder.Option{holder.WithRegistry(m)}, m.holderOpts...)
	g := &group.Group{
		Name:   name,
		Weight: weight,
		Holder: holder.NewGroup(name, opts...),
	}
	m.groups[name] = g
	return g, nil
}

// DeleteGroup removes a group from the directory.
func (m *Manager) DeleteGroup(ctx context.Context, name string) error {
	name = strings.ToLower(name)
	m.Lock()
	defer m.Unlock()
	if _, ok := m.groups[name]; !ok {
		return errtypes.NotFound("group " + name)
	}
	delete(m.groups, name)
	return nil
}
