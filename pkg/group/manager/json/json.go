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

// Package json provides a group directory that reads group definitions from
// a json file. Lookups go through an expiring LRU cache, so edits to the
// file become visible without a restart once the cached entry expires.
package json

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/bluele/gcache"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"

	"github.com/oliverfjones0/permgraph/pkg/errtypes"
	"github.com/oliverfjones0/permgraph/pkg/group"
	"github.com/oliverfjones0/permgraph/pkg/group/registry"
	"github.com/oliverfjones0/permgraph/pkg/holder"
	"github.com/oliverfjones0/permgraph/pkg/node"
)

func init() {
	registry.Register("json", New)
}

type manager struct {
	config *config
	cache  gcache.Cache
}

type config struct {
	// Groups holds a path to a file containing json conforming to []groupDef
	Groups string `mapstructure:"groups"`
	// CacheSize bounds the number of cached group lookups.
	CacheSize int `mapstructure:"cache_size"`
	// CacheExpiration is the lookup cache TTL in seconds.
	CacheExpiration int `mapstructure:"cache_expiration"`
	// ApplyingRegex enables regex server/world matching on loaded holders.
	ApplyingRegex bool `mapstructure:"applying_regex"`
	// ApplyingShorthand enables shorthand expansion on loaded holders.
	ApplyingShorthand bool `mapstructure:"applying_shorthand"`
}

type groupDef struct {
	Name        string          `json:"name"`
	DisplayName string          `json:"displayname"`
	Weight      int             `json:"weight"`
	Nodes       map[string]bool `json:"nodes"`
}

func (c *config) init() {
	if c.Groups == "" {
		c.Groups = "/etc/permgraph/groups.json"
	}
	if c.CacheSize == 0 {
		c.CacheSize = 1000
	}
	if c.CacheExpiration == 0 {
		c.CacheExpiration = 300
	}
}

func parseConfig(m map[string]interface{}) (*config, error) {
	c := &config{}
	if err := mapstructure.Decode(m, c); err != nil {
		return nil, errors.Wrap(err, "json: error decoding conf")
	}
	c.init()
	return c, nil
}

// New returns a group manager implementation that reads a json file to
// provide group metadata and nodes.
func New(m map[string]interface{}) (group.Manager, error) {
	c, err := parseConfig(m)
	if err != nil {
		return nil, err
	}
	return &manager{
		config: c,
		cache:  gcache.New(c.CacheSize).LRU().Build(),
	}, nil
}

func (m *manager) GetGroup(ctx context.Context, name string) (*group.Group, error) {
	name = strings.ToLower(name)
	if g, err := m.cache.Get(name); err == nil {
		return g.(*group.Group), nil
	}

	defs, err := m.loadFile()
	if err != nil {
		return nil, err
	}
	for _, def := range defs {
		if strings.ToLower(def.Name) != name {
			continue
		}
		g, err := m.buildGroup(def)
		if err != nil {
			return nil, err
		}
		_ = m.cache.SetWithExpire(name, g, time.Duration(m.config.CacheExpiration)*time.Second)
		return g, nil
	}
	return nil, errtypes.NotFound("group " + name)
}

func (m *manager) ListGroups(ctx context.Context) ([]*group.Group, error) {
	defs, err := m.loadFile()
	if err != nil {
		return nil, err
	}
	groups := make([]*group.Group, 0, len(defs))
	for _, def := range defs {
		g, err := m.buildGroup(def)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, nil
}

// GroupHolder implements holder.Registry.
func (m *manager) GroupHolder(name string) (*holder.Holder, bool) {
	g, err := m.GetGroup(context.Background(), name)
	if err != nil {
		return nil, false
	}
	return g.Holder, true
}

func (m *manager) loadFile() ([]groupDef, error) {
	f, err := os.ReadFile(m.config.Groups)
	if err != nil {
		return nil, errors.Wrap(err, "json: error reading groups file")
	}
	defs := []groupDef{}
	if err := json.Unmarshal(f, &defs); err != nil {
		return nil, errors.Wrap(err, "json: error parsing groups file")
	}
	return defs, nil
}

func (m *manager) buildGroup(def groupDef) (*group.Group, error) {
	h := holder.NewGroup(def.Name,
		holder.WithRegistry(m),
		holder.WithRegex(m.config.ApplyingRegex),
		holder.WithShorthand(m.config.ApplyingShorthand),
	)
	for key, value := range def.Nodes {
		n, err := node.FromSerializedNode(key, value)
		if err != nil {
			return nil, errors.Wrapf(err, "json: group %s", def.Name)
		}
		h.AddNodeUnchecked(n)
	}
	return &group.Group{
		Name:        strings.ToLower(def.Name),
		DisplayName: def.DisplayName,
		Weight:      def.Weight,
		Holder:      h,
	}, nil
}
