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

// Package group defines the group directory: the managers resolution
// consults to look up the holders backing inherited groups.
package group

import (
	"context"

	"github.com/oliverfjones0/permgraph/pkg/holder"
)

// Group is a named holder other holders can inherit from.
type Group struct {
	// Name is the lowercased stable identity.
	Name string
	// DisplayName is an optional human-facing name.
	DisplayName string
	// Weight is the group's weight, kept for the embedding application;
	// resolution does not consult it.
	Weight int
	// Holder owns the group's permission nodes.
	Holder *holder.Holder
}

// Manager is the interface group directory drivers implement. Managers also
// implement holder.Registry so resolution can walk inherited groups.
type Manager interface {
	holder.Registry

	// GetGroup returns the group with the given name.
	GetGroup(ctx context.Context, name string) (*Group, error)
	// ListGroups returns all known groups.
	ListGroups(ctx context.Context) ([]*Group, error)
}
