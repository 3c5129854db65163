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

package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oliverfjones0/permgraph/pkg/errtypes"
)

func TestCreateAndGetGroup(t *testing.T) {
	ctx := context.Background()
	m := NewWithOptions()

	g, err := m.CreateGroup(ctx, "Admin", 100)
	require.NoError(t, err)
	require.Equal(t, "admin", g.Name)
	require.Equal(t, 100, g.Weight)
	require.NotNil(t, g.Holder)

	got, err := m.GetGroup(ctx, "ADMIN")
	require.NoError(t, err)
	require.Same(t, g, got)

	_, err = m.CreateGroup(ctx, "admin", 1)
	var alreadyHeld errtypes.IsAlreadyHeld
	require.ErrorAs(t, err, &alreadyHeld)

	_, err = m.GetGroup(ctx, "missing")
	var notFound errtypes.IsNotFound
	require.ErrorAs(t, err, &notFound)
}

func TestListGroups(t *testing.T) {
	ctx := context.Background()
	m := NewWithOptions()
	for _, name := range []string{"b", "a", "c"} {
		_, err := m.CreateGroup(ctx, name, 0)
		require.NoError(t, err)
	}

	groups, err := m.ListGroups(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 3)
	require.Equal(t, "a", groups[0].Name)
	require.Equal(t, "b", groups[1].Name)
	require.Equal(t, "c", groups[2].Name)
}

func TestGroupHolder(t *testing.T) {
	ctx := context.Background()
	m := NewWithOptions()
	g, err := m.CreateGroup(ctx, "vip", 0)
	require.NoError(t, err)

	h, ok := m.GroupHolder("VIP")
	require.True(t, ok)
	require.Same(t, g.Holder, h)

	_, ok = m.GroupHolder("missing")
	require.False(t, ok)
}

func TestDeleteGroup(t *testing.T) {
	ctx := context.Background()
	m := NewWithOptions()
	_, err := m.CreateGroup(ctx, "vip", 0)
	require.NoError(t, err)

	require.NoError(t, m.DeleteGroup(ctx, "vip"))
	var notFound errtypes.IsNotFound
	require.ErrorAs(t, m.DeleteGroup(ctx, "vip"), &notFound)

	_, ok := m.GroupHolder("vip")
	require.False(t, ok)
}

func TestNewFromConfig(t *testing.T) {
	ctx := context.Background()
	mgr, err := New(map[string]interface{}{"default_weight": 10})
	require.NoError(t, err)

	m, ok := mgr.(*Manager)
	require.True(t, ok)
	g, err := m.CreateGroup(ctx, "vip", 0)
	require.NoError(t, err)
	require.Equal(t, 10, g.Weight)
}
