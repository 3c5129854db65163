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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestContextSet(t *testing.T) {
	s := NewContextSet().
		With("realm", "eu").
		With("realm", "us").
		With("gamemode", "creative")

	require.Equal(t, 3, s.Size())
	require.True(t, s.Has("realm", "eu"))
	require.False(t, s.Has("realm", "asia"))
	require.ElementsMatch(t, []string{"eu", "us"}, s.Values("realm"))

	// duplicates are dropped
	require.Equal(t, 3, s.With("realm", "eu").Size())

	// the original set is untouched by With
	bigger := s.With("realm", "asia")
	require.Equal(t, 3, s.Size())
	require.Equal(t, 4, bigger.Size())
}

func TestContextSetWithout(t *testing.T) {
	s := NewContextSet(
		ContextPair{Key: "server", Value: "s1"},
		ContextPair{Key: "world", Value: "nether"},
		ContextPair{Key: "realm", Value: "eu"},
	)
	stripped := s.Without("server", "world")
	require.Equal(t, 1, stripped.Size())
	require.True(t, stripped.Has("realm", "eu"))
}

func TestContextSetIsSatisfiedBy(t *testing.T) {
	sub := NewContextSet(ContextPair{Key: "realm", Value: "eu"})
	super := sub.With("gamemode", "creative")

	require.True(t, sub.IsSatisfiedBy(super))
	require.False(t, super.IsSatisfiedBy(sub))
	require.True(t, ContextSet{}.IsSatisfiedBy(sub))
	require.True(t, ContextSet{}.IsSatisfiedBy(ContextSet{}))
}

func TestContextSetEquals(t *testing.T) {
	a := NewContextSet(
		ContextPair{Key: "b", Value: "2"},
		ContextPair{Key: "a", Value: "1"},
	)
	b := NewContextSet(
		ContextPair{Key: "a", Value: "1"},
		ContextPair{Key: "b", Value: "2"},
	)
	require.True(t, a.Equals(b))
	require.False(t, a.Equals(a.With("c", "3")))
}

func TestContextsReservedKeys(t *testing.T) {
	c := AllowAll().WithContext(NewContextSet(
		ContextPair{Key: "server", Value: "s1"},
		ContextPair{Key: "world", Value: "nether"},
		ContextPair{Key: "realm", Value: "eu"},
	))

	require.Equal(t, "s1", c.Server())
	require.Equal(t, "nether", c.World())

	tags := c.TagsOnly()
	require.Equal(t, 1, tags.Size())
	require.True(t, tags.Has("realm", "eu"))
}

func TestAllowAll(t *testing.T) {
	c := AllowAll()
	require.True(t, c.ApplyGroups)
	require.True(t, c.ApplyGlobalGroups)
	require.True(t, c.ApplyGlobalWorldGroups)
	require.True(t, c.IncludeGlobal)
	require.True(t, c.IncludeGlobalWorld)
	require.Empty(t, c.Server())
	require.Empty(t, c.World())
}
