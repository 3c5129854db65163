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
	"sync"
	"sync/atomic"
)

// snapshot memoizes an immutable value derived by a pure load function.
// get returns the cached value or computes it, with at most one concurrent
// computation per instance. A value computed from state that was invalidated
// mid-compute is returned to the caller but never cached, so later readers
// observe either a fully built post-invalidation value or trigger a fresh
// compute themselves.
type snapshot[T any] struct {
	mu   sync.Mutex
	gen  atomic.Uint64
	val  atomic.Pointer[T]
	load func() T
}

func newSnapshot[T any](load func() T) *snapshot[T] {
	return &snapshot[T]{load: load}
}

func (s *snapshot[T]) get() T {
	if p := s.val.Load(); p != nil {
		return *p
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if p := s.val.Load(); p != nil {
		return *p
	}
	gen := s.gen.Load()
	v := s.load()
	if s.gen.Load() == gen {
		s.val.Store(&v)
	}
	return v
}

func (s *snapshot[T]) invalidate() {
	s.gen.Add(1)
	s.val.Store(nil)
}
