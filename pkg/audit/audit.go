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

// Package audit sweeps temporary permissions. Expired nodes are already
// invisible to resolution; the sweeper physically removes them from the
// tracked holders so their sets stay bounded.
package audit

import (
	"context"
	"sync"
	"time"

	"github.com/oliverfjones0/permgraph/pkg/appctx"
)

// Auditable is the slice of the holder API the sweeper needs.
type Auditable interface {
	ObjectName() string
	AuditTemporaryPermissions() bool
}

// Sweeper periodically audits the temporary permissions of the holders it
// tracks. Start launches the background worker; Stop terminates it. Stop
// must be called at most once.
type Sweeper struct {
	mu      sync.Mutex
	holders map[string]Auditable

	interval time.Duration
	stop     chan struct{}
	started  bool
}

// NewSweeper returns a sweeper running every interval. An interval of zero
// or less disables the background worker; RunOnce still works.
func NewSweeper(interval time.Duration) *Sweeper {
	return &Sweeper{
		holders:  map[string]Auditable{},
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Track registers a holder for auditing. Re-tracking the same object name
// replaces the previous registration.
func (s *Sweeper) Track(h Auditable) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.holders[h.ObjectName()] = h
}

// Untrack removes a holder from auditing.
func (s *Sweeper) Untrack(objectName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.holders, objectName)
}

// RunOnce audits every tracked holder and returns how many of them had
// expired nodes removed.
func (s *Sweeper) RunOnce(ctx context.Context) int {
	s.mu.Lock()
	holders := make([]Auditable, 0, len(s.holders))
	for _, h := range s.holders {
		holders = append(holders, h)
	}
	s.mu.Unlock()

	log := appctx.GetLogger(ctx)
	swept := 0
	for _, h := range holders {
		if h.AuditTemporaryPermissions() {
			swept++
			log.Debug().Str("holder", h.ObjectName()).Msg("expired nodes removed")
		}
	}
	return swept
}

// Start launches the background worker. It is a no-op when the interval is
// not positive or the worker already runs.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.interval <= 0 || s.started {
		return
	}
	s.started = true

	ticker := time.NewTicker(s.interval)
	go func() {
		for {
			select {
			case <-ticker.C:
				s.RunOnce(ctx)
			case <-s.stop:
				ticker.Stop()
				return
			case <-ctx.Done():
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop terminates the background worker.
func (s *Sweeper) Stop() {
	close(s.stop)
}
