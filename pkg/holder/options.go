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
	microevents "go-micro.dev/v4/events"

	"github.com/oliverfjones0/permgraph/pkg/clock"
)

// Option configures a Holder.
type Option func(*Holder)

// WithRegistry sets the registry used to resolve inherited groups. Without a
// registry, resolution sees only the holder's own nodes.
func WithRegistry(r Registry) Option {
	return func(h *Holder) {
		h.registry = r
	}
}

// WithStream sets the stream mutation events are published to. Without a
// stream, no events are emitted.
func WithStream(s microevents.Stream) Option {
	return func(h *Holder) {
		h.stream = s
	}
}

// WithClock sets the time source used for expiry decisions.
func WithClock(c clock.Clock) Option {
	return func(h *Holder) {
		h.clk = c
	}
}

// WithShorthand enables shorthand expansion during export.
func WithShorthand(enabled bool) Option {
	return func(h *Holder) {
		h.applyingShorthand = enabled
	}
}

// WithRegex enables regex matching of server and world declarations.
func WithRegex(enabled bool) Option {
	return func(h *Holder) {
		h.applyingRegex = enabled
	}
}
