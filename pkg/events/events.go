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

// Package events provides the mutation events the engine emits and the
// publish/consume plumbing to move them over a stream. Delivery is advisory:
// loss or reordering never affects engine correctness.
package events

import (
	"log"
	"reflect"

	"go-micro.dev/v4/events"
)

var (
	// MainQueueName is the name of the main queue.
	// All events go through here and are forwarded to consumers by group name.
	MainQueueName = "permgraph-events"

	// MetadatakeyEventType is the key used for the event type in the
	// metadata map of the event.
	MetadatakeyEventType = "eventtype"
)

// Unmarshaller is the interface events need to fulfill.
type Unmarshaller interface {
	Unmarshal([]byte) (interface{}, error)
}

// Consume returns a channel that will get all events emitted by the system.
// group defines the service type: one group gets exactly one copy of an
// emitted event.
func Consume(group string, s events.Stream) (<-chan interface{}, error) {
	c, err := s.Consume(MainQueueName, events.WithGroup(group))
	if err != nil {
		return nil, err
	}

	outchan := make(chan interface{})
	go func() {
		for {
			e := <-c

			et := e.Metadata[MetadatakeyEventType]
			event, err := UnmarshalEvent(et, e.Payload)
			if err != nil {
				log.Printf("can't unmarshal event %v", err)
				continue
			}

			outchan <- event
		}
	}()
	return outchan, nil
}

// Publish publishes ev to the main queue from where it is distributed to all
// subscribers.
// NOTE: needs to use reflect on runtime.
func Publish(ev interface{}, s events.Stream) error {
	evName := reflect.TypeOf(ev).String()
	return s.Publish(MainQueueName, ev, events.WithMetadata(map[string]string{
		MetadatakeyEventType: evName,
	}))
}

// registeredEvents maps event type names to their unmarshallers.
var registeredEvents = map[string]Unmarshaller{}

func init() {
	for _, e := range []Unmarshaller{
		NodeSet{},
		NodeUnset{},
		NodeExpire{},
		GroupAdd{},
		GroupRemove{},
	} {
		registeredEvents[reflect.TypeOf(e).String()] = e
	}
}

// UnmarshalEvent reconstructs an event from its type name and payload.
func UnmarshalEvent(typ string, payload []byte) (interface{}, error) {
	u, ok := registeredEvents[typ]
	if !ok {
		return nil, errUnknownEvent(typ)
	}
	return u.Unmarshal(payload)
}

type errUnknownEvent string

func (e errUnknownEvent) Error() string { return "events: unknown event type " + string(e) }
