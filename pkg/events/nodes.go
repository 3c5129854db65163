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

package events

import (
	"encoding/json"
)

// NodeSet is emitted when a node was added to a holder.
type NodeSet struct {
	Holder string
	// Node is the legacy serialized key of the node.
	Node  string
	Value bool
}

// Unmarshal to fulfill unmarshaller interface
func (NodeSet) Unmarshal(v []byte) (interface{}, error) {
	e := NodeSet{}
	err := json.Unmarshal(v, &e)
	return e, err
}

// NodeUnset is emitted when a node was removed from a holder.
type NodeUnset struct {
	Holder string
	Node   string
	Value  bool
}

// Unmarshal to fulfill unmarshaller interface
func (NodeUnset) Unmarshal(v []byte) (interface{}, error) {
	e := NodeUnset{}
	err := json.Unmarshal(v, &e)
	return e, err
}

// NodeExpire is emitted for every temporary node an audit pass removed.
type NodeExpire struct {
	Holder string
	Node   string
	Value  bool
}

// Unmarshal to fulfill unmarshaller interface
func (NodeExpire) Unmarshal(v []byte) (interface{}, error) {
	e := NodeExpire{}
	err := json.Unmarshal(v, &e)
	return e, err
}

// GroupAdd is emitted when a holder starts inheriting a group.
type GroupAdd struct {
	Holder string
	Group  string
	Server string
	World  string
	// ExpireAt is the unix expiry of the membership, zero when permanent.
	ExpireAt int64
}

// Unmarshal to fulfill unmarshaller interface
func (GroupAdd) Unmarshal(v []byte) (interface{}, error) {
	e := GroupAdd{}
	err := json.Unmarshal(v, &e)
	return e, err
}

// GroupRemove is emitted when a holder stops inheriting a group.
type GroupRemove struct {
	Holder    string
	Group     string
	Server    string
	World     string
	Temporary bool
}

// Unmarshal to fulfill unmarshaller interface
func (GroupRemove) Unmarshal(v []byte) (interface{}, error) {
	e := GroupRemove{}
	err := json.Unmarshal(v, &e)
	return e, err
}
