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
	"strconv"
	"strings"

	"github.com/oliverfjones0/permgraph/pkg/errtypes"
)

// The legacy serialized form encodes a node as a single string key, mapped
// to its boolean value in an export map:
//
//	[server[-world]/]permission[#key=value[;key=value...]][$expiry]
//
// A node scoped to a world but not a server uses the "global" sentinel for
// the server part. Tag keys and values must not contain '=', ';', '#' or
// '$'; permissions are dot-separated and must not contain '/'.

// ToSerializedNode renders the node as its legacy key. The value of the
// node is carried separately by the export map.
func (n Node) ToSerializedNode() string {
	var b strings.Builder
	if n.server != "" || n.world != "" {
		if n.server != "" {
			b.WriteString(n.server)
		} else {
			b.WriteString("global")
		}
		if n.world != "" {
			b.WriteByte('-')
			b.WriteString(n.world)
		}
		b.WriteByte('/')
	}
	b.WriteString(n.permission)
	if !n.context.IsEmpty() {
		b.WriteByte('#')
		for i, p := range n.context.pairs {
			if i > 0 {
				b.WriteByte(';')
			}
			b.WriteString(p.Key)
			b.WriteByte('=')
			b.WriteString(p.Value)
		}
	}
	if n.expiry != 0 {
		b.WriteByte('$')
		b.WriteString(strconv.FormatInt(n.expiry, 10))
	}
	return b.String()
}

// FromSerializedNode parses a legacy key back into a node. The round trip
// through ToSerializedNode preserves permission, value, server, world,
// context and expiry.
func FromSerializedNode(key string, value bool) (Node, error) {
	rest := key

	var expiry int64
	if i := strings.LastIndex(rest, "$"); i >= 0 {
		ts, err := strconv.ParseInt(rest[i+1:], 10, 64)
		if err != nil {
			return Node{}, errtypes.BadRequest("node: malformed expiry in " + key)
		}
		expiry = ts
		rest = rest[:i]
	}

	var tags []ContextPair
	if i := strings.LastIndex(rest, "#"); i >= 0 {
		for _, kv := range strings.Split(rest[i+1:], ";") {
			parts := strings.SplitN(kv, "=", 2)
			if len(parts) != 2 || parts[0] == "" {
				return Node{}, errtypes.BadRequest("node: malformed context tag in " + key)
			}
			tags = append(tags, ContextPair{Key: parts[0], Value: parts[1]})
		}
		rest = rest[:i]
	}

	var server, world string
	if i := strings.Index(rest, "/"); i >= 0 {
		scope := rest[:i]
		rest = rest[i+1:]
		parts := strings.SplitN(scope, "-", 2)
		server = parts[0]
		if len(parts) == 2 {
			world = parts[1]
		}
	}

	b := NewBuilder(rest, value).Server(server).World(world).ExpiresAt(expiry)
	for _, p := range tags {
		b.WithContext(p.Key, p.Value)
	}
	return b.Build()
}
