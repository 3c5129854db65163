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

// Tristate is the outcome of a permission lookup. A lookup that matches no
// node is Undefined, which is distinct from an explicit False.
type Tristate int

const (
	// Undefined means no node matched the lookup.
	Undefined Tristate = iota
	// True means the matching node grants the permission.
	True
	// False means the matching node explicitly denies the permission.
	False
)

// TristateOf converts a boolean node value to the corresponding Tristate.
func TristateOf(b bool) Tristate {
	if b {
		return True
	}
	return False
}

// AsBoolean collapses the tristate to a boolean. Undefined collapses to
// false, like False does.
func (t Tristate) AsBoolean() bool {
	return t == True
}

func (t Tristate) String() string {
	switch t {
	case True:
		return "true"
	case False:
		return "false"
	default:
		return "undefined"
	}
}
