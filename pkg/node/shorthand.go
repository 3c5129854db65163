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

import "strings"

// ResolveShorthand expands "(a|b|c)" alternation segments of the permission
// into the concrete strings they imply. A permission without alternation
// segments expands to nothing. The original pattern string is not part of
// the result.
func (n Node) ResolveShorthand() []string {
	segments := strings.Split(n.permission, ".")
	found := false
	options := make([][]string, len(segments))
	for i, seg := range segments {
		if isAlternation(seg) {
			options[i] = strings.Split(seg[1:len(seg)-1], "|")
			found = true
		} else {
			options[i] = []string{seg}
		}
	}
	if !found {
		return nil
	}

	expanded := []string{""}
	for i, opts := range options {
		next := make([]string, 0, len(expanded)*len(opts))
		for _, prefix := range expanded {
			for _, opt := range opts {
				if i == 0 {
					next = append(next, opt)
				} else {
					next = append(next, prefix+"."+opt)
				}
			}
		}
		expanded = next
	}
	return expanded
}

func isAlternation(segment string) bool {
	return strings.HasPrefix(segment, "(") &&
		strings.HasSuffix(segment, ")") &&
		strings.Contains(segment, "|")
}
