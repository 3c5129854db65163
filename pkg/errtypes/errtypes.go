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

// Package errtypes contains definitions for common errors.
// It would have been nice to call this package errors, err or error
// but errors clashes with github.com/pkg/errors, err is used for any error
// variable and error is a reserved word :)
package errtypes

// AlreadyHeld is the error to use when a permission node is already held.
type AlreadyHeld string

func (e AlreadyHeld) Error() string { return "error: already held: " + string(e) }

// IsAlreadyHeld implements the IsAlreadyHeld interface.
func (e AlreadyHeld) IsAlreadyHeld() {}

// NotHeld is the error to use when a permission node is not held.
type NotHeld string

func (e NotHeld) Error() string { return "error: not held: " + string(e) }

// IsNotHeld implements the IsNotHeld interface.
func (e NotHeld) IsNotHeld() {}

// NotFound is the error to use when a resource is not found.
type NotFound string

func (e NotFound) Error() string { return "error: not found: " + string(e) }

// IsNotFound implements the IsNotFound interface.
func (e NotFound) IsNotFound() {}

// NotSupported is the error to use when an action is not supported.
type NotSupported string

func (e NotSupported) Error() string { return "error: not supported: " + string(e) }

// IsNotSupported implements the IsNotSupported interface.
func (e NotSupported) IsNotSupported() {}

// BadRequest is the error to use when the input is malformed.
type BadRequest string

func (e BadRequest) Error() string { return "error: bad request: " + string(e) }

// IsBadRequest implements the IsBadRequest interface.
func (e BadRequest) IsBadRequest() {}

// IsAlreadyHeld is the interface to implement
// to specify that a node is already held.
type IsAlreadyHeld interface {
	IsAlreadyHeld()
}

// IsNotHeld is the interface to implement
// to specify that a node is not held.
type IsNotHeld interface {
	IsNotHeld()
}

// IsNotFound is the interface to implement
// to specify that a resource is not found.
type IsNotFound interface {
	IsNotFound()
}

// IsNotSupported is the interface to implement
// to specify that an action is not supported.
type IsNotSupported interface {
	IsNotSupported()
}

// IsBadRequest is the interface to implement
// to specify that the input is malformed.
type IsBadRequest interface {
	IsBadRequest()
}
