// Copyright 2025 Blink Labs Software
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

// Package auth checks that a claimed principal authorized the call being made
package auth

import (
	"errors"
	"fmt"

	"github.com/stellar/go/strkey"
)

var ErrInvalidPrincipal = errors.New("invalid principal")

// Authorizer verifies a principal. A nil error means the principal may act.
type Authorizer interface {
	Authorize(principal string) error
}

// AuthorizerFunc adapts a function to the Authorizer interface
type AuthorizerFunc func(principal string) error

func (f AuthorizerFunc) Authorize(principal string) error {
	return f(principal)
}

// AllowAll accepts any non-empty principal
var AllowAll Authorizer = AuthorizerFunc(func(principal string) error {
	if principal == "" {
		return ErrInvalidPrincipal
	}
	return nil
})

// StrkeyAuthorizer accepts principals that decode as a Stellar account
// (G...) or contract (C...) address. Signature checks belong to the host.
type StrkeyAuthorizer struct{}

func (StrkeyAuthorizer) Authorize(principal string) error {
	if principal == "" {
		return ErrInvalidPrincipal
	}
	if strkey.IsValidEd25519PublicKey(principal) {
		return nil
	}
	if _, err := strkey.Decode(strkey.VersionByteContract, principal); err == nil {
		return nil
	}
	return fmt.Errorf("%w: %q is not a Stellar address", ErrInvalidPrincipal, principal)
}
