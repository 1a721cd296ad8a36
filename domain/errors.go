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

// Package domain holds the error taxonomy shared by the registry, deployment
// and review subsystems.
package domain

import (
	"errors"
	"fmt"

	"github.com/blinklabs-io/bazaar/database/types"
)

// Error kinds. Match them with errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("conflict")
	ErrOverflow     = errors.New("overflow")
)

// Code is the numeric error code reported by a subsystem. Codes are only
// unique within one subsystem.
type Code uint32

// Registry codes
const (
	CodeRegistryContractNotFound   Code = 2
	CodeRegistryUnauthorizedUpdate Code = 3
	CodeRegistryInvalidMetadata    Code = 4
	CodeRegistryInvalidWasmHash    Code = 5

	// Reported when the auditor fails authorization
	CodeRegistryUnauthorizedVerification Code = 6
)

// Deployment codes
const (
	CodeDeploymentContractNotFound   Code = 1
	CodeDeploymentFailed             Code = 2
	CodeDeploymentInvalidParameters  Code = 3
	CodeDeploymentInvalidWasmHash    Code = 4
	CodeDeploymentUnauthorizedAccess Code = 5
)

// Review codes
const (
	CodeReviewInvalidRating      Code = 1
	CodeReviewAlreadyReviewed    Code = 2
	CodeReviewNotFound           Code = 3
	CodeReviewEmptyComment       Code = 4
	CodeReviewCommentTooLong     Code = 5
	CodeReviewUnauthorizedAction Code = 6
	CodeReviewAlreadyVoted       Code = 7
)

// Error is a failure of a subsystem operation. Kind is one of the Err*
// sentinels, or nil when the failure is not classified (a failed
// instantiation, for example).
type Error struct {
	Kind error
	Code Code
	Op   string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Op
	if e.Kind != nil {
		msg += ": " + e.Kind.Error()
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Code != 0 {
		msg += fmt.Sprintf(" (code %d)", e.Code)
	}
	return msg
}

func (e *Error) Unwrap() []error {
	ret := make([]error, 0, 2)
	if e.Kind != nil {
		ret = append(ret, e.Kind)
	}
	if e.Err != nil {
		ret = append(ret, e.Err)
	}
	return ret
}

func newError(kind error, code Code, op string, format string, args ...any) *Error {
	e := &Error{Kind: kind, Code: code, Op: op}
	if format != "" {
		e.Err = fmt.Errorf(format, args...)
	}
	return e
}

func NotFound(code Code, op string, format string, args ...any) *Error {
	return newError(ErrNotFound, code, op, format, args...)
}

func InvalidInput(code Code, op string, format string, args ...any) *Error {
	return newError(ErrInvalidInput, code, op, format, args...)
}

func Unauthorized(code Code, op string, format string, args ...any) *Error {
	return newError(ErrUnauthorized, code, op, format, args...)
}

func Conflict(code Code, op string, format string, args ...any) *Error {
	return newError(ErrConflict, code, op, format, args...)
}

// Failed wraps an error from an external capability under code, leaving the
// kind unset
func Failed(code Code, op string, err error) *Error {
	return &Error{Code: code, Op: op, Err: err}
}

// Storage converts an error raised by the database layer. Counter exhaustion
// becomes ErrOverflow and a lost optimistic write race becomes ErrConflict.
// Any domain error is returned unchanged. Everything else is wrapped with op.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	var de *Error
	switch {
	case errors.As(err, &de):
		return err
	case errors.Is(err, types.ErrCounterOverflow):
		return &Error{Kind: ErrOverflow, Op: op, Err: err}
	case errors.Is(err, types.ErrTxnConflict):
		return &Error{Kind: ErrConflict, Op: op, Err: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// CodeOf returns the code carried by the first domain error in err's chain
func CodeOf(err error) (Code, bool) {
	var de *Error
	if errors.As(err, &de) && de.Code != 0 {
		return de.Code, true
	}
	return 0, false
}
