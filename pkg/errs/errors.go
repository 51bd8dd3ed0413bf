// Copyright 2026 fanjia1024
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

// Package errs provides the sentinel errors and wrapping helpers shared
// across the runtime. It has no dependency on any other internal package
// so that every layer, including the ones errs itself is checked against,
// can import it without a cycle.
package errs

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the mode, scope, approval and lifecycle
// layers. Callers should compare against these with errors.Is, not string
// matching, since they are frequently wrapped with task/event context.
var (
	// ErrInvariantViolation marks a bug: code tried to put the system in a
	// state the reducer or a manager's own invariants forbid.
	ErrInvariantViolation = errors.New("errs: invariant violation")

	// ErrModeViolation is returned when an action is attempted in a mode or
	// stage the permission matrix does not allow.
	ErrModeViolation = errors.New("errs: action not permitted in current mode")

	// ErrScopeBlocked is returned when an action would exceed the task's
	// current scope contract and no expansion has been granted.
	ErrScopeBlocked = errors.New("errs: action exceeds granted scope")

	// ErrApprovalDenied is returned when a pending approval request is
	// resolved with anything other than approval or an edit request.
	ErrApprovalDenied = errors.New("errs: approval denied")

	// ErrNotFound is returned when a lookup by ID fails.
	ErrNotFound = errors.New("errs: not found")

	// ErrInvalidArgument is returned for malformed caller input.
	ErrInvalidArgument = errors.New("errs: invalid argument")
)

// Wrap wraps err with a message, preserving it for errors.Is/As. Returns
// nil if err is nil so call sites can wrap unconditionally.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf is Wrap with a formatted message.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
