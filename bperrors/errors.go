// Copyright (C) 2018 spdfg
//
// This file is part of Elektron.
//
// Elektron is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Elektron is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Elektron.  If not, see <http://www.gnu.org/licenses/>.
//

// Package bperrors defines the error taxonomy the balancing core raises.
//
// Errors are distinguished by Kind rather than by Go type, so a caller
// can branch on a handful of known outcomes (fatal vs. recovered locally)
// without type-asserting each package's own error structs.
package bperrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind identifies one of the error taxonomy entries from the balancing
// core's failure semantics.
type Kind int

const (
	// ProtocolDesync: step counters disagree across descend/ascend in a
	// way no valid transition explains. Fatal.
	ProtocolDesync Kind = iota
	// InvalidPolicy: policy outside platform bounds, or all-zero. Fatal
	// at the boundary.
	InvalidPolicy
	// WrongRole: leaf method called on non-leaf role or vice versa.
	// Programming bug; fatal.
	WrongRole
	// TransientPlatform: a signal/control call failed once. Recovered
	// locally by dropping the sample.
	TransientPlatform
	// PlatformClipped: requested limit differed from actual. Recovered
	// locally by marking the package out-of-bounds.
	PlatformClipped
)

func (k Kind) String() string {
	switch k {
	case ProtocolDesync:
		return "ProtocolDesync"
	case InvalidPolicy:
		return "InvalidPolicy"
	case WrongRole:
		return "WrongRole"
	case TransientPlatform:
		return "TransientPlatform"
	case PlatformClipped:
		return "PlatformClipped"
	default:
		return "Unknown"
	}
}

// Fatal reports whether errors of this kind must surface to the
// controller rather than be handled locally.
func (k Kind) Fatal() bool {
	switch k {
	case ProtocolDesync, InvalidPolicy, WrongRole:
		return true
	default:
		return false
	}
}

// Error is the balancing core's error type: a Kind, diagnostic context
// enough for the controller to emit a useful message, and an optionally
// wrapped cause.
type Error struct {
	Kind    Kind
	Role    string
	Step    int
	Context map[string]interface{}
	cause   error
}

// New builds an Error of the given kind with a message, no wrapped cause.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, cause: errors.New(msg)}
}

// Wrap builds an Error of the given kind, wrapping cause with msg the
// way github.com/pkg/errors.Wrap does.
func Wrap(kind Kind, cause error, msg string) *Error {
	return &Error{Kind: kind, cause: errors.Wrap(cause, msg)}
}

// WithContext attaches role/step/diagnostic fields and returns the
// receiver for chaining at the call site.
func (e *Error) WithContext(role string, step int, ctx map[string]interface{}) *Error {
	e.Role = role
	e.Step = step
	e.Context = ctx
	return e
}

func (e *Error) Error() string {
	if e.Role == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.cause)
	}
	return fmt.Sprintf("%s (role=%s step=%d): %s", e.Kind, e.Role, e.Step, e.cause)
}

// Unwrap lets errors.Is/errors.As see through to the wrapped cause.
func (e *Error) Unwrap() error {
	return e.cause
}

// IsFatal reports whether err is a *Error whose Kind must be surfaced to
// the controller.
func IsFatal(err error) bool {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind.Fatal()
	}
	return false
}

// KindOf extracts the Kind of err if it is a *Error, and ok=false
// otherwise.
func KindOf(err error) (Kind, bool) {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind, true
	}
	return 0, false
}
