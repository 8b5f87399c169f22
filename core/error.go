// Copyright 2024 The Forge Authors. All rights reserved.

// Package core defines error kinds shared by every package in the
// rendering core (scene, traverse, material, transfer, taskgraph).
package core

import "fmt"

// Kind identifies the category of a Error.
type Kind int

const (
	// InvalidState means that an operation was attempted on a value
	// that is not in a state that allows it (double commit, method
	// call before finalize, and so on).
	InvalidState Kind = iota

	// IncompatibleArgument means that an argument belongs to, or
	// refers to, the wrong owner (e.g. an instance added through a
	// foreign manager).
	IncompatibleArgument

	// ResourceExhausted means that a resource allocation failed and
	// the caller opted out of waiting for space to free up.
	ResourceExhausted

	// DeviceError wraps a failure reported by the underlying GPU
	// API (a driver method returned a non-nil error).
	DeviceError

	// NotFound means that a lookup failed (e.g. a pipeline queried
	// before it was created).
	NotFound
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case InvalidState:
		return "invalid state"
	case IncompatibleArgument:
		return "incompatible argument"
	case ResourceExhausted:
		return "resource exhausted"
	case DeviceError:
		return "device error"
	case NotFound:
		return "not found"
	default:
		return "unknown"
	}
}

// Error is the typed error returned by the core packages.
type Error struct {
	Kind   Kind
	Prefix string
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s%s: %v", e.Prefix, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s%s", e.Prefix, e.Reason)
}

// Unwrap allows errors.Is/errors.As to see through to a wrapped
// driver error.
func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is a *Error with the same Kind, so
// errors.Is(err, &core.Error{Kind: core.NotFound}) matches any
// NotFound error in err's chain. A Kind is not itself an error; the
// equivalent errors.As pattern is:
//
//	var ce *core.Error
//	if errors.As(err, &ce) && ce.Kind == core.NotFound { ... }
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New creates a new Error of the given kind.
func New(kind Kind, prefix, reason string) *Error {
	return &Error{Kind: kind, Prefix: prefix, Reason: reason}
}

// Wrap creates a new Error of the given kind that wraps err.
func Wrap(kind Kind, prefix, reason string, err error) *Error {
	return &Error{Kind: kind, Prefix: prefix, Reason: reason, Err: err}
}
