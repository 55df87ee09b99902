// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package gnmi

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
)

// Path and payload errors. Use errors.Is to classify a returned error.
var (
	// ErrMalformedPath reports a structurally invalid path string
	ErrMalformedPath = errors.New("malformed path")

	// ErrUnhandledValueType reports a JSON value the flattener cannot classify
	ErrUnhandledValueType = errors.New("unhandled value type")

	// ErrConflict reports a path that is both updated and deleted in one notification
	ErrConflict = errors.New("path both updated and deleted")

	// ErrBranchAmbiguity reports a notification whose prefix and update paths
	// both carry an origin
	ErrBranchAmbiguity = errors.New("ambiguous origin")
)

// PathError describes where parsing a path string failed
type PathError struct {
	// Path is the input as given by the caller
	Path string

	// Offset is the byte offset of the offending token, -1 when the
	// failure is detected at end of input
	Offset int

	// Reason is a short description of the failure
	Reason string
}

// Error implements the error interface
func (e *PathError) Error() string {
	if e.Offset < 0 {
		return fmt.Sprintf("malformed path %q: %s", e.Path, e.Reason)
	}
	return fmt.Sprintf("malformed path %q at offset %d: %s", e.Path, e.Offset, e.Reason)
}

// Unwrap allows errors.Is(err, ErrMalformedPath)
func (e *PathError) Unwrap() error {
	return ErrMalformedPath
}

// ConflictError reports a path present in both the update and delete set of
// a notification
type ConflictError struct {
	Path string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("deleted path %s also present in updates", e.Path)
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}

// GnmiError is returned by client RPCs that failed at the device, after
// all retries
type GnmiError struct {
	Operation string

	// Errors holds the gRPC status of the last attempt
	Errors []ErrorModel

	// Message is safe to show to users
	Message string

	// InternalMsg carries the full error text for debug logs
	InternalMsg string

	// Retries is the number of attempts after the first one
	Retries int

	// IsTransient reports whether the last error had a transient code
	IsTransient bool

	// Err is the last error returned by the transport
	Err error
}

func (e *GnmiError) Error() string {
	if e.Retries > 0 {
		return fmt.Sprintf("gnmi: %s failed: %s (retries: %d)", e.Operation, e.Message, e.Retries)
	}
	return fmt.Sprintf("gnmi: %s failed: %s", e.Operation, e.Message)
}

// DetailedError includes InternalMsg. Keep it out of user facing output.
func (e *GnmiError) DetailedError() string {
	if e.InternalMsg == "" {
		return e.Error()
	}
	if e.Retries > 0 {
		return fmt.Sprintf("gnmi: %s failed: %s (internal: %s, retries: %d)",
			e.Operation, e.Message, e.InternalMsg, e.Retries)
	}
	return fmt.Sprintf("gnmi: %s failed: %s (internal: %s)",
		e.Operation, e.Message, e.InternalMsg)
}

func (e *GnmiError) Unwrap() error {
	return e.Err
}

// ErrorModel is one error of a response, with its gRPC status code
type ErrorModel struct {
	Code    uint32
	Message string
	Details string
}

// TransientError is a gRPC status code worth retrying
type TransientError struct {
	Code uint32
}

// TransientErrors lists the retried gRPC codes. codes.Internal is not
// retried since it also covers permanent failures.
var TransientErrors = []TransientError{
	{Code: uint32(codes.Unavailable)},
	{Code: uint32(codes.ResourceExhausted)},
	{Code: uint32(codes.DeadlineExceeded)},
	{Code: uint32(codes.Aborted)},
}
