// Package util provides utility functions and common error types.
package util

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors. Typed errors below unwrap to one of these so callers can
// match with errors.Is regardless of the detail carried.
var (
	ErrNotConnected       = errors.New("device session not connected")
	ErrUnrecognizedOS     = errors.New("unrecognized operating system")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrUnresolvedBuild    = errors.New("unresolved build version")
	ErrMissingKey         = errors.New("missing list key")
	ErrUnknownOSType      = errors.New("unknown OS type")
	ErrPreconditionFailed = errors.New("precondition not met")
	ErrValidationFailed   = errors.New("validation failed")
	ErrParse              = errors.New("unparseable device response")
	ErrDeviceLocked       = errors.New("device locked by another job")
)

// UnrecognizedOSError is returned when a system description matches none of
// the supported OS families. No device model can be built.
type UnrecognizedOSError struct {
	SysDescr string
}

func (e *UnrecognizedOSError) Error() string {
	return fmt.Sprintf("unable to determine OS from system description %q", e.SysDescr)
}

func (e *UnrecognizedOSError) Unwrap() error {
	return ErrUnrecognizedOS
}

// PermissionError is returned when a system-scoped operation is attempted
// from a security context that cannot reach the system context.
type PermissionError struct {
	Operation string
	Context   string
}

func (e *PermissionError) Error() string {
	if e.Context == "" {
		return fmt.Sprintf("%s: not permitted from a non-admin context", e.Operation)
	}
	return fmt.Sprintf("%s: not permitted from non-admin context %q", e.Operation, e.Context)
}

func (e *PermissionError) Unwrap() error {
	return ErrPermissionDenied
}

// UnresolvedBuildError is returned when an INSTALL-mode manifest yields no
// build version by any strategy.
type UnresolvedBuildError struct {
	Image string
}

func (e *UnresolvedBuildError) Error() string {
	return fmt.Sprintf("unable to resolve build version from manifest %s", e.Image)
}

func (e *UnresolvedBuildError) Unwrap() error {
	return ErrUnresolvedBuild
}

// MissingKeyError is returned when the authorized-list key is absent, still
// the placeholder default, or does not resolve in the list store.
type MissingKeyError struct {
	List   string
	Key    string
	Reason string
}

func (e *MissingKeyError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("list %q: %s", e.List, e.Reason)
	}
	return fmt.Sprintf("list %q key %q: %s", e.List, e.Key, e.Reason)
}

func (e *MissingKeyError) Unwrap() error {
	return ErrMissingKey
}

// UnknownOSTypeError is returned when a per-family table has no entry for
// the given family.
type UnknownOSTypeError struct {
	Family string
}

func (e *UnknownOSTypeError) Error() string {
	return fmt.Sprintf("unknown OS type %q", e.Family)
}

func (e *UnknownOSTypeError) Unwrap() error {
	return ErrUnknownOSType
}

// ParseError reports a required field missing from a command response.
type ParseError struct {
	Command string
	What    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s from %q output", e.What, e.Command)
}

func (e *ParseError) Unwrap() error {
	return ErrParse
}

// NewParseError creates a parse error
func NewParseError(command, what string) *ParseError {
	return &ParseError{Command: command, What: what}
}

// PreconditionError represents a failed precondition check with context
type PreconditionError struct {
	Operation    string
	Resource     string
	Precondition string
	Details      string
}

func (e *PreconditionError) Error() string {
	msg := fmt.Sprintf("precondition failed for %s on %s: %s", e.Operation, e.Resource, e.Precondition)
	if e.Details != "" {
		msg += " (" + e.Details + ")"
	}
	return msg
}

func (e *PreconditionError) Unwrap() error {
	return ErrPreconditionFailed
}

// NewPreconditionError creates a new precondition error
func NewPreconditionError(operation, resource, precondition, details string) *PreconditionError {
	return &PreconditionError{
		Operation:    operation,
		Resource:     resource,
		Precondition: precondition,
		Details:      details,
	}
}

// ValidationError represents one or more validation failures
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return "validation failed: " + e.Errors[0]
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

// ValidationBuilder helps accumulate validation errors
type ValidationBuilder struct {
	errors []string
}

// Add adds an error message if condition is false
func (v *ValidationBuilder) Add(condition bool, message string) *ValidationBuilder {
	if !condition {
		v.errors = append(v.errors, message)
	}
	return v
}

// AddErrorf adds a formatted error message
func (v *ValidationBuilder) AddErrorf(format string, args ...interface{}) *ValidationBuilder {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
	return v
}

// HasErrors returns true if there are validation errors
func (v *ValidationBuilder) HasErrors() bool {
	return len(v.errors) > 0
}

// Build returns the validation error or nil if no errors
func (v *ValidationBuilder) Build() error {
	if len(v.errors) == 0 {
		return nil
	}
	return &ValidationError{Errors: v.errors}
}
