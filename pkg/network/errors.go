package network

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Sentinel errors, one per failure class. Only ErrEmptyInput aborts a run;
// the others are recorded in diagnostics and processing continues.
var (
	ErrGeometry            = errors.New("geometry error")
	ErrInsufficientData    = errors.New("insufficient data")
	ErrUnresolvedHierarchy = errors.New("unresolved hierarchy")
	ErrInputInconsistency  = errors.New("input inconsistency")
	ErrEmptyInput          = errors.New("empty input")
)

// Error provides structured information about a recoverable condition.
type Error struct {
	Kind   error  // One of the sentinels above
	Op     string // Operation that detected it (e.g., "resolve", "classify")
	SiteID string // Site the condition belongs to, if any
	Ref    string // Offending reference (circuit, segment, endpoint)
	Cause  error  // Underlying error, if any
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Op, e.Kind)
	if e.SiteID != "" {
		msg += fmt.Sprintf(" (site %s)", e.SiteID)
	}
	if e.Ref != "" {
		msg += fmt.Sprintf(" (ref %s)", e.Ref)
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(": %v", e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause for error chain support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is this error's kind or matches its cause.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	if e.Kind == target {
		return true
	}
	return errors.Is(e.Cause, target)
}

// MarshalJSON renders the error as a flat diagnostics record.
func (e *Error) MarshalJSON() ([]byte, error) {
	rec := struct {
		Kind    string `json:"kind"`
		Op      string `json:"op"`
		SiteID  string `json:"site_id,omitempty"`
		Ref     string `json:"ref,omitempty"`
		Message string `json:"message"`
	}{
		Op:      e.Op,
		SiteID:  e.SiteID,
		Ref:     e.Ref,
		Message: e.Error(),
	}
	if e.Kind != nil {
		rec.Kind = e.Kind.Error()
	}
	return json.Marshal(rec)
}

// ErrorBuilder provides a fluent interface for building Errors.
type ErrorBuilder struct {
	err Error
}

// NewError creates a new error builder for the given kind and operation.
func NewError(kind error, op string) *ErrorBuilder {
	return &ErrorBuilder{err: Error{Kind: kind, Op: op}}
}

// Site sets the site the error belongs to.
func (b *ErrorBuilder) Site(id string) *ErrorBuilder {
	b.err.SiteID = id
	return b
}

// Ref sets the offending reference.
func (b *ErrorBuilder) Ref(ref string) *ErrorBuilder {
	b.err.Ref = ref
	return b
}

// Cause sets the underlying error cause.
func (b *ErrorBuilder) Cause(err error) *ErrorBuilder {
	b.err.Cause = err
	return b
}

// Build returns the constructed Error.
func (b *ErrorBuilder) Build() *Error {
	e := b.err
	return &e
}

// GeometryError reports a failed or degenerate geometric operation.
func GeometryError(op, siteID string, cause error) *Error {
	return NewError(ErrGeometry, op).Site(siteID).Cause(cause).Build()
}

// InconsistencyError reports a reference to something absent from the site table.
func InconsistencyError(op, siteID, ref string) *Error {
	return NewError(ErrInputInconsistency, op).Site(siteID).Ref(ref).Build()
}

// UnresolvedError reports a site whose parent search was exhausted.
func UnresolvedError(siteID string) *Error {
	return NewError(ErrUnresolvedHierarchy, "classify").Site(siteID).Build()
}

// IsRecoverable reports whether err is anything other than empty input.
func IsRecoverable(err error) bool {
	return err != nil && !errors.Is(err, ErrEmptyInput)
}
