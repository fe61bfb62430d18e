package space

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors. Typed errors below unwrap to one of these so callers can
// use errors.Is without caring about the details.
var (
	ErrUnresolvedReference = errors.New("unresolved reference")
	ErrUnsupported         = errors.New("operator not supported by this backend")
	ErrDuplicateCondition  = errors.New("condition already set, use Either or Both to combine conditions")
	ErrDuplicateName       = errors.New("duplicate dimension name")
	ErrInvalidName         = errors.New("invalid dimension name")
	ErrInvalidDimension    = errors.New("invalid dimension")
	ErrFrozen              = errors.New("space is instantiated and can no longer be modified")
	ErrMissingVariable     = errors.New("missing variable")
	ErrRejected            = errors.New("no valid configuration found")
	ErrInvalidCount        = errors.New("sample count must not be negative")
	ErrInvalidCondition    = errors.New("invalid condition")
)

// ReferenceError is returned when a condition names a dimension that is not
// registered in the scope it is compiled in.
type ReferenceError struct {
	Ref       string
	Available []string
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("unresolved reference %q (available: %s)", e.Ref, strings.Join(e.Available, ", "))
}

func (e *ReferenceError) Unwrap() error { return ErrUnresolvedReference }

// UnsupportedError is returned at compile time when a backend has no
// rendering for an operator or a dimension feature.
type UnsupportedError struct {
	Backend string
	Feature string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("%s: operator not supported by the %s backend", e.Feature, e.Backend)
}

func (e *UnsupportedError) Unwrap() error { return ErrUnsupported }

// MissingVariableError lists every declared variable absent at sample time.
type MissingVariableError struct {
	Names []string
}

func (e *MissingVariableError) Error() string {
	return fmt.Sprintf("missing variables: %s", strings.Join(e.Names, ", "))
}

func (e *MissingVariableError) Unwrap() error { return ErrMissingVariable }

// UnknownBackendError is returned when an unregistered backend is requested.
type UnknownBackendError struct {
	Name      string
	Available []string
}

func (e *UnknownBackendError) Error() string {
	return fmt.Sprintf("unknown backend %q\nAvailable backends: %v", e.Name, e.Available)
}
