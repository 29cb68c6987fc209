// Package apperr defines the language-neutral error taxonomy shared by the
// compiler, runtime, version, snapshot, and deployment services.
package apperr

import "errors"

var (
	// ErrValidation indicates structurally invalid input: a missing
	// required field or an unknown enum value.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound indicates the referenced entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a uniqueness or state-precondition failure,
	// such as a duplicate snapshot name or a forbidden status transition.
	ErrConflict = errors.New("conflict")
	// ErrPreconditionFailed indicates an approval gate, checks gate, or
	// missing rollback target blocked the requested transition.
	ErrPreconditionFailed = errors.New("precondition failed")
	// ErrIntegrity indicates a checksum mismatch was detected on retrieval.
	ErrIntegrity = errors.New("integrity error")
	// ErrIO indicates an underlying storage failure.
	ErrIO = errors.New("io error")
)
