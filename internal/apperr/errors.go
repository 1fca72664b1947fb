// Package apperr holds the sentinel errors shared by the stores and transports.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidInput marks malformed caller input: bad backup JSON,
	// unparsable front matter, invalid names.
	ErrInvalidInput = errors.New("invalid input")
	// ErrConstraint marks a rejected mutation that would break a store
	// invariant, such as a duplicate series index.
	ErrConstraint = errors.New("constraint violation")
)
