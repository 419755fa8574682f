package storage

import "errors"

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict reports a write that would break a uniqueness rule, such
	// as two players sharing a nickname.
	ErrConflict = errors.New("conflict")
)
