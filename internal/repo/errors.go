package repo

import "errors"

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an optimistic status check failed because a
// concurrent writer got there first. Callers should re-read and retry.
var ErrConflict = errors.New("conflict")

// ErrDuplicate is returned when an insert hit a uniqueness constraint, such
// as two records drawing the same code.
var ErrDuplicate = errors.New("duplicate")
