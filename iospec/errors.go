package iospec

import "errors"

// Name and structure errors raised while building or applying I/O mapping
// specifications. They are wrapped with context; match with errors.Is.
var (
	// ErrRedefinedName: a name is declared twice in the same scope
	// (input parameters, loop variables, top-level output names).
	ErrRedefinedName = errors.New("name is already defined")

	// ErrUndefinedName: a variable or top-level name is used but not bound
	// at that point.
	ErrUndefinedName = errors.New("name is not defined")

	// ErrCircularReference: &references between top-level output names form
	// a cycle.
	ErrCircularReference = errors.New("circular reference")

	// ErrDuplicateKey: a dictionary expression produced the same key twice.
	ErrDuplicateKey = errors.New("duplicate dictionary key")

	// ErrInvalidIndices: a sequence expression's index values do not form
	// the exact range 0..n-1.
	ErrInvalidIndices = errors.New("invalid sequence indices")
)
