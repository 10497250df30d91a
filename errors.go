package aspio

import "errors"

var (
	// ErrNoAnswerSet is returned by SolveOne when the program is
	// inconsistent.
	ErrNoAnswerSet = errors.New("program has no answer set")

	// ErrRedefinedInput is returned when appended code carries an INPUT
	// statement and the program already has one.
	ErrRedefinedInput = errors.New("INPUT specification is already defined")

	// ErrRedefinedOutput is the OUTPUT counterpart of ErrRedefinedInput.
	ErrRedefinedOutput = errors.New("OUTPUT specification is already defined")
)
