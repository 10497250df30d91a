// Package solver runs ASP programs and streams back their answer sets.
//
// Dlvhex2 drives the external dlvhex2 process and covers the full language.
// Mangle evaluates definite programs in-process on the Google Mangle engine
// and needs no external binary.
package solver

import (
	"context"
	"io"

	"aspio/asp"
)

// Options are per-call solver settings.
type Options struct {
	// MaxAnswerSets limits how many answer sets the solver computes.
	// 0 means all of them.
	MaxAnswerSets int
	// MaxInt bounds the integer domain. 0 means the solver default.
	MaxInt int
	// Capture lists extra predicates to report beyond the ones the output
	// mapping needs.
	Capture []string
	// Custom is appended verbatim to the solver command line. Ignored by
	// in-process backends.
	Custom []string
}

// Job is one solver invocation: the program text, the predicates whose atoms
// must be reported, and additional program files to load.
type Job struct {
	// WriteProgram writes the ASP program (facts, generated rules, inline
	// code) to the solver's input.
	WriteProgram func(w io.Writer) error
	// Capture lists the predicates the caller needs in the answer sets.
	Capture []string
	// FileArgs are paths of program files passed to the solver unchanged.
	FileArgs []string
	Options  Options
}

// AnswerSets streams the answer sets of one solver run. Next returns io.EOF
// after the last answer set. Close releases the underlying resources and may
// be called at any point; further Next calls return io.EOF.
type AnswerSets interface {
	Next() (asp.AnswerSet, error)
	Close() error
}

// Solver runs ASP programs.
type Solver interface {
	Run(ctx context.Context, job Job) (AnswerSets, error)
}

// capturePredicates merges the job's mapping predicates with the caller's
// extra capture option.
func capturePredicates(job Job) []string {
	preds := append([]string(nil), job.Capture...)
	return append(preds, job.Options.Capture...)
}
