// Package aspio embeds Answer Set Programming in Go programs: it marshals Go
// values into ASP facts, runs a solver, and maps the answer sets back to Go
// objects, driven by INPUT and OUTPUT annotations written as %! comments in
// the ASP source.
package aspio

import (
	"context"
	"fmt"
	"io"
	"os"
	"reflect"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"aspio/asp"
	"aspio/iospec"
	"aspio/parser"
	"aspio/registry"
	"aspio/solver"
)

// Program is an ASP program plus its I/O specifications. Configure the
// exported fields before the first Solve call; a Program is not safe for
// concurrent mutation.
type Program struct {
	// Registry resolves the constructors named in OUTPUT expressions. New
	// forks the process-wide default registry, so per-program registrations
	// stay local.
	Registry *registry.Registry
	// Solver runs the program. Nil means dlvhex2 from $PATH.
	Solver solver.Solver
	// Options are passed to the solver on every Solve call.
	Options solver.Options
	Logger  *zap.Logger

	input  *iospec.InputSpec
	output *iospec.OutputSpec
	code   []string
	files  []string
}

// New returns an empty program.
func New() *Program {
	return &Program{
		Registry: registry.Default().Clone(),
		Logger:   zap.NewNop(),
	}
}

// NewFromCode returns a program initialized with inline ASP code.
func NewFromCode(code string) (*Program, error) {
	p := New()
	if err := p.AppendCode(code); err != nil {
		return nil, err
	}
	return p, nil
}

// NewFromFile returns a program initialized from an ASP file.
func NewFromFile(path string) (*Program, error) {
	p := New()
	if err := p.AppendFile(path); err != nil {
		return nil, err
	}
	return p, nil
}

// AppendCode adds inline ASP code to the program and adopts the INPUT and
// OUTPUT annotations embedded in its %! comments. A second INPUT or OUTPUT
// across all appended parts is an error.
func (p *Program) AppendCode(code string) error {
	if err := p.adoptEmbedded(code); err != nil {
		return err
	}
	p.code = append(p.code, code)
	return nil
}

// AppendFile adds an ASP file to the program. The file's embedded
// annotations are parsed now; its code is read by the solver itself, so the
// file must still exist at Solve time.
func (p *Program) AppendFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := p.adoptEmbedded(string(data)); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	p.files = append(p.files, path)
	return nil
}

func (p *Program) adoptEmbedded(code string) error {
	in, out, err := parser.ParseEmbedded(code)
	if err != nil {
		return err
	}
	if in != nil {
		if p.input != nil {
			return ErrRedefinedInput
		}
		p.input = in
	}
	if out != nil {
		if p.output != nil {
			return ErrRedefinedOutput
		}
		p.output = out
	}
	return nil
}

// SetInput replaces the program's INPUT specification.
func (p *Program) SetInput(in *iospec.InputSpec) { p.input = in }

// SetOutput replaces the program's OUTPUT specification.
func (p *Program) SetOutput(out *iospec.OutputSpec) { p.output = out }

// InputSpec returns the current INPUT specification, never nil.
func (p *Program) InputSpec() *iospec.InputSpec {
	if p.input == nil {
		return iospec.EmptyInput()
	}
	return p.input
}

// OutputSpec returns the current OUTPUT specification, never nil.
func (p *Program) OutputSpec() *iospec.OutputSpec {
	if p.output == nil {
		return iospec.EmptyOutput()
	}
	return p.output
}

func (p *Program) logger() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}

// WriteFacts renders the facts the INPUT mapping generates for args, without
// running a solver.
func (p *Program) WriteFacts(w io.Writer, args ...any) error {
	return p.InputSpec().PerformMapping(args, factWriter{w})
}

// Solve maps args to facts per the INPUT specification, runs the solver and
// returns the stream of answer sets. The caller must Close the results.
func (p *Program) Solve(ctx context.Context, args ...any) (*Results, error) {
	input := p.InputSpec()
	output := p.OutputSpec()
	slv := p.Solver
	if slv == nil {
		slv = solver.NewDlvhex2()
	}

	log := p.logger().With(zap.String("solve_id", uuid.NewString()))
	log.Debug("starting solve",
		zap.Int("input_args", len(args)),
		zap.Int("code_parts", len(p.code)),
		zap.Strings("files", p.files))

	job := solver.Job{
		WriteProgram: func(w io.Writer) error {
			return p.writeProgram(w, input, output, args)
		},
		Capture:  output.CapturedPredicates(),
		FileArgs: p.files,
		Options:  p.Options,
	}
	stream, err := slv.Run(ctx, job)
	if err != nil {
		return nil, err
	}
	return &Results{
		stream: stream,
		output: output,
		reg:    p.Registry,
		log:    log,
	}, nil
}

// SolveOne returns the first answer set's result, or ErrNoAnswerSet if the
// program is inconsistent.
func (p *Program) SolveOne(ctx context.Context, args ...any) (*Result, error) {
	opts := p.Options
	defer func() { p.Options = opts }()
	if p.Options.MaxAnswerSets == 0 || p.Options.MaxAnswerSets > 1 {
		p.Options.MaxAnswerSets = 1
	}

	results, err := p.Solve(ctx, args...)
	if err != nil {
		return nil, err
	}
	defer results.Close()
	res, err := results.Next()
	if err == io.EOF {
		return nil, ErrNoAnswerSet
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

// writeProgram streams the complete program: the facts generated from the
// input arguments, the helper rules of the output mapping, and the inline
// code parts. File parts go to the solver by path instead.
func (p *Program) writeProgram(w io.Writer, input *iospec.InputSpec, output *iospec.OutputSpec, args []any) error {
	if err := input.PerformMapping(args, factWriter{w}); err != nil {
		return err
	}
	for _, rule := range output.AdditionalRules() {
		if _, err := io.WriteString(w, rule+"\n"); err != nil {
			return err
		}
	}
	for _, code := range p.code {
		if _, err := io.WriteString(w, code+"\n"); err != nil {
			return err
		}
	}
	return nil
}

// factWriter renders facts in ASP concrete syntax. Integer values become
// plain integer terms; everything else becomes a quoted string constant, so
// arbitrary host values round-trip safely.
type factWriter struct {
	w io.Writer
}

func (f factWriter) AddFact(predicate string, args []any) error {
	if _, err := io.WriteString(f.w, predicate); err != nil {
		return err
	}
	for i, arg := range args {
		sep := ","
		if i == 0 {
			sep = "("
		}
		if _, err := io.WriteString(f.w, sep+factTerm(arg)); err != nil {
			return err
		}
	}
	tail := ".\n"
	if len(args) > 0 {
		tail = ")" + tail
	}
	_, err := io.WriteString(f.w, tail)
	return err
}

func factTerm(v any) string {
	switch x := v.(type) {
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10)
	}
	return asp.Quote(v)
}
