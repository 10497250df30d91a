package solver

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	_ "github.com/google/mangle/builtin"
	mengine "github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	"github.com/google/mangle/parse"
	"go.uber.org/zap"

	"aspio/asp"
)

// Mangle evaluates definite programs in-process on the Google Mangle Datalog
// engine, so facts-and-rules workloads run without an external solver.
//
// A definite program has a single answer set. Constructs beyond positive
// Datalog (default negation, disjunction, constraints, aggregates, builtins,
// arithmetic) are rejected with ErrUnsupported; use Dlvhex2 for those.
type Mangle struct {
	Logger *zap.Logger
}

// NewMangle returns the in-process backend.
func NewMangle() *Mangle {
	return &Mangle{Logger: zap.NewNop()}
}

func (s *Mangle) Run(ctx context.Context, job Job) (AnswerSets, error) {
	log := s.Logger
	if log == nil {
		log = zap.NewNop()
	}

	var program strings.Builder
	if err := job.WriteProgram(&program); err != nil {
		return nil, err
	}
	for _, path := range job.FileArgs {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		program.WriteByte('\n')
		program.Write(data)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src, err := translateProgram(program.String())
	if err != nil {
		return nil, err
	}
	log.Debug("evaluating program in-process", zap.Int("bytes", len(src)))

	unit, err := parse.Unit(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("translated program does not parse: %w", err)
	}
	info, err := analysis.AnalyzeOneUnit(unit, nil)
	if err != nil {
		return nil, fmt.Errorf("program analysis: %w", err)
	}
	store := factstore.NewSimpleInMemoryStore()
	if _, err := mengine.EvalProgramWithStats(info, store); err != nil {
		return nil, fmt.Errorf("program evaluation: %w", err)
	}

	as := make(asp.AnswerSet)
	want := make(map[string]bool)
	for _, p := range capturePredicates(job) {
		want[p] = true
	}
	for _, sym := range store.ListPredicates() {
		if !want[sym.Symbol] {
			continue
		}
		err := store.GetFacts(ast.NewQuery(sym), func(atom ast.Atom) error {
			args := make([]string, len(atom.Args))
			for i, arg := range atom.Args {
				args[i] = termText(arg)
			}
			as.Add(sym.Symbol, args)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return &singleAnswerSet{set: as}, nil
}

// termText renders a derived constant back in the raw answer-set form the
// output mapping consumes.
func termText(term ast.BaseTerm) string {
	c, ok := term.(ast.Constant)
	if !ok {
		return term.String()
	}
	switch c.Type {
	case ast.NameType:
		return strings.TrimPrefix(c.Symbol, "/")
	case ast.StringType:
		return c.Symbol
	case ast.NumberType:
		return strconv.FormatInt(c.NumValue, 10)
	default:
		return c.String()
	}
}

type singleAnswerSet struct {
	set  asp.AnswerSet
	done bool
}

func (s *singleAnswerSet) Next() (asp.AnswerSet, error) {
	if s.done {
		return nil, io.EOF
	}
	s.done = true
	return s.set, nil
}

func (s *singleAnswerSet) Close() error { return nil }

// translateProgram rewrites a definite ASP program into Mangle source. The
// syntaxes differ in one place only: an unquoted ASP constant symbol becomes
// a Mangle name constant, so "edge(a,b)." turns into "edge(/a,/b).". ASP
// constructs Mangle cannot evaluate are rejected.
func translateProgram(src string) (string, error) {
	var out strings.Builder
	out.Grow(len(src) + len(src)/8)

	unsupported := func(what string) error {
		return fmt.Errorf("%s requires the dlvhex2 backend: %w", what, ErrUnsupported)
	}

	headEmpty := true
	var prev byte // last significant byte consumed, 0 at start of input
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == '%':
			for i < len(src) && src[i] != '\n' {
				i++
			}
		case c == '"':
			start := i
			i++
			for i < len(src) && src[i] != '"' {
				if src[i] == '\\' {
					i++
				}
				i++
			}
			if i >= len(src) {
				return "", fmt.Errorf("unterminated string in program")
			}
			i++
			out.WriteString(src[start:i])
			headEmpty = false
			prev = '"'
		case isIdentByte(c):
			start := i
			for i < len(src) && (isIdentByte(src[i]) || src[i] >= '0' && src[i] <= '9') {
				i++
			}
			word := src[start:i]
			// "v" between atoms is disjunction; inside an argument list
			// (after '(' or ',') it is an ordinary constant symbol.
			inArgs := prev == '(' || prev == ','
			switch {
			case word == "not":
				return "", unsupported("default negation")
			case word == "v" && !inArgs && nextSignificant(src, i) != '(':
				return "", unsupported("disjunction")
			case word[0] >= 'a' && word[0] <= 'z' && nextSignificant(src, i) != '(':
				out.WriteByte('/')
				out.WriteString(word)
			default:
				out.WriteString(word)
			}
			headEmpty = false
			prev = word[len(word)-1]
		case c >= '0' && c <= '9':
			for i < len(src) && src[i] >= '0' && src[i] <= '9' {
				out.WriteByte(src[i])
				prev = src[i]
				i++
			}
			headEmpty = false
		case c == ':':
			if i+1 < len(src) && src[i+1] == '-' {
				if headEmpty {
					return "", unsupported("a constraint")
				}
				out.WriteString(" :- ")
				prev = '-'
				i += 2
				break
			}
			return "", unsupported("':' syntax")
		case c == '.':
			if i+1 < len(src) && src[i+1] == '.' {
				return "", unsupported("an interval term")
			}
			out.WriteString(".\n")
			headEmpty = true
			prev = '.'
			i++
		case c == '-':
			if i+1 < len(src) && src[i+1] >= '0' && src[i+1] <= '9' {
				out.WriteByte(c)
				prev = c
				i++
				break
			}
			return "", unsupported("strong negation")
		case c == '(' || c == ')' || c == ',':
			out.WriteByte(c)
			headEmpty = false
			prev = c
			i++
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			i++
		default:
			return "", unsupported(fmt.Sprintf("the %q operator", string(c)))
		}
	}
	return out.String(), nil
}

func isIdentByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

// nextSignificant returns the first byte at or after i that is not
// whitespace, or 0 at end of input.
func nextSignificant(src string, i int) byte {
	for ; i < len(src); i++ {
		switch src[i] {
		case ' ', '\t', '\r', '\n':
		default:
			return src[i]
		}
	}
	return 0
}
