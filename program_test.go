package aspio

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"aspio/asp"
	"aspio/solver"
)

const reachProgram = `
%! INPUT (Sequence<Edge> edges, start) {
%!     edge(e[0], e[1]) for (_, e) in edges;
%!     start(start);
%! }
%! OUTPUT {
%!     reached = set { reach/1 };
%! }
reach(Y) :- start(X), edge(X, Y).
reach(Y) :- reach(X), edge(X, Y).
`

func TestSolveWithMangleBackend(t *testing.T) {
	prog, err := NewFromCode(reachProgram)
	if err != nil {
		t.Fatal(err)
	}
	prog.Solver = solver.NewMangle()

	edges := [][2]string{{"a", "b"}, {"b", "c"}, {"x", "y"}}
	res, err := prog.SolveOne(context.Background(), edges, "a")
	if err != nil {
		t.Fatal(err)
	}
	obj, err := res.Get("reached")
	if err != nil {
		t.Fatal(err)
	}
	got := obj.([]any)
	sort.Slice(got, func(i, j int) bool { return got[i].(string) < got[j].(string) })
	if diff := cmp.Diff([]any{"b", "c"}, got); diff != "" {
		t.Errorf("reached mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteFacts(t *testing.T) {
	prog, err := NewFromCode(reachProgram)
	if err != nil {
		t.Fatal(err)
	}
	var b strings.Builder
	edges := [][2]any{{"a", 1}, {`say "hi"`, 2}}
	if err := prog.WriteFacts(&b, edges, "a"); err != nil {
		t.Fatal(err)
	}
	want := `edge("a",1).
edge("say \"hi\"",2).
start("a").
`
	if b.String() != want {
		t.Errorf("facts = %q, want %q", b.String(), want)
	}
}

func TestAppendCodeRedefinition(t *testing.T) {
	prog, err := NewFromCode(reachProgram)
	if err != nil {
		t.Fatal(err)
	}
	err = prog.AppendCode(`%! INPUT (x) { p(x); }`)
	if !errors.Is(err, ErrRedefinedInput) {
		t.Fatalf("got %v, want ErrRedefinedInput", err)
	}
	err = prog.AppendCode(`%! OUTPUT { x = int(1); }`)
	if !errors.Is(err, ErrRedefinedOutput) {
		t.Fatalf("got %v, want ErrRedefinedOutput", err)
	}
}

// stubSolver replays canned answer sets.
type stubSolver struct {
	sets []asp.AnswerSet
	job  solver.Job
}

type stubStream struct {
	sets []asp.AnswerSet
}

func (s *stubSolver) Run(ctx context.Context, job solver.Job) (solver.AnswerSets, error) {
	s.job = job
	return &stubStream{sets: s.sets}, nil
}

func (s *stubStream) Next() (asp.AnswerSet, error) {
	if len(s.sets) == 0 {
		return nil, io.EOF
	}
	as := s.sets[0]
	s.sets = s.sets[1:]
	return as, nil
}

func (s *stubStream) Close() error { return nil }

func TestSolveOneNoAnswerSet(t *testing.T) {
	prog := New()
	prog.Solver = &stubSolver{}
	_, err := prog.SolveOne(context.Background())
	if !errors.Is(err, ErrNoAnswerSet) {
		t.Fatalf("got %v, want ErrNoAnswerSet", err)
	}
}

func TestSolveOneLimitsAnswerSets(t *testing.T) {
	stub := &stubSolver{sets: []asp.AnswerSet{{}}}
	prog := New()
	prog.Solver = stub
	if _, err := prog.SolveOne(context.Background()); err != nil {
		t.Fatal(err)
	}
	if stub.job.Options.MaxAnswerSets != 1 {
		t.Errorf("MaxAnswerSets = %d, want 1", stub.job.Options.MaxAnswerSets)
	}
	if prog.Options.MaxAnswerSets != 0 {
		t.Errorf("SolveOne must not change the program's options permanently")
	}
}

func TestResultsEach(t *testing.T) {
	prog, err := NewFromCode(`%! OUTPUT { xs = set { p/1 }; }`)
	if err != nil {
		t.Fatal(err)
	}
	prog.Solver = &stubSolver{sets: []asp.AnswerSet{
		{"aspio__o0": {{"a"}}},
		{"aspio__o0": {{"b"}, {"c"}}},
	}}

	results, err := prog.Solve(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	var sizes []int
	err = results.Each("xs", func(obj any) error {
		sizes = append(sizes, len(obj.([]any)))
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int{1, 2}, sizes); diff != "" {
		t.Errorf("sizes mismatch (-want +got):\n%s", diff)
	}
}

func TestResultsAll(t *testing.T) {
	prog := New()
	prog.Solver = &stubSolver{sets: []asp.AnswerSet{{}, {}, {}}}
	results, err := prog.Solve(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	all, err := results.All()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Errorf("got %d results, want 3", len(all))
	}
}

func TestCapturePassedToSolver(t *testing.T) {
	stub := &stubSolver{sets: []asp.AnswerSet{{}}}
	prog, err := NewFromCode(`%! OUTPUT { a = set { p/1 }; b = set { q/2 }; }`)
	if err != nil {
		t.Fatal(err)
	}
	prog.Solver = stub
	if _, err := prog.SolveOne(context.Background()); err != nil {
		t.Fatal(err)
	}
	want := []string{"aspio__o0", "aspio__o1"}
	if diff := cmp.Diff(want, stub.job.Capture); diff != "" {
		t.Errorf("capture mismatch (-want +got):\n%s", diff)
	}
}
