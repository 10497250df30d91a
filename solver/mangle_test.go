package solver

import (
	"context"
	"errors"
	"io"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func runMangle(t *testing.T, program string, capture []string) ([][]string, error) {
	t.Helper()
	s := NewMangle()
	stream, err := s.Run(context.Background(), Job{
		WriteProgram: func(w io.Writer) error {
			_, err := io.WriteString(w, program)
			return err
		},
		Capture: capture,
	})
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	as, err := stream.Next()
	if err != nil {
		return nil, err
	}
	if _, err := stream.Next(); err != io.EOF {
		t.Fatalf("second Next() = %v, want io.EOF", err)
	}
	var tuples [][]string
	for _, pred := range capture {
		tuples = append(tuples, as.Tuples(pred)...)
	}
	return tuples, nil
}

func TestMangleReachability(t *testing.T) {
	program := `
edge(a, b).
edge(b, c).
edge(c, d).
reach(X, Y) :- edge(X, Y).
reach(X, Z) :- reach(X, Y), edge(Y, Z).
aspio__o0(Y) :- reach(a, Y).
`
	tuples, err := runMangle(t, program, []string{"aspio__o0"})
	if err != nil {
		t.Fatal(err)
	}
	sort.Slice(tuples, func(i, j int) bool { return tuples[i][0] < tuples[j][0] })
	want := [][]string{{"b"}, {"c"}, {"d"}}
	if diff := cmp.Diff(want, tuples); diff != "" {
		t.Errorf("tuples mismatch (-want +got):\n%s", diff)
	}
}

func TestMangleMixedConstants(t *testing.T) {
	program := `
item("first thing", 10).
item(second, 20).
aspio__o0(N, P) :- item(N, P).
`
	tuples, err := runMangle(t, program, []string{"aspio__o0"})
	if err != nil {
		t.Fatal(err)
	}
	sort.Slice(tuples, func(i, j int) bool { return tuples[i][1] < tuples[j][1] })
	want := [][]string{{"first thing", "10"}, {"second", "20"}}
	if diff := cmp.Diff(want, tuples); diff != "" {
		t.Errorf("tuples mismatch (-want +got):\n%s", diff)
	}
}

func TestMangleConstantNamedV(t *testing.T) {
	// "v" is only disjunction between atoms; as an argument it is a plain
	// constant symbol and must not be rejected.
	program := `
likes(v, w).
likes(w, u).
aspio__o0(X, Y) :- likes(X, Y).
`
	tuples, err := runMangle(t, program, []string{"aspio__o0"})
	if err != nil {
		t.Fatal(err)
	}
	sort.Slice(tuples, func(i, j int) bool { return tuples[i][0] < tuples[j][0] })
	want := [][]string{{"v", "w"}, {"w", "u"}}
	if diff := cmp.Diff(want, tuples); diff != "" {
		t.Errorf("tuples mismatch (-want +got):\n%s", diff)
	}
}

func TestMangleRejectsNonDefinite(t *testing.T) {
	cases := map[string]string{
		"default negation": "q(X) :- p(X), not r(X). p(a).",
		"constraint":       ":- p(X). p(a).",
		"disjunction":      "p(a) v q(a).",
		"interval":         "n(1..9).",
		"aggregate":        "c(N) :- N = #count{X : p(X)}.",
		"strong negation":  "-p(a).",
		"arithmetic":       "q(Y) :- p(X), Y = X + 1.",
	}
	for name, program := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := runMangle(t, program, []string{"q"})
			if !errors.Is(err, ErrUnsupported) {
				t.Fatalf("got %v, want ErrUnsupported", err)
			}
		})
	}
}

func TestTranslateProgram(t *testing.T) {
	got, err := translateProgram(`p(a, 1, "x y", B) :- q(a), r(B). % comment`)
	if err != nil {
		t.Fatal(err)
	}
	want := "p(/a,1,\"x y\",B) :- q(/a),r(B).\n"
	if got != want {
		t.Errorf("translateProgram = %q, want %q", got, want)
	}
}
