package parser

import (
	"strings"
	"testing"
)

func TestExtractEmbedded(t *testing.T) {
	program := `
% ordinary comment, %! inside it does not count
%! INPUT (xs) {
%!     p(x) for x in xs;   % trailing comment is ignored
%! }
p(1). q("a %! inside a string stays code").
%!OUTPUT { xs = set { p/1 }; }
`
	got := ExtractEmbedded(program)
	for _, want := range []string{"INPUT (xs)", "p(x) for x in xs;", "OUTPUT { xs = set { p/1 }; }"} {
		if !strings.Contains(got, want) {
			t.Errorf("extracted text misses %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "ordinary comment") || strings.Contains(got, "inside it") {
		t.Errorf("ordinary comment leaked into extraction:\n%s", got)
	}
	if strings.Contains(got, "trailing comment") {
		t.Errorf("nested comment leaked into extraction:\n%s", got)
	}
	if strings.Contains(got, "stays code") {
		t.Errorf("string literal mistaken for annotation:\n%s", got)
	}
}

func TestParseEmbedded(t *testing.T) {
	in, out, err := ParseEmbedded(`
vertex(X) :- edge(X, _).
%! INPUT (Set<V> vertices) { vertex(v) for v in vertices; }
%! OUTPUT { reached = set { reach/1 }; }
`)
	if err != nil {
		t.Fatal(err)
	}
	if in == nil || len(in.Params) != 1 || in.Params[0] != "vertices" {
		t.Errorf("input spec = %+v", in)
	}
	if out == nil || len(out.Names()) != 1 || out.Names()[0] != "reached" {
		t.Errorf("output spec names = %v", out.Names())
	}
}

func TestParseEmbeddedNone(t *testing.T) {
	in, out, err := ParseEmbedded("p(1).\n% just a comment\n")
	if err != nil {
		t.Fatal(err)
	}
	if in != nil || out != nil {
		t.Errorf("got specs from a program without annotations: %v %v", in, out)
	}
}
