package parser

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"aspio/asp"
)

func TestParseAnswerSet(t *testing.T) {
	as, err := ParseAnswerSet(`{vertex(a),vertex(b),edge(a,b),cost(3),sat}`)
	if err != nil {
		t.Fatal(err)
	}
	want := asp.AnswerSet{
		"vertex": {{"a"}, {"b"}},
		"edge":   {{"a", "b"}},
		"cost":   {{"3"}},
		"sat":    {nil},
	}
	if diff := cmp.Diff(want, as); diff != "" {
		t.Errorf("answer set mismatch (-want +got):\n%s", diff)
	}
}

func TestParseAnswerSetEmpty(t *testing.T) {
	as, err := ParseAnswerSet("{}")
	if err != nil {
		t.Fatal(err)
	}
	if len(as) != 0 {
		t.Errorf("got %v, want empty", as)
	}
}

func TestParseAnswerSetQuotedStrings(t *testing.T) {
	as, err := ParseAnswerSet(`{name("max mustermann"),say("he said \"hi\"")}`)
	if err != nil {
		t.Fatal(err)
	}
	if got := as.Tuples("name")[0][0]; got != "max mustermann" {
		t.Errorf("name = %q", got)
	}
	if got := as.Tuples("say")[0][0]; got != `he said "hi"` {
		t.Errorf("say = %q", got)
	}
}

func TestParseAnswerSetNestedTerms(t *testing.T) {
	as, err := ParseAnswerSet(`{holds(f(a,g(b)),-3)}`)
	if err != nil {
		t.Fatal(err)
	}
	want := [][]string{{"f(a,g(b))", "-3"}}
	if diff := cmp.Diff(want, as.Tuples("holds")); diff != "" {
		t.Errorf("tuples mismatch (-want +got):\n%s", diff)
	}
}

func TestParseAnswerSetStrongNegation(t *testing.T) {
	as, err := ParseAnswerSet(`{-guilty(suspect)}`)
	if err != nil {
		t.Fatal(err)
	}
	if len(as.Tuples("-guilty")) != 1 {
		t.Errorf("strongly negated atom not parsed: %v", as)
	}
}

func TestParseAnswerSetErrors(t *testing.T) {
	for _, line := range []string{
		"",
		"vertex(a)",
		"{vertex(a)",
		"{vertex(a)} trailing",
		"{vertex(a,)}",
		`{p("unterminated)}`,
	} {
		if _, err := ParseAnswerSet(line); err == nil {
			t.Errorf("ParseAnswerSet(%q) succeeded, want error", line)
		}
	}
}
