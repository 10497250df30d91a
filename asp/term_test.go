package asp

import "testing"

func TestQuote(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{"hello", `"hello"`},
		{"", `""`},
		{`say "hi"`, `"say \"hi\""`},
		{`back\slash`, `"back\\slash"`},
		{42, `"42"`},
	}
	for _, c := range cases {
		if got := Quote(c.in); got != c.want {
			t.Errorf("Quote(%v) = %s, want %s", c.in, got, c.want)
		}
	}
}

func TestLiteralString(t *testing.T) {
	cases := []struct {
		lit  Literal
		want string
	}{
		{
			Literal{Predicate: "color", Args: []Term{Variable{"V"}, Variable{"C"}}},
			"color(V,C)",
		},
		{
			Literal{Predicate: "p", Args: []Term{1, "abc", QuotedConstant{"x y"}}},
			`p(1,abc,"x y")`,
		},
		{
			Literal{Predicate: "sat"},
			"sat",
		},
		{
			Literal{Predicate: "edge", Args: []Term{Variable{"X"}, AnonymousVariable{}}, Negated: true},
			"not edge(X,_)",
		},
		{
			Literal{Predicate: "<", Args: []Term{Variable{"X"}, 5}},
			"X<5",
		},
		{
			Literal{Predicate: "!=", Args: []Term{Variable{"X"}, Variable{"Y"}}, Negated: true},
			"not X!=Y",
		},
	}
	for _, c := range cases {
		if got := c.lit.String(); got != c.want {
			t.Errorf("Literal.String() = %q, want %q", got, c.want)
		}
	}
}

func TestQueryVariables(t *testing.T) {
	q := Query{Literals: []Literal{
		{Predicate: "p", Args: []Term{Variable{"X"}, Variable{"Y"}}},
		{Predicate: "q", Args: []Term{Variable{"X"}, 3, AnonymousVariable{}}},
	}}
	got := q.Variables()
	want := []string{"X", "Y", "X"}
	if len(got) != len(want) {
		t.Fatalf("Variables() = %v, want %v", got, want)
	}
	for i, v := range got {
		if v.Name != want[i] {
			t.Errorf("Variables()[%d] = %s, want %s", i, v.Name, want[i])
		}
	}
	if s := q.String(); s != "p(X,Y),q(X,3,_)" {
		t.Errorf("Query.String() = %q", s)
	}
}

func TestAnswerSet(t *testing.T) {
	as := make(AnswerSet)
	as.Add("color", []string{"a", "red"})
	as.Add("color", []string{"b", "blue"})
	if n := len(as.Tuples("color")); n != 2 {
		t.Fatalf("got %d tuples, want 2", n)
	}
	if as.Tuples("missing") != nil {
		t.Error("missing predicate should yield nil")
	}
}
