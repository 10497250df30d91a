package iospec

import (
	"errors"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"

	"aspio/asp"
	"aspio/registry"
)

func mustOutputSpec(t *testing.T, named []NamedExpr) *OutputSpec {
	t.Helper()
	s, err := NewOutputSpec(named)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func query(pred string, vars ...string) asp.Query {
	terms := make([]asp.Term, len(vars))
	for i, v := range vars {
		terms[i] = asp.Variable{Name: v}
	}
	return asp.Query{Literals: []asp.Literal{{Predicate: pred, Args: terms}}}
}

func TestSetEvaluation(t *testing.T) {
	spec := mustOutputSpec(t, []NamedExpr{
		{Name: "colors", Expr: &Set{Query: query("color", "V", "C"), Content: Object{Args: []Expr{Var{"V"}, Var{"C"}}}}},
	})

	as := make(asp.AnswerSet)
	as.Add("aspio__o0", []string{"a", "red"})
	as.Add("aspio__o0", []string{"b", "blue"})

	obj, err := spec.NewEvaluation(as, registry.New()).GetObject("colors")
	if err != nil {
		t.Fatal(err)
	}
	set, ok := obj.([]any)
	if !ok {
		t.Fatalf("set mapped to %T, want []any", obj)
	}
	want := []any{[2]any{"a", "red"}, [2]any{"b", "blue"}}
	if diff := cmp.Diff(want, set); diff != "" {
		t.Errorf("set mismatch (-want +got):\n%s", diff)
	}
}

func TestSetDeduplicates(t *testing.T) {
	// Two captured tuples can map to the same content value.
	spec := mustOutputSpec(t, []NamedExpr{
		{Name: "vs", Expr: &Set{Query: query("p", "X", "Y"), Content: Var{"X"}}},
	})
	as := make(asp.AnswerSet)
	as.Add("aspio__o0", []string{"a"})
	as.Add("aspio__o0", []string{"a"})

	obj, err := spec.NewEvaluation(as, registry.New()).GetObject("vs")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]any{"a"}, obj); diff != "" {
		t.Errorf("set mismatch (-want +got):\n%s", diff)
	}
}

func TestSequenceEvaluation(t *testing.T) {
	spec := mustOutputSpec(t, []NamedExpr{
		{Name: "route", Expr: &Sequence{
			Query:   query("visit", "I", "City"),
			Content: Var{"City"},
			Index:   Var{"I"},
		}},
	})

	as := make(asp.AnswerSet)
	as.Add("aspio__o0", []string{"2", "rome"})
	as.Add("aspio__o0", []string{"0", "wien"})
	as.Add("aspio__o0", []string{"1", "graz"})

	obj, err := spec.NewEvaluation(as, registry.New()).GetObject("route")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]any{"wien", "graz", "rome"}, obj); diff != "" {
		t.Errorf("sequence mismatch (-want +got):\n%s", diff)
	}
}

func TestSequenceInvalidIndices(t *testing.T) {
	spec := mustOutputSpec(t, []NamedExpr{
		{Name: "xs", Expr: &Sequence{Query: query("p", "I", "X"), Content: Var{"X"}, Index: Var{"I"}}},
	})

	for name, tuples := range map[string][][]string{
		"gap":       {{"0", "a"}, {"2", "b"}},
		"duplicate": {{"0", "a"}, {"0", "b"}},
		"negative":  {{"-1", "a"}, {"0", "b"}},
		"non-int":   {{"zero", "a"}},
	} {
		t.Run(name, func(t *testing.T) {
			as := make(asp.AnswerSet)
			for _, tu := range tuples {
				as.Add("aspio__o0", tu)
			}
			_, err := spec.NewEvaluation(as, registry.New()).GetObject("xs")
			if !errors.Is(err, ErrInvalidIndices) {
				t.Fatalf("got %v, want ErrInvalidIndices", err)
			}
		})
	}
}

func TestDictionaryEvaluation(t *testing.T) {
	spec := mustOutputSpec(t, []NamedExpr{
		{Name: "age", Expr: &Dictionary{
			Query:   query("age", "Name", "A"),
			Content: Object{Constructor: "int", Args: []Expr{Var{"A"}}},
			Key:     Var{"Name"},
		}},
	})

	as := make(asp.AnswerSet)
	as.Add("aspio__o0", []string{"ada", "36"})
	as.Add("aspio__o0", []string{"max", "7"})

	obj, err := spec.NewEvaluation(as, registry.New()).GetObject("age")
	if err != nil {
		t.Fatal(err)
	}
	want := map[any]any{"ada": 36, "max": 7}
	if diff := cmp.Diff(want, obj); diff != "" {
		t.Errorf("dictionary mismatch (-want +got):\n%s", diff)
	}
}

func TestDictionaryDuplicateKey(t *testing.T) {
	spec := mustOutputSpec(t, []NamedExpr{
		{Name: "d", Expr: &Dictionary{Query: query("p", "K", "V"), Content: Var{"V"}, Key: Var{"K"}}},
	})
	as := make(asp.AnswerSet)
	as.Add("aspio__o0", []string{"k", "a"})
	as.Add("aspio__o0", []string{"k", "b"})
	_, err := spec.NewEvaluation(as, registry.New()).GetObject("d")
	if !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("got %v, want ErrDuplicateKey", err)
	}
}

// Nested collections: the inner query shares the variable X with the outer
// one, so the inner helper predicate captures X as a fixed prefix and each
// outer element only sees its own children.
func TestNestedCollections(t *testing.T) {
	inner := &Set{Query: query("child", "X", "Y"), Content: Var{"Y"}}
	outer := &Set{
		Query:   query("parent", "X"),
		Content: Object{Args: []Expr{Var{"X"}, inner}},
	}
	spec := mustOutputSpec(t, []NamedExpr{{Name: "tree", Expr: outer}})

	rules := spec.AdditionalRules()
	want := []string{
		"aspio__o0(X) :- parent(X).",
		"aspio__o1(X,Y) :- child(X,Y).",
	}
	if diff := cmp.Diff(want, rules); diff != "" {
		t.Fatalf("rules mismatch (-want +got):\n%s", diff)
	}

	as := make(asp.AnswerSet)
	as.Add("aspio__o0", []string{"a"})
	as.Add("aspio__o0", []string{"b"})
	as.Add("aspio__o1", []string{"a", "a1"})
	as.Add("aspio__o1", []string{"a", "a2"})
	as.Add("aspio__o1", []string{"b", "b1"})

	obj, err := spec.NewEvaluation(as, registry.New()).GetObject("tree")
	if err != nil {
		t.Fatal(err)
	}
	got := obj.([]any)
	sort.Slice(got, func(i, j int) bool {
		return got[i].([2]any)[0].(string) < got[j].([2]any)[0].(string)
	})
	wantTree := []any{
		[2]any{"a", []any{"a1", "a2"}},
		[2]any{"b", []any{"b1"}},
	}
	if diff := cmp.Diff(wantTree, got); diff != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", diff)
	}
}

// Three levels deep, the middle query re-lists X, so the innermost level
// sees X twice among its bound variables. The fixed prefix must still list
// it once.
func TestDeeplyNestedSharedVariable(t *testing.T) {
	grandchild := &Set{Query: query("grandchild", "X", "Y", "Z"), Content: Var{"Z"}}
	child := &Set{
		Query:   query("child", "X", "Y"),
		Content: Object{Args: []Expr{Var{"Y"}, grandchild}},
	}
	root := &Set{
		Query:   query("parent", "X"),
		Content: Object{Args: []Expr{Var{"X"}, child}},
	}
	spec := mustOutputSpec(t, []NamedExpr{{Name: "tree", Expr: root}})

	rules := spec.AdditionalRules()
	want := []string{
		"aspio__o0(X) :- parent(X).",
		"aspio__o1(X,Y) :- child(X,Y).",
		"aspio__o2(X,Y,Z) :- grandchild(X,Y,Z).",
	}
	if diff := cmp.Diff(want, rules); diff != "" {
		t.Fatalf("rules mismatch (-want +got):\n%s", diff)
	}

	as := make(asp.AnswerSet)
	as.Add("aspio__o0", []string{"a"})
	as.Add("aspio__o1", []string{"a", "c1"})
	as.Add("aspio__o2", []string{"a", "c1", "g1"})
	as.Add("aspio__o2", []string{"a", "c2", "other"})

	obj, err := spec.NewEvaluation(as, registry.New()).GetObject("tree")
	if err != nil {
		t.Fatal(err)
	}
	wantTree := []any{
		[2]any{"a", []any{[2]any{"c1", []any{"g1"}}}},
	}
	if diff := cmp.Diff(wantTree, obj); diff != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", diff)
	}
}

func TestReferences(t *testing.T) {
	spec := mustOutputSpec(t, []NamedExpr{
		{Name: "vertices", Expr: NewSimpleSet("vertex", 1, "")},
		{Name: "graph", Expr: Object{Args: []Expr{Reference{"vertices"}, Constant{7}}}},
	})
	as := make(asp.AnswerSet)
	as.Add("aspio__o0", []string{"a"})

	ev := spec.NewEvaluation(as, registry.New())
	obj, err := ev.GetObject("graph")
	if err != nil {
		t.Fatal(err)
	}
	want := [2]any{[]any{"a"}, 7}
	if diff := cmp.Diff(want, obj); diff != "" {
		t.Errorf("graph mismatch (-want +got):\n%s", diff)
	}
}

func TestCircularReference(t *testing.T) {
	spec := mustOutputSpec(t, []NamedExpr{
		{Name: "a", Expr: Reference{"b"}},
		{Name: "b", Expr: Reference{"a"}},
	})
	_, err := spec.NewEvaluation(make(asp.AnswerSet), registry.New()).GetObject("a")
	if !errors.Is(err, ErrCircularReference) {
		t.Fatalf("got %v, want ErrCircularReference", err)
	}
}

func TestUnknownOutputName(t *testing.T) {
	spec := EmptyOutput()
	_, err := spec.NewEvaluation(make(asp.AnswerSet), registry.New()).GetObject("nope")
	if !errors.Is(err, ErrUndefinedName) {
		t.Fatalf("got %v, want ErrUndefinedName", err)
	}
}
