package iospec

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"
)

type recorder struct {
	facts []string
}

func (r *recorder) AddFact(predicate string, args []any) error {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = fmt.Sprint(a)
	}
	r.facts = append(r.facts, fmt.Sprintf("%s(%s)", predicate, strings.Join(parts, ",")))
	return nil
}

func mustInputSpec(t *testing.T, params []string, preds []PredicateMapping) *InputSpec {
	t.Helper()
	s, err := NewInputSpec(params, preds)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestAttrAccess(t *testing.T) {
	type node struct {
		Label string
		Level int
	}

	// Annotation names start lowercase and resolve to exported fields.
	for _, name := range []string{"label", "Label"} {
		got, err := Attr{Name: name}.access(node{Label: "a"})
		if err != nil {
			t.Fatal(err)
		}
		if got != "a" {
			t.Errorf("Attr{%s} = %v, want a", name, got)
		}
	}

	// String-keyed maps are addressable the same way.
	got, err := Attr{Name: "label"}.access(map[string]any{"label": "m"})
	if err != nil {
		t.Fatal(err)
	}
	if got != "m" {
		t.Errorf("map access = %v, want m", got)
	}

	if _, err := (Attr{Name: "missing"}).access(node{}); err == nil {
		t.Error("missing field should be an error")
	}
	if _, err := (Attr{Name: "label"}).access((*node)(nil)); err == nil {
		t.Error("nil pointer should be an error")
	}
}

func TestAttrAccessShadowedField(t *testing.T) {
	// An unexported field with the annotation's exact name must not hide
	// the exported one.
	type node struct {
		label int
		Label string
	}
	got, err := Attr{Name: "label"}.access(node{Label: "a"})
	if err != nil {
		t.Fatal(err)
	}
	if got != "a" {
		t.Errorf("Attr{label} = %v, want a", got)
	}
}

func TestIndexAccess(t *testing.T) {
	if got, _ := (Index{Key: 1}).access([]string{"a", "b"}); got != "b" {
		t.Errorf("slice index = %v, want b", got)
	}
	if got, _ := (Index{Key: "k"}).access(map[string]int{"k": 3}); got != 3 {
		t.Errorf("map index = %v, want 3", got)
	}
	if got, _ := (Index{Key: 1}).access("xyz"); got != "y" {
		t.Errorf("string index = %v, want y", got)
	}
	if _, err := (Index{Key: 5}).access([]int{1}); err == nil {
		t.Error("out-of-range index should be an error")
	}
	// Strings index by rune: "né" is three bytes but two characters.
	if got, _ := (Index{Key: 1}).access("né"); got != "é" {
		t.Errorf("multi-byte string index = %v, want é", got)
	}
	if _, err := (Index{Key: 2}).access("né"); err == nil {
		t.Error("rune index past the end should be an error")
	}
	if _, err := (Index{Key: "k"}).access([]int{1}); err == nil {
		t.Error("string subscript on slice should be an error")
	}
	if _, err := (Index{Key: "missing"}).access(map[string]int{}); err == nil {
		t.Error("missing map key should be an error")
	}
}

func TestIterateSet(t *testing.T) {
	// map[T]struct{} iterates as bare elements.
	spec := mustInputSpec(t,
		[]string{"xs"},
		[]PredicateMapping{{
			Predicate: "p",
			Args:      []Accessor{{Var: "x"}},
			Loops:     []Iteration{{Target: TargetVar{"x"}, Source: Accessor{Var: "xs"}}},
		}})

	var rec recorder
	err := spec.PerformMapping([]any{map[string]struct{}{"a": {}, "b": {}}}, &rec)
	if err != nil {
		t.Fatal(err)
	}
	sort.Strings(rec.facts)
	if len(rec.facts) != 2 || rec.facts[0] != "p(a)" || rec.facts[1] != "p(b)" {
		t.Errorf("facts = %v", rec.facts)
	}
}

func TestIterateMapPairs(t *testing.T) {
	spec := mustInputSpec(t,
		[]string{"m"},
		[]PredicateMapping{{
			Predicate: "kv",
			Args:      []Accessor{{Var: "k"}, {Var: "v"}},
			Loops: []Iteration{{
				Target: TargetTuple{Elems: []Target{TargetVar{"k"}, TargetVar{"v"}}},
				Source: Accessor{Var: "m"},
			}},
		}})

	var rec recorder
	if err := spec.PerformMapping([]any{map[string]int{"n": 3}}, &rec); err != nil {
		t.Fatal(err)
	}
	if len(rec.facts) != 1 || rec.facts[0] != "kv(n,3)" {
		t.Errorf("facts = %v", rec.facts)
	}
}

func TestIterateNonCollection(t *testing.T) {
	spec := mustInputSpec(t,
		[]string{"x"},
		[]PredicateMapping{{
			Predicate: "p",
			Loops:     []Iteration{{Target: TargetBlank{}, Source: Accessor{Var: "x"}}},
		}})
	if err := spec.PerformMapping([]any{42}, &recorder{}); err == nil {
		t.Error("iterating an int should be an error")
	}
}

func TestTupleTargetMismatch(t *testing.T) {
	spec := mustInputSpec(t,
		[]string{"xs"},
		[]PredicateMapping{{
			Predicate: "p",
			Args:      []Accessor{{Var: "a"}},
			Loops: []Iteration{{
				Target: TargetTuple{Elems: []Target{TargetVar{"a"}, TargetVar{"b"}, TargetVar{"c"}}},
				Source: Accessor{Var: "xs"},
			}},
		}})
	// Slice iteration yields (index, element) pairs, which cannot
	// destructure into three targets.
	if err := spec.PerformMapping([]any{[]int{1}}, &recorder{}); err == nil {
		t.Error("destructuring a pair into three targets should be an error")
	}
}

func TestWrongArgumentCount(t *testing.T) {
	spec := mustInputSpec(t, []string{"a", "b"}, nil)
	if err := spec.PerformMapping([]any{1}, &recorder{}); err == nil {
		t.Error("argument count mismatch should be an error")
	}
}

func TestEmptyInputAcceptsNoArgs(t *testing.T) {
	if err := EmptyInput().PerformMapping(nil, &recorder{}); err != nil {
		t.Fatal(err)
	}
}

func TestCheckBindingsUndefined(t *testing.T) {
	_, err := NewInputSpec([]string{"xs"}, []PredicateMapping{{
		Predicate: "p",
		Args:      []Accessor{{Var: "nope"}},
	}})
	if !errors.Is(err, ErrUndefinedName) {
		t.Fatalf("got %v, want ErrUndefinedName", err)
	}
}
