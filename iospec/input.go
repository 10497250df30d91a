// Package iospec implements the INPUT and OUTPUT halves of the annotation
// language: how Go arguments are marshaled into solver facts, and how
// answer-set atoms are unmarshaled back into Go objects.
package iospec

import (
	"fmt"
	"reflect"
)

// FactAccumulator receives the facts generated by input mapping.
type FactAccumulator interface {
	AddFact(predicate string, args []any) error
}

// Target is the left-hand side of a loop binding: a variable, the
// placeholder "_", or a tuple match destructuring pairs and nested tuples.
type Target interface {
	bindNames(bound map[string]bool) error
	assign(value any, ctx map[string]any) error
	String() string
}

// TargetVar binds a single variable.
type TargetVar struct {
	Name string
}

func (t TargetVar) String() string { return t.Name }

func (t TargetVar) bindNames(bound map[string]bool) error {
	if bound[t.Name] {
		return fmt.Errorf("variable %s is defined twice: %w", t.Name, ErrRedefinedName)
	}
	bound[t.Name] = true
	return nil
}

func (t TargetVar) assign(value any, ctx map[string]any) error {
	ctx[t.Name] = value
	return nil
}

// TargetBlank discards the bound value.
type TargetBlank struct{}

func (TargetBlank) String() string                   { return "_" }
func (TargetBlank) bindNames(map[string]bool) error  { return nil }
func (TargetBlank) assign(any, map[string]any) error { return nil }

// TargetTuple destructures a pair or tuple into element targets.
type TargetTuple struct {
	Elems []Target
}

func (t TargetTuple) String() string {
	s := "("
	for i, e := range t.Elems {
		if i > 0 {
			s += ", "
		}
		s += e.String()
	}
	return s + ")"
}

func (t TargetTuple) bindNames(bound map[string]bool) error {
	for _, e := range t.Elems {
		if err := e.bindNames(bound); err != nil {
			return err
		}
	}
	return nil
}

func (t TargetTuple) assign(value any, ctx map[string]any) error {
	v := reflect.ValueOf(value)
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		v = v.Elem()
	}
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return fmt.Errorf("cannot destructure value of type %T into %s", value, t)
	}
	if v.Len() != len(t.Elems) {
		return fmt.Errorf("cannot destructure %d values into %s", v.Len(), t)
	}
	for i, e := range t.Elems {
		if err := e.assign(v.Index(i).Interface(), ctx); err != nil {
			return err
		}
	}
	return nil
}

// Iteration is one "for target in accessor" loop of a predicate mapping.
type Iteration struct {
	Target Target
	Source Accessor
}

func (it Iteration) String() string {
	return fmt.Sprintf("for %s in %s", it.Target, it.Source)
}

func (it Iteration) checkBindings(bound map[string]bool) error {
	if err := it.Source.checkBindings(bound); err != nil {
		return err
	}
	return it.Target.bindNames(bound)
}

// PredicateMapping generates the facts of one predicate: nested loops over
// input collections, one fact per complete loop binding.
type PredicateMapping struct {
	Predicate string
	Args      []Accessor
	Loops     []Iteration
}

func (p PredicateMapping) checkBindings(params []string) error {
	bound := make(map[string]bool, len(params))
	for _, name := range params {
		bound[name] = true
	}
	for _, it := range p.Loops {
		if err := it.checkBindings(bound); err != nil {
			return err
		}
	}
	for _, arg := range p.Args {
		if err := arg.checkBindings(bound); err != nil {
			return err
		}
	}
	return nil
}

// performMapping runs the nested loops recursively: loop i iterates its
// collection under the bindings established by loops 0..i-1, and the
// innermost level emits one fact.
func (p PredicateMapping) performMapping(ctx map[string]any, acc FactAccumulator) error {
	var run func(depth int) error
	run = func(depth int) error {
		if depth == len(p.Loops) {
			args := make([]any, len(p.Args))
			for i, a := range p.Args {
				v, err := a.resolve(ctx)
				if err != nil {
					return err
				}
				args[i] = v
			}
			return acc.AddFact(p.Predicate, args)
		}
		it := p.Loops[depth]
		return it.Source.iterate(ctx, func(elem any) error {
			if err := it.Target.assign(elem, ctx); err != nil {
				return fmt.Errorf("in iteration %s: %w", it, err)
			}
			return run(depth + 1)
		})
	}
	return run(0)
}

// InputSpec is a parsed INPUT statement: the program's input parameters and
// the predicate mappings that turn arguments into facts.
type InputSpec struct {
	Params     []string
	Predicates []PredicateMapping
}

// NewInputSpec validates parameter uniqueness and the variable bindings of
// every predicate mapping.
func NewInputSpec(params []string, preds []PredicateMapping) (*InputSpec, error) {
	seen := make(map[string]bool, len(params))
	for _, p := range params {
		if seen[p] {
			return nil, fmt.Errorf("input parameter %s: %w", p, ErrRedefinedName)
		}
		seen[p] = true
	}
	for _, pred := range preds {
		if err := pred.checkBindings(params); err != nil {
			return nil, fmt.Errorf("predicate %s: %w", pred.Predicate, err)
		}
	}
	return &InputSpec{Params: params, Predicates: preds}, nil
}

// EmptyInput is the specification of a program that takes no input.
func EmptyInput() *InputSpec { return &InputSpec{} }

// PerformMapping maps the given arguments to facts and feeds them to the
// accumulator.
func (s *InputSpec) PerformMapping(args []any, acc FactAccumulator) error {
	if len(args) != len(s.Params) {
		return fmt.Errorf("wrong number of input arguments: want %d, got %d", len(s.Params), len(args))
	}
	for _, pred := range s.Predicates {
		ctx := make(map[string]any, len(s.Params))
		for i, name := range s.Params {
			ctx[name] = args[i]
		}
		if err := pred.performMapping(ctx, acc); err != nil {
			return err
		}
	}
	return nil
}
