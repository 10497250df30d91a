// Package registry maps constructor names used in OUTPUT annotations to Go
// functions that build host objects from mapped values. A Program forks the
// global registry so per-program registrations do not leak.
package registry

import (
	"fmt"
	"reflect"
	"strconv"
	"sync"
)

// Constructor builds one host object from already-mapped argument values.
// Arguments are ints, strings, or previously constructed objects and
// collections.
type Constructor func(args ...any) (any, error)

// Registry resolves constructor names and provides the collection builders
// used by output mapping. The zero value is not usable; call New.
type Registry struct {
	mu    sync.RWMutex
	ctors map[string]Constructor

	makeSet        func(values []any) (any, error)
	makeSequence   func(values []any) (any, error)
	makeDictionary func(m map[any]any) (any, error)
	makeTuple      func(values []any) (any, error)
}

// New returns a registry preloaded with the builtin constructors
// "int" and "str".
func New() *Registry {
	r := &Registry{ctors: make(map[string]Constructor)}
	r.ctors["int"] = builtinInt
	r.ctors["str"] = builtinStr
	return r
}

var defaultRegistry = New()

// Default returns the process-wide registry.
func Default() *Registry { return defaultRegistry }

// Register binds name to a constructor. Registering an already-bound name
// is an error; use Replace to overwrite.
func Register(name string, c Constructor) error { return defaultRegistry.Register(name, c) }

// Clone returns an independent copy; later registrations on either side do
// not affect the other.
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	other := &Registry{
		ctors:          make(map[string]Constructor, len(r.ctors)),
		makeSet:        r.makeSet,
		makeSequence:   r.makeSequence,
		makeDictionary: r.makeDictionary,
		makeTuple:      r.makeTuple,
	}
	for k, v := range r.ctors {
		other.ctors[k] = v
	}
	return other
}

// Register binds name to a constructor. Registering an already-bound name
// is an error.
func (r *Registry) Register(name string, c Constructor) error {
	if c == nil {
		return fmt.Errorf("registry: constructor for %q is nil", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ctors[name]; ok {
		return fmt.Errorf("registry: name %q is already registered", name)
	}
	r.ctors[name] = c
	return nil
}

// Replace binds name to a constructor, overwriting any previous binding.
func (r *Registry) Replace(name string, c Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctors[name] = c
}

// MustRegister is Register that panics on error, for init-time use.
func (r *Registry) MustRegister(name string, c Constructor) {
	if err := r.Register(name, c); err != nil {
		panic(err)
	}
}

// RegisterFunc adapts an arbitrary Go function to a Constructor via
// reflection (see WrapFunc) and registers it.
func (r *Registry) RegisterFunc(name string, fn any) error {
	c, err := WrapFunc(fn)
	if err != nil {
		return fmt.Errorf("registry: %q: %w", name, err)
	}
	return r.Register(name, c)
}

// Resolve returns the constructor bound to name.
func (r *Registry) Resolve(name string) (Constructor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.ctors[name]
	return c, ok
}

// SetSetConstructor overrides how set expressions are materialized.
// The default produces a duplicate-free []any.
func (r *Registry) SetSetConstructor(f func(values []any) (any, error)) { r.makeSet = f }

// SetSequenceConstructor overrides how sequence expressions are
// materialized. The default produces a []any ordered by index.
func (r *Registry) SetSequenceConstructor(f func(values []any) (any, error)) { r.makeSequence = f }

// SetDictionaryConstructor overrides how dictionary expressions are
// materialized. The default returns the map unchanged.
func (r *Registry) SetDictionaryConstructor(f func(m map[any]any) (any, error)) { r.makeDictionary = f }

// SetTupleConstructor overrides how constructor-less object expressions are
// materialized. The default produces a []any.
func (r *Registry) SetTupleConstructor(f func(values []any) (any, error)) { r.makeTuple = f }

// MakeSet materializes a set from evaluated contents. Duplicates are
// removed; the answer set is already duplicate-free, so this only drops
// repeats introduced when not all query variables occur in the content.
func (r *Registry) MakeSet(values []any) (any, error) {
	if r.makeSet != nil {
		return r.makeSet(values)
	}
	out := make([]any, 0, len(values))
	for _, v := range values {
		dup := false
		for _, u := range out {
			if reflect.DeepEqual(u, v) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, v)
		}
	}
	return out, nil
}

// MakeSequence materializes a sequence from index-ordered contents.
func (r *Registry) MakeSequence(values []any) (any, error) {
	if r.makeSequence != nil {
		return r.makeSequence(values)
	}
	return values, nil
}

// MakeDictionary materializes a dictionary.
func (r *Registry) MakeDictionary(m map[any]any) (any, error) {
	if r.makeDictionary != nil {
		return r.makeDictionary(m)
	}
	return m, nil
}

// MakeTuple materializes a constructor-less object expression.
func (r *Registry) MakeTuple(values []any) (any, error) {
	if r.makeTuple != nil {
		return r.makeTuple(values)
	}
	return values, nil
}

func builtinInt(args ...any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("int: want 1 argument, got %d", len(args))
	}
	switch v := args[0].(type) {
	case int:
		return v, nil
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("int: %q is not an integer", v)
		}
		return n, nil
	default:
		return nil, fmt.Errorf("int: cannot convert %T", args[0])
	}
}

func builtinStr(args ...any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("str: want 1 argument, got %d", len(args))
	}
	return fmt.Sprint(args[0]), nil
}

// WrapFunc adapts a Go function to the Constructor signature. Parameters
// are filled positionally; string arguments are converted to int parameters
// when needed (answer-set constants arrive as strings). The function may
// return (T) or (T, error).
func WrapFunc(fn any) (Constructor, error) {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		return nil, fmt.Errorf("not a function: %T", fn)
	}
	t := v.Type()
	if t.NumOut() == 0 || t.NumOut() > 2 {
		return nil, fmt.Errorf("constructor must return (T) or (T, error), has %d results", t.NumOut())
	}
	if t.NumOut() == 2 && t.Out(1) != reflect.TypeOf((*error)(nil)).Elem() {
		return nil, fmt.Errorf("second result must be error, is %s", t.Out(1))
	}
	return func(args ...any) (any, error) {
		if t.IsVariadic() {
			if len(args) < t.NumIn()-1 {
				return nil, fmt.Errorf("want at least %d arguments, got %d", t.NumIn()-1, len(args))
			}
		} else if len(args) != t.NumIn() {
			return nil, fmt.Errorf("want %d arguments, got %d", t.NumIn(), len(args))
		}
		in := make([]reflect.Value, len(args))
		for i, a := range args {
			var want reflect.Type
			if t.IsVariadic() && i >= t.NumIn()-1 {
				want = t.In(t.NumIn() - 1).Elem()
			} else {
				want = t.In(i)
			}
			av, err := coerce(a, want)
			if err != nil {
				return nil, fmt.Errorf("argument %d: %w", i, err)
			}
			in[i] = av
		}
		out := v.Call(in)
		if len(out) == 2 && !out[1].IsNil() {
			return nil, out[1].Interface().(error)
		}
		return out[0].Interface(), nil
	}, nil
}

func coerce(a any, want reflect.Type) (reflect.Value, error) {
	av := reflect.ValueOf(a)
	if a == nil {
		return reflect.Zero(want), nil
	}
	if av.Type().AssignableTo(want) {
		return av, nil
	}
	if s, ok := a.(string); ok {
		switch want.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			n, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return reflect.Value{}, fmt.Errorf("%q is not an integer", s)
			}
			return reflect.ValueOf(n).Convert(want), nil
		}
	}
	if av.Type().ConvertibleTo(want) {
		return av.Convert(want), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot use %T as %s", a, want)
}
