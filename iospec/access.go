package iospec

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Access is one step of an accessor path: an attribute or a subscript.
type Access interface {
	access(obj any) (any, error)
	String() string
}

// Attr reads a named attribute: an exported struct field (the annotation
// name "label" matches the field "Label") or a string-keyed map entry,
// which keeps JSON-decoded input (map[string]any) addressable by the same
// paths as typed structs.
type Attr struct {
	Name string
}

func (a Attr) String() string { return "." + a.Name }

func (a Attr) access(obj any) (any, error) {
	v := reflect.ValueOf(obj)
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil, fmt.Errorf("cannot access attribute %q on nil value", a.Name)
		}
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Struct:
		f := v.FieldByName(a.Name)
		if !f.IsValid() || !f.CanInterface() {
			// An unexported field may shadow the exported one.
			f = v.FieldByName(exportedName(a.Name))
		}
		if f.IsValid() && f.CanInterface() {
			return f.Interface(), nil
		}
	case reflect.Map:
		if v.Type().Key().Kind() == reflect.String {
			e := v.MapIndex(reflect.ValueOf(a.Name).Convert(v.Type().Key()))
			if e.IsValid() {
				return e.Interface(), nil
			}
		}
	}
	return nil, fmt.Errorf("cannot access attribute %q on value of type %T", a.Name, obj)
}

// exportedName upper-cases the first rune, mapping an annotation-side name
// to the exported Go field it refers to.
func exportedName(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError {
		return name
	}
	return string(unicode.ToUpper(r)) + name[size:]
}

// Index reads a subscript: a slice/array/string position (int key) or a
// map entry (int or string key).
type Index struct {
	Key any // int or string
}

func (s Index) String() string {
	if k, ok := s.Key.(string); ok {
		return fmt.Sprintf("[%q]", k)
	}
	return fmt.Sprintf("[%v]", s.Key)
}

func (s Index) access(obj any) (any, error) {
	v := reflect.ValueOf(obj)
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil, fmt.Errorf("cannot access subscript %s on nil value", s)
		}
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Slice, reflect.Array, reflect.String:
		i, ok := s.Key.(int)
		if !ok {
			return nil, fmt.Errorf("subscript %s: value of type %T is indexed by integers", s, obj)
		}
		if v.Kind() == reflect.String {
			// Strings index by rune, not byte.
			runes := []rune(v.String())
			if i < 0 || i >= len(runes) {
				return nil, fmt.Errorf("subscript %s: index out of range (len %d)", s, len(runes))
			}
			return string(runes[i]), nil
		}
		if i < 0 || i >= v.Len() {
			return nil, fmt.Errorf("subscript %s: index out of range (len %d)", s, v.Len())
		}
		return v.Index(i).Interface(), nil
	case reflect.Map:
		kv := reflect.ValueOf(s.Key)
		if !kv.Type().AssignableTo(v.Type().Key()) {
			if !kv.Type().ConvertibleTo(v.Type().Key()) {
				return nil, fmt.Errorf("subscript %s: key type mismatch for map of type %T", s, obj)
			}
			kv = kv.Convert(v.Type().Key())
		}
		e := v.MapIndex(kv)
		if !e.IsValid() {
			return nil, fmt.Errorf("subscript %s: key not present in map", s)
		}
		return e.Interface(), nil
	}
	return nil, fmt.Errorf("cannot access subscript %s on value of type %T", s, obj)
}

// Accessor names a bound variable and a path of accesses applied to it,
// e.g. node.neighbors[2].label.
type Accessor struct {
	Var  string
	Path []Access
}

func (a Accessor) String() string {
	var b strings.Builder
	b.WriteString(a.Var)
	for _, p := range a.Path {
		b.WriteString(p.String())
	}
	return b.String()
}

func (a Accessor) checkBindings(bound map[string]bool) error {
	if !bound[a.Var] {
		return fmt.Errorf("variable %s is being accessed: %w", a.Var, ErrUndefinedName)
	}
	return nil
}

// resolve walks the accessor path relative to the given variable context.
func (a Accessor) resolve(ctx map[string]any) (any, error) {
	obj, ok := ctx[a.Var]
	if !ok {
		return nil, fmt.Errorf("variable %s is being accessed: %w", a.Var, ErrUndefinedName)
	}
	for _, p := range a.Path {
		var err error
		obj, err = p.access(obj)
		if err != nil {
			return nil, fmt.Errorf("in accessor %s: %w", a, err)
		}
	}
	return obj, nil
}

// iterate walks the collection an accessor resolves to and calls fn once
// per element:
//   - slice/array: (index, element) pairs
//   - map[T]struct{}: bare elements (the idiomatic Go set)
//   - any other map: (key, value) pairs
//
// Pairs arrive as [2]any wrapped in pairValue so tuple-match targets can
// destructure them.
func (a Accessor) iterate(ctx map[string]any, fn func(any) error) error {
	col, err := a.resolve(ctx)
	if err != nil {
		return err
	}
	v := reflect.ValueOf(col)
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return fmt.Errorf("iteration over %s: collection is nil", a)
		}
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if err := fn(pair(i, v.Index(i).Interface())); err != nil {
				return err
			}
		}
		return nil
	case reflect.Map:
		isSet := v.Type().Elem() == reflect.TypeOf(struct{}{})
		iter := v.MapRange()
		for iter.Next() {
			var e any
			if isSet {
				e = iter.Key().Interface()
			} else {
				e = pair(iter.Key().Interface(), iter.Value().Interface())
			}
			if err := fn(e); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf(
		"iteration over %s: value of type %T is not a slice, map or set (map[T]struct{})", a, col)
}

// pair builds the (index, element) or (key, value) tuple produced by
// iterating a slice or map. A [2]any destructures through tuple-match
// targets and, when bound to a single variable, stays addressable via
// integer subscripts.
func pair(a, b any) [2]any { return [2]any{a, b} }
