package iospec

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"

	"aspio/asp"
	"aspio/registry"
)

// Expr is one output expression. Expressions are built by the parser (or by
// hand) and validated once through NewOutputSpec; evaluation then runs per
// answer set.
type Expr interface {
	evaluate(ev *Evaluation, lc *localContext) (any, error)
	// variables lists the variable expressions used by this expression and
	// its subexpressions (query-only variables are not included).
	variables() []string
	check(top string, bound []string, c *predCounter) error
	additionalRules(out *[]asp.Rule)
	capturedPredicates(out *[]string)
}

// predCounter numbers the helper predicates of one OutputSpec. Deterministic
// numbering keeps generated programs reproducible.
type predCounter struct{ n int }

func (c *predCounter) next() string {
	name := fmt.Sprintf("aspio__o%d", c.n)
	c.n++
	return name
}

// localContext is the current assignment of ASP variables while walking
// nested collection expressions.
type localContext struct {
	va map[string]string
}

func newLocalContext() *localContext {
	return &localContext{va: make(map[string]string)}
}

// assign binds names to values and returns the function that removes the
// bindings again.
func (lc *localContext) assign(names, values []string) func() {
	for i, n := range names {
		lc.va[n] = values[i]
	}
	return func() {
		for _, n := range names {
			delete(lc.va, n)
		}
	}
}

// Constant is a literal int or string value.
type Constant struct {
	Value any
}

func (c Constant) evaluate(*Evaluation, *localContext) (any, error) { return c.Value, nil }
func (c Constant) variables() []string                              { return nil }
func (c Constant) check(string, []string, *predCounter) error       { return nil }
func (c Constant) additionalRules(*[]asp.Rule)                      {}
func (c Constant) capturedPredicates(*[]string)                     {}

// Var evaluates to the string value currently bound to an ASP variable.
type Var struct {
	Name string
}

func (v Var) evaluate(_ *Evaluation, lc *localContext) (any, error) {
	s, ok := lc.va[v.Name]
	if !ok {
		return nil, fmt.Errorf("variable %s: %w", v.Name, ErrUndefinedName)
	}
	return s, nil
}

func (v Var) variables() []string { return []string{v.Name} }

func (v Var) check(top string, bound []string, _ *predCounter) error {
	for _, b := range bound {
		if b == v.Name {
			return nil
		}
	}
	return fmt.Errorf("variable %s is not defined at point of use (in definition of %s): %w",
		v.Name, top, ErrUndefinedName)
}

func (v Var) additionalRules(*[]asp.Rule)  {}
func (v Var) capturedPredicates(*[]string) {}

// Reference evaluates to another top-level output object (&name).
type Reference struct {
	Name string
}

func (r Reference) evaluate(ev *Evaluation, _ *localContext) (any, error) {
	return ev.GetObject(r.Name)
}

func (r Reference) variables() []string                        { return nil }
func (r Reference) check(string, []string, *predCounter) error { return nil }
func (r Reference) additionalRules(*[]asp.Rule)                {}
func (r Reference) capturedPredicates(*[]string)               {}

// Object constructs a host object by calling a registered constructor with
// the evaluated subexpressions. An empty constructor name builds a tuple.
type Object struct {
	Constructor string
	Args        []Expr
}

func (o Object) evaluate(ev *Evaluation, lc *localContext) (any, error) {
	args := make([]any, len(o.Args))
	for i, sub := range o.Args {
		v, err := sub.evaluate(ev, lc)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	if o.Constructor == "" {
		return ev.reg.MakeTuple(args)
	}
	ctor, ok := ev.reg.Resolve(o.Constructor)
	if !ok {
		return nil, fmt.Errorf("constructor %q is not registered", o.Constructor)
	}
	obj, err := ctor(args...)
	if err != nil {
		return nil, fmt.Errorf("constructor %q: %w", o.Constructor, err)
	}
	return obj, nil
}

func (o Object) variables() []string {
	var vs []string
	for _, sub := range o.Args {
		vs = append(vs, sub.variables()...)
	}
	return vs
}

func (o Object) check(top string, bound []string, c *predCounter) error {
	for _, sub := range o.Args {
		if err := sub.check(top, bound, c); err != nil {
			return err
		}
	}
	return nil
}

func (o Object) additionalRules(out *[]asp.Rule) {
	for _, sub := range o.Args {
		sub.additionalRules(out)
	}
}

func (o Object) capturedPredicates(out *[]string) {
	for _, sub := range o.Args {
		sub.capturedPredicates(out)
	}
}

// collectionState is the binding analysis shared by set, sequence and
// dictionary expressions, filled in during check:
//
//   - fixedVars: query variables already bound by an enclosing collection;
//     the helper predicate's tuples are filtered on these.
//   - capturedVars: the helper predicate's argument list. Fixed variables
//     first, then the varying variables actually used by subexpressions.
type collectionState struct {
	outPredicate string
	fixedVars    []string
	capturedVars []string
}

func (st *collectionState) checkCollection(q asp.Query, subexprs []Expr, top string, bound []string, c *predCounter) error {
	st.outPredicate = c.next()

	queryVars := make(map[string]bool)
	var queryOrder []string
	for _, v := range q.Variables() {
		if !queryVars[v.Name] {
			queryVars[v.Name] = true
			queryOrder = append(queryOrder, v.Name)
		}
	}

	// bound may repeat a variable when nested queries share one; the fixed
	// prefix must list each at most once.
	st.fixedVars = nil
	fixed := make(map[string]bool)
	for _, b := range bound {
		if queryVars[b] && !fixed[b] {
			st.fixedVars = append(st.fixedVars, b)
			fixed[b] = true
		}
	}

	used := make(map[string]bool)
	for _, sub := range subexprs {
		for _, v := range sub.variables() {
			used[v] = true
		}
	}

	st.capturedVars = append([]string(nil), st.fixedVars...)
	for _, v := range queryOrder {
		if used[v] && !fixed[v] {
			st.capturedVars = append(st.capturedVars, v)
		}
	}

	inner := append(append([]string(nil), bound...), queryOrder...)
	for _, sub := range subexprs {
		if err := sub.check(top, inner, c); err != nil {
			return err
		}
	}
	return nil
}

func (st *collectionState) rule(q asp.Query) asp.Rule {
	head := st.outPredicate + "("
	for i, v := range st.capturedVars {
		if i > 0 {
			head += ","
		}
		head += v
	}
	return head + ") :- " + q.String() + "."
}

// capturedValues yields the helper predicate's tuples whose fixed-variable
// prefix agrees with the current bindings.
func (st *collectionState) capturedValues(ev *Evaluation, lc *localContext) [][]string {
	var out [][]string
	for _, tuple := range ev.answerSet.Tuples(st.outPredicate) {
		if len(tuple) != len(st.capturedVars) {
			continue
		}
		ok := true
		for i, v := range st.fixedVars {
			if lc.va[v] != tuple[i] {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, tuple)
		}
	}
	return out
}

// evalUnder evaluates a subexpression with the varying portion of one
// captured tuple bound.
func (st *collectionState) evalUnder(sub Expr, tuple []string, ev *Evaluation, lc *localContext) (any, error) {
	i := len(st.fixedVars)
	restore := lc.assign(st.capturedVars[i:], tuple[i:])
	defer restore()
	return sub.evaluate(ev, lc)
}

// Set maps the results of a query to a set of content values.
type Set struct {
	Query   asp.Query
	Content Expr
	collectionState
}

func (s *Set) evaluate(ev *Evaluation, lc *localContext) (any, error) {
	var values []any
	for _, tuple := range s.capturedValues(ev, lc) {
		v, err := s.evalUnder(s.Content, tuple, ev, lc)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return ev.reg.MakeSet(values)
}

func (s *Set) variables() []string { return s.Content.variables() }

func (s *Set) check(top string, bound []string, c *predCounter) error {
	return s.checkCollection(s.Query, []Expr{s.Content}, top, bound, c)
}

func (s *Set) additionalRules(out *[]asp.Rule) {
	*out = append(*out, s.rule(s.Query))
	s.Content.additionalRules(out)
}

func (s *Set) capturedPredicates(out *[]string) {
	*out = append(*out, s.outPredicate)
	s.Content.capturedPredicates(out)
}

// NewSimpleSet builds the expression for the shorthand forms
// "set { pred/arity }" and "set { pred/arity -> Constructor }": the tuples
// of the predicate, optionally passed through a constructor. 1-tuples
// without a constructor are unpacked.
func NewSimpleSet(predicate string, arity int, constructor string) *Set {
	vars := make([]string, arity)
	terms := make([]asp.Term, arity)
	for i := range vars {
		vars[i] = fmt.Sprintf("X%d", i)
		terms[i] = asp.Variable{Name: vars[i]}
	}
	query := asp.Query{Literals: []asp.Literal{{Predicate: predicate, Args: terms}}}
	var content Expr
	if arity == 1 && constructor == "" {
		content = Var{Name: vars[0]}
	} else {
		args := make([]Expr, arity)
		for i, v := range vars {
			args[i] = Var{Name: v}
		}
		content = Object{Constructor: constructor, Args: args}
	}
	return &Set{Query: query, Content: content}
}

// Sequence maps the results of a query to a slice ordered by an index
// variable. The indices must form exactly the range 0..n-1.
type Sequence struct {
	Query   asp.Query
	Content Expr
	Index   Var
	collectionState
	indexPos int
}

func (s *Sequence) evaluate(ev *Evaluation, lc *localContext) (any, error) {
	tuples := s.capturedValues(ev, lc)

	type element struct {
		index int
		value any
	}
	elems := make([]element, 0, len(tuples))
	for _, tuple := range tuples {
		idx, err := strconv.Atoi(tuple[s.indexPos])
		if err != nil {
			return nil, fmt.Errorf("index variable %s is not an integer (%q): %w",
				s.Index.Name, tuple[s.indexPos], ErrInvalidIndices)
		}
		v, err := s.evalUnder(s.Content, tuple, ev, lc)
		if err != nil {
			return nil, err
		}
		elems = append(elems, element{idx, v})
	}

	sort.Slice(elems, func(i, j int) bool { return elems[i].index < elems[j].index })
	values := make([]any, len(elems))
	for i, e := range elems {
		if e.index != i {
			return nil, fmt.Errorf("indices of %s do not form the range 0..%d: %w",
				s.outPredicate, len(elems)-1, ErrInvalidIndices)
		}
		values[i] = e.value
	}
	return ev.reg.MakeSequence(values)
}

func (s *Sequence) variables() []string {
	return append(s.Content.variables(), s.Index.variables()...)
}

func (s *Sequence) check(top string, bound []string, c *predCounter) error {
	if err := s.checkCollection(s.Query, []Expr{s.Content, s.Index}, top, bound, c); err != nil {
		return err
	}
	s.indexPos = -1
	for i, v := range s.capturedVars {
		if v == s.Index.Name {
			s.indexPos = i
			break
		}
	}
	if s.indexPos < 0 {
		return fmt.Errorf("index variable %s does not occur in the query of %s: %w",
			s.Index.Name, top, ErrUndefinedName)
	}
	return nil
}

func (s *Sequence) additionalRules(out *[]asp.Rule) {
	*out = append(*out, s.rule(s.Query))
	s.Content.additionalRules(out)
}

func (s *Sequence) capturedPredicates(out *[]string) {
	*out = append(*out, s.outPredicate)
	s.Content.capturedPredicates(out)
}

// Dictionary maps the results of a query to a map from key expression to
// content expression. Duplicate keys are an error.
type Dictionary struct {
	Query   asp.Query
	Content Expr
	Key     Expr
	collectionState
}

func (d *Dictionary) evaluate(ev *Evaluation, lc *localContext) (any, error) {
	m := make(map[any]any)
	for _, tuple := range d.capturedValues(ev, lc) {
		k, err := d.evalUnder(d.Key, tuple, ev, lc)
		if err != nil {
			return nil, err
		}
		if k != nil && !reflect.TypeOf(k).Comparable() {
			return nil, fmt.Errorf("dictionary key of type %T is not comparable", k)
		}
		if _, exists := m[k]; exists {
			return nil, fmt.Errorf("key %v: %w", k, ErrDuplicateKey)
		}
		v, err := d.evalUnder(d.Content, tuple, ev, lc)
		if err != nil {
			return nil, err
		}
		m[k] = v
	}
	return ev.reg.MakeDictionary(m)
}

func (d *Dictionary) variables() []string {
	return append(d.Content.variables(), d.Key.variables()...)
}

func (d *Dictionary) check(top string, bound []string, c *predCounter) error {
	return d.checkCollection(d.Query, []Expr{d.Content, d.Key}, top, bound, c)
}

func (d *Dictionary) additionalRules(out *[]asp.Rule) {
	*out = append(*out, d.rule(d.Query))
	d.Content.additionalRules(out)
	d.Key.additionalRules(out)
}

func (d *Dictionary) capturedPredicates(out *[]string) {
	*out = append(*out, d.outPredicate)
	d.Content.capturedPredicates(out)
	d.Key.capturedPredicates(out)
}

// NamedExpr is one "name = expr;" entry of an OUTPUT statement.
type NamedExpr struct {
	Name string
	Expr Expr
}

// OutputSpec is a validated OUTPUT statement.
type OutputSpec struct {
	exprs map[string]Expr
	order []string
}

// NewOutputSpec validates top-level name uniqueness and variable bindings,
// and assigns helper predicate names.
func NewOutputSpec(named []NamedExpr) (*OutputSpec, error) {
	s := &OutputSpec{exprs: make(map[string]Expr, len(named))}
	for _, ne := range named {
		if _, ok := s.exprs[ne.Name]; ok {
			return nil, fmt.Errorf("top-level output name %s: %w", ne.Name, ErrRedefinedName)
		}
		s.exprs[ne.Name] = ne.Expr
		s.order = append(s.order, ne.Name)
	}
	c := &predCounter{}
	for _, name := range s.order {
		if err := s.exprs[name].check(name, nil, c); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// EmptyOutput is the specification of a program with no mapped output.
func EmptyOutput() *OutputSpec {
	s, _ := NewOutputSpec(nil)
	return s
}

// Names returns the top-level output names in declaration order.
func (s *OutputSpec) Names() []string {
	return append([]string(nil), s.order...)
}

// AdditionalRules returns the helper rules that must be added to the
// program so the solver derives the captured tuples.
func (s *OutputSpec) AdditionalRules() []asp.Rule {
	var rules []asp.Rule
	for _, name := range s.order {
		s.exprs[name].additionalRules(&rules)
	}
	return rules
}

// CapturedPredicates returns the helper predicate names whose atoms the
// solver must report, without duplicates.
func (s *OutputSpec) CapturedPredicates() []string {
	var preds []string
	for _, name := range s.order {
		s.exprs[name].capturedPredicates(&preds)
	}
	seen := make(map[string]bool, len(preds))
	out := preds[:0]
	for _, p := range preds {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

// Evaluation maps one answer set to host objects, lazily and with caching.
type Evaluation struct {
	spec      *OutputSpec
	answerSet asp.AnswerSet
	reg       *registry.Registry
	objs      map[string]any
	building  map[string]bool
}

// NewEvaluation prepares the mapping of one answer set.
func (s *OutputSpec) NewEvaluation(answerSet asp.AnswerSet, reg *registry.Registry) *Evaluation {
	return &Evaluation{
		spec:      s,
		answerSet: answerSet,
		reg:       reg,
		objs:      make(map[string]any),
		building:  make(map[string]bool),
	}
}

// GetObject materializes the named top-level object. Repeated calls return
// the cached object. &reference cycles are reported as errors.
func (ev *Evaluation) GetObject(name string) (any, error) {
	if obj, ok := ev.objs[name]; ok {
		return obj, nil
	}
	expr, ok := ev.spec.exprs[name]
	if !ok {
		return nil, fmt.Errorf("no top-level output name %q: %w", name, ErrUndefinedName)
	}
	if ev.building[name] {
		return nil, fmt.Errorf("while resolving name %q: %w", name, ErrCircularReference)
	}
	ev.building[name] = true
	defer delete(ev.building, name)

	obj, err := expr.evaluate(ev, newLocalContext())
	if err != nil {
		return nil, err
	}
	ev.objs[name] = obj
	return obj, nil
}
