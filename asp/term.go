// Package asp models the fragment of ASP syntax that the I/O mapping layer
// exchanges with a solver: terms, literals, conjunctive queries and raw
// answer sets.
//
// dlvhex2 distinguishes between quoted and unquoted constant symbols, i.e.
// the program
//
//	p(abc). -p("abc").
//
// has an answer set. The distinction is preserved here: unquoted constants
// are plain strings, quoted constants are wrapped in QuotedConstant.
package asp

import (
	"fmt"
	"strings"
)

// Variable is an ASP variable (uppercase first letter in concrete syntax).
type Variable struct {
	Name string
}

func (v Variable) String() string { return v.Name }

// AnonymousVariable is the ASP placeholder variable "_".
type AnonymousVariable struct{}

func (AnonymousVariable) String() string { return "_" }

// QuotedConstant is a quoted string constant, distinct from the unquoted
// constant symbol with the same characters.
type QuotedConstant struct {
	Value string
}

func (q QuotedConstant) String() string { return Quote(q.Value) }

// Term is one argument of a literal. Valid dynamic types are int,
// string (an unquoted constant symbol), QuotedConstant, Variable and
// AnonymousVariable.
type Term any

// TermString renders a term in ASP concrete syntax.
func TermString(t Term) string {
	switch x := t.(type) {
	case int:
		return fmt.Sprintf("%d", x)
	case string:
		return x
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// Quote encloses the printed form of v in double quotes, escaping any
// contained backslashes and quotes.
func Quote(v any) string {
	s := fmt.Sprint(v)
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\', '"':
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	b.WriteByte('"')
	return b.String()
}

// Literal is a possibly non-ground, possibly default-negated literal.
// The predicate name carries a leading "-" for strongly negated literals.
// Builtin comparisons reuse Literal with the operator as predicate name.
type Literal struct {
	Predicate string
	Args      []Term
	Negated   bool // default negation ("not ...")
}

// comparisonOps are the builtin predicates rendered in infix notation.
var comparisonOps = map[string]bool{
	"=": true, "==": true, "!=": true, "<>": true,
	"<": true, "<=": true, ">": true, ">=": true,
}

func (l Literal) String() string {
	var b strings.Builder
	if l.Negated {
		b.WriteString("not ")
	}
	if comparisonOps[l.Predicate] && len(l.Args) == 2 {
		b.WriteString(TermString(l.Args[0]))
		b.WriteString(l.Predicate)
		b.WriteString(TermString(l.Args[1]))
		return b.String()
	}
	b.WriteString(l.Predicate)
	if len(l.Args) > 0 {
		b.WriteByte('(')
		for i, a := range l.Args {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(TermString(a))
		}
		b.WriteByte(')')
	}
	return b.String()
}

// Variables yields the named variables appearing in the literal's arguments.
func (l Literal) Variables() []Variable {
	var vs []Variable
	for _, a := range l.Args {
		if v, ok := a.(Variable); ok {
			vs = append(vs, v)
		}
	}
	return vs
}

// Query is a conjunction of literals, as used in the query clause of output
// collection expressions.
type Query struct {
	Literals []Literal
}

func (q Query) String() string {
	parts := make([]string, len(q.Literals))
	for i, l := range q.Literals {
		parts[i] = l.String()
	}
	return strings.Join(parts, ",")
}

// Variables yields every named variable of every literal, in order of
// appearance, duplicates included.
func (q Query) Variables() []Variable {
	var vs []Variable
	for _, l := range q.Literals {
		vs = append(vs, l.Variables()...)
	}
	return vs
}

// Rule is a textual ASP rule, ready to be passed to the solver.
type Rule = string
