package parser

import (
	"strings"

	"aspio/asp"
	"aspio/iospec"
)

// builtinOps are the binary builtin predicates allowed in output queries.
var builtinOps = map[string]bool{
	"=": true, "==": true, "!=": true, "<>": true,
	"<": true, "<=": true, ">": true, ">=": true, "#succ": true,
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() token  { return p.toks[p.pos] }
func (p *parser) peek2() token { return p.toks[min(p.pos+1, len(p.toks)-1)] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) expect(text string) (token, error) {
	t := p.next()
	if t.kind == tokPunct && t.text == text {
		return t, nil
	}
	return t, errAt(t, "expected %q, found %s", text, t.describe())
}

func (p *parser) keyword(word string) bool {
	t := p.peek()
	if t.kind == tokIdent && strings.EqualFold(t.text, word) {
		p.next()
		return true
	}
	return false
}

func (p *parser) atKeyword(word string) bool {
	t := p.peek()
	return t.kind == tokIdent && strings.EqualFold(t.text, word)
}

func (p *parser) atPunct(text string) bool {
	t := p.peek()
	return t.kind == tokPunct && t.text == text
}

func (p *parser) accept(text string) bool {
	if p.atPunct(text) {
		p.next()
		return true
	}
	return false
}

// ParseInput parses a standalone INPUT statement.
func ParseInput(src string) (*iospec.InputSpec, error) {
	p, err := newParser(src)
	if err != nil {
		return nil, err
	}
	in, err := p.parseInputStatement()
	if err != nil {
		return nil, err
	}
	if err := p.expectEOF(); err != nil {
		return nil, err
	}
	return in, nil
}

// ParseOutput parses a standalone OUTPUT statement.
func ParseOutput(src string) (*iospec.OutputSpec, error) {
	p, err := newParser(src)
	if err != nil {
		return nil, err
	}
	out, err := p.parseOutputStatement()
	if err != nil {
		return nil, err
	}
	if err := p.expectEOF(); err != nil {
		return nil, err
	}
	return out, nil
}

// ParseSpec parses at most one INPUT and one OUTPUT statement, in any
// order. Either result may be nil.
func ParseSpec(src string) (*iospec.InputSpec, *iospec.OutputSpec, error) {
	p, err := newParser(src)
	if err != nil {
		return nil, nil, err
	}
	var in *iospec.InputSpec
	var out *iospec.OutputSpec
	for p.peek().kind != tokEOF {
		switch {
		case p.atKeyword("INPUT"):
			if in != nil {
				return nil, nil, errAt(p.peek(), "only one INPUT statement is allowed")
			}
			in, err = p.parseInputStatement()
		case p.atKeyword("OUTPUT"):
			if out != nil {
				return nil, nil, errAt(p.peek(), "only one OUTPUT statement is allowed")
			}
			out, err = p.parseOutputStatement()
		default:
			return nil, nil, errAt(p.peek(), "expected INPUT or OUTPUT, found %s", p.peek().describe())
		}
		if err != nil {
			return nil, nil, err
		}
	}
	return in, out, nil
}

func newParser(src string) (*parser, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	return &parser{toks: toks}, nil
}

func (p *parser) expectEOF() error {
	if t := p.peek(); t.kind != tokEOF {
		return errAt(t, "unexpected %s after statement", t.describe())
	}
	return nil
}

// ---- INPUT ----

func (p *parser) parseInputStatement() (*iospec.InputSpec, error) {
	if !p.keyword("INPUT") {
		return nil, errAt(p.peek(), "expected INPUT")
	}
	if _, err := p.expect("("); err != nil {
		return nil, err
	}
	params, err := p.parseInputParams()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect("{"); err != nil {
		return nil, err
	}
	var preds []iospec.PredicateMapping
	for !p.atPunct("}") {
		pm, err := p.parsePredicateMapping()
		if err != nil {
			return nil, err
		}
		preds = append(preds, pm)
	}
	p.next() // consume "}"
	spec, err := iospec.NewInputSpec(params, preds)
	if err != nil {
		return nil, err
	}
	return spec, nil
}

// parseInputParams reads "( [Type] name, ... )". Declared types such as
// Set<Node> are accepted and discarded; only the names matter.
func (p *parser) parseInputParams() ([]string, error) {
	var params []string
	if p.accept(")") {
		return params, nil
	}
	for {
		name, err := p.parseInputParam()
		if err != nil {
			return nil, err
		}
		params = append(params, name)
		if p.accept(",") {
			if p.accept(")") { // trailing comma
				return params, nil
			}
			continue
		}
		if _, err := p.expect(")"); err != nil {
			return nil, err
		}
		return params, nil
	}
}

func (p *parser) parseInputParam() (string, error) {
	first, err := p.parseQualifiedIdent()
	if err != nil {
		return "", err
	}
	if p.atPunct("<") {
		// first was a generic type; skip its arguments, then read the name
		if err := p.skipTypeArgs(); err != nil {
			return "", err
		}
		return p.parseVarName()
	}
	if p.peek().kind == tokIdent {
		// first was a plain type name
		return p.parseVarName()
	}
	if strings.Contains(first, ".") {
		return "", errAt(p.peek(), "expected parameter name after type %q", first)
	}
	if err := checkVarName(first, p.peek()); err != nil {
		return "", err
	}
	return first, nil
}

func (p *parser) skipTypeArgs() error {
	if _, err := p.expect("<"); err != nil {
		return err
	}
	for {
		if _, err := p.parseQualifiedIdent(); err != nil {
			return err
		}
		if p.atPunct("<") {
			if err := p.skipTypeArgs(); err != nil {
				return err
			}
		}
		if p.accept(",") {
			continue
		}
		_, err := p.expect(">")
		return err
	}
}

func (p *parser) parseQualifiedIdent() (string, error) {
	t := p.next()
	if t.kind != tokIdent {
		return "", errAt(t, "expected identifier, found %s", t.describe())
	}
	name := t.text
	for p.atPunct(".") && p.peek2().kind == tokIdent {
		p.next()
		name += "." + p.next().text
	}
	return name, nil
}

func (p *parser) parseVarName() (string, error) {
	t := p.next()
	if t.kind != tokIdent {
		return "", errAt(t, "expected variable name, found %s", t.describe())
	}
	if err := checkVarName(t.text, t); err != nil {
		return "", err
	}
	return t.text, nil
}

func checkVarName(name string, t token) error {
	if strings.EqualFold(name, "for") || strings.EqualFold(name, "in") {
		return errAt(t, "keyword %q cannot be used as a variable name", name)
	}
	if name == "_" {
		return errAt(t, `"_" cannot be used as a variable name here`)
	}
	return nil
}

func (p *parser) parsePredicateMapping() (iospec.PredicateMapping, error) {
	var pm iospec.PredicateMapping
	neg := p.accept("-") // strong negation
	t := p.next()
	if t.kind != tokIdent || !isLowerStart(t.text) {
		return pm, errAt(t, "expected predicate name, found %s", t.describe())
	}
	pm.Predicate = t.text
	if neg {
		pm.Predicate = "-" + t.text
	}
	if _, err := p.expect("("); err != nil {
		return pm, err
	}
	if !p.accept(")") {
		for {
			acc, err := p.parseAccessor()
			if err != nil {
				return pm, err
			}
			pm.Args = append(pm.Args, acc)
			if p.accept(",") {
				if p.accept(")") { // trailing comma
					break
				}
				continue
			}
			if _, err := p.expect(")"); err != nil {
				return pm, err
			}
			break
		}
	}
	for p.atKeyword("for") {
		p.next()
		target, err := p.parseTarget()
		if err != nil {
			return pm, err
		}
		if !p.keyword("in") {
			return pm, errAt(p.peek(), "expected \"in\", found %s", p.peek().describe())
		}
		acc, err := p.parseAccessor()
		if err != nil {
			return pm, err
		}
		pm.Loops = append(pm.Loops, iospec.Iteration{Target: target, Source: acc})
	}
	if _, err := p.expect(";"); err != nil {
		return pm, err
	}
	return pm, nil
}

func (p *parser) parseTarget() (iospec.Target, error) {
	t := p.peek()
	switch {
	case t.kind == tokIdent && t.text == "_":
		p.next()
		return iospec.TargetBlank{}, nil
	case t.kind == tokIdent:
		name, err := p.parseVarName()
		if err != nil {
			return nil, err
		}
		return iospec.TargetVar{Name: name}, nil
	case t.kind == tokPunct && t.text == "(":
		p.next()
		var elems []iospec.Target
		for {
			e, err := p.parseTarget()
			if err != nil {
				return nil, err
			}
			elems = append(elems, e)
			if p.accept(",") {
				if p.accept(")") { // trailing comma
					return iospec.TargetTuple{Elems: elems}, nil
				}
				continue
			}
			if _, err := p.expect(")"); err != nil {
				return nil, err
			}
			return iospec.TargetTuple{Elems: elems}, nil
		}
	}
	return nil, errAt(t, "expected assignment target, found %s", t.describe())
}

func (p *parser) parseAccessor() (iospec.Accessor, error) {
	var acc iospec.Accessor
	name, err := p.parseVarName()
	if err != nil {
		return acc, err
	}
	acc.Var = name
	for {
		switch {
		case p.atPunct("."):
			p.next()
			t := p.next()
			if t.kind != tokIdent {
				return acc, errAt(t, "expected attribute name, found %s", t.describe())
			}
			acc.Path = append(acc.Path, iospec.Attr{Name: t.text})
		case p.atPunct("["):
			p.next()
			t := p.next()
			var key any
			switch t.kind {
			case tokInt:
				key = t.val
			case tokString:
				key = t.str
			default:
				return acc, errAt(t, "expected integer or string subscript, found %s", t.describe())
			}
			if _, err := p.expect("]"); err != nil {
				return acc, err
			}
			acc.Path = append(acc.Path, iospec.Index{Key: key})
		default:
			return acc, nil
		}
	}
}

// ---- OUTPUT ----

func (p *parser) parseOutputStatement() (*iospec.OutputSpec, error) {
	if !p.keyword("OUTPUT") {
		return nil, errAt(p.peek(), "expected OUTPUT")
	}
	if _, err := p.expect("{"); err != nil {
		return nil, err
	}
	var named []iospec.NamedExpr
	for !p.atPunct("}") {
		t := p.next()
		if t.kind != tokIdent {
			return nil, errAt(t, "expected output name, found %s", t.describe())
		}
		if _, err := p.expect("="); err != nil {
			return nil, err
		}
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(";"); err != nil {
			return nil, err
		}
		named = append(named, iospec.NamedExpr{Name: t.text, Expr: expr})
	}
	p.next() // consume "}"
	spec, err := iospec.NewOutputSpec(named)
	if err != nil {
		return nil, err
	}
	return spec, nil
}

func (p *parser) parseExpr() (iospec.Expr, error) {
	t := p.peek()
	switch t.kind {
	case tokInt:
		p.next()
		return iospec.Constant{Value: t.val}, nil
	case tokString:
		p.next()
		return iospec.Constant{Value: t.str}, nil
	case tokPunct:
		switch t.text {
		case "(":
			p.next()
			args, err := p.parseExprArgs()
			if err != nil {
				return nil, err
			}
			return iospec.Object{Args: args}, nil
		case "&":
			p.next()
			n := p.next()
			if n.kind != tokIdent {
				return nil, errAt(n, "expected name after \"&\", found %s", n.describe())
			}
			return iospec.Reference{Name: n.text}, nil
		}
	case tokIdent:
		if (strings.EqualFold(t.text, "set") || strings.EqualFold(t.text, "sequence") ||
			strings.EqualFold(t.text, "dictionary")) && p.peek2().kind == tokPunct && p.peek2().text == "{" {
			return p.parseCollection()
		}
		name, err := p.parseQualifiedIdent()
		if err != nil {
			return nil, err
		}
		if p.accept("(") {
			args, err := p.parseExprArgs()
			if err != nil {
				return nil, err
			}
			return iospec.Object{Constructor: name, Args: args}, nil
		}
		if !strings.Contains(name, ".") && isUpperStart(name) {
			return iospec.Var{Name: name}, nil
		}
		return nil, errAt(t, "expected expression, found %q", name)
	}
	return nil, errAt(t, "expected expression, found %s", t.describe())
}

// parseExprArgs reads expressions up to a closing ")". The opening paren is
// already consumed.
func (p *parser) parseExprArgs() ([]iospec.Expr, error) {
	var args []iospec.Expr
	if p.accept(")") {
		return args, nil
	}
	for {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, e)
		if p.accept(",") {
			if p.accept(")") { // trailing comma
				return args, nil
			}
			continue
		}
		if _, err := p.expect(")"); err != nil {
			return nil, err
		}
		return args, nil
	}
}

func (p *parser) parseCollection() (iospec.Expr, error) {
	kw := strings.ToLower(p.next().text)
	if _, err := p.expect("{"); err != nil {
		return nil, err
	}

	// Shorthand: set { pred/arity } and set { pred/arity -> Constructor }
	if kw == "set" && p.peek().kind == tokIdent && isLowerStart(p.peek().text) &&
		p.peek2().kind == tokPunct && p.peek2().text == "/" {
		pred := p.next().text
		p.next() // "/"
		at := p.next()
		if at.kind != tokInt || at.val < 0 {
			return nil, errAt(at, "expected arity, found %s", at.describe())
		}
		ctor := ""
		if p.accept("->") {
			name, err := p.parseQualifiedIdent()
			if err != nil {
				return nil, err
			}
			ctor = name
		}
		if _, err := p.expect("}"); err != nil {
			return nil, err
		}
		return iospec.NewSimpleSet(pred, at.val, ctor), nil
	}

	var (
		query     *asp.Query
		content   iospec.Expr
		index     *iospec.Var
		key       iospec.Expr
		haveQuery bool
		haveIndex bool
		haveKey   bool
	)
	for !p.atPunct("}") {
		t := p.next()
		if t.kind != tokIdent {
			return nil, errAt(t, "expected clause name, found %s", t.describe())
		}
		clause := strings.ToLower(t.text)
		if _, err := p.expect(":"); err != nil {
			return nil, err
		}
		switch clause {
		case "query":
			if haveQuery {
				return nil, errAt(t, "duplicate query clause")
			}
			q, err := p.parseQuery()
			if err != nil {
				return nil, err
			}
			query, haveQuery = &q, true
		case "content":
			if content != nil {
				return nil, errAt(t, "duplicate content clause")
			}
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			content = e
		case "index":
			if kw != "sequence" {
				return nil, errAt(t, "index clause is only valid in a sequence expression")
			}
			if haveIndex {
				return nil, errAt(t, "duplicate index clause")
			}
			n := p.next()
			if n.kind != tokIdent || !isUpperStart(n.text) {
				return nil, errAt(n, "expected variable after index clause, found %s", n.describe())
			}
			index, haveIndex = &iospec.Var{Name: n.text}, true
		case "key":
			if kw != "dictionary" {
				return nil, errAt(t, "key clause is only valid in a dictionary expression")
			}
			if haveKey {
				return nil, errAt(t, "duplicate key clause")
			}
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			key, haveKey = e, true
		default:
			return nil, errAt(t, "unknown clause %q", t.text)
		}
		if _, err := p.expect(";"); err != nil {
			return nil, err
		}
	}
	closing := p.next() // consume "}"

	if !haveQuery || content == nil {
		return nil, errAt(closing, "%s expression needs query and content clauses", kw)
	}
	switch kw {
	case "set":
		return &iospec.Set{Query: *query, Content: content}, nil
	case "sequence":
		if !haveIndex {
			return nil, errAt(closing, "sequence expression needs an index clause")
		}
		return &iospec.Sequence{Query: *query, Content: content, Index: *index}, nil
	case "dictionary":
		if !haveKey {
			return nil, errAt(closing, "dictionary expression needs a key clause")
		}
		return &iospec.Dictionary{Query: *query, Content: content, Key: key}, nil
	}
	return nil, errAt(closing, "unknown collection kind %q", kw)
}

// parseQuery reads a conjunction of body literals, up to the ";" that ends
// the clause.
func (p *parser) parseQuery() (asp.Query, error) {
	var q asp.Query
	for {
		lit, err := p.parseBodyLiteral()
		if err != nil {
			return q, err
		}
		q.Literals = append(q.Literals, lit)
		if p.accept(",") {
			continue
		}
		return q, nil
	}
}

func (p *parser) parseBodyLiteral() (asp.Literal, error) {
	var lit asp.Literal
	if p.atKeyword("not") {
		p.next()
		lit.Negated = true
	}

	// Strongly negated atom: the "-" joins the predicate name.
	if p.accept("-") {
		t := p.next()
		if t.kind != tokIdent || !isLowerStart(t.text) {
			return lit, errAt(t, "expected predicate name after \"-\", found %s", t.describe())
		}
		lit.Predicate = "-" + t.text
		if err := p.parseAtomArgs(&lit); err != nil {
			return lit, err
		}
		return lit, nil
	}

	// Prefix builtin: op(t1, t2)
	if t := p.peek(); t.kind == tokPunct && builtinOps[t.text] {
		op := p.next().text
		if _, err := p.expect("("); err != nil {
			return lit, err
		}
		t1, err := p.parseTerm()
		if err != nil {
			return lit, err
		}
		if _, err := p.expect(","); err != nil {
			return lit, err
		}
		t2, err := p.parseTerm()
		if err != nil {
			return lit, err
		}
		if _, err := p.expect(")"); err != nil {
			return lit, err
		}
		lit.Predicate = op
		lit.Args = []asp.Term{t1, t2}
		return lit, nil
	}

	first := p.peek()
	t1, err := p.parseTerm()
	if err != nil {
		return lit, err
	}

	// Infix builtin: t1 op t2
	if t := p.peek(); t.kind == tokPunct && builtinOps[t.text] {
		op := p.next().text
		t2, err := p.parseTerm()
		if err != nil {
			return lit, err
		}
		lit.Predicate = op
		lit.Args = []asp.Term{t1, t2}
		return lit, nil
	}

	// Classical atom: the first term must have been a predicate name.
	pred, ok := t1.(string)
	if !ok || !isLowerStart(pred) {
		return lit, errAt(first, "expected atom, found %s", first.describe())
	}
	lit.Predicate = pred
	if err := p.parseAtomArgs(&lit); err != nil {
		return lit, err
	}
	return lit, nil
}

// parseAtomArgs reads an optional, possibly empty argument list.
func (p *parser) parseAtomArgs(lit *asp.Literal) error {
	if !p.accept("(") {
		return nil
	}
	if p.accept(")") {
		return nil
	}
	for {
		arg, err := p.parseTerm()
		if err != nil {
			return err
		}
		lit.Args = append(lit.Args, arg)
		if p.accept(",") {
			continue
		}
		_, err = p.expect(")")
		return err
	}
}

func (p *parser) parseTerm() (asp.Term, error) {
	t := p.next()
	switch t.kind {
	case tokInt:
		if t.val < 0 {
			return nil, errAt(t, "negative integers are not allowed in query terms")
		}
		return t.val, nil
	case tokString:
		return asp.QuotedConstant{Value: t.str}, nil
	case tokIdent:
		switch {
		case t.text == "_":
			return asp.AnonymousVariable{}, nil
		case isUpperStart(t.text):
			return asp.Variable{Name: t.text}, nil
		case isLowerStart(t.text):
			return t.text, nil
		}
	}
	return nil, errAt(t, "expected term, found %s", t.describe())
}
