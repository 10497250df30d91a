// Package parser reads the INPUT/OUTPUT annotation language, its embedded
// form inside %! comments of ASP source, and the answer-set lines printed
// by the solver.
//
// The grammar is small and LL(1)-ish, so this is a hand-rolled lexer and
// recursive-descent parser rather than a grammar toolkit.
package parser

import (
	"fmt"
	"strconv"
	"strings"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokInt
	tokString
	tokPunct
)

type token struct {
	kind tokenKind
	text string // identifier text, punctuation, or raw integer digits
	str  string // unescaped value for tokString
	val  int    // value for tokInt
	line int
	col  int
}

func (t token) describe() string {
	switch t.kind {
	case tokEOF:
		return "end of input"
	case tokString:
		return fmt.Sprintf("string %q", t.str)
	default:
		return fmt.Sprintf("%q", t.text)
	}
}

// Error is a positioned parse error.
type Error struct {
	Line int
	Col  int
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("parse error at line %d, column %d: %s", e.Line, e.Col, e.Msg)
}

func errAt(t token, format string, args ...any) error {
	return &Error{Line: t.line, Col: t.col, Msg: fmt.Sprintf(format, args...)}
}

// lex tokenizes the annotation language. Comments run from '%' to the end
// of the line.
func lex(src string) ([]token, error) {
	var toks []token
	line, col := 1, 1
	i := 0
	emit := func(k tokenKind, text string, startCol int) {
		toks = append(toks, token{kind: k, text: text, line: line, col: startCol})
	}
	for i < len(src) {
		c := src[i]
		switch {
		case c == '\n':
			i++
			line++
			col = 1
		case c == ' ' || c == '\t' || c == '\r':
			i++
			col++
		case c == '%':
			for i < len(src) && src[i] != '\n' {
				i++
			}
		case isIdentStart(c):
			start, startCol := i, col
			for i < len(src) && isIdentPart(src[i]) {
				i++
				col++
			}
			emit(tokIdent, src[start:i], startCol)
		case c >= '0' && c <= '9':
			start, startCol := i, col
			for i < len(src) && src[i] >= '0' && src[i] <= '9' {
				i++
				col++
			}
			text := src[start:i]
			n, err := strconv.Atoi(text)
			if err != nil {
				return nil, &Error{Line: line, Col: startCol, Msg: fmt.Sprintf("invalid integer %q", text)}
			}
			toks = append(toks, token{kind: tokInt, text: text, val: n, line: line, col: startCol})
		case c == '"':
			startCol := col
			i++
			col++
			var b strings.Builder
			closed := false
			for i < len(src) {
				ch := src[i]
				if ch == '\n' {
					break
				}
				if ch == '\\' && i+1 < len(src) {
					b.WriteByte(src[i+1])
					i += 2
					col += 2
					continue
				}
				if ch == '"' {
					i++
					col++
					closed = true
					break
				}
				b.WriteByte(ch)
				i++
				col++
			}
			if !closed {
				return nil, &Error{Line: line, Col: startCol, Msg: "unterminated string"}
			}
			toks = append(toks, token{kind: tokString, text: b.String(), str: b.String(), line: line, col: startCol})
		case c == '-':
			startCol := col
			if i+1 < len(src) && src[i+1] == '>' {
				i += 2
				col += 2
				emit(tokPunct, "->", startCol)
				break
			}
			if i+1 < len(src) && src[i+1] >= '0' && src[i+1] <= '9' {
				i++
				col++
				start := i
				for i < len(src) && src[i] >= '0' && src[i] <= '9' {
					i++
					col++
				}
				text := src[start:i]
				n, _ := strconv.Atoi(text)
				toks = append(toks, token{kind: tokInt, text: "-" + text, val: -n, line: line, col: startCol})
				break
			}
			i++
			col++
			emit(tokPunct, "-", startCol)
		case c == '#':
			startCol := col
			i++
			col++
			start := i
			for i < len(src) && isIdentPart(src[i]) {
				i++
				col++
			}
			if start == i {
				return nil, &Error{Line: line, Col: startCol, Msg: "unexpected character '#'"}
			}
			emit(tokPunct, "#"+src[start:i], startCol)
		default:
			startCol := col
			two := ""
			if i+1 < len(src) {
				two = src[i : i+2]
			}
			switch two {
			case "==", "!=", "<>", "<=", ">=":
				i += 2
				col += 2
				emit(tokPunct, two, startCol)
			default:
				switch c {
				case '(', ')', '[', ']', '{', '}', '<', '>', '.', ',', ':', ';', '=', '&', '/':
					i++
					col++
					emit(tokPunct, string(c), startCol)
				default:
					return nil, &Error{Line: line, Col: startCol, Msg: fmt.Sprintf("unexpected character %q", string(c))}
				}
			}
		}
	}
	toks = append(toks, token{kind: tokEOF, line: line, col: col})
	return toks, nil
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func isLowerStart(s string) bool {
	return len(s) > 0 && s[0] >= 'a' && s[0] <= 'z'
}

func isUpperStart(s string) bool {
	return len(s) > 0 && s[0] >= 'A' && s[0] <= 'Z'
}
