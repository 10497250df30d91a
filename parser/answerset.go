package parser

import (
	"fmt"
	"strings"

	"aspio/asp"
)

// ParseAnswerSet parses one answer-set line as printed by the solver, e.g.
//
//	{p(1),q(a,"b c"),empty}
//
// Atom arguments are kept as raw term text (integers stay decimal strings,
// nested function terms stay verbatim); quoted string constants are
// unescaped.
func ParseAnswerSet(line string) (asp.AnswerSet, error) {
	s := answerSetScanner{src: line}
	as := make(asp.AnswerSet)

	s.skipSpace()
	if !s.consume('{') {
		return nil, s.errf("expected '{'")
	}
	s.skipSpace()
	if s.consume('}') {
		s.skipSpace()
		if !s.eof() {
			return nil, s.errf("trailing input after answer set")
		}
		return as, nil
	}
	for {
		pred, args, err := s.atom()
		if err != nil {
			return nil, err
		}
		as.Add(pred, args)
		s.skipSpace()
		if s.consume(',') {
			s.skipSpace()
			continue
		}
		if s.consume('}') {
			break
		}
		return nil, s.errf("expected ',' or '}'")
	}
	s.skipSpace()
	if !s.eof() {
		return nil, s.errf("trailing input after answer set")
	}
	return as, nil
}

type answerSetScanner struct {
	src string
	pos int
}

func (s *answerSetScanner) eof() bool { return s.pos >= len(s.src) }

func (s *answerSetScanner) errf(format string, args ...any) error {
	return &Error{Line: 1, Col: s.pos + 1, Msg: fmt.Sprintf(format, args...)}
}

func (s *answerSetScanner) skipSpace() {
	for !s.eof() && (s.src[s.pos] == ' ' || s.src[s.pos] == '\t') {
		s.pos++
	}
}

func (s *answerSetScanner) consume(c byte) bool {
	if !s.eof() && s.src[s.pos] == c {
		s.pos++
		return true
	}
	return false
}

// atom reads predicate[(arg,...)]. A leading '-' (strong negation) stays
// part of the predicate name.
func (s *answerSetScanner) atom() (string, []string, error) {
	start := s.pos
	s.consume('-')
	if s.eof() || !isIdentStart(s.src[s.pos]) {
		return "", nil, s.errf("expected atom")
	}
	for !s.eof() && isIdentPart(s.src[s.pos]) {
		s.pos++
	}
	pred := s.src[start:s.pos]
	if !s.consume('(') {
		return pred, nil, nil
	}
	var args []string
	for {
		arg, err := s.argument()
		if err != nil {
			return "", nil, err
		}
		args = append(args, arg)
		if s.consume(',') {
			continue
		}
		if s.consume(')') {
			return pred, args, nil
		}
		return "", nil, s.errf("expected ',' or ')' in atom %s", pred)
	}
}

// argument captures one top-level argument as raw text, respecting nested
// parentheses and quoted strings. A plain quoted string is unescaped.
func (s *answerSetScanner) argument() (string, error) {
	start := s.pos
	depth := 0
	for !s.eof() {
		switch c := s.src[s.pos]; c {
		case '"':
			if err := s.skipString(); err != nil {
				return "", err
			}
			continue
		case '(':
			depth++
		case ')':
			if depth == 0 {
				return s.finishArgument(start)
			}
			depth--
		case ',':
			if depth == 0 {
				return s.finishArgument(start)
			}
		}
		s.pos++
	}
	return "", s.errf("unterminated atom")
}

func (s *answerSetScanner) finishArgument(start int) (string, error) {
	raw := s.src[start:s.pos]
	if raw == "" {
		return "", s.errf("empty argument")
	}
	if raw[0] == '"' && raw[len(raw)-1] == '"' && len(raw) >= 2 {
		return unescape(raw[1 : len(raw)-1]), nil
	}
	return raw, nil
}

func (s *answerSetScanner) skipString() error {
	s.pos++ // opening quote
	for !s.eof() {
		switch s.src[s.pos] {
		case '\\':
			s.pos += 2
		case '"':
			s.pos++
			return nil
		default:
			s.pos++
		}
	}
	return s.errf("unterminated string")
}

func unescape(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
