package command

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Parser converts a command token into an argument value.
type Parser interface {
	// Type names the argument in usage strings.
	Type() string
	Parse(token string) (any, error)
}

// rest is implemented by parsers that consume the remainder of the line.
type rest interface {
	rest()
}

type intParser struct{}

// Int parses a base 10 integer into an int.
func Int() Parser { return intParser{} }

func (intParser) Type() string { return "int" }

func (intParser) Parse(tok string) (any, error) {
	v, err := strconv.Atoi(tok)
	if err != nil {
		return nil, fmt.Errorf("%q is not a whole number", tok)
	}
	return v, nil
}

type floatParser struct{}

// Float parses a number into a float64.
func Float() Parser { return floatParser{} }

func (floatParser) Type() string { return "float" }

func (floatParser) Parse(tok string) (any, error) {
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return nil, fmt.Errorf("%q is not a number", tok)
	}
	return v, nil
}

type boolParser struct{}

// Bool parses true/false, yes/no and on/off.
func Bool() Parser { return boolParser{} }

func (boolParser) Type() string { return "bool" }

func (boolParser) Parse(tok string) (any, error) {
	switch strings.ToLower(tok) {
	case "true", "yes", "on":
		return true, nil
	case "false", "no", "off":
		return false, nil
	}
	return nil, fmt.Errorf("%q is not true or false", tok)
}

type stringParser struct{}

// String parses one word, or a double-quoted phrase.
func String() Parser { return stringParser{} }

func (stringParser) Type() string { return "string" }

func (stringParser) Parse(tok string) (any, error) { return tok, nil }

type textParser struct{}

// Text takes the rest of the line. It must be the last argument.
func Text() Parser { return textParser{} }

func (textParser) Type() string { return "text" }

func (textParser) Parse(tok string) (any, error) { return tok, nil }

func (textParser) rest() {}

type enumParser struct {
	options []string
}

// Enum accepts one of options, case-insensitively, and yields the option as
// declared.
func Enum(options ...string) Parser {
	return enumParser{options: options}
}

func (p enumParser) Type() string { return strings.Join(p.options, "|") }

func (p enumParser) Parse(tok string) (any, error) {
	i := slices.IndexFunc(p.options, func(o string) bool { return strings.EqualFold(o, tok) })
	if i < 0 {
		return nil, fmt.Errorf("%q is not one of %s", tok, strings.Join(p.options, ", "))
	}
	return p.options[i], nil
}

// line splits command input into tokens on demand.
type line struct {
	s string
}

func (l *line) empty() bool {
	return strings.TrimSpace(l.s) == ""
}

// next returns the next word or quoted phrase.
func (l *line) next() (string, bool) {
	l.s = strings.TrimLeft(l.s, " ")
	if l.s == "" {
		return "", false
	}
	if l.s[0] == '"' {
		if end := strings.IndexByte(l.s[1:], '"'); end >= 0 {
			tok := l.s[1 : end+1]
			l.s = l.s[end+2:]
			return tok, true
		}
	}
	tok, after, _ := strings.Cut(l.s, " ")
	l.s = after
	return tok, true
}

// peek returns the next token without consuming it.
func (l *line) peek() (string, bool) {
	cp := *l
	return cp.next()
}

// remainder consumes and returns the rest of the line.
func (l *line) remainder() string {
	r := strings.TrimSpace(l.s)
	l.s = ""
	return r
}
