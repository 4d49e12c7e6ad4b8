package action

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/lexcodex/actloop/framework"
)

var errNotMapping = errors.New("arguments are not named")

// literalParser is a recursive-descent reader for the argument grammar
// models emit between the parentheses of a call:
//
//	args    = [ pair { "," pair } [ "," ] ]
//	pair    = key ( "=" | ":" ) value
//	key     = identifier | string
//	value   = string | number | bool | null | list | mapping
//	list    = "[" ... "]" | "(" ... ")"
//	mapping = "{" key ":" value ... "}"
//
// Keywords are case-insensitive: true/false and null/none/nil.
type literalParser struct {
	src string
	pos int
}

func parseLiteralArgs(raw string) (framework.Args, error) {
	p := &literalParser{src: raw}
	p.skipSpace()
	if p.eof() {
		return framework.Args{}, nil
	}
	// A call wrapping a single mapping is accepted: f({"a": 1}).
	if p.peek() == '{' {
		v, err := p.parseMapping()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if !p.eof() {
			return nil, p.errorf("unexpected %q after mapping", p.peek())
		}
		return framework.Args(v), nil
	}
	args := framework.Args{}
	for {
		p.skipSpace()
		if p.eof() {
			break
		}
		key, err := p.parseKey()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if p.eof() || (p.peek() != '=' && p.peek() != ':') {
			return nil, errNotMapping
		}
		p.pos++
		value, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		if _, dup := args[key]; dup {
			return nil, p.errorf("duplicate argument %q", key)
		}
		args[key] = value
		p.skipSpace()
		if p.eof() {
			break
		}
		if p.peek() != ',' {
			return nil, p.errorf("expected ',' got %q", p.peek())
		}
		p.pos++
	}
	return args, nil
}

func (p *literalParser) eof() bool { return p.pos >= len(p.src) }

func (p *literalParser) peek() byte { return p.src[p.pos] }

func (p *literalParser) errorf(format string, args ...any) error {
	return fmt.Errorf("offset %d: %s", p.pos, fmt.Sprintf(format, args...))
}

func (p *literalParser) skipSpace() {
	for !p.eof() {
		r, size := utf8.DecodeRuneInString(p.src[p.pos:])
		if !unicode.IsSpace(r) {
			return
		}
		p.pos += size
	}
}

func (p *literalParser) parseKey() (string, error) {
	if p.eof() {
		return "", p.errorf("expected argument name")
	}
	switch p.peek() {
	case '"', '\'':
		return p.parseString()
	}
	word := p.readWord()
	if word == "" || !isIdentifier(word) {
		// Positional values such as f(5) or f("x") land here.
		return "", errNotMapping
	}
	return word, nil
}

func (p *literalParser) readWord() string {
	start := p.pos
	for !p.eof() {
		c := p.peek()
		if c == '_' || c == '.' || c == '+' || c == '-' ||
			('0' <= c && c <= '9') || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') {
			p.pos++
			continue
		}
		break
	}
	return p.src[start:p.pos]
}

func isIdentifier(s string) bool {
	for i, c := range s {
		if c == '_' || unicode.IsLetter(c) || (i > 0 && unicode.IsDigit(c)) {
			continue
		}
		return false
	}
	return s != ""
}

func (p *literalParser) parseValue() (any, error) {
	p.skipSpace()
	if p.eof() {
		return nil, p.errorf("expected value")
	}
	switch c := p.peek(); c {
	case '"', '\'':
		return p.parseString()
	case '[':
		return p.parseList('[', ']')
	case '(':
		return p.parseList('(', ')')
	case '{':
		m, err := p.parseMapping()
		if err != nil {
			return nil, err
		}
		return m, nil
	}
	start := p.pos
	word := p.readWord()
	if word == "" {
		return nil, p.errorf("unexpected %q", p.src[start])
	}
	switch strings.ToLower(word) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	case "null", "none", "nil":
		return framework.Null, nil
	case "inf", "+inf", "infinity":
		return math.Inf(1), nil
	case "-inf", "-infinity":
		return math.Inf(-1), nil
	case "nan":
		return math.NaN(), nil
	}
	v, err := parseNumber(word)
	if err != nil {
		p.pos = start
		return nil, p.errorf("invalid value %q", word)
	}
	return v, nil
}

// parseNumber yields int64 for integers, *big.Int when they overflow and
// float64 otherwise.
func parseNumber(word string) (any, error) {
	if strings.ContainsAny(word, ".eE") {
		if strings.ContainsAny(word, "xX") {
			return nil, strconv.ErrSyntax
		}
		f, err := strconv.ParseFloat(word, 64)
		if err != nil {
			return nil, err
		}
		return f, nil
	}
	i, err := strconv.ParseInt(word, 10, 64)
	if err == nil {
		return i, nil
	}
	if errors.Is(err, strconv.ErrRange) {
		b, ok := new(big.Int).SetString(strings.TrimPrefix(word, "+"), 10)
		if ok {
			return b, nil
		}
	}
	return nil, err
}

func (p *literalParser) parseList(open, close byte) ([]any, error) {
	p.pos++ // open
	items := []any{}
	for {
		p.skipSpace()
		if p.eof() {
			return nil, p.errorf("unterminated list, expected %q", close)
		}
		if p.peek() == close {
			p.pos++
			return items, nil
		}
		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		items = append(items, v)
		p.skipSpace()
		if p.eof() {
			return nil, p.errorf("unterminated list, expected %q", close)
		}
		switch p.peek() {
		case ',':
			p.pos++
		case close:
		default:
			return nil, p.errorf("expected ',' or %q in list, got %q", close, p.peek())
		}
	}
}

func (p *literalParser) parseMapping() (map[string]any, error) {
	p.pos++ // {
	m := map[string]any{}
	for {
		p.skipSpace()
		if p.eof() {
			return nil, p.errorf("unterminated mapping")
		}
		if p.peek() == '}' {
			p.pos++
			return m, nil
		}
		key, err := p.parseKey()
		if err != nil {
			if errors.Is(err, errNotMapping) {
				return nil, p.errorf("invalid mapping key")
			}
			return nil, err
		}
		p.skipSpace()
		if p.eof() || (p.peek() != ':' && p.peek() != '=') {
			return nil, p.errorf("expected ':' after mapping key %q", key)
		}
		p.pos++
		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		m[key] = v
		p.skipSpace()
		if p.eof() {
			return nil, p.errorf("unterminated mapping")
		}
		switch p.peek() {
		case ',':
			p.pos++
		case '}':
		default:
			return nil, p.errorf("expected ',' or '}' in mapping, got %q", p.peek())
		}
	}
}

func (p *literalParser) parseString() (string, error) {
	quote := p.peek()
	p.pos++
	var b strings.Builder
	for {
		if p.eof() {
			return "", p.errorf("unterminated string")
		}
		c := p.peek()
		switch {
		case c == quote:
			p.pos++
			return b.String(), nil
		case c == '\\':
			p.pos++
			if p.eof() {
				return "", p.errorf("unterminated escape")
			}
			if err := p.readEscape(&b); err != nil {
				return "", err
			}
		default:
			r, size := utf8.DecodeRuneInString(p.src[p.pos:])
			b.WriteRune(r)
			p.pos += size
		}
	}
}

func (p *literalParser) readEscape(b *strings.Builder) error {
	c := p.peek()
	p.pos++
	switch c {
	case 'n':
		b.WriteByte('\n')
	case 't':
		b.WriteByte('\t')
	case 'r':
		b.WriteByte('\r')
	case 'b':
		b.WriteByte('\b')
	case 'f':
		b.WriteByte('\f')
	case '0':
		b.WriteByte(0)
	case '\\', '"', '\'', '/':
		b.WriteByte(c)
	case 'u':
		if p.pos+4 > len(p.src) {
			return p.errorf("short unicode escape")
		}
		n, err := strconv.ParseUint(p.src[p.pos:p.pos+4], 16, 32)
		if err != nil {
			return p.errorf("invalid unicode escape")
		}
		b.WriteRune(rune(n))
		p.pos += 4
	default:
		// Unknown escapes are kept verbatim, e.g. a Windows path C:\dir.
		b.WriteByte('\\')
		b.WriteByte(c)
	}
	return nil
}
