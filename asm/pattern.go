package asm

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/chazu/orion/pkg/ast"
	"github.com/chazu/orion/pkg/bytecode"
)

// ErrPatternSyntax is returned for malformed pattern text.
var ErrPatternSyntax = errors.New("pattern syntax error")

// ParsePattern parses the pattern text used in listings. It is the
// inverse of ast.Pattern.String:
//
//	_            wildcard
//	name         bind
//	$"a b"       bind with a name that is not a bare identifier
//	42  -1.5     integer and float literals (also NaN, +Inf, -Inf)
//	"text"       string literal, Go quoting
//	#3(p, q)     constructor 3 with field patterns
//	(p, q)       tuple; () is the empty tuple
func ParsePattern(text string) (ast.Pattern, error) {
	p := &patternParser{src: text}
	pat, err := p.parse(0)
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos < len(p.src) {
		return nil, p.errorf("unexpected %q after pattern", p.src[p.pos:])
	}
	return pat, nil
}

type patternParser struct {
	src string
	pos int
}

func (p *patternParser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w at column %d: %s", ErrPatternSyntax, p.pos+1, fmt.Sprintf(format, args...))
}

func (p *patternParser) skipSpace() {
	for p.pos < len(p.src) {
		r, n := utf8.DecodeRuneInString(p.src[p.pos:])
		if !unicode.IsSpace(r) {
			return
		}
		p.pos += n
	}
}

func (p *patternParser) peek() byte {
	if p.pos < len(p.src) {
		return p.src[p.pos]
	}
	return 0
}

func (p *patternParser) parse(depth int) (ast.Pattern, error) {
	if depth >= bytecode.MaxPatternDepth {
		return nil, p.errorf("nesting deeper than %d", bytecode.MaxPatternDepth)
	}
	p.skipSpace()
	if p.pos >= len(p.src) {
		return nil, p.errorf("expected pattern")
	}

	switch c := p.peek(); {
	case c == '#':
		p.pos++
		start := p.pos
		for p.pos < len(p.src) && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
			p.pos++
		}
		idx, err := strconv.ParseUint(p.src[start:p.pos], 10, 16)
		if err != nil {
			return nil, p.errorf("bad constructor index %q", p.src[start:p.pos])
		}
		p.skipSpace()
		if p.peek() != '(' {
			return nil, p.errorf("expected ( after #%d", idx)
		}
		args, err := p.parseList(depth)
		if err != nil {
			return nil, err
		}
		return ast.ConstructorPattern{Index: uint16(idx), Args: args}, nil

	case c == '(':
		elems, err := p.parseList(depth)
		if err != nil {
			return nil, err
		}
		return ast.TuplePattern{Elems: elems}, nil

	case c == '"':
		quoted, err := strconv.QuotedPrefix(p.src[p.pos:])
		if err != nil {
			return nil, p.errorf("bad string literal")
		}
		s, _ := strconv.Unquote(quoted)
		p.pos += len(quoted)
		return ast.LiteralPattern{Value: ast.String(s)}, nil

	case c == '$':
		p.pos++
		if p.peek() != '"' {
			return nil, p.errorf("expected quoted name after $")
		}
		quoted, err := strconv.QuotedPrefix(p.src[p.pos:])
		if err != nil {
			return nil, p.errorf("bad quoted name")
		}
		name, _ := strconv.Unquote(quoted)
		p.pos += len(quoted)
		return ast.BindPattern{Name: name}, nil

	case c == '-' || c == '+' || (c >= '0' && c <= '9'):
		return p.parseNumber()

	default:
		return p.parseName()
	}
}

// parseList parses "(p, q, ...)" starting at the open paren.
func (p *patternParser) parseList(depth int) ([]ast.Pattern, error) {
	p.pos++ // (
	var out []ast.Pattern
	p.skipSpace()
	if p.peek() == ')' {
		p.pos++
		return out, nil
	}
	for {
		pat, err := p.parse(depth + 1)
		if err != nil {
			return nil, err
		}
		out = append(out, pat)
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case ')':
			p.pos++
			return out, nil
		default:
			return nil, p.errorf("expected , or )")
		}
	}
}

func isNumberByte(c byte) bool {
	return c == '.' || c == '+' || c == '-' || c == '_' ||
		(c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func (p *patternParser) parseNumber() (ast.Pattern, error) {
	start := p.pos
	p.pos++
	for p.pos < len(p.src) && isNumberByte(p.src[p.pos]) {
		p.pos++
	}
	text := p.src[start:p.pos]
	if i, err := strconv.ParseInt(text, 10, 64); err == nil {
		return ast.LiteralPattern{Value: ast.Integer(i)}, nil
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil {
		return ast.LiteralPattern{Value: ast.Single(f)}, nil
	}
	p.pos = start
	return nil, p.errorf("bad number %q", text)
}

func (p *patternParser) parseName() (ast.Pattern, error) {
	start := p.pos
	for p.pos < len(p.src) {
		r, n := utf8.DecodeRuneInString(p.src[p.pos:])
		if !(unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune("_'?!", r)) {
			break
		}
		p.pos += n
	}
	name := p.src[start:p.pos]
	switch name {
	case "":
		return nil, p.errorf("unexpected %q", p.src[p.pos:])
	case "_":
		return ast.WildcardPattern{}, nil
	case "NaN", "Inf":
		f, _ := strconv.ParseFloat(name, 64)
		return ast.LiteralPattern{Value: ast.Single(f)}, nil
	}
	return ast.BindPattern{Name: name}, nil
}
