// Package ast defines the front-end values that the bytecode container
// carries verbatim: literals for the constant pool and the pattern shapes
// tested by match arms.
package ast

import (
	"fmt"
	"math"
	"strconv"
)

// LiteralKind identifies the variant of a Literal. The numeric values are
// also the constant-pool discriminant bytes.
type LiteralKind uint8

const (
	LiteralString  LiteralKind = 0
	LiteralInteger LiteralKind = 1
	LiteralSingle  LiteralKind = 2
)

// String returns a human-readable name for the kind.
func (k LiteralKind) String() string {
	switch k {
	case LiteralString:
		return "string"
	case LiteralInteger:
		return "integer"
	case LiteralSingle:
		return "single"
	default:
		return fmt.Sprintf("LiteralKind(%d)", k)
	}
}

// Literal is a constant value: a string, a 64-bit signed integer or a
// 64-bit float. Only the field selected by Kind is meaningful.
type Literal struct {
	Kind  LiteralKind
	Str   string
	Int   int64
	Float float64
}

// String returns a string literal.
func String(s string) Literal {
	return Literal{Kind: LiteralString, Str: s}
}

// Integer returns an integer literal.
func Integer(i int64) Literal {
	return Literal{Kind: LiteralInteger, Int: i}
}

// Single returns a float literal.
func Single(f float64) Literal {
	return Literal{Kind: LiteralSingle, Float: f}
}

// Equal reports whether two literals have the same kind and value. Floats
// compare by bit pattern: -0 differs from +0 and a NaN equals only a NaN
// with the same payload, so deduplicated constants keep their exact bits.
func (l Literal) Equal(o Literal) bool {
	if l.Kind != o.Kind {
		return false
	}
	switch l.Kind {
	case LiteralString:
		return l.Str == o.Str
	case LiteralInteger:
		return l.Int == o.Int
	case LiteralSingle:
		return math.Float64bits(l.Float) == math.Float64bits(o.Float)
	}
	return false
}

// Source renders the literal in listing syntax: quoted strings, decimal
// integers and floats that always carry a decimal point or exponent.
func (l Literal) Source() string {
	switch l.Kind {
	case LiteralString:
		return strconv.Quote(l.Str)
	case LiteralInteger:
		return strconv.FormatInt(l.Int, 10)
	case LiteralSingle:
		s := strconv.FormatFloat(l.Float, 'g', -1, 64)
		for _, c := range s {
			if c == '.' || c == 'e' || c == 'E' || c == 'n' || c == 'N' || c == 'I' {
				return s
			}
		}
		return s + ".0"
	}
	return "<invalid>"
}

func (l Literal) String() string {
	return l.Source()
}
