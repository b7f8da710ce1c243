package ast

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// PatternKind identifies a pattern variant. The values are the tag bytes
// used by the bytecode match section.
type PatternKind uint8

const (
	PatternWildcard    PatternKind = 0
	PatternBind        PatternKind = 1
	PatternLiteral     PatternKind = 2
	PatternConstructor PatternKind = 3
	PatternTuple       PatternKind = 4
)

// Pattern is the shape a match arm tests its scrutinee against.
type Pattern interface {
	Kind() PatternKind
	String() string
	isPattern()
}

// WildcardPattern matches any value without binding it.
type WildcardPattern struct{}

// BindPattern matches any value and binds it to Name.
type BindPattern struct {
	Name string
}

// LiteralPattern matches a value equal to Value.
type LiteralPattern struct {
	Value Literal
}

// ConstructorPattern matches a data value built by constructor Index and
// destructures its fields with Args.
type ConstructorPattern struct {
	Index uint16
	Args  []Pattern
}

// TuplePattern destructures a fixed-size tuple.
type TuplePattern struct {
	Elems []Pattern
}

func (WildcardPattern) Kind() PatternKind    { return PatternWildcard }
func (BindPattern) Kind() PatternKind        { return PatternBind }
func (LiteralPattern) Kind() PatternKind     { return PatternLiteral }
func (ConstructorPattern) Kind() PatternKind { return PatternConstructor }
func (TuplePattern) Kind() PatternKind       { return PatternTuple }

func (WildcardPattern) isPattern()    {}
func (BindPattern) isPattern()        {}
func (LiteralPattern) isPattern()     {}
func (ConstructorPattern) isPattern() {}
func (TuplePattern) isPattern()       {}

func (WildcardPattern) String() string { return "_" }

// String writes the name bare when it reads back as a bind and as $"..."
// otherwise, so names like _, NaN or "a b" survive a listing round trip.
func (p BindPattern) String() string {
	if isBareName(p.Name) {
		return p.Name
	}
	return "$" + strconv.Quote(p.Name)
}

func isBareName(s string) bool {
	switch s {
	case "", "_", "NaN", "Inf":
		return false
	}
	if s[0] >= '0' && s[0] <= '9' {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !strings.ContainsRune("_'?!", r) {
			return false
		}
	}
	return true
}

func (p LiteralPattern) String() string { return p.Value.Source() }

func (p ConstructorPattern) String() string {
	return fmt.Sprintf("#%d(%s)", p.Index, joinPatterns(p.Args))
}

func (p TuplePattern) String() string {
	return "(" + joinPatterns(p.Elems) + ")"
}

func joinPatterns(ps []Pattern) string {
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = p.String()
	}
	return strings.Join(parts, ", ")
}

// PatternsEqual reports whether two pattern trees are structurally equal.
func PatternsEqual(a, b Pattern) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch a := a.(type) {
	case WildcardPattern:
		return true
	case BindPattern:
		return a.Name == b.(BindPattern).Name
	case LiteralPattern:
		return a.Value.Equal(b.(LiteralPattern).Value)
	case ConstructorPattern:
		bc := b.(ConstructorPattern)
		return a.Index == bc.Index && patternListsEqual(a.Args, bc.Args)
	case TuplePattern:
		return patternListsEqual(a.Elems, b.(TuplePattern).Elems)
	}
	return false
}

func patternListsEqual(a, b []Pattern) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !PatternsEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}
