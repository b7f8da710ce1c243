package ast

import (
	"math"
	"testing"
)

func TestLiteralConstructors(t *testing.T) {
	tests := []struct {
		name string
		lit  Literal
		kind LiteralKind
	}{
		{"string", String("hi"), LiteralString},
		{"integer", Integer(-7), LiteralInteger},
		{"single", Single(1.5), LiteralSingle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.lit.Kind != tt.kind {
				t.Errorf("Kind = %v, want %v", tt.lit.Kind, tt.kind)
			}
		})
	}
}

func TestLiteralEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b Literal
		want bool
	}{
		{"same string", String("a"), String("a"), true},
		{"different string", String("a"), String("b"), false},
		{"same integer", Integer(42), Integer(42), true},
		{"integer vs single", Integer(1), Single(1), false},
		{"same float", Single(0.25), Single(0.25), true},
		{"nan", Single(math.NaN()), Single(math.NaN()), true},
		{"nan payloads", Single(math.NaN()), Single(math.Float64frombits(0x7FF8000000000002)), false},
		{"signed zeros", Single(0), Single(math.Copysign(0, -1)), false},
		{"empty string vs zero int", String(""), Integer(0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.want {
				t.Errorf("Equal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLiteralSource(t *testing.T) {
	tests := []struct {
		lit  Literal
		want string
	}{
		{String("a\"b"), `"a\"b"`},
		{Integer(-12), "-12"},
		{Single(1.5), "1.5"},
		{Single(2), "2.0"},
		{Single(1e21), "1e+21"},
		{Single(math.Inf(1)), "+Inf"},
	}

	for _, tt := range tests {
		if got := tt.lit.Source(); got != tt.want {
			t.Errorf("Source() = %q, want %q", got, tt.want)
		}
	}
}

func TestLiteralKindString(t *testing.T) {
	if got := LiteralInteger.String(); got != "integer" {
		t.Errorf("String() = %q, want %q", got, "integer")
	}
	if got := LiteralKind(9).String(); got != "LiteralKind(9)" {
		t.Errorf("String() = %q, want %q", got, "LiteralKind(9)")
	}
}

func TestPatternString(t *testing.T) {
	p := ConstructorPattern{
		Index: 3,
		Args: []Pattern{
			BindPattern{Name: "x"},
			TuplePattern{Elems: []Pattern{WildcardPattern{}, LiteralPattern{Value: Integer(1)}}},
		},
	}
	want := "#3(x, (_, 1))"
	if got := p.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestPatternsEqual(t *testing.T) {
	a := TuplePattern{Elems: []Pattern{BindPattern{Name: "a"}, LiteralPattern{Value: String("s")}}}
	b := TuplePattern{Elems: []Pattern{BindPattern{Name: "a"}, LiteralPattern{Value: String("s")}}}
	c := TuplePattern{Elems: []Pattern{BindPattern{Name: "b"}, LiteralPattern{Value: String("s")}}}

	if !PatternsEqual(a, b) {
		t.Error("identical tuples should be equal")
	}
	if PatternsEqual(a, c) {
		t.Error("tuples with different bindings should differ")
	}
	if PatternsEqual(WildcardPattern{}, BindPattern{Name: "_"}) {
		t.Error("wildcard and bind should differ")
	}
	if !PatternsEqual(nil, nil) {
		t.Error("nil patterns should be equal")
	}
	if PatternsEqual(nil, WildcardPattern{}) {
		t.Error("nil and wildcard should differ")
	}
}
