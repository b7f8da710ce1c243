package asm

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/chazu/orion/pkg/ast"
)

func TestParsePattern(t *testing.T) {
	tests := []struct {
		text string
		want ast.Pattern
	}{
		{"_", ast.WildcardPattern{}},
		{"  _  ", ast.WildcardPattern{}},
		{"x", ast.BindPattern{Name: "x"}},
		{"_tail", ast.BindPattern{Name: "_tail"}},
		{"héllo", ast.BindPattern{Name: "héllo"}},
		{"42", ast.LiteralPattern{Value: ast.Integer(42)}},
		{"-7", ast.LiteralPattern{Value: ast.Integer(-7)}},
		{"1.5", ast.LiteralPattern{Value: ast.Single(1.5)}},
		{"2.0", ast.LiteralPattern{Value: ast.Single(2)}},
		{"1e+21", ast.LiteralPattern{Value: ast.Single(1e21)}},
		{"+Inf", ast.LiteralPattern{Value: ast.Single(math.Inf(1))}},
		{"NaN", ast.LiteralPattern{Value: ast.Single(math.NaN())}},
		{`"a b"`, ast.LiteralPattern{Value: ast.String("a b")}},
		{`"q\"x"`, ast.LiteralPattern{Value: ast.String(`q"x`)}},
		{"()", ast.TuplePattern{}},
		{"(x, _)", ast.TuplePattern{Elems: []ast.Pattern{ast.BindPattern{Name: "x"}, ast.WildcardPattern{}}}},
		{"#0()", ast.ConstructorPattern{Index: 0}},
		{"#3(x, (1, \"s\"))", ast.ConstructorPattern{Index: 3, Args: []ast.Pattern{
			ast.BindPattern{Name: "x"},
			ast.TuplePattern{Elems: []ast.Pattern{
				ast.LiteralPattern{Value: ast.Integer(1)},
				ast.LiteralPattern{Value: ast.String("s")},
			}},
		}}},
		{`$"a b"`, ast.BindPattern{Name: "a b"}},
		{`$"_"`, ast.BindPattern{Name: "_"}},
		{`$"NaN"`, ast.BindPattern{Name: "NaN"}},
		{"# 2 ( _ )", nil}, // index must follow # directly
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := ParsePattern(tt.text)
			if tt.want == nil {
				if err == nil {
					t.Errorf("ParsePattern(%q) = %v, want error", tt.text, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParsePattern(%q): %v", tt.text, err)
			}
			if !ast.PatternsEqual(got, tt.want) {
				t.Errorf("ParsePattern(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestParsePatternErrors(t *testing.T) {
	tests := []string{
		"",
		"(",
		"(x",
		"(x y)",
		"#",
		"#70000(x)",
		"#1",
		`"open`,
		"-x",
		"x)",
		"@",
		"$x",
		`$"open`,
	}

	for _, text := range tests {
		if _, err := ParsePattern(text); !errors.Is(err, ErrPatternSyntax) {
			t.Errorf("ParsePattern(%q) error = %v, want ErrPatternSyntax", text, err)
		}
	}
}

func TestParsePatternTooDeep(t *testing.T) {
	text := strings.Repeat("(", 300) + strings.Repeat(")", 300)
	if _, err := ParsePattern(text); !errors.Is(err, ErrPatternSyntax) {
		t.Errorf("ParsePattern error = %v, want ErrPatternSyntax", err)
	}
}

func TestPatternStringRoundTrip(t *testing.T) {
	pats := []ast.Pattern{
		ast.WildcardPattern{},
		ast.BindPattern{Name: "n"},
		ast.LiteralPattern{Value: ast.Single(-0.25)},
		ast.LiteralPattern{Value: ast.Single(math.Inf(-1))},
		ast.LiteralPattern{Value: ast.String("tab\there")},
		ast.ConstructorPattern{Index: 65535, Args: []ast.Pattern{
			ast.TuplePattern{},
			ast.TuplePattern{Elems: []ast.Pattern{ast.WildcardPattern{}}},
		}},
	}

	for _, p := range pats {
		got, err := ParsePattern(p.String())
		if err != nil {
			t.Errorf("ParsePattern(%q): %v", p.String(), err)
			continue
		}
		if !ast.PatternsEqual(got, p) {
			t.Errorf("ParsePattern(%q) = %v, want %v", p.String(), got, p)
		}
	}
}
