// Package asm reads and writes orion program listings: a TOML rendering of
// a bytecode container with one entry per table row and instructions in
// disassembler syntax.
//
//	symbols = ["x", "foo"]
//	constructors = [0, 2]
//	instructions = ["DEF 0 1", "LOAD_CONST 0"]
//
//	[[constants]]
//	int = 42
//
//	[[chunks]]
//	references = [0]
//	instructions = ["LOAD_SYM 0"]
//
//	[[matches]]
//	expression = ["LOAD_SYM 0"]
//	  [[matches.arms]]
//	  pattern = "#1(head, _)"
//	  instructions = ["LOAD_SYM 1"]
//
// Table positions in the listing are the indices instructions refer to, so
// entries are kept exactly as written: nothing is deduplicated or
// reordered.
package asm

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/tliron/commonlog"

	"github.com/chazu/orion/pkg/ast"
	"github.com/chazu/orion/pkg/bytecode"
)

var log = commonlog.GetLogger("orion.asm")

// ErrListing is returned for listings that decode as TOML but do not
// describe a valid container.
var ErrListing = errors.New("invalid listing")

// Listing is the TOML document shape.
type Listing struct {
	Symbols      []string   `toml:"symbols,omitempty"`
	Constructors []int      `toml:"constructors,omitempty"`
	Instructions []string   `toml:"instructions,omitempty"`
	Constants    []Constant `toml:"constants,omitempty"`
	Chunks       []Chunk    `toml:"chunks,omitempty"`
	Matches      []Match    `toml:"matches,omitempty"`
}

// Constant is one constant pool entry. Exactly one field must be set.
type Constant struct {
	Int    *int64   `toml:"int,omitempty"`
	Float  *float64 `toml:"float,omitempty"`
	String *string  `toml:"string,omitempty"`
}

// Chunk is one closure body.
type Chunk struct {
	References   []int    `toml:"references,omitempty"`
	Instructions []string `toml:"instructions,omitempty"`
}

// Match is one match table entry.
type Match struct {
	Expression []string `toml:"expression,omitempty"`
	Arms       []Arm    `toml:"arms,omitempty"`
}

// Arm is one pattern and the code run when it matches.
type Arm struct {
	Pattern      string   `toml:"pattern"`
	Instructions []string `toml:"instructions,omitempty"`
}

// Parse decodes a TOML listing and assembles it.
func Parse(data []byte) (*bytecode.Bytecode, error) {
	var l Listing
	md, err := toml.Decode(string(data), &l)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%w: unknown keys %s", ErrListing, strings.Join(keys, ", "))
	}
	return l.Assemble()
}

// ParseFile reads and assembles the listing at path.
func ParseFile(path string) (*bytecode.Bytecode, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	b, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	st := b.Stats()
	log.Debugf("assembled %s: %d symbols, %d constants, %d chunks, %d matches, %d code bytes",
		path, st.Symbols, st.Constants, st.Chunks, st.Matches, st.CodeBytes)
	return b, nil
}

// Assemble builds a container from the listing.
func (l *Listing) Assemble() (*bytecode.Bytecode, error) {
	b := bytecode.New()

	seen := make(map[string]int, len(l.Symbols))
	for i, s := range l.Symbols {
		if prev, dup := seen[s]; dup {
			return nil, fmt.Errorf("symbols[%d]: %w: %q already at %d", i, bytecode.ErrDuplicateSymbol, s, prev)
		}
		seen[s] = i
		b.Symbols = append(b.Symbols, s)
	}

	for i, c := range l.Constants {
		lit, err := c.literal()
		if err != nil {
			return nil, fmt.Errorf("constants[%d]: %w", i, err)
		}
		b.Constants = append(b.Constants, lit)
	}

	for i, tag := range l.Constructors {
		if tag < 0 || tag > 0xFF {
			return nil, fmt.Errorf("constructors[%d]: %w: tag %d is not a byte", i, ErrListing, tag)
		}
		b.Constructors = append(b.Constructors, byte(tag))
	}

	for i, c := range l.Chunks {
		name := fmt.Sprintf("chunks[%d]", i)
		ch := bytecode.NewChunk()
		for k, ref := range c.References {
			if ref < 0 || ref > bytecode.MaxTableLen {
				return nil, fmt.Errorf("%s.references[%d]: %w: %d", name, k, bytecode.ErrOperandRange, ref)
			}
			ch.References = append(ch.References, uint16(ref))
		}
		ins, err := parseCode(name+".instructions", c.Instructions)
		if err != nil {
			return nil, err
		}
		ch.Instructions = ins
		b.Chunks = append(b.Chunks, ch)
	}

	ins, err := parseCode("instructions", l.Instructions)
	if err != nil {
		return nil, err
	}
	b.Instructions = ins

	for i, m := range l.Matches {
		name := fmt.Sprintf("matches[%d]", i)
		expr, err := parseCode(name+".expression", m.Expression)
		if err != nil {
			return nil, err
		}
		match := &bytecode.Match{Expression: expr}
		for k, arm := range m.Arms {
			armName := fmt.Sprintf("%s.arms[%d]", name, k)
			pat, err := ParsePattern(arm.Pattern)
			if err != nil {
				return nil, fmt.Errorf("%s.pattern: %w", armName, err)
			}
			code, err := parseCode(armName+".instructions", arm.Instructions)
			if err != nil {
				return nil, err
			}
			match.AddArm(pat, code...)
		}
		b.Matches = append(b.Matches, match)
	}

	return b, nil
}

func (c Constant) literal() (ast.Literal, error) {
	var lit ast.Literal
	set := 0
	if c.Int != nil {
		lit = ast.Integer(*c.Int)
		set++
	}
	if c.Float != nil {
		lit = ast.Single(*c.Float)
		set++
	}
	if c.String != nil {
		lit = ast.String(*c.String)
		set++
	}
	if set != 1 {
		return ast.Literal{}, fmt.Errorf("%w: set exactly one of int, float, string (got %d)", ErrListing, set)
	}
	return lit, nil
}

func parseCode(section string, lines []string) ([]bytecode.Instruction, error) {
	var out []bytecode.Instruction
	for i, line := range lines {
		ins, err := bytecode.ParseInstruction(line)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", section, i, err)
		}
		out = append(out, ins)
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Writing
// ---------------------------------------------------------------------------

// FromBytecode renders a container as a listing.
func FromBytecode(b *bytecode.Bytecode) *Listing {
	l := &Listing{
		Symbols:      b.Symbols,
		Instructions: formatCode(b.Instructions),
	}
	for _, tag := range b.Constructors {
		l.Constructors = append(l.Constructors, int(tag))
	}
	for _, lit := range b.Constants {
		lit := lit // per-iteration copy; pointers below must not alias (pre-Go 1.22 loop semantics)
		var c Constant
		switch lit.Kind {
		case ast.LiteralInteger:
			c.Int = &lit.Int
		case ast.LiteralSingle:
			c.Float = &lit.Float
		default:
			c.String = &lit.Str
		}
		l.Constants = append(l.Constants, c)
	}
	for _, ch := range b.Chunks {
		c := Chunk{Instructions: formatCode(ch.Instructions)}
		for _, ref := range ch.References {
			c.References = append(c.References, int(ref))
		}
		l.Chunks = append(l.Chunks, c)
	}
	for _, m := range b.Matches {
		match := Match{Expression: formatCode(m.Expression)}
		for _, arm := range m.Patterns {
			match.Arms = append(match.Arms, Arm{
				Pattern:      arm.Pat.String(),
				Instructions: formatCode(arm.ToExec),
			})
		}
		l.Matches = append(l.Matches, match)
	}
	return l
}

// Format renders a container as TOML listing text.
func Format(b *bytecode.Bytecode) ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(FromBytecode(b)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatCode(ins []bytecode.Instruction) []string {
	var out []string
	for _, in := range ins {
		out = append(out, in.String())
	}
	return out
}
