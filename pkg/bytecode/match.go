package bytecode

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/chazu/orion/pkg/ast"
)

// MaxPatternDepth bounds pattern nesting. Deeper patterns are rejected
// by both the encoder and the decoder.
const MaxPatternDepth = 256

// Pattern is one match arm: the shape to test and the code to run when the
// scrutinee matches it.
type Pattern struct {
	Pat    ast.Pattern
	ToExec []Instruction
}

// Match evaluates Expression to produce a scrutinee, then tries Patterns in
// declaration order. The first arm that matches runs.
type Match struct {
	Expression []Instruction
	Patterns   []Pattern
}

// AddArm appends an arm and returns its index.
func (m *Match) AddArm(pat ast.Pattern, toExec ...Instruction) int {
	m.Patterns = append(m.Patterns, Pattern{Pat: pat, ToExec: toExec})
	return len(m.Patterns) - 1
}

// Encode returns the match entry encoding:
//
//	[expr_len:2] [expr:...] [arm_count:2] ([pat] [exec_len:2] [exec:...])...
//
// Strings inside patterns use opts.Strings.
func (m *Match) Encode(opts Options) ([]byte, error) {
	e := &encoder{opts: opts}
	if err := m.encode(e, "match"); err != nil {
		return nil, err
	}
	return e.buf, nil
}

func (m *Match) encode(e *encoder, table string) error {
	if err := e.writeCode(table+".expression", m.Expression); err != nil {
		return err
	}
	if err := e.writeCount(table+".patterns", len(m.Patterns)); err != nil {
		return err
	}
	for i, arm := range m.Patterns {
		armTable := fmt.Sprintf("%s.patterns[%d]", table, i)
		if err := e.writePattern(patternPath{base: armTable + ".pat"}, arm.Pat); err != nil {
			return err
		}
		if err := e.writeCode(armTable+".to_exec", arm.ToExec); err != nil {
			return err
		}
	}
	return nil
}

// DecodeMatch decodes a match entry from the start of data and returns it
// with the number of bytes consumed.
func DecodeMatch(data []byte, opts Options) (*Match, int, error) {
	d := &decoder{data: data, opts: opts}
	m, err := decodeMatch(d, "match")
	if err != nil {
		return nil, 0, err
	}
	return m, d.pos, nil
}

func decodeMatch(d *decoder, what string) (*Match, error) {
	m := &Match{}
	var err error
	m.Expression, err = d.readCode(what + " expression")
	if err != nil {
		return nil, err
	}
	n, err := d.readUint16(what + " pattern count")
	if err != nil {
		return nil, err
	}
	for i := 0; i < int(n); i++ {
		armWhat := fmt.Sprintf("%s pattern %d", what, i)
		pat, err := d.readPattern(patternPath{base: armWhat})
		if err != nil {
			return nil, err
		}
		exec, err := d.readCode(armWhat + " to_exec")
		if err != nil {
			return nil, err
		}
		m.Patterns = append(m.Patterns, Pattern{Pat: pat, ToExec: exec})
	}
	return m, nil
}

// Equal reports whether two matches are structurally identical.
func (m *Match) Equal(o *Match) bool {
	if !slices.Equal(m.Expression, o.Expression) || len(m.Patterns) != len(o.Patterns) {
		return false
	}
	for i := range m.Patterns {
		a, b := m.Patterns[i], o.Patterns[i]
		if !ast.PatternsEqual(a.Pat, b.Pat) || !slices.Equal(a.ToExec, b.ToExec) {
			return false
		}
	}
	return true
}

// ---------------------------------------------------------------------------
// Pattern shapes
//
//	wildcard:    [0]
//	bind:        [1] [name:string]
//	literal:     [2] [literal as in the constant pool]
//	constructor: [3] [index:2] [argc:2] [pat]...
//	tuple:       [4] [count:2] [pat]...
// ---------------------------------------------------------------------------

// patternPath locates a subpattern below an arm for error messages, e.g.
// "match.patterns[0].pat[2][1]". The text is only built when an error is
// reported; descent reuses the index slice.
type patternPath struct {
	base string
	idx  []int
}

func (p patternPath) child(i int) patternPath {
	return patternPath{base: p.base, idx: append(p.idx, i)}
}

func (p patternPath) depth() int {
	return len(p.idx)
}

func (p patternPath) String() string {
	var sb strings.Builder
	sb.WriteString(p.base)
	for _, i := range p.idx {
		sb.WriteByte('[')
		sb.WriteString(strconv.Itoa(i))
		sb.WriteByte(']')
	}
	return sb.String()
}

// wrap attaches the path to an error from a leaf read or write.
func (p patternPath) wrap(err error) error {
	var ce *CapacityError
	if errors.As(err, &ce) {
		ce.Table = p.String()
		return err
	}
	return fmt.Errorf("%s: %w", p, err)
}

func (p patternPath) tooDeep() error {
	return fmt.Errorf("%w: %s: more than %d levels", ErrPatternTooDeep, p.base, MaxPatternDepth)
}

func (e *encoder) writePattern(path patternPath, p ast.Pattern) error {
	if path.depth() >= MaxPatternDepth {
		return path.tooDeep()
	}
	switch p := p.(type) {
	case ast.WildcardPattern:
		e.writeByte(byte(ast.PatternWildcard))
	case ast.BindPattern:
		e.writeByte(byte(ast.PatternBind))
		if err := e.writeString("bind name", p.Name); err != nil {
			return path.wrap(err)
		}
	case ast.LiteralPattern:
		e.writeByte(byte(ast.PatternLiteral))
		if err := e.writeLiteral("literal", p.Value); err != nil {
			return path.wrap(err)
		}
	case ast.ConstructorPattern:
		e.writeByte(byte(ast.PatternConstructor))
		e.writeUint16(p.Index)
		return e.writeSubpatterns(path, p.Args)
	case ast.TuplePattern:
		e.writeByte(byte(ast.PatternTuple))
		return e.writeSubpatterns(path, p.Elems)
	case nil:
		return fmt.Errorf("%w: %s: nil pattern", ErrUnknownPattern, path)
	default:
		return fmt.Errorf("%w: %s: %T", ErrUnknownPattern, path, p)
	}
	return nil
}

func (e *encoder) writeSubpatterns(path patternPath, ps []ast.Pattern) error {
	if err := e.writeCount("subpatterns", len(ps)); err != nil {
		return path.wrap(err)
	}
	for i, sub := range ps {
		if err := e.writePattern(path.child(i), sub); err != nil {
			return err
		}
	}
	return nil
}

func (d *decoder) readPattern(path patternPath) (ast.Pattern, error) {
	if path.depth() >= MaxPatternDepth {
		return nil, path.tooDeep()
	}
	at := d.pos
	tag, err := d.readByte("pattern tag")
	if err != nil {
		return nil, path.wrap(err)
	}
	switch ast.PatternKind(tag) {
	case ast.PatternWildcard:
		return ast.WildcardPattern{}, nil
	case ast.PatternBind:
		name, err := d.readString("bind name")
		if err != nil {
			return nil, path.wrap(err)
		}
		return ast.BindPattern{Name: name}, nil
	case ast.PatternLiteral:
		lit, err := d.readLiteral("literal")
		if err != nil {
			return nil, path.wrap(err)
		}
		return ast.LiteralPattern{Value: lit}, nil
	case ast.PatternConstructor:
		idx, err := d.readUint16("constructor index")
		if err != nil {
			return nil, path.wrap(err)
		}
		args, err := d.readSubpatterns(path)
		if err != nil {
			return nil, err
		}
		return ast.ConstructorPattern{Index: idx, Args: args}, nil
	case ast.PatternTuple:
		elems, err := d.readSubpatterns(path)
		if err != nil {
			return nil, err
		}
		return ast.TuplePattern{Elems: elems}, nil
	default:
		return nil, fmt.Errorf("%w: %s at offset %d: %d", ErrUnknownPattern, path, at, tag)
	}
}

func (d *decoder) readSubpatterns(path patternPath) ([]ast.Pattern, error) {
	n, err := d.readUint16("subpattern count")
	if err != nil {
		return nil, path.wrap(err)
	}
	// Every subpattern takes at least its tag byte.
	if err := d.need(int(n), "subpatterns"); err != nil {
		return nil, path.wrap(err)
	}
	var out []ast.Pattern
	for i := 0; i < int(n); i++ {
		p, err := d.readPattern(path.child(i))
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
