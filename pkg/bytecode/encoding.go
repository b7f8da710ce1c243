package bytecode

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/chazu/orion/pkg/ast"
)

// ---------------------------------------------------------------------------
// Encoding conventions:
//   - Integers: big-endian fixed width (u16=2B, u32=4B, i64=8B)
//   - Floats: IEEE 754 bit pattern, big-endian 8B
//   - Counts and code lengths: u16, checked against MaxTableLen
//   - Strings: Latin-1 + NUL, or u16 length + UTF-8 (see StringEncoding)
// ---------------------------------------------------------------------------

type encoder struct {
	buf  []byte
	opts Options
}

func (e *encoder) writeByte(b byte) {
	e.buf = append(e.buf, b)
}

func (e *encoder) writeUint16(v uint16) {
	e.buf = binary.BigEndian.AppendUint16(e.buf, v)
}

func (e *encoder) writeUint32(v uint32) {
	e.buf = binary.BigEndian.AppendUint32(e.buf, v)
}

func (e *encoder) writeInt64(v int64) {
	e.buf = binary.BigEndian.AppendUint64(e.buf, uint64(v))
}

func (e *encoder) writeFloat64(v float64) {
	e.buf = binary.BigEndian.AppendUint64(e.buf, math.Float64bits(v))
}

// writeCount writes a 16-bit entry count for table.
func (e *encoder) writeCount(table string, n int) error {
	v, err := checkLen(table, n)
	if err != nil {
		return err
	}
	e.writeUint16(v)
	return nil
}

// writeCode writes a 16-bit byte length followed by the encoded
// instructions.
func (e *encoder) writeCode(table string, ins []Instruction) error {
	if err := e.writeCount(table, CodeLen(ins)); err != nil {
		return err
	}
	e.buf = appendInstructions(e.buf, ins)
	return nil
}

func (e *encoder) writeString(table string, s string) error {
	switch e.opts.Strings {
	case StringsUTF8:
		if !utf8.ValidString(s) {
			return fmt.Errorf("%w: %s: invalid UTF-8 in %q", ErrUnsupportedCharacter, table, s)
		}
		if err := e.writeCount(table, len(s)); err != nil {
			return err
		}
		e.buf = append(e.buf, s...)
		return nil
	case StringsLatin1:
		for i, r := range s {
			if r == 0 || r > 0xFF {
				return fmt.Errorf("%w: %s: %U at byte %d of %q",
					ErrUnsupportedCharacter, table, r, i, s)
			}
			e.buf = append(e.buf, byte(r))
		}
		e.buf = append(e.buf, 0)
		return nil
	default:
		return fmt.Errorf("unknown string encoding %d", e.opts.Strings)
	}
}

func (e *encoder) writeLiteral(table string, lit ast.Literal) error {
	switch lit.Kind {
	case ast.LiteralString:
		e.writeByte(byte(ast.LiteralString))
		return e.writeString(table, lit.Str)
	case ast.LiteralInteger:
		e.writeByte(byte(ast.LiteralInteger))
		e.writeInt64(lit.Int)
	case ast.LiteralSingle:
		e.writeByte(byte(ast.LiteralSingle))
		e.writeFloat64(lit.Float)
	default:
		return fmt.Errorf("%w: %s: kind %d", ErrUnknownLiteral, table, lit.Kind)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Decoding
// ---------------------------------------------------------------------------

type decoder struct {
	data []byte
	pos  int
	opts Options
}

func (d *decoder) remaining() int {
	return len(d.data) - d.pos
}

func (d *decoder) need(n int, what string) error {
	if d.remaining() < n {
		return fmt.Errorf("%w: reading %s at offset %d: need %d bytes, have %d",
			ErrUnexpectedEOF, what, d.pos, n, d.remaining())
	}
	return nil
}

func (d *decoder) readByte(what string) (byte, error) {
	if err := d.need(1, what); err != nil {
		return 0, err
	}
	b := d.data[d.pos]
	d.pos++
	return b, nil
}

func (d *decoder) readUint16(what string) (uint16, error) {
	if err := d.need(2, what); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint16(d.data[d.pos:])
	d.pos += 2
	return v, nil
}

func (d *decoder) readUint32(what string) (uint32, error) {
	if err := d.need(4, what); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(d.data[d.pos:])
	d.pos += 4
	return v, nil
}

func (d *decoder) readUint64(what string) (uint64, error) {
	if err := d.need(8, what); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint64(d.data[d.pos:])
	d.pos += 8
	return v, nil
}

// readCode reads a length-prefixed code section.
func (d *decoder) readCode(what string) ([]Instruction, error) {
	n, err := d.readUint16(what + " length")
	if err != nil {
		return nil, err
	}
	if err := d.need(int(n), what); err != nil {
		return nil, err
	}
	start := d.pos
	ins, err := DecodeInstructions(d.data[start : start+int(n)])
	if err != nil {
		return nil, fmt.Errorf("%s at offset %d: %w", what, start, err)
	}
	d.pos += int(n)
	return ins, nil
}

func (d *decoder) readString(what string) (string, error) {
	switch d.opts.Strings {
	case StringsUTF8:
		n, err := d.readUint16(what + " length")
		if err != nil {
			return "", err
		}
		if err := d.need(int(n), what); err != nil {
			return "", err
		}
		s := string(d.data[d.pos : d.pos+int(n)])
		if !utf8.ValidString(s) {
			return "", fmt.Errorf("%w: %s at offset %d: invalid UTF-8",
				ErrUnsupportedCharacter, what, d.pos)
		}
		d.pos += int(n)
		return s, nil
	case StringsLatin1:
		start := d.pos
		for i := start; i < len(d.data); i++ {
			if d.data[i] == 0 {
				runes := make([]rune, i-start)
				for k, b := range d.data[start:i] {
					runes[k] = rune(b)
				}
				d.pos = i + 1
				return string(runes), nil
			}
		}
		return "", fmt.Errorf("%w: reading %s at offset %d: missing NUL terminator",
			ErrUnexpectedEOF, what, start)
	default:
		return "", fmt.Errorf("unknown string encoding %d", d.opts.Strings)
	}
}

func (d *decoder) readLiteral(what string) (ast.Literal, error) {
	at := d.pos
	kind, err := d.readByte(what + " discriminant")
	if err != nil {
		return ast.Literal{}, err
	}
	switch ast.LiteralKind(kind) {
	case ast.LiteralString:
		s, err := d.readString(what)
		if err != nil {
			return ast.Literal{}, err
		}
		return ast.String(s), nil
	case ast.LiteralInteger:
		v, err := d.readUint64(what)
		if err != nil {
			return ast.Literal{}, err
		}
		return ast.Integer(int64(v)), nil
	case ast.LiteralSingle:
		v, err := d.readUint64(what)
		if err != nil {
			return ast.Literal{}, err
		}
		return ast.Single(math.Float64frombits(v)), nil
	default:
		return ast.Literal{}, fmt.Errorf("%w: %s at offset %d: %d",
			ErrUnknownLiteral, what, at, kind)
	}
}
