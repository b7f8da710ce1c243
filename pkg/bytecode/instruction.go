package bytecode

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

// Instruction is one VM operation with its operands. Values are built with
// the per-opcode constructors, so an operand can never exceed the width the
// encoding gives it. The zero value is LoadConst(0).
type Instruction struct {
	op   Opcode
	a, b uint16
}

// LoadConst pushes constant pool entry id.
func LoadConst(id uint16) Instruction { return Instruction{op: OpLoadConst, a: id} }

// LoadSym pushes the value bound to symbol id.
func LoadSym(id uint16) Instruction { return Instruction{op: OpLoadSym, a: id} }

// Call pops a callee and argc arguments and invokes it.
func Call(argc uint16) Instruction { return Instruction{op: OpCall, a: argc} }

// Builtin invokes built-in operation id with argc popped arguments.
func Builtin(id, argc uint8) Instruction {
	return Instruction{op: OpBuiltin, a: uint16(id), b: uint16(argc)}
}

// Def binds a value to symbol id. length is the number of following
// instructions that form the definition body.
func Def(id, length uint16) Instruction { return Instruction{op: OpDef, a: id, b: length} }

// Lambda builds a closure over chunk id.
func Lambda(chunk uint16) Instruction { return Instruction{op: OpLambda, a: chunk} }

// Constructor builds a value of constructor idx from toEval popped fields.
func Constructor(idx, toEval uint16) Instruction {
	return Instruction{op: OpConstructor, a: idx, b: toEval}
}

// Tuple packs amount popped values into a tuple.
func Tuple(amount uint16) Instruction { return Instruction{op: OpTuple, a: amount} }

// NewInstruction builds an instruction from an opcode and operand values,
// checking operand count and range. It is the generic form of the typed
// constructors, used by the listing parser and the assembler.
func NewInstruction(op Opcode, operands ...int) (Instruction, error) {
	if !op.IsValid() {
		return Instruction{}, fmt.Errorf("%w: 0x%02X", ErrUnknownOpcode, byte(op))
	}
	widths := opcodeInfoTable[op].Operands
	if len(operands) != len(widths) {
		return Instruction{}, fmt.Errorf("%w: %s takes %d operands, got %d",
			ErrOperandCount, op, len(widths), len(operands))
	}
	var vals [2]uint16
	for i, v := range operands {
		limit := 1<<(8*widths[i]) - 1
		if v < 0 || v > limit {
			return Instruction{}, fmt.Errorf("%w: %s operand %d is %d, must be 0..%d",
				ErrOperandRange, op, i, v, limit)
		}
		vals[i] = uint16(v)
	}
	return Instruction{op: op, a: vals[0], b: vals[1]}, nil
}

// Op returns the instruction's opcode.
func (i Instruction) Op() Opcode {
	return i.op
}

// Operands returns the operand values in encoding order.
func (i Instruction) Operands() []int {
	switch len(opcodeInfoTable[i.op].Operands) {
	case 1:
		return []int{int(i.a)}
	default:
		return []int{int(i.a), int(i.b)}
	}
}

// Len returns the encoded length in bytes.
func (i Instruction) Len() int {
	return i.op.InstructionLen()
}

// AppendTo appends the encoding of i to buf: the tag byte followed by the
// big-endian operands.
func (i Instruction) AppendTo(buf []byte) []byte {
	buf = append(buf, byte(i.op))
	widths := opcodeInfoTable[i.op].Operands
	vals := [2]uint16{i.a, i.b}
	for n, w := range widths {
		if w == 1 {
			buf = append(buf, byte(vals[n]))
		} else {
			buf = binary.BigEndian.AppendUint16(buf, vals[n])
		}
	}
	return buf
}

// Encode returns the encoding of i.
func (i Instruction) Encode() []byte {
	return i.AppendTo(make([]byte, 0, i.Len()))
}

// String renders the instruction in listing syntax, e.g. "BUILTIN 3 2".
func (i Instruction) String() string {
	var sb strings.Builder
	sb.WriteString(i.op.String())
	for _, v := range i.Operands() {
		sb.WriteByte(' ')
		sb.WriteString(strconv.Itoa(v))
	}
	return sb.String()
}

// DecodeInstruction decodes the instruction at the start of data and
// returns it with the number of bytes consumed.
func DecodeInstruction(data []byte) (Instruction, int, error) {
	if len(data) == 0 {
		return Instruction{}, 0, fmt.Errorf("%w: reading opcode", ErrUnexpectedEOF)
	}
	op := Opcode(data[0])
	if !op.IsValid() {
		return Instruction{}, 0, fmt.Errorf("%w: 0x%02X", ErrUnknownOpcode, data[0])
	}
	n := op.InstructionLen()
	if len(data) < n {
		return Instruction{}, 0, fmt.Errorf("%w: %s needs %d bytes, have %d",
			ErrUnexpectedEOF, op, n, len(data))
	}
	ins := Instruction{op: op}
	pos := 1
	for k, w := range opcodeInfoTable[op].Operands {
		var v uint16
		if w == 1 {
			v = uint16(data[pos])
		} else {
			v = binary.BigEndian.Uint16(data[pos:])
		}
		pos += w
		if k == 0 {
			ins.a = v
		} else {
			ins.b = v
		}
	}
	return ins, n, nil
}

// DecodeInstructions decodes a whole code section. data must contain only
// complete instructions.
func DecodeInstructions(data []byte) ([]Instruction, error) {
	var out []Instruction
	for pos := 0; pos < len(data); {
		ins, n, err := DecodeInstruction(data[pos:])
		if err != nil {
			return nil, fmt.Errorf("at code offset %d: %w", pos, err)
		}
		out = append(out, ins)
		pos += n
	}
	return out, nil
}

// EncodeInstructions returns the concatenated encoding of ins.
func EncodeInstructions(ins []Instruction) []byte {
	return appendInstructions(nil, ins)
}

func appendInstructions(buf []byte, ins []Instruction) []byte {
	for _, i := range ins {
		buf = i.AppendTo(buf)
	}
	return buf
}

// CodeLen returns the encoded byte length of ins.
func CodeLen(ins []Instruction) int {
	n := 0
	for _, i := range ins {
		n += i.Len()
	}
	return n
}

// ParseInstruction parses the listing syntax produced by String. The
// mnemonic is case-insensitive and underscores are optional.
func ParseInstruction(text string) (Instruction, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return Instruction{}, fmt.Errorf("%w: empty instruction", ErrUnknownMnemonic)
	}
	op, ok := LookupMnemonic(fields[0])
	if !ok {
		return Instruction{}, fmt.Errorf("%w: %q", ErrUnknownMnemonic, fields[0])
	}
	operands := make([]int, 0, len(fields)-1)
	for _, f := range fields[1:] {
		v, err := strconv.Atoi(f)
		if err != nil {
			return Instruction{}, fmt.Errorf("%w: %s operand %q is not an integer",
				ErrOperandRange, op, f)
		}
		operands = append(operands, v)
	}
	return NewInstruction(op, operands...)
}
