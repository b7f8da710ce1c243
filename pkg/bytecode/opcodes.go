package bytecode

import (
	"fmt"
	"strings"
)

// Opcode is the one-byte discriminant tag at the start of every encoded
// instruction. Tags are part of the file format and must never be renumbered.
type Opcode byte

const (
	OpLoadConst   Opcode = 0 // Push constant: LoadConst <const_id:u16>
	OpLoadSym     Opcode = 1 // Push symbol value: LoadSym <sym_id:u16>
	OpCall        Opcode = 2 // Pop callee then argc args: Call <argc:u16>
	OpBuiltin     Opcode = 3 // Invoke builtin: Builtin <builtin_id:u8> <argc:u8>
	OpDef         Opcode = 4 // Bind symbol: Def <sym_id:u16> <instructions_length:u16>
	OpLambda      Opcode = 5 // Make closure over chunk: Lambda <chunk_id:u16>
	OpConstructor Opcode = 6 // Build data value: Constructor <constr_idx:u16> <to_eval:u16>
	OpTuple       Opcode = 7 // Pack values: Tuple <amount:u16>
)

// OpcodeInfo provides metadata about each opcode for encoding, decoding
// and disassembly.
type OpcodeInfo struct {
	Name     string // Listing mnemonic
	Operands []int  // Width in bytes of each operand, in encoding order
}

// OperandLen returns the number of operand bytes following the tag.
func (info OpcodeInfo) OperandLen() int {
	n := 0
	for _, w := range info.Operands {
		n += w
	}
	return n
}

var opcodeInfoTable = [...]OpcodeInfo{
	OpLoadConst:   {"LOAD_CONST", []int{2}},
	OpLoadSym:     {"LOAD_SYM", []int{2}},
	OpCall:        {"CALL", []int{2}},
	OpBuiltin:     {"BUILTIN", []int{1, 1}},
	OpDef:         {"DEF", []int{2, 2}},
	OpLambda:      {"LAMBDA", []int{2}},
	OpConstructor: {"CONSTRUCTOR", []int{2, 2}},
	OpTuple:       {"TUPLE", []int{2}},
}

// mnemonics maps normalized names ("LOADCONST") to opcodes so listings
// may spell them LOAD_CONST, LoadConst or loadconst.
var mnemonics = func() map[string]Opcode {
	m := make(map[string]Opcode, len(opcodeInfoTable))
	for i, info := range opcodeInfoTable {
		m[normalizeMnemonic(info.Name)] = Opcode(i)
	}
	return m
}()

func normalizeMnemonic(s string) string {
	return strings.ToUpper(strings.ReplaceAll(s, "_", ""))
}

// IsValid reports whether op is one of the defined tags.
func (op Opcode) IsValid() bool {
	return int(op) < len(opcodeInfoTable)
}

// GetOpcodeInfo returns metadata for an opcode.
// Returns an OpcodeInfo named "UNKNOWN(0x..)" with no operands if the
// opcode is not recognized.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if !op.IsValid() {
		return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(op))}
	}
	return opcodeInfoTable[op]
}

// LookupMnemonic returns the opcode for a listing mnemonic.
func LookupMnemonic(name string) (Opcode, bool) {
	op, ok := mnemonics[normalizeMnemonic(name)]
	return op, ok
}

// String returns the mnemonic of an opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// OperandLen returns the number of operand bytes for this opcode.
func (op Opcode) OperandLen() int {
	return GetOpcodeInfo(op).OperandLen()
}

// InstructionLen returns the total encoded length (tag + operand bytes).
func (op Opcode) InstructionLen() int {
	return 1 + op.OperandLen()
}

// AllOpcodes returns every defined opcode in tag order.
func AllOpcodes() []Opcode {
	ops := make([]Opcode, len(opcodeInfoTable))
	for i := range ops {
		ops[i] = Opcode(i)
	}
	return ops
}

// OpcodeCount returns the number of defined opcodes.
func OpcodeCount() int {
	return len(opcodeInfoTable)
}
