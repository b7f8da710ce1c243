package bytecode

import (
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// Encode errors
// ---------------------------------------------------------------------------

var (
	ErrCapacityExceeded     = errors.New("capacity exceeded")
	ErrUnsupportedCharacter = errors.New("unsupported character")
	ErrDuplicateSymbol      = errors.New("duplicate symbol")
	ErrTimestampRange       = errors.New("timestamp outside 1970-01-01..2106-02-07")
)

// ---------------------------------------------------------------------------
// Decode errors
// ---------------------------------------------------------------------------

var (
	ErrInvalidMagic   = errors.New("invalid magic: expected \"orion\"")
	ErrUnexpectedEOF  = errors.New("unexpected end of bytecode")
	ErrUnknownOpcode  = errors.New("unknown opcode")
	ErrUnknownLiteral = errors.New("unknown literal discriminant")
	ErrUnknownPattern = errors.New("unknown pattern tag")
	ErrPatternTooDeep = errors.New("pattern nesting too deep")
	ErrTrailingData   = errors.New("trailing data after bytecode")
)

// ---------------------------------------------------------------------------
// Listing syntax errors
// ---------------------------------------------------------------------------

var (
	ErrUnknownMnemonic = errors.New("unknown mnemonic")
	ErrOperandCount    = errors.New("wrong operand count")
	ErrOperandRange    = errors.New("operand out of range")
)

// MaxTableLen is the largest entry count or byte length a 16-bit prefix
// can describe.
const MaxTableLen = 0xFFFF

// CapacityError reports a table or code section that does not fit its
// 16-bit length prefix. It matches ErrCapacityExceeded with errors.Is.
type CapacityError struct {
	Table string // e.g. "symbols", "chunks[3].instructions"
	Count int    // Entries or bytes the table would need
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("%s: %s has %d entries, limit is %d",
		ErrCapacityExceeded, e.Table, e.Count, MaxTableLen)
}

func (e *CapacityError) Unwrap() error {
	return ErrCapacityExceeded
}

// checkLen returns a *CapacityError when n does not fit in 16 bits.
func checkLen(table string, n int) (uint16, error) {
	if n > MaxTableLen {
		return 0, &CapacityError{Table: table, Count: n}
	}
	return uint16(n), nil
}
