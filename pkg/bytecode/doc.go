// Package bytecode defines the orion bytecode container: the instruction
// set of a small stack VM and the binary format a compiled program is
// stored in.
//
// A container holds everything an interpreter needs to run a program:
//
//   - Symbols: interned names, referenced by LoadSym and Def
//   - Constants: string, integer and float literals, referenced by LoadConst
//   - Constructors: one tag byte per data constructor
//   - Chunks: closure bodies with their captured symbols, referenced by Lambda
//   - Instructions: the top-level program
//   - Matches: pattern-match tables (expression plus ordered arms)
//
// # Instruction Encoding
//
// Every instruction is a one-byte tag followed by big-endian operands:
//
//	LOAD_CONST  0  const:u16
//	LOAD_SYM    1  sym:u16
//	CALL        2  argc:u16
//	BUILTIN     3  id:u8 argc:u8
//	DEF         4  sym:u16 length:u16
//	LAMBDA      5  chunk:u16
//	CONSTRUCTOR 6  constr:u16 to_eval:u16
//	TUPLE       7  amount:u16
//
// Code sections are prefixed by their byte length, not their instruction
// count.
//
// # Container Format
//
// A serialized container starts with the five ASCII bytes "orion" and a
// 32-bit Unix timestamp taken from the configured Clock. Sections follow
// in a fixed order, each prefixed by a 16-bit count. A table that would
// need more than 65535 entries (or a code section longer than 65535
// bytes) fails with ErrCapacityExceeded instead of being truncated.
//
// The match section is written only when the container has matches; a
// stream that ends after the top-level code decodes with no matches.
//
// # Strings
//
// By default strings are Latin-1 bytes ending in NUL. Options.Strings can
// select a length-prefixed UTF-8 layout instead. The stream does not say
// which layout it uses; writer and reader must agree, usually through
// the project manifest.
//
// # Usage
//
//	b := bytecode.New()
//	sym, _ := b.AddSymbol("x")
//	one, _ := b.AddConstant(ast.Integer(1))
//	b.Emit(bytecode.Def(sym, 1), bytecode.LoadConst(one))
//	data, err := b.SerializeWith(bytecode.Options{Clock: bytecode.FixedUnix(0)})
package bytecode
