package bytecode

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Disassemble returns a human-readable listing of the whole container.
func (b *Bytecode) Disassemble() string {
	return b.DisassembleWithName("")
}

// DisassembleWithName returns a human-readable listing with a name header.
func (b *Bytecode) DisassembleWithName(name string) string {
	var sb strings.Builder

	// Header
	if name != "" {
		sb.WriteString(fmt.Sprintf("; === %s ===\n", name))
	}
	st := b.Stats()
	sb.WriteString(fmt.Sprintf("; orion bytecode: %d symbols, %d constants, %d constructors, %d chunks, %d matches\n",
		st.Symbols, st.Constants, st.Constructors, st.Chunks, st.Matches))
	sb.WriteString("\n")

	// Symbols
	if len(b.Symbols) > 0 {
		sb.WriteString("; Symbols:\n")
		for i, s := range b.Symbols {
			sb.WriteString(fmt.Sprintf(";   [%3d] %s\n", i, s))
		}
		sb.WriteString("\n")
	}

	// Constants
	if len(b.Constants) > 0 {
		sb.WriteString("; Constants:\n")
		for i, c := range b.Constants {
			sb.WriteString(fmt.Sprintf(";   [%3d] %-7s %s\n", i, c.Kind, truncate(c.Source(), 40)))
		}
		sb.WriteString("\n")
	}

	// Constructors
	if len(b.Constructors) > 0 {
		sb.WriteString("; Constructors:\n")
		for i, tag := range b.Constructors {
			sb.WriteString(fmt.Sprintf(";   [%3d] tag %d\n", i, tag))
		}
		sb.WriteString("\n")
	}

	for i, c := range b.Chunks {
		sb.WriteString(fmt.Sprintf("; Chunk %d", i))
		if len(c.References) > 0 {
			names := make([]string, len(c.References))
			for k, ref := range c.References {
				names[k] = b.symbolName(ref)
			}
			sb.WriteString(" captures " + strings.Join(names, ", "))
		}
		sb.WriteString(":\n")
		b.disassembleCode(&sb, c.Instructions)
		sb.WriteString("\n")
	}

	for i, m := range b.Matches {
		sb.WriteString(fmt.Sprintf("; Match %d expression:\n", i))
		b.disassembleCode(&sb, m.Expression)
		for k, arm := range m.Patterns {
			sb.WriteString(fmt.Sprintf("; Match %d arm %d: %s\n", i, k, arm.Pat))
			b.disassembleCode(&sb, arm.ToExec)
		}
		sb.WriteString("\n")
	}

	// Code section
	sb.WriteString("; Code:\n")
	b.disassembleCode(&sb, b.Instructions)

	return sb.String()
}

// disassembleCode writes one line per instruction, prefixed by its byte
// offset within the section.
func (b *Bytecode) disassembleCode(sb *strings.Builder, ins []Instruction) {
	offset := 0
	for _, in := range ins {
		line := in.String()
		if note := b.annotate(in); note != "" {
			sb.WriteString(fmt.Sprintf("%04X  %-24s ; %s\n", offset, line, note))
		} else {
			sb.WriteString(fmt.Sprintf("%04X  %s\n", offset, line))
		}
		offset += in.Len()
	}
}

// annotate resolves table references for display. Out-of-range indices
// are flagged rather than rejected; the container is not validated here.
func (b *Bytecode) annotate(in Instruction) string {
	ops := in.Operands()
	switch in.Op() {
	case OpLoadConst:
		if ops[0] < len(b.Constants) {
			return truncate(b.Constants[ops[0]].Source(), 20)
		}
		return "<bad constant>"
	case OpLoadSym, OpDef:
		return b.symbolName(uint16(ops[0]))
	case OpLambda:
		if ops[0] >= len(b.Chunks) {
			return "<bad chunk>"
		}
	case OpConstructor:
		if ops[0] < len(b.Constructors) {
			return fmt.Sprintf("tag %d", b.Constructors[ops[0]])
		}
		return "<bad constructor>"
	}
	return ""
}

func (b *Bytecode) symbolName(idx uint16) string {
	if int(idx) < len(b.Symbols) {
		return b.Symbols[idx]
	}
	return fmt.Sprintf("<bad symbol %d>", idx)
}

// truncate shortens s to at most n runes, ending in "...".
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-3]) + "..."
}
