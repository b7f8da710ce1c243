package bytecode

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/chazu/orion/pkg/ast"
)

// Magic is the format signature at the start of every serialized container.
var Magic = []byte{'o', 'r', 'i', 'o', 'n'}

// HeaderSize is the size of the fixed header: magic(5) + timestamp(4).
const HeaderSize = 9

// Bytecode is a compiled program: the tables referenced by index from
// instructions, the closure chunks, the match tables and the top-level
// instruction stream. It is populated append-only during compilation and
// serialized once.
type Bytecode struct {
	Chunks       []*Chunk
	Matches      []*Match
	Symbols      []string // grow with AddSymbol; appending directly is allowed
	Constants    []ast.Literal
	Instructions []Instruction
	Constructors []byte

	// symbolIndex caches name -> index for AddSymbol. It is resynced when
	// Symbols has grown behind its back and never trusted without checking
	// Symbols itself.
	symbolIndex map[string]uint16
}

// New creates an empty container.
func New() *Bytecode {
	return &Bytecode{}
}

// SymbolIndex returns the index of a symbol name.
// It only reads b, and it sees entries appended to or replaced in Symbols
// directly.
func (b *Bytecode) SymbolIndex(name string) (uint16, bool) {
	if idx, ok := b.cachedSymbol(name); ok {
		return idx, true
	}
	if i := slices.Index(b.Symbols, name); i >= 0 {
		return uint16(i), true
	}
	return 0, false
}

func (b *Bytecode) cachedSymbol(name string) (uint16, bool) {
	idx, ok := b.symbolIndex[name]
	if !ok || int(idx) >= len(b.Symbols) || b.Symbols[idx] != name {
		return 0, false
	}
	return idx, true
}

func (b *Bytecode) syncSymbolIndex() {
	if b.symbolIndex != nil && len(b.symbolIndex) == len(b.Symbols) {
		return
	}
	b.symbolIndex = make(map[string]uint16, len(b.Symbols))
	for i, s := range b.Symbols {
		if _, dup := b.symbolIndex[s]; !dup {
			b.symbolIndex[s] = uint16(i)
		}
	}
}

// AddSymbol interns name and returns its index. Adding a name that is
// already present returns the existing index. Lookups go through a cache
// kept in step with appends; an entry of Symbols overwritten in place
// with a new name is not deduplicated against, and SerializeWith reports
// the resulting duplicate.
func (b *Bytecode) AddSymbol(name string) (uint16, error) {
	b.syncSymbolIndex()
	if idx, ok := b.cachedSymbol(name); ok {
		return idx, nil
	}
	if _, err := checkLen("symbols", len(b.Symbols)+1); err != nil {
		return 0, err
	}
	idx := uint16(len(b.Symbols))
	b.Symbols = append(b.Symbols, name)
	b.symbolIndex[name] = idx
	return idx, nil
}

// AddConstant adds a literal to the constant pool and returns its index.
// An equal literal already in the pool is reused.
func (b *Bytecode) AddConstant(lit ast.Literal) (uint16, error) {
	if i := slices.IndexFunc(b.Constants, lit.Equal); i >= 0 {
		return uint16(i), nil
	}
	if _, err := checkLen("constants", len(b.Constants)+1); err != nil {
		return 0, err
	}
	b.Constants = append(b.Constants, lit)
	return uint16(len(b.Constants) - 1), nil
}

// AddConstructor appends a constructor tag byte and returns its index.
func (b *Bytecode) AddConstructor(tag byte) (uint16, error) {
	if _, err := checkLen("constructors", len(b.Constructors)+1); err != nil {
		return 0, err
	}
	b.Constructors = append(b.Constructors, tag)
	return uint16(len(b.Constructors) - 1), nil
}

// AddChunk appends a chunk and returns the index Lambda should reference.
func (b *Bytecode) AddChunk(c *Chunk) (uint16, error) {
	if _, err := checkLen("chunks", len(b.Chunks)+1); err != nil {
		return 0, err
	}
	b.Chunks = append(b.Chunks, c)
	return uint16(len(b.Chunks) - 1), nil
}

// AddMatch appends a match table entry and returns its index.
func (b *Bytecode) AddMatch(m *Match) (uint16, error) {
	if _, err := checkLen("matches", len(b.Matches)+1); err != nil {
		return 0, err
	}
	b.Matches = append(b.Matches, m)
	return uint16(len(b.Matches) - 1), nil
}

// Emit appends instructions to the top-level stream and returns the index
// of the first one.
func (b *Bytecode) Emit(ins ...Instruction) int {
	idx := len(b.Instructions)
	b.Instructions = append(b.Instructions, ins...)
	return idx
}

// Serialize encodes the container with the system clock and Latin-1
// strings. See SerializeWith.
func (b *Bytecode) Serialize() ([]byte, error) {
	return b.SerializeWith(Options{})
}

// SerializeWith encodes the container. Format:
//
//	[magic:5 "orion"] [timestamp:4]
//	[sym_count:2] [symbol]...
//	[const_count:2] ([kind:1] [payload])...
//	[constr_count:2] [tag:1]...
//	[chunk_count:2] [chunk]...
//	[code_len:2] [code:...]
//	[match_count:2] [match]...   (only when there are matches)
//
// All numbers are big-endian. Any table that does not fit its 16-bit
// prefix fails with ErrCapacityExceeded; no partial output is returned.
func (b *Bytecode) SerializeWith(opts Options) ([]byte, error) {
	e := &encoder{
		buf:  make([]byte, 0, b.estimateSize()),
		opts: opts,
	}

	ts := opts.clock().Now().Unix()
	if ts < 0 || ts > math.MaxUint32 {
		return nil, fmt.Errorf("%w: %s", ErrTimestampRange, time.Unix(ts, 0).UTC().Format(time.RFC3339))
	}
	e.buf = append(e.buf, Magic...)
	e.writeUint32(uint32(ts))

	// Symbols
	if err := e.writeCount("symbols", len(b.Symbols)); err != nil {
		return nil, err
	}
	seen := make(map[string]int, len(b.Symbols))
	for i, sym := range b.Symbols {
		if prev, dup := seen[sym]; dup {
			return nil, fmt.Errorf("%w: %q at %d and %d", ErrDuplicateSymbol, sym, prev, i)
		}
		seen[sym] = i
		if err := e.writeString(fmt.Sprintf("symbols[%d]", i), sym); err != nil {
			return nil, err
		}
	}

	// Constants
	if err := e.writeCount("constants", len(b.Constants)); err != nil {
		return nil, err
	}
	for i, lit := range b.Constants {
		if err := e.writeLiteral(fmt.Sprintf("constants[%d]", i), lit); err != nil {
			return nil, err
		}
	}

	// Constructors
	if err := e.writeCount("constructors", len(b.Constructors)); err != nil {
		return nil, err
	}
	e.buf = append(e.buf, b.Constructors...)

	// Chunks
	if err := e.writeCount("chunks", len(b.Chunks)); err != nil {
		return nil, err
	}
	for i, c := range b.Chunks {
		if err := c.encode(e, fmt.Sprintf("chunks[%d]", i)); err != nil {
			return nil, err
		}
	}

	// Top-level instructions
	if err := e.writeCode("instructions", b.Instructions); err != nil {
		return nil, err
	}

	// Matches
	if len(b.Matches) > 0 {
		if err := e.writeCount("matches", len(b.Matches)); err != nil {
			return nil, err
		}
		for i, m := range b.Matches {
			if err := m.encode(e, fmt.Sprintf("matches[%d]", i)); err != nil {
				return nil, err
			}
		}
	}

	return e.buf, nil
}

func (b *Bytecode) estimateSize() int {
	n := HeaderSize + 10 + len(b.Constructors) + CodeLen(b.Instructions)
	for _, s := range b.Symbols {
		n += len(s) + 2
	}
	n += 10 * len(b.Constants)
	for _, c := range b.Chunks {
		n += 4 + 2*len(c.References) + c.CodeLen()
	}
	return n
}

// ---------------------------------------------------------------------------
// Reading
// ---------------------------------------------------------------------------

// Header is the fixed prefix of a serialized container.
type Header struct {
	Timestamp time.Time // Build time, second precision
}

// ReadHeader validates the magic signature and returns the header.
func ReadHeader(data []byte) (Header, error) {
	if len(data) < len(Magic) || string(data[:len(Magic)]) != string(Magic) {
		n := min(len(data), len(Magic))
		return Header{}, fmt.Errorf("%w: got %q", ErrInvalidMagic, data[:n])
	}
	d := &decoder{data: data, pos: len(Magic)}
	ts, err := d.readUint32("timestamp")
	if err != nil {
		return Header{}, err
	}
	return Header{Timestamp: time.Unix(int64(ts), 0)}, nil
}

// Deserialize decodes a container written with Latin-1 strings.
func Deserialize(data []byte) (*Bytecode, error) {
	return DeserializeWith(data, Options{})
}

// DeserializeWith decodes a container. opts.Strings must match the
// encoding used to write it; opts.Clock is ignored.
func DeserializeWith(data []byte, opts Options) (*Bytecode, error) {
	if _, err := ReadHeader(data); err != nil {
		return nil, err
	}
	d := &decoder{data: data, pos: HeaderSize, opts: opts}
	b := New()

	// Symbols
	n, err := d.readUint16("symbol count")
	if err != nil {
		return nil, err
	}
	for i := 0; i < int(n); i++ {
		s, err := d.readString(fmt.Sprintf("symbol %d", i))
		if err != nil {
			return nil, err
		}
		b.Symbols = append(b.Symbols, s)
	}

	// Constants
	if n, err = d.readUint16("constant count"); err != nil {
		return nil, err
	}
	for i := 0; i < int(n); i++ {
		lit, err := d.readLiteral(fmt.Sprintf("constant %d", i))
		if err != nil {
			return nil, err
		}
		b.Constants = append(b.Constants, lit)
	}

	// Constructors
	if n, err = d.readUint16("constructor count"); err != nil {
		return nil, err
	}
	if err := d.need(int(n), "constructors"); err != nil {
		return nil, err
	}
	if n > 0 {
		b.Constructors = slices.Clone(d.data[d.pos : d.pos+int(n)])
		d.pos += int(n)
	}

	// Chunks
	if n, err = d.readUint16("chunk count"); err != nil {
		return nil, err
	}
	for i := 0; i < int(n); i++ {
		c, err := decodeChunk(d, fmt.Sprintf("chunk %d", i))
		if err != nil {
			return nil, err
		}
		b.Chunks = append(b.Chunks, c)
	}

	// Top-level instructions
	if b.Instructions, err = d.readCode("instructions"); err != nil {
		return nil, err
	}

	// Matches are optional: end of stream means none.
	if d.remaining() > 0 {
		if n, err = d.readUint16("match count"); err != nil {
			return nil, err
		}
		for i := 0; i < int(n); i++ {
			m, err := decodeMatch(d, fmt.Sprintf("match %d", i))
			if err != nil {
				return nil, err
			}
			b.Matches = append(b.Matches, m)
		}
	}

	if d.remaining() > 0 {
		return nil, fmt.Errorf("%w: %d bytes at offset %d", ErrTrailingData, d.remaining(), d.pos)
	}
	return b, nil
}

// Equal reports whether two containers have identical contents.
func (b *Bytecode) Equal(o *Bytecode) bool {
	if !slices.Equal(b.Symbols, o.Symbols) ||
		!slices.EqualFunc(b.Constants, o.Constants, ast.Literal.Equal) ||
		!slices.Equal(b.Constructors, o.Constructors) ||
		!slices.Equal(b.Instructions, o.Instructions) {
		return false
	}
	if !slices.EqualFunc(b.Chunks, o.Chunks, (*Chunk).Equal) {
		return false
	}
	return slices.EqualFunc(b.Matches, o.Matches, (*Match).Equal)
}

// Stats summarizes table sizes.
type Stats struct {
	Symbols      int
	Constants    int
	Constructors int
	Chunks       int
	Matches      int
	Instructions int // top-level instruction count
	CodeBytes    int // top-level code length
}

// Stats returns the container's table sizes.
func (b *Bytecode) Stats() Stats {
	return Stats{
		Symbols:      len(b.Symbols),
		Constants:    len(b.Constants),
		Constructors: len(b.Constructors),
		Chunks:       len(b.Chunks),
		Matches:      len(b.Matches),
		Instructions: len(b.Instructions),
		CodeBytes:    CodeLen(b.Instructions),
	}
}
