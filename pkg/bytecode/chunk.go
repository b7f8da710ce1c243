package bytecode

import (
	"fmt"
	"slices"
)

// Chunk is an independently addressable block of instructions used as the
// body of a closure. References lists the enclosing-scope symbol indices
// the closure captures; position in the list is the capture slot.
type Chunk struct {
	Instructions []Instruction
	References   []uint16
}

// NewChunk creates a chunk capturing the given symbol indices.
func NewChunk(refs ...uint16) *Chunk {
	return &Chunk{References: refs}
}

// Emit appends instructions and returns the index of the first one.
func (c *Chunk) Emit(ins ...Instruction) int {
	idx := len(c.Instructions)
	c.Instructions = append(c.Instructions, ins...)
	return idx
}

// AddReference adds a captured symbol and returns its capture slot.
// Capturing the same symbol twice returns the existing slot.
func (c *Chunk) AddReference(sym uint16) (uint16, error) {
	if i := slices.Index(c.References, sym); i >= 0 {
		return uint16(i), nil
	}
	idx, err := checkLen("references", len(c.References)+1)
	if err != nil {
		return 0, err
	}
	c.References = append(c.References, sym)
	return idx - 1, nil
}

// CodeLen returns the byte length of the encoded instructions.
func (c *Chunk) CodeLen() int {
	return CodeLen(c.Instructions)
}

// Encode returns the chunk's encoding:
//
//	[ref_count:2] [ref:2]... [code_len:2] [code:...]
//
// The code section is prefixed by its byte length, not its instruction
// count, so a loader can skip a chunk without decoding it.
func (c *Chunk) Encode() ([]byte, error) {
	e := &encoder{}
	if err := c.encode(e, "chunk"); err != nil {
		return nil, err
	}
	return e.buf, nil
}

func (c *Chunk) encode(e *encoder, table string) error {
	if err := e.writeCount(table+".references", len(c.References)); err != nil {
		return err
	}
	for _, ref := range c.References {
		e.writeUint16(ref)
	}
	return e.writeCode(table+".instructions", c.Instructions)
}

// DecodeChunk decodes a chunk from the start of data and returns it with
// the number of bytes consumed.
func DecodeChunk(data []byte) (*Chunk, int, error) {
	d := &decoder{data: data}
	c, err := decodeChunk(d, "chunk")
	if err != nil {
		return nil, 0, err
	}
	return c, d.pos, nil
}

func decodeChunk(d *decoder, what string) (*Chunk, error) {
	n, err := d.readUint16(what + " reference count")
	if err != nil {
		return nil, err
	}
	if err := d.need(2*int(n), what+" references"); err != nil {
		return nil, err
	}
	c := &Chunk{}
	if n > 0 {
		c.References = make([]uint16, n)
		for i := range c.References {
			c.References[i], _ = d.readUint16(what + " reference")
		}
	}
	c.Instructions, err = d.readCode(what + " instructions")
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Equal reports whether two chunks hold the same references and code.
func (c *Chunk) Equal(o *Chunk) bool {
	return slices.Equal(c.References, o.References) &&
		slices.Equal(c.Instructions, o.Instructions)
}

func (c *Chunk) String() string {
	return fmt.Sprintf("Chunk(refs=%v, %d instructions, %d bytes)",
		c.References, len(c.Instructions), c.CodeLen())
}
