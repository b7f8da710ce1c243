// Package dist wraps serialized orion containers for transport. An
// Envelope carries the container bytes with their content hash and the
// string encoding they were written with, which the raw stream does not
// record.
package dist

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/chazu/orion/pkg/bytecode"
)

// ErrHashMismatch is returned when an envelope's payload does not hash to
// its declared hash.
var ErrHashMismatch = errors.New("dist: payload hash mismatch")

// Envelope is the transport unit for one container.
type Envelope struct {
	Hash     [32]byte `cbor:"1,keyasint"` // SHA-256 of Payload
	Name     string   `cbor:"2,keyasint"`
	Built    int64    `cbor:"3,keyasint"` // header timestamp, Unix seconds
	Payload  []byte   `cbor:"4,keyasint"`
	Encoding string   `cbor:"5,keyasint,omitempty"` // "latin1" (default) or "utf8"
}

// cborEncMode uses canonical mode for deterministic encoding.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("dist: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Wrap builds an envelope for a serialized container. The payload must
// start with a valid header.
func Wrap(name string, payload []byte, enc bytecode.StringEncoding) (*Envelope, error) {
	h, err := bytecode.ReadHeader(payload)
	if err != nil {
		return nil, fmt.Errorf("dist: wrap %s: %w", name, err)
	}
	e := &Envelope{
		Hash:    sha256.Sum256(payload),
		Name:    name,
		Built:   h.Timestamp.Unix(),
		Payload: payload,
	}
	if enc != bytecode.StringsLatin1 {
		e.Encoding = enc.String()
	}
	return e, nil
}

// Marshal serializes an Envelope to CBOR bytes.
func Marshal(e *Envelope) ([]byte, error) {
	return cborEncMode.Marshal(e)
}

// Unmarshal deserializes an Envelope from CBOR bytes. It does not verify
// the payload; call Verify.
func Unmarshal(data []byte) (*Envelope, error) {
	var e Envelope
	if err := cbor.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("dist: unmarshal envelope: %w", err)
	}
	return &e, nil
}

// Verify checks the payload hash, header and recorded build time.
func (e *Envelope) Verify() error {
	if sha256.Sum256(e.Payload) != e.Hash {
		return fmt.Errorf("%w: %s", ErrHashMismatch, e.Name)
	}
	h, err := bytecode.ReadHeader(e.Payload)
	if err != nil {
		return fmt.Errorf("dist: %s: %w", e.Name, err)
	}
	if h.Timestamp.Unix() != e.Built {
		return fmt.Errorf("dist: %s: envelope build time %d does not match header %d",
			e.Name, e.Built, h.Timestamp.Unix())
	}
	if _, err := bytecode.ParseStringEncoding(e.Encoding); err != nil {
		return fmt.Errorf("dist: %s: %w", e.Name, err)
	}
	return nil
}

// Options returns the decoding options for the payload.
func (e *Envelope) Options() (bytecode.Options, error) {
	enc, err := bytecode.ParseStringEncoding(e.Encoding)
	if err != nil {
		return bytecode.Options{}, fmt.Errorf("dist: %s: %w", e.Name, err)
	}
	return bytecode.Options{Strings: enc}, nil
}

// Open verifies the envelope and decodes its payload.
func (e *Envelope) Open() (*bytecode.Bytecode, error) {
	if err := e.Verify(); err != nil {
		return nil, err
	}
	opts, err := e.Options()
	if err != nil {
		return nil, err
	}
	b, err := bytecode.DeserializeWith(e.Payload, opts)
	if err != nil {
		return nil, fmt.Errorf("dist: %s: %w", e.Name, err)
	}
	return b, nil
}
