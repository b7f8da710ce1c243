package dist

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"testing"

	"github.com/chazu/orion/pkg/ast"
	"github.com/chazu/orion/pkg/bytecode"
)

func payload(t *testing.T, enc bytecode.StringEncoding) []byte {
	t.Helper()
	b := bytecode.New()
	sym, _ := b.AddSymbol("grüße")
	c, _ := b.AddConstant(ast.String("hi"))
	b.Emit(bytecode.Def(sym, 1), bytecode.LoadConst(c))
	data, err := b.SerializeWith(bytecode.Options{Clock: bytecode.FixedUnix(1700000000), Strings: enc})
	if err != nil {
		t.Fatalf("SerializeWith: %v", err)
	}
	return data
}

func TestEnvelope_CBORRoundTrip(t *testing.T) {
	data := payload(t, bytecode.StringsUTF8)
	e, err := Wrap("demo", data, bytecode.StringsUTF8)
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}
	if e.Hash != sha256.Sum256(data) {
		t.Error("Hash mismatch")
	}
	if e.Built != 1700000000 {
		t.Errorf("Built: got %d, want 1700000000", e.Built)
	}
	if e.Encoding != "utf8" {
		t.Errorf("Encoding: got %q, want utf8", e.Encoding)
	}

	wire, err := Marshal(e)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := Unmarshal(wire)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if got.Hash != e.Hash || got.Name != e.Name || got.Built != e.Built || got.Encoding != e.Encoding {
		t.Errorf("Unmarshal = %+v, want %+v", got, e)
	}
	if !bytes.Equal(got.Payload, data) {
		t.Error("Payload mismatch")
	}
	if err := got.Verify(); err != nil {
		t.Errorf("Verify: %v", err)
	}
}

func TestEnvelope_Deterministic(t *testing.T) {
	e, err := Wrap("demo", payload(t, bytecode.StringsLatin1), bytecode.StringsLatin1)
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}
	a, _ := Marshal(e)
	b, _ := Marshal(e)
	if !bytes.Equal(a, b) {
		t.Error("canonical encoding is not deterministic")
	}
	if e.Encoding != "" {
		t.Errorf("latin1 Encoding = %q, want omitted", e.Encoding)
	}
}

func TestEnvelope_Open(t *testing.T) {
	for _, enc := range []bytecode.StringEncoding{bytecode.StringsLatin1, bytecode.StringsUTF8} {
		t.Run(enc.String(), func(t *testing.T) {
			e, err := Wrap("demo", payload(t, enc), enc)
			if err != nil {
				t.Fatalf("Wrap: %v", err)
			}
			b, err := e.Open()
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			if len(b.Symbols) != 1 || b.Symbols[0] != "grüße" {
				t.Errorf("Symbols = %v, want [grüße]", b.Symbols)
			}
		})
	}
}

func TestEnvelope_VerifyDetectsTampering(t *testing.T) {
	e, err := Wrap("demo", payload(t, bytecode.StringsLatin1), bytecode.StringsLatin1)
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}

	tampered := *e
	tampered.Payload = append([]byte{}, e.Payload...)
	tampered.Payload[len(tampered.Payload)-1] ^= 0xFF
	if err := tampered.Verify(); !errors.Is(err, ErrHashMismatch) {
		t.Errorf("Verify(tampered payload) = %v, want ErrHashMismatch", err)
	}
	if _, err := tampered.Open(); !errors.Is(err, ErrHashMismatch) {
		t.Errorf("Open(tampered payload) = %v, want ErrHashMismatch", err)
	}

	backdated := *e
	backdated.Built--
	if err := backdated.Verify(); err == nil {
		t.Error("Verify accepted a build time that does not match the header")
	}

	badEnc := *e
	badEnc.Encoding = "ebcdic"
	if err := badEnc.Verify(); err == nil {
		t.Error("Verify accepted an unknown encoding")
	}
}

func TestWrapRejectsNonContainer(t *testing.T) {
	if _, err := Wrap("junk", []byte("nope"), bytecode.StringsLatin1); !errors.Is(err, bytecode.ErrInvalidMagic) {
		t.Errorf("Wrap error = %v, want ErrInvalidMagic", err)
	}
}

func TestUnmarshalGarbage(t *testing.T) {
	if _, err := Unmarshal([]byte{0xFF, 0x00}); err == nil {
		t.Error("Unmarshal accepted garbage")
	}
}
