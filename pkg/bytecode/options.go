package bytecode

import "fmt"

// StringEncoding selects how symbols, string constants and bound pattern
// names are laid out. The choice is not recorded in the stream, so the
// reader must be given the same encoding as the writer.
type StringEncoding uint8

const (
	// StringsLatin1 writes one byte per character followed by a NUL
	// terminator. Characters above U+00FF and embedded NULs are rejected.
	StringsLatin1 StringEncoding = iota

	// StringsUTF8 writes a 16-bit byte length followed by UTF-8 bytes.
	StringsUTF8
)

// String returns the configuration name of the encoding.
func (e StringEncoding) String() string {
	switch e {
	case StringsLatin1:
		return "latin1"
	case StringsUTF8:
		return "utf8"
	default:
		return fmt.Sprintf("StringEncoding(%d)", e)
	}
}

// ParseStringEncoding maps a configuration name to a StringEncoding.
// The empty string selects the default, latin1.
func ParseStringEncoding(name string) (StringEncoding, error) {
	switch name {
	case "", "latin1":
		return StringsLatin1, nil
	case "utf8", "utf-8":
		return StringsUTF8, nil
	default:
		return 0, fmt.Errorf("unknown string encoding %q (want latin1 or utf8)", name)
	}
}

// Options configures serialization and deserialization.
type Options struct {
	// Clock supplies the header timestamp. Nil means SystemClock.
	Clock Clock

	// Strings selects the string layout. The zero value is StringsLatin1.
	Strings StringEncoding
}

func (o Options) clock() Clock {
	if o.Clock == nil {
		return SystemClock{}
	}
	return o.Clock
}
