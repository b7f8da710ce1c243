package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/orion/dist"
	"github.com/chazu/orion/pkg/bytecode"
)

// handlePackCommand processes the `orion pack` subcommand.
// Usage:
//
//	orion pack main.orion                  # ./main.env
//	orion pack -strings utf8 -o x.env main.orion
func handlePackCommand(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("pack", stderr, "pack [options] <file.orion>")
	name := fs.String("name", "", "Artifact name (default: file name without extension)")
	output := fs.String("o", "", "Envelope path (default: <name>.env next to the input)")
	encName := stringsFlag(fs)
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return errUsage
	}

	// Decoding first catches a wrong -strings before the envelope records it.
	path := fs.Arg(0)
	_, data, err := readContainer(path, *encName)
	if err != nil {
		return err
	}
	enc, _ := bytecode.ParseStringEncoding(*encName)

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if *name == "" {
		*name = base
	}
	if *output == "" {
		*output = filepath.Join(filepath.Dir(path), base+".env")
	}

	e, err := dist.Wrap(*name, data, enc)
	if err != nil {
		return err
	}
	wire, err := dist.Marshal(e)
	if err != nil {
		return err
	}
	if err := os.WriteFile(*output, wire, 0644); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s: %s (%d bytes)\n", *output, *name, len(wire))
	return nil
}

// handleUnpackCommand processes the `orion unpack` subcommand. The
// envelope is verified and its container decoded before anything is
// written.
func handleUnpackCommand(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("unpack", stderr, "unpack [options] <file.env>")
	output := fs.String("o", "", "Container path (default: <name>.orion next to the envelope)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return errUsage
	}

	path := fs.Arg(0)
	wire, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	e, err := dist.Unmarshal(wire)
	if err != nil {
		return err
	}
	b, err := e.Open()
	if err != nil {
		return err
	}

	if *output == "" {
		*output = filepath.Join(filepath.Dir(path), filepath.Base(e.Name)+".orion")
	}
	if err := os.WriteFile(*output, e.Payload, 0644); err != nil {
		return err
	}
	st := b.Stats()
	fmt.Fprintf(stdout, "%s: %s, %d symbols, %d chunks, %d matches\n",
		*output, e.Name, st.Symbols, st.Chunks, st.Matches)
	return nil
}
