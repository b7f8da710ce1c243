// Orion CLI - assemble, inspect, store and ship orion containers
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/tliron/commonlog"

	"github.com/chazu/orion/pkg/bytecode"
	"github.com/chazu/orion/server"
)

var log = commonlog.GetLogger("orion.cli")

// errUsage is returned after a usage message has been printed.
var errUsage = errors.New("invalid usage")

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("orion", flag.ContinueOnError)
	fs.SetOutput(stderr)
	verbose := fs.Int("v", 0, "Log verbosity (0 warnings, 1 info, 2 debug)")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: orion [-v N] <command> [options] [args...]\n\n")
		fmt.Fprintf(stderr, "Commands:\n")
		fmt.Fprintf(stderr, "  asm [listing.toml]       Assemble a listing (or the orion.toml project)\n")
		fmt.Fprintf(stderr, "  dis <file.orion>         Disassemble a container\n")
		fmt.Fprintf(stderr, "  inspect <file.orion>     Show header, hash and table sizes\n")
		fmt.Fprintf(stderr, "  store put|get|ls         Manage the artifact store\n")
		fmt.Fprintf(stderr, "  pack <file.orion>        Wrap a container in a transport envelope\n")
		fmt.Fprintf(stderr, "  unpack <file.env>        Verify an envelope and extract its container\n")
		fmt.Fprintf(stderr, "  lsp                      Start the listing language server on stdio\n")
		fmt.Fprintf(stderr, "\nOptions:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  orion asm                          # build the project in ./orion.toml\n")
		fmt.Fprintf(stderr, "  orion asm -strings utf8 main.toml  # assemble with UTF-8 strings\n")
		fmt.Fprintf(stderr, "  orion dis -toml main.orion         # round-trip back to a listing\n")
	}
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	commonlog.Configure(*verbose, nil)

	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return errUsage
	}

	cmd, cmdArgs := rest[0], rest[1:]
	log.Debugf("command %s %v", cmd, cmdArgs)

	switch cmd {
	case "asm":
		return handleAsmCommand(cmdArgs, stdout, stderr)
	case "dis":
		return handleDisCommand(cmdArgs, stdout, stderr)
	case "inspect":
		return handleInspectCommand(cmdArgs, stdout, stderr)
	case "store":
		return handleStoreCommand(cmdArgs, stdout, stderr)
	case "pack":
		return handlePackCommand(cmdArgs, stdout, stderr)
	case "unpack":
		return handleUnpackCommand(cmdArgs, stdout, stderr)
	case "lsp":
		return server.NewLSP().Run()
	case "help":
		fs.Usage()
		return nil
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n", cmd)
		fs.Usage()
		return errUsage
	}
}

// stringsFlag registers the -strings option on fs.
func stringsFlag(fs *flag.FlagSet) *string {
	return fs.String("strings", "", "String encoding: latin1 or utf8 (default latin1)")
}

// readContainer reads and decodes a container file.
func readContainer(path, encName string) (*bytecode.Bytecode, []byte, error) {
	enc, err := bytecode.ParseStringEncoding(encName)
	if err != nil {
		return nil, nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	b, err := bytecode.DeserializeWith(data, bytecode.Options{Strings: enc})
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return b, data, nil
}

// newFlagSet returns a subcommand flag set that reports errors instead of
// exiting.
func newFlagSet(name string, stderr io.Writer, usage string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: orion %s\n\nOptions:\n", usage)
		fs.PrintDefaults()
	}
	return fs
}
