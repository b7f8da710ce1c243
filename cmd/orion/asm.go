package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/orion/asm"
	"github.com/chazu/orion/manifest"
	"github.com/chazu/orion/pkg/bytecode"
	"github.com/chazu/orion/store"
)

// buildPlan is what `orion asm` will do, resolved from flags and the
// project manifest.
type buildPlan struct {
	name    string
	source  string
	output  string
	opts    bytecode.Options
	project *manifest.Manifest // nil when assembling a bare listing
}

// handleAsmCommand processes the `orion asm` subcommand.
// Usage:
//
//	orion asm                    # build the project in ./orion.toml
//	orion asm main.toml          # ./main.orion
//	orion asm -o out.orion -epoch 1700000000 main.toml
func handleAsmCommand(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("asm", stderr, "asm [options] [listing.toml]")
	output := fs.String("o", "", "Output container path")
	encName := stringsFlag(fs)
	epoch := fs.Int64("epoch", 0, "Pin the header timestamp (Unix seconds)")
	save := fs.Bool("store", false, "Also put the container in the artifact store")
	dbPath := fs.String("db", "", "Artifact store path (with -store)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() > 1 {
		fs.Usage()
		return errUsage
	}

	plan, err := planBuild(fs.Arg(0))
	if err != nil {
		return err
	}

	if *output != "" {
		plan.output = *output
	}
	if *encName != "" {
		enc, err := bytecode.ParseStringEncoding(*encName)
		if err != nil {
			return err
		}
		plan.opts.Strings = enc
	}
	if *epoch != 0 {
		if *epoch < 0 || *epoch > int64(^uint32(0)) {
			return fmt.Errorf("-epoch %d does not fit in the 32-bit header timestamp", *epoch)
		}
		plan.opts.Clock = bytecode.FixedUnix(*epoch)
	}

	b, err := asm.ParseFile(plan.source)
	if err != nil {
		return err
	}
	data, err := b.SerializeWith(plan.opts)
	if err != nil {
		return fmt.Errorf("%s: %w", plan.source, err)
	}

	if dir := filepath.Dir(plan.output); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	if err := os.WriteFile(plan.output, data, 0644); err != nil {
		return err
	}

	hash := store.HashOf(data)
	hdr, _ := bytecode.ReadHeader(data)
	fmt.Fprintf(stdout, "%s: %d bytes, sha256 %s\n", plan.output, len(data), hash)

	if plan.project != nil {
		if err := recordBuild(plan, data, hdr); err != nil {
			return err
		}
	}

	if *save {
		path := *dbPath
		if path == "" {
			path = defaultStorePath(plan.project)
		}
		s, err := store.Open(path)
		if err != nil {
			return err
		}
		defer s.Close()
		if _, err := s.Put(context.Background(), plan.name, data); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "stored %s in %s\n", plan.name, path)
	}
	return nil
}

// planBuild resolves the listing to assemble. With no argument the
// project manifest supplies source, output and options.
func planBuild(listing string) (*buildPlan, error) {
	if listing != "" {
		base := strings.TrimSuffix(filepath.Base(listing), filepath.Ext(listing))
		return &buildPlan{
			name:   base,
			source: listing,
			output: filepath.Join(filepath.Dir(listing), base+".orion"),
		}, nil
	}

	m, err := manifest.FindAndLoad(".")
	if err != nil {
		return nil, fmt.Errorf("loading manifest: %w", err)
	}
	if m == nil {
		return nil, fmt.Errorf("no listing given and no %s found", manifest.FileName)
	}
	log.Infof("building project %s from %s", m.Project.Name, m.Dir)
	return &buildPlan{
		name:    m.Project.Name,
		source:  m.SourcePath(),
		output:  m.OutputPath(),
		opts:    m.Options(),
		project: m,
	}, nil
}

// recordBuild updates the project's build lock with the new output.
func recordBuild(plan *buildPlan, data []byte, hdr bytecode.Header) error {
	m := plan.project
	lf, err := manifest.ReadLock(m.LockFilePath())
	if err != nil {
		return err
	}
	if lf == nil {
		lf = &manifest.LockFile{}
	}

	output := plan.output
	if rel, err := filepath.Rel(m.Dir, plan.output); err == nil {
		output = rel
	}
	lf.Record(manifest.LockedBuild{
		Name:    plan.name,
		Output:  output,
		Hash:    store.HashOf(data).String(),
		Built:   hdr.Timestamp.Unix(),
		Size:    len(data),
		Strings: plan.opts.Strings.String(),
	})
	return manifest.WriteLock(m.LockFilePath(), lf)
}

// defaultStorePath returns the project's store, or the store under the
// working directory when there is no project.
func defaultStorePath(m *manifest.Manifest) string {
	if m != nil {
		return m.StorePath()
	}
	if found, err := manifest.FindAndLoad("."); err == nil && found != nil {
		return found.StorePath()
	}
	return filepath.Join(".orion", "artifacts.db")
}

// handleDisCommand processes the `orion dis` subcommand.
func handleDisCommand(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("dis", stderr, "dis [options] <file.orion>")
	encName := stringsFlag(fs)
	asListing := fs.Bool("toml", false, "Print an assembler listing instead of a disassembly")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return errUsage
	}

	path := fs.Arg(0)
	b, _, err := readContainer(path, *encName)
	if err != nil {
		return err
	}

	if *asListing {
		out, err := asm.Format(b)
		if err != nil {
			return err
		}
		_, err = stdout.Write(out)
		return err
	}
	_, err = io.WriteString(stdout, b.DisassembleWithName(filepath.Base(path)))
	return err
}

// handleInspectCommand processes the `orion inspect` subcommand.
func handleInspectCommand(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("inspect", stderr, "inspect [options] <file.orion>")
	encName := stringsFlag(fs)
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return errUsage
	}

	b, data, err := readContainer(fs.Arg(0), *encName)
	if err != nil {
		return err
	}
	hdr, err := bytecode.ReadHeader(data)
	if err != nil {
		return err
	}

	st := b.Stats()
	fmt.Fprintf(stdout, "file:         %s\n", fs.Arg(0))
	fmt.Fprintf(stdout, "size:         %d bytes\n", len(data))
	fmt.Fprintf(stdout, "sha256:       %s\n", store.HashOf(data))
	fmt.Fprintf(stdout, "built:        %s\n", hdr.Timestamp.UTC().Format("2006-01-02T15:04:05Z"))
	fmt.Fprintf(stdout, "symbols:      %d\n", st.Symbols)
	fmt.Fprintf(stdout, "constants:    %d\n", st.Constants)
	fmt.Fprintf(stdout, "constructors: %d\n", st.Constructors)
	fmt.Fprintf(stdout, "chunks:       %d\n", st.Chunks)
	fmt.Fprintf(stdout, "matches:      %d\n", st.Matches)
	fmt.Fprintf(stdout, "instructions: %d (%d code bytes)\n", st.Instructions, st.CodeBytes)
	return nil
}
