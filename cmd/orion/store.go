package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/orion/store"
)

// handleStoreCommand processes the `orion store` subcommand.
// Usage:
//
//	orion store put [-db path] [-name n] <file.orion>
//	orion store get [-db path] [-o out] <hash|name>
//	orion store ls  [-db path]
func handleStoreCommand(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "Usage: orion store put|get|ls [options] [args...]")
		return errUsage
	}

	sub, subArgs := args[0], args[1:]
	fs := newFlagSet("store "+sub, stderr, "store "+sub+" [options] [args...]")
	dbPath := fs.String("db", "", "Artifact store path (default from orion.toml or .orion/artifacts.db)")

	switch sub {
	case "put":
		name := fs.String("name", "", "Artifact name (default: file name without extension)")
		if err := fs.Parse(subArgs); err != nil {
			return errUsage
		}
		if fs.NArg() != 1 {
			fs.Usage()
			return errUsage
		}
		return withStore(*dbPath, func(ctx context.Context, s *store.Store) error {
			return storePut(ctx, s, fs.Arg(0), *name, stdout)
		})

	case "get":
		output := fs.String("o", "", "Write the container here instead of stdout")
		if err := fs.Parse(subArgs); err != nil {
			return errUsage
		}
		if fs.NArg() != 1 {
			fs.Usage()
			return errUsage
		}
		return withStore(*dbPath, func(ctx context.Context, s *store.Store) error {
			return storeGet(ctx, s, fs.Arg(0), *output, stdout)
		})

	case "ls":
		if err := fs.Parse(subArgs); err != nil {
			return errUsage
		}
		return withStore(*dbPath, func(ctx context.Context, s *store.Store) error {
			return storeList(ctx, s, stdout)
		})

	default:
		fmt.Fprintf(stderr, "unknown store command %q (want put, get or ls)\n", sub)
		return errUsage
	}
}

func withStore(path string, fn func(context.Context, *store.Store) error) error {
	if path == "" {
		path = defaultStorePath(nil)
	}
	s, err := store.Open(path)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(context.Background(), s)
}

func storePut(ctx context.Context, s *store.Store, path, name string, stdout io.Writer) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	h, err := s.Put(ctx, name, data)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s %s\n", h, name)
	return nil
}

// storeGet resolves ref as a hash first, then as the latest artifact
// with that name.
func storeGet(ctx context.Context, s *store.Store, ref, output string, stdout io.Writer) error {
	h, err := store.ParseHash(ref)
	if err != nil {
		a, lerr := s.Latest(ctx, ref)
		if lerr != nil {
			if errors.Is(lerr, store.ErrNotFound) {
				return fmt.Errorf("%q is neither a stored hash nor an artifact name", ref)
			}
			return lerr
		}
		h = a.Hash
	}

	data, err := s.Get(ctx, h)
	if err != nil {
		return err
	}
	if output == "" {
		_, err = stdout.Write(data)
		return err
	}
	return os.WriteFile(output, data, 0644)
}

func storeList(ctx context.Context, s *store.Store, stdout io.Writer) error {
	artifacts, err := s.List(ctx)
	if err != nil {
		return err
	}
	for _, a := range artifacts {
		fmt.Fprintf(stdout, "%s  %-20s %8d  %s\n",
			a.Hash, a.Name, a.Size, a.Built.UTC().Format("2006-01-02T15:04:05Z"))
	}
	return nil
}
