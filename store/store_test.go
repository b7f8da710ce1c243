package store

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/chazu/orion/pkg/ast"
	"github.com/chazu/orion/pkg/bytecode"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "artifacts.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	// Deterministic, strictly increasing creation times.
	tick := time.Unix(1000, 0)
	s.now = func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}
	return s
}

func container(t *testing.T, sym string, epoch int64) []byte {
	t.Helper()
	b := bytecode.New()
	b.AddSymbol(sym)
	c, _ := b.AddConstant(ast.Integer(1))
	b.Emit(bytecode.Def(0, 1), bytecode.LoadConst(c))
	data, err := b.SerializeWith(bytecode.Options{Clock: bytecode.FixedUnix(epoch)})
	if err != nil {
		t.Fatalf("SerializeWith: %v", err)
	}
	return data
}

func TestPutGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	data := container(t, "x", 1700000000)

	h, err := s.Put(ctx, "demo", data)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if h != HashOf(data) {
		t.Errorf("Put hash = %s, want %s", h, HashOf(data))
	}

	got, err := s.Get(ctx, h)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Error("Get returned different bytes")
	}
}

func TestPutIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	data := container(t, "x", 1700000000)

	h1, err := s.Put(ctx, "demo", data)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	h2, err := s.Put(ctx, "renamed", data)
	if err != nil {
		t.Fatalf("second Put: %v", err)
	}
	if h1 != h2 {
		t.Errorf("hashes differ: %s vs %s", h1, h2)
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("len(List) = %d, want 1", len(list))
	}
	if list[0].Name != "demo" {
		t.Errorf("Name = %q, want first name demo", list[0].Name)
	}
}

func TestPutRejectsNonContainer(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Put(context.Background(), "junk", []byte("not a container"))
	if !errors.Is(err, bytecode.ErrInvalidMagic) {
		t.Errorf("Put error = %v, want ErrInvalidMagic", err)
	}
}

func TestLatest(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	old := container(t, "x", 1700000000)
	newer := container(t, "y", 1700000100)
	other := container(t, "z", 1700000200)
	for _, put := range []struct {
		name string
		data []byte
	}{
		{"demo", old},
		{"demo", newer},
		{"other", other},
	} {
		if _, err := s.Put(ctx, put.name, put.data); err != nil {
			t.Fatalf("Put %s: %v", put.name, err)
		}
	}

	a, err := s.Latest(ctx, "demo")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if a.Hash != HashOf(newer) {
		t.Errorf("Latest hash = %s, want %s", a.Hash, HashOf(newer))
	}
	if !a.Built.Equal(time.Unix(1700000100, 0)) {
		t.Errorf("Built = %v, want %v", a.Built, time.Unix(1700000100, 0))
	}
	if a.Size != len(newer) {
		t.Errorf("Size = %d, want %d", a.Size, len(newer))
	}

	if _, err := s.Latest(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Latest(missing) error = %v, want ErrNotFound", err)
	}
}

func TestList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("empty store List = %v", list)
	}

	names := []string{"a", "b", "c"}
	for i, name := range names {
		if _, err := s.Put(ctx, name, container(t, name, int64(i))); err != nil {
			t.Fatal(err)
		}
	}
	list, err = s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("len(List) = %d, want 3", len(list))
	}
	for i, a := range list {
		if a.Name != names[i] {
			t.Errorf("List[%d].Name = %q, want %q", i, a.Name, names[i])
		}
	}
	if !list[0].Created.Before(list[2].Created) {
		t.Error("List is not ordered by creation time")
	}
}

func TestGetNotFound(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.Get(context.Background(), Hash{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get error = %v, want ErrNotFound", err)
	}
}

func TestReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "artifacts.db")
	ctx := context.Background()
	data := container(t, "x", 1)

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	h, err := s.Put(ctx, "demo", data)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	if _, err := s.Get(ctx, h); err != nil {
		t.Errorf("Get after reopen: %v", err)
	}
}

func TestParseHash(t *testing.T) {
	h := HashOf([]byte("orion"))
	back, err := ParseHash(h.String())
	if err != nil {
		t.Fatalf("ParseHash: %v", err)
	}
	if back != h {
		t.Errorf("ParseHash(%s) = %s", h, back)
	}

	for _, bad := range []string{"", "zz", h.String()[:10], h.String() + "00"} {
		if _, err := ParseHash(bad); err == nil {
			t.Errorf("ParseHash(%q) succeeded", bad)
		}
	}
}
