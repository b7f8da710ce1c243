// Package store keeps serialized orion containers in a SQLite database,
// addressed by the SHA-256 of their bytes.
package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"

	"github.com/chazu/orion/pkg/bytecode"
)

var log = commonlog.GetLogger("orion.store")

// ErrNotFound indicates the requested artifact doesn't exist.
var ErrNotFound = errors.New("artifact not found")

// Hash is the SHA-256 of a serialized container.
type Hash [32]byte

// HashOf returns the content hash of data.
func HashOf(data []byte) Hash {
	return sha256.Sum256(data)
}

// String returns the lowercase hex form used as the database key.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// ParseHash parses a 64-digit hex hash.
func ParseHash(s string) (Hash, error) {
	var h Hash
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != len(h) {
		return h, fmt.Errorf("invalid hash %q: want %d hex digits", s, 2*len(h))
	}
	copy(h[:], b)
	return h, nil
}

// Artifact is the metadata row for a stored container.
type Artifact struct {
	Hash    Hash
	Name    string
	Built   time.Time // header timestamp of the container
	Size    int
	Created time.Time // when it was first stored
}

// Store is a SQLite-backed artifact store. It is safe for concurrent use.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS artifacts (
		hash    TEXT PRIMARY KEY,
		name    TEXT NOT NULL,
		built   INTEGER NOT NULL,
		size    INTEGER NOT NULL,
		data    BLOB NOT NULL,
		created INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS artifacts_name ON artifacts (name, created)`,
}

// Open opens or creates the database at path. The parent directory is
// created if needed.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating store dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating schema: %w", err)
		}
	}

	log.Debugf("opened artifact store %s", path)
	return &Store{db: db, path: path, now: time.Now}, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Put stores a serialized container under name and returns its hash.
// data must start with a valid header. Storing bytes that are already
// present is a no-op that returns the same hash and keeps the first name.
func (s *Store) Put(ctx context.Context, name string, data []byte) (Hash, error) {
	h, err := bytecode.ReadHeader(data)
	if err != nil {
		return Hash{}, fmt.Errorf("storing %s: %w", name, err)
	}
	hash := HashOf(data)

	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO artifacts (hash, name, built, size, data, created)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		hash.String(), name, h.Timestamp.Unix(), len(data), data, s.now().UnixNano(),
	)
	if err != nil {
		return Hash{}, fmt.Errorf("storing %s: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		log.Debugf("artifact %s already stored", hash)
	} else {
		log.Infof("stored %s as %s (%d bytes)", name, hash, len(data))
	}
	return hash, nil
}

// Get returns the bytes stored under hash.
func (s *Store) Get(ctx context.Context, hash Hash) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT data FROM artifacts WHERE hash = ?", hash.String(),
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, hash)
	}
	if err != nil {
		return nil, fmt.Errorf("querying artifact: %w", err)
	}
	return data, nil
}

// Latest returns the most recently stored artifact named name.
func (s *Store) Latest(ctx context.Context, name string) (Artifact, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT hash, name, built, size, created FROM artifacts
		 WHERE name = ? ORDER BY created DESC, rowid DESC LIMIT 1`, name)
	a, err := scanArtifact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Artifact{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return a, err
}

// List returns all artifacts, oldest first.
func (s *Store) List(ctx context.Context) ([]Artifact, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT hash, name, built, size, created FROM artifacts ORDER BY created, rowid")
	if err != nil {
		return nil, fmt.Errorf("listing artifacts: %w", err)
	}
	defer rows.Close()

	var out []Artifact
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanArtifact(row scanner) (Artifact, error) {
	var (
		a       Artifact
		hexHash string
		built   int64
		created int64
	)
	if err := row.Scan(&hexHash, &a.Name, &built, &a.Size, &created); err != nil {
		return Artifact{}, err
	}
	h, err := ParseHash(hexHash)
	if err != nil {
		return Artifact{}, err
	}
	a.Hash = h
	a.Built = time.Unix(built, 0)
	a.Created = time.Unix(0, created)
	return a, nil
}
