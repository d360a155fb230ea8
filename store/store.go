// Package store persists table snapshots in SQLite.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/chazu/methodtable/snapshot"
)

// ErrNotFound indicates the requested snapshot doesn't exist
var ErrNotFound = errors.New("snapshot not found")

// Record describes a stored snapshot.
type Record struct {
	ID      uuid.UUID
	Project string
	Hash    string
	Classes int
	Created time.Time
}

// Store handles SQLite storage for snapshots
type Store struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS snapshots (
		id TEXT PRIMARY KEY,
		project TEXT NOT NULL,
		hash TEXT NOT NULL,
		classes INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		data BLOB NOT NULL,
		UNIQUE (project, hash)
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS snapshots_by_project
		ON snapshots (project, created_at)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating index: %w", err)
	}

	return &Store{db: db, path: path, now: time.Now}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Save stores a snapshot and returns its record. Saving a layout that is
// already stored for the project returns the existing record with its
// timestamp refreshed, so it becomes the project's latest again.
func (s *Store) Save(snap *snapshot.Snapshot) (Record, error) {
	data, err := snapshot.Marshal(snap)
	if err != nil {
		return Record{}, fmt.Errorf("encoding snapshot: %w", err)
	}
	hash, err := snap.HashString()
	if err != nil {
		return Record{}, fmt.Errorf("hashing snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	created := s.now().UTC()
	rec := Record{
		Project: snap.Project,
		Hash:    hash,
		Classes: len(snap.Classes),
		Created: created,
	}

	var existing string
	err = s.db.QueryRow("SELECT id FROM snapshots WHERE project = ? AND hash = ?", snap.Project, hash).Scan(&existing)
	switch {
	case err == nil:
		if rec.ID, err = uuid.Parse(existing); err != nil {
			return Record{}, fmt.Errorf("stored id %q: %w", existing, err)
		}
		if _, err := s.db.Exec("UPDATE snapshots SET created_at = ? WHERE id = ?", created.UnixNano(), existing); err != nil {
			return Record{}, fmt.Errorf("updating snapshot: %w", err)
		}
		return rec, nil
	case !errors.Is(err, sql.ErrNoRows):
		return Record{}, fmt.Errorf("querying snapshot: %w", err)
	}

	rec.ID = uuid.New()
	_, err = s.db.Exec(
		"INSERT INTO snapshots (id, project, hash, classes, created_at, data) VALUES (?, ?, ?, ?, ?, ?)",
		rec.ID.String(), rec.Project, rec.Hash, rec.Classes, created.UnixNano(), data,
	)
	if err != nil {
		return Record{}, fmt.Errorf("saving snapshot: %w", err)
	}
	return rec, nil
}

// Get loads a snapshot by id.
func (s *Store) Get(id uuid.UUID) (*snapshot.Snapshot, Record, error) {
	row := s.db.QueryRow(
		"SELECT id, project, hash, classes, created_at, data FROM snapshots WHERE id = ?",
		id.String(),
	)
	return scanSnapshot(row)
}

// Latest loads the most recently saved snapshot of a project.
func (s *Store) Latest(project string) (*snapshot.Snapshot, Record, error) {
	row := s.db.QueryRow(
		`SELECT id, project, hash, classes, created_at, data FROM snapshots
		WHERE project = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`,
		project,
	)
	return scanSnapshot(row)
}

// List returns the records of a project, newest first.
func (s *Store) List(project string) ([]Record, error) {
	rows, err := s.db.Query(
		`SELECT id, project, hash, classes, created_at FROM snapshots
		WHERE project = ? ORDER BY created_at DESC, rowid DESC`,
		project,
	)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec     Record
			id      string
			created int64
		)
		if err := rows.Scan(&id, &rec.Project, &rec.Hash, &rec.Classes, &created); err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		if rec.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("stored id %q: %w", id, err)
		}
		rec.Created = time.Unix(0, created).UTC()
		records = append(records, rec)
	}
	return records, rows.Err()
}

func scanSnapshot(row *sql.Row) (*snapshot.Snapshot, Record, error) {
	var (
		rec     Record
		id      string
		created int64
		data    []byte
	)
	err := row.Scan(&id, &rec.Project, &rec.Hash, &rec.Classes, &created, &data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, Record{}, ErrNotFound
		}
		return nil, Record{}, fmt.Errorf("querying snapshot: %w", err)
	}
	if rec.ID, err = uuid.Parse(id); err != nil {
		return nil, Record{}, fmt.Errorf("stored id %q: %w", id, err)
	}
	rec.Created = time.Unix(0, created).UTC()

	snap, err := snapshot.Unmarshal(data)
	if err != nil {
		return nil, Record{}, err
	}
	return snap, rec, nil
}
