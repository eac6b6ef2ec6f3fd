// Package store persists banana programs and run records in a SQLite
// database. Programs are keyed by the content hash of their canonical
// image, so saving the same program twice is idempotent; runs are keyed
// by a fresh UUID per run.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/chazu/banana/image"
	"github.com/chazu/banana/vm"
)

// ErrProgramNotFound indicates the requested program hash is not stored.
var ErrProgramNotFound = errors.New("program not found")

// DefaultPath is the store location used when no banana.toml configures
// one.
const DefaultPath = ".banana/store.db"

// Store is a SQLite-backed program and run store.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// ProgramInfo describes one stored program.
type ProgramInfo struct {
	Hash    string
	Name    string
	SavedAt time.Time
}

// RunRecord describes one recorded run of a stored program.
type RunRecord struct {
	ID          string
	ProgramHash string
	Output      string
	Fault       string // empty for a normal halt
	StartedAt   time.Time
}

// Open opens (creating if needed) the store database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	// Create tables if needed
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS programs (
		hash     TEXT PRIMARY KEY,
		name     TEXT NOT NULL,
		img      BLOB NOT NULL,
		saved_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating programs table: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS runs (
		id           TEXT PRIMARY KEY,
		program_hash TEXT NOT NULL,
		output       TEXT NOT NULL,
		fault        TEXT NOT NULL,
		started_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating runs table: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveProgram encodes p and stores it under its content hash, returning
// the hex hash. Saving an identical program again replaces the row (last
// write wins on the name).
func (s *Store) SaveProgram(name string, p *vm.Program) (string, error) {
	data, err := image.Encode(p)
	if err != nil {
		return "", fmt.Errorf("encoding program: %w", err)
	}
	hash := image.FormatHash(image.HashBytes(data))

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(
		"INSERT OR REPLACE INTO programs (hash, name, img, saved_at) VALUES (?, ?, ?, ?)",
		hash, name, data, time.Now().UTC(),
	); err != nil {
		return "", fmt.Errorf("saving program: %w", err)
	}
	return hash, nil
}

// LoadProgram decodes the program stored under hash.
func (s *Store) LoadProgram(hash string) (*vm.Program, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var data []byte
	err := s.db.QueryRow("SELECT img FROM programs WHERE hash = ?", hash).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProgramNotFound
		}
		return nil, fmt.Errorf("querying program: %w", err)
	}
	return image.Decode(data)
}

// ListPrograms returns all stored programs, most recently saved first.
func (s *Store) ListPrograms() ([]ProgramInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query("SELECT hash, name, saved_at FROM programs ORDER BY saved_at DESC, hash")
	if err != nil {
		return nil, fmt.Errorf("listing programs: %w", err)
	}
	defer rows.Close()

	var infos []ProgramInfo
	for rows.Next() {
		var info ProgramInfo
		if err := rows.Scan(&info.Hash, &info.Name, &info.SavedAt); err != nil {
			return nil, fmt.Errorf("scanning program row: %w", err)
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// RecordRun stores the outcome of one run of the program stored under
// programHash and returns the run's id. A nil fault records a normal
// halt.
func (s *Store) RecordRun(programHash, output string, fault error) (string, error) {
	id := uuid.New().String()
	faultText := ""
	if fault != nil {
		faultText = fault.Error()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(
		"INSERT INTO runs (id, program_hash, output, fault, started_at) VALUES (?, ?, ?, ?, ?)",
		id, programHash, output, faultText, time.Now().UTC(),
	); err != nil {
		return "", fmt.Errorf("recording run: %w", err)
	}
	return id, nil
}

// Runs returns the recorded runs for programHash, most recent first.
func (s *Store) Runs(programHash string) ([]RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		"SELECT id, program_hash, output, fault, started_at FROM runs WHERE program_hash = ? ORDER BY started_at DESC, id",
		programHash,
	)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var rec RunRecord
		if err := rows.Scan(&rec.ID, &rec.ProgramHash, &rec.Output, &rec.Fault, &rec.StartedAt); err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
