package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"

	"github.com/talc-dev/talc/program"
)

var log = commonlog.GetLogger("talc.cache")

// ErrNotFound indicates the requested program is not cached.
var ErrNotFound = errors.New("program not found")

// Store is a sqlite-backed program cache. Keys are caller-chosen template
// identities (typically a path plus a content hash).
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens (creating if needed) a program cache at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	// Busy timeout for concurrent access.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS programs (
		key TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		created INTEGER NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating programs table: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Put stores a compiled program under key, replacing any previous entry.
func (s *Store) Put(key string, p *program.Program) error {
	data, err := MarshalProgram(p)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.Exec(
		"INSERT OR REPLACE INTO programs (key, data, created) VALUES (?, ?, ?)",
		key, data, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("storing program: %w", err)
	}
	log.Debugf("cached %q (%d bytes)", key, len(data))
	return nil
}

// Get loads the program cached under key, or ErrNotFound.
func (s *Store) Get(key string) (*program.Program, error) {
	var data []byte
	err := s.db.QueryRow("SELECT data FROM programs WHERE key = ?", key).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying program: %w", err)
	}
	return UnmarshalProgram(data)
}

// Delete removes the entry under key, if any.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec("DELETE FROM programs WHERE key = ?", key); err != nil {
		return fmt.Errorf("deleting program: %w", err)
	}
	return nil
}

// Keys returns all cached keys, oldest first.
func (s *Store) Keys() ([]string, error) {
	rows, err := s.db.Query("SELECT key FROM programs ORDER BY created")
	if err != nil {
		return nil, fmt.Errorf("querying keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scanning key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}
