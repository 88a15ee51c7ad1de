// Package store persists pose sequences in sqlite.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/pose-replay/internal/monitoring"
)

// ErrNotFound is returned when a sequence id does not exist.
var ErrNotFound = errors.New("sequence not found")

var logf = monitoring.Tagged("Store")

// Store is a sqlite-backed sequence store.
type Store struct {
	*sql.DB
	path string
}

// Open opens (creating if needed) the database at path and migrates it to
// the latest schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	// sqlite allows a single writer; one connection avoids SQLITE_BUSY
	// between the API, the importer and tailsql.
	db.SetMaxOpenConns(1)

	s := &Store{DB: db, path: path}
	if err := s.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	logf("opened %s", path)
	return s, nil
}

// Path returns the database path given to Open.
func (s *Store) Path() string { return s.path }

// connPragmas run on every new connection, so a pool reconnect keeps
// foreign keys and the busy timeout.
var connPragmas = []string{
	"busy_timeout(5000)",
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"temp_store(MEMORY)",
	"foreign_keys(1)",
}

func dsn(path string) string {
	q := make(url.Values)
	q["_pragma"] = connPragmas
	return "file:" + path + "?" + q.Encode()
}
