package state

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "github.com/glebarez/go-sqlite"
)

// SQLiteStore is a Provider persisting state in an SQLite database.
type SQLiteStore struct {
	db         *sql.DB
	writeMutex *sync.Mutex
}

// NewSQLiteStore opens (and if needed creates) the state db with the given filename.
// If file name is empty, a new in-memory db is opened.
func NewSQLiteStore(filename string) (*SQLiteStore, error) {
	if filename == "" {
		filename = "file::memory:?cache=shared"
	}
	db, err := sql.Open("sqlite", filename)
	if err != nil {
		return nil, fmt.Errorf("Could not open state db %s: %w", filename, err)
	}
	for _, stmt := range []string{
		`CREATE TABLE IF NOT EXISTS site_state (
			host TEXT PRIMARY KEY,
			expires INTEGER,
			value TEXT
		)`,
		"CREATE INDEX IF NOT EXISTS expires_idx ON site_state (expires)",
		"PRAGMA journal_mode=WAL",
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("Could not initialize state db %s: %w", filename, err)
		}
	}
	return &SQLiteStore{
		db:         db,
		writeMutex: &sync.Mutex{},
	}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Get(host string) (SiteState, bool, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM site_state WHERE host = ?", host).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return SiteState{}, false, nil
	}
	if err != nil {
		return SiteState{}, false, err
	}
	return ParseSiteState(value), true, nil
}

func (s *SQLiteStore) Put(host string, st SiteState) error {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	_, err := s.db.Exec("INSERT OR REPLACE INTO site_state (host, expires, value) VALUES (?, ?, ?)",
		host, st.ExpireTime, st.String())
	return err
}

func (s *SQLiteStore) Remove(host string) error {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	_, err := s.db.Exec("DELETE FROM site_state WHERE host = ?", host)
	return err
}

// Oldest returns the entry with the earliest expiry.
// The expiry is taken from the indexed column, so that an entry whose
// value does not parse still expires.
func (s *SQLiteStore) Oldest() (string, SiteState, error) {
	var host, value string
	var expires int64
	err := s.db.QueryRow(
		"SELECT host, expires, value FROM site_state WHERE expires > 0 ORDER BY expires ASC, host ASC LIMIT 1",
	).Scan(&host, &expires, &value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", SiteState{}, nil
	}
	if err != nil {
		return "", SiteState{}, err
	}
	st := ParseSiteState(value)
	st.ExpireTime = expires
	return host, st, nil
}

func (s *SQLiteStore) All(cb func(string, SiteState)) error {
	rows, err := s.db.Query("SELECT host, value FROM site_state ORDER BY host")
	if err != nil {
		return err
	}
	type entry struct {
		host  string
		value string
	}
	// rows are collected first so that the callback may use the store
	entries := make([]entry, 0)
	for rows.Next() {
		var e entry
		if err := rows.Scan(&e.host, &e.value); err != nil {
			rows.Close()
			return err
		}
		entries = append(entries, e)
	}
	if err := rows.Close(); err != nil {
		return err
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for _, e := range entries {
		cb(e.host, ParseSiteState(e.value))
	}
	return nil
}

func (s *SQLiteStore) Clear() error {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	_, err := s.db.Exec("DELETE FROM site_state")
	return err
}
