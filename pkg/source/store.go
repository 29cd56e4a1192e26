// CLAUDE:SUMMARY SQLite store: collection endpoint registry (URL overrides, availability checks) and time-bounded raw-fetch cache.
package source

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Endpoint represents a row from the endpoints table.
type Endpoint struct {
	Collection string
	URL        string
	LastCheck  *int64
	LastStatus *int
	LastError  *string
	UpdatedAt  int64
}

// Store manages the endpoints and fetch_cache SQLite tables.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// OpenStore opens (or creates) the SQLite database at path and ensures both
// tables exist.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	ddl := []string{
		`CREATE TABLE IF NOT EXISTS endpoints (
			collection   TEXT PRIMARY KEY,
			url          TEXT NOT NULL,
			last_check   INTEGER,
			last_status  INTEGER,
			last_error   TEXT,
			updated_at   INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS fetch_cache (
			url          TEXT PRIMARY KEY,
			body         BLOB NOT NULL,
			fetched_at   INTEGER NOT NULL
		)`,
	}
	for _, stmt := range ddl {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("create store tables: %w", err)
		}
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the SQLite connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Seed inserts one row per collection (INSERT OR IGNORE, so URL overrides
// made with SetURL survive restarts).
func (s *Store) Seed(urls map[string]string) error {
	const q = `INSERT OR IGNORE INTO endpoints (collection, url, updated_at) VALUES (?, ?, ?)`

	now := s.now().Unix()
	for collection, url := range urls {
		if _, err := s.db.Exec(q, collection, url, now); err != nil {
			return fmt.Errorf("seed %s: %w", collection, err)
		}
	}
	return nil
}

// ErrUnknownCollection is returned for collections absent from the endpoints table.
var ErrUnknownCollection = errors.New("unknown collection")

// GetURL returns the current URL for a collection.
func (s *Store) GetURL(collection string) (string, error) {
	var url string
	err := s.db.QueryRow(`SELECT url FROM endpoints WHERE collection = ?`, collection).Scan(&url)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
	}
	if err != nil {
		return "", fmt.Errorf("get url for %s: %w", collection, err)
	}
	return url, nil
}

// SetURL updates the URL for a collection and records the change timestamp.
func (s *Store) SetURL(collection, url string) error {
	res, err := s.db.Exec(
		`UPDATE endpoints SET url = ?, updated_at = ? WHERE collection = ?`,
		url, s.now().Unix(), collection,
	)
	if err != nil {
		return fmt.Errorf("set url for %s: %w", collection, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
	}
	return nil
}

// UpdateCheck persists the result of an availability check.
func (s *Store) UpdateCheck(collection string, status int, checkErr string) error {
	var errPtr *string
	if checkErr != "" {
		errPtr = &checkErr
	}
	_, err := s.db.Exec(
		`UPDATE endpoints SET last_check = ?, last_status = ?, last_error = ? WHERE collection = ?`,
		s.now().Unix(), status, errPtr, collection,
	)
	if err != nil {
		return fmt.Errorf("update check for %s: %w", collection, err)
	}
	return nil
}

// ListEndpoints returns all rows ordered by collection.
func (s *Store) ListEndpoints() ([]Endpoint, error) {
	rows, err := s.db.Query(`SELECT collection, url, last_check, last_status, last_error, updated_at
		FROM endpoints ORDER BY collection`)
	if err != nil {
		return nil, fmt.Errorf("list endpoints: %w", err)
	}
	defer rows.Close()

	var eps []Endpoint
	for rows.Next() {
		var ep Endpoint
		if err := rows.Scan(&ep.Collection, &ep.URL, &ep.LastCheck, &ep.LastStatus, &ep.LastError, &ep.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan endpoint: %w", err)
		}
		eps = append(eps, ep)
	}
	return eps, rows.Err()
}

// Cached returns the body stored for url if it is younger than ttl.
func (s *Store) Cached(url string, ttl time.Duration) ([]byte, bool, error) {
	var body []byte
	var fetchedAt int64
	err := s.db.QueryRow(`SELECT body, fetched_at FROM fetch_cache WHERE url = ?`, url).Scan(&body, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read cache for %s: %w", url, err)
	}
	if s.now().Sub(time.Unix(fetchedAt, 0)) >= ttl {
		return nil, false, nil
	}
	return body, true, nil
}

// PutCached stores a raw response body for url.
func (s *Store) PutCached(url string, body []byte) error {
	_, err := s.db.Exec(
		`INSERT INTO fetch_cache (url, body, fetched_at) VALUES (?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET body = excluded.body, fetched_at = excluded.fetched_at`,
		url, body, s.now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("write cache for %s: %w", url, err)
	}
	return nil
}

// PurgeCache deletes cache entries older than ttl and returns how many went.
func (s *Store) PurgeCache(ttl time.Duration) (int64, error) {
	cutoff := s.now().Add(-ttl).Unix()
	res, err := s.db.Exec(`DELETE FROM fetch_cache WHERE fetched_at <= ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge cache: %w", err)
	}
	return res.RowsAffected()
}
