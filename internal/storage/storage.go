package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Profile represents a LinkedIn profile found by a search
type Profile struct {
	ProfileURL string
	Name       string
	Snippet    string
	Position   string
}

// Store caches search results in SQLite
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the cache database at dbPath and creates tables
func Open(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// modernc's driver serializes writes; one connection avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return s, nil
}

// createTables creates the required database tables
func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS searches (
		query TEXT PRIMARY KEY,
		cached_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS search_profiles (
		query TEXT NOT NULL,
		rank INTEGER NOT NULL,
		profile_url TEXT NOT NULL,
		name TEXT,
		snippet TEXT,
		position TEXT,
		PRIMARY KEY (query, rank)
	);

	CREATE INDEX IF NOT EXISTS idx_searches_cached_at ON searches(cached_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// NormalizeQuery folds case and whitespace so equivalent searches share a cache entry
func NormalizeQuery(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

// GetSearch returns the cached profiles for query if they are younger than ttl.
// The boolean is false on a miss or an expired entry.
func (s *Store) GetSearch(query string, ttl time.Duration) ([]Profile, bool, error) {
	key := NormalizeQuery(query)

	var cachedAt int64
	err := s.db.QueryRow("SELECT cached_at FROM searches WHERE query = ?", key).Scan(&cachedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up cached search: %w", err)
	}

	if s.now().Sub(time.Unix(0, cachedAt)) >= ttl {
		return nil, false, nil
	}

	rows, err := s.db.Query(`
		SELECT profile_url, name, snippet, position
		FROM search_profiles
		WHERE query = ?
		ORDER BY rank
	`, key)
	if err != nil {
		return nil, false, fmt.Errorf("failed to query cached profiles: %w", err)
	}
	defer rows.Close()

	profiles := []Profile{}
	for rows.Next() {
		var p Profile
		var name, snippet, position sql.NullString
		if err := rows.Scan(&p.ProfileURL, &name, &snippet, &position); err != nil {
			return nil, false, fmt.Errorf("failed to scan cached profile: %w", err)
		}
		p.Name = name.String
		p.Snippet = snippet.String
		p.Position = position.String
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("failed to read cached profiles: %w", err)
	}

	return profiles, true, nil
}

// PutSearch replaces the cached profiles for query
func (s *Store) PutSearch(query string, profiles []Profile) error {
	key := NormalizeQuery(query)

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM search_profiles WHERE query = ?", key); err != nil {
		return fmt.Errorf("failed to clear cached profiles: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO searches (query, cached_at) VALUES (?, ?)
		ON CONFLICT(query) DO UPDATE SET cached_at = excluded.cached_at
	`, key, s.now().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to save search: %w", err)
	}

	for i, p := range profiles {
		_, err := tx.Exec(`
			INSERT INTO search_profiles (query, rank, profile_url, name, snippet, position)
			VALUES (?, ?, ?, ?, ?, ?)
		`, key, i, p.ProfileURL, p.Name, p.Snippet, p.Position)
		if err != nil {
			return fmt.Errorf("failed to save profile: %w", err)
		}
	}

	return tx.Commit()
}

// CleanupExpired removes cache entries older than ttl and returns how many were dropped
func (s *Store) CleanupExpired(ttl time.Duration) (int64, error) {
	cutoff := s.now().Add(-ttl).UnixNano()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		DELETE FROM search_profiles
		WHERE query IN (SELECT query FROM searches WHERE cached_at < ?)
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup cached profiles: %w", err)
	}

	res, err := tx.Exec("DELETE FROM searches WHERE cached_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup searches: %w", err)
	}
	n, _ := res.RowsAffected()

	return n, tx.Commit()
}

// GetStats returns cache statistics
func (s *Store) GetStats() (map[string]int, error) {
	stats := make(map[string]int)

	var searches, profiles int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM searches").Scan(&searches); err != nil {
		return nil, fmt.Errorf("failed to count searches: %w", err)
	}
	if err := s.db.QueryRow("SELECT COUNT(*) FROM search_profiles").Scan(&profiles); err != nil {
		return nil, fmt.Errorf("failed to count profiles: %w", err)
	}

	stats["cached_searches"] = searches
	stats["cached_profiles"] = profiles
	return stats, nil
}
