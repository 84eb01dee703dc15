// Package cache implements the file cache pass-through (spec.md §2, §6.5:
// "cache_directory ... if absent, cache pass-through is disabled") plus
// an optional MySQL-backed index of cached files, adapted from the
// teacher's internal/database/database.go connection idiom
// (sql.Open + Ping, fmt.Errorf wrapping) repurposed from account lookups
// to a path/size/sha256/downloaded_at index.
package cache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"reborn-client/internal/rerrors"
)

// Store writes completed downloads to disk as directory/server/<base
// filename>; files are not separated into per-type subdirectories. It
// optionally records an index row in MySQL when a DSN is configured
// (spec.md §6.5, §4.5's "hand bytes to cache pass-through").
type Store struct {
	directory string
	index     *sql.DB
}

// New builds a Store. If directory is empty, the returned Store's Write
// is a no-op (cache pass-through disabled, spec.md §6.5). If dsn is
// non-empty, an index table is used; dsn failures fall back to
// filesystem-only rather than refusing to start, since the index is a
// convenience, not a correctness requirement.
func New(directory, dsn string) (*Store, error) {
	if directory != "" {
		if err := os.MkdirAll(directory, 0o755); err != nil {
			return nil, rerrors.Wrap(rerrors.Fatal, "cache.New", rerrors.ErrCacheDirNotWritable)
		}
	}

	s := &Store{directory: directory}
	if dsn == "" {
		return s, nil
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return s, nil
	}
	if err := db.Ping(); err != nil {
		return s, nil
	}
	if _, err := db.Exec(indexSchema); err != nil {
		return s, nil
	}
	s.index = db
	return s, nil
}

const indexSchema = `
CREATE TABLE IF NOT EXISTS cached_files (
	path VARCHAR(512) PRIMARY KEY,
	size BIGINT NOT NULL,
	sha256 CHAR(64) NOT NULL,
	downloaded_at DATETIME NOT NULL
)`

// Write persists content under server/filename, recording an index row
// if MySQL indexing is configured. It returns the on-disk path, or an
// empty path if the cache is disabled.
func (s *Store) Write(server, filename string, content []byte) (string, error) {
	if s.directory == "" {
		return "", nil
	}

	dir := filepath.Join(s.directory, server)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("cache.Write: %w", err)
	}
	path := filepath.Join(dir, filepath.Base(filename))
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("cache.Write: %w", err)
	}

	if s.index != nil {
		sum := sha256.Sum256(content)
		_, _ = s.index.ExecContext(context.Background(),
			`REPLACE INTO cached_files (path, size, sha256, downloaded_at) VALUES (?, ?, ?, ?)`,
			path, len(content), hex.EncodeToString(sum[:]), time.Now().UTC())
	}

	return path, nil
}

// Close releases the index connection, if any.
func (s *Store) Close() error {
	if s.index != nil {
		return s.index.Close()
	}
	return nil
}
