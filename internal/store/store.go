// Package store persists device identity and profile data across process
// restarts. Records are namespaced by application key so multiple configured
// SDK instances in one process cannot collide.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const (
	nameBrowserKey = "browser_key"
	nameUserData   = "user_data"
)

const schema = `
CREATE TABLE IF NOT EXISTS chat_kv (
	app_key    TEXT NOT NULL,
	name       TEXT NOT NULL,
	value      TEXT NOT NULL,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (app_key, name)
)`

// Store is a durable key-value store backed by a local sqlite database.
type Store struct {
	db     *sql.DB
	appKey string
}

// DefaultPath returns the default database location under the user's home
// directory.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".fcrm-chat", "chat.db"), nil
}

// Open opens (creating if needed) the database at path, scoped to appKey.
func Open(path, appKey string) (*Store, error) {
	if appKey == "" {
		return nil, fmt.Errorf("missing app key")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store ping failed: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create store schema: %w", err)
	}
	return &Store{db: db, appKey: appKey}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) put(name, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO chat_kv (app_key, name, value, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (app_key, name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		s.appKey, name, value, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("store write %s: %w", name, err)
	}
	return nil
}

func (s *Store) get(name string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM chat_kv WHERE app_key = ? AND name = ?`, s.appKey, name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("store read %s: %w", name, err)
	}
	return value, nil
}

func (s *Store) delete(name string) error {
	if _, err := s.db.Exec(`DELETE FROM chat_kv WHERE app_key = ? AND name = ?`, s.appKey, name); err != nil {
		return fmt.Errorf("store delete %s: %w", name, err)
	}
	return nil
}

// SaveBrowserKey persists the device identity token.
func (s *Store) SaveBrowserKey(key string) error {
	return s.put(nameBrowserKey, key)
}

// BrowserKey returns the persisted device identity, empty when absent.
func (s *Store) BrowserKey() (string, error) {
	return s.get(nameBrowserKey)
}

// ClearBrowserKey removes the device identity.
func (s *Store) ClearBrowserKey() error {
	return s.delete(nameBrowserKey)
}

// SaveUserData persists the JSON-serialized profile blob.
func (s *Store) SaveUserData(blob string) error {
	return s.put(nameUserData, blob)
}

// UserData returns the persisted profile blob, empty when absent.
func (s *Store) UserData() (string, error) {
	return s.get(nameUserData)
}

// ClearUserData removes the profile blob.
func (s *Store) ClearUserData() error {
	return s.delete(nameUserData)
}

// IsRegistered reports whether a non-empty device identity is persisted.
func (s *Store) IsRegistered() (bool, error) {
	key, err := s.BrowserKey()
	if err != nil {
		return false, err
	}
	return key != "", nil
}

// ClearAll removes both the device identity and the profile blob in a single
// transaction, so a partially cleared store can never look registered.
func (s *Store) ClearAll() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store clear: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM chat_kv WHERE app_key = ?`, s.appKey); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("store clear: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store clear: %w", err)
	}
	return nil
}
