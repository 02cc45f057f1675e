// Package authstore keeps the data hub credentials and the reply blacklist in
// a small SQLite key/value table.
package authstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"datahunter/pkg/log"
)

// Keys of the store.
const (
	KeyAccess    = "access"
	KeyRefresh   = "refresh"
	KeyBlacklist = "x_blacklist"
)

// Change describes one key written or removed.
type Change struct {
	Key     string
	Value   string
	Present bool
}

// Store handles all credential reads and writes.
type Store struct {
	db *sql.DB

	mu        sync.Mutex
	listeners map[int]func(Change)
	nextID    int
}

// Open creates the store at dbPath. ":memory:" keeps everything in memory.
func Open(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	// a single connection keeps an in-memory database alive and serializes writes
	db.SetMaxOpenConns(1)

	s := &Store{db: db, listeners: make(map[int]func(Change))}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`)
	if err != nil {
		return fmt.Errorf("migrate store: %w", err)
	}
	return nil
}

// Get returns the value of key and whether it is present.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, true, nil
}

// Set writes key and notifies listeners.
func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, key, value)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	s.emit(Change{Key: key, Value: value, Present: true})
	return nil
}

// Remove deletes keys and notifies listeners for the ones that existed.
func (s *Store) Remove(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		res, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key)
		if err != nil {
			return fmt.Errorf("remove %s: %w", key, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			s.emit(Change{Key: key})
		}
	}
	return nil
}

// OnChange registers fn for every later write. The returned func removes it.
func (s *Store) OnChange(fn func(Change)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Store) emit(c Change) {
	s.mu.Lock()
	fns := make([]func(Change), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(c)
	}
}

// SetTokens stores both credentials.
func (s *Store) SetTokens(ctx context.Context, access, refresh string) error {
	if err := s.Set(ctx, KeyAccess, access); err != nil {
		return err
	}
	if refresh == "" {
		return nil
	}
	return s.Set(ctx, KeyRefresh, refresh)
}

// ClearTokens removes both credentials.
func (s *Store) ClearTokens(ctx context.Context) error {
	return s.Remove(ctx, KeyAccess, KeyRefresh)
}

// Access returns the bearer token, "" when none is stored.
func (s *Store) Access(ctx context.Context) string {
	v, _, err := s.Get(ctx, KeyAccess)
	if err != nil {
		log.GlobalWarnCtx(ctx, "read access token failed", "error", err)
	}
	return v
}

// HasAccount reports whether an access token is stored.
func (s *Store) HasAccount() bool {
	return s.Access(context.Background()) != ""
}

// Blacklist returns the lowercased author handles replies skip.
func (s *Store) Blacklist() []string {
	raw, ok, err := s.Get(context.Background(), KeyBlacklist)
	if err != nil {
		log.GlobalWarn("read blacklist failed", "error", err)
		return nil
	}
	if !ok {
		return nil
	}
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		log.GlobalWarn("stored blacklist is malformed", "error", err)
		return nil
	}
	return list
}

// SetBlacklist stores handles trimmed and lowercased, dropping empty ones.
func (s *Store) SetBlacklist(ctx context.Context, handles []string) error {
	list := make([]string, 0, len(handles))
	for _, h := range handles {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" {
			list = append(list, h)
		}
	}
	raw, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encode blacklist: %w", err)
	}
	return s.Set(ctx, KeyBlacklist, string(raw))
}
