// Package storage is the key/value backend the state store persists into.
// Values are opaque strings (serialized JSON snapshots) addressed by name.
package storage

import (
	"context"
	"database/sql"
	"sync"
	"time"
)

// Backend is a named-item store. GetItem returns ok=false for a missing name.
type Backend interface {
	GetItem(ctx context.Context, name string) (value string, ok bool, err error)
	SetItem(ctx context.Context, name, value string) error
	RemoveItem(ctx context.Context, name string) error
}

type SQLiteBackend struct {
	db *sql.DB
}

func NewSQLiteBackend(db *sql.DB) *SQLiteBackend {
	return &SQLiteBackend{db: db}
}

func (b *SQLiteBackend) GetItem(ctx context.Context, name string) (string, bool, error) {
	var value string
	err := b.db.QueryRowContext(ctx, "SELECT value FROM kv_storage WHERE name = ?", name).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (b *SQLiteBackend) SetItem(ctx context.Context, name, value string) error {
	_, err := b.db.ExecContext(ctx, `
		INSERT INTO kv_storage (name, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, name, value, time.Now().UTC().Format(time.RFC3339))
	return err
}

func (b *SQLiteBackend) RemoveItem(ctx context.Context, name string) error {
	_, err := b.db.ExecContext(ctx, "DELETE FROM kv_storage WHERE name = ?", name)
	return err
}

// MemoryBackend keeps items in process memory.
type MemoryBackend struct {
	mu    sync.RWMutex
	items map[string]string
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{items: make(map[string]string)}
}

func (b *MemoryBackend) GetItem(ctx context.Context, name string) (string, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.items[name]
	return v, ok, nil
}

func (b *MemoryBackend) SetItem(ctx context.Context, name, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items[name] = value
	return nil
}

func (b *MemoryBackend) RemoveItem(ctx context.Context, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.items, name)
	return nil
}
