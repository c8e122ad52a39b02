package db

import (
	"database/sql"
	"time"

	"github.com/nafisfuad/coursedeck/internal/errors"
)

// KV is the SQLite-backed key-value store for personalization entries.
// It satisfies prefs.KeyValueStore.
type KV struct {
	db *sql.DB
}

// NewKV wraps an initialized database in a KV store.
func NewKV(db *sql.DB) *KV {
	return &KV{db: db}
}

// Get returns the stored value for key, with found=false when absent.
func (kv *KV) Get(key string) ([]byte, bool, error) {
	var value string
	err := kv.db.QueryRow(`SELECT value FROM prefs WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.NewInternal(err)
	}
	return []byte(value), true, nil
}

// Set stores value under key, replacing any prior entry.
func (kv *KV) Set(key string, value []byte) error {
	_, err := kv.db.Exec(`
		INSERT INTO prefs (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, string(value), time.Now().Unix())
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// Delete removes the entry for key. Deleting a missing key is not an error.
func (kv *KV) Delete(key string) error {
	if _, err := kv.db.Exec(`DELETE FROM prefs WHERE key = ?`, key); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}
