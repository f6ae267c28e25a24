package badger

import (
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indago/internal/interfaces"
	"github.com/timshannon/badgerhold/v4"
)

// keyValuePair is the stored form of one KV entry.
type keyValuePair struct {
	Key       string    `json:"key" badgerhold:"key"`
	Value     string    `json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// KVStorage implements the KeyValueStorage interface for Badger.
// Keys are case-insensitive.
type KVStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewKVStorage creates a new KVStorage instance
func NewKVStorage(db *BadgerDB, logger arbor.ILogger) interfaces.KeyValueStorage {
	return &KVStorage{
		db:     db,
		logger: logger,
	}
}

func (s *KVStorage) normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// Get retrieves a value by key
func (s *KVStorage) Get(key string) (string, error) {
	var pair keyValuePair
	err := s.db.Store().Get(s.normalizeKey(key), &pair)
	if err == badgerhold.ErrNotFound {
		return "", interfaces.ErrKeyNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get key: %w", err)
	}
	return pair.Value, nil
}

// Set inserts or updates a key/value pair
func (s *KVStorage) Set(key, value string) error {
	normalized := s.normalizeKey(key)
	now := time.Now().UTC()

	pair := keyValuePair{
		Key:       normalized,
		Value:     value,
		CreatedAt: now,
		UpdatedAt: now,
	}

	// Preserve CreatedAt on update
	var existing keyValuePair
	if err := s.db.Store().Get(normalized, &existing); err == nil {
		pair.CreatedAt = existing.CreatedAt
	}

	if err := s.db.Store().Upsert(normalized, &pair); err != nil {
		return fmt.Errorf("failed to set key/value: %w", err)
	}
	return nil
}

// Delete removes a key/value pair
func (s *KVStorage) Delete(key string) error {
	err := s.db.Store().Delete(s.normalizeKey(key), &keyValuePair{})
	if err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to delete key: %w", err)
	}
	return nil
}
