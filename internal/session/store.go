// Package session keeps transient per-user state between requests: the
// in-progress landing edits of a document journey and the last validated
// upload.
//
// Everything is stored through [Store] as one JSON blob per
// (user, contact, key). Callers read, merge and write back the whole blob;
// there is no locking, so the last writer wins.
package session

import (
	"context"
	"encoding/json"
	"sync"
)

// Store is a key/value store partitioned by user and contact. ReadAllFor
// returns nil, nil when nothing has been written for the key.
type Store interface {
	ReadAllFor(ctx context.Context, userID, contactID, key string) (json.RawMessage, error)
	WriteAllFor(ctx context.Context, userID, contactID, key string, data json.RawMessage) error
	DeleteAllFor(ctx context.Context, userID, contactID, key string) error
}

// MemoryStore is an in-process Store used by tests and the CLI.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[memoryKey][]byte
}

type memoryKey struct {
	userID, contactID, key string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[memoryKey][]byte)}
}

func (m *MemoryStore) ReadAllFor(_ context.Context, userID, contactID, key string) (json.RawMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.data[memoryKey{userID, contactID, key}]
	if !ok {
		return nil, nil
	}
	return append(json.RawMessage(nil), b...), nil
}

func (m *MemoryStore) WriteAllFor(_ context.Context, userID, contactID, key string, data json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[memoryKey{userID, contactID, key}] = append([]byte(nil), data...)
	return nil
}

func (m *MemoryStore) DeleteAllFor(_ context.Context, userID, contactID, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, memoryKey{userID, contactID, key})
	return nil
}
