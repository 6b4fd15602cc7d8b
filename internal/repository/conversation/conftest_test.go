package conversation

import (
	"context"
	"sync"
	"time"

	"github.com/kailas-cloud/convscore/internal/db"
)

// memStore implements the consumer interface in memory.
type memStore struct {
	mu     sync.Mutex
	kv     map[string][]byte
	ttl    map[string]time.Duration
	hashes map[string]map[string]string
	lists  map[string][]string

	lpopErr error
	hsetErr error
	delErr  error
}

func newMemStore() *memStore {
	return &memStore{
		kv:     map[string][]byte{},
		ttl:    map[string]time.Duration{},
		hashes: map[string]map[string]string{},
		lists:  map[string][]string{},
	}
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.kv[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *memStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kv[key] = value
	if ttl > 0 {
		m.ttl[key] = ttl
	}
	return nil
}

func (m *memStore) Del(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.delErr != nil {
		return m.delErr
	}
	delete(m.kv, key)
	delete(m.hashes, key)
	delete(m.lists, key)
	return nil
}

func (m *memStore) HSet(_ context.Context, key string, fields map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hsetErr != nil {
		return m.hsetErr
	}
	h, ok := m.hashes[key]
	if !ok {
		h = map[string]string{}
		m.hashes[key] = h
	}
	for k, v := range fields {
		h[k] = v
	}
	return nil
}

func (m *memStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]string{}
	for k, v := range m.hashes[key] {
		out[k] = v
	}
	return out, nil
}

func (m *memStore) RPush(_ context.Context, key string, values ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists[key] = append(m.lists[key], values...)
	return nil
}

func (m *memStore) LPop(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lpopErr != nil {
		return "", m.lpopErr
	}
	l := m.lists[key]
	if len(l) == 0 {
		return "", db.ErrKeyNotFound
	}
	m.lists[key] = l[1:]
	return l[0], nil
}

func (m *memStore) LLen(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.lists[key])), nil
}
