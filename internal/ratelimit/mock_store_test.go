package ratelimit_test

import (
	"context"
	"sync"

	"github.com/serroba/ratelimit-go/internal/ratelimit"
)

// mockStore is a map-backed ratelimit.Store with injectable errors.
type mockStore struct {
	mu      sync.Mutex
	records map[string]ratelimit.Record
	getErr  error
	setErr  error
	gets    int
	sets    int
}

func newMockStore() *mockStore {
	return &mockStore{records: make(map[string]ratelimit.Record)}
}

func (m *mockStore) Get(_ context.Context, key string) (ratelimit.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.gets++

	if m.getErr != nil {
		return ratelimit.Record{}, m.getErr
	}

	record, ok := m.records[key]
	if !ok {
		return ratelimit.Record{}, ratelimit.ErrNotFound
	}

	return record, nil
}

func (m *mockStore) Set(_ context.Context, key string, record ratelimit.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sets++

	if m.setErr != nil {
		return m.setErr
	}

	m.records[key] = record

	return nil
}

func (m *mockStore) record(key string) (ratelimit.Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.records[key]

	return record, ok
}

func (m *mockStore) calls() (gets, sets int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.gets, m.sets
}
