package store

import (
	"context"
	"sync"

	"github.com/LingoraLabs/lingocache"
)

// MockStore is an in-memory PersistentCache for testing the layers above
// the durable tier without real I/O. Error fields, when set, are returned
// by the corresponding operations.
type MockStore struct {
	mu       sync.Mutex
	payloads map[string]lingocache.Payload

	GetErr   error // returned by GetProject and GetGroup
	SaveErr  error // returned by SaveProject
	ClearErr error // returned by ClearAll

	GetCalls   int // number of GetProject/GetGroup calls
	SaveCalls  int // number of SaveProject calls
	ClearCalls int // number of ClearAll calls
}

// NewMockStore creates an empty mock store.
func NewMockStore() *MockStore {
	return &MockStore{payloads: make(map[string]lingocache.Payload)}
}

func mockKey(project, lang string) string {
	return project + ":" + lang
}

// Seed preloads a payload without counting as a save.
func (m *MockStore) Seed(project, lang string, payload lingocache.Payload) {
	m.mu.Lock()
	m.payloads[mockKey(project, lang)] = payload
	m.mu.Unlock()
}

// Len returns the number of stored pairs.
func (m *MockStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.payloads)
}

// Reset clears call counts and configured errors, keeping stored payloads.
func (m *MockStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetErr = nil
	m.SaveErr = nil
	m.ClearErr = nil
	m.GetCalls = 0
	m.SaveCalls = 0
	m.ClearCalls = 0
}

// GetProject returns a seeded or saved payload.
func (m *MockStore) GetProject(ctx context.Context, project, lang string) (lingocache.Payload, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetCalls++
	if m.GetErr != nil {
		return nil, false, m.GetErr
	}
	payload, ok := m.payloads[mockKey(project, lang)]
	return payload, ok, nil
}

// GetGroup returns one group out of a stored payload.
func (m *MockStore) GetGroup(ctx context.Context, project, group, lang string) (lingocache.Group, bool, error) {
	payload, ok, err := m.GetProject(ctx, project, lang)
	if err != nil || !ok {
		return nil, false, err
	}
	g, ok := payload[group]
	return g, ok, nil
}

// SaveProject stores the payload.
func (m *MockStore) SaveProject(ctx context.Context, project, lang string, payload lingocache.Payload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveCalls++
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.payloads[mockKey(project, lang)] = payload
	return nil
}

// IsCached reports whether a payload is stored for the pair.
func (m *MockStore) IsCached(ctx context.Context, project, lang string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return false, m.GetErr
	}
	_, ok := m.payloads[mockKey(project, lang)]
	return ok, nil
}

// ClearAll drops every stored payload.
func (m *MockStore) ClearAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ClearCalls++
	if m.ClearErr != nil {
		return m.ClearErr
	}
	m.payloads = make(map[string]lingocache.Payload)
	return nil
}

// Verify MockStore implements PersistentCache
var _ PersistentCache = (*MockStore)(nil)
