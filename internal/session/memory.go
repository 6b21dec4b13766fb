package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/joseph-ayodele/inspection-reports/internal/common"
)

// MemoryStore keeps encoded states in process memory.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]memoryEntry
}

type memoryEntry struct {
	payload   []byte
	updatedAt time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]memoryEntry)}
}

func (m *MemoryStore) Get(_ context.Context, id string) (*State, error) {
	m.mu.Lock()
	e, ok := m.data[id]
	m.mu.Unlock()
	if !ok {
		return nil, common.ErrNotFound
	}
	var st State
	if err := json.Unmarshal(e.payload, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (m *MemoryStore) Save(_ context.Context, st *State) error {
	b, err := json.Marshal(st)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.data[st.ID] = memoryEntry{payload: b, updatedAt: st.UpdatedAt}
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.data, id)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, e := range m.data {
		if e.updatedAt.Before(before) {
			delete(m.data, id)
			n++
		}
	}
	return n, nil
}
