package store

import (
	"bytes"
	"sync"
)

type MemoryStore struct {
	mu   sync.RWMutex
	data map[Hash][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[Hash][]byte)}
}

func (m *MemoryStore) Put(key Hash, item Serde) error {
	var buf bytes.Buffer
	if err := item.Serialize(&buf); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = buf.Bytes()
	return nil
}

func (m *MemoryStore) Get(key Hash, into Serde) (bool, error) {
	m.mu.RLock()
	data, ok := m.data[key]
	m.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := into.Deserialize(bytes.NewReader(data)); err != nil {
		return false, err
	}
	return true, nil
}

func (m *MemoryStore) Has(key Hash) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[key]
	return ok
}
