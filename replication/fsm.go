package replication

import (
	"sync"

	"github.com/krantius/elkd/proto"
)

// Store is implemented by the client representing the underlying data store
type Store interface {
	Set(key string, val []byte)
	Delete(key string)
}

func apply(fsm Store, c proto.Command) {
	if fsm == nil {
		return
	}

	switch c.Op {
	case proto.Set:
		fsm.Set(c.Key, c.Val)
	case proto.Delete:
		fsm.Delete(c.Key)
	}
}

// MemoryStore is a Store kept in a map
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (m *MemoryStore) Set(key string, val []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[key] = val
}

func (m *MemoryStore) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, key)
}

func (m *MemoryStore) Get(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[key]
	return v, ok
}

func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.data)
}
