package state

import "sync"

// MemStore is an in-memory Provider.
type MemStore struct {
	mu      sync.RWMutex
	entries map[string]SiteState
}

func NewMemStore() *MemStore {
	return &MemStore{entries: make(map[string]SiteState)}
}

func (m *MemStore) Get(host string) (SiteState, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.entries[host]
	return s, ok, nil
}

func (m *MemStore) Put(host string, s SiteState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[host] = s
	return nil
}

func (m *MemStore) Remove(host string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, host)
	return nil
}

func (m *MemStore) Oldest() (string, SiteState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var oldestHost string
	var oldest SiteState
	for host, s := range m.entries {
		if s.ExpireTime == 0 {
			continue
		}
		if oldestHost == "" || s.ExpireTime < oldest.ExpireTime ||
			(s.ExpireTime == oldest.ExpireTime && host < oldestHost) {
			oldestHost, oldest = host, s
		}
	}
	return oldestHost, oldest, nil
}

func (m *MemStore) All(cb func(string, SiteState)) error {
	m.mu.RLock()
	snapshot := make(map[string]SiteState, len(m.entries))
	for host, s := range m.entries {
		snapshot[host] = s
	}
	m.mu.RUnlock()
	for host, s := range snapshot {
		cb(host, s)
	}
	return nil
}

func (m *MemStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]SiteState)
	return nil
}
