package store

import (
	"context"
	"sync"
)

// Memory is a map-backed store used in tests and dry runs.
type Memory struct {
	mu     sync.Mutex
	tables map[string]map[string]string
}

func NewMemory() *Memory {
	return &Memory{tables: make(map[string]map[string]string)}
}

func (s *Memory) key(profile, table string) string {
	return profile + "/" + table
}

func (s *Memory) Get(_ context.Context, profile, table string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := map[string]string{}
	for k, v := range s.tables[s.key(profile, table)] {
		out[k] = v
	}
	return out, nil
}

func (s *Memory) Put(_ context.Context, profile, table string, m map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := map[string]string{}
	for k, v := range m {
		cp[k] = v
	}
	s.tables[s.key(profile, table)] = cp
	return nil
}

func (s *Memory) DeleteKey(_ context.Context, profile, table, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.tables[s.key(profile, table)], key)
	return nil
}
