package redisstore

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Memory implements the gateway contract in process memory. It backs the
// service and handler tests and is handy for running the API without a store.
type Memory struct {
	mu     sync.RWMutex
	hashes map[string]map[string]string
	expiry map[string]time.Time
}

func NewMemory() *Memory {
	return &Memory{
		hashes: make(map[string]map[string]string),
		expiry: make(map[string]time.Time),
	}
}

func (m *Memory) pruneLocked(key string) {
	if exp, ok := m.expiry[key]; ok && time.Now().After(exp) {
		delete(m.hashes, key)
		delete(m.expiry, key)
	}
}

func (m *Memory) WriteFields(_ context.Context, key string, fields map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruneLocked(key)
	h, ok := m.hashes[key]
	if !ok {
		h = make(map[string]string, len(fields))
		m.hashes[key] = h
	}
	for k, v := range fields {
		h[k] = v
	}
	return nil
}

func (m *Memory) ReadFields(_ context.Context, key string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruneLocked(key)
	out := make(map[string]string, len(m.hashes[key]))
	for k, v := range m.hashes[key] {
		out[k] = v
	}
	return out, nil
}

// ScanKeys supports the prefix patterns the engine uses ("prefix*").
func (m *Memory) ScanKeys(_ context.Context, pattern string) ([]string, error) {
	prefix := strings.TrimSuffix(pattern, "*")
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for key := range m.hashes {
		m.pruneLocked(key)
		if _, ok := m.hashes[key]; ok && strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (m *Memory) ExpireKey(_ context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.hashes[key]; ok {
		m.expiry[key] = time.Now().Add(ttl)
	}
	return nil
}
