package cache

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const sep = "\x00"

// Memory is a process-local cache bounded by entry count and TTL, used when
// Redis is not configured.
type Memory struct {
	lru *expirable.LRU[string, []byte]

	mu   sync.Mutex
	gens map[string]uint64
}

func NewMemory(size int, ttl time.Duration) *Memory {
	return &Memory{
		lru:  expirable.NewLRU[string, []byte](size, nil, ttl),
		gens: make(map[string]uint64),
	}
}

func entry(ns string, gen uint64, field string) string {
	return ns + sep + strconv.FormatUint(gen, 10) + sep + field
}

func (m *Memory) Generation(_ context.Context, ns string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gens[ns], nil
}

func (m *Memory) Get(_ context.Context, ns string, gen uint64, field string) ([]byte, bool, error) {
	v, ok := m.lru.Get(entry(ns, gen, field))
	return v, ok, nil
}

// Set drops val when ns has been invalidated since gen was read.
func (m *Memory) Set(_ context.Context, ns string, gen uint64, field string, val []byte) error {
	cp := make([]byte, len(val))
	copy(cp, val)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gens[ns] != gen {
		return nil
	}
	m.lru.Add(entry(ns, gen, field), cp)
	return nil
}

func (m *Memory) Invalidate(_ context.Context, ns string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gens[ns]++

	prefix := ns + sep
	for _, k := range m.lru.Keys() {
		if strings.HasPrefix(k, prefix) {
			m.lru.Remove(k)
		}
	}
	return nil
}

// Len reports how many live entries are held.
func (m *Memory) Len() int { return m.lru.Len() }
