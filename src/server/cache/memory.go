package cache

import (
	"context"
	"path"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

type memoryEntry struct {
	value   []byte
	expires time.Time
}

// Memory is an in-process Store. Expired entries are dropped lazily on access
// and on pattern deletes.
type Memory struct {
	mu       sync.Mutex
	entries  map[string]memoryEntry
	hits     int64
	misses   int64
	commands int64
	now      func() time.Time
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands++

	e, ok := m.entries[key]
	if ok && !m.now().Before(e.expires) {
		delete(m.entries, key)
		ok = false
	}
	if !ok {
		m.misses++
		return nil, false, nil
	}
	m.hits++
	return append([]byte(nil), e.value...), true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands++

	m.entries[key] = memoryEntry{
		value:   append([]byte(nil), value...),
		expires: m.now().Add(ttl),
	}
	return nil
}

func (m *Memory) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands++

	for _, k := range keys {
		delete(m.entries, k)
	}
	return nil
}

func (m *Memory) DeletePattern(_ context.Context, pattern string) (int, error) {
	if _, err := path.Match(pattern, ""); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands++

	now := m.now()
	removed := 0
	for k, e := range m.entries {
		if ok, _ := path.Match(pattern, k); ok {
			delete(m.entries, k)
			if now.Before(e.expires) {
				removed++
			}
		}
	}
	return removed, nil
}

func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands++
	m.entries = make(map[string]memoryEntry)
	return nil
}

func (m *Memory) Stats(_ context.Context) (Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var size uint64
	for k, e := range m.entries {
		size += uint64(len(k) + len(e.value))
	}
	return Stats{
		ConnectedClients:  1,
		UsedMemory:        humanize.Bytes(size),
		KeyspaceHits:      m.hits,
		KeyspaceMisses:    m.misses,
		CommandsProcessed: m.commands,
	}, nil
}

// Optimize is a no-op: the memory store has no eviction policy to tune.
func (m *Memory) Optimize(_ context.Context) error { return nil }

// Len reports the number of live entries.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	n := 0
	for _, e := range m.entries {
		if now.Before(e.expires) {
			n++
		}
	}
	return n
}
