package requestlog

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxEntries is the capacity used when none is given.
const DefaultMaxEntries = 1000

// Logger records requests.
type Logger interface {
	Log(e *Entry)
}

// Store is a Logger that can also be queried.
type Store interface {
	Logger
	Get(id string) (*Entry, bool)
	List(f *Filter) []*Entry
	Count() int
	Clear()
}

// Filter selects entries in List. Zero fields match everything.
type Filter struct {
	Method string
	// Path matches entries whose path starts with it.
	Path   string
	Route  string
	Status int
	// Misses selects only requests that matched no route.
	Misses bool
	Limit  int
	Offset int
}

// Memory is a Store backed by a ring buffer.
type Memory struct {
	mu      sync.RWMutex
	entries []*Entry
	next    int
	full    bool
	byID    map[string]*Entry
}

// NewMemory creates a Memory holding at most maxEntries entries.
func NewMemory(maxEntries int) *Memory {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Memory{
		entries: make([]*Entry, maxEntries),
		byID:    make(map[string]*Entry, maxEntries),
	}
}

// Capacity returns the maximum number of entries kept.
func (m *Memory) Capacity() int {
	return len(m.entries)
}

// Log stores e, evicting the oldest entry when full. A missing ID or
// timestamp is filled in.
func (m *Memory) Log(e *Entry) {
	if e == nil {
		return
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if old := m.entries[m.next]; old != nil {
		delete(m.byID, old.ID)
	}
	m.entries[m.next] = e
	m.byID[e.ID] = e
	m.next++
	if m.next == len(m.entries) {
		m.next = 0
		m.full = true
	}
}

// Get returns the entry with the given ID.
func (m *Memory) Get(id string) (*Entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.byID[id]
	return e, ok
}

// List returns matching entries, newest first.
func (m *Memory) List(f *Filter) []*Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := m.countLocked()
	out := make([]*Entry, 0, min(n, 64))
	skipped := 0
	for i := 0; i < n; i++ {
		idx := (m.next - 1 - i + len(m.entries)) % len(m.entries)
		e := m.entries[idx]
		if !matches(e, f) {
			continue
		}
		if f != nil && skipped < f.Offset {
			skipped++
			continue
		}
		out = append(out, e)
		if f != nil && f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out
}

// Count returns the number of stored entries.
func (m *Memory) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.countLocked()
}

func (m *Memory) countLocked() int {
	if m.full {
		return len(m.entries)
	}
	return m.next
}

// Clear removes every entry.
func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.entries)
	clear(m.byID)
	m.next = 0
	m.full = false
}

func matches(e *Entry, f *Filter) bool {
	if f == nil {
		return true
	}
	if f.Method != "" && !strings.EqualFold(e.Method, f.Method) {
		return false
	}
	if f.Path != "" && !strings.HasPrefix(e.Path, f.Path) {
		return false
	}
	if f.Route != "" && e.Route != f.Route {
		return false
	}
	if f.Status != 0 && e.Status != f.Status {
		return false
	}
	if f.Misses && e.Route != "" {
		return false
	}
	return true
}
