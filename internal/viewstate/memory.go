package viewstate

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSweepSchedule runs the expiry sweep every minute.
const DefaultSweepSchedule = "@every 1m"

type memoryEntry struct {
	state     *State
	expiresAt time.Time
}

// MemoryStore keeps state in process memory. Expired entries are invisible
// to Load immediately and removed by a sweep that runs on a cron schedule.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
	logger  *slog.Logger

	cron   *cron.Cron
	closed bool
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *MemoryStore) { m.now = now }
}

// WithLogger sets the logger the sweep reports to.
func WithLogger(l *slog.Logger) MemoryOption {
	return func(m *MemoryStore) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewMemoryStore creates a store whose entries live for ttl after their last
// save. A non-empty schedule starts the background sweep.
func NewMemoryStore(ttl time.Duration, schedule string, opts ...MemoryOption) (*MemoryStore, error) {
	m := &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}

	if schedule != "" {
		if _, err := cron.ParseStandard(schedule); err != nil {
			return nil, fmt.Errorf("parse sweep schedule %q: %w", schedule, err)
		}
		m.cron = cron.New()
		if _, err := m.cron.AddFunc(schedule, m.sweep); err != nil {
			return nil, fmt.Errorf("schedule sweep: %w", err)
		}
		m.cron.Start()
	}
	return m, nil
}

func (m *MemoryStore) expired(e memoryEntry) bool {
	return m.ttl > 0 && !m.now().Before(e.expiresAt)
}

// Load returns a copy of the stored state.
func (m *MemoryStore) Load(_ context.Context, key string) (*State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}
	e, ok := m.entries[key]
	if !ok || m.expired(e) {
		return nil, nil
	}
	return e.state.Clone(), nil
}

// Save stores a copy of s.
func (m *MemoryStore) Save(_ context.Context, key string, s *State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	m.entries[key] = memoryEntry{state: s.Clone(), expiresAt: m.now().Add(m.ttl)}
	return nil
}

// Delete removes key.
func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	delete(m.entries, key)
	return nil
}

// Sweep removes expired entries and returns how many were removed.
func (m *MemoryStore) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for k, e := range m.entries {
		if m.expired(e) {
			delete(m.entries, k)
			removed++
		}
	}
	return removed
}

func (m *MemoryStore) sweep() {
	if n := m.Sweep(); n > 0 {
		m.logger.Debug("view state sweep", "removed", n)
	}
}

// Len returns the number of stored entries, expired ones included.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Close stops the sweep and drops all entries.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	c := m.cron
	m.closed = true
	m.entries = nil
	m.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
	return nil
}
