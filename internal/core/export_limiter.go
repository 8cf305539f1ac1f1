package core

// export_limiter.go bounds how many CSV exports stream at once.
//
// Exports page through the whole filtered view, so each one holds a
// database connection for its duration. A semaphore caps them; a request
// that cannot get a slot within maxWait fails with ErrTooManyExports.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTooManyExports is returned when every export slot stays occupied for
// the whole wait.
var ErrTooManyExports = errors.New("too many concurrent exports, please try again later")

// Limiter defaults.
const (
	DefaultMaxConcurrentExports = 4
	DefaultExportWait           = 5 * time.Second
)

// ExportLimiter is a counting semaphore for export requests.
type ExportLimiter struct {
	slots   chan struct{}
	maxWait time.Duration

	mu     sync.Mutex
	active int
}

// NewExportLimiter allows at most maxConcurrent simultaneous exports.
// Non-positive arguments select the defaults.
func NewExportLimiter(maxConcurrent int, maxWait time.Duration) *ExportLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentExports
	}
	if maxWait <= 0 {
		maxWait = DefaultExportWait
	}
	return &ExportLimiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire waits for a slot. Callers must Release a slot they acquired.
func (l *ExportLimiter) Acquire(ctx context.Context) error {
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrTooManyExports
	}
}

// Release frees a slot taken by Acquire.
func (l *ExportLimiter) Release() {
	l.mu.Lock()
	l.active--
	l.mu.Unlock()
	<-l.slots
}

// Active returns the number of exports holding a slot.
func (l *ExportLimiter) Active() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// Capacity returns the slot count.
func (l *ExportLimiter) Capacity() int { return cap(l.slots) }

// Drain blocks until no export holds a slot or ctx is done. Used during
// shutdown so running downloads are not cut off.
func (l *ExportLimiter) Drain(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.Active() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
