/*
Package lock serializes closings of the same collector day.

PURPOSE:
  A versement may be committed only once per (collector, date). Two
  requests racing for the same day must not both reach the backend. The
  service takes a lease on the closing key before reading the snapshot and
  releases it after the commit.

  - Memory: single-process map of held keys
  - Redis:  SET NX PX with a token, released by compare-and-delete

Stores still enforce the uniqueness themselves; the lock only turns the
race into an early AlreadyInProgress.
*/
package lock

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrLocked is returned when the key is already held.
var ErrLocked = errors.New("lock already held")

// Release frees a lease. It is safe to call more than once.
type Release func(ctx context.Context) error

type Locker interface {
	// Acquire takes the key for at most ttl. Returns ErrLocked when held.
	Acquire(ctx context.Context, key string, ttl time.Duration) (Release, error)
}

// =============================================================================
// MEMORY
// =============================================================================

type Memory struct {
	mu   sync.Mutex
	held map[string]time.Time // key -> expiry
	now  func() time.Time
}

func NewMemory() *Memory {
	return &Memory{held: make(map[string]time.Time), now: time.Now}
}

func (m *Memory) Acquire(_ context.Context, key string, ttl time.Duration) (Release, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if exp, ok := m.held[key]; ok && now.Before(exp) {
		return nil, ErrLocked
	}
	expiry := now.Add(ttl)
	m.held[key] = expiry

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			// A lease that expired and was retaken belongs to someone else.
			if m.held[key].Equal(expiry) {
				delete(m.held, key)
			}
		})
		return nil
	}, nil
}

// Held reports whether key is currently leased.
func (m *Memory) Held(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	exp, ok := m.held[key]
	return ok && m.now().Before(exp)
}
