package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_ExclusiveUntilReleased(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	// GIVEN: a held key
	release, err := m.Acquire(ctx, "col-1/2025-02-14", time.Minute)
	require.NoError(t, err)

	// WHEN: a second caller tries the same key
	_, err = m.Acquire(ctx, "col-1/2025-02-14", time.Minute)

	// THEN: it is refused, other keys are not affected
	assert.ErrorIs(t, err, ErrLocked)
	_, err = m.Acquire(ctx, "col-2/2025-02-14", time.Minute)
	assert.NoError(t, err)

	require.NoError(t, release(ctx))
	require.NoError(t, release(ctx), "double release is harmless")
	assert.False(t, m.Held("col-1/2025-02-14"))

	_, err = m.Acquire(ctx, "col-1/2025-02-14", time.Minute)
	assert.NoError(t, err)
}

func TestMemory_ExpiredLeaseCanBeRetaken(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Date(2025, 2, 14, 17, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	stale, err := m.Acquire(ctx, "k", time.Second)
	require.NoError(t, err)

	now = now.Add(2 * time.Second)
	_, err = m.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)

	// The stale holder must not free the new lease.
	require.NoError(t, stale(ctx))
	assert.True(t, m.Held("k"))
}

func TestMemory_OneWinnerUnderContention(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.Acquire(ctx, "same", time.Minute); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}
