//go:build integration

package lock

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func TestRedis_Lease(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	url, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })

	l := NewRedis(client)

	release, err := l.Acquire(ctx, "col-1/2025-02-14", time.Minute)
	require.NoError(t, err)

	_, err = l.Acquire(ctx, "col-1/2025-02-14", time.Minute)
	assert.ErrorIs(t, err, ErrLocked)

	require.NoError(t, release(ctx))
	_, err = l.Acquire(ctx, "col-1/2025-02-14", time.Minute)
	assert.NoError(t, err)
}
