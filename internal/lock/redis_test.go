//go:build integration

package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	endpoint, err := c.Endpoint(ctx, "")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedis_Exclusive(t *testing.T) {
	l := NewRedis(startRedis(t), 5*time.Second)
	require.NoError(t, l.Ping(context.Background()))

	var (
		inside  atomic.Int32
		overlap atomic.Bool
		wg      sync.WaitGroup
	)
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			release, err := l.Lock(ctx, "order:7")
			if !assert.NoError(t, err) {
				return
			}
			defer release()

			if inside.Add(1) > 1 {
				overlap.Store(true)
			}
			time.Sleep(5 * time.Millisecond)
			inside.Add(-1)
		}()
	}
	wg.Wait()
	assert.False(t, overlap.Load())
}

func TestRedis_ReleaseKeepsForeignToken(t *testing.T) {
	client := startRedis(t)
	l := NewRedis(client, 50*time.Millisecond)
	ctx := context.Background()

	release, err := l.Lock(ctx, "order:8")
	require.NoError(t, err)

	// Let the lock expire and another holder take it.
	time.Sleep(100 * time.Millisecond)
	release2, err := l.Lock(ctx, "order:8")
	require.NoError(t, err)
	defer release2()

	release()
	val, err := client.Get(ctx, "checkout:lock:order:8").Result()
	require.NoError(t, err)
	assert.NotEmpty(t, val)
}

func TestRedis_ContextDone(t *testing.T) {
	l := NewRedis(startRedis(t), 5*time.Second)

	release, err := l.Lock(context.Background(), "order:9")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "order:9")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
