package storage

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/vending-machine/internal/port"
)

func getRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		t.Skipf("Redis not available: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func testPrefix(t *testing.T) string {
	return fmt.Sprintf("vending-test:%s:%d:", t.Name(), time.Now().UnixNano())
}

func TestRedisAdapter_CommitAndLoad(t *testing.T) {
	ctx := context.Background()
	adapter := NewRedisAdapter(getRedisClient(t), testPrefix(t))

	snap, err := adapter.Load(ctx, []string{"machine_items", "owner"})
	require.NoError(t, err)
	require.Zero(t, snap.Version)
	require.Empty(t, snap.Values)

	require.NoError(t, adapter.Commit(ctx, 0, map[string][]byte{
		"machine_items": []byte(`{"chocolate_bars":20}`),
		"owner":         []byte(`"owner"`),
	}))

	snap, err = adapter.Load(ctx, []string{"machine_items", "owner"})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), snap.Version)
	assert.Equal(t, `"owner"`, string(snap.Values["owner"]))
}

func TestRedisAdapter_StaleVersion(t *testing.T) {
	ctx := context.Background()
	adapter := NewRedisAdapter(getRedisClient(t), testPrefix(t))

	require.NoError(t, adapter.Commit(ctx, 0, map[string][]byte{"owner": []byte(`"a"`)}))

	err := adapter.Commit(ctx, 0, map[string][]byte{"owner": []byte(`"b"`)})
	require.ErrorIs(t, err, port.ErrVersionConflict)

	snap, err := adapter.Load(ctx, []string{"owner"})
	require.NoError(t, err)
	assert.Equal(t, `"a"`, string(snap.Values["owner"]))
}

func TestRedisAdapter_ConcurrentCommits(t *testing.T) {
	ctx := context.Background()
	adapter := NewRedisAdapter(getRedisClient(t), testPrefix(t))

	var successCount atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			err := adapter.Commit(ctx, 0, map[string][]byte{"owner": ownerPayload(id)})
			if err == nil {
				successCount.Add(1)
				return
			}
			assert.ErrorIs(t, err, port.ErrVersionConflict)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), successCount.Load())
}
