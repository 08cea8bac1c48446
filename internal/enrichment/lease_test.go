package enrichment

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRedisLocker(t *testing.T, ttl, wait time.Duration) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLocker(client, ttl, wait, zap.NewNop()), srv
}

func TestRedisLocker_ExclusiveUntilReleased(t *testing.T) {
	l, srv := newRedisLocker(t, time.Minute, 100*time.Millisecond)
	ctx := context.Background()

	release, err := l.Acquire(ctx, "cnpj:11222333000181")
	require.NoError(t, err)
	assert.True(t, srv.Exists("cnpjsync:lease:cnpj:11222333000181"))

	_, err = l.Acquire(ctx, "cnpj:11222333000181")
	assert.ErrorIs(t, err, ErrLeaseTimeout)

	other, err := l.Acquire(ctx, "cnpj:12345678000195")
	require.NoError(t, err)
	other()

	release()
	assert.False(t, srv.Exists("cnpjsync:lease:cnpj:11222333000181"))

	again, err := l.Acquire(ctx, "cnpj:11222333000181")
	require.NoError(t, err)
	again()
}

func TestRedisLocker_ReleaseLeavesForeignTokenAlone(t *testing.T) {
	l, srv := newRedisLocker(t, time.Second, 100*time.Millisecond)

	release, err := l.Acquire(context.Background(), "k")
	require.NoError(t, err)

	// the lease expired and someone else took it
	srv.FastForward(2 * time.Second)
	require.NoError(t, srv.Set("cnpjsync:lease:k", "someone-else"))

	release()
	srv.CheckGet(t, "cnpjsync:lease:k", "someone-else")
}

func TestRedisLocker_ExpiredLeaseCanBeTaken(t *testing.T) {
	l, srv := newRedisLocker(t, time.Second, 100*time.Millisecond)

	_, err := l.Acquire(context.Background(), "k")
	require.NoError(t, err)
	srv.FastForward(2 * time.Second)

	release, err := l.Acquire(context.Background(), "k")
	require.NoError(t, err)
	release()
}

func TestLocalLocker_SerializesPerKey(t *testing.T) {
	l := NewLocalLocker(0)

	var inside, maxInside atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(context.Background(), "k")
			if !assert.NoError(t, err) {
				return
			}
			n := inside.Add(1)
			for {
				m := maxInside.Load()
				if n <= m || maxInside.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
			release()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside.Load())
	assert.Empty(t, l.keys)
}

func TestLocalLocker_WaitAndCancel(t *testing.T) {
	l := NewLocalLocker(20 * time.Millisecond)

	release, err := l.Acquire(context.Background(), "k")
	require.NoError(t, err)

	_, err = l.Acquire(context.Background(), "k")
	assert.ErrorIs(t, err, ErrLeaseTimeout)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	unbounded := NewLocalLocker(0)
	held, err := unbounded.Acquire(context.Background(), "k")
	require.NoError(t, err)
	_, err = unbounded.Acquire(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
	held()

	release()
	release()
	assert.Empty(t, l.keys)
}
