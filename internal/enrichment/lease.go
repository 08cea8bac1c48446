package enrichment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrLeaseTimeout is returned when another holder kept the lease for longer
// than the caller was willing to wait.
var ErrLeaseTimeout = errors.New("timed out waiting for lease")

// Locker hands out exclusive per-key leases. The returned release func must
// be called exactly once.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

var errLeaseBusy = errors.New("lease busy")

// releaseScript deletes the key only while it still holds our token, so an
// expired lease taken over by someone else is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker shares leases across processes through SET NX PX
type RedisLocker struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
	wait   time.Duration
	log    *zap.Logger
}

// NewRedisLocker creates a locker. ttl bounds how long a crashed holder can
// block others; wait bounds how long Acquire polls.
func NewRedisLocker(client redis.Cmdable, ttl, wait time.Duration, log *zap.Logger) *RedisLocker {
	return &RedisLocker{client: client, prefix: "cnpjsync:lease:", ttl: ttl, wait: wait, log: log}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	redisKey := l.prefix + key
	token := uuid.NewString()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 25 * time.Millisecond
	bo.MaxInterval = 500 * time.Millisecond
	bo.MaxElapsedTime = l.wait

	err := backoff.Retry(func() error {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			return backoff.Permanent(fmt.Errorf("acquire lease %s: %w", key, err))
		}
		if !ok {
			return errLeaseBusy
		}
		return nil
	}, backoff.WithContext(bo, ctx))
	if errors.Is(err, errLeaseBusy) {
		return nil, fmt.Errorf("%w: %s", ErrLeaseTimeout, key)
	}
	if err != nil {
		return nil, err
	}

	release := func() {
		// the caller's ctx may already be done
		rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(rctx, l.client, []string{redisKey}, token).Err(); err != nil {
			l.log.Warn("Failed to release lease", zap.String("key", key), zap.Error(err))
		}
	}
	return release, nil
}

// LocalLocker keeps leases in process, for single-instance deployments
type LocalLocker struct {
	mu   sync.Mutex
	keys map[string]*localLease
	wait time.Duration
}

type localLease struct {
	ch   chan struct{}
	refs int
}

// NewLocalLocker creates an in-process locker. A zero wait blocks until ctx is done.
func NewLocalLocker(wait time.Duration) *LocalLocker {
	return &LocalLocker{keys: make(map[string]*localLease), wait: wait}
}

func (l *LocalLocker) Acquire(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	lease, ok := l.keys[key]
	if !ok {
		lease = &localLease{ch: make(chan struct{}, 1)}
		l.keys[key] = lease
	}
	lease.refs++
	l.mu.Unlock()

	var timeout <-chan time.Time
	if l.wait > 0 {
		timer := time.NewTimer(l.wait)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case lease.ch <- struct{}{}:
	case <-ctx.Done():
		l.unref(key, lease)
		return nil, ctx.Err()
	case <-timeout:
		l.unref(key, lease)
		return nil, fmt.Errorf("%w: %s", ErrLeaseTimeout, key)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-lease.ch
			l.unref(key, lease)
		})
	}, nil
}

func (l *LocalLocker) unref(key string, lease *localLease) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lease.refs--
	if lease.refs == 0 {
		delete(l.keys, key)
	}
}
