package lock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

var extendScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("pexpire", KEYS[1], ARGV[2])
	else
		return 0
	end
`)

// RedisLock is a SET NX lock with a TTL. The random value proves ownership
// so one instance never releases another's lock.
//
// While held, the TTL is pushed back every third of its length, so a cycle
// may outlast the TTL. The TTL only bounds how long a holder that died
// without releasing keeps others out.
type RedisLock struct {
	client     *redis.Client
	key        string
	value      string
	ttl        time.Duration
	renewEvery time.Duration

	stop chan struct{}
	done chan struct{}
}

// NewRedisLock creates a lock stored under "lock:<key>".
func NewRedisLock(client *redis.Client, key string, ttl time.Duration) *RedisLock {
	b := make([]byte, 16)
	rand.Read(b)
	return &RedisLock{
		client:     client,
		key:        fmt.Sprintf("lock:%s", key),
		value:      hex.EncodeToString(b),
		ttl:        ttl,
		renewEvery: ttl / 3,
	}
}

// Acquire tries to take the lock.
func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key, l.value, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", l.key, err)
	}
	if ok && l.renewEvery > 0 {
		l.stop = make(chan struct{})
		l.done = make(chan struct{})
		go l.renew(l.stop, l.done)
	}
	return ok, nil
}

// renew extends the TTL until stop is closed or the key is no longer ours.
func (l *RedisLock) renew(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(l.renewEvery)
	defer ticker.Stop()
	expires := time.Now().Add(l.ttl)

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), l.renewEvery)
		n, err := extendScript.Run(ctx, l.client, []string{l.key}, l.value, l.ttl.Milliseconds()).Int()
		cancel()

		switch {
		case err != nil && time.Now().After(expires):
			slog.Error("lock: renewal failed past ttl, lock presumed lost", "key", l.key, "error", err)
			return
		case err != nil:
			slog.Warn("lock: renewal failed, retrying", "key", l.key, "error", err)
		case n == 0:
			slog.Error("lock: lost while held", "key", l.key)
			return
		default:
			expires = time.Now().Add(l.ttl)
		}
	}
}

// Release stops renewal and deletes the key only if it still holds our value.
func (l *RedisLock) Release(ctx context.Context) error {
	if l.stop != nil {
		close(l.stop)
		<-l.done
		l.stop, l.done = nil, nil
	}
	if err := releaseScript.Run(ctx, l.client, []string{l.key}, l.value).Err(); err != nil {
		return fmt.Errorf("release lock %s: %w", l.key, err)
	}
	return nil
}
