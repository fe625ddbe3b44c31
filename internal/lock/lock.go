// Package lock provides the cross-process guard that keeps sync cycles from
// overlapping when several instances run against the same database.
package lock

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// DefaultKey names the sync cycle lock.
const DefaultKey = "leadsync:cycle"

// DefaultTTL bounds how long a crashed holder can block other instances.
// A live holder renews it, so cycles may run longer.
const DefaultTTL = 5 * time.Minute

// Lock is a non-blocking mutual exclusion lock.
// An instance is used by one goroutine at a time.
type Lock interface {
	// Acquire tries to take the lock and reports whether it did.
	Acquire(ctx context.Context) (bool, error)
	// Release gives the lock up if this instance still holds it.
	Release(ctx context.Context) error
}

// New returns a Redis lock when redisClient is set, otherwise a PostgreSQL
// advisory lock on pool.
func New(redisClient *redis.Client, pool *pgxpool.Pool, key string, ttl time.Duration) Lock {
	if key == "" {
		key = DefaultKey
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if redisClient != nil {
		return NewRedisLock(redisClient, key, ttl)
	}
	return NewPGAdvisoryLock(pool, key)
}
