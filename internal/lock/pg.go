package lock

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	db "github.com/JonMunkholm/leadsync/internal/database"
)

// heldConn is a pooled connection kept out of the pool while the lock is
// held. *pgxpool.Conn satisfies it.
type heldConn interface {
	db.DBTX
	Release()
}

// PGAdvisoryLock uses a session-level advisory lock. The lock lives on one
// connection, so that connection is held from Acquire until Release. If the
// process dies the server drops the session and the lock with it.
type PGAdvisoryLock struct {
	acquire func(ctx context.Context) (heldConn, error)
	lockID  int64

	mu   sync.Mutex
	conn heldConn
}

// NewPGAdvisoryLock derives a stable lock id from key.
func NewPGAdvisoryLock(pool *pgxpool.Pool, key string) *PGAdvisoryLock {
	return newPGAdvisoryLock(func(ctx context.Context) (heldConn, error) {
		conn, err := pool.Acquire(ctx)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}, key)
}

func newPGAdvisoryLock(acquire func(ctx context.Context) (heldConn, error), key string) *PGAdvisoryLock {
	return &PGAdvisoryLock{acquire: acquire, lockID: LockID(key)}
}

// LockID hashes key into the advisory lock id space.
func LockID(key string) int64 {
	h := fnv.New64a()
	h.Write([]byte(key))
	return int64(h.Sum64())
}

// Acquire tries to take the lock without waiting.
func (l *PGAdvisoryLock) Acquire(ctx context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn != nil {
		return false, nil
	}

	conn, err := l.acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire lock connection: %w", err)
	}

	ok, err := db.New(conn).TryAdvisoryLock(ctx, l.lockID)
	if err != nil {
		conn.Release()
		return false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !ok {
		conn.Release()
		return false, nil
	}
	l.conn = conn
	return true, nil
}

// Release unlocks and returns the connection to the pool. A connection
// whose unlock failed is closed so the lock cannot leak into the pool.
func (l *PGAdvisoryLock) Release(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	conn := l.conn
	if conn == nil {
		return nil
	}
	l.conn = nil

	_, err := db.New(conn).AdvisoryUnlock(ctx, l.lockID)
	if err != nil {
		if c, ok := conn.(interface{ Conn() *pgx.Conn }); ok {
			c.Conn().Close(ctx)
		}
		conn.Release()
		return fmt.Errorf("advisory unlock: %w", err)
	}
	conn.Release()
	return nil
}
