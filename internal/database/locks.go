package database

import "context"

const tryAdvisoryLock = `-- name: TryAdvisoryLock :one
SELECT pg_try_advisory_lock($1)`

// TryAdvisoryLock takes a session-level advisory lock without waiting.
// The lock belongs to the connection that ran the query.
func (q *Queries) TryAdvisoryLock(ctx context.Context, key int64) (bool, error) {
	var acquired bool
	err := q.db.QueryRow(ctx, tryAdvisoryLock, key).Scan(&acquired)
	return acquired, err
}

const advisoryUnlock = `-- name: AdvisoryUnlock :one
SELECT pg_advisory_unlock($1)`

// AdvisoryUnlock releases a lock taken by TryAdvisoryLock on the same
// connection. It reports false if the lock was not held.
func (q *Queries) AdvisoryUnlock(ctx context.Context, key int64) (bool, error) {
	var released bool
	err := q.db.QueryRow(ctx, advisoryUnlock, key).Scan(&released)
	return released, err
}
