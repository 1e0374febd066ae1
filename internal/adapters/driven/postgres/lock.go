package postgres

import (
	"context"
	"hash/fnv"
	"time"

	"github.com/lunavision/facesink/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DistributedLock = (*AdvisoryLock)(nil)

// AdvisoryLock is the DistributedLock fallback on PostgreSQL advisory
// locks, for deployments without Redis. Advisory locks are
// connection-scoped rather than TTL-based: the ttl argument is ignored,
// Extend is a no-op, and a lost connection releases the lock.
type AdvisoryLock struct {
	db *DB
}

// NewAdvisoryLock wraps the shared pool.
func NewAdvisoryLock(db *DB) *AdvisoryLock {
	return &AdvisoryLock{db: db}
}

// hashLockName maps a lock name onto the 64-bit key space advisory
// locks use. FNV-1a keeps the mapping stable across instances.
func hashLockName(name string) int64 {
	h := fnv.New64a()
	h.Write([]byte("facesink:lock:" + name))
	return int64(h.Sum64())
}

// Acquire tries the named lock without blocking. It returns false when
// another session holds it.
func (l *AdvisoryLock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	var acquired bool
	err := l.db.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", hashLockName(name)).Scan(&acquired)
	if err != nil {
		return false, err
	}
	return acquired, nil
}

// Release unlocks the named lock. Unlocking a lock this session does
// not hold is not an error.
func (l *AdvisoryLock) Release(ctx context.Context, name string) error {
	var released bool
	return l.db.QueryRowContext(ctx, "SELECT pg_advisory_unlock($1)", hashLockName(name)).Scan(&released)
}

// Extend is a no-op; advisory locks have no TTL to refresh.
func (l *AdvisoryLock) Extend(ctx context.Context, name string, ttl time.Duration) error {
	return nil
}

// Ping reports database reachability.
func (l *AdvisoryLock) Ping(ctx context.Context) error {
	return l.db.PingContext(ctx)
}
