package reassignmentqueue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// GameLocker serializes work that shares a group key.
type GameLocker interface {
	WithGameLock(ctx context.Context, groupKey string, fn func(ctx context.Context) error) error
}

// AdvisoryLocker holds a session-level Postgres advisory lock on a dedicated
// pooled connection while fn runs. Jobs for the same game wait for each other;
// other games proceed in parallel.
type AdvisoryLocker struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewAdvisoryLocker creates a locker over pool.
func NewAdvisoryLocker(pool *pgxpool.Pool, logger *slog.Logger) *AdvisoryLocker {
	return &AdvisoryLocker{pool: pool, logger: logger}
}

func (l *AdvisoryLocker) WithGameLock(ctx context.Context, groupKey string, fn func(ctx context.Context) error) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire lock connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock(hashtext($1))", groupKey); err != nil {
		return fmt.Errorf("failed to lock game %s: %w", groupKey, err)
	}
	defer func() {
		unlockCtx := context.WithoutCancel(ctx)
		if _, err := conn.Exec(unlockCtx, "SELECT pg_advisory_unlock(hashtext($1))", groupKey); err != nil {
			// A closed connection is dropped by the pool, which releases the lock.
			l.logger.ErrorContext(ctx, "Failed to release game lock, closing connection",
				slog.String("group_key", groupKey),
				slog.Any("error", err),
			)
			_ = conn.Conn().Close(unlockCtx)
		}
	}()

	return fn(ctx)
}
