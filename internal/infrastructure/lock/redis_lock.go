// Package lock provides the per-loan mutual exclusion used by payment
// reconciliation, backed by redis.
package lock

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"lending-engine/internal/pkg/apperrors"
)

// releaseScript deletes the lock key only when it still holds our token, so
// an expired-and-reacquired lock is never released by the previous holder.
const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end`

type RedisLoanLocker struct {
	client  redis.UniversalClient
	ttl     time.Duration
	release *redis.Script
	logger  *slog.Logger
}

func NewRedisLoanLocker(client redis.UniversalClient, ttl time.Duration, logger *slog.Logger) *RedisLoanLocker {
	if client == nil || logger == nil {
		panic("RedisLoanLocker dependencies cannot be nil")
	}
	return &RedisLoanLocker{
		client:  client,
		ttl:     ttl,
		release: redis.NewScript(releaseScript),
		logger:  logger.With("component", "RedisLoanLocker"),
	}
}

// AcquireLoanLock takes the loan's reconciliation lock or fails immediately
// with ErrConflict when another reconciliation holds it. The returned release
// func is safe to call after the TTL has expired the key.
func (r *RedisLoanLocker) AcquireLoanLock(ctx context.Context, loanID int64) (func(), error) {
	key := lockKey(loanID)
	token := uuid.NewString()

	ok, err := r.client.SetNX(ctx, key, token, r.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: redis lock acquire failed: %v", apperrors.ErrInternalServer, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: loan %d is being reconciled by another worker", apperrors.ErrConflict, loanID)
	}

	release := func() {
		// Release outlives the caller's context on purpose.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.release.Run(releaseCtx, r.client, []string{key}, token).Err(); err != nil && err != redis.Nil {
			r.logger.Error("Failed to release loan lock", "key", key, "error", err)
		}
	}
	return release, nil
}

func lockKey(loanID int64) string {
	return fmt.Sprintf("lending-engine:reconcile:loan:%d", loanID)
}
