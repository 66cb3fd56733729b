package limiters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrLockoutBackend = errors.New("lockout backend unavailable")

// Config controls how many failed password checks a member may
// accumulate before the lock engages and for how long it holds.
type Config struct {
	FailuresAllowed int
	LockDuration    time.Duration
}

// Lockout tracks consecutive failed password checks per member. The
// counter lives in Redis so multiple engine instances share one view of
// a member's failure history.
type Lockout struct {
	redis redis.UniversalClient
	cfg   Config
}

func New(redisClient redis.UniversalClient, cfg Config) *Lockout {
	if cfg.FailuresAllowed <= 0 {
		cfg.FailuresAllowed = 3
	}
	if cfg.LockDuration <= 0 {
		cfg.LockDuration = 15 * time.Minute
	}
	return &Lockout{
		redis: redisClient,
		cfg:   cfg,
	}
}

func (l *Lockout) counterKey(memberID string) string {
	return "mfc:" + memberID
}

func (l *Lockout) lockKey(memberID string) string {
	return "mfl:" + memberID
}

func (l *Lockout) lastFailureKey(memberID string) string {
	return "mfa:" + memberID
}

// Locked reports whether the member is currently locked and, if so,
// until when.
func (l *Lockout) Locked(ctx context.Context, memberID string) (time.Time, bool, error) {
	raw, err := l.redis.Get(ctx, l.lockKey(memberID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("%w: %w", ErrLockoutBackend, err)
	}

	until := time.Unix(raw, 0)
	if time.Now().After(until) {
		return time.Time{}, false, nil
	}
	return until, true, nil
}

// RecordFailure increments the failure counter atomically and engages
// the lock when the allowance is reached. The counter key carries the
// lock duration as its expiry so stale counters age out on their own.
func (l *Lockout) RecordFailure(ctx context.Context, memberID string) (int, bool, error) {
	now := time.Now()

	count, err := l.redis.Incr(ctx, l.counterKey(memberID)).Result()
	if err != nil {
		return 0, false, fmt.Errorf("%w: %w", ErrLockoutBackend, err)
	}
	if count == 1 {
		if err := l.redis.Expire(ctx, l.counterKey(memberID), l.cfg.LockDuration).Err(); err != nil {
			return int(count), false, fmt.Errorf("%w: %w", ErrLockoutBackend, err)
		}
	}
	if err := l.redis.Set(ctx, l.lastFailureKey(memberID), now.Unix(), l.cfg.LockDuration).Err(); err != nil {
		return int(count), false, fmt.Errorf("%w: %w", ErrLockoutBackend, err)
	}

	if int(count) < l.cfg.FailuresAllowed {
		return int(count), false, nil
	}

	until := now.Add(l.cfg.LockDuration)
	if err := l.redis.Set(ctx, l.lockKey(memberID), until.Unix(), l.cfg.LockDuration).Err(); err != nil {
		return int(count), false, fmt.Errorf("%w: %w", ErrLockoutBackend, err)
	}
	return int(count), true, nil
}

// Reset clears the failure history after a successful password check.
func (l *Lockout) Reset(ctx context.Context, memberID string) error {
	err := l.redis.Del(ctx,
		l.counterKey(memberID),
		l.lockKey(memberID),
		l.lastFailureKey(memberID),
	).Err()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLockoutBackend, err)
	}
	return nil
}

// State returns the current failure count, the time of the most recent
// failure, and the lock deadline if any. Zero values mean no history.
func (l *Lockout) State(ctx context.Context, memberID string) (int, time.Time, time.Time, error) {
	pipe := l.redis.Pipeline()
	countCmd := pipe.Get(ctx, l.counterKey(memberID))
	lastCmd := pipe.Get(ctx, l.lastFailureKey(memberID))
	lockCmd := pipe.Get(ctx, l.lockKey(memberID))
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return 0, time.Time{}, time.Time{}, fmt.Errorf("%w: %w", ErrLockoutBackend, err)
	}

	var count int
	if v, err := countCmd.Int64(); err == nil {
		count = int(v)
	}
	var lastAt time.Time
	if v, err := lastCmd.Int64(); err == nil {
		lastAt = time.Unix(v, 0)
	}
	var lockUntil time.Time
	if v, err := lockCmd.Int64(); err == nil {
		lockUntil = time.Unix(v, 0)
	}

	return count, lastAt, lockUntil, nil
}
