package goMember

import (
	"context"
	"strconv"
	"time"

	"github.com/MrEthical07/goMember/internal/limiters"
	"github.com/redis/go-redis/v9"
)

// AccountLockConfig defines a public type used by goMember APIs.
//
// AccountLockConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AccountLockConfig struct {
	// FailuresAllowed is the number of failed password checks at which the
	// lock engages. The attempt that reaches the allowance is itself
	// rejected as locked.
	FailuresAllowed int

	// LockDuration bounds both the lock and the failure-counting window.
	LockDuration time.Duration

	// SendLockNotice mails the member when the lock engages. Requires a
	// mailer to be passed to [NewAccountLock].
	SendLockNotice bool
}

// AccountLock is the packaged lockout policy: a pair of hooks backed by a
// shared Redis failure counter. Attach BeforePasswordCheck at
// [HookBeforePasswordCheck] and AfterPasswordCheck at
// [HookAfterPasswordCheck].
type AccountLock struct {
	limiter *limiters.Lockout
	cfg     AccountLockConfig
	mailer  Mailer
}

// NewAccountLock describes the new account lock operation and its observable behavior.
//
// NewAccountLock may return an error when input validation, dependency calls, or security checks fail.
// NewAccountLock does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewAccountLock(redisClient redis.UniversalClient, cfg AccountLockConfig, mailer Mailer) *AccountLock {
	return &AccountLock{
		limiter: limiters.New(redisClient, limiters.Config{
			FailuresAllowed: cfg.FailuresAllowed,
			LockDuration:    cfg.LockDuration,
		}),
		cfg:    cfg,
		mailer: mailer,
	}
}

// BeforePasswordCheck aborts the flow with 429 while the member is locked.
// Unknown members pass through so the flow keeps its uniform
// invalid-credentials answer.
func (a *AccountLock) BeforePasswordCheck(ctx context.Context, state *HookState) HookDecision {
	if state.MemberID == "" {
		return Continue()
	}

	until, locked, err := a.limiter.Locked(ctx, state.MemberID)
	if err != nil {
		return Abort(503, "lockout state unavailable")
	}
	if locked {
		state.Annotations["lock_until"] = until.Unix()
		return Abort(429, "account locked")
	}

	count, lastAt, _, err := a.limiter.State(ctx, state.MemberID)
	if err == nil && count > 0 {
		state.Annotations["failed_attempts"] = count
		if !lastAt.IsZero() {
			state.Annotations["last_failed_attempt_at"] = lastAt.Unix()
		}
	}
	return Continue()
}

// AfterPasswordCheck counts a failure or resets the history on success.
// When the failure that reaches the allowance arrives, the lock engages
// and this same attempt is answered 429 instead of 401.
func (a *AccountLock) AfterPasswordCheck(ctx context.Context, state *HookState) HookDecision {
	if state.MemberID == "" {
		return Continue()
	}

	if state.PasswordOK {
		if err := a.limiter.Reset(ctx, state.MemberID); err != nil {
			return Abort(503, "lockout state unavailable")
		}
		return Continue()
	}

	count, locked, err := a.limiter.RecordFailure(ctx, state.MemberID)
	if err != nil {
		return Abort(503, "lockout state unavailable")
	}
	state.Annotations["failed_attempts"] = count

	if !locked {
		return Continue()
	}

	state.Annotations["lock_until"] = time.Now().Add(a.cfg.LockDuration).Unix()
	if a.cfg.SendLockNotice && a.mailer != nil && state.Email != "" {
		_ = a.mailer.Send(ctx, state.Email, TemplateLockNotice, map[string]string{
			"member_name":     state.MemberName,
			"failed_attempts": strconv.Itoa(count),
		})
	}
	return Abort(429, "account locked")
}
