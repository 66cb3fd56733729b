package goMember

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/MrEthical07/goMember/internal"
	"github.com/MrEthical07/goMember/session"
)

// issueSession mints an opaque session token bound to the caller's IP and
// device fingerprint and persists it with the configured TTL.
func (e *Engine) issueSession(ctx context.Context, memberID, ip, device string) (*session.Session, error) {
	tok, err := internal.NewSessionToken()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	sess := &session.Session{
		Token:      tok,
		MemberID:   memberID,
		IPHash:     internal.HashBindingValue(ip),
		DeviceHash: internal.HashBindingValue(device),
		IssuedAt:   now.Unix(),
		ExpiresAt:  now.Add(e.config.Session.TTL).Unix(),
	}

	sctx, cancel := e.storageCtx(ctx)
	defer cancel()

	if err := e.sessionStore.Save(sctx, sess, e.config.Session.TTL); err != nil {
		return nil, mapStorageErr(err)
	}

	e.metricInc(MetricSessionCreated)
	return sess, nil
}

// resolveSession loads and validates a session against the presented IP
// and device. It returns the session or a ready-to-return failure result.
func (e *Engine) resolveSession(ctx context.Context, sessionToken, ip, device string) (*session.Session, *Result) {
	if sessionToken == "" {
		return nil, failResult(400, ErrValidation)
	}
	if ip == "" {
		ip = clientIPFromContext(ctx)
	}
	if device == "" {
		device = deviceFromContext(ctx)
	}

	sctx, cancel := e.storageCtx(ctx)
	defer cancel()

	sess, err := e.sessionStore.Get(sctx, sessionToken)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrNotFound):
			return nil, failResult(401, ErrSessionNotFound)
		case errors.Is(err, session.ErrExpired):
			e.metricInc(MetricSessionExpired)
			return nil, failResult(401, ErrSessionExpired)
		default:
			return nil, failResult(503, mapStorageErr(err))
		}
	}

	ipHash := internal.HashBindingValue(ip)
	deviceHash := internal.HashBindingValue(device)
	ipMatch := subtle.ConstantTimeCompare(ipHash[:], sess.IPHash[:]) == 1
	deviceMatch := subtle.ConstantTimeCompare(deviceHash[:], sess.DeviceHash[:]) == 1

	if !ipMatch || !deviceMatch {
		e.metricInc(MetricSessionContextMismatch)
		if (!ipMatch && e.config.Session.EnforceIPBinding) ||
			(!deviceMatch && e.config.Session.EnforceDeviceBinding) {
			e.emitAudit(ctx, AuditEvent{
				EventType: "session.context_mismatch",
				MemberID:  sess.MemberID,
				SessionID: sess.Token,
				IP:        ip,
				Device:    device,
				Success:   false,
			})
			return nil, failResult(401, ErrSessionContextMismatch)
		}
	}

	return sess, nil
}

// Session validates a session token and reports the bound member. A valid
// session answers 200 with member_id and expires_at; validation is
// idempotent and leaves the record untouched.
func (e *Engine) Session(ctx context.Context, sessionToken, ip, device string) *Result {
	if e == nil {
		return failResult(500, ErrEngineNotReady)
	}

	start := time.Now()
	sess, fail := e.resolveSession(ctx, sessionToken, ip, device)
	if e.metrics.LatencyEnabled() {
		e.metrics.Observe(MetricValidateLatency, time.Since(start))
	}
	if fail != nil {
		return fail
	}

	e.metricInc(MetricSessionValidated)

	r := newResult(200)
	r.set("member_id", sess.MemberID)
	r.set("issued_at", sess.IssuedAt)
	r.set("expires_at", sess.ExpiresAt)
	return r
}

// Logout invalidates a single session. Deleting a session that is already
// gone still answers 204; revocation is idempotent.
func (e *Engine) Logout(ctx context.Context, sessionToken string) *Result {
	if e == nil {
		return failResult(500, ErrEngineNotReady)
	}
	if sessionToken == "" {
		return failResult(400, ErrValidation)
	}

	sctx, cancel := e.storageCtx(ctx)
	defer cancel()

	existed, err := e.sessionStore.DeleteByToken(sctx, sessionToken)
	if err != nil {
		return failResult(503, mapStorageErr(err))
	}
	if existed {
		e.metricInc(MetricSessionInvalidated)
	}

	e.emitAudit(ctx, AuditEvent{
		EventType: "session.logout",
		SessionID: sessionToken,
		Success:   true,
	})
	return newResult(204)
}
