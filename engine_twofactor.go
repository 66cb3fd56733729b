package goMember

import (
	"context"
	"errors"

	"github.com/MrEthical07/goMember/internal"
	"github.com/MrEthical07/goMember/internal/stores"
)

// CreateMember2FAFirst registers a member whose account stays pending
// until the one-time password is verified. Success answers 201 with
// alternate_token; no session exists yet.
func (e *Engine) CreateMember2FAFirst(
	ctx context.Context,
	name, email, pass string,
	custom map[string]string,
	ip string,
	opts TwoFactorOptions,
) *Result {
	if e == nil {
		return failResult(500, ErrEngineNotReady)
	}
	if !validMemberName(name) || !validEmail(email) || !validPassword(pass) {
		return failResult(400, ErrValidation)
	}
	if ip == "" {
		ip = clientIPFromContext(ctx)
	}

	member, fail := e.createMemberRecord(ctx, name, email, pass, custom, MemberPendingVerification, true)
	if fail != nil {
		return fail
	}

	deliver := opts.DeliverOTP || e.config.Mailer.DeliverOTP
	r, err := e.issueTwoFactorChallenge(ctx, member, ip, deliver)
	if err != nil {
		if errors.Is(err, ErrMailerFailed) {
			return failResult(500, err)
		}
		return failResult(503, err)
	}

	e.metricInc(MetricMemberCreated)
	e.emitAudit(ctx, AuditEvent{
		EventType: "member.created_pending",
		MemberID:  member.ID,
		IP:        ip,
		Success:   true,
	})

	r.StatusCode = 201
	r.set("member_id", member.ID)
	return r
}

// CreateMember2FAVerify completes a pending two-factor registration. The
// presented OTP is consumed exactly once; success activates the member
// and answers 200 with session_token.
func (e *Engine) CreateMember2FAVerify(
	ctx context.Context,
	alternateToken, otp string,
	ip, device string,
	opts TwoFactorOptions,
) *Result {
	if e == nil {
		return failResult(500, ErrEngineNotReady)
	}
	if ip == "" {
		ip = clientIPFromContext(ctx)
	}
	if device == "" {
		device = deviceFromContext(ctx)
	}

	record, fail := e.consumeChallenge(ctx, alternateToken, otp)
	if fail != nil {
		return fail
	}

	sctx, cancel := e.storageCtx(ctx)
	defer cancel()

	member, err := e.memberProvider.GetByID(sctx, record.MemberID)
	if err != nil {
		if errors.Is(err, ErrMemberNotFound) {
			return failResult(404, ErrMemberNotFound)
		}
		return failResult(503, mapStorageErr(err))
	}

	if member.Status == MemberPendingVerification {
		if err := e.memberProvider.UpdateStatus(sctx, member.ID, MemberActive); err != nil {
			return failResult(503, mapStorageErr(err))
		}
	}

	state := newHookState(member.ID, member.Name, member.Email, ip, device)
	if d := e.hooks.run(ctx, HookBeforeSessionIssue, state); d.Aborted() {
		return e.hookAbortResult(ctx, "two_factor.verify", member.ID, d, state)
	}

	sess, err := e.issueSession(ctx, member.ID, ip, device)
	if err != nil {
		return failResult(503, err)
	}

	e.metricInc(MetricTwoFactorVerified)
	e.emitAudit(ctx, AuditEvent{
		EventType: "two_factor.verified",
		MemberID:  member.ID,
		SessionID: sess.Token,
		IP:        ip,
		Device:    device,
		Success:   true,
	})

	if opts.SendCompleteNotice {
		if err := e.sendMail(ctx, member.Email, TemplateWelcome, map[string]string{
			"member_name": member.Name,
		}); err != nil {
			return failResult(500, err)
		}
	}

	r := newResult(200)
	r.set("member_id", member.ID)
	r.set("session_token", sess.Token)
	r.annotate(state.Annotations)
	return r
}

// LoginVerify completes a two-factor login handoff started by
// [Engine.Login]. Success answers 200 with session_token.
func (e *Engine) LoginVerify(
	ctx context.Context,
	alternateToken, otp string,
	ip, device string,
) *Result {
	if e == nil {
		return failResult(500, ErrEngineNotReady)
	}
	if ip == "" {
		ip = clientIPFromContext(ctx)
	}
	if device == "" {
		device = deviceFromContext(ctx)
	}

	record, fail := e.consumeChallenge(ctx, alternateToken, otp)
	if fail != nil {
		return fail
	}

	sctx, cancel := e.storageCtx(ctx)
	defer cancel()

	member, err := e.memberProvider.GetByID(sctx, record.MemberID)
	if err != nil {
		if errors.Is(err, ErrMemberNotFound) {
			return failResult(404, ErrMemberNotFound)
		}
		return failResult(503, mapStorageErr(err))
	}
	if member.Status != MemberActive {
		return failResult(401, ErrCredentialInvalid)
	}

	state := newHookState(member.ID, member.Name, member.Email, ip, device)
	if d := e.hooks.run(ctx, HookBeforeSessionIssue, state); d.Aborted() {
		return e.hookAbortResult(ctx, "login.verify", member.ID, d, state)
	}

	sess, err := e.issueSession(ctx, member.ID, ip, device)
	if err != nil {
		return failResult(503, err)
	}

	e.metricInc(MetricTwoFactorVerified)
	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, AuditEvent{
		EventType: "login.two_factor_success",
		MemberID:  member.ID,
		SessionID: sess.Token,
		IP:        ip,
		Device:    device,
		Success:   true,
	})

	r := newResult(200)
	r.set("member_id", member.ID)
	r.set("session_token", sess.Token)
	r.annotate(state.Annotations)
	return r
}

// consumeChallenge validates the alternate token and atomically consumes
// the pending record behind it. Every failure mode maps to 401 so the
// caller cannot probe which stage rejected the attempt; the error field
// still distinguishes them for the embedding application.
func (e *Engine) consumeChallenge(ctx context.Context, alternateToken, otp string) (*stores.PendingTwoFactor, *Result) {
	if alternateToken == "" || otp == "" {
		return nil, failResult(400, ErrValidation)
	}

	pendingID, err := e.tokenManager.Verify(alternateToken)
	if err != nil {
		e.metricInc(MetricTwoFactorFailure)
		return nil, failResult(401, ErrAlternateTokenInvalid)
	}

	sctx, cancel := e.storageCtx(ctx)
	defer cancel()

	record, err := e.pendingStore.Consume(
		sctx,
		pendingID,
		internal.HashOTP(otp),
		e.config.TwoFactor.OTPMaxAttempts,
	)
	if err != nil {
		switch {
		case errors.Is(err, stores.ErrPendingNotFound):
			e.metricInc(MetricTwoFactorReplay)
			e.emitAudit(ctx, AuditEvent{
				EventType: "two_factor.replay",
				Success:   false,
			})
			return nil, failResult(401, ErrAlternateTokenInvalid)
		case errors.Is(err, stores.ErrPendingExpired):
			e.metricInc(MetricTwoFactorFailure)
			return nil, failResult(401, ErrAlternateTokenInvalid)
		case errors.Is(err, stores.ErrPendingOTPMismatch):
			e.metricInc(MetricTwoFactorFailure)
			return nil, failResult(401, ErrOTPMismatch)
		case errors.Is(err, stores.ErrPendingAttemptsExceeded):
			e.metricInc(MetricTwoFactorFailure)
			e.emitAudit(ctx, AuditEvent{
				EventType: "two_factor.attempts_exceeded",
				Success:   false,
			})
			return nil, failResult(401, ErrOTPAttemptsExceeded)
		default:
			return nil, failResult(503, mapStorageErr(err))
		}
	}

	return record, nil
}
