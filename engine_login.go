package goMember

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goMember/internal"
	"github.com/MrEthical07/goMember/internal/stores"
)

// Login authenticates a member by name or email. Without two-factor, a
// valid credential answers 201 with session_token. With two-factor
// enabled on the account, Login answers 202 with alternate_token and
// hands the flow off to [Engine.LoginVerify].
func (e *Engine) Login(
	ctx context.Context,
	name, email, pass string,
	ip, device string,
	opts LoginOptions,
) *Result {
	if e == nil {
		return failResult(500, ErrEngineNotReady)
	}
	if pass == "" || (name == "" && email == "") {
		return failResult(400, ErrValidation)
	}
	if ip == "" {
		ip = clientIPFromContext(ctx)
	}
	if device == "" {
		device = deviceFromContext(ctx)
	}

	member, found, fail := e.locateMember(ctx, name, email)
	if fail != nil {
		return fail
	}

	// Unknown members run through the same hook pipeline with an empty
	// MemberID so the response stays uniform.
	state := newHookState(member.ID, member.Name, member.Email, ip, device)

	if d := e.hooks.run(ctx, HookBeforePasswordCheck, state); d.Aborted() {
		return e.hookAbortResult(ctx, "login", member.ID, d, state)
	}

	passwordOK := false
	if found {
		ok, err := e.passwordHash.Verify(pass, member.PasswordHash)
		if err == nil && ok {
			passwordOK = true
		}
	}
	state.PasswordOK = passwordOK

	if d := e.hooks.run(ctx, HookAfterPasswordCheck, state); d.Aborted() {
		return e.hookAbortResult(ctx, "login", member.ID, d, state)
	}

	if !passwordOK {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, AuditEvent{
			EventType: "login.failed",
			MemberID:  member.ID,
			IP:        ip,
			Device:    device,
			Success:   false,
		})
		r := failResult(401, ErrCredentialInvalid)
		r.annotate(state.Annotations)
		return r
	}

	if e.config.Password.UpgradeOnLogin {
		e.maybeUpgradeHash(ctx, member, pass)
	}

	if d := e.hooks.run(ctx, HookBeforeSessionIssue, state); d.Aborted() {
		return e.hookAbortResult(ctx, "login", member.ID, d, state)
	}

	if member.TwoFactorEnabled {
		deliver := opts.DeliverOTP || e.config.Mailer.DeliverOTP
		r, err := e.issueTwoFactorChallenge(ctx, member, ip, deliver)
		if err != nil {
			if errors.Is(err, ErrMailerFailed) {
				return failResult(500, err)
			}
			return failResult(503, err)
		}
		r.StatusCode = 202
		r.annotate(state.Annotations)
		e.emitAudit(ctx, AuditEvent{
			EventType: "login.two_factor_required",
			MemberID:  member.ID,
			IP:        ip,
			Device:    device,
			Success:   true,
		})
		return r
	}

	sess, err := e.issueSession(ctx, member.ID, ip, device)
	if err != nil {
		return failResult(503, err)
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, AuditEvent{
		EventType: "login.success",
		MemberID:  member.ID,
		SessionID: sess.Token,
		IP:        ip,
		Device:    device,
		Success:   true,
	})

	r := newResult(201)
	r.set("member_id", member.ID)
	r.set("session_token", sess.Token)
	r.annotate(state.Annotations)
	return r
}

// locateMember resolves the login identifier. Name wins when both are
// given. A missing or non-active member reports found=false instead of
// leaking which identifiers exist.
func (e *Engine) locateMember(ctx context.Context, name, email string) (Member, bool, *Result) {
	sctx, cancel := e.storageCtx(ctx)
	defer cancel()

	var (
		member Member
		err    error
	)
	if name != "" {
		member, err = e.memberProvider.GetByName(sctx, name)
	} else {
		member, err = e.memberProvider.GetByEmail(sctx, email)
	}
	if err != nil {
		if errors.Is(err, ErrMemberNotFound) {
			return Member{}, false, nil
		}
		return Member{}, false, failResult(503, mapStorageErr(err))
	}
	if member.Status != MemberActive {
		return Member{}, false, nil
	}
	return member, true, nil
}

// maybeUpgradeHash transparently re-hashes the password when the stored
// digest uses weaker parameters than the current configuration. Failures
// are swallowed: the login already succeeded.
func (e *Engine) maybeUpgradeHash(ctx context.Context, member Member, pass string) {
	stale, err := e.passwordHash.NeedsRehash(member.PasswordHash)
	if err != nil || !stale {
		return
	}
	upgraded, err := e.passwordHash.Hash(pass)
	if err != nil {
		return
	}

	sctx, cancel := e.storageCtx(ctx)
	defer cancel()
	_ = e.memberProvider.UpdatePasswordHash(sctx, member.ID, upgraded)
}

// issueTwoFactorChallenge creates the pending record and signs the
// alternate token over its ID. The raw OTP is either mailed or surfaced
// through the result's System payload, never both.
func (e *Engine) issueTwoFactorChallenge(
	ctx context.Context,
	member Member,
	ip string,
	deliverOTP bool,
) (*Result, error) {
	otp, err := internal.NewOTP(e.config.TwoFactor.OTPDigits)
	if err != nil {
		return nil, err
	}
	pendingID, err := internal.NewPendingID()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	record := &stores.PendingTwoFactor{
		MemberID:  member.ID,
		IP:        ip,
		OTPHash:   internal.HashOTP(otp),
		ExpiresAt: now.Add(e.config.TwoFactor.ChallengeTTL).Unix(),
	}

	sctx, cancel := e.storageCtx(ctx)
	defer cancel()

	if err := e.pendingStore.Save(sctx, pendingID, record, e.config.TwoFactor.ChallengeTTL); err != nil {
		return nil, mapStorageErr(err)
	}

	altToken, err := e.tokenManager.Issue(pendingID, now)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricTwoFactorIssued)

	r := newResult(202)
	r.set("alternate_token", altToken)

	if deliverOTP {
		if err := e.sendMail(ctx, member.Email, TemplateOTP, map[string]string{
			"member_name":       member.Name,
			"one_time_password": otp,
		}); err != nil {
			return nil, err
		}
	} else {
		r.setSystem("one_time_password", otp)
	}
	r.setSystem("alternate_token", altToken)

	return r, nil
}
