package goMember

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
)

const (
	minNameLength     = 3
	maxNameLength     = 64
	minPasswordLength = 8
	maxPasswordLength = 256
)

func validMemberName(name string) bool {
	return len(name) >= minNameLength && len(name) <= maxNameLength &&
		!strings.ContainsAny(name, " \t\r\n")
}

func validEmail(email string) bool {
	at := strings.IndexByte(email, '@')
	return at > 0 && at < len(email)-1 && len(email) <= 254
}

func validPassword(pass string) bool {
	return len(pass) >= minPasswordLength && len(pass) <= maxPasswordLength
}

// FindMember reports whether a member name is still available. A free
// name answers 200, a taken one 409.
func (e *Engine) FindMember(ctx context.Context, name string) *Result {
	if e == nil {
		return failResult(500, ErrEngineNotReady)
	}
	if !validMemberName(name) {
		return failResult(400, ErrValidation)
	}

	sctx, cancel := e.storageCtx(ctx)
	defer cancel()

	member, err := e.memberProvider.GetByName(sctx, name)
	if err != nil {
		if errors.Is(err, ErrMemberNotFound) {
			r := newResult(200)
			r.set("name", name)
			r.set("available", true)
			return r
		}
		return failResult(503, mapStorageErr(err))
	}

	r := failResult(409, ErrNameTaken)
	r.set("name", member.Name)
	r.set("available", false)
	return r
}

// CreateMember registers a member and immediately issues a session for
// the presented IP and device. Success answers 201 with session_token.
func (e *Engine) CreateMember(
	ctx context.Context,
	name, email, pass string,
	custom map[string]string,
	ip, device string,
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
	if device == "" {
		device = deviceFromContext(ctx)
	}

	member, fail := e.createMemberRecord(ctx, name, email, pass, custom, MemberActive, false)
	if fail != nil {
		return fail
	}

	state := newHookState(member.ID, member.Name, member.Email, ip, device)
	if d := e.hooks.run(ctx, HookBeforeSessionIssue, state); d.Aborted() {
		return e.hookAbortResult(ctx, "member.create", member.ID, d, state)
	}

	sess, err := e.issueSession(ctx, member.ID, ip, device)
	if err != nil {
		return failResult(503, err)
	}

	e.metricInc(MetricMemberCreated)
	e.emitAudit(ctx, AuditEvent{
		EventType: "member.created",
		MemberID:  member.ID,
		SessionID: sess.Token,
		IP:        ip,
		Device:    device,
		Success:   true,
	})

	if err := e.sendMail(ctx, member.Email, TemplateWelcome, map[string]string{
		"member_name": member.Name,
	}); err != nil {
		return failResult(500, err)
	}

	r := newResult(201)
	r.set("member_id", member.ID)
	r.set("session_token", sess.Token)
	r.annotate(state.Annotations)
	return r
}

// createMemberRecord hashes the password and persists the row through the
// provider, folding uniqueness violations into 409.
func (e *Engine) createMemberRecord(
	ctx context.Context,
	name, email, pass string,
	custom map[string]string,
	status MemberStatus,
	twoFactorEnabled bool,
) (Member, *Result) {
	hash, err := e.passwordHash.Hash(pass)
	if err != nil {
		return Member{}, failResult(400, ErrValidation)
	}

	sctx, cancel := e.storageCtx(ctx)
	defer cancel()

	member, err := e.memberProvider.Create(sctx, CreateMemberInput{
		ID:               uuid.NewString(),
		Name:             name,
		Email:            email,
		PasswordHash:     hash,
		Custom:           custom,
		Status:           status,
		TwoFactorEnabled: twoFactorEnabled,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrProviderDuplicateName):
			e.metricInc(MetricMemberDuplicate)
			return Member{}, failResult(409, ErrNameTaken)
		case errors.Is(err, ErrProviderDuplicateEmail):
			e.metricInc(MetricMemberDuplicate)
			return Member{}, failResult(409, ErrEmailTaken)
		default:
			return Member{}, failResult(503, mapStorageErr(err))
		}
	}
	return member, nil
}

// GetProps returns the member profile behind a valid session. The
// password hash never appears in the body.
func (e *Engine) GetProps(ctx context.Context, sessionToken, ip, device string) *Result {
	if e == nil {
		return failResult(500, ErrEngineNotReady)
	}

	sess, fail := e.resolveSession(ctx, sessionToken, ip, device)
	if fail != nil {
		return fail
	}

	sctx, cancel := e.storageCtx(ctx)
	defer cancel()

	member, err := e.memberProvider.GetByID(sctx, sess.MemberID)
	if err != nil {
		if errors.Is(err, ErrMemberNotFound) {
			return failResult(404, ErrMemberNotFound)
		}
		return failResult(503, mapStorageErr(err))
	}

	r := newResult(200)
	r.set("member_id", member.ID)
	r.set("name", member.Name)
	r.set("email", member.Email)
	r.set("custom", member.Custom)
	r.set("two_factor_enabled", member.TwoFactorEnabled)
	r.set("created_at", member.CreatedAt.Unix())
	return r
}

// UpdateCustom modifies a member's custom properties through a valid
// session. Fields merge into the existing map unless opts.Clear replaces
// it entirely.
func (e *Engine) UpdateCustom(
	ctx context.Context,
	sessionToken, ip, device string,
	fields map[string]string,
	opts UpdateCustomOptions,
) *Result {
	if e == nil {
		return failResult(500, ErrEngineNotReady)
	}
	if fields == nil {
		fields = map[string]string{}
	}

	sess, fail := e.resolveSession(ctx, sessionToken, ip, device)
	if fail != nil {
		return fail
	}

	sctx, cancel := e.storageCtx(ctx)
	defer cancel()

	member, err := e.memberProvider.UpdateCustom(sctx, sess.MemberID, fields, opts.Clear)
	if err != nil {
		if errors.Is(err, ErrMemberNotFound) {
			return failResult(404, ErrMemberNotFound)
		}
		return failResult(503, mapStorageErr(err))
	}

	e.metricInc(MetricCustomUpdated)

	r := newResult(200)
	r.set("member_id", member.ID)
	r.set("custom", member.Custom)
	return r
}

// DeleteMember removes the account behind a valid session and revokes
// every session the member holds. Success answers 204.
func (e *Engine) DeleteMember(ctx context.Context, sessionToken, ip, device string) *Result {
	if e == nil {
		return failResult(500, ErrEngineNotReady)
	}

	sess, fail := e.resolveSession(ctx, sessionToken, ip, device)
	if fail != nil {
		return fail
	}

	sctx, cancel := e.storageCtx(ctx)
	defer cancel()

	member, err := e.memberProvider.GetByID(sctx, sess.MemberID)
	if err != nil && !errors.Is(err, ErrMemberNotFound) {
		return failResult(503, mapStorageErr(err))
	}

	if err := e.memberProvider.Delete(sctx, sess.MemberID); err != nil {
		if errors.Is(err, ErrMemberNotFound) {
			return failResult(404, ErrMemberNotFound)
		}
		return failResult(503, mapStorageErr(err))
	}

	if _, err := e.sessionStore.DeleteAllForMember(sctx, sess.MemberID); err != nil {
		return failResult(503, mapStorageErr(err))
	}

	e.metricInc(MetricMemberDeleted)
	e.emitAudit(ctx, AuditEvent{
		EventType: "member.deleted",
		MemberID:  sess.MemberID,
		IP:        ip,
		Device:    device,
		Success:   true,
	})

	if member.Email != "" {
		if err := e.sendMail(ctx, member.Email, TemplateDeleted, map[string]string{
			"member_name": member.Name,
		}); err != nil {
			return failResult(500, err)
		}
	}

	return newResult(204)
}

// hookAbortResult converts a hook Abort into the flow's failure result,
// carrying the hook's status code verbatim plus its annotations.
func (e *Engine) hookAbortResult(
	ctx context.Context,
	flow, memberID string,
	d HookDecision,
	state *HookState,
) *Result {
	if d.StatusCode == 429 {
		e.metricInc(MetricLoginLocked)
	} else {
		e.metricInc(MetricLoginAborted)
	}

	e.emitAudit(ctx, AuditEvent{
		EventType: flow + ".aborted",
		MemberID:  memberID,
		IP:        state.IP,
		Device:    state.Device,
		Success:   false,
		Error:     d.Reason,
	})

	r := failResult(d.StatusCode, ErrPolicyDenied)
	if d.Reason != "" {
		r.set("reason", d.Reason)
	}
	r.annotate(state.Annotations)
	return r
}
