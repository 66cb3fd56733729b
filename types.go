package goMember

import (
	"context"
	"time"
)

// MemberStatus represents the lifecycle state of a member record.
type MemberStatus uint8

const (
	// MemberActive is an exported constant or variable used by the authentication engine.
	MemberActive MemberStatus = iota
	// MemberPendingVerification is an exported constant or variable used by the authentication engine.
	MemberPendingVerification
	// MemberDeleted is an exported constant or variable used by the authentication engine.
	MemberDeleted
)

// Member is the full account record returned by [MemberProvider]. Name and
// email are unique among non-deleted members; Custom carries arbitrary
// caller-defined profile fields.
type Member struct {
	ID               string
	Name             string
	Email            string
	PasswordHash     string
	Custom           map[string]string
	Status           MemberStatus
	TwoFactorEnabled bool
	CreatedAt        time.Time
}

// CreateMemberInput is the input for [MemberProvider.Create]. The engine
// assigns ID and PasswordHash before calling the provider.
type CreateMemberInput struct {
	ID               string
	Name             string
	Email            string
	PasswordHash     string
	Custom           map[string]string
	Status           MemberStatus
	TwoFactorEnabled bool
}

// MemberProvider is the interface callers implement to integrate goMember
// with their member database. Create must enforce name/email uniqueness
// atomically and signal violations with [ErrProviderDuplicateName] or
// [ErrProviderDuplicateEmail]. Truncate exists for test environments only.
//
// Sessions, pending two-factor challenges, and lockout counters are not
// part of this interface; the engine persists them in Redis.
type MemberProvider interface {
	GetByName(ctx context.Context, name string) (Member, error)
	GetByEmail(ctx context.Context, email string) (Member, error)
	GetByID(ctx context.Context, id string) (Member, error)
	Create(ctx context.Context, input CreateMemberInput) (Member, error)
	UpdateStatus(ctx context.Context, id string, status MemberStatus) error
	UpdatePasswordHash(ctx context.Context, id string, hash string) error
	UpdateCustom(ctx context.Context, id string, fields map[string]string, clear bool) (Member, error)
	Delete(ctx context.Context, id string) error
	Truncate(ctx context.Context) error
}

// LoginOptions tunes a single Login call.
type LoginOptions struct {
	// DeliverOTP overrides Config.Mailer.DeliverOTP for the two-factor
	// handoff triggered by this login.
	DeliverOTP bool
}

// TwoFactorOptions tunes a single two-factor registration call.
type TwoFactorOptions struct {
	DeliverOTP bool
	// SendCompleteNotice mails a registration-complete notice after a
	// successful verification.
	SendCompleteNotice bool
}

// UpdateCustomOptions tunes UpdateCustom. With Clear set, the custom map
// is replaced entirely by the supplied fields instead of merged.
type UpdateCustomOptions struct {
	Clear bool
}
