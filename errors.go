package goMember

import "errors"

var (
	// ErrEngineNotReady is an exported constant or variable used by the authentication engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrValidation is an exported constant or variable used by the authentication engine.
	ErrValidation = errors.New("malformed input")
	// ErrNameTaken is an exported constant or variable used by the authentication engine.
	ErrNameTaken = errors.New("member name already registered")
	// ErrEmailTaken is an exported constant or variable used by the authentication engine.
	ErrEmailTaken = errors.New("member email already registered")
	// ErrMemberNotFound is an exported constant or variable used by the authentication engine.
	ErrMemberNotFound = errors.New("member not found")
	// ErrCredentialInvalid is an exported constant or variable used by the authentication engine.
	ErrCredentialInvalid = errors.New("invalid credentials")
	// ErrSessionNotFound is an exported constant or variable used by the authentication engine.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExpired is an exported constant or variable used by the authentication engine.
	ErrSessionExpired = errors.New("session expired")
	// ErrSessionContextMismatch is an exported constant or variable used by the authentication engine.
	ErrSessionContextMismatch = errors.New("session context mismatch")
	// ErrAlternateTokenInvalid is an exported constant or variable used by the authentication engine.
	ErrAlternateTokenInvalid = errors.New("alternate token invalid")
	// ErrOTPMismatch is an exported constant or variable used by the authentication engine.
	ErrOTPMismatch = errors.New("one-time password mismatch")
	// ErrOTPAttemptsExceeded is an exported constant or variable used by the authentication engine.
	ErrOTPAttemptsExceeded = errors.New("one-time password attempts exceeded")
	// ErrPolicyDenied is an exported constant or variable used by the authentication engine.
	ErrPolicyDenied = errors.New("denied by policy hook")
	// ErrStorageTimeout is an exported constant or variable used by the authentication engine.
	ErrStorageTimeout = errors.New("storage operation timed out")
	// ErrStorageUnavailable is an exported constant or variable used by the authentication engine.
	ErrStorageUnavailable = errors.New("storage backend unavailable")
	// ErrMailerFailed is an exported constant or variable used by the authentication engine.
	ErrMailerFailed = errors.New("mail delivery failed")

	// ErrProviderDuplicateName is returned by MemberProvider.Create when the
	// name uniqueness constraint is violated.
	ErrProviderDuplicateName = errors.New("provider duplicate name")
	// ErrProviderDuplicateEmail is returned by MemberProvider.Create when the
	// email uniqueness constraint is violated.
	ErrProviderDuplicateEmail = errors.New("provider duplicate email")
)
