package goMember

import (
	"errors"
	"time"
)

// Config defines a public type used by goMember APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Session   SessionConfig
	TwoFactor TwoFactorConfig
	Password  PasswordConfig
	Token     TokenConfig
	Storage   StorageConfig
	Mailer    MailerConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig defines a public type used by goMember APIs.
//
// SessionConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SessionConfig struct {
	TTL         time.Duration
	RedisPrefix string

	// AllowMultiplePerDevice permits concurrent sessions for the same
	// (member, device) pair. When false, creating a session atomically
	// replaces the previous one for that pair.
	AllowMultiplePerDevice bool

	// EnforceIPBinding and EnforceDeviceBinding control validation
	// strictness. Advisory (false) mismatches are counted but tolerated;
	// legitimate IP changes on mobile networks are common.
	EnforceIPBinding     bool
	EnforceDeviceBinding bool

	// SweepInterval drives the background index-repair sweeper.
	// Zero disables it; Redis TTLs still expire the records themselves.
	SweepInterval time.Duration
}

/*
====================================
TWO-FACTOR CONFIG
====================================
*/

// TwoFactorConfig defines a public type used by goMember APIs.
//
// TwoFactorConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type TwoFactorConfig struct {
	// ChallengeTTL bounds both the alternate token and its one-time
	// password. The pending record is discarded when it elapses.
	ChallengeTTL   time.Duration
	OTPDigits      int
	OTPMaxAttempts int
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig defines a public type used by goMember APIs.
//
// PasswordConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type PasswordConfig struct {
	Memory         uint32 // in KB
	Time           uint32
	Parallelism    uint8
	SaltLength     uint32
	KeyLength      uint32
	UpgradeOnLogin bool
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig configures the alternate-token issuer. Session tokens are
// opaque random values and need no signing material.
//
// TokenConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type TokenConfig struct {
	SigningMethod string // "hs256" (default) or "ed25519"
	PrivateKey    []byte
	PublicKey     []byte
}

// StorageConfig defines a public type used by goMember APIs.
//
// StorageConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type StorageConfig struct {
	// Timeout caps every storage call. Exceeding it surfaces as
	// ErrStorageTimeout instead of hanging the caller.
	Timeout time.Duration
}

// MailerConfig defines a public type used by goMember APIs.
//
// MailerConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MailerConfig struct {
	// ThrowOnSendFailed aborts the triggering flow when delivery fails;
	// otherwise the failure is counted and swallowed.
	ThrowOnSendFailed bool

	// DeliverOTP sends one-time passwords through the mailer. When false
	// the OTP is exposed only in the result's System payload.
	DeliverOTP bool
}

// AuditConfig defines a public type used by goMember APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines a public type used by goMember APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the baseline configuration: 30-day sessions under
// the "gm" prefix, 2-minute two-factor challenges with 6-digit OTPs, and
// moderate argon2id cost parameters. Token signing material must still be
// supplied by the caller.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Session: SessionConfig{
			TTL:         30 * 24 * time.Hour,
			RedisPrefix: "gm",
		},
		TwoFactor: TwoFactorConfig{
			ChallengeTTL:   2 * time.Minute,
			OTPDigits:      6,
			OTPMaxAttempts: 5,
		},
		Password: PasswordConfig{
			Memory:      64 * 1024,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		Token: TokenConfig{
			SigningMethod: "hs256",
		},
		Storage: StorageConfig{
			Timeout: 10 * time.Second,
		},
		Audit: AuditConfig{
			BufferSize: 256,
		},
	}
}

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Config) Validate() error {
	if c.Session.TTL <= 0 {
		return errors.New("Session TTL must be positive")
	}
	if c.Session.RedisPrefix == "" {
		return errors.New("Session RedisPrefix must be set")
	}
	if c.Session.SweepInterval < 0 {
		return errors.New("Session SweepInterval must not be negative")
	}
	if c.TwoFactor.ChallengeTTL <= 0 {
		return errors.New("TwoFactor ChallengeTTL must be positive")
	}
	if c.TwoFactor.OTPDigits < 6 || c.TwoFactor.OTPDigits > 10 {
		return errors.New("TwoFactor OTPDigits must be between 6 and 10")
	}
	if c.TwoFactor.OTPMaxAttempts < 1 {
		return errors.New("TwoFactor OTPMaxAttempts must be at least 1")
	}
	if c.Storage.Timeout <= 0 {
		return errors.New("Storage Timeout must be positive")
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.PrivateKey = cloneBytes(cfg.Token.PrivateKey)
	out.Token.PublicKey = cloneBytes(cfg.Token.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
