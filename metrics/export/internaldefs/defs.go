package internaldefs

import (
	goMember "github.com/MrEthical07/goMember"
)

// CounterDef defines a public type used by goMember APIs.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   goMember.MetricID
	Name string
	Help string
}

// HistogramDef defines a public type used by goMember APIs.
//
// HistogramDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HistogramDef struct {
	ID   goMember.MetricID
	Name string
	Help string
}

// CounterDefs is an exported constant or variable used by the authentication engine.
var CounterDefs = []CounterDef{
	{ID: goMember.MetricLoginSuccess, Name: "gomember_login_success_total", Help: "Successful login attempts."},
	{ID: goMember.MetricLoginFailure, Name: "gomember_login_failure_total", Help: "Failed login attempts."},
	{ID: goMember.MetricLoginLocked, Name: "gomember_login_locked_total", Help: "Login attempts rejected by account lockout."},
	{ID: goMember.MetricLoginAborted, Name: "gomember_login_aborted_total", Help: "Login attempts aborted by policy hooks."},
	{ID: goMember.MetricSessionCreated, Name: "gomember_session_created_total", Help: "Created sessions."},
	{ID: goMember.MetricSessionValidated, Name: "gomember_session_validated_total", Help: "Successful session validations."},
	{ID: goMember.MetricSessionInvalidated, Name: "gomember_session_invalidated_total", Help: "Invalidated sessions."},
	{ID: goMember.MetricSessionExpired, Name: "gomember_session_expired_total", Help: "Session lookups that found an expired record."},
	{ID: goMember.MetricSessionContextMismatch, Name: "gomember_session_context_mismatch_total", Help: "Session validations with an IP or device mismatch."},
	{ID: goMember.MetricMemberCreated, Name: "gomember_member_created_total", Help: "Successful member registrations."},
	{ID: goMember.MetricMemberDuplicate, Name: "gomember_member_duplicate_total", Help: "Registrations rejected as duplicate."},
	{ID: goMember.MetricMemberDeleted, Name: "gomember_member_deleted_total", Help: "Member delete operations."},
	{ID: goMember.MetricCustomUpdated, Name: "gomember_custom_updated_total", Help: "Custom property update operations."},
	{ID: goMember.MetricTwoFactorIssued, Name: "gomember_two_factor_issued_total", Help: "Issued two-factor challenges."},
	{ID: goMember.MetricTwoFactorVerified, Name: "gomember_two_factor_verified_total", Help: "Successful two-factor verifications."},
	{ID: goMember.MetricTwoFactorFailure, Name: "gomember_two_factor_failure_total", Help: "Failed two-factor verifications."},
	{ID: goMember.MetricTwoFactorReplay, Name: "gomember_two_factor_replay_total", Help: "Two-factor verifications against an already consumed challenge."},
	{ID: goMember.MetricMailSent, Name: "gomember_mail_sent_total", Help: "Successfully delivered mail notifications."},
	{ID: goMember.MetricMailFailed, Name: "gomember_mail_failed_total", Help: "Failed mail deliveries."},
}

// ValidateLatencyDef is an exported constant or variable used by the authentication engine.
var ValidateLatencyDef = HistogramDef{
	ID:   goMember.MetricValidateLatency,
	Name: "gomember_validate_latency_seconds",
	Help: "Session validate latency histogram.",
}

// HistogramBounds is an exported constant or variable used by the authentication engine.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is an exported constant or variable used by the authentication engine.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets describes the normalizebuckets operation and its observable behavior.
//
// NormalizeBuckets may return an error when input validation, dependency calls, or security checks fail.
// NormalizeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets describes the cumulativebuckets operation and its observable behavior.
//
// CumulativeBuckets may return an error when input validation, dependency calls, or security checks fail.
// CumulativeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
