package goMember

import "context"

// Mail templates passed to [Mailer.Send]. The mailer decides how a
// template name maps to subject and body; the engine only supplies data.
const (
	// TemplateOTP is an exported constant or variable used by the authentication engine.
	TemplateOTP = "one_time_password"
	// TemplateWelcome is an exported constant or variable used by the authentication engine.
	TemplateWelcome = "registration_complete"
	// TemplateLockNotice is an exported constant or variable used by the authentication engine.
	TemplateLockNotice = "account_locked"
	// TemplateDeleted is an exported constant or variable used by the authentication engine.
	TemplateDeleted = "account_deleted"
)

// Mailer delivers outbound notifications. Delivery failure is either
// swallowed or aborts the triggering flow depending on
// Config.Mailer.ThrowOnSendFailed.
type Mailer interface {
	Send(ctx context.Context, address, template string, data map[string]string) error
}

// NoOpMailer discards all outbound mail.
type NoOpMailer struct{}

// Send describes the send operation and its observable behavior.
//
// Send may return an error when input validation, dependency calls, or security checks fail.
// Send does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (NoOpMailer) Send(context.Context, string, string, map[string]string) error {
	return nil
}
