package goMember

import (
	"context"
	"errors"
	"sync"
	"testing"
)

type sentMail struct {
	address  string
	template string
	data     map[string]string
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *recordingMailer) Send(_ context.Context, address, template string, data map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}

	copied := make(map[string]string, len(data))
	for k, v := range data {
		copied[k] = v
	}
	m.sent = append(m.sent, sentMail{address: address, template: template, data: copied})
	return nil
}

func (m *recordingMailer) deliveries() []sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMail(nil), m.sent...)
}

func TestDeliverOTPMailsInsteadOfSystemPayload(t *testing.T) {
	mailer := &recordingMailer{}
	engine, _ := newTestEngine(t, testConfig(), newMockProvider(), func(b *Builder) {
		b.WithMailer(mailer)
	})
	ctx := context.Background()

	first := engine.CreateMember2FAFirst(ctx, "momongar", "momongar@example.com", "mongamonga", nil, testIP,
		TwoFactorOptions{DeliverOTP: true})
	if first.StatusCode != 201 {
		t.Fatalf("2fa first status = %d, want 201 (err=%v)", first.StatusCode, first.Err)
	}
	if _, leaked := first.System["one_time_password"]; leaked {
		t.Fatal("OTP present in System payload despite mail delivery")
	}

	sent := mailer.deliveries()
	if len(sent) != 1 {
		t.Fatalf("deliveries = %d, want 1", len(sent))
	}
	if sent[0].address != "momongar@example.com" || sent[0].template != TemplateOTP {
		t.Fatalf("delivery = %+v, want %s to momongar@example.com", sent[0], TemplateOTP)
	}

	// The mailed OTP completes the flow.
	otp := sent[0].data["one_time_password"]
	if otp == "" {
		t.Fatal("mailed OTP data is empty")
	}
	altToken, _ := first.Body["alternate_token"].(string)
	verified := engine.CreateMember2FAVerify(ctx, altToken, otp, testIP, testDevice, TwoFactorOptions{})
	if verified.StatusCode != 200 {
		t.Fatalf("verify with mailed OTP status = %d, want 200 (err=%v)", verified.StatusCode, verified.Err)
	}
}

func TestMailerFailureAbortsWhenThrowConfigured(t *testing.T) {
	mailer := &recordingMailer{err: errors.New("smtp unreachable")}
	cfg := testConfig()
	cfg.Mailer.ThrowOnSendFailed = true
	engine, _ := newTestEngine(t, cfg, newMockProvider(), func(b *Builder) {
		b.WithMailer(mailer)
	})

	res := engine.CreateMember(context.Background(), "momongar", "momongar@example.com", "mongamonga", nil, testIP, testDevice)
	if res.StatusCode != 500 {
		t.Fatalf("status = %d, want 500", res.StatusCode)
	}
	if !errors.Is(res.Err, ErrMailerFailed) {
		t.Fatalf("err = %v, want ErrMailerFailed", res.Err)
	}
}

func TestMailerFailureSwallowedByDefault(t *testing.T) {
	mailer := &recordingMailer{err: errors.New("smtp unreachable")}
	cfg := testConfig()
	cfg.Metrics.Enabled = true
	engine, _ := newTestEngine(t, cfg, newMockProvider(), func(b *Builder) {
		b.WithMailer(mailer)
	})

	res := engine.CreateMember(context.Background(), "momongar", "momongar@example.com", "mongamonga", nil, testIP, testDevice)
	if res.StatusCode != 201 {
		t.Fatalf("status = %d, want 201 (err=%v)", res.StatusCode, res.Err)
	}
	if tok, _ := res.Body["session_token"].(string); tok == "" {
		t.Fatal("session_token missing despite swallowed mail failure")
	}

	snap := engine.MetricsSnapshot()
	if got := snap.Counters[MetricMailFailed]; got != 1 {
		t.Fatalf("MetricMailFailed = %d, want 1", got)
	}
}

func TestSuccessfulWelcomeMailRecorded(t *testing.T) {
	mailer := &recordingMailer{}
	cfg := testConfig()
	cfg.Metrics.Enabled = true
	engine, _ := newTestEngine(t, cfg, newMockProvider(), func(b *Builder) {
		b.WithMailer(mailer)
	})

	mustCreateMember(t, engine, "momongar", "momongar@example.com", "mongamonga", testIP, testDevice)

	sent := mailer.deliveries()
	if len(sent) != 1 || sent[0].template != TemplateWelcome {
		t.Fatalf("deliveries = %+v, want one %s", sent, TemplateWelcome)
	}
	if got := engine.MetricsSnapshot().Counters[MetricMailSent]; got != 1 {
		t.Fatalf("MetricMailSent = %d, want 1", got)
	}
}
