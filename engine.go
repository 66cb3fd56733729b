package goMember

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goMember/internal/stores"
	"github.com/MrEthical07/goMember/password"
	"github.com/MrEthical07/goMember/session"
	"github.com/MrEthical07/goMember/token"
)

// Engine defines a public type used by goMember APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config         Config
	sessionStore   *session.Store
	pendingStore   *stores.PendingTwoFactorStore
	passwordHash   *password.Hasher
	tokenManager   *token.Manager
	memberProvider MemberProvider
	mailer         Mailer
	audit          *auditDispatcher
	metrics        *Metrics
	hooks          hookPipeline

	sweeperStop chan struct{}
	sweeperDone chan struct{}
}

// Close describes the close operation and its observable behavior.
//
// Close may return an error when input validation, dependency calls, or security checks fail.
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.sweeperStop != nil {
		close(e.sweeperStop)
		<-e.sweeperDone
		e.sweeperStop = nil
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped may return an error when input validation, dependency calls, or security checks fail.
// AuditDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot may return an error when input validation, dependency calls, or security checks fail.
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) startSweeper(interval time.Duration) {
	e.sweeperStop = make(chan struct{})
	e.sweeperDone = make(chan struct{})

	go func() {
		defer close(e.sweeperDone)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), e.config.Storage.Timeout)
				_, _ = e.sessionStore.Sweep(ctx)
				cancel()
			case <-e.sweeperStop:
				return
			}
		}
	}()
}

// storageCtx bounds a storage call with the configured timeout. The
// returned cancel must always be called.
func (e *Engine) storageCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, e.config.Storage.Timeout)
}

// mapStorageErr folds backend failures into the engine's error taxonomy.
func mapStorageErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return ErrStorageTimeout
	case errors.Is(err, session.ErrUnavailable),
		errors.Is(err, stores.ErrPendingBackend):
		return ErrStorageUnavailable
	default:
		return err
	}
}

func (e *Engine) emitAudit(ctx context.Context, event AuditEvent) {
	if e == nil || e.audit == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.IP == "" {
		event.IP = clientIPFromContext(ctx)
	}
	if event.Device == "" {
		event.Device = deviceFromContext(ctx)
	}
	e.audit.Emit(ctx, event)
}

// sendMail delivers a notification and applies the ThrowOnSendFailed
// policy. The returned error is non-nil only when the flow must abort.
func (e *Engine) sendMail(ctx context.Context, address, template string, data map[string]string) error {
	if e.mailer == nil || address == "" {
		return nil
	}

	if err := e.mailer.Send(ctx, address, template, data); err != nil {
		e.metricInc(MetricMailFailed)
		e.emitAudit(ctx, AuditEvent{
			EventType: "mail.failed",
			Success:   false,
			Error:     err.Error(),
			Metadata:  map[string]string{"template": template},
		})
		if e.config.Mailer.ThrowOnSendFailed {
			return ErrMailerFailed
		}
		return nil
	}

	e.metricInc(MetricMailSent)
	return nil
}
