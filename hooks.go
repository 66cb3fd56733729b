package goMember

import "context"

// HookPoint names an extension slot inside an authentication flow. The set
// is closed: handlers attach to one of these points at build time and are
// executed in registration order.
type HookPoint uint8

const (
	// HookBeforePasswordCheck runs after the member row is located and
	// before the password is verified. Lockout policies abort here while
	// an account is locked.
	HookBeforePasswordCheck HookPoint = iota
	// HookAfterPasswordCheck runs after password verification with
	// HookState.PasswordOK set. Lockout policies count failures and reset
	// counters here.
	HookAfterPasswordCheck
	// HookBeforeSessionIssue runs immediately before a session (or
	// two-factor handoff) is issued.
	HookBeforeSessionIssue

	hookPointCount
)

// String describes the string operation and its observable behavior.
//
// String may return an error when input validation, dependency calls, or security checks fail.
// String does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (p HookPoint) String() string {
	switch p {
	case HookBeforePasswordCheck:
		return "beforePasswordCheck"
	case HookAfterPasswordCheck:
		return "afterPasswordCheck"
	case HookBeforeSessionIssue:
		return "beforeSessionIssue"
	default:
		return "unknown"
	}
}

// HookState is the shared mutable context handed to every handler in a
// flow. Handlers may read and write Values (scratch shared across points
// within one flow invocation) and Annotations (merged into the result
// body). Handlers receive no engine handle: policy can deny a flow but
// never mint tokens or sessions.
type HookState struct {
	MemberID   string
	MemberName string
	Email      string
	IP         string
	Device     string

	// PasswordOK is meaningful at HookAfterPasswordCheck and later.
	PasswordOK bool

	Values      map[string]any
	Annotations map[string]any
}

func newHookState(memberID, name, email, ip, device string) *HookState {
	return &HookState{
		MemberID:    memberID,
		MemberName:  name,
		Email:       email,
		IP:          ip,
		Device:      device,
		Values:      map[string]any{},
		Annotations: map[string]any{},
	}
}

// HookDecision is the fixed result variant of a handler: either Continue
// or Abort with an explicit status code that propagates verbatim to the
// caller.
type HookDecision struct {
	abort      bool
	StatusCode int
	Reason     string
}

// Continue lets the pipeline proceed to the next handler.
func Continue() HookDecision {
	return HookDecision{}
}

// Abort short-circuits the remaining pipeline and the flow controller.
func Abort(statusCode int, reason string) HookDecision {
	return HookDecision{abort: true, StatusCode: statusCode, Reason: reason}
}

// Aborted describes the aborted operation and its observable behavior.
//
// Aborted may return an error when input validation, dependency calls, or security checks fail.
// Aborted does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (d HookDecision) Aborted() bool {
	return d.abort
}

// Hook is a single policy handler attached to a [HookPoint].
type Hook func(ctx context.Context, state *HookState) HookDecision

type hookPipeline struct {
	hooks [hookPointCount][]Hook
}

func (p *hookPipeline) register(point HookPoint, hook Hook) {
	if point >= hookPointCount || hook == nil {
		return
	}
	p.hooks[point] = append(p.hooks[point], hook)
}

func (p *hookPipeline) run(ctx context.Context, point HookPoint, state *HookState) HookDecision {
	if p == nil || point >= hookPointCount {
		return Continue()
	}
	for _, h := range p.hooks[point] {
		if d := h(ctx, state); d.Aborted() {
			return d
		}
	}
	return Continue()
}
