package goMember

// Result is the envelope returned by every flow operation. StatusCode maps
// to conventional HTTP-style outcomes (200 read, 201 created, 204 deleted,
// 401 unauthorized, 404 not found, 409 conflict, 429 policy-limited). Body
// is safe to forward to the end client; System carries delivery-bypassed
// secrets (such as the raw one-time password when mail delivery is turned
// off) and must never be transported to the client.
//
// Result instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Result struct {
	StatusCode int
	Body       map[string]any
	System     map[string]any
	Err        error
}

// Fail describes the fail operation and its observable behavior.
//
// Fail may return an error when input validation, dependency calls, or security checks fail.
// Fail does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (r *Result) Fail() bool {
	if r == nil {
		return true
	}
	return r.StatusCode >= 400
}

func newResult(status int) *Result {
	return &Result{
		StatusCode: status,
		Body:       map[string]any{},
	}
}

func failResult(status int, err error) *Result {
	r := newResult(status)
	r.Err = err
	return r
}

func (r *Result) set(key string, value any) *Result {
	r.Body[key] = value
	return r
}

func (r *Result) setSystem(key string, value any) *Result {
	if r.System == nil {
		r.System = map[string]any{}
	}
	r.System[key] = value
	return r
}

func (r *Result) annotate(fields map[string]any) *Result {
	for k, v := range fields {
		r.Body[k] = v
	}
	return r
}
