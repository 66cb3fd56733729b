package goMember

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/goMember/password"
)

func TestLoginByNameAndEmail(t *testing.T) {
	engine, _ := newTestEngine(t, testConfig(), newMockProvider())
	ctx := context.Background()

	mustCreateMember(t, engine, "momongar", "momongar@example.com", "mongamonga", testIP, testDevice)

	byName := engine.Login(ctx, "momongar", "", "mongamonga", testIP, testDevice, LoginOptions{})
	if byName.StatusCode != 201 {
		t.Fatalf("login by name status = %d, want 201 (err=%v)", byName.StatusCode, byName.Err)
	}
	if tok, _ := byName.Body["session_token"].(string); tok == "" {
		t.Fatal("expected session_token in body")
	}

	byEmail := engine.Login(ctx, "", "momongar@example.com", "mongamonga", testIP, testDevice, LoginOptions{})
	if byEmail.StatusCode != 201 {
		t.Fatalf("login by email status = %d, want 201", byEmail.StatusCode)
	}
}

func TestLoginWrongPasswordAndUnknownMemberAnswerUniformly(t *testing.T) {
	engine, _ := newTestEngine(t, testConfig(), newMockProvider())
	ctx := context.Background()

	mustCreateMember(t, engine, "momongar", "momongar@example.com", "mongamonga", testIP, testDevice)

	wrongPass := engine.Login(ctx, "momongar", "", "not-the-pass", testIP, testDevice, LoginOptions{})
	unknown := engine.Login(ctx, "nobodyhere", "", "not-the-pass", testIP, testDevice, LoginOptions{})

	for _, res := range []*Result{wrongPass, unknown} {
		if res.StatusCode != 401 || !errors.Is(res.Err, ErrCredentialInvalid) {
			t.Fatalf("expected 401 ErrCredentialInvalid, got %d %v", res.StatusCode, res.Err)
		}
	}
}

func TestLoginValidation(t *testing.T) {
	engine, _ := newTestEngine(t, testConfig(), newMockProvider())
	ctx := context.Background()

	res := engine.Login(ctx, "", "", "somepass", testIP, testDevice, LoginOptions{})
	if res.StatusCode != 400 {
		t.Fatalf("missing identifier: status = %d, want 400", res.StatusCode)
	}

	res = engine.Login(ctx, "momongar", "", "", testIP, testDevice, LoginOptions{})
	if res.StatusCode != 400 {
		t.Fatalf("missing password: status = %d, want 400", res.StatusCode)
	}
}

func newLockoutEngine(t *testing.T, failuresAllowed int, lockFor time.Duration) (*Engine, *mockMemberProvider) {
	t.Helper()

	provider := newMockProvider()
	var lock *AccountLock

	engine, _ := newTestEngine(t, testConfig(), provider, func(b *Builder) {
		lock = NewAccountLock(b.redis, AccountLockConfig{
			FailuresAllowed: failuresAllowed,
			LockDuration:    lockFor,
		}, nil)
		b.WithHook(HookBeforePasswordCheck, lock.BeforePasswordCheck)
		b.WithHook(HookAfterPasswordCheck, lock.AfterPasswordCheck)
	})
	return engine, provider
}

func TestLockoutSequence(t *testing.T) {
	engine, _ := newLockoutEngine(t, 3, 10*time.Minute)
	ctx := context.Background()

	mustCreateMember(t, engine, "momongar", "momongar@example.com", "mongamonga", testIP, testDevice)

	wantStatus := []int{401, 401, 429}
	for i, want := range wantStatus {
		res := engine.Login(ctx, "momongar", "", "wrong-password", testIP, testDevice, LoginOptions{})
		if res.StatusCode != want {
			t.Fatalf("attempt %d: status = %d, want %d", i+1, res.StatusCode, want)
		}
	}

	// Correct credentials are rejected while the lock holds.
	locked := engine.Login(ctx, "momongar", "", "mongamonga", testIP, testDevice, LoginOptions{})
	if locked.StatusCode != 429 || !errors.Is(locked.Err, ErrPolicyDenied) {
		t.Fatalf("locked login: expected 429 ErrPolicyDenied, got %d %v", locked.StatusCode, locked.Err)
	}
}

func TestLockoutExpiresAndSuccessResetsCounter(t *testing.T) {
	provider := newMockProvider()
	var lock *AccountLock
	engine, mr := newTestEngine(t, testConfig(), provider, func(b *Builder) {
		lock = NewAccountLock(b.redis, AccountLockConfig{
			FailuresAllowed: 3,
			LockDuration:    time.Minute,
		}, nil)
		b.WithHook(HookBeforePasswordCheck, lock.BeforePasswordCheck)
		b.WithHook(HookAfterPasswordCheck, lock.AfterPasswordCheck)
	})
	ctx := context.Background()

	mustCreateMember(t, engine, "momongar", "momongar@example.com", "mongamonga", testIP, testDevice)

	for i := 0; i < 3; i++ {
		engine.Login(ctx, "momongar", "", "wrong-password", testIP, testDevice, LoginOptions{})
	}

	mr.FastForward(2 * time.Minute)

	ok := engine.Login(ctx, "momongar", "", "mongamonga", testIP, testDevice, LoginOptions{})
	if ok.StatusCode != 201 {
		t.Fatalf("post-expiry login status = %d, want 201 (err=%v)", ok.StatusCode, ok.Err)
	}

	// The success reset the history: two fresh failures stay at 401.
	for i := 0; i < 2; i++ {
		res := engine.Login(ctx, "momongar", "", "wrong-password", testIP, testDevice, LoginOptions{})
		if res.StatusCode != 401 {
			t.Fatalf("post-reset failure %d: status = %d, want 401", i+1, res.StatusCode)
		}
	}
}

func TestHookAbortStatusPropagatesVerbatim(t *testing.T) {
	provider := newMockProvider()
	engine, _ := newTestEngine(t, testConfig(), provider, func(b *Builder) {
		b.WithHook(HookBeforeSessionIssue, func(_ context.Context, state *HookState) HookDecision {
			state.Annotations["region"] = "blocked"
			return Abort(451, "region not served")
		})
	})
	ctx := context.Background()

	res := engine.CreateMember(ctx, "momongar", "momongar@example.com", "mongamonga", nil, testIP, testDevice)
	if res.StatusCode != 451 || !errors.Is(res.Err, ErrPolicyDenied) {
		t.Fatalf("expected 451 ErrPolicyDenied, got %d %v", res.StatusCode, res.Err)
	}
	if res.Body["region"] != "blocked" {
		t.Fatalf("expected hook annotation in body, got %v", res.Body)
	}
	if res.Body["reason"] != "region not served" {
		t.Fatalf("expected abort reason in body, got %v", res.Body)
	}
}

func TestHooksRunInOrderAndFirstAbortWins(t *testing.T) {
	var order []string
	engine, _ := newTestEngine(t, testConfig(), newMockProvider(), func(b *Builder) {
		b.WithHook(HookBeforePasswordCheck, func(context.Context, *HookState) HookDecision {
			order = append(order, "first")
			return Continue()
		})
		b.WithHook(HookBeforePasswordCheck, func(context.Context, *HookState) HookDecision {
			order = append(order, "second")
			return Abort(403, "denied")
		})
		b.WithHook(HookBeforePasswordCheck, func(context.Context, *HookState) HookDecision {
			order = append(order, "third")
			return Continue()
		})
	})
	ctx := context.Background()

	mustCreateMember(t, engine, "momongar", "momongar@example.com", "mongamonga", testIP, testDevice)

	res := engine.Login(ctx, "momongar", "", "mongamonga", testIP, testDevice, LoginOptions{})
	if res.StatusCode != 403 {
		t.Fatalf("status = %d, want 403", res.StatusCode)
	}
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("hook order = %v, want [first second]", order)
	}
}

func TestLoginUpgradesStaleHash(t *testing.T) {
	provider := newMockProvider()
	cfg := testConfig()
	cfg.Password.UpgradeOnLogin = true
	cfg.Password.Time = 2
	engine, _ := newTestEngine(t, cfg, provider)
	ctx := context.Background()

	memberID, _ := mustCreateMember(t, engine, "momongar", "momongar@example.com", "mongamonga", testIP, testDevice)

	// Downgrade the stored digest below the configured time cost.
	weakHasher, err := password.NewHasher(password.Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
	if err != nil {
		t.Fatalf("NewHasher failed: %v", err)
	}
	stale, err := weakHasher.Hash("mongamonga")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if err := provider.UpdatePasswordHash(ctx, memberID, stale); err != nil {
		t.Fatalf("seed stale hash failed: %v", err)
	}

	res := engine.Login(ctx, "momongar", "", "mongamonga", testIP, testDevice, LoginOptions{})
	if res.StatusCode != 201 {
		t.Fatalf("login status = %d, want 201", res.StatusCode)
	}

	after, _ := provider.get(memberID)
	if after.PasswordHash == stale {
		t.Fatal("expected stale hash to be upgraded on login")
	}
	ok, err := engine.passwordHash.Verify("mongamonga", after.PasswordHash)
	if err != nil || !ok {
		t.Fatalf("upgraded hash verify failed, ok=%v err=%v", ok, err)
	}
}
