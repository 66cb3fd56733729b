package goMember

import (
	"context"
	"errors"
	"testing"
)

const (
	testIP     = "203.0.113.9"
	testDevice = "device-fp-1"
)

func TestFindMemberReportsAvailability(t *testing.T) {
	engine, _ := newTestEngine(t, testConfig(), newMockProvider())
	ctx := context.Background()

	res := engine.FindMember(ctx, "momongar")
	if res.StatusCode != 200 {
		t.Fatalf("free name status = %d, want 200", res.StatusCode)
	}
	if avail, _ := res.Body["available"].(bool); !avail {
		t.Fatal("expected available=true for free name")
	}

	mustCreateMember(t, engine, "momongar", "momongar@example.com", "mongamonga", testIP, testDevice)

	res = engine.FindMember(ctx, "momongar")
	if res.StatusCode != 409 {
		t.Fatalf("taken name status = %d, want 409", res.StatusCode)
	}
	if !errors.Is(res.Err, ErrNameTaken) {
		t.Fatalf("expected ErrNameTaken, got %v", res.Err)
	}
}

func TestFindMemberRejectsInvalidName(t *testing.T) {
	engine, _ := newTestEngine(t, testConfig(), newMockProvider())

	res := engine.FindMember(context.Background(), "ab")
	if res.StatusCode != 400 || !errors.Is(res.Err, ErrValidation) {
		t.Fatalf("expected 400 ErrValidation, got %d %v", res.StatusCode, res.Err)
	}
}

func TestCreateMemberIssuesSessionAndHashesPassword(t *testing.T) {
	provider := newMockProvider()
	engine, _ := newTestEngine(t, testConfig(), provider)
	ctx := context.Background()

	memberID, sessionToken := mustCreateMember(t, engine, "momongar", "momongar@example.com", "mongamonga", testIP, testDevice)

	stored, ok := provider.get(memberID)
	if !ok {
		t.Fatal("expected member row to exist")
	}
	if stored.PasswordHash == "" || stored.PasswordHash == "mongamonga" {
		t.Fatal("expected stored password to be hashed")
	}
	verified, err := engine.passwordHash.Verify("mongamonga", stored.PasswordHash)
	if err != nil || !verified {
		t.Fatalf("stored hash verify failed, ok=%v err=%v", verified, err)
	}

	sessRes := engine.Session(ctx, sessionToken, testIP, testDevice)
	if sessRes.StatusCode != 200 {
		t.Fatalf("Session status = %d, want 200", sessRes.StatusCode)
	}
	if got, _ := sessRes.Body["member_id"].(string); got != memberID {
		t.Fatalf("session bound to %q, want %q", got, memberID)
	}
}

func TestCreateMemberDuplicateName(t *testing.T) {
	engine, _ := newTestEngine(t, testConfig(), newMockProvider())
	ctx := context.Background()

	mustCreateMember(t, engine, "momongar", "momongar@example.com", "mongamonga", testIP, testDevice)

	res := engine.CreateMember(ctx, "momongar", "other@example.com", "mongamonga", nil, testIP, testDevice)
	if res.StatusCode != 409 || !errors.Is(res.Err, ErrNameTaken) {
		t.Fatalf("expected 409 ErrNameTaken, got %d %v", res.StatusCode, res.Err)
	}

	res = engine.CreateMember(ctx, "otherone", "momongar@example.com", "mongamonga", nil, testIP, testDevice)
	if res.StatusCode != 409 || !errors.Is(res.Err, ErrEmailTaken) {
		t.Fatalf("expected 409 ErrEmailTaken, got %d %v", res.StatusCode, res.Err)
	}
}

func TestCreateMemberValidation(t *testing.T) {
	engine, _ := newTestEngine(t, testConfig(), newMockProvider())
	ctx := context.Background()

	cases := []struct {
		name  string
		email string
		pass  string
	}{
		{"ab", "a@example.com", "longenough"},
		{"validname", "not-an-email", "longenough"},
		{"validname", "a@example.com", "short"},
	}
	for _, tc := range cases {
		res := engine.CreateMember(ctx, tc.name, tc.email, tc.pass, nil, testIP, testDevice)
		if res.StatusCode != 400 || !errors.Is(res.Err, ErrValidation) {
			t.Fatalf("input (%q,%q,%q): expected 400 ErrValidation, got %d %v",
				tc.name, tc.email, tc.pass, res.StatusCode, res.Err)
		}
	}
}

func TestGetPropsExcludesPasswordHash(t *testing.T) {
	engine, _ := newTestEngine(t, testConfig(), newMockProvider())
	ctx := context.Background()

	_, sessionToken := mustCreateMember(t, engine, "momongar", "momongar@example.com", "mongamonga", testIP, testDevice)

	res := engine.GetProps(ctx, sessionToken, testIP, testDevice)
	if res.StatusCode != 200 {
		t.Fatalf("GetProps status = %d, want 200", res.StatusCode)
	}
	if got, _ := res.Body["name"].(string); got != "momongar" {
		t.Fatalf("name = %q, want momongar", got)
	}
	for key := range res.Body {
		if key == "password_hash" || key == "pass" {
			t.Fatalf("body leaks credential field %q", key)
		}
	}
}

func TestUpdateCustomMergeAndClear(t *testing.T) {
	provider := newMockProvider()
	engine, _ := newTestEngine(t, testConfig(), provider)
	ctx := context.Background()

	memberID, sessionToken := mustCreateMember(t, engine, "momongar", "momongar@example.com", "mongamonga", testIP, testDevice)

	res := engine.UpdateCustom(ctx, sessionToken, testIP, testDevice,
		map[string]string{"plan": "gold", "color": "red"}, UpdateCustomOptions{})
	if res.StatusCode != 200 {
		t.Fatalf("merge status = %d, want 200", res.StatusCode)
	}

	res = engine.UpdateCustom(ctx, sessionToken, testIP, testDevice,
		map[string]string{"plan": "silver"}, UpdateCustomOptions{})
	if res.StatusCode != 200 {
		t.Fatalf("second merge status = %d, want 200", res.StatusCode)
	}
	stored, _ := provider.get(memberID)
	if stored.Custom["plan"] != "silver" || stored.Custom["color"] != "red" {
		t.Fatalf("merge result = %v, want plan=silver color=red", stored.Custom)
	}

	res = engine.UpdateCustom(ctx, sessionToken, testIP, testDevice,
		map[string]string{"only": "this"}, UpdateCustomOptions{Clear: true})
	if res.StatusCode != 200 {
		t.Fatalf("clear status = %d, want 200", res.StatusCode)
	}
	stored, _ = provider.get(memberID)
	if len(stored.Custom) != 1 || stored.Custom["only"] != "this" {
		t.Fatalf("clear result = %v, want only=this", stored.Custom)
	}
}

func TestDeleteMemberRevokesEverySession(t *testing.T) {
	provider := newMockProvider()
	cfg := testConfig()
	cfg.Session.AllowMultiplePerDevice = true
	engine, _ := newTestEngine(t, cfg, provider)
	ctx := context.Background()

	memberID, firstToken := mustCreateMember(t, engine, "momongar", "momongar@example.com", "mongamonga", testIP, testDevice)

	login := engine.Login(ctx, "momongar", "", "mongamonga", testIP, testDevice, LoginOptions{})
	if login.StatusCode != 201 {
		t.Fatalf("Login status = %d, want 201", login.StatusCode)
	}
	secondToken, _ := login.Body["session_token"].(string)

	res := engine.DeleteMember(ctx, firstToken, testIP, testDevice)
	if res.StatusCode != 204 {
		t.Fatalf("DeleteMember status = %d, want 204", res.StatusCode)
	}

	if _, ok := provider.get(memberID); ok {
		t.Fatal("expected member row to be removed")
	}
	for _, tok := range []string{firstToken, secondToken} {
		check := engine.Session(ctx, tok, testIP, testDevice)
		if check.StatusCode != 401 {
			t.Fatalf("surviving session answered %d, want 401", check.StatusCode)
		}
	}
}

func TestDeleteMemberRequiresValidSession(t *testing.T) {
	engine, _ := newTestEngine(t, testConfig(), newMockProvider())

	res := engine.DeleteMember(context.Background(), "no-such-token", testIP, testDevice)
	if res.StatusCode != 401 || !errors.Is(res.Err, ErrSessionNotFound) {
		t.Fatalf("expected 401 ErrSessionNotFound, got %d %v", res.StatusCode, res.Err)
	}
}
