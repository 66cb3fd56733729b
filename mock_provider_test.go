package goMember

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type mockMemberProvider struct {
	mu      sync.Mutex
	members map[string]Member
	byName  map[string]string
	byEmail map[string]string

	failNext error
}

func newMockProvider() *mockMemberProvider {
	return &mockMemberProvider{
		members: map[string]Member{},
		byName:  map[string]string{},
		byEmail: map[string]string{},
	}
}

func (m *mockMemberProvider) takeErr() error {
	err := m.failNext
	m.failNext = nil
	return err
}

func (m *mockMemberProvider) GetByName(_ context.Context, name string) (Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeErr(); err != nil {
		return Member{}, err
	}
	id, ok := m.byName[name]
	if !ok {
		return Member{}, ErrMemberNotFound
	}
	return m.members[id], nil
}

func (m *mockMemberProvider) GetByEmail(_ context.Context, email string) (Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeErr(); err != nil {
		return Member{}, err
	}
	id, ok := m.byEmail[email]
	if !ok {
		return Member{}, ErrMemberNotFound
	}
	return m.members[id], nil
}

func (m *mockMemberProvider) GetByID(_ context.Context, id string) (Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeErr(); err != nil {
		return Member{}, err
	}
	rec, ok := m.members[id]
	if !ok {
		return Member{}, ErrMemberNotFound
	}
	return rec, nil
}

func (m *mockMemberProvider) Create(_ context.Context, in CreateMemberInput) (Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeErr(); err != nil {
		return Member{}, err
	}
	if _, ok := m.byName[in.Name]; ok {
		return Member{}, ErrProviderDuplicateName
	}
	if _, ok := m.byEmail[in.Email]; ok {
		return Member{}, ErrProviderDuplicateEmail
	}
	rec := Member{
		ID:               in.ID,
		Name:             in.Name,
		Email:            in.Email,
		PasswordHash:     in.PasswordHash,
		Custom:           in.Custom,
		Status:           in.Status,
		TwoFactorEnabled: in.TwoFactorEnabled,
		CreatedAt:        time.Now(),
	}
	m.members[rec.ID] = rec
	m.byName[rec.Name] = rec.ID
	m.byEmail[rec.Email] = rec.ID
	return rec, nil
}

func (m *mockMemberProvider) UpdateStatus(_ context.Context, id string, status MemberStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.members[id]
	if !ok {
		return ErrMemberNotFound
	}
	rec.Status = status
	m.members[id] = rec
	return nil
}

func (m *mockMemberProvider) UpdatePasswordHash(_ context.Context, id string, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.members[id]
	if !ok {
		return ErrMemberNotFound
	}
	rec.PasswordHash = hash
	m.members[id] = rec
	return nil
}

func (m *mockMemberProvider) UpdateCustom(_ context.Context, id string, fields map[string]string, clear bool) (Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.members[id]
	if !ok {
		return Member{}, ErrMemberNotFound
	}
	if clear || rec.Custom == nil {
		rec.Custom = map[string]string{}
	}
	for k, v := range fields {
		rec.Custom[k] = v
	}
	m.members[id] = rec
	return rec, nil
}

func (m *mockMemberProvider) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.members[id]
	if !ok {
		return ErrMemberNotFound
	}
	delete(m.members, id)
	delete(m.byName, rec.Name)
	delete(m.byEmail, rec.Email)
	return nil
}

func (m *mockMemberProvider) Truncate(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.members = map[string]Member{}
	m.byName = map[string]string{}
	m.byEmail = map[string]string{}
	return nil
}

func (m *mockMemberProvider) get(id string) (Member, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.members[id]
	return rec, ok
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, client
}

func testConfig() Config {
	cfg := defaultConfig()
	cfg.Token.PrivateKey = []byte("test-secret")
	// Low-cost argon2 keeps the suite fast.
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	return cfg
}

func newTestEngine(t *testing.T, cfg Config, provider MemberProvider, opts ...func(*Builder)) (*Engine, *miniredis.Miniredis) {
	t.Helper()

	mr, rdb := newTestRedis(t)
	t.Cleanup(mr.Close)

	builder := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithMemberProvider(provider)
	for _, opt := range opts {
		opt(builder)
	}

	engine, err := builder.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return engine, mr
}

func mustCreateMember(t *testing.T, engine *Engine, name, email, pass, ip, device string) (string, string) {
	t.Helper()

	res := engine.CreateMember(context.Background(), name, email, pass, nil, ip, device)
	if res.StatusCode != 201 {
		t.Fatalf("CreateMember status = %d, want 201 (err=%v)", res.StatusCode, res.Err)
	}
	memberID, _ := res.Body["member_id"].(string)
	sessionToken, _ := res.Body["session_token"].(string)
	if memberID == "" || sessionToken == "" {
		t.Fatalf("CreateMember body missing ids: %v", res.Body)
	}
	return memberID, sessionToken
}
