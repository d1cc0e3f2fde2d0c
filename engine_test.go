package authgate

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/authgate/internal/limiters"
	"github.com/MrEthical07/authgate/jwt"
	"github.com/MrEthical07/authgate/kv"
	"github.com/MrEthical07/authgate/password"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const testAppKey = "base64:dGVzdC1hcHAta2V5LXRlc3QtYXBwLWtleS0xMjM0NTY="

var testJWTSecret = []byte("0123456789abcdef0123456789abcdef")

type mockAccountStore struct {
	mu       sync.Mutex
	accounts map[string]Account
	byEmail  map[string]string

	findErr   error
	updateErr error

	updateCalls int
}

func newMockAccounts(accounts ...Account) *mockAccountStore {
	s := &mockAccountStore{
		accounts: map[string]Account{},
		byEmail:  map[string]string{},
	}
	for _, a := range accounts {
		s.accounts[a.ID] = a
		s.byEmail[a.Email] = a.ID
	}
	return s
}

func (s *mockAccountStore) FindByEmail(_ context.Context, email string) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	id, ok := s.byEmail[email]
	if !ok {
		return nil, nil
	}
	account := s.accounts[id]
	return &account, nil
}

func (s *mockAccountStore) FindByID(_ context.Context, id string) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	account, ok := s.accounts[id]
	if !ok {
		return nil, nil
	}
	return &account, nil
}

func (s *mockAccountStore) Update(_ context.Context, id string, fields AccountUpdate) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updateCalls++
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	account, ok := s.accounts[id]
	if !ok {
		return nil, nil
	}
	if fields.PasswordHash != nil {
		account.PasswordHash = *fields.PasswordHash
	}
	if fields.RememberToken != nil {
		account.RememberToken = *fields.RememberToken
	}
	if fields.EmailVerifiedAt != nil {
		t := *fields.EmailVerifiedAt
		account.EmailVerifiedAt = &t
	}
	s.accounts[id] = account
	return &account, nil
}

func (s *mockAccountStore) add(a Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[a.ID] = a
	s.byEmail[a.Email] = a.ID
}

func (s *mockAccountStore) get(id string) Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts[id]
}

type mockTokenStore struct {
	mu   sync.Mutex
	rows map[string]TokenRecord

	findErr   error
	insertErr error
	deleteErr error
}

func newMockTokens() *mockTokenStore {
	return &mockTokenStore{rows: map[string]TokenRecord{}}
}

func (s *mockTokenStore) FindByEmail(_ context.Context, email string) (*TokenRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	row, ok := s.rows[email]
	if !ok {
		return nil, nil
	}
	return &row, nil
}

func (s *mockTokenStore) FindByTokenHash(_ context.Context, tokenHash string) (*TokenRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	for _, row := range s.rows {
		if row.TokenHash == tokenHash {
			r := row
			return &r, nil
		}
	}
	return nil, nil
}

func (s *mockTokenStore) Insert(_ context.Context, record TokenRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return s.insertErr
	}
	s.rows[record.Email] = record
	return nil
}

func (s *mockTokenStore) DeleteByEmail(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.rows, email)
	return nil
}

func (s *mockTokenStore) DeleteByToken(_ context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteErr != nil {
		return s.deleteErr
	}
	for email, row := range s.rows {
		if row.TokenHash == tokenHash {
			delete(s.rows, email)
		}
	}
	return nil
}

func (s *mockTokenStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []ResetNotification
	err  error
}

func (m *recordingMailer) Queue(n ResetNotification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, n)
	return nil
}

func (m *recordingMailer) notifications() []ResetNotification {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ResetNotification, len(m.sent))
	copy(out, m.sent)
	return out
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Unix(1700000000, 0).UTC()}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
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

func newTestHasher(t *testing.T) *password.Argon2 {
	t.Helper()

	h, err := password.NewArgon2(password.Config{
		Memory:      8192,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   16,
	})
	if err != nil {
		t.Fatalf("NewArgon2 failed: %v", err)
	}
	return h
}

func newTestJWT(t *testing.T, clk *fakeClock) *jwt.Manager {
	t.Helper()

	m, err := jwt.NewManager(jwt.Config{
		Secret:    testJWTSecret,
		AccessTTL: 15 * time.Minute,
		Issuer:    "authgate-test",
	}, clk.Now)
	if err != nil {
		t.Fatalf("jwt.NewManager failed: %v", err)
	}
	return m
}

type testEngine struct {
	engine   *Engine
	clock    *fakeClock
	accounts *mockAccountStore
	tokens   *mockTokenStore
	mail     *recordingMailer
}

func newTestEngine(t *testing.T, rdb *redis.Client, accounts *mockAccountStore) *testEngine {
	t.Helper()

	clk := newFakeClock()
	tokens := newMockTokens()
	mail := &recordingMailer{}

	cfg := defaultConfig()
	cfg.AppKey = testAppKey
	cfg.PasswordReset.ResetBaseURL = "https://app.test/reset"
	cfg.JWT.Secret = testJWTSecret

	store := kv.NewRedisStore(rdb, "ag")

	engine := &Engine{
		config:     cfg,
		accounts:   accounts,
		tokens:     tokens,
		hasher:     newTestHasher(t),
		jwtManager: newTestJWT(t, clk),
		mailer:     mail,
		secret:     StaticSecret(cfg.AppKey),
		clock:      clk.Now,
		log:        zerolog.Nop(),
		validate:   validator.New(),
		metrics:    NewMetrics(cfg.Metrics),
		throttle: limiters.NewLoginThrottle(store, clk.Now, limiters.LoginThrottleConfig{
			MaxAttempts: cfg.Login.MaxAttempts,
			DecayWindow: cfg.Login.DecayWindow,
		}),
	}

	return &testEngine{
		engine:   engine,
		clock:    clk,
		accounts: accounts,
		tokens:   tokens,
		mail:     mail,
	}
}

func seedAccount(t *testing.T, hasher *password.Argon2, id, email, plaintext string) Account {
	t.Helper()

	hash, err := hasher.Hash(plaintext)
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	return Account{ID: id, Email: email, PasswordHash: hash}
}
