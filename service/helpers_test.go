package service

import (
	"context"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/layer-3/gatekeeper/adapters/hasher"
	"github.com/layer-3/gatekeeper/adapters/store"
	"github.com/layer-3/gatekeeper/adapters/tokenizer"
	"github.com/layer-3/gatekeeper/adapters/users"
	"github.com/layer-3/gatekeeper/core"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testPassword = "Secret1"

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []core.Email
	err  error
}

func (m *fakeMailer) Send(_ context.Context, email core.Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, email)
	return m.err
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func (m *fakeMailer) last(t *testing.T) core.Email {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent)
	return m.sent[len(m.sent)-1]
}

func (m *fakeMailer) lastToken(t *testing.T) string {
	t.Helper()
	link, err := url.Parse(m.last(t).Variables["verification_link"])
	require.NoError(t, err)
	return link.Query().Get("token")
}

type fixture struct {
	svc       *AuthService
	clock     *fakeClock
	store     *store.MemoryStore
	users     *users.MemoryRepository
	tokenizer *tokenizer.JWTTokenizer
	mailer    *fakeMailer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	keys, err := tokenizer.GenerateKeyPair()
	require.NoError(t, err)

	f := &fixture{
		clock:  newFakeClock(),
		users:  users.NewMemoryRepository(),
		mailer: &fakeMailer{},
	}
	f.store = store.NewMemoryStore(store.WithMemoryClock(f.clock.Now))
	f.tokenizer = tokenizer.NewJWTTokenizer(keys, core.DefaultLifetimes(), tokenizer.WithClock(f.clock.Now))
	f.svc = NewAuthService(
		f.tokenizer,
		f.store,
		f.users,
		hasher.NewBcryptHasher(bcrypt.MinCost),
		f.mailer,
		Config{ServerHost: "http://localhost:9000/"},
		WithClock(f.clock.Now),
	)
	t.Cleanup(f.svc.Wait)
	return f
}

// register creates an inactive user.
func (f *fixture) register(t *testing.T, email string) string {
	t.Helper()
	id, err := f.svc.Register(context.Background(), core.NewUser{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     email,
		Password:  testPassword,
	})
	require.NoError(t, err)
	f.svc.Wait()
	return id
}

// activeUser creates a verified user.
func (f *fixture) activeUser(t *testing.T, email string) string {
	t.Helper()
	id := f.register(t, email)
	require.NoError(t, f.svc.Verify(context.Background(), f.mailer.lastToken(t)))
	return id
}

func (f *fixture) login(t *testing.T, email, password string) *LoginResult {
	t.Helper()
	result, err := f.svc.Login(context.Background(), "mobile", email, password)
	require.NoError(t, err)
	f.svc.Wait()
	return result
}
