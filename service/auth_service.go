package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/layer-3/gatekeeper/core"
	"github.com/layer-3/gatekeeper/ports"
)

// DefaultRequestLimit caps email-sending attempts per counter window
const DefaultRequestLimit = 10

func resetKey(subject string) string {
	return "reset:" + subject
}

// Config holds the policy knobs of the auth flows
type Config struct {
	// ServerHost is the public base URL used in email links
	ServerHost string
	// Devices is the allowed set of client classes
	Devices []core.Device
	// RequestLimit is passed to the rate limiter as its max attempts
	RequestLimit int
	// CounterWindow is the lifetime of the attempt counter
	CounterWindow time.Duration
	// MailTimeout bounds one email hand-off
	MailTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if len(c.Devices) == 0 {
		c.Devices = core.DefaultDevices
	}
	if c.RequestLimit <= 0 {
		c.RequestLimit = DefaultRequestLimit
	}
	if c.CounterWindow <= 0 {
		c.CounterWindow = DefaultCounterWindow
	}
	if c.MailTimeout <= 0 {
		c.MailTimeout = 10 * time.Second
	}
	return c
}

// Option configures an AuthService
type Option func(*AuthService)

// WithLogger sets the service logger.
func WithLogger(logger logr.Logger) Option {
	return func(s *AuthService) {
		s.logger = logger
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *AuthService) {
		s.now = now
	}
}

// AuthService handles authentication business logic
type AuthService struct {
	tokenizer   ports.Tokenizer
	store       ports.Store
	users       ports.UserRepository
	hasher      ports.PasswordHasher
	mailer      ports.Mailer
	revocations *Revocations
	limiter     *RateLimiter

	cfg    Config
	logger logr.Logger
	now    func() time.Time
	emails sync.WaitGroup
}

// NewAuthService creates a new authentication service
func NewAuthService(
	tokenizer ports.Tokenizer,
	store ports.Store,
	users ports.UserRepository,
	hasher ports.PasswordHasher,
	mailer ports.Mailer,
	cfg Config,
	opts ...Option,
) *AuthService {
	cfg = cfg.withDefaults()
	s := &AuthService{
		tokenizer:   tokenizer,
		store:       store,
		users:       users,
		hasher:      hasher,
		mailer:      mailer,
		revocations: NewRevocations(store),
		limiter:     NewRateLimiter(store, cfg.CounterWindow),
		cfg:         cfg,
		logger:      logr.Discard(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoginResult is the outcome of a successful login. Pending is set when the
// account is not verified yet; no tokens are issued then.
type LoginResult struct {
	UserID       string
	Device       core.Device
	Pending      bool
	AccessToken  string
	RefreshToken string
}

// Register creates an inactive user and mails a verification link.
func (s *AuthService) Register(ctx context.Context, in core.NewUser) (string, error) {
	if err := in.Validate(); err != nil {
		return "", err
	}

	_, err := s.users.FindByEmail(ctx, in.Email)
	if err == nil {
		return "", core.ErrEmailTaken
	}
	if !errors.Is(err, core.ErrUserNotFound) {
		return "", err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	user := &core.User{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	id, err := s.users.Create(context.WithoutCancel(ctx), user)
	if err != nil {
		return "", err
	}

	token, err := s.tokenizer.Issue(id, core.AudienceVerification, 0)
	if err != nil {
		return "", fmt.Errorf("failed to create verification token: %w", err)
	}
	s.dispatch(ctx, s.verificationEmail(in.FirstName, in.Email, token))

	s.logger.V(1).Info("user registered", "user", id)
	return id, nil
}

// Login checks credentials. Inactive users get a fresh verification email,
// subject to the rate limiter; active users get access and refresh tokens.
func (s *AuthService) Login(ctx context.Context, device, email, password string) (*LoginResult, error) {
	dev, err := core.ParseDevice(device, s.cfg.Devices)
	if err != nil {
		return nil, err
	}

	user, err := s.authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}

	if !user.Active {
		if err := s.limiter.TryAcquire(ctx, user.ID, s.cfg.RequestLimit, s.tokenizer.Lifetime(core.AudienceVerification)); err != nil {
			return nil, err
		}
		token, err := s.tokenizer.Issue(user.ID, core.AudienceVerification, 0)
		if err != nil {
			_ = s.limiter.Release(context.WithoutCancel(ctx), user.ID)
			return nil, fmt.Errorf("failed to create verification token: %w", err)
		}
		s.dispatch(ctx, s.verificationEmail(user.FirstName, user.Email, token))
		return &LoginResult{UserID: user.ID, Device: dev, Pending: true}, nil
	}

	access, err := s.tokenizer.Issue(user.ID, core.AudienceAccess, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to create access token: %w", err)
	}
	refresh, err := s.tokenizer.Issue(user.ID, core.AudienceRefresh, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to create refresh token: %w", err)
	}

	s.logger.V(1).Info("user logged in", "user", user.ID, "device", dev)
	return &LoginResult{
		UserID:       user.ID,
		Device:       dev,
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}

// Verify activates the account named by a verification token.
func (s *AuthService) Verify(ctx context.Context, token string) error {
	claims, user, err := s.resolve(ctx, token, core.AudienceVerification)
	if err != nil {
		return err
	}
	if user.Active {
		return core.ErrAlreadyActivated
	}

	ctx = context.WithoutCancel(ctx)
	if err := s.revoke(ctx, claims); err != nil {
		return err
	}
	active := true
	if err := s.users.Update(ctx, user.ID, core.UserUpdate{Active: &active}); err != nil {
		return err
	}

	s.logger.V(1).Info("user activated", "user", user.ID)
	return nil
}

// Refresh issues a new access token. The refresh token is not rotated.
func (s *AuthService) Refresh(ctx context.Context, device, refreshToken string) (core.Device, string, error) {
	dev, err := core.ParseDevice(device, s.cfg.Devices)
	if err != nil {
		return "", "", err
	}

	_, user, err := s.resolve(ctx, refreshToken, core.AudienceRefresh)
	if err != nil {
		return "", "", err
	}

	access, err := s.tokenizer.Issue(user.ID, core.AudienceAccess, 0)
	if err != nil {
		return "", "", fmt.Errorf("failed to create access token: %w", err)
	}
	return dev, access, nil
}

// Authenticate resolves the user behind an access token.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*core.User, error) {
	_, user, err := s.resolve(ctx, accessToken, core.AudienceAccess)
	return user, err
}

// GetUser returns the user at userID if the access token belongs to it.
func (s *AuthService) GetUser(ctx context.Context, accessToken, userID string) (*core.User, error) {
	return s.authorize(ctx, accessToken, userID)
}

// UpdateProfile changes the names of the user at userID.
func (s *AuthService) UpdateProfile(ctx context.Context, accessToken, userID string, firstName, lastName *string) error {
	update := core.UserUpdate{FirstName: firstName, LastName: lastName}
	if err := update.Validate(); err != nil {
		return err
	}

	user, err := s.authorize(ctx, accessToken, userID)
	if err != nil {
		return err
	}
	return s.users.Update(context.WithoutCancel(ctx), user.ID, update)
}

// DeleteUser removes the account owning refreshToken and revokes that token.
func (s *AuthService) DeleteUser(ctx context.Context, refreshToken, userID string) error {
	claims, user, err := s.resolve(ctx, refreshToken, core.AudienceRefresh)
	if err != nil {
		return err
	}
	if user.ID != userID {
		return core.ErrAuthorizationMismatch
	}

	ctx = context.WithoutCancel(ctx)
	if err := s.revoke(ctx, claims); err != nil {
		return err
	}
	if err := s.users.Delete(ctx, user.ID); err != nil {
		return err
	}
	if err := s.limiter.Forget(ctx, user.ID); err != nil {
		s.logger.Error(err, "failed to drop rate limit counter", "user", user.ID)
	}

	s.logger.V(1).Info("user deleted", "user", user.ID)
	return nil
}

// RequestPasswordReset stashes the hash of newPassword and mails a
// confirmation link. The plaintext is only held for the hashing call.
func (s *AuthService) RequestPasswordReset(ctx context.Context, accessToken, userID, oldPassword, newPassword string) error {
	if err := core.ValidatePassword(oldPassword); err != nil {
		return err
	}
	if err := core.ValidatePassword(newPassword); err != nil {
		return err
	}

	user, err := s.authorize(ctx, accessToken, userID)
	if err != nil {
		return err
	}
	if newPassword == oldPassword {
		return core.ErrPasswordReused
	}
	ok, err := s.hasher.Verify(oldPassword, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		return core.ErrWrongPassword
	}

	verificationTTL := s.tokenizer.Lifetime(core.AudienceVerification)
	if err := s.limiter.TryAcquire(ctx, user.ID, s.cfg.RequestLimit, verificationTTL); err != nil {
		return err
	}

	ctx = context.WithoutCancel(ctx)
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		_ = s.limiter.Release(ctx, user.ID)
		return fmt.Errorf("failed to hash password: %w", err)
	}
	token, err := s.tokenizer.Issue(user.ID, core.AudienceVerification, 0)
	if err != nil {
		_ = s.limiter.Release(ctx, user.ID)
		return fmt.Errorf("failed to create verification token: %w", err)
	}
	if err := s.store.Set(ctx, resetKey(user.ID), hash, verificationTTL); err != nil {
		_ = s.limiter.Release(ctx, user.ID)
		return err
	}

	s.dispatch(ctx, s.resetPasswordEmail(user, token))
	return nil
}

// ConfirmPasswordReset applies the stashed password hash.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, token, userID string) error {
	claims, user, err := s.resolve(ctx, token, core.AudienceVerification)
	if err != nil {
		return err
	}
	if user.ID != userID {
		return core.ErrAuthorizationMismatch
	}

	hash, ok, err := s.store.Get(ctx, resetKey(user.ID))
	if err != nil {
		return err
	}
	if !ok {
		return core.ErrResetNotFound
	}

	ctx = context.WithoutCancel(ctx)
	if err := s.revoke(ctx, claims); err != nil {
		return err
	}
	if err := s.users.Update(ctx, user.ID, core.UserUpdate{PasswordHash: &hash}); err != nil {
		return err
	}
	if err := s.store.Del(ctx, resetKey(user.ID)); err != nil {
		return err
	}
	if err := s.limiter.Release(ctx, user.ID); err != nil {
		return err
	}

	s.logger.V(1).Info("password reset", "user", user.ID)
	return nil
}

// PurgeInactive deletes accounts still unverified after maxAge.
func (s *AuthService) PurgeInactive(ctx context.Context, maxAge time.Duration) (int64, error) {
	return s.users.PurgeInactive(ctx, s.now().Add(-maxAge))
}

// Wait blocks until every scheduled email has been handed off.
func (s *AuthService) Wait() {
	s.emails.Wait()
}

func (s *AuthService) authenticate(ctx context.Context, email, password string) (*core.User, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, core.ErrUserNotFound) {
		return nil, core.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		return nil, core.ErrInvalidCredentials
	}
	return user, nil
}

// resolve parses a token for audience, rejects revoked identifiers and loads
// the subject.
func (s *AuthService) resolve(ctx context.Context, token string, audience core.Audience) (*core.Claims, *core.User, error) {
	claims, err := s.tokenizer.Parse(token, audience)
	if err != nil {
		return nil, nil, err
	}

	revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, nil, err
	}
	if revoked {
		return nil, nil, core.ErrTokenRevoked
	}

	user, err := s.users.FindByID(ctx, claims.Subject)
	if err != nil {
		return nil, nil, err
	}
	return claims, user, nil
}

func (s *AuthService) authorize(ctx context.Context, accessToken, userID string) (*core.User, error) {
	user, err := s.Authenticate(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	if user.ID != userID {
		return nil, core.ErrAuthorizationMismatch
	}
	return user, nil
}

// revoke denylists the token for its audience lifetime, or longer if the
// token was issued with a longer override.
func (s *AuthService) revoke(ctx context.Context, claims *core.Claims) error {
	ttl := s.tokenizer.Lifetime(claims.Audience)
	if remaining := claims.Remaining(s.now()); remaining > ttl {
		ttl = remaining
	}
	return s.revocations.Revoke(ctx, claims.ID, ttl)
}
