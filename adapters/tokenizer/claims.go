package tokenizer

import (
	"crypto/rand"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/layer-3/gatekeeper/core"
)

// TokenClaims are the registered claims every audience carries. The
// audience itself tells access, refresh and verification tokens apart.
type TokenClaims struct {
	jwt.RegisteredClaims
}

// toCore validates the decoded claims against the expected audience.
func (c *TokenClaims) toCore(expected core.Audience) (*core.Claims, error) {
	if len(c.Audience) != 1 || c.Audience[0] != string(expected) {
		return nil, fmt.Errorf("audience %v, want %q", []string(c.Audience), expected)
	}
	if c.Subject == "" {
		return nil, fmt.Errorf("missing subject")
	}
	if _, err := uuid.Parse(c.ID); err != nil {
		return nil, fmt.Errorf("malformed token id: %w", err)
	}
	if c.ExpiresAt == nil {
		return nil, fmt.Errorf("missing expiry")
	}

	return &core.Claims{
		ID:        c.ID,
		Subject:   c.Subject,
		Audience:  expected,
		ExpiresAt: c.ExpiresAt.Time,
	}, nil
}

// newTokenID returns 128 random bits in UUID text form.
func newTokenID() (string, error) {
	var id uuid.UUID
	if _, err := rand.Read(id[:]); err != nil {
		return "", fmt.Errorf("failed to generate token id: %w", err)
	}
	return id.String(), nil
}
