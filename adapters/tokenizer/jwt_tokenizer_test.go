package tokenizer

import (
	"crypto/rand"
	"crypto/rsa"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/layer-3/gatekeeper/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestTokenizer(t *testing.T) (*JWTTokenizer, *fakeClock) {
	t.Helper()
	keys, err := GenerateKeyPair()
	require.NoError(t, err)
	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	return NewJWTTokenizer(keys, core.DefaultLifetimes(), WithClock(clock.Now)), clock
}

func TestIssueAndParse(t *testing.T) {
	tok, clock := newTestTokenizer(t)

	for _, aud := range []core.Audience{core.AudienceAccess, core.AudienceRefresh, core.AudienceVerification} {
		t.Run(string(aud), func(t *testing.T) {
			first, err := tok.Issue("user-1", aud, 0)
			require.NoError(t, err)
			second, err := tok.Issue("user-1", aud, 0)
			require.NoError(t, err)

			c1, err := tok.Parse(first, aud)
			require.NoError(t, err)
			c2, err := tok.Parse(second, aud)
			require.NoError(t, err)

			assert.Equal(t, "user-1", c1.Subject)
			assert.Equal(t, aud, c1.Audience)
			assert.NotEqual(t, c1.ID, c2.ID)
			assert.True(t, clock.Now().Add(tok.Lifetime(aud)).Equal(c1.ExpiresAt))
		})
	}
}

func TestParseRejectsOtherAudience(t *testing.T) {
	tok, _ := newTestTokenizer(t)
	audiences := []core.Audience{core.AudienceAccess, core.AudienceRefresh, core.AudienceVerification}

	for _, issued := range audiences {
		token, err := tok.Issue("user-1", issued, 0)
		require.NoError(t, err)

		for _, expected := range audiences {
			if expected == issued {
				continue
			}
			_, err := tok.Parse(token, expected)
			assert.ErrorIs(t, err, core.ErrInvalidToken, "%s token accepted as %s", issued, expected)
		}
	}
}

func TestParseRejectsExpired(t *testing.T) {
	tok, clock := newTestTokenizer(t)

	token, err := tok.Issue("user-1", core.AudienceVerification, 0)
	require.NoError(t, err)

	clock.Advance(4 * time.Minute)
	_, err = tok.Parse(token, core.AudienceVerification)
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)
	_, err = tok.Parse(token, core.AudienceVerification)
	assert.ErrorIs(t, err, core.ErrInvalidToken)
}

func TestIssueWithLifetimeOverride(t *testing.T) {
	tok, clock := newTestTokenizer(t)

	token, err := tok.Issue("user-1", core.AudienceAccess, time.Hour)
	require.NoError(t, err)

	claims, err := tok.Parse(token, core.AudienceAccess)
	require.NoError(t, err)
	assert.True(t, clock.Now().Add(time.Hour).Equal(claims.ExpiresAt))
}

func TestIssueUnknownAudiencePanics(t *testing.T) {
	tok, _ := newTestTokenizer(t)

	assert.Panics(t, func() {
		_, _ = tok.Issue("user-1", core.Audience("session"), 0)
	})
}

func TestParseRejectsForeignSignature(t *testing.T) {
	tok, _ := newTestTokenizer(t)
	other, _ := newTestTokenizer(t)

	token, err := other.Issue("user-1", core.AudienceAccess, 0)
	require.NoError(t, err)

	_, err = tok.Parse(token, core.AudienceAccess)
	assert.ErrorIs(t, err, core.ErrInvalidToken)
}

func TestParseRejectsMalformed(t *testing.T) {
	tok, _ := newTestTokenizer(t)

	for _, token := range []string{"", "abc", "a.b.c", strings.Repeat("x", 64)} {
		_, err := tok.Parse(token, core.AudienceAccess)
		assert.ErrorIs(t, err, core.ErrInvalidToken, "token %q", token)
	}
}

func TestParseRejectsOtherAlgorithms(t *testing.T) {
	tok, clock := newTestTokenizer(t)

	claims := TokenClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "user-1",
		ID:        "9b2f4d8e-8c1a-4c59-9f7e-3f4b1f0f2a11",
		Audience:  jwt.ClaimStrings{string(core.AudienceAccess)},
		ExpiresAt: jwt.NewNumericDate(clock.Now().Add(time.Minute)),
	}}

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = tok.Parse(unsigned, core.AudienceAccess)
	assert.ErrorIs(t, err, core.ErrInvalidToken)

	hmac, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = tok.Parse(hmac, core.AudienceAccess)
	assert.ErrorIs(t, err, core.ErrInvalidToken)
}

func TestParseRejectsMultipleAudiences(t *testing.T) {
	keys, err := GenerateKeyPair()
	require.NoError(t, err)
	tok := NewJWTTokenizer(keys, core.DefaultLifetimes())

	claims := TokenClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "user-1",
		ID:        "9b2f4d8e-8c1a-4c59-9f7e-3f4b1f0f2a11",
		Audience:  jwt.ClaimStrings{string(core.AudienceAccess), string(core.AudienceRefresh)},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}}
	token, err := jwt.NewWithClaims(keys.Method(), claims).SignedString(keys.private)
	require.NoError(t, err)

	_, err = tok.Parse(token, core.AudienceAccess)
	assert.ErrorIs(t, err, core.ErrInvalidToken)
}

func TestVerifierUsesPublicKeyOnly(t *testing.T) {
	tok, clock := newTestTokenizer(t)

	verifier, err := NewVerifier(tok.public, WithClock(clock.Now))
	require.NoError(t, err)

	token, err := tok.Issue("user-1", core.AudienceRefresh, 0)
	require.NoError(t, err)

	claims, err := verifier.Parse(token, core.AudienceRefresh)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
}

func TestRSAKeysSignWithRS256(t *testing.T) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	keys, err := NewKeyPair(privateKey)
	require.NoError(t, err)
	assert.Equal(t, "RS256", keys.Method().Alg())

	tok := NewJWTTokenizer(keys, core.DefaultLifetimes())
	token, err := tok.Issue("user-1", core.AudienceAccess, 0)
	require.NoError(t, err)

	claims, err := tok.Parse(token, core.AudienceAccess)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
}
