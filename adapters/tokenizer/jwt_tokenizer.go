package tokenizer

import (
	"crypto"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/layer-3/gatekeeper/core"
	"github.com/layer-3/gatekeeper/ports"
)

// Option configures a Verifier or JWTTokenizer
type Option func(*Verifier)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) {
		v.now = now
	}
}

// Verifier checks tokens using only the public half of the key pair
type Verifier struct {
	public crypto.PublicKey
	method jwt.SigningMethod
	now    func() time.Time
}

// NewVerifier builds a verify-only codec, for services that must check
// tokens without being able to mint them.
func NewVerifier(public crypto.PublicKey, opts ...Option) (*Verifier, error) {
	method, err := methodForKey(public)
	if err != nil {
		return nil, err
	}
	v := &Verifier{public: public, method: method, now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Parse verifies the signature, expiry and audience of a token.
func (v *Verifier) Parse(tokenStr string, audience core.Audience) (*core.Claims, error) {
	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, v.keyFunc,
		jwt.WithValidMethods([]string{v.method.Alg()}),
		jwt.WithAudience(string(audience)),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return nil, core.Wrap(core.CodeInvalidToken, core.ErrInvalidToken.Message, err)
	}
	if !token.Valid {
		return nil, core.ErrInvalidToken
	}

	result, err := claims.toCore(audience)
	if err != nil {
		return nil, core.Wrap(core.CodeInvalidToken, core.ErrInvalidToken.Message, err)
	}
	return result, nil
}

func (v *Verifier) keyFunc(token *jwt.Token) (interface{}, error) {
	if token.Method.Alg() != v.method.Alg() {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return v.public, nil
}

// JWTTokenizer implements the Tokenizer interface using JWT
type JWTTokenizer struct {
	*Verifier
	private   crypto.Signer
	lifetimes core.Lifetimes
}

var _ ports.Tokenizer = (*JWTTokenizer)(nil)

// NewJWTTokenizer creates a tokenizer signing with keys.
func NewJWTTokenizer(keys *KeyPair, lifetimes core.Lifetimes, opts ...Option) *JWTTokenizer {
	v := &Verifier{public: keys.public, method: keys.method, now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return &JWTTokenizer{
		Verifier:  v,
		private:   keys.private,
		lifetimes: lifetimes,
	}
}

// Issue signs a new token for subject. A zero lifetime selects the audience
// default; an unknown audience without a lifetime panics.
func (j *JWTTokenizer) Issue(subject string, audience core.Audience, lifetime time.Duration) (string, error) {
	if lifetime == 0 {
		lifetime = j.lifetimes.For(audience)
	}

	id, err := newTokenID()
	if err != nil {
		return "", err
	}

	now := j.now()
	claims := TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        id,
			Audience:  jwt.ClaimStrings{string(audience)},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(lifetime)),
		},
	}

	token := jwt.NewWithClaims(j.method, claims)

	signedToken, err := token.SignedString(j.private)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", audience, err)
	}

	return signedToken, nil
}

// Lifetime returns the default lifetime of audience.
func (j *JWTTokenizer) Lifetime(audience core.Audience) time.Duration {
	return j.lifetimes.For(audience)
}
