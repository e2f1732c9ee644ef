package tokenizer

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrUnsupportedKey = errors.New("unsupported key type")
	ErrKeyMismatch    = errors.New("public key does not match private key")
)

// KeyPair is the process-wide signing key material. It is immutable after
// construction and safe for concurrent use.
type KeyPair struct {
	private crypto.Signer
	public  crypto.PublicKey
	method  jwt.SigningMethod
}

// NewKeyPair wraps a private key. ECDSA P-256 keys sign with ES256, RSA keys
// with RS256.
func NewKeyPair(private crypto.Signer) (*KeyPair, error) {
	method, err := methodForKey(private.Public())
	if err != nil {
		return nil, err
	}
	return &KeyPair{private: private, public: private.Public(), method: method}, nil
}

// GenerateKeyPair creates a fresh ECDSA P-256 pair.
func GenerateKeyPair() (*KeyPair, error) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return NewKeyPair(privateKey)
}

// DefaultRSABits is the key size GenerateRSAKeyPair is used with by default
const DefaultRSABits = 2048

// GenerateRSAKeyPair creates a fresh RSA pair signing with RS256.
func GenerateRSAKeyPair(bits int) (*KeyPair, error) {
	if bits < DefaultRSABits {
		return nil, fmt.Errorf("rsa keys need at least %d bits, got %d", DefaultRSABits, bits)
	}
	privateKey, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("failed to generate rsa key: %w", err)
	}
	return NewKeyPair(privateKey)
}

// ParseKeyPair decodes PEM key material and checks both halves belong together.
func ParseKeyPair(privatePEM, publicPEM []byte) (*KeyPair, error) {
	var private crypto.Signer
	if key, err := jwt.ParseECPrivateKeyFromPEM(privatePEM); err == nil {
		private = key
	} else if key, rsaErr := jwt.ParseRSAPrivateKeyFromPEM(privatePEM); rsaErr == nil {
		private = key
	} else {
		return nil, fmt.Errorf("failed to parse private key: %w", errors.Join(err, rsaErr))
	}

	pair, err := NewKeyPair(private)
	if err != nil {
		return nil, err
	}

	public, _, err := ParsePublicKey(publicPEM)
	if err != nil {
		return nil, err
	}
	if !publicKeysEqual(pair.public, public) {
		return nil, ErrKeyMismatch
	}
	return pair, nil
}

// LoadKeyPair reads PEM files from disk.
func LoadKeyPair(privatePath, publicPath string) (*KeyPair, error) {
	privatePEM, err := os.ReadFile(privatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key: %w", err)
	}
	publicPEM, err := os.ReadFile(publicPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read public key: %w", err)
	}
	return ParseKeyPair(privatePEM, publicPEM)
}

// ParsePublicKey decodes a PEM public key and returns its signing method.
func ParsePublicKey(publicPEM []byte) (crypto.PublicKey, jwt.SigningMethod, error) {
	var public crypto.PublicKey
	if key, err := jwt.ParseECPublicKeyFromPEM(publicPEM); err == nil {
		public = key
	} else if key, rsaErr := jwt.ParseRSAPublicKeyFromPEM(publicPEM); rsaErr == nil {
		public = key
	} else {
		return nil, nil, fmt.Errorf("failed to parse public key: %w", errors.Join(err, rsaErr))
	}

	method, err := methodForKey(public)
	if err != nil {
		return nil, nil, err
	}
	return public, method, nil
}

// MarshalPEM encodes the pair as PKCS#8 private and PKIX public PEM blocks.
func (k *KeyPair) MarshalPEM() ([]byte, []byte, error) {
	privateDER, err := x509.MarshalPKCS8PrivateKey(k.private)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal private key: %w", err)
	}
	publicDER, err := x509.MarshalPKIXPublicKey(k.public)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal public key: %w", err)
	}

	privatePEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privateDER})
	publicPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: publicDER})
	return privatePEM, publicPEM, nil
}

// Public returns the verification half.
func (k *KeyPair) Public() crypto.PublicKey {
	return k.public
}

// Method returns the JWT signing method bound to the key type.
func (k *KeyPair) Method() jwt.SigningMethod {
	return k.method
}

// String never prints key material.
func (k *KeyPair) String() string {
	return fmt.Sprintf("KeyPair(%s)", k.method.Alg())
}

func methodForKey(public crypto.PublicKey) (jwt.SigningMethod, error) {
	switch key := public.(type) {
	case *ecdsa.PublicKey:
		if key.Curve != elliptic.P256() {
			return nil, fmt.Errorf("%w: ecdsa curve %s", ErrUnsupportedKey, key.Curve.Params().Name)
		}
		return jwt.SigningMethodES256, nil
	case *rsa.PublicKey:
		return jwt.SigningMethodRS256, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedKey, public)
	}
}

func publicKeysEqual(a, b crypto.PublicKey) bool {
	type equaler interface {
		Equal(crypto.PublicKey) bool
	}
	key, ok := a.(equaler)
	return ok && key.Equal(b)
}
