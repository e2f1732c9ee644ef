package ports

import (
	"time"

	"github.com/layer-3/gatekeeper/core"
)

// Tokenizer converts between claims and signed tokens
type Tokenizer interface {
	// Issue signs a fresh token. A zero lifetime selects the audience default.
	Issue(subject string, audience core.Audience, lifetime time.Duration) (string, error)
	// Parse verifies token and requires it to carry the expected audience.
	Parse(token string, audience core.Audience) (*core.Claims, error)
	// Lifetime returns the default lifetime of an audience.
	Lifetime(audience core.Audience) time.Duration
}
