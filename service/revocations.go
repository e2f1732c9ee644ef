package service

import (
	"context"
	"fmt"
	"time"

	"github.com/layer-3/gatekeeper/ports"
)

const revokedValue = "revoked"

func revokedKey(id string) string {
	return "revoked:" + id
}

// Revocations is the token denylist. Entries expire on their own and are
// never deleted explicitly.
type Revocations struct {
	store ports.Store
}

// NewRevocations creates a denylist on top of store.
func NewRevocations(store ports.Store) *Revocations {
	return &Revocations{store: store}
}

// Revoke marks the token identifier as revoked for ttl. The caller must pick a
// ttl that outlives the token, or the token becomes valid again.
func (r *Revocations) Revoke(ctx context.Context, id string, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("revocation ttl must be positive, got %s", ttl)
	}
	return r.store.Set(ctx, revokedKey(id), revokedValue, ttl)
}

// IsRevoked reports whether id is on the denylist. False only means the
// identifier is not known to be revoked.
func (r *Revocations) IsRevoked(ctx context.Context, id string) (bool, error) {
	value, ok, err := r.store.Get(ctx, revokedKey(id))
	if err != nil {
		return false, err
	}
	return ok && value == revokedValue, nil
}
