package ports

import (
	"context"
	"time"

	"github.com/layer-3/gatekeeper/core"
)

// UserRepository persists user records. Lookups of missing users return
// core.ErrUserNotFound.
type UserRepository interface {
	Create(ctx context.Context, user *core.User) (string, error)
	FindByID(ctx context.Context, id string) (*core.User, error)
	FindByEmail(ctx context.Context, email string) (*core.User, error)
	Update(ctx context.Context, id string, update core.UserUpdate) error
	Delete(ctx context.Context, id string) error
	// PurgeInactive deletes users created before cutoff that never activated.
	PurgeInactive(ctx context.Context, cutoff time.Time) (int64, error)
}

// PasswordHasher hashes and checks credentials
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) (bool, error)
}
