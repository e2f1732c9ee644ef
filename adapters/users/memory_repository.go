package users

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/layer-3/gatekeeper/core"
	"github.com/layer-3/gatekeeper/ports"
)

// MemoryRepository keeps users in a map, for tests and local development
type MemoryRepository struct {
	mu    sync.RWMutex
	users map[string]core.User
}

var _ ports.UserRepository = (*MemoryRepository)(nil)

// NewMemoryRepository creates an empty repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{users: make(map[string]core.User)}
}

func (r *MemoryRepository) Create(ctx context.Context, user *core.User) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return "", core.ErrEmailTaken
		}
	}

	stored := *user
	stored.ID = uuid.NewString()
	r.users[stored.ID] = stored
	user.ID = stored.ID
	return stored.ID, nil
}

func (r *MemoryRepository) FindByID(ctx context.Context, id string) (*core.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, core.ErrUserNotFound
	}
	return &user, nil
}

func (r *MemoryRepository) FindByEmail(ctx context.Context, email string) (*core.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if strings.EqualFold(user.Email, email) {
			found := user
			return &found, nil
		}
	}
	return nil, core.ErrUserNotFound
}

func (r *MemoryRepository) Update(ctx context.Context, id string, update core.UserUpdate) error {
	if update.IsEmpty() {
		return core.ErrEmptyUpdate
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return core.ErrUserNotFound
	}
	update.Apply(&user)
	r.users[id] = user
	return nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.users, id)
	return nil
}

func (r *MemoryRepository) PurgeInactive(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, user := range r.users {
		if !user.Active && user.CreatedAt.Before(cutoff) {
			delete(r.users, id)
			n++
		}
	}
	return n, nil
}
