package users

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/layer-3/gatekeeper/core"
	"github.com/layer-3/gatekeeper/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func repositories(t *testing.T) map[string]ports.UserRepository {
	repos := map[string]ports.UserRepository{"memory": NewMemoryRepository()}

	dsn := os.Getenv("GATEKEEPER_TEST_DATABASE_URL")
	if dsn == "" {
		return repos
	}

	ctx := context.Background()
	db, err := Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, Migrate(ctx, db))
	_, err = db.ExecContext(ctx, "TRUNCATE users")
	require.NoError(t, err)

	repos["postgres"] = NewPostgresRepository(db)
	return repos
}

func newUser(email string, createdAt time.Time) *core.User {
	return &core.User{
		FirstName:    "Ada",
		LastName:     "Lovelace",
		Email:        email,
		PasswordHash: "hash",
		CreatedAt:    createdAt,
	}
}

func TestRepositoryLifecycle(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			id, err := repo.Create(ctx, newUser("ada-"+name+"@example.com", time.Now().UTC()))
			require.NoError(t, err)
			require.NotEmpty(t, id)

			_, err = repo.Create(ctx, newUser("ADA-"+name+"@example.com", time.Now().UTC()))
			assert.ErrorIs(t, err, core.ErrEmailTaken)

			byEmail, err := repo.FindByEmail(ctx, "ada-"+name+"@example.com")
			require.NoError(t, err)
			assert.Equal(t, id, byEmail.ID)
			assert.False(t, byEmail.Active)

			active := true
			hash := "new-hash"
			require.NoError(t, repo.Update(ctx, id, core.UserUpdate{Active: &active, PasswordHash: &hash}))

			byID, err := repo.FindByID(ctx, id)
			require.NoError(t, err)
			assert.True(t, byID.Active)
			assert.Equal(t, "new-hash", byID.PasswordHash)

			assert.ErrorIs(t, repo.Update(ctx, id, core.UserUpdate{}), core.ErrEmptyUpdate)

			require.NoError(t, repo.Delete(ctx, id))
			_, err = repo.FindByID(ctx, id)
			assert.ErrorIs(t, err, core.ErrUserNotFound)
		})
	}
}

func TestRepositoryPurgeInactive(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			now := time.Now().UTC()

			stale, err := repo.Create(ctx, newUser("stale-"+name+"@example.com", now.Add(-time.Hour)))
			require.NoError(t, err)
			fresh, err := repo.Create(ctx, newUser("fresh-"+name+"@example.com", now))
			require.NoError(t, err)
			verified, err := repo.Create(ctx, newUser("verified-"+name+"@example.com", now.Add(-time.Hour)))
			require.NoError(t, err)
			active := true
			require.NoError(t, repo.Update(ctx, verified, core.UserUpdate{Active: &active}))

			n, err := repo.PurgeInactive(ctx, now.Add(-30*time.Minute))
			require.NoError(t, err)
			assert.Equal(t, int64(1), n)

			_, err = repo.FindByID(ctx, stale)
			assert.ErrorIs(t, err, core.ErrUserNotFound)
			_, err = repo.FindByID(ctx, fresh)
			assert.NoError(t, err)
			_, err = repo.FindByID(ctx, verified)
			assert.NoError(t, err)
		})
	}
}

func TestRepositoryMissingUser(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := repo.FindByID(ctx, "not-a-user")
			assert.ErrorIs(t, err, core.ErrUserNotFound)
			_, err = repo.FindByEmail(ctx, "nobody@example.com")
			assert.ErrorIs(t, err, core.ErrUserNotFound)

			first := "Grace"
			err = repo.Update(ctx, "3f1c1c9e-0b7e-4d8e-9d8b-0f9a4b6f1e21", core.UserUpdate{FirstName: &first})
			assert.ErrorIs(t, err, core.ErrUserNotFound)
		})
	}
}
