package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/layer-3/gatekeeper/core"
	"github.com/layer-3/gatekeeper/ports"
)

const uniqueViolation = "23505"

const (
	insertUserQuery = `
INSERT INTO users (
  id, first_name, last_name, email, password_hash, created_at, is_active, is_superuser
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`

	selectUserColumns = `
SELECT
  id::text, first_name, last_name, email, password_hash, created_at, is_active, is_superuser
FROM users
`

	deleteUserQuery = `DELETE FROM users WHERE id = $1`

	purgeInactiveQuery = `DELETE FROM users WHERE NOT is_active AND created_at < $1`
)

// PostgresRepository stores users in PostgreSQL through the pgx driver
type PostgresRepository struct {
	db *sql.DB
}

var _ ports.UserRepository = (*PostgresRepository)(nil)

// NewPostgresRepository wraps an open database handle.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Open connects with the pgx driver and pings the server.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping postgres database: %w", err)
	}
	return db, nil
}

func (r *PostgresRepository) Create(ctx context.Context, user *core.User) (string, error) {
	id := uuid.NewString()
	createdAt := user.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, insertUserQuery,
		id, user.FirstName, user.LastName, user.Email, user.PasswordHash,
		createdAt, user.Active, user.Superuser,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return "", core.ErrEmailTaken
		}
		return "", unavailable("insert user", err)
	}

	user.ID = id
	return id, nil
}

func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*core.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, core.ErrUserNotFound
	}
	return r.findOne(ctx, selectUserColumns+`WHERE id = $1`, id)
}

func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (*core.User, error) {
	return r.findOne(ctx, selectUserColumns+`WHERE lower(email) = lower($1)`, email)
}

func (r *PostgresRepository) Update(ctx context.Context, id string, update core.UserUpdate) error {
	if update.IsEmpty() {
		return core.ErrEmptyUpdate
	}
	if _, err := uuid.Parse(id); err != nil {
		return core.ErrUserNotFound
	}

	var (
		sets []string
		args []any
	)
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if update.FirstName != nil {
		add("first_name", *update.FirstName)
	}
	if update.LastName != nil {
		add("last_name", *update.LastName)
	}
	if update.PasswordHash != nil {
		add("password_hash", *update.PasswordHash)
	}
	if update.Active != nil {
		add("is_active", *update.Active)
	}
	args = append(args, id)

	query := fmt.Sprintf("UPDATE users SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return unavailable("update user", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return unavailable("update user", err)
	}
	if affected == 0 {
		return core.ErrUserNotFound
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, deleteUserQuery, id); err != nil {
		return unavailable("delete user", err)
	}
	return nil
}

func (r *PostgresRepository) PurgeInactive(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, purgeInactiveQuery, cutoff)
	if err != nil {
		return 0, unavailable("purge inactive users", err)
	}
	return result.RowsAffected()
}

func (r *PostgresRepository) findOne(ctx context.Context, query string, arg any) (*core.User, error) {
	user := &core.User{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.FirstName, &user.LastName, &user.Email,
		&user.PasswordHash, &user.CreatedAt, &user.Active, &user.Superuser,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrUserNotFound
	}
	if err != nil {
		return nil, unavailable("select user", err)
	}
	return user, nil
}

func unavailable(op string, err error) error {
	return core.Wrap(core.CodeUnavailable, "user store unavailable", fmt.Errorf("%s: %w", op, err))
}
