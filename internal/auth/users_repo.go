package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/2beens/runlog/internal/telemetry/tracing"
	"github.com/2beens/runlog/pkg"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")
)

type User struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

type UsersRepo struct {
	db *pgxpool.Pool
}

func NewUsersRepo(db *pgxpool.Pool) *UsersRepo {
	return &UsersRepo{
		db: db,
	}
}

// Add creates the user together with its (empty) profile.
func (r *UsersRepo) Add(ctx context.Context, username, passwordHash string) (_ *User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.users.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	user := &User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
				err = fmt.Errorf("failed to rollback transaction: %w: %w", rollbackErr, err)
			}
		} else {
			err = tx.Commit(ctx)
		}
	}()

	err = tx.QueryRow(ctx,
		`INSERT INTO users (id, username, password_hash) VALUES ($1, $2, $3) RETURNING created_at;`,
		user.ID, user.Username, user.PasswordHash,
	).Scan(&user.CreatedAt)
	if err != nil {
		if pkg.IsUniqueViolationError(err) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	if _, err = tx.Exec(ctx, `INSERT INTO profiles (id) VALUES ($1);`, user.ID); err != nil {
		return nil, fmt.Errorf("insert profile: %w", err)
	}

	return user, nil
}

func (r *UsersRepo) GetByUsername(ctx context.Context, username string) (_ *User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.users.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	user := &User{}
	err = r.db.QueryRow(ctx,
		`SELECT id, username, password_hash, created_at FROM users WHERE username = $1;`,
		username,
	).Scan(&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}
