package profiles

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/2beens/runlog/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrProfileNotFound = errors.New("profile not found")

type Profile struct {
	ID        string    `json:"id"`
	AvatarURL string    `json:"avatar_url"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Get(ctx context.Context, userID string) (_ *Profile, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.profiles.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var avatarURL *string
	profile := &Profile{}
	err = r.db.QueryRow(ctx,
		`SELECT id, avatar_url, updated_at FROM profiles WHERE id = $1;`,
		userID,
	).Scan(&profile.ID, &avatarURL, &profile.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if avatarURL != nil {
		profile.AvatarURL = *avatarURL
	}
	return profile, nil
}

func (r *Repo) SetAvatarURL(ctx context.Context, userID, avatarURL string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.profiles.setAvatar")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	tag, err := r.db.Exec(ctx,
		`UPDATE profiles SET avatar_url = $1, updated_at = now() WHERE id = $2;`,
		avatarURL, userID,
	)
	if err != nil {
		return fmt.Errorf("update profile avatar: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProfileNotFound
	}
	return nil
}
