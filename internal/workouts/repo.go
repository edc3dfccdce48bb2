package workouts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/2beens/runlog/internal/telemetry/tracing"
	"github.com/2beens/runlog/pkg"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var ErrUnknownUser = errors.New("unknown user")

type ListParams struct {
	UserID string
	// Since, when set, keeps only workouts on or after that date.
	Since *Date
	// Until, when set, keeps only workouts on or before that date.
	Until *Date
	// Limit <= 0 means no limit.
	Limit int
}

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Add(ctx context.Context, workout Workout) (_ *Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	err = r.db.QueryRow(
		ctx,
		`INSERT INTO workouts (user_id, date, distance, duration, pace)
			VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at;`,
		workout.UserID, workout.Date.Time, workout.Distance, workout.Duration, workout.Pace,
	).Scan(&workout.ID, &workout.CreatedAt)
	if err != nil {
		if pkg.IsForeignKeyViolationError(err) {
			return nil, ErrUnknownUser
		}
		return nil, fmt.Errorf("insert workout: %w", err)
	}

	span.SetAttributes(attribute.Int("workout.id", workout.ID))
	return &workout, nil
}

func (r *Repo) List(ctx context.Context, params ListParams) (_ []Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("limit", params.Limit))

	var since *time.Time
	if params.Since != nil {
		since = &params.Since.Time
	}
	var until *time.Time
	if params.Until != nil {
		until = &params.Until.Time
	}
	var limit *int
	if params.Limit > 0 {
		limit = &params.Limit
	}

	rows, err := r.db.Query(
		ctx,
		`SELECT id, user_id, date, distance, duration, pace, created_at
			FROM workouts
			WHERE user_id = $1
				AND ($2::date IS NULL OR date >= $2::date)
				AND ($4::date IS NULL OR date <= $4::date)
			ORDER BY date DESC, id DESC
			LIMIT $3;`,
		params.UserID, since, limit, until,
	)
	if err != nil {
		return nil, fmt.Errorf("query workouts: %w", err)
	}

	workouts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Workout, error) {
		var w Workout
		var date time.Time
		if err := row.Scan(&w.ID, &w.UserID, &date, &w.Distance, &w.Duration, &w.Pace, &w.CreatedAt); err != nil {
			return Workout{}, err
		}
		w.Date = NewDate(date)
		return w, nil
	})
	if err != nil {
		return nil, fmt.Errorf("collect workouts: %w", err)
	}

	span.SetAttributes(attribute.Int("count", len(workouts)))
	return workouts, nil
}
