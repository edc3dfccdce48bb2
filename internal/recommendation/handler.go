package recommendation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/2beens/runlog/internal/auth"
	"github.com/2beens/runlog/internal/telemetry/metrics"
	"github.com/2beens/runlog/internal/telemetry/tracing"
	"github.com/2beens/runlog/internal/workouts"
	"github.com/2beens/runlog/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

const (
	Path = "/functions/v1/generate-workout"

	corsAllowHeaders = "authorization, x-client-info, apikey, content-type"
)

var ErrNoAuthorizationHeader = errors.New("No authorization header")

//go:generate mockgen -source=$GOFILE -destination=recommendation_mocks_test.go -package=recommendation_test

type sessionResolver interface {
	GetSession(ctx context.Context, token string) (*auth.Session, error)
}

type recentWorkouts interface {
	List(ctx context.Context, params workouts.ListParams) ([]workouts.Workout, error)
}

type Handler struct {
	sessions       sessionResolver
	repo           recentWorkouts
	metricsManager *metrics.Manager
	Now            func() time.Time
}

func NewHandler(sessions sessionResolver, repo recentWorkouts, metricsManager *metrics.Manager) *Handler {
	return &Handler{
		sessions:       sessions,
		repo:           repo,
		metricsManager: metricsManager,
		Now:            time.Now,
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc(Path, handler.HandleGenerate).
		Methods("POST", "GET", "OPTIONS").
		Name("generate-workout")
}

// HandleGenerate answers every failure with 400 {"error": ...}, including auth failures.
func (handler *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.recommendation.generate")
	defer span.End()

	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", corsAllowHeaders)

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	recommendation, err := handler.generate(ctx, r.Header.Get("Authorization"))
	if err != nil {
		log.Errorf("generate workout recommendation: %s", err)
		span.RecordError(err)
		pkg.WriteJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	span.SetAttributes(attribute.String("recommendation.type", recommendation.Type))
	handler.metricsManager.CounterRecommendations.WithLabelValues(recommendation.Type).Inc()
	pkg.WriteJSON(w, recommendation, http.StatusOK)
}

func (handler *Handler) generate(ctx context.Context, authHeader string) (*Recommendation, error) {
	if authHeader == "" {
		return nil, ErrNoAuthorizationHeader
	}
	token, ok := auth.BearerToken(authHeader)
	if !ok {
		return nil, auth.ErrInvalidToken
	}

	session, err := handler.sessions.GetSession(ctx, token)
	if err != nil {
		return nil, err
	}

	recent, err := handler.repo.List(ctx, workouts.ListParams{
		UserID: session.UserID,
		Limit:  RecentWorkoutsLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch recent workouts: %w", err)
	}
	log.Debugf("recommendation for user [%s] from %d recent workouts", session.UserID, len(recent))

	recommendation := Recommend(recent, handler.Now())
	return &recommendation, nil
}
