package workouts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/2beens/runlog/internal/auth"
	"github.com/2beens/runlog/internal/telemetry/metrics"
	"github.com/2beens/runlog/internal/telemetry/tracing"
	"github.com/2beens/runlog/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

//go:generate mockgen -source=$GOFILE -destination=workouts_mocks_test.go -package=workouts_test

type workoutsRepo interface {
	Add(ctx context.Context, workout Workout) (*Workout, error)
	List(ctx context.Context, params ListParams) ([]Workout, error)
}

type Handler struct {
	repo           workoutsRepo
	metricsManager *metrics.Manager
	// Now is swapped in tests to pin "today".
	Now func() time.Time
}

func NewHandler(repo workoutsRepo, metricsManager *metrics.Manager) *Handler {
	return &Handler{
		repo:           repo,
		metricsManager: metricsManager,
		Now:            time.Now,
	}
}

// SetupRoutes registers the handlers on the /workouts subrouter.
func (handler *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("", handler.HandleAdd).Methods("POST", "OPTIONS").Name("workouts-add")
	router.HandleFunc("", handler.HandleList).Methods("GET").Name("workouts-list")
	router.HandleFunc("/weekly", handler.HandleWeekly).Methods("GET", "OPTIONS").Name("workouts-weekly")
	router.HandleFunc("/weekly/chart", handler.HandleWeeklyChart).Methods("GET").Name("workouts-weekly-chart")
	router.HandleFunc("/stats", handler.HandleStats).Methods("GET", "OPTIONS").Name("workouts-stats")
}

func (handler *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.add")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	if !pkg.HasMediaType(r, pkg.ContentType.JSON) {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var req NewWorkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Tracef("new workout, unmarshal json params: %s", err)
		http.Error(w, "add workout failed", http.StatusBadRequest)
		return
	}

	workout, err := req.ToWorkout(userID)
	if err != nil {
		var validationErr *ValidationError
		if errors.As(err, &validationErr) {
			http.Error(w, validationErr.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, "add workout failed", http.StatusBadRequest)
		return
	}
	if req.Pace != "" && req.Pace != workout.Pace {
		log.Debugf("new workout: client pace [%s] replaced with [%s]", req.Pace, workout.Pace)
	}

	added, err := handler.repo.Add(ctx, workout)
	if err != nil {
		log.Errorf("failed to add new workout for user [%s]: %s", userID, err)
		http.Error(w, "error, failed to add new workout", http.StatusInternalServerError)
		return
	}
	handler.metricsManager.CounterWorkoutsAdded.Inc()

	log.Debugf("new workout added: %d [%s, %.2f km, %d min]", added.ID, added.Date, added.Distance, added.Duration)
	pkg.WriteJSON(w, added, http.StatusCreated)
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.list")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	params := ListParams{UserID: userID}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			http.Error(w, "error, invalid limit", http.StatusBadRequest)
			return
		}
		params.Limit = limit
	}
	if sinceStr := r.URL.Query().Get("since"); sinceStr != "" {
		since, err := ParseDate(sinceStr)
		if err != nil {
			http.Error(w, "error, invalid since date", http.StatusBadRequest)
			return
		}
		params.Since = &since
	}

	workouts, err := handler.repo.List(ctx, params)
	if err != nil {
		log.Errorf("list workouts for user [%s]: %s", userID, err)
		http.Error(w, "error, failed to get workouts", http.StatusInternalServerError)
		return
	}
	if workouts == nil {
		workouts = []Workout{}
	}

	pkg.WriteJSON(w, workouts, http.StatusOK)
}

func (handler *Handler) lastWeek(ctx context.Context, userID string) ([]WeeklyBucket, error) {
	today := NewDate(handler.Now().UTC())
	since := WeekWindowStart(today)
	workouts, err := handler.repo.List(ctx, ListParams{
		UserID: userID,
		Since:  &since,
		Until:  &today,
	})
	if err != nil {
		return nil, err
	}
	return AggregateWeekly(workouts), nil
}

func (handler *Handler) HandleWeekly(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.weekly")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	buckets, err := handler.lastWeek(ctx, userID)
	if err != nil {
		log.Errorf("weekly workouts for user [%s]: %s", userID, err)
		http.Error(w, "error, failed to get weekly distance", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSON(w, buckets, http.StatusOK)
}

func (handler *Handler) HandleWeeklyChart(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.weekly.chart")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	buckets, err := handler.lastWeek(ctx, userID)
	if err != nil {
		log.Errorf("weekly chart for user [%s]: %s", userID, err)
		http.Error(w, "error, failed to get weekly distance", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := RenderWeeklyChart(&buf, buckets); err != nil {
		log.Errorf("render weekly chart: %s", err)
		http.Error(w, "error, failed to render chart", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.HTML, buf.Bytes())
}

func (handler *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.stats")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	workouts, err := handler.repo.List(ctx, ListParams{UserID: userID})
	if err != nil {
		log.Errorf("workout stats for user [%s]: %s", userID, err)
		http.Error(w, "error, failed to get workout stats", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSON(w, CalculateStats(workouts), http.StatusOK)
}
