package profiles

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/2beens/runlog/internal/auth"
	"github.com/2beens/runlog/internal/storage"
	"github.com/2beens/runlog/internal/telemetry/metrics"
	"github.com/2beens/runlog/internal/telemetry/tracing"
	"github.com/2beens/runlog/pkg"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

const (
	AvatarsBucket   = "profiles"
	avatarFormField = "avatar"
)

var avatarContentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

//go:generate mockgen -source=$GOFILE -destination=profiles_mocks_test.go -package=profiles_test

type profilesRepo interface {
	Get(ctx context.Context, userID string) (*Profile, error)
	SetAvatarURL(ctx context.Context, userID, avatarURL string) error
}

type objectStore interface {
	Upload(ctx context.Context, params storage.UploadParams) (*storage.Object, error)
	PublicURL(bucket, objectPath string) string
	Delete(ctx context.Context, bucket, objectPath string) error
}

type Handler struct {
	repo           profilesRepo
	store          objectStore
	avatarState    *AvatarState
	metricsManager *metrics.Manager
	maxAvatarBytes int64
}

func NewHandler(
	repo profilesRepo,
	store objectStore,
	avatarState *AvatarState,
	metricsManager *metrics.Manager,
	maxAvatarBytes int64,
) *Handler {
	return &Handler{
		repo:           repo,
		store:          store,
		avatarState:    avatarState,
		metricsManager: metricsManager,
		maxAvatarBytes: maxAvatarBytes,
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("", handler.HandleGet).Methods("GET").Name("profile")
	router.HandleFunc("/avatar", handler.HandleUploadAvatar).Methods("POST").Name("profile-avatar")
	router.HandleFunc("/avatar/events", handler.HandleAvatarEvents).Methods("GET").Name("profile-avatar-events")
}

type profileResponse struct {
	ID        string `json:"id"`
	AvatarURL string `json:"avatar_url"`
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.profiles.get")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	avatarURL, err := handler.currentAvatarURL(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			http.Error(w, "profile not found", http.StatusNotFound)
			return
		}
		log.Errorf("get profile for user [%s]: %s", userID, err)
		http.Error(w, "get profile failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSON(w, profileResponse{
		ID:        userID,
		AvatarURL: avatarURL,
	}, http.StatusOK)
}

func (handler *Handler) currentAvatarURL(ctx context.Context, userID string) (string, error) {
	if avatarURL, ok := handler.avatarState.Get(userID); ok {
		return avatarURL, nil
	}

	profile, err := handler.repo.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	handler.avatarState.Load(userID, profile.AvatarURL)
	return profile.AvatarURL, nil
}

func (handler *Handler) HandleUploadAvatar(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.profiles.uploadAvatar")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	// a little headroom for the multipart envelope
	r.Body = http.MaxBytesReader(w, r.Body, handler.maxAvatarBytes+1<<16)
	file, header, err := r.FormFile(avatarFormField)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			http.Error(w, "avatar too large", http.StatusRequestEntityTooLarge)
			return
		}
		log.Tracef("upload avatar, form file: %s", err)
		http.Error(w, "you must select an image to upload", http.StatusBadRequest)
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	contentType, ok := avatarContentTypes[ext]
	if !ok {
		http.Error(w, fmt.Sprintf("unsupported image type [%s]", ext), http.StatusBadRequest)
		return
	}
	if header.Size > handler.maxAvatarBytes {
		http.Error(w, "avatar too large", http.StatusRequestEntityTooLarge)
		return
	}

	objectPath := fmt.Sprintf("%s/%s%s", userID, uuid.NewString(), ext)
	span.SetAttributes(attribute.String("avatar.path", objectPath))

	if _, err := handler.store.Upload(ctx, storage.UploadParams{
		Bucket:      AvatarsBucket,
		Path:        objectPath,
		Body:        file,
		Size:        handler.maxAvatarBytes,
		ContentType: contentType,
	}); err != nil {
		if errors.Is(err, storage.ErrObjectTooLarge) {
			http.Error(w, "avatar too large", http.StatusRequestEntityTooLarge)
			return
		}
		log.Errorf("upload avatar for user [%s]: %s", userID, err)
		http.Error(w, "upload avatar failed", http.StatusInternalServerError)
		return
	}

	avatarURL := handler.store.PublicURL(AvatarsBucket, objectPath)
	if err := handler.repo.SetAvatarURL(ctx, userID, avatarURL); err != nil {
		log.Errorf("set avatar url for user [%s]: %s", userID, err)
		if deleteErr := handler.store.Delete(ctx, AvatarsBucket, objectPath); deleteErr != nil {
			log.Errorf("remove orphaned avatar [%s]: %s", objectPath, deleteErr)
		}
		http.Error(w, "upload avatar failed", http.StatusInternalServerError)
		return
	}

	handler.avatarState.Set(userID, avatarURL)
	handler.metricsManager.CounterAvatarUploads.Inc()

	log.Debugf("new avatar for user [%s]: %s", userID, avatarURL)
	pkg.WriteJSON(w, map[string]string{"avatar_url": avatarURL}, http.StatusOK)
}

// HandleAvatarEvents streams the caller's avatar url changes as server-sent events,
// starting with the current value.
func (handler *Handler) HandleAvatarEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	// the stream outlives the server write timeout
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		log.Tracef("avatar events: clear write deadline: %s", err)
	}

	changes := make(chan AvatarChange, 8)
	cancel := handler.avatarState.Subscribe(func(change AvatarChange) {
		if change.UserID != userID {
			return
		}
		select {
		case changes <- change:
		default:
			log.Warnf("avatar events: listener for user [%s] is lagging, change dropped", userID)
		}
	})
	defer cancel()

	handler.metricsManager.GaugeAvatarListeners.Inc()
	defer handler.metricsManager.GaugeAvatarListeners.Dec()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	current, err := handler.currentAvatarURL(ctx, userID)
	if err != nil && !errors.Is(err, ErrProfileNotFound) {
		log.Errorf("avatar events: current avatar for user [%s]: %s", userID, err)
	}
	if err := writeAvatarEvent(w, current); err != nil {
		return
	}
	flusher.Flush()

	for {
		select {
		case <-ctx.Done():
			log.Tracef("avatar events: listener for user [%s] gone", userID)
			return
		case change := <-changes:
			if err := writeAvatarEvent(w, change.AvatarURL); err != nil {
				log.Tracef("avatar events: write for user [%s]: %s", userID, err)
				return
			}
			flusher.Flush()
		}
	}
}

func writeAvatarEvent(w io.Writer, avatarURL string) error {
	data, err := json.Marshal(map[string]string{"avatar_url": avatarURL})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: avatar\ndata: %s\n\n", data)
	return err
}
