package storage

import (
	"errors"
	"mime"
	"net/http"
	"path"

	"github.com/2beens/runlog/internal/telemetry/tracing"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	store *DiskStore
}

func NewHandler(store *DiskStore) *Handler {
	return &Handler{
		store: store,
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc(PublicPathPrefix+"{bucket}/{path:.+}", handler.HandleGetPublic).
		Methods("GET", "HEAD").
		Name("storage-public-object")
}

func (handler *Handler) HandleGetPublic(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "storageHandler.getPublic")
	defer span.End()

	vars := mux.Vars(r)
	bucket, objectPath := vars["bucket"], vars["path"]

	file, obj, err := handler.store.Open(ctx, bucket, objectPath)
	if err != nil {
		if errors.Is(err, ErrObjectNotFound) || errors.Is(err, ErrInvalidPath) {
			http.NotFound(w, r)
			return
		}
		log.Errorf("storage: open object [%s/%s]: %s", bucket, objectPath, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	defer file.Close()

	if contentType := mime.TypeByExtension(path.Ext(objectPath)); contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	w.Header().Set("Cache-Control", "public, max-age=3600")
	http.ServeContent(w, r, path.Base(objectPath), obj.ModTime, file)
}
