package pkg

import (
	"encoding/json"
	"mime"
	"net/http"

	log "github.com/sirupsen/logrus"
)

var ContentType = struct {
	JSON string
	Text string
	HTML string
}{
	JSON: "application/json",
	Text: "text/plain; charset=utf-8",
	HTML: "text/html; charset=utf-8",
}

func WriteResponse(w http.ResponseWriter, contentType, message string, statusCode int) {
	WriteResponseBytes(w, contentType, []byte(message), statusCode)
}

func WriteResponseBytes(w http.ResponseWriter, contentType string, message []byte, statusCode int) {
	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	w.WriteHeader(statusCode)

	if _, err := w.Write(message); err != nil {
		log.Errorf("failed to write response [%s]: %s", message, err)
	}
}

func WriteResponseBytesOK(w http.ResponseWriter, contentType string, message []byte) {
	WriteResponseBytes(w, contentType, message, http.StatusOK)
}

func WriteTextResponseOK(w http.ResponseWriter, message string) {
	WriteResponse(w, ContentType.Text, message, http.StatusOK)
}

// WriteJSON marshals v and writes it with the given status code.
func WriteJSON(w http.ResponseWriter, v any, statusCode int) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Errorf("marshal response: %s", err)
		http.Error(w, "failed to marshal response", http.StatusInternalServerError)
		return
	}
	WriteResponseBytes(w, ContentType.JSON, b, statusCode)
}

type errorResponse struct {
	Error string `json:"error"`
}

// WriteJSONError writes {"error": message}.
func WriteJSONError(w http.ResponseWriter, message string, statusCode int) {
	WriteJSON(w, errorResponse{Error: message}, statusCode)
}

// HasMediaType reports whether the request Content-Type names mediaType,
// ignoring parameters such as charset.
func HasMediaType(r *http.Request, mediaType string) bool {
	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		return false
	}
	parsed, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return parsed == mediaType
}
