package middleware

import (
	"io"
	"net/http"
)

// maxDrainBytes bounds how much of an unread body is consumed to keep the connection alive.
// Larger leftovers (e.g. a rejected avatar upload) are not read, the connection is closed instead.
const maxDrainBytes = 256 << 10

func DrainAndCloseRequest() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r)
			if r.Body == nil || r.Body == http.NoBody {
				return
			}
			_, _ = io.CopyN(io.Discard, r.Body, maxDrainBytes)
			_ = r.Body.Close()
		})
	}
}
