package middleware

import (
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"
)

const (
	corsAllowHeaders = "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization, X-Client-Info, Apikey"
	corsAllowMethods = "POST, GET, OPTIONS"
)

// Cors allows browser requests from the configured origins. "*" allows any origin.
// Requests without an Origin header (curl, the admin cli) pass untouched.
func Cors(allowedOrigins []string) func(next http.Handler) http.Handler {
	allowAny := false
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin == "*" {
			allowAny = true
		}
		allowed[origin] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			switch {
			case
				// sets its own CORS headers
				r.URL.Path == "/functions/v1/generate-workout",
				origin == "":
				next.ServeHTTP(w, r)
				return
			case
				// public objects (avatars) are embedded from anywhere
				strings.HasPrefix(r.URL.Path, "/storage/v1/object/public/"):
				w.Header().Set("Access-Control-Allow-Origin", "*")
			case allowAny, allowed[origin]:
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Headers", corsAllowHeaders)
				w.Header().Set("Access-Control-Allow-Methods", corsAllowMethods)
				w.Header().Add("Vary", "Origin")
			default:
				log.Warnf("CORS: origin not allowed for path [%s] and origin [%s]", r.URL.Path, origin)
				w.WriteHeader(http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
