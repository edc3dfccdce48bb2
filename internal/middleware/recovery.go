package middleware

import (
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/2beens/runlog/internal/telemetry/metrics"
	"github.com/2beens/runlog/pkg"

	log "github.com/sirupsen/logrus"
)

// functions answer errors as JSON, everything else as plain text
const functionsPathPrefix = "/functions/v1/"

func PanicRecovery(metricsManager *metrics.Manager) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(respWriter http.ResponseWriter, req *http.Request) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				if r == http.ErrAbortHandler {
					panic(r)
				}

				log.WithFields(log.Fields{
					"method": req.Method,
					"path":   req.URL.Path,
					"ip":     pkg.ReadUserIP(req),
				}).Errorf("runlog: panic serving request: %v\n%s", r, debug.Stack())
				if metricsManager != nil {
					metricsManager.CounterHandleRequestPanic.Inc()
				}

				if strings.HasPrefix(req.URL.Path, functionsPathPrefix) {
					pkg.WriteJSONError(respWriter, "internal error", http.StatusInternalServerError)
					return
				}
				http.Error(respWriter, "internal error", http.StatusInternalServerError)
			}()

			// handler call
			next.ServeHTTP(respWriter, req)
		})
	}
}
