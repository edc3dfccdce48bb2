package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Manager struct {
	// counters
	CounterRequests            *prometheus.CounterVec
	CounterHandleRequestPanic  prometheus.Counter
	CounterRateLimitedRequests prometheus.Counter
	CounterWorkoutsAdded       prometheus.Counter
	CounterRecommendations     *prometheus.CounterVec
	CounterAvatarUploads       prometheus.Counter
	CounterAuthStateChanges    *prometheus.CounterVec

	// gauges
	GaugeRequests        prometheus.Gauge
	GaugeLifeSignal      prometheus.Gauge
	GaugeAvatarListeners prometheus.Gauge

	// histograms
	HistogramRequestDuration *prometheus.HistogramVec
}

func NewTestManager() *Manager {
	return NewManager("runlog", "test_server", prometheus.NewRegistry())
}

func NewTestManagerAndRegistry() (*Manager, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewManager("runlog", "test_server", reg), reg
}

func NewManager(namespace, subsystem string, reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)

	return &Manager{
		CounterRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "request",
			Help:      "The total number of incoming requests",
		}, []string{"method", "status"}),
		CounterHandleRequestPanic: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "handle_request_panic",
			Help:      "The total number of serve request panics",
		}),
		CounterRateLimitedRequests: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "rate_limited_requests",
			Help:      "The total number of rate limited requests",
		}),
		CounterWorkoutsAdded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "workouts_added",
			Help:      "The total number of logged workouts",
		}),
		CounterRecommendations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "recommendations",
			Help:      "Generated workout recommendations by type",
		}, []string{"type"}),
		CounterAvatarUploads: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "avatar_uploads",
			Help:      "The total number of uploaded profile pictures",
		}),
		CounterAuthStateChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "auth_state_changes",
			Help:      "Session transitions by kind",
		}, []string{"kind"}),
		GaugeRequests: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "current_requests",
			Help:      "Current number of requests served",
		}),
		GaugeLifeSignal: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "life_signal",
			Help:      "Shows whether the service is alive",
		}),
		GaugeAvatarListeners: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "avatar_event_listeners",
			Help:      "Open avatar change event streams",
		}),
		HistogramRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "request_duration_seconds",
			Help:      "Histogram of response time for requests in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"route", "method", "status_code"}),
	}
}
