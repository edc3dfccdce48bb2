package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/IBM/pgxpoolprometheus"
	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/2beens/runlog/internal/auth"
	"github.com/2beens/runlog/internal/config"
	"github.com/2beens/runlog/internal/db"
	"github.com/2beens/runlog/internal/middleware"
	"github.com/2beens/runlog/internal/profiles"
	"github.com/2beens/runlog/internal/recommendation"
	"github.com/2beens/runlog/internal/storage"
	"github.com/2beens/runlog/internal/telemetry/metrics"
	"github.com/2beens/runlog/internal/telemetry/tracing"
	"github.com/2beens/runlog/internal/workouts"
	"github.com/2beens/runlog/pkg"
)

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server
	versionInfo       string

	config       *config.Config
	dbPool       *pgxpool.Pool
	redisClient  *redis.Client
	rateLimiter  middleware.RequestRateLimiter
	authService  *auth.Service
	workoutsRepo *workouts.Repo
	profilesRepo *profiles.Repo
	diskStore    *storage.DiskStore
	avatarState  *profiles.AvatarState

	// released on shutdown
	authStateCancel   func()
	stopSessionsClean context.CancelFunc

	// metrics
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()
}

type NewServerParams struct {
	Config      *config.Config
	Secrets     config.Secrets
	VersionInfo string
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost:         params.Config.PostgresHost,
		DBPort:         params.Config.PostgresPort,
		DBName:         params.Config.PostgresDBName,
		DBUser:         params.Config.PostgresUser,
		DBPassword:     params.Secrets.PostgresPassword,
		TracingEnabled: params.Secrets.HoneycombEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("new db pool: %w", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Warnf("failed to ping db: %s", err)
	} else if err := db.Migrate(ctx, dbPool); err != nil {
		return nil, fmt.Errorf("migrate db: %w", err)
	}

	pgxpoolCollector := pgxpoolprometheus.NewCollector(
		dbPool,
		map[string]string{"db_name": params.Config.PostgresDBName},
	)
	promRegistry := metrics.SetupPrometheus(pgxpoolCollector)
	metricsManager := metrics.NewManager("runlog", "main", promRegistry)
	metricsManager.GaugeLifeSignal.Set(0)

	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(params.Config.RedisHost, params.Config.RedisPort),
		Password: params.Secrets.RedisPassword,
		DB:       0, // use default DB
	})

	rdbStatus := rdb.Ping(ctx)
	if err := rdbStatus.Err(); err != nil {
		log.Errorf("--> failed to ping redis: %s", err)
	} else {
		log.Debugf("redis ping: %s", rdbStatus.Val())
	}

	// use honeycomb distro to setup OpenTelemetry SDK
	otelShutdown, err := tracing.HoneycombSetup(params.Secrets.HoneycombEnabled, "runlog-service", rdb)
	if err != nil {
		return nil, err
	}

	tokens, err := auth.NewTokenIssuer(params.Secrets.JWTSecret, params.Config.JWTIssuer)
	if err != nil {
		return nil, fmt.Errorf("new token issuer: %w", err)
	}

	diskStore, err := storage.NewDiskStore(params.Config.StorageRootPath, params.Config.PublicBaseURL)
	if err != nil {
		return nil, fmt.Errorf("new disk store: %w", err)
	}

	s := &Server{
		config:      params.Config,
		versionInfo: params.VersionInfo,
		dbPool:      dbPool,
		redisClient: rdb,
		rateLimiter: redis_rate.NewLimiter(rdb),
		authService: auth.NewAuthService(
			params.Config.SessionTTL(),
			rdb,
			auth.NewUsersRepo(dbPool),
			tokens,
		),
		workoutsRepo: workouts.NewRepo(dbPool),
		profilesRepo: profiles.NewRepo(dbPool),
		diskStore:    diskStore,
		avatarState:  profiles.NewAvatarState(params.Config.AvatarCacheSizeMB << 20),

		// telemetry
		metricsManager: metricsManager,
		promRegistry:   promRegistry,
		otelShutdown:   otelShutdown,
	}

	s.subscribeToAuthState()

	cleanupCtx, stopSessionsClean := context.WithCancel(ctx)
	s.stopSessionsClean = stopSessionsClean
	go s.sessionsCleanupLoop(cleanupCtx, params.Config.SessionsCleanupInterval())

	return s, nil
}

// subscribeToAuthState drops cached avatars of users whose session ended.
func (s *Server) subscribeToAuthState() {
	s.authStateCancel = s.authService.OnAuthStateChange(func(change auth.StateChange) {
		s.metricsManager.CounterAuthStateChanges.WithLabelValues(string(change.Kind)).Inc()
		switch change.Kind {
		case auth.SignedOut, auth.Expired:
			s.avatarState.Forget(change.UserID)
			log.Debugf("auth state [%s] for user [%s], avatar state dropped", change.Kind, change.UserID)
		default:
			log.Tracef("auth state [%s] for user [%s]", change.Kind, change.UserID)
		}
	})
}

func (s *Server) sessionsCleanupLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debugln("sessions cleanup loop stopped")
			return
		case <-ticker.C:
			s.authService.ScanAndClean(ctx)
		}
	}
}

func (s *Server) routerSetup() *mux.Router {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("runlog-router"))

	r.HandleFunc("/health", s.handleHealth).Methods("GET").Name("health")

	recommendation.NewHandler(
		s.authService,
		s.workoutsRepo,
		s.metricsManager,
	).SetupRoutes(r)

	storage.NewHandler(s.diskStore).SetupRoutes(r)

	authRouter := r.PathPrefix("/a").Subrouter()
	auth.NewHandler(s.authService).SetupRoutes(authRouter)
	// rate limit the auth endpoints to prevent abuse
	authRouter.Use(middleware.RateLimit(s.rateLimiter, "login", s.config.LoginRateLimitAllowedPerMin, s.metricsManager))

	workouts.NewHandler(
		s.workoutsRepo,
		s.metricsManager,
	).SetupRoutes(r.PathPrefix("/workouts").Subrouter())

	profiles.NewHandler(
		s.profilesRepo,
		s.diskStore,
		s.avatarState,
		s.metricsManager,
		s.config.AvatarMaxBytes(),
	).SetupRoutes(r.PathPrefix("/profile").Subrouter())

	// all the rest - unhandled paths
	r.HandleFunc("/{unknown}", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}).Methods("GET", "POST", "PUT", "OPTIONS").Name("unknown")

	authMiddleware := middleware.NewAuthMiddlewareHandler(s.authService)

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.Cors(s.config.AllowedOrigins))
	r.Use(authMiddleware.AuthCheck())
	r.Use(middleware.DrainAndCloseRequest())

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	msg := "I'm OK, thanks ;)"
	if s.versionInfo != "" {
		msg += " [" + s.versionInfo + "]"
	}
	pkg.WriteTextResponseOK(w, msg)
}

func (s *Server) Serve(host string, port int) {
	router := s.routerSetup()

	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:      router,
		Addr:         ipAndPort,
		WriteTimeout: time.Minute,
		ReadTimeout:  time.Minute,
		ConnState:    s.connStateMetrics,
	}

	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.InstrumentMetricHandler(
		s.promRegistry,
		promhttp.HandlerFor(s.promRegistry, promhttp.HandlerOpts{}),
	))
	metricsAddr := net.JoinHostPort(s.config.PrometheusMetricsHost, s.config.PrometheusMetricsPort)
	s.metricsHttpServer = &http.Server{
		Addr:              metricsAddr,
		Handler:           otelhttp.NewHandler(metricsRouter, "metrics"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof(" > server listening on: [%s]", ipAndPort)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("main service, listen and serve: %s", err)
		}
	}()

	go func() {
		log.Debugf(" > metrics listening on: [%s]", metricsAddr)
		err := s.metricsHttpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("metrics service, listen and serve: %s", err)
		}
	}()

	s.metricsManager.GaugeLifeSignal.Set(1)
}

func (s *Server) GracefulShutdown() {
	log.Debug("graceful shutdown initiated ...")

	s.metricsManager.GaugeLifeSignal.Set(0)

	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			log.Errorf(" >>> failed to gracefully shutdown http server: %s", err)
		}
		log.Warnln("server shut down")
	}

	if s.stopSessionsClean != nil {
		s.stopSessionsClean()
	}
	if s.authStateCancel != nil {
		s.authStateCancel()
	}
	s.authService.Close()
	s.avatarState.Close()

	s.otelShutdown()
	log.Trace("otel shut down ...")

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			log.Errorf("failed to close redis client conn: %s", err)
		}
	}

	if s.dbPool != nil {
		log.Debugln("closing db pool ...")
		s.dbPool.Close() // blocking operation
		log.Debugln("db pool closed")
	}

	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}

	if s.metricsHttpServer != nil {
		if err := s.metricsHttpServer.Shutdown(ctx); err != nil {
			log.Errorf(" >>> failed to gracefully shutdown metrics http server: %s", err)
		}
		log.Warnln("metrics server shut down")
	}
}

func (s *Server) connStateMetrics(_ net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		s.metricsManager.GaugeRequests.Add(1)
	case http.StateClosed:
		s.metricsManager.GaugeRequests.Add(-1)
	default:
		// do nothing
	}
}
