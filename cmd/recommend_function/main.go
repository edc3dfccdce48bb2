// Command recommend_function serves the workout recommendation endpoint as an AWS Lambda
// behind API Gateway.
package main

import (
	"context"
	"net"
	"os"

	"github.com/2beens/runlog/internal/auth"
	"github.com/2beens/runlog/internal/config"
	"github.com/2beens/runlog/internal/db"
	"github.com/2beens/runlog/internal/logging"
	"github.com/2beens/runlog/internal/recommendation"
	"github.com/2beens/runlog/internal/telemetry/metrics"
	"github.com/2beens/runlog/internal/workouts"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/awslabs/aws-lambda-go-api-proxy/gorillamux"
	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

func main() {
	env := os.Getenv("RUNLOG_ENV")
	if env == "" {
		env = "production"
	}
	configPath := os.Getenv("RUNLOG_CONFIG")
	if configPath == "" {
		configPath = "./config.toml"
	}

	cfg, err := config.Load(env, configPath)
	if err != nil {
		log.Fatalf("load config: %s", err)
	}
	secrets := config.SecretsFromEnv()

	logging.Setup(logging.LoggerSetupParams{
		ServiceName:      "runlog-function",
		LogToStdout:      true,
		LogLevel:         cfg.LogLevel,
		LogFormatJSON:    true,
		Environment:      cfg.Environment,
		SentryEnabled:    cfg.SentryEnabled,
		SentryDSN:        secrets.SentryDSN,
		SentryServerName: "runlog-recommend-function",
	})

	ctx := context.Background()
	dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost:     cfg.PostgresHost,
		DBPort:     cfg.PostgresPort,
		DBName:     cfg.PostgresDBName,
		DBUser:     cfg.PostgresUser,
		DBPassword: secrets.PostgresPassword,
	})
	if err != nil {
		log.Fatalf("new db pool: %s", err)
	}
	defer dbPool.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(cfg.RedisHost, cfg.RedisPort),
		Password: secrets.RedisPassword,
	})
	defer rdb.Close()

	tokens, err := auth.NewTokenIssuer(secrets.JWTSecret, cfg.JWTIssuer)
	if err != nil {
		log.Fatalf("new token issuer: %s", err)
	}
	authService := auth.NewAuthService(cfg.SessionTTL(), rdb, auth.NewUsersRepo(dbPool), tokens)
	defer authService.Close()

	// metrics are not scraped from a function, the registry only satisfies the handler
	metricsManager := metrics.NewManager("runlog", "function", prometheus.NewRegistry())

	router := mux.NewRouter()
	recommendation.NewHandler(authService, workouts.NewRepo(dbPool), metricsManager).SetupRoutes(router)

	adapter := gorillamux.New(router)
	log.Infof("running recommend function, route [%s]", recommendation.Path)
	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
}
