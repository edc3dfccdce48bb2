package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"

	"github.com/2beens/runlog/internal"
	"github.com/2beens/runlog/internal/config"
	"github.com/2beens/runlog/internal/logging"
	"github.com/2beens/runlog/pkg"

	log "github.com/sirupsen/logrus"
)

func main() {
	fmt.Println("starting ...")

	env := flag.String("env", "development", "environment [prod | production | dev | development]")
	configPath := flag.String("config", "./config.toml", "path for the TOML config file")
	flag.Parse()

	log.Warnf("---->> running in [%s] environment", *env)

	if err := config.LoadDotEnv(".env"); err != nil {
		log.Errorf("load .env: %s", err)
	}

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		panic(err)
	}
	secrets := config.SecretsFromEnv()

	logging.Setup(logging.LoggerSetupParams{
		ServiceName:      "runlog-service",
		LogFileName:      cfg.LogsPath,
		LogToStdout:      cfg.LogToStdout,
		LogLevel:         cfg.LogLevel,
		LogFormatJSON:    false,
		Environment:      cfg.Environment,
		SentryEnabled:    cfg.SentryEnabled,
		SentryDSN:        secrets.SentryDSN,
		SentryServerName: "runlog-service",
	})

	log.Debugf("using port: %d", cfg.Port)
	log.Debugf("using server logs path: [%s]", cfg.LogsPath)

	versionInfo, err := tryGetLastCommitHash()
	if err != nil {
		log.Tracef("failed to get last commit hash / version info: %s", err)
	} else {
		log.Tracef("running version: %s", versionInfo)
	}

	if secrets.JWTSecret == "" {
		log.Fatalln("jwt secret not set. use RUNLOG_JWT_SECRET")
	}
	if secrets.RedisPassword == "" {
		log.Errorf("redis password not set. use RUNLOG_REDIS_PASS")
	}

	if otelServiceName := os.Getenv("OTEL_SERVICE_NAME"); otelServiceName == "" {
		log.Warnln("OTEL_SERVICE_NAME env var not set")
	}
	if secrets.HoneycombEnabled {
		if secrets.HoneycombApiKey == "" {
			log.Warnln("HONEYCOMB_API_KEY env var not set")
		}
	} else {
		log.Debugln("honeycomb tracing disabled")
	}

	storageRootExists, err := pkg.PathExists(cfg.StorageRootPath, true)
	if err != nil {
		log.Fatalf("check storage root dir: %s", err)
	}
	if !storageRootExists {
		log.Warnf("storage root dir [%s] missing, will be created", cfg.StorageRootPath)
	}

	chOsInterrupt := make(chan os.Signal, 1)
	signal.Notify(chOsInterrupt, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())

	server, err := internal.NewServer(
		ctx,
		internal.NewServerParams{
			Config:      cfg,
			Secrets:     secrets,
			VersionInfo: versionInfo,
		},
	)
	if err != nil {
		log.Fatalf("new server: %s", err)
	}

	server.Serve(cfg.Host, cfg.Port)

	receivedSig := <-chOsInterrupt
	log.Warnf("signal [%s] received, killing everything ...", receivedSig)
	cancel()

	server.GracefulShutdown()
}

// tryGetLastCommitHash will try to get the last commit hash
// assumes that the built main executable is in project root
func tryGetLastCommitHash() (string, error) {
	cmd := exec.Command("/usr/bin/git", "rev-parse", "HEAD")
	stdout, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(pkg.BytesToString(stdout)), nil
}
