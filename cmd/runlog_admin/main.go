// Command runlog_admin runs maintenance tasks against the runlog database:
// users, FIT imports, exports and local weekly charts.
package main

import (
	"context"
	"os"

	"github.com/2beens/runlog/internal/config"
	"github.com/2beens/runlog/internal/logging"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:     "runlog_admin",
		HelpName: "runlog_admin",
		Usage:    "runlog administration",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "env",
				Value:   "development",
				Usage:   "environment [prod | production | dev | development]",
				EnvVars: []string{"RUNLOG_ENV"},
			},
			&cli.StringFlag{
				Name:    "config",
				Value:   "./config.toml",
				Usage:   "path for the TOML config file",
				EnvVars: []string{"RUNLOG_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Value: "info",
				Usage: "log level",
			},
		},
		Before: func(c *cli.Context) error {
			if err := config.LoadDotEnv(".env"); err != nil {
				return err
			}
			logging.Setup(logging.LoggerSetupParams{
				ServiceName: "runlog-admin",
				LogToStdout: true,
				LogLevel:    c.String("log-level"),
			})
			return nil
		},
		ExitErrHandler: func(c *cli.Context, err error) {
			if err == nil {
				return
			}
			log.Errorf("%s: %s", c.App.Name, err)
		},
		Commands: []*cli.Command{
			userCommand(),
			hashPasswordCommand(),
			importFITCommand(),
			exportCommand(),
			weeklyChartCommand(),
		},
	}

	if err := app.RunContext(context.Background(), os.Args); err != nil {
		os.Exit(1)
	}
}
