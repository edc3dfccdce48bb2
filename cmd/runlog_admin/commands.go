package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/2beens/runlog/internal/auth"
	"github.com/2beens/runlog/internal/config"
	"github.com/2beens/runlog/internal/db"
	"github.com/2beens/runlog/internal/workouts"
	"github.com/2beens/runlog/pkg"

	"github.com/cli/browser"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var userIDFlag = &cli.StringFlag{
	Name:     "user-id",
	Required: true,
	Usage:    "id of the user the workouts belong to",
}

func openDB(c *cli.Context) (*pgxpool.Pool, error) {
	cfg, err := config.Load(c.String("env"), c.String("config"))
	if err != nil {
		return nil, err
	}
	secrets := config.SecretsFromEnv()

	pool, err := db.NewDBPool(c.Context, db.NewDBPoolParams{
		DBHost:     cfg.PostgresHost,
		DBPort:     cfg.PostgresPort,
		DBName:     cfg.PostgresDBName,
		DBUser:     cfg.PostgresUser,
		DBPassword: secrets.PostgresPassword,
	})
	if err != nil {
		return nil, fmt.Errorf("new db pool: %w", err)
	}
	if err := db.Migrate(c.Context, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate db: %w", err)
	}
	return pool, nil
}

func userCommand() *cli.Command {
	return &cli.Command{
		Name:  "user",
		Usage: "manage users",
		Subcommands: []*cli.Command{
			{
				Name:  "add",
				Usage: "create a user together with its profile",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "username", Required: true},
					&cli.StringFlag{Name: "password", Required: true, EnvVars: []string{"RUNLOG_NEW_USER_PASSWORD"}},
				},
				Action: func(c *cli.Context) error {
					passwordHash, err := pkg.HashPassword(c.String("password"))
					if err != nil {
						return fmt.Errorf("hash password: %w", err)
					}

					pool, err := openDB(c)
					if err != nil {
						return err
					}
					defer pool.Close()

					user, err := auth.NewUsersRepo(pool).Add(c.Context, c.String("username"), passwordHash)
					if err != nil {
						if errors.Is(err, auth.ErrUserExists) {
							return fmt.Errorf("username [%s] is taken", c.String("username"))
						}
						return err
					}

					log.Infof("user [%s] created with id [%s]", user.Username, user.ID)
					fmt.Fprintln(c.App.Writer, user.ID)
					return nil
				},
			},
		},
	}
}

func hashPasswordCommand() *cli.Command {
	return &cli.Command{
		Name:  "hash-password",
		Usage: "print the bcrypt hash of a password",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "password", Required: true},
		},
		Action: func(c *cli.Context) error {
			passwordHash, err := pkg.HashPassword(c.String("password"))
			if err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, passwordHash)
			return nil
		},
	}
}

func importFITCommand() *cli.Command {
	return &cli.Command{
		Name:      "import-fit",
		Usage:     "import running sessions from FIT activity files",
		ArgsUsage: "FILE...",
		Flags:     []cli.Flag{userIDFlag},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return errors.New("no FIT files given")
			}

			pool, err := openDB(c)
			if err != nil {
				return err
			}
			defer pool.Close()
			repo := workouts.NewRepo(pool)

			imported := 0
			for _, path := range c.Args().Slice() {
				n, err := importFITFile(c, repo, path)
				if err != nil {
					return fmt.Errorf("import %s: %w", path, err)
				}
				imported += n
			}

			log.Infof("imported %d workouts from %d files", imported, c.NArg())
			return nil
		},
	}
}

func importFITFile(c *cli.Context, repo *workouts.Repo, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	decoded, err := workouts.DecodeFIT(f, c.String("user-id"))
	if err != nil {
		return 0, err
	}
	if len(decoded) == 0 {
		log.Warnf("%s: no running sessions", path)
		return 0, nil
	}

	added := 0
	for _, w := range decoded {
		if err := w.Validate(); err != nil {
			log.Warnf("%s: skipping session on %s: %s", path, w.Date, err)
			continue
		}
		stored, err := repo.Add(c.Context, w)
		if err != nil {
			return added, err
		}
		added++
		log.Debugf("%s: workout [%d] %s %.2fkm %dmin %s", path, stored.ID, stored.Date, stored.Distance, stored.Duration, stored.Pace)
	}
	return added, nil
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "export a user's workouts to a parquet file",
		Flags: []cli.Flag{
			userIDFlag,
			&cli.StringFlag{Name: "out", Required: true, Usage: "target .parquet file"},
		},
		Action: func(c *cli.Context) error {
			pool, err := openDB(c)
			if err != nil {
				return err
			}
			defer pool.Close()

			all, err := workouts.NewRepo(pool).List(c.Context, workouts.ListParams{UserID: c.String("user-id")})
			if err != nil {
				return err
			}

			data, err := workouts.MarshalParquet(all)
			if err != nil {
				return err
			}
			if err := os.WriteFile(c.String("out"), data, 0o644); err != nil {
				return err
			}

			log.Infof("exported %d workouts to %s", len(all), c.String("out"))
			return nil
		},
	}
}

func weeklyChartCommand() *cli.Command {
	return &cli.Command{
		Name:  "weekly-chart",
		Usage: "render the last 7 days as an HTML bar chart",
		Flags: []cli.Flag{
			userIDFlag,
			&cli.StringFlag{Name: "out", Value: "weekly.html", Usage: "target .html file"},
			&cli.BoolFlag{Name: "open", Usage: "open the chart in the browser"},
		},
		Action: func(c *cli.Context) error {
			pool, err := openDB(c)
			if err != nil {
				return err
			}
			defer pool.Close()

			today := workouts.NewDate(time.Now().UTC())
			since := workouts.WeekWindowStart(today)
			lastWeek, err := workouts.NewRepo(pool).List(c.Context, workouts.ListParams{
				UserID: c.String("user-id"),
				Since:  &since,
				Until:  &today,
			})
			if err != nil {
				return err
			}

			buf := &bytes.Buffer{}
			if err := workouts.RenderWeeklyChart(buf, workouts.AggregateWeekly(lastWeek)); err != nil {
				return err
			}
			if err := os.WriteFile(c.String("out"), buf.Bytes(), 0o644); err != nil {
				return err
			}
			log.Infof("weekly chart written to %s", c.String("out"))

			if c.Bool("open") {
				return browser.OpenFile(c.String("out"))
			}
			return nil
		},
	}
}
