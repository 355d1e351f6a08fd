// @title			Kindroute API
// @version		1.0
// @description	Routes assistance requests and donations to candidate organizations, tracks their assignments and scores participants.
// @BasePath		/api/v1

package main

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/mtlprog/kindroute/internal/config"
	"github.com/mtlprog/kindroute/internal/logger"
)

func main() {
	// Existing environment variables win over .env values.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to load .env file", "error", err)
	}

	app := &cli.App{
		Name:  "kindroute",
		Usage: "Task fan-out, assignment tracking and scoring for assistance networks",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "log-format",
				Value:   "json",
				Usage:   "Log format (json, text)",
				EnvVars: []string{"LOG_FORMAT"},
			},
			&cli.StringFlag{
				Name:    "store",
				Value:   config.DefaultStore,
				Usage:   "Persistence backend (postgres, memory)",
				EnvVars: []string{"STORE"},
			},
			&cli.StringFlag{
				Name:    "database-url",
				Aliases: []string{"d"},
				Value:   config.DefaultDatabaseURL,
				Usage:   "PostgreSQL database URL",
				EnvVars: []string{"DATABASE_URL"},
			},
			&cli.StringFlag{
				Name:    "redis-addr",
				Usage:   "Redis address for notification delivery; empty logs notifications instead",
				EnvVars: []string{"REDIS_ADDR"},
			},
			&cli.StringFlag{
				Name:    "redis-password",
				Usage:   "Redis password",
				EnvVars: []string{"REDIS_PASSWORD"},
			},
			&cli.IntFlag{
				Name:    "redis-db",
				Usage:   "Redis database number",
				EnvVars: []string{"REDIS_DB"},
			},
			&cli.StringFlag{
				Name:    "email-queue",
				Value:   config.DefaultEmailQueue,
				Usage:   "Redis list that receives email notifications",
				EnvVars: []string{"EMAIL_QUEUE"},
			},
			&cli.StringFlag{
				Name:    "scoring-config",
				Usage:   "YAML file with badge thresholds and scoring rules; empty uses built-in defaults",
				EnvVars: []string{"SCORING_CONFIG"},
			},
			&cli.DurationFlag{
				Name:    "dispatch-interval",
				Value:   config.DefaultDispatchInterval,
				Usage:   "Outbox polling interval",
				EnvVars: []string{"DISPATCH_INTERVAL"},
			},
			&cli.IntFlag{
				Name:    "dispatch-batch",
				Value:   config.DefaultDispatchBatch,
				Usage:   "Notifications claimed per poll",
				EnvVars: []string{"DISPATCH_BATCH"},
			},
			&cli.IntFlag{
				Name:    "dispatch-max-attempts",
				Value:   config.DefaultDispatchMaxAttempts,
				Usage:   "Delivery attempts before a notification is marked failed",
				EnvVars: []string{"DISPATCH_MAX_ATTEMPTS"},
			},
			&cli.DurationFlag{
				Name:    "award-settle-interval",
				Value:   config.DefaultAwardSettleInterval,
				Usage:   "How often pending transition awards are retried",
				EnvVars: []string{"AWARD_SETTLE_INTERVAL"},
			},
			&cli.DurationFlag{
				Name:    "award-settle-grace",
				Value:   config.DefaultAwardSettleGrace,
				Usage:   "Minimum age of a pending award before it is retried",
				EnvVars: []string{"AWARD_SETTLE_GRACE"},
			},
		},
		Before: func(c *cli.Context) error {
			logger.Setup(logger.ParseLevel(c.String("log-level")), c.String("log-format"))
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Start the web server, the notification worker and award settlement",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "port",
						Aliases: []string{"p"},
						Value:   config.DefaultPort,
						Usage:   "HTTP server port",
						EnvVars: []string{"PORT"},
					},
				},
				Action: runServe,
			},
			{
				Name:  "dispatch",
				Usage: "Run the notification worker without the web server",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "once",
						Usage: "Drain one batch and exit",
					},
				},
				Action: runDispatch,
			},
			{
				Name:   "migrate",
				Usage:  "Apply database migrations and exit",
				Action: runMigrate,
			},
		},
		Action: runServe,
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}
