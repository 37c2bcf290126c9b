package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Giuseph66/neurelix-nexus/internal/bootstrap"
	"github.com/Giuseph66/neurelix-nexus/internal/config"
	"github.com/Giuseph66/neurelix-nexus/internal/logger"
	"github.com/Giuseph66/neurelix-nexus/internal/version"

	"github.com/urfave/cli/v2"
)

func main() {
	app := newApp()
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = version.App
	app.Usage = "GitHub integration service for Neurelix projects"
	app.Version = version.String()
	app.HideVersion = true
	app.Action = cli.ShowAppHelp
	app.Commands = []*cli.Command{
		{
			Name:        "server",
			Usage:       "Start the HTTP server",
			Category:    "Service",
			Description: `Serves the git integration API, OAuth/App callbacks and GitHub webhooks.`,
			Action:      runServer,
		},
		{
			Name:        "cleanup",
			Usage:       "Purge expired handshake states and old audit logs once",
			Category:    "Maintenance",
			Description: `Runs the same cleanup the server schedules, for deployments that prefer cron.`,
			Action:      runCleanup,
		},
		{
			Name:      "issue-token",
			Usage:     "Mint a local bearer token for development",
			Category:  "Maintenance",
			ArgsUsage: "<user-id>",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "email", Usage: "email claim of the token"},
			},
			Action: runIssueToken,
		},
		{
			Name:  "version",
			Usage: "Show version information",
			Action: func(*cli.Context) error {
				version.PrintVersion()
				return nil
			},
		},
	}
	return app
}

func setup() (*config.Config, *logger.Logger, error) {
	cfg := config.Load()
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, log, nil
}

func runServer(c *cli.Context) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	log.Info("starting "+version.App, "version", version.String(), "commit", version.ShortCommit())
	if err := bootstrap.Run(c.Context, cfg, log); err != nil {
		log.Error("server failed", "error", err)
		return cli.Exit(err.Error(), 1)
	}
	return nil
}

func runCleanup(c *cli.Context) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	return bootstrap.Cleanup(ctx, cfg, log)
}

func runIssueToken(c *cli.Context) error {
	userID := c.Args().First()
	if userID == "" {
		return cli.Exit("issue-token requires a <user-id> argument", 2)
	}

	cfg := config.Load()
	if cfg.TokenProviderMode != config.TokenProviderModeLocal {
		return cli.Exit("issue-token only works with TOKEN_PROVIDER_MODE=local", 2)
	}

	issued, err := bootstrap.NewLocalVerifier(cfg).Issue(userID, c.String("email"))
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "%s\n# %s token for %s, expires %s\n",
		issued.TokenString, issued.TokenType, userID, issued.ExpiresAt.Format(time.RFC3339))
	return nil
}
