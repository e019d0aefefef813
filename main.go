package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vofo/internal/app"
	"vofo/internal/config"
	"vofo/internal/logging"
	"vofo/pkg/rabbitmq"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		log.Fatal("application error", "err", err)
	}
}

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to a yaml, toml or json configuration file",
		Sources: cli.EnvVars("VOFO_CONFIG"),
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:   "vofo",
		Usage:  "Music search and stream proxy with accounts and liked songs",
		Flags:  []cli.Flag{configFlag()},
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP server (default)",
				Flags:  []cli.Flag{configFlag()},
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "Create or update the database schema and exit",
				Flags:  []cli.Flag{configFlag()},
				Action: migrate,
			},
		},
	}
}

func load(cmd *cli.Command) (*config.Config, *log.Logger, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	logger := logging.New(cfg.LogLevel, os.Stderr)
	log.SetDefault(logger)
	return cfg, logger, nil
}

func migrate(_ context.Context, cmd *cli.Command) error {
	cfg, logger, err := load(cmd)
	if err != nil {
		return err
	}
	if err := app.Migrate(cfg, logger); err != nil {
		return err
	}
	logger.Info("database migrated")
	return nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, logger, err := load(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Warn("error closing resources", "err", err)
		}
	}()

	server := app.New(rt.Deps)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting server", "addr", cfg.ListenAddr())
		return server.Listen(cfg.ListenAddr())
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")
		return server.ShutdownWithTimeout(shutdownTimeout)
	})
	if rt.Events != nil {
		g.Go(func() error {
			return rt.Events.ConsumeEvents(gctx, rabbitmq.LogEventHandler(logging.With(logger, "component", "events")))
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server gracefully stopped")
	return nil
}
