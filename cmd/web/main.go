package main

import (
	"context"
	"github.com/myrjola/verdict/internal/app"
	"github.com/myrjola/verdict/internal/errors"
	"github.com/myrjola/verdict/internal/game"
	"github.com/myrjola/verdict/internal/logging"
	"github.com/myrjola/verdict/internal/pprofserver"
	"log/slog"
	"os"
	"time"
)

type application struct {
	logger         *slog.Logger
	games          *game.Service
	ping           func(ctx context.Context) error
	requestTimeout time.Duration
}

func run(ctx context.Context, logger *slog.Logger, lookupEnv func(string) (string, bool)) error {
	cfg, err := app.LoadConfig(lookupEnv)
	if err != nil {
		return errors.Wrap(err, "load config")
	}

	if cfg.PprofAddr != "" {
		if _, err = pprofserver.Start(ctx, cfg.PprofAddr, logger); err != nil {
			return errors.Wrap(err, "start pprof server")
		}
	}

	var a *app.App
	if a, err = app.New(ctx, cfg, logger); err != nil {
		return errors.Wrap(err, "new app")
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.LogAttrs(ctx, slog.LevelError, "failed to close app", errors.SlogError(closeErr))
		}
	}()

	web := application{
		logger:         logger,
		games:          a.Games,
		ping:           a.Ping,
		requestTimeout: cfg.RequestTimeout,
	}

	if err = web.configureAndStartServer(ctx, cfg.Addr); err != nil {
		return errors.Wrap(err, "start server")
	}
	return nil
}

func main() {
	ctx := context.Background()
	loggerHandler := logging.NewContextHandler(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		AddSource:   false,
		Level:       slog.LevelDebug,
		ReplaceAttr: nil,
	}))
	logger := slog.New(loggerHandler)
	if err := run(ctx, logger, os.LookupEnv); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failure starting application", errors.SlogError(err))
		os.Exit(1)
	}
}
