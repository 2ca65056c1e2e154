package main

import (
	"context"
	"github.com/myrjola/verdict/internal/errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const (
	shutdownTimeout   = 5 * time.Second
	idleTimeout       = time.Minute
	readHeaderTimeout = time.Second
)

// configureAndStartServer serves the API on addr until SIGINT, SIGTERM, or ctx cancellation.
func (app *application) configureAndStartServer(ctx context.Context, addr string) error {
	srv := &http.Server{
		ErrorLog:          slog.NewLogLogger(app.logger.Handler(), slog.LevelError),
		Handler:           app.routes(),
		IdleTimeout:       idleTimeout,
		ReadTimeout:       shutdownTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
		// Generation is slow. The write deadline leaves room for the handler timeout to answer first.
		WriteTimeout: app.requestTimeout + time.Second,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrap(err, "TCP listen", slog.String("addr", addr))
	}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		app.awaitShutdown(ctx, srv)
	}()

	app.logger.LogAttrs(ctx, slog.LevelInfo, "starting server", slog.String("addr", listener.Addr().String()))
	if err = srv.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server serve")
	}
	<-stopped
	return nil
}

func (app *application) awaitShutdown(ctx context.Context, srv *http.Server) {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signals)

	select {
	case sig := <-signals:
		app.logger.LogAttrs(ctx, slog.LevelInfo, "shutting down server", slog.String("signal", sig.String()))
	case <-ctx.Done():
		app.logger.LogAttrs(ctx, slog.LevelInfo, "shutting down server", slog.String("reason", "context done"))
	}

	// ctx may already be cancelled, so the drain gets a fresh deadline.
	drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(drainCtx); err != nil {
		app.logger.LogAttrs(ctx, slog.LevelError, "error shutting down server",
			errors.SlogError(errors.Wrap(err, "shutdown server")))
	}
}
