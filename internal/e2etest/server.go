// Package e2etest drives the game API over HTTP, either against a server started in-process or a deployed one.
package e2etest

import (
	"context"
	"fmt"
	"github.com/myrjola/verdict/internal/errors"
	"github.com/myrjola/verdict/internal/logging"
	"io"
	"log/slog"
)

// LogAddrKey is the log attribute under which the server reports the address it listens on.
const LogAddrKey = "addr"

// RunFunc starts a server and blocks until ctx is cancelled. It has the signature of the web command's run.
type RunFunc func(ctx context.Context, logger *slog.Logger, lookupEnv func(string) (string, bool)) error

// Server is a server started in-process by StartServer.
type Server struct {
	url    string
	client *Client
	cancel context.CancelCauseFunc
	done   chan error
}

// StartServer runs the server in a goroutine and returns once it answers health checks. The listen address is read
// from the log record carrying LogAddrKey, so lookupEnv should point the server at port 0.
//
// logSink receives the server logs. You usually want [io.Discard].
func StartServer(ctx context.Context, logSink io.Writer, lookupEnv func(string) (string, bool), run RunFunc) (
	*Server, error) {
	ctx, cancel := context.WithCancelCause(ctx)

	addrCh := make(chan string, 1)
	logger := slog.New(logging.NewContextHandler(slog.NewTextHandler(logSink, &slog.HandlerOptions{
		AddSource: false,
		Level:     slog.LevelDebug,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == LogAddrKey {
				select {
				case addrCh <- a.Value.String():
				default:
				}
			}
			return a
		},
	})))

	done := make(chan error, 1)
	go func() {
		err := run(ctx, logger, lookupEnv)
		if err != nil {
			cancel(err)
		}
		done <- err
	}()

	var addr string
	select {
	case <-ctx.Done():
		return nil, errors.Wrap(context.Cause(ctx), "server stopped before listening")
	case addr = <-addrCh:
	}

	s := &Server{
		url:    fmt.Sprintf("http://%s", addr),
		cancel: cancel,
		done:   done,
	}
	s.client = NewClient(s.url)
	if err := s.client.WaitForReady(ctx, "/api/healthy"); err != nil {
		return nil, errors.Join(errors.Wrap(err, "wait for ready"), s.Close())
	}
	return s, nil
}

// Close stops the server and waits for it to shut down.
func (s *Server) Close() error {
	s.cancel(nil)
	if err := <-s.done; err != nil {
		return errors.Wrap(err, "run server")
	}
	return nil
}

func (s *Server) Client() *Client {
	return s.client
}

func (s *Server) URL() string {
	return s.url
}
