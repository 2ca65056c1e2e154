// Package testhelpers holds fixtures shared by tests and test-only binaries.
package testhelpers

import (
	"github.com/myrjola/verdict/internal/logging"
	"io"
	"log/slog"
)

// NewLogger logs everything down to debug level as text to sink, e.g. [io.Discard] or os.Stdout.
func NewLogger(sink io.Writer) *slog.Logger {
	text := slog.NewTextHandler(sink, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(logging.NewContextHandler(text))
}
