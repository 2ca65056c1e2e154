// Package game runs interrogation games: it creates cases with a secret verdict, persists them, and turns player
// questions into defendant replies.
package game

import (
	"context"
	"fmt"
	"github.com/myrjola/verdict/internal/ai"
	"github.com/myrjola/verdict/internal/errors"
	"github.com/myrjola/verdict/internal/kv"
	"github.com/myrjola/verdict/internal/models"
	"log/slog"
	"time"
)

var (
	ErrNotFound       = errors.NewSentinel("game not found")
	ErrUpstream       = errors.NewSentinel("upstream failure")
	ErrMalformedState = errors.NewSentinel("malformed game state")
	ErrInvalidMessage = errors.NewSentinel("invalid message")
)

// Generator produces text from a system instruction and role-tagged context.
type Generator interface {
	Generate(ctx context.Context, system string, messages []ai.Message) (string, error)
}

// HistoryService is an append-only, ordered conversation log.
type HistoryService interface {
	CreateThread(ctx context.Context) (models.DefendantIdentity, error)
	AppendMessage(ctx context.Context, identity models.DefendantIdentity, content string, isUser bool) (models.Turn, error)
	ListMessages(ctx context.Context, identity models.DefendantIdentity) ([]models.Turn, error)
}

// Store persists game records and the game index.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	ListRange(ctx context.Context, key string) ([]string, error)
	Update(ctx context.Context, fn func(w kv.Writer) error) error
}

// upstream marks err as a failure of an external collaborator.
func upstream(err error, msg string, attrs ...slog.Attr) error {
	return errors.Wrap(fmt.Errorf("%w: %w", ErrUpstream, err), msg, attrs...)
}

// withTimeout bounds a single collaborator call. A non-positive timeout leaves ctx as is.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}
