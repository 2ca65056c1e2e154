// Package ai adapts text-generation providers to a single call: a system instruction plus role-tagged turns in,
// generated text out.
package ai

import (
	"context"
	"github.com/myrjola/verdict/internal/errors"
	"log/slog"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one role-tagged turn of generation context.
type Message struct {
	Role    Role
	Content string
}

var (
	ErrEmptyCompletion = errors.NewSentinel("provider returned no text")
	ErrInvalidContext  = errors.NewSentinel("invalid generation context")
	ErrUnknownProvider = errors.NewSentinel("unknown ai provider")
)

// Client generates text. Close releases provider resources.
type Client interface {
	Generate(ctx context.Context, system string, messages []Message) (string, error)
	Close() error
}

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

type Config struct {
	Provider      string
	Model         string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	GeminiAPIKey  string
}

// NewClient constructs the client for cfg.Provider.
func NewClient(ctx context.Context, cfg Config) (Client, error) {
	switch cfg.Provider {
	case ProviderOpenAI:
		return NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.Model), nil
	case ProviderGemini:
		client, err := NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.Model)
		if err != nil {
			return nil, errors.Wrap(err, "new gemini client")
		}
		return client, nil
	default:
		return nil, errors.Wrap(ErrUnknownProvider, "new client", slog.String("provider", cfg.Provider))
	}
}
