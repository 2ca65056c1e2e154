package game

import (
	"context"
	"github.com/myrjola/verdict/internal/errors"
	"github.com/myrjola/verdict/internal/models"
	"log/slog"
	"strings"
	"time"
)

// TurnProcessor answers a player's question in the voice of the defendant.
type TurnProcessor struct {
	generator Generator
	history   *HistoryAdapter
	timeout   time.Duration
	logger    *slog.Logger
}

func NewTurnProcessor(
	generator Generator, history *HistoryAdapter, timeout time.Duration, logger *slog.Logger) *TurnProcessor {
	return &TurnProcessor{
		generator: generator,
		history:   history,
		timeout:   timeout,
		logger:    logger,
	}
}

// ProcessMessage appends the question, generates a reply from the complete thread, and appends the reply. The
// reply is appended only after generation succeeds. A question appended before a failed generation stays in the
// thread.
func (p *TurnProcessor) ProcessMessage(ctx context.Context, message string, state models.GameState) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", errors.Wrap(ErrInvalidMessage, "empty message")
	}

	if _, err := p.history.AppendTurn(ctx, state.Defendant, message, true); err != nil {
		return "", err
	}

	messages, err := p.history.Messages(ctx, state.Defendant)
	if err != nil {
		return "", err
	}

	genCtx, cancel := withTimeout(ctx, p.timeout)
	defer cancel()
	reply, err := p.generator.Generate(genCtx, defendantSystemPrompt(state.CaseFacts), messages)
	if err != nil {
		p.logger.LogAttrs(ctx, slog.LevelWarn, "reply generation failed, question left without answer",
			errors.SlogError(err))
		return "", upstream(err, "generate defendant reply")
	}

	if _, err = p.history.AppendTurn(ctx, state.Defendant, reply, false); err != nil {
		return "", err
	}
	return reply, nil
}
