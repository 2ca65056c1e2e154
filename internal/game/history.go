package game

import (
	"context"
	"github.com/myrjola/verdict/internal/ai"
	"github.com/myrjola/verdict/internal/models"
	"time"
)

// HistoryAdapter records the conversation with the defendant and renders it as generation context.
type HistoryAdapter struct {
	history HistoryService
	timeout time.Duration
}

func NewHistoryAdapter(history HistoryService, timeout time.Duration) *HistoryAdapter {
	return &HistoryAdapter{history: history, timeout: timeout}
}

// AppendTurn adds one turn to the end of the defendant's thread.
func (h *HistoryAdapter) AppendTurn(
	ctx context.Context, defendant models.DefendantIdentity, content string, isUser bool) (models.Turn, error) {
	ctx, cancel := withTimeout(ctx, h.timeout)
	defer cancel()
	turn, err := h.history.AppendMessage(ctx, defendant, content, isUser)
	if err != nil {
		return models.Turn{}, upstream(err, "append turn")
	}
	return turn, nil
}

// Turns returns the whole thread in insertion order.
func (h *HistoryAdapter) Turns(ctx context.Context, defendant models.DefendantIdentity) ([]models.Turn, error) {
	ctx, cancel := withTimeout(ctx, h.timeout)
	defer cancel()
	turns, err := h.history.ListMessages(ctx, defendant)
	if err != nil {
		return nil, upstream(err, "list turns")
	}
	return turns, nil
}

// Messages returns the thread as role-tagged generation context, oldest first.
func (h *HistoryAdapter) Messages(ctx context.Context, defendant models.DefendantIdentity) ([]ai.Message, error) {
	turns, err := h.Turns(ctx, defendant)
	if err != nil {
		return nil, err
	}
	return toMessages(turns), nil
}

func toMessages(turns []models.Turn) []ai.Message {
	messages := make([]ai.Message, 0, len(turns))
	for _, turn := range turns {
		role := ai.RoleAssistant
		if turn.IsUser {
			role = ai.RoleUser
		}
		messages = append(messages, ai.Message{Role: role, Content: turn.Content})
	}
	return messages
}
