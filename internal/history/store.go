// Package history is an append-only conversation log. Each thread is addressed by an application, user, and
// session id triple; messages are returned in the order they were appended.
package history

import (
	"context"
	"database/sql"
	"github.com/google/uuid"
	"github.com/myrjola/verdict/internal/errors"
	"github.com/myrjola/verdict/internal/models"
	"github.com/myrjola/verdict/internal/sqlite"
	"log/slog"
	"time"
)

var ErrThreadNotFound = errors.NewSentinel("history thread not found")

type Store struct {
	dbs    *sqlite.Database
	appID  string
	logger *slog.Logger
}

// NewStore creates a history store. New threads are created under appID.
func NewStore(dbs *sqlite.Database, appID string, logger *slog.Logger) *Store {
	return &Store{
		dbs:    dbs,
		appID:  appID,
		logger: logger.With("source", "history.Store"),
	}
}

// CreateThread opens a new thread with fresh user and session ids.
func (s *Store) CreateThread(ctx context.Context) (models.DefendantIdentity, error) {
	identity := models.DefendantIdentity{
		AppID:     s.appID,
		UserID:    uuid.NewString(),
		SessionID: uuid.NewString(),
	}
	stmt := `INSERT INTO history_threads (session_id, app_id, user_id) VALUES (?, ?, ?)`
	if _, err := s.dbs.ReadWrite.ExecContext(ctx, stmt, identity.SessionID, identity.AppID, identity.UserID); err != nil {
		return models.DefendantIdentity{}, errors.Wrap(err, "insert thread")
	}
	s.logger.LogAttrs(ctx, slog.LevelDebug, "created thread", slog.String("session_id", identity.SessionID))
	return identity, nil
}

type messageRow struct {
	ID        int64  `db:"id"`
	Content   string `db:"content"`
	IsUser    bool   `db:"is_user"`
	CreatedAt string `db:"created_at"`
}

func (r messageRow) turn() (models.Turn, error) {
	createdAt, err := time.Parse(time.RFC3339Nano, r.CreatedAt)
	if err != nil {
		return models.Turn{}, errors.Wrap(err, "parse created_at", slog.String("created_at", r.CreatedAt))
	}
	return models.Turn{
		ID:        r.ID,
		Content:   r.Content,
		IsUser:    r.IsUser,
		CreatedAt: createdAt,
	}, nil
}

// AppendMessage adds a message to the end of the thread.
func (s *Store) AppendMessage(
	ctx context.Context,
	identity models.DefendantIdentity,
	content string,
	isUser bool,
) (models.Turn, error) {
	stmt := `INSERT INTO history_messages (session_id, content, is_user)
SELECT session_id, :content, :is_user
FROM history_threads
WHERE app_id = :app_id AND user_id = :user_id AND session_id = :session_id
RETURNING id, content, is_user, created_at`
	var row messageRow
	err := s.dbs.ReadWrite.GetContext(ctx, &row, stmt,
		sql.Named("content", content),
		sql.Named("is_user", isUser),
		sql.Named("app_id", identity.AppID),
		sql.Named("user_id", identity.UserID),
		sql.Named("session_id", identity.SessionID),
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Turn{}, errors.Wrap(ErrThreadNotFound, "append message",
			slog.String("session_id", identity.SessionID))
	}
	if err != nil {
		return models.Turn{}, errors.Wrap(err, "insert message", slog.String("session_id", identity.SessionID))
	}
	return row.turn()
}

// ListMessages returns every message of the thread in append order.
func (s *Store) ListMessages(ctx context.Context, identity models.DefendantIdentity) ([]models.Turn, error) {
	var exists bool
	if err := s.dbs.ReadOnly.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1
FROM history_threads
WHERE app_id = ? AND user_id = ? AND session_id = ?)`, identity.AppID, identity.UserID, identity.SessionID); err != nil {
		return nil, errors.Wrap(err, "query thread", slog.String("session_id", identity.SessionID))
	}
	if !exists {
		return nil, errors.Wrap(ErrThreadNotFound, "list messages", slog.String("session_id", identity.SessionID))
	}

	var rows []messageRow
	if err := s.dbs.ReadOnly.SelectContext(ctx, &rows, `SELECT id, content, is_user, created_at
FROM history_messages
WHERE session_id = ?
ORDER BY id`, identity.SessionID); err != nil {
		return nil, errors.Wrap(err, "query messages", slog.String("session_id", identity.SessionID))
	}

	turns := make([]models.Turn, 0, len(rows))
	for _, row := range rows {
		turn, err := row.turn()
		if err != nil {
			return nil, err
		}
		turns = append(turns, turn)
	}
	return turns, nil
}
