package game

import (
	"context"
	"encoding/json"
	"github.com/myrjola/verdict/internal/errors"
	"github.com/myrjola/verdict/internal/kv"
	"github.com/myrjola/verdict/internal/models"
	"log/slog"
	"time"
)

// gameIndexKey holds every game id, newest first.
const gameIndexKey = "games:list"

func gameKey(id string) string {
	return "game:" + id
}

// SessionStore reads and writes game records.
type SessionStore struct {
	store   Store
	timeout time.Duration
}

func NewSessionStore(store Store, timeout time.Duration) *SessionStore {
	return &SessionStore{store: store, timeout: timeout}
}

// Save writes the record and registers its id in the index in one atomic update.
func (s *SessionStore) Save(ctx context.Context, state models.GameState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return errors.Wrap(err, "marshal game state", slog.String("game_id", state.ID))
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	if err = s.store.Update(ctx, func(w kv.Writer) error {
		if err = w.Set(ctx, gameKey(state.ID), string(data)); err != nil {
			return err
		}
		return w.ListPrepend(ctx, gameIndexKey, state.ID)
	}); err != nil {
		return upstream(err, "save game", slog.String("game_id", state.ID))
	}
	return nil
}

// Load returns the game with id, ErrNotFound when it does not exist, or ErrMalformedState when the record cannot be
// decoded.
func (s *SessionStore) Load(ctx context.Context, id string) (models.GameState, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	data, err := s.store.Get(ctx, gameKey(id))
	if errors.Is(err, kv.ErrNotFound) {
		return models.GameState{}, errors.Wrap(ErrNotFound, "load game", slog.String("game_id", id))
	}
	if err != nil {
		return models.GameState{}, upstream(err, "load game", slog.String("game_id", id))
	}

	var state models.GameState
	if err = json.Unmarshal([]byte(data), &state); err != nil {
		return models.GameState{}, errors.Wrap(errors.Join(ErrMalformedState, err), "decode game",
			slog.String("game_id", id))
	}
	if err = validate(id, state); err != nil {
		return models.GameState{}, err
	}
	return state, nil
}

// List returns all game ids, newest first.
func (s *SessionStore) List(ctx context.Context) ([]string, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	ids, err := s.store.ListRange(ctx, gameIndexKey)
	if err != nil {
		return nil, upstream(err, "list games")
	}
	return ids, nil
}

func validate(id string, state models.GameState) error {
	switch {
	case state.ID != id:
		return errors.Wrap(ErrMalformedState, "id mismatch", slog.String("game_id", id),
			slog.String("stored_id", state.ID))
	case !state.CaseFacts.TrueVerdict.Valid():
		return errors.Wrap(ErrMalformedState, "invalid verdict", slog.String("game_id", id))
	case !state.Stage.Valid():
		return errors.Wrap(ErrMalformedState, "invalid stage", slog.String("game_id", id),
			slog.String("stage", string(state.Stage)))
	case state.Defendant.SessionID == "":
		return errors.Wrap(ErrMalformedState, "missing defendant identity", slog.String("game_id", id))
	}
	return nil
}
