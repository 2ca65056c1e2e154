package game

import (
	"context"
	"github.com/google/uuid"
	"github.com/myrjola/verdict/internal/errors"
	"github.com/myrjola/verdict/internal/logging"
	"github.com/myrjola/verdict/internal/models"
	"github.com/myrjola/verdict/internal/random"
	"github.com/myrjola/verdict/internal/sessionlock"
	"log/slog"
	"time"
)

const defaultUpstreamTimeout = 60 * time.Second

// Config tunes a Service. Zero values fall back to production defaults.
type Config struct {
	// UpstreamTimeout bounds every individual collaborator call.
	UpstreamTimeout time.Duration
	// Coin decides the verdict of new cases.
	Coin random.Coin
	// Now stamps the start time of new games.
	Now func() time.Time
	// NewID names new games.
	NewID func() string
}

// Service is the public surface of the game core.
type Service struct {
	cases    *CaseGenerator
	sessions *SessionStore
	history  *HistoryAdapter
	turns    *TurnProcessor
	locks    *sessionlock.Locker[string]
	now      func() time.Time
	newID    func() string
	logger   *slog.Logger
}

func NewService(
	generator Generator, history HistoryService, store Store, logger *slog.Logger, cfg Config) *Service {
	if cfg.UpstreamTimeout <= 0 {
		cfg.UpstreamTimeout = defaultUpstreamTimeout
	}
	if cfg.Coin == nil {
		cfg.Coin = random.CryptoCoin{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}

	logger = logger.With("source", "game")
	historyAdapter := NewHistoryAdapter(history, cfg.UpstreamTimeout)
	return &Service{
		cases:    NewCaseGenerator(generator, history, cfg.Coin, cfg.UpstreamTimeout),
		sessions: NewSessionStore(store, cfg.UpstreamTimeout),
		history:  historyAdapter,
		turns:    NewTurnProcessor(generator, historyAdapter, cfg.UpstreamTimeout, logger),
		locks:    sessionlock.New[string](),
		now:      cfg.Now,
		newID:    cfg.NewID,
		logger:   logger,
	}
}

// CreateGame generates a new case and persists it. Nothing is persisted when any step fails.
func (s *Service) CreateGame(ctx context.Context) (models.GameState, error) {
	c, err := s.cases.CreateCase(ctx)
	if err != nil {
		return models.GameState{}, errors.Wrap(err, "create case")
	}

	state := models.GameState{
		ID: s.newID(),
		// UTC without monotonic reading so that the stored record round-trips to an equal value.
		StartTime: s.now().UTC().Round(0),
		Defendant: c.Defendant,
		CaseFacts: c.Facts,
		Dossier:   c.Dossier,
		Stage:     models.StagePrelude,
	}
	ctx = logging.WithAttrs(ctx, slog.String("game_id", state.ID))

	if err = s.sessions.Save(ctx, state); err != nil {
		return models.GameState{}, err
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "game created")
	return state, nil
}

// GetGame returns the stored game or ErrNotFound.
func (s *Service) GetGame(ctx context.Context, id string) (models.GameState, error) {
	return s.sessions.Load(ctx, id)
}

// ListGames returns the ids of all games, newest first.
func (s *Service) ListGames(ctx context.Context) ([]string, error) {
	return s.sessions.List(ctx)
}

// ProcessMessage answers message in the voice of the defendant of state. Messages to the same game are processed
// one at a time so that the thread keeps alternating between player and defendant.
func (s *Service) ProcessMessage(ctx context.Context, message string, state models.GameState) (string, error) {
	ctx = logging.WithAttrs(ctx, slog.String("game_id", state.ID))

	unlock, err := s.locks.Lock(ctx, state.ID)
	if err != nil {
		return "", errors.Wrap(err, "acquire game lock")
	}
	defer unlock()

	reply, err := s.turns.ProcessMessage(ctx, message, state)
	if err != nil {
		return "", err
	}
	s.logger.LogAttrs(ctx, slog.LevelDebug, "message processed")
	return reply, nil
}

// Transcript returns the conversation with the defendant in insertion order.
func (s *Service) Transcript(ctx context.Context, state models.GameState) ([]models.Turn, error) {
	return s.history.Turns(ctx, state.Defendant)
}
