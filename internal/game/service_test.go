package game_test

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/myrjola/verdict/internal/ai"
	"github.com/myrjola/verdict/internal/ai/aitest"
	"github.com/myrjola/verdict/internal/errors"
	"github.com/myrjola/verdict/internal/game"
	"github.com/myrjola/verdict/internal/models"
	"github.com/myrjola/verdict/internal/random"
	"github.com/myrjola/verdict/internal/testhelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"io"
	"strings"
	"sync"
	"testing"
	"time"
)

var errBoom = errors.NewSentinel("boom")

type fixture struct {
	service   *game.Service
	generator *aitest.Generator
	history   *memHistory
	store     *memStore
}

func newFixture(t *testing.T, generator *aitest.Generator, cfg game.Config) fixture {
	t.Helper()
	history := newMemHistory()
	store := newMemStore()
	if cfg.Coin == nil {
		cfg.Coin = random.FixedCoin(true)
	}
	service := game.NewService(generator, history, store, testhelpers.NewLogger(io.Discard), cfg)
	return fixture{service: service, generator: generator, history: history, store: store}
}

func TestService_CreateGame(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("EEST", 3*60*60))
	f := newFixture(t, &aitest.Generator{Responses: []string{"the facts", "the dossier"}}, game.Config{
		Coin:  random.FixedCoin(false),
		Now:   func() time.Time { return start },
		NewID: func() string { return "game-1" },
	})

	state, err := f.service.CreateGame(ctx)
	require.NoError(t, err)
	require.Equal(t, "game-1", state.ID)
	require.Equal(t, start.UTC(), state.StartTime)
	require.Equal(t, models.StagePrelude, state.Stage)
	require.Equal(t, models.CaseFacts{TrueVerdict: models.VerdictInnocent, ObjectiveFacts: "the facts"}, state.CaseFacts)
	require.Equal(t, "the dossier", state.Dossier)
	require.NotEmpty(t, state.Defendant.SessionID)

	calls := f.generator.Calls()
	require.Len(t, calls, 2)
	require.Contains(t, calls[0].System, "innocent")
	require.Contains(t, calls[1].System, "the facts")
	require.Equal(t, 1, f.history.threadCount())

	loaded, err := f.service.GetGame(ctx, state.ID)
	require.NoError(t, err)
	require.Equal(t, state, loaded)

	ids, err := f.service.ListGames(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"game-1"}, ids)
}

func TestService_CreateGame_UniqueIDs(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, &aitest.Generator{}, game.Config{})

	seen := map[string]bool{}
	var ids []string
	for range 5 {
		state, err := f.service.CreateGame(ctx)
		require.NoError(t, err)
		require.False(t, seen[state.ID], "duplicate id %s", state.ID)
		seen[state.ID] = true
		ids = append([]string{state.ID}, ids...)
	}

	listed, err := f.service.ListGames(ctx)
	require.NoError(t, err)
	require.Equal(t, ids, listed, "newest first")
}

func TestService_CreateGame_Failures(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name        string
		generator   *aitest.Generator
		createErr   error
		updateErr   error
		wantThreads int
	}{
		{
			name:      "objective facts generation fails",
			generator: &aitest.Generator{Err: errBoom, FailOn: 1},
		},
		{
			name:      "dossier generation fails",
			generator: &aitest.Generator{Err: errBoom, FailOn: 2},
		},
		{
			name:      "thread creation fails",
			generator: &aitest.Generator{},
			createErr: errBoom,
		},
		{
			name:        "store fails",
			generator:   &aitest.Generator{},
			updateErr:   errBoom,
			wantThreads: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			f := newFixture(t, tt.generator, game.Config{})
			f.history.createErr = tt.createErr
			f.store.updateErr = tt.updateErr

			_, err := f.service.CreateGame(ctx)
			require.ErrorIs(t, err, game.ErrUpstream)
			require.ErrorIs(t, err, errBoom)

			ids, err := f.service.ListGames(ctx)
			require.NoError(t, err)
			require.Empty(t, ids)
			require.Empty(t, f.store.values)
			require.Equal(t, tt.wantThreads, f.history.threadCount())
		})
	}
}

func TestService_GetGame_NotFound(t *testing.T) {
	t.Parallel()
	f := newFixture(t, &aitest.Generator{}, game.Config{})

	_, err := f.service.GetGame(context.Background(), "missing")
	require.ErrorIs(t, err, game.ErrNotFound)
}

func TestService_GetGame_MalformedState(t *testing.T) {
	t.Parallel()
	valid := models.GameState{
		ID:        "g",
		Defendant: models.DefendantIdentity{AppID: "verdict", UserID: "u", SessionID: "s"},
		CaseFacts: models.CaseFacts{TrueVerdict: models.VerdictGuilty, ObjectiveFacts: "facts"},
		Stage:     models.StagePrelude,
	}
	encode := func(mutate func(s *models.GameState)) string {
		state := valid
		mutate(&state)
		data, err := json.Marshal(state)
		require.NoError(t, err)
		return string(data)
	}
	tests := []struct {
		name   string
		stored string
	}{
		{name: "not json", stored: "{not json"},
		{name: "wrong shape", stored: `{"id": 5}`},
		{name: "unknown verdict", stored: encode(func(s *models.GameState) { s.CaseFacts.TrueVerdict = "maybe" })},
		{name: "unknown stage", stored: encode(func(s *models.GameState) { s.Stage = "intermission" })},
		{name: "id mismatch", stored: encode(func(s *models.GameState) { s.ID = "other" })},
		{name: "missing defendant", stored: encode(func(s *models.GameState) { s.Defendant = models.DefendantIdentity{} })},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t, &aitest.Generator{}, game.Config{})
			f.store.set("game:g", tt.stored)

			_, err := f.service.GetGame(context.Background(), "g")
			require.ErrorIs(t, err, game.ErrMalformedState)
		})
	}
}

func TestService_GetGame_Idempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, &aitest.Generator{}, game.Config{})
	state, err := f.service.CreateGame(ctx)
	require.NoError(t, err)

	first, err := f.service.GetGame(ctx, state.ID)
	require.NoError(t, err)
	second, err := f.service.GetGame(ctx, state.ID)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Len(t, f.generator.Calls(), 2, "reads never generate")
}

func TestService_ProcessMessage(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, &aitest.Generator{Responses: []string{"facts", "dossier", "I was at home."}}, game.Config{})
	state, err := f.service.CreateGame(ctx)
	require.NoError(t, err)

	reply, err := f.service.ProcessMessage(ctx, "Where were you on the night of the crime?", state)
	require.NoError(t, err)
	require.Equal(t, "I was at home.", reply)

	calls := f.generator.Calls()
	require.Len(t, calls, 3)
	require.Contains(t, calls[2].System, "facts")
	require.Contains(t, calls[2].System, "guilty")
	require.Equal(t, []ai.Message{
		{Role: ai.RoleUser, Content: "Where were you on the night of the crime?"},
	}, calls[2].Messages)

	turns, err := f.service.Transcript(ctx, state)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	require.True(t, turns[0].IsUser)
	require.Equal(t, "Where were you on the night of the crime?", turns[0].Content)
	require.False(t, turns[1].IsUser)
	require.Equal(t, "I was at home.", turns[1].Content)

	// The stored record is untouched by conversation.
	loaded, err := f.service.GetGame(ctx, state.ID)
	require.NoError(t, err)
	require.Equal(t, state, loaded)
}

func TestService_ProcessMessage_Conversation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, &aitest.Generator{}, game.Config{})
	state, err := f.service.CreateGame(ctx)
	require.NoError(t, err)

	const n = 4
	for i := range n {
		_, err = f.service.ProcessMessage(ctx, fmt.Sprintf("question %d", i), state)
		require.NoError(t, err)
	}

	turns, err := f.service.Transcript(ctx, state)
	require.NoError(t, err)
	require.Len(t, turns, 2*n)
	for i, turn := range turns {
		require.Equal(t, i%2 == 0, turn.IsUser, "turn %d", i)
	}
	require.Equal(t, "question 3", turns[6].Content)

	// Generation sees the full history including the newest question.
	calls := f.generator.Calls()
	last := calls[len(calls)-1]
	require.Len(t, last.Messages, 2*n-1)
	require.Equal(t, ai.Message{Role: ai.RoleAssistant, Content: turns[1].Content}, last.Messages[1])
}

func TestService_ProcessMessage_Concurrent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, &aitest.Generator{}, game.Config{})
	first, err := f.service.CreateGame(ctx)
	require.NoError(t, err)
	second, err := f.service.CreateGame(ctx)
	require.NoError(t, err)

	const n = 20
	var wg sync.WaitGroup
	for i := range n {
		for _, state := range []models.GameState{first, second} {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, processErr := f.service.ProcessMessage(ctx, fmt.Sprintf("question %d", i), state)
				assert.NoError(t, processErr)
			}()
		}
	}
	wg.Wait()

	for _, state := range []models.GameState{first, second} {
		turns, transcriptErr := f.service.Transcript(ctx, state)
		require.NoError(t, transcriptErr)
		require.Len(t, turns, 2*n)
		for i, turn := range turns {
			require.Equal(t, i%2 == 0, turn.IsUser, "turn %d of %s", i, state.ID)
			if !turn.IsUser {
				require.True(t, strings.HasPrefix(turn.Content, "generated reply"))
			}
		}
	}
}

func TestService_ProcessMessage_GenerationFailureLeavesQuestion(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	generator := &aitest.Generator{Err: errBoom, FailOn: 3}
	f := newFixture(t, generator, game.Config{})
	state, err := f.service.CreateGame(ctx)
	require.NoError(t, err)

	_, err = f.service.ProcessMessage(ctx, "Did you do it?", state)
	require.ErrorIs(t, err, game.ErrUpstream)

	turns, err := f.service.Transcript(ctx, state)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	require.True(t, turns[0].IsUser)

	// The next question is answered with both questions in context.
	reply, err := f.service.ProcessMessage(ctx, "Answer me.", state)
	require.NoError(t, err)
	calls := generator.Calls()
	require.Len(t, calls[len(calls)-1].Messages, 2)

	turns, err = f.service.Transcript(ctx, state)
	require.NoError(t, err)
	require.Len(t, turns, 3)
	require.Equal(t, reply, turns[2].Content)
}

func TestService_ProcessMessage_Invalid(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, &aitest.Generator{}, game.Config{})
	state, err := f.service.CreateGame(ctx)
	require.NoError(t, err)

	for _, message := range []string{"", "   ", "\n\t"} {
		_, err = f.service.ProcessMessage(ctx, message, state)
		require.ErrorIs(t, err, game.ErrInvalidMessage)
	}
	turns, err := f.service.Transcript(ctx, state)
	require.NoError(t, err)
	require.Empty(t, turns)
	require.Len(t, f.generator.Calls(), 2)
}

func TestService_ProcessMessage_HistoryFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, &aitest.Generator{}, game.Config{})
	state, err := f.service.CreateGame(ctx)
	require.NoError(t, err)
	f.history.appendErr = errBoom

	_, err = f.service.ProcessMessage(ctx, "hello", state)
	require.ErrorIs(t, err, game.ErrUpstream)
	require.ErrorIs(t, err, errBoom)
	require.Len(t, f.generator.Calls(), 2, "no generation without a recorded question")
}

func TestService_ProcessMessage_CancelledWhileWaiting(t *testing.T) {
	t.Parallel()
	f := newFixture(t, &aitest.Generator{}, game.Config{})
	state, err := f.service.CreateGame(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = f.service.ProcessMessage(ctx, "hello", state)
	require.ErrorIs(t, err, context.Canceled)
}
