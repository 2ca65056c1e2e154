package main

import (
	"context"
	"github.com/myrjola/verdict/internal/e2etest"
	"github.com/myrjola/verdict/internal/errors"
	"github.com/myrjola/verdict/internal/logging"
	"log/slog"
	"os"
	"slices"
	"time"
)

// TestGame plays a short game against a deployed server.
func TestGame(ctx context.Context, client *e2etest.Client) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute) //nolint:mnd // three generations
	defer cancel()

	if err := client.WaitForReady(ctx, "/api/healthy"); err != nil {
		return errors.Wrap(err, "wait for ready")
	}

	game, err := client.CreateGame(ctx)
	if err != nil {
		return errors.Wrap(err, "create game")
	}
	ctx = logging.WithAttrs(ctx, slog.String("game_id", game.ID))
	if game.Dossier == "" {
		return errors.New("game has no dossier")
	}

	if _, err = client.SendMessage(ctx, game.ID, "Where were you when it happened?"); err != nil {
		return errors.Wrap(err, "send message")
	}

	turns, err := client.Transcript(ctx, game.ID)
	if err != nil {
		return errors.Wrap(err, "transcript")
	}
	if len(turns) != 2 || !turns[0].IsUser || turns[1].IsUser { //nolint:mnd // question and reply
		return errors.New("unexpected transcript", slog.Int("turns", len(turns)))
	}

	ids, err := client.ListGames(ctx)
	if err != nil {
		return errors.Wrap(err, "list games")
	}
	if !slices.Contains(ids, game.ID) {
		return errors.New("game missing from list")
	}
	return nil
}

func main() {
	loggerHandler := logging.NewContextHandler(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource:   false,
		Level:       slog.LevelDebug,
		ReplaceAttr: nil,
	}))
	logger := slog.New(loggerHandler)
	ctx := context.Background()

	if len(os.Args) != 2 { //nolint:mnd // we expect only hostname to be passed as argument.
		logger.LogAttrs(ctx, slog.LevelError, "usage: smoketest <hostname>")
		os.Exit(1)
	}

	url := "https://" + os.Args[1]
	ctx = logging.WithAttrs(ctx, slog.String("hostname", url))

	if err := TestGame(ctx, e2etest.NewClient(url)); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error testing game", errors.SlogError(err))
		os.Exit(1)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "Smoke test successful 🙌")
	os.Exit(0)
}
