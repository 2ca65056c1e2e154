package main

import (
	"context"
	"github.com/myrjola/verdict/internal/errors"
	"github.com/myrjola/verdict/internal/sqlite"
	"github.com/myrjola/verdict/internal/testhelpers"
	"log/slog"
	"os"
	"time"
)

// main applies pending migrations to a copy of the production database and checks that the games survived.
func main() {
	logger := testhelpers.NewLogger(os.Stdout)
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second) //nolint:mnd // 5 seconds

	sqliteURL, ok := os.LookupEnv("VERDICT_SQLITE_URL")
	if !ok {
		logger.LogAttrs(ctx, slog.LevelError, "VERDICT_SQLITE_URL not set")
		os.Exit(1)
	}

	db, err := sqlite.NewDatabase(ctx, sqliteURL, logger)
	if err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error creating database",
			slog.String("url", sqliteURL), errors.SlogError(err))
		os.Exit(1)
	}

	var version int
	if err = db.ReadOnly.GetContext(ctx, &version, `PRAGMA user_version`); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error fetching schema version", errors.SlogError(err))
		os.Exit(1)
	}

	// Every game has a record and an index entry.
	var games, indexed int
	if err = db.ReadOnly.GetContext(ctx, &games, `SELECT COUNT(*) FROM kv_values WHERE key LIKE 'game:%'`); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error fetching game count", errors.SlogError(err))
		os.Exit(1)
	}
	if err = db.ReadOnly.GetContext(ctx, &indexed,
		`SELECT COUNT(*) FROM kv_list_items WHERE key = 'games:list'`); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error fetching game index count", errors.SlogError(err))
		os.Exit(1)
	}
	if games == 0 {
		logger.LogAttrs(ctx, slog.LevelError, "no games found, something is likely wrong")
		os.Exit(1)
	}
	if games != indexed {
		logger.LogAttrs(ctx, slog.LevelError, "game index out of sync",
			slog.Int("games", games), slog.Int("indexed", indexed))
		os.Exit(1)
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "game count", slog.Int("count", games), slog.Int("schema_version", version))

	if err = db.Close(); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error closing database", errors.SlogError(err))
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "Migration test successful 🙌", slog.Duration("duration", time.Since(start)))
	cancel()
	os.Exit(0)
}
