// Package app wires the game service to its storage and text generation backends.
package app

import (
	"context"
	"github.com/myrjola/verdict/internal/ai"
	"github.com/myrjola/verdict/internal/envstruct"
	"github.com/myrjola/verdict/internal/errors"
	"github.com/myrjola/verdict/internal/game"
	"github.com/myrjola/verdict/internal/history"
	"github.com/myrjola/verdict/internal/kv"
	"github.com/myrjola/verdict/internal/sqlite"
	"log/slog"
	"time"
)

type Config struct {
	// Addr is the address the web server listens on.
	Addr string `env:"VERDICT_ADDR" envDefault:"localhost:4000"`
	// SqliteURL is the path to the SQLite database or ":memory:".
	SqliteURL string `env:"VERDICT_SQLITE_URL" envDefault:"./verdict.sqlite"`
	// AIProvider selects the text generation backend, "openai" or "gemini".
	AIProvider string `env:"VERDICT_AI_PROVIDER" envDefault:"openai"`
	// AIModel overrides the provider's default model.
	AIModel       string `env:"VERDICT_AI_MODEL" envDefault:""`
	OpenAIAPIKey  string `env:"OPENAI_API_KEY" envDefault:""`
	OpenAIBaseURL string `env:"VERDICT_OPENAI_BASE_URL" envDefault:""`
	GeminiAPIKey  string `env:"GEMINI_API_KEY" envDefault:""`
	// HistoryApp names the application that owns defendant threads.
	HistoryApp string `env:"VERDICT_HISTORY_APP" envDefault:"verdict"`
	// UpstreamTimeout bounds each call to the generator, the history log, or the store.
	UpstreamTimeout time.Duration `env:"VERDICT_UPSTREAM_TIMEOUT" envDefault:"60s"`
	// PprofAddr enables the profiling endpoints on a private address such as localhost:6060 when set.
	PprofAddr string `env:"VERDICT_PPROF_ADDR" envDefault:""`
	// RequestTimeout bounds a whole HTTP request.
	RequestTimeout time.Duration `env:"VERDICT_REQUEST_TIMEOUT" envDefault:"150s"`
}

// LoadConfig reads Config from the environment through lookupEnv.
func LoadConfig(lookupEnv func(string) (string, bool)) (Config, error) {
	var cfg Config
	if err := envstruct.Populate(&cfg, lookupEnv); err != nil {
		return Config{}, errors.Wrap(err, "populate config")
	}
	return cfg, nil
}

// App holds the game service and the resources backing it.
type App struct {
	Games  *game.Service
	db     *sqlite.Database
	client ai.Client
}

// New opens the database, applies migrations and connects to the configured text generation provider.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*App, error) {
	db, err := sqlite.NewDatabase(ctx, cfg.SqliteURL, logger)
	if err != nil {
		return nil, errors.Wrap(err, "open database", slog.String("url", cfg.SqliteURL))
	}

	client, err := ai.NewClient(ctx, ai.Config{
		Provider:      cfg.AIProvider,
		Model:         cfg.AIModel,
		OpenAIAPIKey:  cfg.OpenAIAPIKey,
		OpenAIBaseURL: cfg.OpenAIBaseURL,
		GeminiAPIKey:  cfg.GeminiAPIKey,
	})
	if err != nil {
		return nil, errors.Join(errors.Wrap(err, "new ai client"), db.Close())
	}

	games := game.NewService(
		client,
		history.NewStore(db, cfg.HistoryApp, logger),
		kv.NewStore(db, logger),
		logger,
		game.Config{UpstreamTimeout: cfg.UpstreamTimeout},
	)

	return &App{
		Games:  games,
		db:     db,
		client: client,
	}, nil
}

// Ping checks that the database is reachable.
func (a *App) Ping(ctx context.Context) error {
	return a.db.Ping(ctx)
}

// Close releases the generator client and the database.
func (a *App) Close() error {
	return errors.Join(a.client.Close(), a.db.Close())
}
