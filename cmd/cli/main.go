package main

import (
	"context"
	"fmt"
	"github.com/joho/godotenv"
	"github.com/myrjola/verdict/cmd/cli/game"
	"github.com/myrjola/verdict/cmd/cli/img"
	"github.com/myrjola/verdict/internal/app"
	"github.com/myrjola/verdict/internal/errors"
	"github.com/myrjola/verdict/internal/logging"
	"github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"
	"io/fs"
	"log/slog"
	"os"
)

func newLogger() *slog.Logger {
	return slog.New(logging.NewContextHandler(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		AddSource:   false,
		Level:       slog.LevelWarn,
		ReplaceAttr: nil,
	})))
}

func openService(ctx context.Context) (game.Service, func() error, error) {
	cfg, err := app.LoadConfig(os.LookupEnv)
	if err != nil {
		return nil, nil, errors.Wrap(err, "load config")
	}
	a, err := app.New(ctx, cfg, newLogger())
	if err != nil {
		return nil, nil, errors.Wrap(err, "new app")
	}
	return a.Games, a.Close, nil
}

func imageClient() img.ImageCreator {
	config := openai.DefaultConfig(os.Getenv("OPENAI_API_KEY"))
	if baseURL, ok := os.LookupEnv("VERDICT_OPENAI_BASE_URL"); ok && baseURL != "" {
		config.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(config)
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "verdict-cli",
		Short:         "Interrogate defendants from the terminal",
		Long:          `Command line utilities for Verdict, a game of questioning a defendant and judging their guilt`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			// The .env file is optional; variables may come from the environment.
			if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return errors.Wrap(err, "load .env")
			}
			return nil
		},
	}
	rootCmd.AddGroup(game.Group, img.Group)
	rootCmd.AddCommand(game.NewCommands(openService)...)
	rootCmd.AddCommand(img.NewPortraitCommand(openService, imageClient))
	return rootCmd
}

func main() {
	ctx := context.Background()
	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
