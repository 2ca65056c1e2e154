// Package game holds the commands for playing from the terminal.
package game

import (
	"bufio"
	"context"
	"fmt"
	"github.com/myrjola/verdict/internal/errors"
	"github.com/myrjola/verdict/internal/models"
	"github.com/spf13/cobra"
	"io"
	"strings"
)

var Group = &cobra.Group{
	ID:    "game",
	Title: "Game commands",
}

// Service is the part of the game service the commands use.
type Service interface {
	CreateGame(ctx context.Context) (models.GameState, error)
	GetGame(ctx context.Context, id string) (models.GameState, error)
	ListGames(ctx context.Context) ([]string, error)
	ProcessMessage(ctx context.Context, message string, state models.GameState) (string, error)
	Transcript(ctx context.Context, state models.GameState) ([]models.Turn, error)
}

// Opener connects to the game service. The returned function releases it.
type Opener func(ctx context.Context) (Service, func() error, error)

// withService opens the service for the duration of fn.
func withService(cmd *cobra.Command, open Opener, fn func(ctx context.Context, games Service) error) (err error) {
	ctx := cmd.Context()
	games, closeFn, err := open(ctx)
	if err != nil {
		return errors.Wrap(err, "open game service")
	}
	defer func() {
		err = errors.Join(err, closeFn())
	}()
	return fn(ctx, games)
}

// NewCommands returns the game commands backed by open.
func NewCommands(open Opener) []*cobra.Command {
	return []*cobra.Command{
		newCommand(open),
		showCommand(open),
		listCommand(open),
		askCommand(open),
		interrogateCommand(open),
	}
}

func newCommand(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:     "new",
		GroupID: Group.ID,
		Short:   "Start a new game",
		Long:    "Generates a new case and prints its id and dossier.",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd, open, func(ctx context.Context, games Service) error {
				state, err := games.CreateGame(ctx)
				if err != nil {
					return errors.Wrap(err, "create game")
				}
				printGame(cmd.OutOrStdout(), state)
				return nil
			})
		},
	}
}

func showCommand(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:     "show [game id]",
		GroupID: Group.ID,
		Short:   "Show a game and its transcript",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, open, func(ctx context.Context, games Service) error {
				state, err := games.GetGame(ctx, args[0])
				if err != nil {
					return errors.Wrap(err, "get game")
				}
				turns, err := games.Transcript(ctx, state)
				if err != nil {
					return errors.Wrap(err, "transcript")
				}
				out := cmd.OutOrStdout()
				printGame(out, state)
				for _, turn := range turns {
					printTurn(out, turn)
				}
				return nil
			})
		},
	}
}

func listCommand(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		GroupID: Group.ID,
		Short:   "List games, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd, open, func(ctx context.Context, games Service) error {
				ids, err := games.ListGames(ctx)
				if err != nil {
					return errors.Wrap(err, "list games")
				}
				for _, id := range ids {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), id)
				}
				return nil
			})
		},
	}
}

func askCommand(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:     "ask [game id] [question]",
		GroupID: Group.ID,
		Short:   "Ask the defendant one question",
		Args:    cobra.MinimumNArgs(2), //nolint:mnd // id and at least one word
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, open, func(ctx context.Context, games Service) error {
				state, err := games.GetGame(ctx, args[0])
				if err != nil {
					return errors.Wrap(err, "get game")
				}
				reply, err := games.ProcessMessage(ctx, strings.Join(args[1:], " "), state)
				if err != nil {
					return errors.Wrap(err, "process message")
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), reply)
				return nil
			})
		},
	}
}

func interrogateCommand(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:     "interrogate [game id]",
		GroupID: Group.ID,
		Short:   "Question the defendant interactively",
		Long:    "Reads one question per line until end of input or a line saying exit.",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, open, func(ctx context.Context, games Service) error {
				state, err := games.GetGame(ctx, args[0])
				if err != nil {
					return errors.Wrap(err, "get game")
				}
				return interrogate(ctx, games, state, cmd.InOrStdin(), cmd.OutOrStdout())
			})
		},
	}
}

func interrogate(ctx context.Context, games Service, state models.GameState, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		_, _ = fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			_, _ = fmt.Fprintln(out)
			if err := scanner.Err(); err != nil {
				return errors.Wrap(err, "read question")
			}
			return nil
		}
		question := strings.TrimSpace(scanner.Text())
		switch question {
		case "":
			continue
		case "exit", "quit":
			return nil
		}
		reply, err := games.ProcessMessage(ctx, question, state)
		if err != nil {
			return errors.Wrap(err, "process message")
		}
		_, _ = fmt.Fprintf(out, "defendant: %s\n", reply)
	}
}

func printGame(out io.Writer, state models.GameState) {
	_, _ = fmt.Fprintf(out, "game %s (%s, started %s)\n\n%s\n\n", state.ID, state.Stage,
		state.StartTime.Format("2006-01-02 15:04"), state.Dossier)
}

func printTurn(out io.Writer, turn models.Turn) {
	speaker := "defendant"
	if turn.IsUser {
		speaker = "you"
	}
	_, _ = fmt.Fprintf(out, "%s: %s\n", speaker, turn.Content)
}
