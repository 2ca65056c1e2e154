package main

import (
	"github.com/myrjola/verdict/internal/errors"
	"github.com/myrjola/verdict/internal/logging"
	"github.com/myrjola/verdict/internal/models"
	"log/slog"
	"net/http"
	"time"
)

// gameResponse is the player's view of a game. The case facts stay on the server.
type gameResponse struct {
	ID        string       `json:"id"`
	StartTime time.Time    `json:"startTime"`
	Dossier   string       `json:"dossier"`
	Stage     models.Stage `json:"gameStage"`
}

func newGameResponse(state models.GameState) gameResponse {
	return gameResponse{
		ID:        state.ID,
		StartTime: state.StartTime,
		Dossier:   state.Dossier,
		Stage:     state.Stage,
	}
}

type gamesResponse struct {
	Games []string `json:"games"`
}

type messageRequest struct {
	Message string `json:"message"`
}

type messageResponse struct {
	Reply string `json:"reply"`
}

type transcriptResponse struct {
	Messages []models.Turn `json:"messages"`
}

func (app *application) createGame(w http.ResponseWriter, r *http.Request) {
	state, err := app.games.CreateGame(r.Context())
	if err != nil {
		app.gameError(w, r, errors.Wrap(err, "create game"))
		return
	}
	w.Header().Set("Location", "/api/games/"+state.ID)
	app.writeJSON(w, r, http.StatusCreated, newGameResponse(state))
}

func (app *application) listGames(w http.ResponseWriter, r *http.Request) {
	ids, err := app.games.ListGames(r.Context())
	if err != nil {
		app.gameError(w, r, errors.Wrap(err, "list games"))
		return
	}
	if ids == nil {
		ids = []string{}
	}
	app.writeJSON(w, r, http.StatusOK, gamesResponse{Games: ids})
}

// loadGame fetches the game named in the path and tags the request context with its id.
func (app *application) loadGame(w http.ResponseWriter, r *http.Request) (*http.Request, models.GameState, bool) {
	id := r.PathValue("id")
	r = r.WithContext(logging.WithAttrs(r.Context(), slog.String("game_id", id)))
	state, err := app.games.GetGame(r.Context(), id)
	if err != nil {
		app.gameError(w, r, errors.Wrap(err, "get game"))
		return r, models.GameState{}, false
	}
	return r, state, true
}

func (app *application) getGame(w http.ResponseWriter, r *http.Request) {
	r, state, ok := app.loadGame(w, r)
	if !ok {
		return
	}
	app.writeJSON(w, r, http.StatusOK, newGameResponse(state))
}

func (app *application) sendMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := readJSON(w, r, &req); err != nil {
		app.clientError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	r, state, ok := app.loadGame(w, r)
	if !ok {
		return
	}

	reply, err := app.games.ProcessMessage(r.Context(), req.Message, state)
	if err != nil {
		app.gameError(w, r, errors.Wrap(err, "process message"))
		return
	}
	app.writeJSON(w, r, http.StatusOK, messageResponse{Reply: reply})
}

func (app *application) transcript(w http.ResponseWriter, r *http.Request) {
	r, state, ok := app.loadGame(w, r)
	if !ok {
		return
	}
	turns, err := app.games.Transcript(r.Context(), state)
	if err != nil {
		app.gameError(w, r, errors.Wrap(err, "transcript"))
		return
	}
	if turns == nil {
		turns = []models.Turn{}
	}
	app.writeJSON(w, r, http.StatusOK, transcriptResponse{Messages: turns})
}
