package main

import (
	"github.com/justinas/alice"
	"net/http"
)

func (app *application) routes() http.Handler {
	mux := http.NewServeMux()

	// Reads never generate text and answer quickly.
	api := alice.New(app.jsonOnly)
	// Creating a game and sending a message each wait for the generator.
	generating := api.Append(func(next http.Handler) http.Handler {
		return timeoutHandler(next, app.requestTimeout)
	})

	mux.Handle("GET /api/healthy", http.HandlerFunc(app.healthy))
	mux.Handle("POST /api/games", generating.ThenFunc(app.createGame))
	mux.Handle("GET /api/games", api.ThenFunc(app.listGames))
	mux.Handle("GET /api/games/{id}", api.ThenFunc(app.getGame))
	mux.Handle("POST /api/games/{id}/messages", generating.ThenFunc(app.sendMessage))
	mux.Handle("GET /api/games/{id}/messages", api.ThenFunc(app.transcript))
	mux.Handle("/", http.HandlerFunc(app.notFound))

	standard := alice.New(app.recoverPanic, app.requestContext, app.logRequest, secureHeaders)
	return standard.Then(mux)
}
