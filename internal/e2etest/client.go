package e2etest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"github.com/myrjola/verdict/internal/errors"
	"github.com/myrjola/verdict/internal/models"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// Game is the player's view of a game as served by the API.
type Game struct {
	ID        string       `json:"id"`
	StartTime time.Time    `json:"startTime"`
	Dossier   string       `json:"dossier"`
	Stage     models.Stage `json:"gameStage"`
}

// StatusError is returned when the server answers with an unexpected status code.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Message)
}

// StatusCode returns the HTTP status carried by err or zero when there is none.
func StatusCode(err error) int {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	return 0
}

type Client struct {
	client *http.Client
	url    string
}

// NewClient creates a client for the game API served at url.
func NewClient(url string) *Client {
	return &Client{
		client: &http.Client{},
		url:    url,
	}
}

// WaitForReady calls the specified endpoint until it gets a HTTP 200 Success
// response or until the context is cancelled or the 1-second timeout is reached.
func (c *Client) WaitForReady(ctx context.Context, urlPath string) error {
	timeout := 1 * time.Second
	startTime := time.Now()
	var (
		err  error
		req  *http.Request
		resp *http.Response
	)
	for {
		if req, err = http.NewRequestWithContext(ctx, http.MethodGet, c.url+urlPath, nil); err != nil {
			return errors.Wrap(err, "create request")
		}

		if resp, err = c.client.Do(req); err == nil {
			if err = resp.Body.Close(); err != nil {
				return errors.Wrap(err, "close response body")
			}
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "context cancelled")
		default:
			if time.Since(startTime) >= timeout {
				return errors.New("timeout waiting for endpoint to be ready")
			}
			time.Sleep(100 * time.Millisecond) //nolint:mnd // 100ms
		}
	}
}

// Do sends a request with an optional JSON body and decodes the JSON response into out when the status matches want.
func (c *Client) Do(ctx context.Context, method, urlPath string, in any, want int, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "marshal request")
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url+urlPath, body)
	if err != nil {
		return errors.Wrap(err, "create request")
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "do request")
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != want {
		var errResp struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		return errors.Wrap(&StatusError{StatusCode: resp.StatusCode, Message: errResp.Error}, "check status",
			slog.String("method", method), slog.String("path", urlPath))
	}
	if out == nil {
		return nil
	}
	if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "decode response")
	}
	return nil
}

func gamePath(id string) string {
	return "/api/games/" + url.PathEscape(id)
}

func (c *Client) CreateGame(ctx context.Context) (Game, error) {
	var g Game
	if err := c.Do(ctx, http.MethodPost, "/api/games", nil, http.StatusCreated, &g); err != nil {
		return Game{}, errors.Wrap(err, "create game")
	}
	return g, nil
}

func (c *Client) GetGame(ctx context.Context, id string) (Game, error) {
	var g Game
	if err := c.Do(ctx, http.MethodGet, gamePath(id), nil, http.StatusOK, &g); err != nil {
		return Game{}, errors.Wrap(err, "get game", slog.String("game_id", id))
	}
	return g, nil
}

func (c *Client) ListGames(ctx context.Context) ([]string, error) {
	var resp struct {
		Games []string `json:"games"`
	}
	if err := c.Do(ctx, http.MethodGet, "/api/games", nil, http.StatusOK, &resp); err != nil {
		return nil, errors.Wrap(err, "list games")
	}
	return resp.Games, nil
}

// SendMessage asks the defendant of game id a question and returns the reply.
func (c *Client) SendMessage(ctx context.Context, id, message string) (string, error) {
	var resp struct {
		Reply string `json:"reply"`
	}
	in := map[string]string{"message": message}
	if err := c.Do(ctx, http.MethodPost, gamePath(id)+"/messages", in, http.StatusOK, &resp); err != nil {
		return "", errors.Wrap(err, "send message", slog.String("game_id", id))
	}
	return resp.Reply, nil
}

// Transcript returns the conversation with the defendant of game id.
func (c *Client) Transcript(ctx context.Context, id string) ([]models.Turn, error) {
	var resp struct {
		Messages []models.Turn `json:"messages"`
	}
	if err := c.Do(ctx, http.MethodGet, gamePath(id)+"/messages", nil, http.StatusOK, &resp); err != nil {
		return nil, errors.Wrap(err, "transcript", slog.String("game_id", id))
	}
	return resp.Messages, nil
}
