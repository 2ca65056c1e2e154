package ai

import (
	"context"
	"github.com/google/generative-ai-go/genai"
	"github.com/myrjola/verdict/internal/errors"
	"google.golang.org/api/option"
	"log/slog"
	"strings"
)

const DefaultGeminiModel = "gemini-2.5-pro"

type GeminiClient struct {
	client *genai.Client
	model  string
}

func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, errors.Wrap(err, "create generative client")
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiClient{client: client, model: model}, nil
}

// Generate replays all but the last message as chat history and sends the last one, which must be from the user.
func (c *GeminiClient) Generate(ctx context.Context, system string, messages []Message) (string, error) {
	history, last, err := toGeminiChat(messages)
	if err != nil {
		return "", err
	}

	model := c.client.GenerativeModel(c.model)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	chat := model.StartChat()
	chat.History = history

	resp, err := chat.SendMessage(ctx, genai.Text(last))
	if err != nil {
		return "", errors.Wrap(err, "send message", slog.String("model", c.model))
	}
	text := getText(resp)
	if text == "" {
		return "", errors.Wrap(ErrEmptyCompletion, "send message", slog.String("model", c.model))
	}
	return text, nil
}

func (c *GeminiClient) Close() error {
	if err := c.client.Close(); err != nil {
		return errors.Wrap(err, "close generative client")
	}
	return nil
}

func toGeminiChat(messages []Message) ([]*genai.Content, string, error) {
	if len(messages) == 0 {
		return nil, "", errors.Wrap(ErrInvalidContext, "no messages")
	}
	last := messages[len(messages)-1]
	if last.Role != RoleUser {
		return nil, "", errors.Wrap(ErrInvalidContext, "last message must be from the user",
			slog.String("role", string(last.Role)))
	}
	history := make([]*genai.Content, 0, len(messages)-1)
	for _, m := range messages[:len(messages)-1] {
		role := "user"
		if m.Role == RoleAssistant {
			role = "model"
		}
		history = append(history, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(m.Content)}})
	}
	return history, last.Content, nil
}

func getText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if txt, ok := part.(genai.Text); ok {
				text.WriteString(string(txt))
			}
		}
	}
	return text.String()
}
