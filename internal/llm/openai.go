package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient calls the OpenAI chat completion API.  Credentials and model
// come from Config (OPENAI_API_KEY, LLM_MODEL).
type OpenAIClient struct {
	client *openai.Client
	cfg    Config
}

// NewOpenAIClient constructs an OpenAI-backed client.  A non-empty
// cfg.Endpoint replaces the default base URL, which also makes the client
// usable with OpenAI-compatible servers.
func NewOpenAIClient(cfg Config) *OpenAIClient {
	var c *openai.Client
	if cfg.OpenAIKey != "" {
		oc := openai.DefaultConfig(cfg.OpenAIKey)
		if cfg.Endpoint != "" {
			oc.BaseURL = cfg.Endpoint
		}
		c = openai.NewClientWithConfig(oc)
	}
	if cfg.Model == "" {
		// default to a modern small model; can be overridden via env
		cfg.Model = "gpt-4o-mini"
	}
	return &OpenAIClient{client: c, cfg: cfg}
}

func (c *OpenAIClient) Name() string { return "openai/" + c.cfg.Model }

// Available only checks configuration; listing models on every turn would
// cost a round trip per request.
func (c *OpenAIClient) Available(context.Context) bool { return c.client != nil }

// Complete sends the system and user prompt to the chat completion API and
// returns the assistant's response.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	if c.client == nil {
		return "", ErrUnavailable
	}
	req = c.cfg.resolve(req)
	ctx, cancel := context.WithTimeout(ctx, time.Duration(c.cfg.TaskTimeout(req.Task))*time.Millisecond)
	defer cancel()

	msgs := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Prompt})

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    msgs,
		Temperature: float32(req.Temperature),
		TopP:        0.9,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode >= 500 {
			return "", ErrUnavailable
		}
		return "", classify(ctx, err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyOutput
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
