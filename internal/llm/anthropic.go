package llm

import (
	"context"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicMessager is the subset of the SDK used here; tests substitute it.
type AnthropicMessager interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// AnthropicClient calls the Anthropic messages API.
type AnthropicClient struct {
	messages AnthropicMessager
	cfg      Config
}

func defaultAnthropicMessager(cfg Config) AnthropicMessager {
	opts := []option.RequestOption{option.WithAPIKey(cfg.AnthropicKey)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithBaseURL(cfg.Endpoint))
	}
	c := anthropic.NewClient(opts...)
	return &c.Messages
}

var newAnthropicMessager = defaultAnthropicMessager

// NewAnthropicClient builds a client from cfg.  Without an API key the client
// reports itself unavailable instead of failing at startup.
func NewAnthropicClient(cfg Config) *AnthropicClient {
	c := &AnthropicClient{cfg: cfg}
	if cfg.AnthropicKey != "" {
		c.messages = newAnthropicMessager(cfg)
	}
	return c
}

func (c *AnthropicClient) Name() string { return "anthropic/" + c.cfg.Model }

func (c *AnthropicClient) Available(context.Context) bool { return c.messages != nil }

func (c *AnthropicClient) Complete(ctx context.Context, req Request) (string, error) {
	if c.messages == nil {
		return "", ErrUnavailable
	}
	req = c.cfg.resolve(req)
	ctx, cancel := context.WithTimeout(ctx, time.Duration(c.cfg.TaskTimeout(req.Task))*time.Millisecond)
	defer cancel()

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.cfg.Model),
		MaxTokens:   int64(req.MaxTokens),
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt))},
		Temperature: anthropic.Float(req.Temperature),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	resp, err := c.messages.New(ctx, params)
	if err != nil {
		return "", classify(ctx, err)
	}
	var sb strings.Builder
	for _, b := range resp.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	out := strings.TrimSpace(sb.String())
	if out == "" {
		return "", ErrEmptyOutput
	}
	return out, nil
}
