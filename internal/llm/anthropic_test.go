package llm

import (
	"context"
	"errors"
	"testing"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMessager struct {
	got  anthropic.MessageNewParams
	resp *anthropic.Message
	err  error
}

func (f *fakeMessager) New(_ context.Context, params anthropic.MessageNewParams, _ ...option.RequestOption) (*anthropic.Message, error) {
	f.got = params
	return f.resp, f.err
}

func withFakeMessager(t *testing.T, f *fakeMessager) {
	t.Helper()
	prev := newAnthropicMessager
	newAnthropicMessager = func(Config) AnthropicMessager { return f }
	t.Cleanup(func() { newAnthropicMessager = prev })
}

func TestAnthropicClient_Complete(t *testing.T) {
	f := &fakeMessager{resp: &anthropic.Message{Content: []anthropic.ContentBlockUnion{
		{Type: "text", Text: "Nom: Jane Smith\n"},
		{Type: "text", Text: "Age: 30"},
	}}}
	withFakeMessager(t, f)

	cfg := DefaultConfig()
	cfg.Model = "claude-3-5-haiku-latest"
	cfg.AnthropicKey = "key"
	c := NewAnthropicClient(cfg)

	out, err := c.Complete(context.Background(), Request{Task: TaskExtract, System: "sys", Prompt: "Texte"})
	require.NoError(t, err)
	assert.Equal(t, "Nom: Jane Smith\nAge: 30", out)
	assert.Equal(t, int64(200), f.got.MaxTokens)
	require.Len(t, f.got.System, 1)
	assert.Equal(t, "sys", f.got.System[0].Text)
}

func TestAnthropicClient_Errors(t *testing.T) {
	withFakeMessager(t, &fakeMessager{err: errors.New("overloaded")})
	cfg := DefaultConfig()
	cfg.AnthropicKey = "key"

	_, err := NewAnthropicClient(cfg).Complete(context.Background(), Request{Task: TaskReply, Prompt: "x"})
	assert.EqualError(t, err, "overloaded")

	noKey := NewAnthropicClient(DefaultConfig())
	assert.False(t, noKey.Available(context.Background()))
	_, err = noKey.Complete(context.Background(), Request{Task: TaskReply, Prompt: "x"})
	assert.ErrorIs(t, err, ErrUnavailable)
}
