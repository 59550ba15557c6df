package llm

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// CallEvent records metadata about a single inference call.
type CallEvent struct {
	Task      Task
	Model     string
	Latency   time.Duration
	Success   bool
	ErrorCode string
}

// Observer receives events about inference calls for logging and metrics.
type Observer interface {
	OnCallComplete(event CallEvent)
}

// NoopObserver discards all events.
type NoopObserver struct{}

func (NoopObserver) OnCallComplete(CallEvent) {}

type serialized struct {
	Client
	mu sync.Mutex
}

// Serialized wraps c so that at most one Complete call is in flight.  Local
// models hold their weights exclusively and degrade badly under concurrent
// generation.
func Serialized(c Client) Client { return &serialized{Client: c} }

func (s *serialized) Complete(ctx context.Context, req Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		// waited past the caller's deadline
		return "", ErrTimeout
	}
	return s.Client.Complete(ctx, req)
}

type observed struct {
	Client
	obs Observer
}

// Observed reports every Complete call of c to obs.
func Observed(c Client, obs Observer) Client {
	if obs == nil {
		obs = NoopObserver{}
	}
	return &observed{Client: c, obs: obs}
}

func (o *observed) Complete(ctx context.Context, req Request) (string, error) {
	start := time.Now()
	out, err := o.Client.Complete(ctx, req)
	o.obs.OnCallComplete(CallEvent{
		Task:      req.Task,
		Model:     o.Client.Name(),
		Latency:   time.Since(start),
		Success:   err == nil,
		ErrorCode: errorCode(err),
	})
	return out, err
}

// New builds the client selected by cfg.Provider, wrapped according to
// cfg.Serialize and reporting to obs.
func New(cfg Config, obs Observer) (Client, error) {
	var c Client
	switch cfg.Provider {
	case "", "ollama":
		c = NewOllamaClient(cfg)
	case "openai":
		c = NewOpenAIClient(cfg)
	case "anthropic":
		c = NewAnthropicClient(cfg)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
	if cfg.Serialize {
		c = Serialized(c)
	}
	return Observed(c, obs), nil
}
