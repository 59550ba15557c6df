package llm

import "context"

// Task identifies why the model is called.  Each task carries its own
// decoding settings (see Config).
type Task string

const (
	// TaskExtract turns a user message into structured field lines.  It runs
	// near-deterministic with a small token budget.
	TaskExtract Task = "extract"
	// TaskReply writes the conversational guidance reply.
	TaskReply Task = "reply"
)

// Request is a single prompt-in/text-out call.  Temperature and MaxTokens
// are filled from the task configuration when left at zero.
type Request struct {
	Task        Task
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// Client is the inference collaborator used by the intake core.
type Client interface {
	// Complete sends the request and returns the raw completion text.
	Complete(ctx context.Context, req Request) (string, error)
	// Available reports whether the backend is configured and reachable.
	Available(ctx context.Context) bool
	// Name returns "<provider>/<model>" for health output and logs.
	Name() string
}
