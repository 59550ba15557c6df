package llm

import (
	"os"
	"strconv"
	"strings"
)

// TaskConfig holds per-task decoding parameters.
type TaskConfig struct {
	Temperature float64
	MaxTokens   int
	TimeoutMs   int // overrides the global timeout if > 0
}

// Config holds all configuration for the inference backend.
type Config struct {
	Provider     string // ollama, openai or anthropic
	Endpoint     string
	Model        string
	OpenAIKey    string
	AnthropicKey string
	TimeoutMs    int
	Serialize    bool
	Tasks        map[Task]TaskConfig
}

// DefaultConfig mirrors the settings the assistant was tuned with: a small
// local chat model, cold extraction and warmer replies.
func DefaultConfig() Config {
	return Config{
		Provider:  "ollama",
		Endpoint:  "http://localhost:11434",
		Model:     "tinyllama",
		TimeoutMs: 60000,
		Serialize: true,
		Tasks: map[Task]TaskConfig{
			TaskExtract: {Temperature: 0.1, MaxTokens: 200, TimeoutMs: 30000},
			TaskReply:   {Temperature: 0.7, MaxTokens: 256, TimeoutMs: 60000},
		},
	}
}

// LoadConfig reads configuration from the environment, falling back to
// DefaultConfig for unset values.
func LoadConfig() Config {
	cfg := DefaultConfig()

	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		cfg.Provider = strings.ToLower(strings.TrimSpace(v))
		switch cfg.Provider {
		case "openai":
			cfg.Model = "gpt-4o-mini"
			cfg.Endpoint = ""
		case "anthropic":
			cfg.Model = "claude-3-5-haiku-latest"
			cfg.Endpoint = ""
		}
	}
	if v := os.Getenv("LLM_ENDPOINT"); v != "" {
		cfg.Endpoint = strings.TrimRight(v, "/")
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.Model = v
	}
	// OPENAI_MODEL_CHAT is kept for deployments configured for the
	// previous chat assistant.
	if v := os.Getenv("OPENAI_MODEL_CHAT"); v != "" && cfg.Provider == "openai" && os.Getenv("LLM_MODEL") == "" {
		cfg.Model = v
	}
	cfg.OpenAIKey = os.Getenv("OPENAI_API_KEY")
	cfg.AnthropicKey = strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY"))
	if v := os.Getenv("LLM_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.TimeoutMs = n
		}
	}
	if v := os.Getenv("LLM_SERIALIZE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Serialize = b
		}
	}

	applyTaskTimeoutEnv(&cfg, TaskExtract, "LLM_EXTRACT_TIMEOUT_MS")
	applyTaskTimeoutEnv(&cfg, TaskReply, "LLM_REPLY_TIMEOUT_MS")

	return cfg
}

// TaskTimeout returns the effective timeout in milliseconds for a task.
func (c Config) TaskTimeout(task Task) int {
	if tc, ok := c.Tasks[task]; ok && tc.TimeoutMs > 0 {
		return tc.TimeoutMs
	}
	return c.TimeoutMs
}

// resolve fills zero-valued decoding parameters from the task defaults.
func (c Config) resolve(req Request) Request {
	tc := c.Tasks[req.Task]
	if req.Temperature == 0 {
		req.Temperature = tc.Temperature
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = tc.MaxTokens
	}
	return req
}

func applyTaskTimeoutEnv(cfg *Config, task Task, envName string) {
	v := os.Getenv(envName)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return
	}
	tc := cfg.Tasks[task]
	tc.TimeoutMs = n
	cfg.Tasks[task] = tc
}
