package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(endpoint string) Config {
	cfg := DefaultConfig()
	cfg.Endpoint = endpoint
	return cfg
}

func TestOllamaClient_Complete_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var req ollamaRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "tinyllama", req.Model)
		assert.False(t, req.Stream)
		assert.Equal(t, "system prompt", req.System)
		assert.Equal(t, "user prompt", req.Prompt)
		assert.InDelta(t, 0.1, req.Options.Temperature, 1e-9)
		assert.Equal(t, 200, req.Options.NumPredict)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(ollamaResponse{Model: "tinyllama", Response: "  Nom: Jean Dupont \n"})
	}))
	defer srv.Close()

	client := NewOllamaClient(testConfig(srv.URL))
	out, err := client.Complete(context.Background(), Request{
		Task:   TaskExtract,
		System: "system prompt",
		Prompt: "user prompt",
	})

	require.NoError(t, err)
	assert.Equal(t, "Nom: Jean Dupont", out)
}

func TestOllamaClient_Complete_ExplicitDecodingWins(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.InDelta(t, 0.5, req.Options.Temperature, 1e-9)
		assert.Equal(t, 64, req.Options.NumPredict)
		json.NewEncoder(w).Encode(ollamaResponse{Response: "ok"})
	}))
	defer srv.Close()

	client := NewOllamaClient(testConfig(srv.URL))
	_, err := client.Complete(context.Background(), Request{Task: TaskReply, Prompt: "x", Temperature: 0.5, MaxTokens: 64})
	require.NoError(t, err)
}

func TestOllamaClient_Complete_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.Tasks = map[Task]TaskConfig{
		TaskExtract: {Temperature: 0.1, MaxTokens: 200, TimeoutMs: 50},
	}

	client := NewOllamaClient(cfg)
	_, err := client.Complete(context.Background(), Request{Task: TaskExtract, Prompt: "test"})
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestOllamaClient_Complete_Unavailable(t *testing.T) {
	client := NewOllamaClient(testConfig("http://127.0.0.1:1")) // nothing listening
	_, err := client.Complete(context.Background(), Request{Task: TaskExtract, Prompt: "test"})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestOllamaClient_Complete_EmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ollamaResponse{Response: "   "})
	}))
	defer srv.Close()

	_, err := NewOllamaClient(testConfig(srv.URL)).Complete(context.Background(), Request{Task: TaskReply, Prompt: "x"})
	assert.ErrorIs(t, err, ErrEmptyOutput)
}

func TestOllamaClient_Complete_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewOllamaClient(testConfig(srv.URL)).Complete(context.Background(), Request{Task: TaskReply, Prompt: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestOllamaClient_Available(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	assert.True(t, NewOllamaClient(testConfig(srv.URL)).Available(context.Background()))
	assert.False(t, NewOllamaClient(testConfig("http://127.0.0.1:1")).Available(context.Background()))
}
