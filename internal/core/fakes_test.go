package core

import (
	"context"
	"strings"
	"sync"

	"prescription-chatbot/internal/llm"
	"prescription-chatbot/pkg"
)

// fakeLLM answers each task with a scripted function and records requests.
type fakeLLM struct {
	mu          sync.Mutex
	unavailable bool
	extract     func(prompt string) (string, error)
	reply       func(prompt string) (string, error)
	requests    []llm.Request
}

func (f *fakeLLM) Complete(_ context.Context, req llm.Request) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	switch req.Task {
	case llm.TaskExtract:
		if f.extract == nil {
			return "", llm.ErrEmptyOutput
		}
		return f.extract(req.Prompt)
	default:
		if f.reply == nil {
			return "D'accord.", nil
		}
		return f.reply(req.Prompt)
	}
}

func (f *fakeLLM) Available(context.Context) bool { return !f.unavailable }
func (f *fakeLLM) Name() string                   { return "fake/echo" }

func (f *fakeLLM) count(task llm.Task) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.requests {
		if r.Task == task {
			n++
		}
	}
	return n
}

// echoTurn behaves like a model that copies the labeled lines of the user's
// text back verbatim.
func echoTurn(prompt string) (string, error) {
	_, rest, _ := strings.Cut(prompt, "\"\"\"\n")
	text, _, _ := strings.Cut(rest, "\n\"\"\"")
	return text, nil
}

type memStore struct {
	mu       sync.Mutex
	sessions map[string]pkg.Session
}

func newMemStore() *memStore { return &memStore{sessions: map[string]pkg.Session{}} }

func (m *memStore) Get(_ context.Context, id string) (*pkg.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, pkg.ErrSessionNotFound
	}
	return &s, nil
}

func (m *memStore) Save(_ context.Context, s *pkg.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = *s
	return nil
}

type fakeGenerator struct {
	calls int
	err   error
}

func (g *fakeGenerator) Generate(context.Context, pkg.Record, string) ([]byte, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return []byte("%PDF-1.4 fake"), nil
}

type fakeNotifier struct {
	mu  sync.Mutex
	ids []string
}

func (n *fakeNotifier) NotifyComplete(_ context.Context, id string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ids = append(n.ids, id)
	return nil
}
