package core

import (
	"context"
	"fmt"
	"strings"

	"prescription-chatbot/internal/llm"
	"prescription-chatbot/pkg"
)

// ChatService writes the conversational reply of a turn: it confirms what
// was understood and asks for whatever is still missing.
type ChatService struct {
	LLM llm.Client
}

// NewChatService constructs a new ChatService with the given LLM client.
func NewChatService(client llm.Client) *ChatService {
	return &ChatService{LLM: client}
}

// Reply generates the French guidance reply for message given the record
// after merging.  On error FallbackReply is returned together with the error
// so the caller can still answer the turn.
func (s *ChatService) Reply(ctx context.Context, message string, rec pkg.Record) (string, error) {
	resp, err := s.LLM.Complete(ctx, llm.Request{
		Task:   llm.TaskReply,
		System: SystemPrompt,
		Prompt: BuildReplyPrompt(message, rec),
	})
	if err != nil {
		return FallbackReply, err
	}
	return resp, nil
}

// BuildReplyPrompt renders the reply prompt for message and rec.
func BuildReplyPrompt(message string, rec pkg.Record) string {
	missing := rec.MissingFields()
	if len(missing) == 0 {
		return fmt.Sprintf(replyCompleteTemplate, rec.Display(), message)
	}
	return fmt.Sprintf(replyTemplate, rec.Display(), strings.Join(missing, ", "), message)
}
