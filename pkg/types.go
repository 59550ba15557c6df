package pkg

import (
	"errors"
	"time"
)

// ErrSessionNotFound is returned by session stores when no record exists for
// the requested id.
var ErrSessionNotFound = errors.New("session not found")

// Session is one intake conversation.  It is keyed by a UUID and holds only
// the latest snapshot of the prescription record; no history is kept.
type Session struct {
	ID        string    `json:"id"`
	Record    Record    `json:"record"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ChatRequest carries one user turn.  Message is a pointer so a missing
// property can be told apart from an empty string.
type ChatRequest struct {
	Message *string `json:"message"`
}

// TurnResult is the outcome of one turn, returned as-is by the turn endpoint.
type TurnResult struct {
	Reply         string   `json:"reply"`
	IsComplete    bool     `json:"isComplete"`
	MissingFields []string `json:"missingFields"`
	Record        Record   `json:"record"`
}

// RecordStatus describes a session's record without generating a reply.
type RecordStatus struct {
	SessionID     string   `json:"sessionId"`
	IsComplete    bool     `json:"isComplete"`
	MissingFields []string `json:"missingFields"`
	Record        Record   `json:"record"`
}

// DocumentRequest asks for the prescription PDF.  SignatureImage is a base64
// image, optionally in data-URL form, or empty for an unsigned document.
type DocumentRequest struct {
	SignatureImage string `json:"signatureImage"`
}

// HealthStatus reports readiness of the inference backend.
type HealthStatus struct {
	Status      string `json:"status"`
	Backend     string `json:"backend"`
	ModelLoaded bool   `json:"modelLoaded"`
	Provider    string `json:"provider"`
	Model       string `json:"model"`
}
