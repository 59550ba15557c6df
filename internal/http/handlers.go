package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"prescription-chatbot/internal/core"
	"prescription-chatbot/internal/llm"
	"prescription-chatbot/internal/logging"
	"prescription-chatbot/internal/metrics"
	"prescription-chatbot/pkg"
)

const (
	maxMessageBody   = 64 << 10
	maxSignatureBody = 8 << 20
)

// Server bundles together the dependencies required by HTTP handlers.  It
// implements http.Handler; Handler wraps it with the middleware chain.
type Server struct {
	Intake  *core.IntakeService
	Metrics *metrics.Metrics
}

// NewServer constructs a Server.
func NewServer(intake *core.IntakeService, m *metrics.Metrics) *Server {
	return &Server{Intake: intake, Metrics: m}
}

// ServeHTTP dispatches incoming requests based on the URL path.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case path == "/" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": "Prescription assistant backend is running"})
		return
	case path == "/api/health" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, s.Intake.Health(r.Context()))
		return
	case path == "/metrics" && r.Method == http.MethodGet:
		s.Metrics.Handler().ServeHTTP(w, r)
		return
	case path == "/api/sessions" && r.Method == http.MethodPost:
		s.handleCreateSession(w, r)
		return
	case strings.HasPrefix(path, "/api/sessions/"):
		// /api/sessions/{id}[/action]
		parts := strings.Split(strings.TrimPrefix(path, "/api/sessions/"), "/")
		if len(parts) > 2 || !validSessionID(parts[0]) {
			writeError(w, http.StatusNotFound, "session_not_found", "Session introuvable")
			return
		}
		sessionID := parts[0]
		action := ""
		if len(parts) == 2 {
			action = parts[1]
		}
		switch {
		case action == "" && r.Method == http.MethodGet:
			s.handleStatus(w, r, sessionID)
		case action == "messages" && r.Method == http.MethodPost:
			s.handlePostMessage(w, r, sessionID)
		case action == "prescription" && r.Method == http.MethodPost:
			s.handlePrescription(w, r, sessionID)
		case action == "reset" && r.Method == http.MethodPost:
			s.handleReset(w, r, sessionID)
		default:
			writeError(w, http.StatusNotFound, "not_found", "Route inconnue")
		}
		return
	default:
		writeError(w, http.StatusNotFound, "not_found", "Route inconnue")
	}
}

func validSessionID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// handleCreateSession starts a session with an empty record.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.Intake.CreateSession(r.Context())
	if err != nil {
		writeIntakeError(w, err, "internal_error")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"sessionId": sess.ID})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request, sessionID string) {
	status, err := s.Intake.Status(r.Context(), sessionID)
	if err != nil {
		writeIntakeError(w, err, "internal_error")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// handlePostMessage runs one intake turn.  The body must carry a "message"
// property; an empty string is a valid turn.
func (s *Server) handlePostMessage(w http.ResponseWriter, r *http.Request, sessionID string) {
	var req pkg.ChatRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxMessageBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Corps JSON invalide")
		return
	}
	if req.Message == nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Le champ 'message' est requis")
		return
	}

	result, err := s.Intake.Turn(r.Context(), sessionID, *req.Message)
	if err != nil {
		writeIntakeError(w, err, "internal_error")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handlePrescription returns the signed prescription PDF.  An empty body is
// accepted and produces an unsigned document.
func (s *Server) handlePrescription(w http.ResponseWriter, r *http.Request, sessionID string) {
	var req pkg.DocumentRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxSignatureBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid_request", "Corps JSON invalide")
		return
	}

	pdf, err := s.Intake.GenerateDocument(r.Context(), sessionID, req.SignatureImage)
	if err != nil {
		writeIntakeError(w, err, "generation_failed")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="ordonnance_`+sessionID+`.pdf"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(pdf); err != nil {
		logging.WithSession(sessionID).WithError(err).Warn("failed to write pdf response")
	}
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request, sessionID string) {
	if err := s.Intake.Reset(r.Context(), sessionID); err != nil {
		writeIntakeError(w, err, "internal_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": "Session reset"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{"code": code, "message": msg},
	})
}

// writeIntakeError maps core errors to status codes.  Anything unrecognized
// is a 500 carrying fallbackCode.
func writeIntakeError(w http.ResponseWriter, err error, fallbackCode string) {
	var incomplete *core.IncompleteError
	switch {
	case errors.As(err, &incomplete):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": map[string]any{
				"code":          "incomplete_record",
				"message":       incomplete.Error(),
				"missingFields": incomplete.Missing,
			},
		})
	case errors.Is(err, pkg.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "session_not_found", "Session introuvable")
	case errors.Is(err, llm.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "model_unavailable", "Le modele n'est pas disponible")
	default:
		logrus.WithError(err).Error("request failed")
		writeError(w, http.StatusInternalServerError, fallbackCode, err.Error())
	}
}
