package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"prescription-chatbot/internal/llm"
	"prescription-chatbot/internal/logging"
	"prescription-chatbot/pkg"
)

// ErrUnavailable is returned by turn and document operations while the
// inference backend is not ready.  It also matches llm.ErrUnavailable.
var ErrUnavailable = fmt.Errorf("intake: %w", llm.ErrUnavailable)

// IncompleteError is returned when a document is requested for a record
// that still misses fields.
type IncompleteError struct {
	Missing []string
}

func (e *IncompleteError) Error() string {
	return "Donnees incompletes: " + strings.Join(e.Missing, ", ")
}

// SessionStore persists one record snapshot per session id.  Save replaces
// the whole session.  Get returns pkg.ErrSessionNotFound for unknown ids.
type SessionStore interface {
	Get(ctx context.Context, id string) (*pkg.Session, error)
	Save(ctx context.Context, s *pkg.Session) error
}

// CompletionNotifier is told when a session's record becomes complete.
type CompletionNotifier interface {
	NotifyComplete(ctx context.Context, sessionID string) error
}

// DocumentGenerator renders a complete record into a PDF.  signature is the
// raw base64 (or data URL) image sent by the client, possibly empty.
type DocumentGenerator interface {
	Generate(ctx context.Context, rec pkg.Record, signature string) ([]byte, error)
}

// Recorder receives intake events for metrics.
type Recorder interface {
	TurnProcessed(extracted int, complete bool)
	DocumentGenerated(err error)
}

type noopRecorder struct{}

func (noopRecorder) TurnProcessed(int, bool)  {}
func (noopRecorder) DocumentGenerated(error) {}

// IntakeService runs the intake conversation: one turn at a time per
// session, extraction, merge, persistence and the guidance reply.
type IntakeService struct {
	Store     SessionStore
	LLM       llm.Client
	Extractor *Extractor
	Chat      *ChatService
	Docs      DocumentGenerator

	// Notifier and Stats are optional.
	Notifier CompletionNotifier
	Stats    Recorder

	locks keyedMutex
	now   func() time.Time
}

// NewIntakeService wires the intake pipeline around a single LLM client.
func NewIntakeService(store SessionStore, client llm.Client, norm *Normalizer, docs DocumentGenerator) *IntakeService {
	return &IntakeService{
		Store:     store,
		LLM:       client,
		Extractor: NewExtractor(client, norm),
		Chat:      NewChatService(client),
		Docs:      docs,
		now:       time.Now,
	}
}

func (s *IntakeService) stats() Recorder {
	if s.Stats == nil {
		return noopRecorder{}
	}
	return s.Stats
}

func (s *IntakeService) clock() time.Time {
	if s.now == nil {
		return time.Now().UTC()
	}
	return s.now().UTC()
}

// CreateSession starts a new session with an empty record.
func (s *IntakeService) CreateSession(ctx context.Context) (*pkg.Session, error) {
	now := s.clock()
	sess := &pkg.Session{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now}
	if err := s.Store.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	logging.WithSession(sess.ID).Info("session created")
	return sess, nil
}

// Turn processes one user message.  Unknown session ids start from an empty
// record.  Model failures never fail the turn: extraction then learns
// nothing and the reply falls back to FallbackReply.
func (s *IntakeService) Turn(ctx context.Context, sessionID, message string) (*pkg.TurnResult, error) {
	ctx, span := tracer.Start(ctx, "IntakeService.Turn", trace.WithAttributes(attribute.String("session.id", sessionID)))
	defer span.End()

	if !s.LLM.Available(ctx) {
		span.SetStatus(codes.Error, "model unavailable")
		return nil, ErrUnavailable
	}
	log := logging.WithSession(sessionID)

	rec, extracted, becameComplete, err := s.updateRecord(ctx, sessionID, message)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "record update failed")
		return nil, err
	}
	complete := rec.IsComplete()
	span.SetAttributes(attribute.Bool("record.complete", complete))
	s.stats().TurnProcessed(extracted, complete)
	log.WithFields(logrus.Fields{"extracted": extracted, "complete": complete}).Info("turn processed")

	if becameComplete && s.Notifier != nil {
		if err := s.Notifier.NotifyComplete(ctx, sessionID); err != nil {
			log.WithError(err).Warn("completion notification failed")
		}
	}

	reply, err := s.Chat.Reply(ctx, message, rec)
	if err != nil {
		log.WithError(err).Warn("reply generation failed, using fallback")
	}

	return &pkg.TurnResult{
		Reply:         reply,
		IsComplete:    complete,
		MissingFields: rec.MissingFields(),
		Record:        rec,
	}, nil
}

// updateRecord is the per-session critical section of a turn: load, extract,
// merge and save.
func (s *IntakeService) updateRecord(ctx context.Context, sessionID, message string) (pkg.Record, int, bool, error) {
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return pkg.Record{}, 0, false, err
	}
	wasComplete := sess.Record.IsComplete()

	partial := s.Extractor.Extract(ctx, message, sess.Record)
	sess.Record = Merge(sess.Record, partial)
	sess.UpdatedAt = s.clock()
	if err := s.Store.Save(ctx, sess); err != nil {
		return pkg.Record{}, 0, false, fmt.Errorf("save session %s: %w", sessionID, err)
	}
	return sess.Record, len(partial), !wasComplete && sess.Record.IsComplete(), nil
}

// load returns the stored session or a fresh one for unknown ids.
func (s *IntakeService) load(ctx context.Context, sessionID string) (*pkg.Session, error) {
	sess, err := s.Store.Get(ctx, sessionID)
	if errors.Is(err, pkg.ErrSessionNotFound) {
		now := s.clock()
		return &pkg.Session{ID: sessionID, CreatedAt: now, UpdatedAt: now}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	return sess, nil
}

// Status returns the stored record of a session with its completeness.
func (s *IntakeService) Status(ctx context.Context, sessionID string) (*pkg.RecordStatus, error) {
	sess, err := s.Store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &pkg.RecordStatus{
		SessionID:     sess.ID,
		IsComplete:    sess.Record.IsComplete(),
		MissingFields: sess.Record.MissingFields(),
		Record:        sess.Record,
	}, nil
}

// Reset replaces the session's record with an empty one.  The id stays
// valid, so the next turn starts from scratch.
func (s *IntakeService) Reset(ctx context.Context, sessionID string) error {
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return err
	}
	sess.Record = pkg.Record{}
	sess.UpdatedAt = s.clock()
	if err := s.Store.Save(ctx, sess); err != nil {
		return fmt.Errorf("reset session %s: %w", sessionID, err)
	}
	logging.WithSession(sessionID).Info("session reset")
	return nil
}

// GenerateDocument renders the prescription PDF once the record is
// complete.  An incomplete record returns *IncompleteError without calling
// the generator.
func (s *IntakeService) GenerateDocument(ctx context.Context, sessionID, signature string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "IntakeService.GenerateDocument", trace.WithAttributes(attribute.String("session.id", sessionID)))
	defer span.End()

	if !s.LLM.Available(ctx) {
		return nil, ErrUnavailable
	}
	sess, err := s.Store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if missing := sess.Record.MissingFields(); len(missing) > 0 {
		return nil, &IncompleteError{Missing: missing}
	}
	pdf, err := s.Docs.Generate(ctx, sess.Record, signature)
	s.stats().DocumentGenerated(err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		return nil, fmt.Errorf("generate document: %w", err)
	}
	logging.WithSession(sessionID).WithField("bytes", len(pdf)).Info("prescription generated")
	return pdf, nil
}

// Health reports whether the inference backend is ready.
func (s *IntakeService) Health(ctx context.Context) pkg.HealthStatus {
	provider, model, _ := strings.Cut(s.LLM.Name(), "/")
	return pkg.HealthStatus{
		Status:      "ok",
		Backend:     "running",
		ModelLoaded: s.LLM.Available(ctx),
		Provider:    provider,
		Model:       model,
	}
}

// keyedMutex serializes work per key.  Entries are dropped once no
// goroutine holds or waits for them.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

// Lock acquires the mutex for key and returns its release function.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = map[string]*keyedEntry{}
	}
	e, ok := k.locks[key]
	if !ok {
		e = &keyedEntry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
