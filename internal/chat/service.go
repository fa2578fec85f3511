package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dromero/tienda-server/internal/classifier"
	"github.com/dromero/tienda-server/internal/domain"
	"github.com/dromero/tienda-server/internal/shared"
	"github.com/dromero/tienda-server/internal/store"
)

var (
	// ErrEmptyMessage is returned when the user text is blank; blank input is
	// not dispatched and nothing is appended to the log.
	ErrEmptyMessage = errors.New("empty message")

	// ErrBusy is returned when a dispatch for the same session is in flight.
	ErrBusy = errors.New("dispatch in flight")
)

// Service runs the chat send flow: log the user message, classify it, take a
// fresh category snapshot, dispatch, apply the store mutation, and log
// exactly one assistant response.
type Service struct {
	repo       store.Repository
	classifier classifier.Classifier
	sessions   *SessionManager
	broker     *Broker
	audit      AuditLogger
}

// NewService creates a chat service.
func NewService(repo store.Repository, cls classifier.Classifier, sessions *SessionManager, broker *Broker, audit AuditLogger) *Service {
	if audit == nil {
		audit = noopAuditLogger{}
	}
	return &Service{
		repo:       repo,
		classifier: cls,
		sessions:   sessions,
		broker:     broker,
		audit:      audit,
	}
}

// Sessions exposes the session manager for reset handling.
func (s *Service) Sessions() *SessionManager { return s.sessions }

// Broker exposes the conversation broker for live subscriptions.
func (s *Service) Broker() *Broker { return s.broker }

// Messages returns the ordered conversation log snapshot.
func (s *Service) Messages(ctx context.Context) ([]domain.ChatMessage, error) {
	return s.repo.ListMessages(ctx)
}

// Send processes one user message and returns the assistant reply that was
// appended to the conversation log.
func (s *Service) Send(ctx context.Context, userID, sessionID, text string) (domain.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.ChatMessage{}, ErrEmptyMessage
	}

	session, ok := s.sessions.Begin(userID, sessionID)
	if !ok {
		return domain.ChatMessage{}, ErrBusy
	}

	if _, err := s.append(ctx, domain.ChatMessage{Text: text, Sender: domain.SenderUser}); err != nil {
		s.sessions.Abort(userID, sessionID)
		return domain.ChatMessage{}, fmt.Errorf("append user message: %w", err)
	}
	s.audit.Log(AuditEvent{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		UserID:    userID,
		SessionID: sessionID,
		EventType: "chat_user_message",
		Content:   text,
	})

	result, err := s.classifier.Classify(ctx, text)
	if err != nil {
		// The real client folds failures into the result; a hard error here
		// means a fake or a cancelled context. Same mapping either way.
		slog.Warn("Classifier failed", "user_id", userID, "error", err)
		result = &classifier.Result{Intent: classifier.IntentError, Message: classifier.MsgConnectError}
	}

	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		slog.Error("Category snapshot failed", "user_id", userID, "error", err)
		reply, appendErr := s.append(ctx, domain.ChatMessage{Text: msgProcessError, Sender: domain.SenderAssistant})
		s.sessions.Abort(userID, sessionID)
		if appendErr != nil {
			return domain.ChatMessage{}, fmt.Errorf("append error response: %w", appendErr)
		}
		return reply, nil
	}

	outcome := Dispatch(text, session, result, categories)

	response := outcome.Response
	if outcome.Mutation != nil {
		if err := s.apply(ctx, outcome.Mutation); err != nil {
			// At-most-once attempted, never rolled back: the session outcome
			// stands, only the reply changes.
			slog.Error("Store mutation failed", "user_id", userID, "intent", result.Intent, "error", err)
			response = msgProcessError
		}
	}

	reply, err := s.append(ctx, domain.ChatMessage{Text: response, Sender: domain.SenderAssistant})
	s.sessions.Finish(userID, sessionID, outcome.Session)
	if err != nil {
		return domain.ChatMessage{}, fmt.Errorf("append assistant message: %w", err)
	}

	s.audit.Log(AuditEvent{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		UserID:    userID,
		SessionID: sessionID,
		EventType: "chat_assistant_message",
		Intent:    result.Intent,
		Content:   response,
	})
	slog.Info("Chat dispatched",
		"user_id", userID,
		"session_id", sessionID,
		"intent", result.Intent,
		"mutated", outcome.Mutation != nil,
	)
	return reply, nil
}

// append writes a message to the conversation log and publishes the fresh
// snapshot to live subscribers. SQLite conflicts are retried with backoff.
func (s *Service) append(ctx context.Context, msg domain.ChatMessage) (domain.ChatMessage, error) {
	const maxRetries = 3
	baseDelay := 100 * time.Millisecond

	var stored domain.ChatMessage
	var err error
	for i := 0; i < maxRetries; i++ {
		stored, err = s.repo.AppendMessage(ctx, msg)
		if err == nil {
			break
		}
		if shared.IsSQLiteConflictError(err) && i < maxRetries-1 {
			delay := baseDelay * time.Duration(1<<i)
			slog.Debug("Chat append hit SQLITE_BUSY, retrying", "attempt", i+1, "delay", delay)
			time.Sleep(delay)
			continue
		}
		return domain.ChatMessage{}, err
	}
	if err != nil {
		return domain.ChatMessage{}, err
	}

	if s.broker != nil {
		if snapshot, listErr := s.repo.ListMessages(ctx); listErr == nil {
			s.broker.Publish(snapshot)
		} else {
			slog.Warn("Failed to load chat snapshot for publish", "error", listErr)
		}
	}
	return stored, nil
}

func (s *Service) apply(ctx context.Context, m *Mutation) error {
	switch m.Kind {
	case MutationCreate:
		_, err := s.repo.CreateCategory(ctx, m.Category)
		return err
	case MutationUpdate:
		return s.repo.UpdateCategory(ctx, m.Category)
	case MutationDelete:
		return s.repo.DeleteCategory(ctx, m.TargetID)
	default:
		return nil
	}
}
