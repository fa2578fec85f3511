package chat

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/dromero/tienda-server/internal/config"
)

// AuditEvent is one NDJSON record in the conversation audit log.
type AuditEvent struct {
	Timestamp string `json:"ts"`
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	EventType string `json:"event_type"`
	Intent    string `json:"intent,omitempty"`
	Content   string `json:"content"`
}

// AuditLogger records chat events for offline inspection. Logging must never
// block or fail the chat flow.
type AuditLogger interface {
	Log(event AuditEvent)
	Close() error
}

type noopAuditLogger struct{}

func (noopAuditLogger) Log(AuditEvent) {}
func (noopAuditLogger) Close() error   { return nil }

// FileAuditLogger appends events to per-user, per-session NDJSON files under
// a base directory. Writes go through a bounded async queue; events are
// dropped (with a counter) when the queue is full rather than blocking.
type FileAuditLogger struct {
	dir     string
	log     *slog.Logger
	queue   chan AuditEvent
	done    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	dropped int64
	closed  bool
}

// NewAuditLogger creates the configured audit logger. Disabled config yields
// a no-op logger.
func NewAuditLogger(cfg config.ConversationLogConfig, logger *slog.Logger) (AuditLogger, error) {
	if !cfg.Enabled {
		return noopAuditLogger{}, nil
	}
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("create conversation log directory: %w", err)
	}

	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 1000
	}

	l := &FileAuditLogger{
		dir:   cfg.Dir,
		log:   logger,
		queue: make(chan AuditEvent, queueSize),
		done:  make(chan struct{}),
	}
	l.wg.Add(1)
	go l.run()
	return l, nil
}

// Log enqueues an event. Never blocks.
func (l *FileAuditLogger) Log(event AuditEvent) {
	select {
	case l.queue <- event:
	default:
		l.mu.Lock()
		l.dropped++
		n := l.dropped
		l.mu.Unlock()
		l.log.Warn("Conversation audit queue full, event dropped", "dropped_total", n)
	}
}

// Close stops the writer goroutine after draining queued events.
func (l *FileAuditLogger) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()

	close(l.done)
	l.wg.Wait()
	return nil
}

func (l *FileAuditLogger) run() {
	defer l.wg.Done()
	for {
		select {
		case event := <-l.queue:
			l.write(event)
		case <-l.done:
			// Drain whatever is left before exiting.
			for {
				select {
				case event := <-l.queue:
					l.write(event)
				default:
					return
				}
			}
		}
	}
}

func (l *FileAuditLogger) write(event AuditEvent) {
	userDir := filepath.Join(l.dir, sanitizePathComponent(event.UserID))
	if err := os.MkdirAll(userDir, 0755); err != nil {
		l.log.Warn("Failed to create audit user directory", "error", err)
		return
	}

	path := filepath.Join(userDir, sanitizePathComponent(event.SessionID)+".ndjson")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		l.log.Warn("Failed to open audit file", "path", path, "error", err)
		return
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			l.log.Debug("Failed to close audit file", "path", path, "error", closeErr)
		}
	}()

	line, err := json.Marshal(event)
	if err != nil {
		l.log.Warn("Failed to marshal audit event", "error", err)
		return
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		l.log.Warn("Failed to write audit event", "path", path, "error", err)
	}
}

// sanitizePathComponent keeps identifiers safe to use as file names.
func sanitizePathComponent(s string) string {
	if s == "" {
		return "unknown"
	}
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '-', r == '_', r == '.':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
