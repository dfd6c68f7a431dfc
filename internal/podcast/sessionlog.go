package podcast

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/doccast/doccast/internal/models"
	"github.com/doccast/doccast/internal/storage"
)

// EventSink receives every log event live, e.g. for a UI to surface.
type EventSink interface {
	Publish(ctx context.Context, ev models.LogEvent) error
}

// SessionLogger buffers one session's events in memory and flushes them to
// blob storage at checkpoints. Events are append-only; a failed flush leaves
// the buffer untouched so the next checkpoint retries the same range.
type SessionLogger struct {
	sessionID string
	store     storage.BlobStore
	sink      EventSink // optional
	entry     *logrus.Entry

	mu      sync.Mutex
	events  []models.LogEvent
	flushed int
}

func NewSessionLogger(sessionID string, store storage.BlobStore, sink EventSink, entry *logrus.Entry) *SessionLogger {
	return &SessionLogger{sessionID: sessionID, store: store, sink: sink, entry: entry}
}

// Log appends one event. It never blocks on storage; durability happens at
// the next Flush. The event is mirrored to the process logger and, best
// effort, to the live sink.
func (l *SessionLogger) Log(level string, stage models.Stage, msg string) {
	ev := models.LogEvent{
		SessionID: l.sessionID,
		Timestamp: time.Now().UTC(),
		Level:     level,
		Stage:     stage,
		Message:   msg,
	}

	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()

	entry := l.entry.WithField("stage", stage)
	switch level {
	case "warning":
		entry.Warn(msg)
	case "error":
		entry.Error(msg)
	default:
		entry.Info(msg)
	}

	if l.sink != nil {
		_ = l.sink.Publish(context.Background(), ev)
	}
}

// Events returns a snapshot of everything logged so far.
func (l *SessionLogger) Events() []models.LogEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]models.LogEvent, len(l.events))
	copy(out, l.events)
	return out
}

// Flush persists all not-yet-flushed events. On failure the unflushed range
// is kept and a warning event is recorded; the caller retries at the next
// checkpoint. The offset-keyed write makes a retried flush overwrite its
// failed predecessor rather than duplicate it.
func (l *SessionLogger) Flush(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.flushed == len(l.events) {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, ev := range l.events[l.flushed:] {
		if err := enc.Encode(ev); err != nil {
			return err
		}
	}

	if err := l.store.AppendLog(ctx, l.sessionID, l.flushed, buf.Bytes()); err != nil {
		l.entry.WithError(err).Warn("session log flush failed, will retry at next checkpoint")
		l.events = append(l.events, models.LogEvent{
			SessionID: l.sessionID,
			Timestamp: time.Now().UTC(),
			Level:     "warning",
			Message:   "log flush failed: " + err.Error(),
		})
		return err
	}

	l.flushed = len(l.events)
	return nil
}
