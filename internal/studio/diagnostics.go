package studio

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ashita-ai/kasane/internal/model"
)

// DefaultDiagnosticsCap bounds the trail when no cap is configured.
const DefaultDiagnosticsCap = 500

// Trail is a capped, clearable ring of diagnostics. Every entry is also
// written to the logger at the matching level.
type Trail struct {
	mu     sync.Mutex
	items  []model.Diagnostic
	start  int
	cap    int
	now    func() time.Time
	logger *slog.Logger
	notify func(model.Diagnostic)
}

// NewTrail returns an empty trail holding at most capacity entries.
func NewTrail(capacity int, logger *slog.Logger) *Trail {
	if capacity <= 0 {
		capacity = DefaultDiagnosticsCap
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Trail{cap: capacity, now: time.Now, logger: logger}
}

// Add records one entry, evicting the oldest when full.
func (t *Trail) Add(stage, message string, level model.DiagnosticLevel) model.Diagnostic {
	d := model.Diagnostic{
		ID:        uuid.NewString(),
		Stage:     stage,
		Message:   message,
		Level:     level,
		Timestamp: t.now().UTC(),
	}

	switch level {
	case model.LevelError:
		t.logger.Error("studio: "+stage, "message", message)
	case model.LevelWarning:
		t.logger.Warn("studio: "+stage, "message", message)
	default:
		t.logger.Info("studio: "+stage, "message", message)
	}

	t.mu.Lock()
	if len(t.items) < t.cap {
		t.items = append(t.items, d)
	} else {
		t.items[t.start] = d
		t.start = (t.start + 1) % t.cap
	}
	notify := t.notify
	t.mu.Unlock()

	if notify != nil {
		notify(d)
	}
	return d
}

// Notify registers fn to receive every entry after it is stored. fn runs
// on the adding goroutine and must not block.
func (t *Trail) Notify(fn func(model.Diagnostic)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.notify = fn
}

// List returns the entries, oldest first.
func (t *Trail) List() []model.Diagnostic {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]model.Diagnostic, 0, len(t.items))
	out = append(out, t.items[t.start:]...)
	out = append(out, t.items[:t.start]...)
	return out
}

// Len returns the number of stored entries.
func (t *Trail) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.items)
}

// Clear drops every entry.
func (t *Trail) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items = nil
	t.start = 0
}
