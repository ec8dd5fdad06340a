package mcp

import (
	"sync"
	"time"

	"github.com/ashita-ai/kasane/internal/model"
)

// checkTracker records recent kasane_eligibility calls so handleGenerate
// can nudge callers that generate without checking first.
//
// Entries are keyed on (callerID, outputType) and expire after window.
// The tracker is per-process and advisory only.
type checkTracker struct {
	mu     sync.Mutex
	checks map[checkKey]time.Time
	window time.Duration
}

type checkKey struct {
	callerID   string
	outputType model.OutputType
}

func newCheckTracker(window time.Duration) *checkTracker {
	return &checkTracker{
		checks: make(map[checkKey]time.Time),
		window: window,
	}
}

// Record notes that the caller checked eligibility for the output type.
func (t *checkTracker) Record(callerID string, ot model.OutputType) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.checks[checkKey{callerID, ot}] = time.Now()

	if len(t.checks) > 1000 {
		t.purgeStale()
	}
}

// RecordAll notes a check for every output type at once.
func (t *checkTracker) RecordAll(callerID string) {
	for _, ot := range model.OutputTypes {
		t.Record(callerID, ot)
	}
}

// WasChecked reports whether the caller checked this output type within
// the window.
func (t *checkTracker) WasChecked(callerID string, ot model.OutputType) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := checkKey{callerID, ot}
	ts, ok := t.checks[key]
	if !ok {
		return false
	}
	if time.Since(ts) > t.window {
		delete(t.checks, key)
		return false
	}
	return true
}

// purgeStale removes entries older than the window. Must be called with mu held.
func (t *checkTracker) purgeStale() {
	now := time.Now()
	for k, ts := range t.checks {
		if now.Sub(ts) > t.window {
			delete(t.checks, k)
		}
	}
}
