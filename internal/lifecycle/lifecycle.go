// Package lifecycle tracks the per-output-type generation state machine.
//
//	IDLE|COMPLETED|FAILED --request--> REQUESTED --begin--> IN_PROGRESS --> COMPLETED|FAILED
//	IDLE|COMPLETED|FAILED --reject---> FAILED
//	REQUESTED             --fail-----> FAILED
//	IDLE|COMPLETED|FAILED --reset----> IDLE
package lifecycle

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ashita-ai/kasane/internal/model"
)

var (
	// ErrInFlight is returned when a request arrives while the type is
	// REQUESTED or IN_PROGRESS.
	ErrInFlight = errors.New("lifecycle: generation already in flight")

	// ErrNotRequested is returned by Begin when the type is not REQUESTED.
	ErrNotRequested = errors.New("lifecycle: generation not in REQUESTED state")

	// ErrInvalidTransition is returned for any other disallowed move.
	ErrInvalidTransition = errors.New("lifecycle: invalid transition")

	// ErrUnknownType is returned for output types the tracker does not know.
	ErrUnknownType = errors.New("lifecycle: unknown output type")
)

// Tracker owns the execution status of every output type.
type Tracker struct {
	mu       sync.Mutex
	statuses map[model.OutputType]model.ExecutionStatus
	now      func() time.Time
}

// New returns a Tracker with every type IDLE.
func New() *Tracker {
	t := &Tracker{
		statuses: make(map[model.OutputType]model.ExecutionStatus, len(model.OutputTypes)),
		now:      time.Now,
	}
	for _, typ := range model.OutputTypes {
		t.statuses[typ] = model.ExecutionStatus{Type: typ, State: model.ExecutionIdle, Timestamp: t.now().UTC()}
	}
	return t
}

func (t *Tracker) set(typ model.OutputType, state model.ExecutionState, msg string) model.ExecutionStatus {
	st := model.ExecutionStatus{Type: typ, State: state, Timestamp: t.now().UTC(), Error: msg}
	t.statuses[typ] = st
	return st
}

// transition moves typ to `to` if its current state is one of `from`.
// The caller supplies the error to return when it is not.
func (t *Tracker) transition(typ model.OutputType, to model.ExecutionState, msg string, deny error, from ...model.ExecutionState) (model.ExecutionStatus, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	cur, ok := t.statuses[typ]
	if !ok {
		return model.ExecutionStatus{}, fmt.Errorf("%w: %q", ErrUnknownType, typ)
	}
	for _, f := range from {
		if cur.State == f {
			return t.set(typ, to, msg), nil
		}
	}
	return cur, fmt.Errorf("%w: %s %s -> %s", deny, typ, cur.State, to)
}

var restingStates = []model.ExecutionState{model.ExecutionIdle, model.ExecutionCompleted, model.ExecutionFailed}

// Request admits a new generation. It fails with ErrInFlight if one is
// already REQUESTED or IN_PROGRESS for typ.
func (t *Tracker) Request(typ model.OutputType) (model.ExecutionStatus, error) {
	return t.transition(typ, model.ExecutionRequested, "", ErrInFlight, restingStates...)
}

// Reject records a gate failure without admitting the request.
func (t *Tracker) Reject(typ model.OutputType, reason string) (model.ExecutionStatus, error) {
	return t.transition(typ, model.ExecutionFailed, reason, ErrInFlight, restingStates...)
}

// Begin moves REQUESTED to IN_PROGRESS.
func (t *Tracker) Begin(typ model.OutputType) (model.ExecutionStatus, error) {
	return t.transition(typ, model.ExecutionInProgress, "", ErrNotRequested, model.ExecutionRequested)
}

// Complete moves IN_PROGRESS to COMPLETED.
func (t *Tracker) Complete(typ model.OutputType) (model.ExecutionStatus, error) {
	return t.transition(typ, model.ExecutionCompleted, "", ErrInvalidTransition, model.ExecutionInProgress)
}

// Fail records a failure from REQUESTED (a precondition such as a missing
// report) or IN_PROGRESS.
func (t *Tracker) Fail(typ model.OutputType, msg string) (model.ExecutionStatus, error) {
	return t.transition(typ, model.ExecutionFailed, msg, ErrInvalidTransition,
		model.ExecutionRequested, model.ExecutionInProgress)
}

// Reset returns typ to IDLE. Developer use only. A generation that is
// REQUESTED or IN_PROGRESS cannot be reset; it fails with ErrInFlight.
func (t *Tracker) Reset(typ model.OutputType) (model.ExecutionStatus, error) {
	return t.transition(typ, model.ExecutionIdle, "", ErrInFlight, restingStates...)
}

// Status returns the current status of typ.
func (t *Tracker) Status(typ model.OutputType) (model.ExecutionStatus, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.statuses[typ]
	return st, ok
}

// InFlight reports whether any type is REQUESTED or IN_PROGRESS.
func (t *Tracker) InFlight() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, st := range t.statuses {
		if st.State == model.ExecutionRequested || st.State == model.ExecutionInProgress {
			return true
		}
	}
	return false
}

// Snapshot returns every status in model.OutputTypes order.
func (t *Tracker) Snapshot() []model.ExecutionStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]model.ExecutionStatus, 0, len(model.OutputTypes))
	for _, typ := range model.OutputTypes {
		out = append(out, t.statuses[typ])
	}
	return out
}
