// Package readiness computes the aggregate "can we generate now" snapshot
// from the studio's current signals.
package readiness

import (
	"strings"
	"sync"
	"time"

	"github.com/ashita-ai/kasane/internal/model"
)

const (
	guidanceConfigure  = "Configure environment variables in .env file and restart the application"
	guidanceInitialize = "Provide a URL, YouTube link, or text to initialize the studio"
	guidanceImprove    = "Provide more comprehensive content or try a different source"
	guidanceSelect     = "Select an output type to generate content"
	guidanceReview     = "Generate new content or review existing outputs"
	guidanceContinue   = "Continue exploration or generate new content"
)

// Signals are the inputs to a readiness evaluation.
type Signals struct {
	EnvReady        bool
	MissingVars     []string
	HasBaseline     bool
	BaselineLength  int
	ProviderInvoked bool
	VaultItems      int
	HasActiveOutput bool
}

// Evaluator turns Signals into a snapshot. The first non-blocked
// evaluation reports UNINITIALIZED; every later one skips that state.
type Evaluator struct {
	mu          sync.Mutex
	initialized bool
	now         func() time.Time
}

// New returns an Evaluator that has not yet reported UNINITIALIZED.
func New() *Evaluator {
	return &Evaluator{now: time.Now}
}

// VaultStateOf derives the vault summary state.
func VaultStateOf(hasActiveOutput bool, items int) model.VaultState {
	switch {
	case hasActiveOutput:
		return model.VaultPopulated
	case items > 0:
		return model.VaultSeeded
	default:
		return model.VaultEmpty
	}
}

// Evaluate computes a fresh snapshot. Safe for concurrent use.
func (e *Evaluator) Evaluate(s Signals) model.ReadinessSnapshot {
	missing := s.MissingVars
	if missing == nil {
		missing = []string{}
	}
	snap := model.ReadinessSnapshot{
		Environment: model.EnvironmentStatus{Ready: s.EnvReady, MissingVars: missing},
		BaselinePresence: model.BaselinePresence{
			HasBaseline: s.HasBaseline,
			HasScenario: s.HasBaseline && s.BaselineLength > 0,
		},
		ProviderReadiness: model.ProviderReadiness{Invoked: s.ProviderInvoked, Idle: !s.ProviderInvoked},
		EvidenceVault: model.EvidenceVault{
			State:      VaultStateOf(s.HasActiveOutput, s.VaultItems),
			ItemsCount: s.VaultItems,
		},
		Timestamp: e.now().UTC(),
	}

	if !s.EnvReady {
		snap.State = model.ReadinessBlocked
		snap.Message = "Missing required environment variables: " + strings.Join(missing, ", ")
		snap.Action = model.ActionConfigureEnvironment
		snap.ActionGuidance = guidanceConfigure
		return snap
	}

	e.mu.Lock()
	first := !e.initialized
	e.initialized = true
	e.mu.Unlock()

	switch {
	case first:
		snap.State = model.ReadinessUninitialized
		snap.Message = "System initializing baseline status"
		snap.Action = model.ActionInitializeBaseline
		snap.ActionGuidance = guidanceInitialize
	case !s.HasBaseline:
		snap.State = model.ReadinessIncomplete
		snap.Message = "No baseline content established"
		snap.Action = model.ActionInitializeBaseline
		snap.ActionGuidance = guidanceInitialize
	case s.BaselineLength == 0:
		snap.State = model.ReadinessIncomplete
		snap.Message = "Baseline content is insufficient"
		snap.Action = model.ActionImproveBaseline
		snap.ActionGuidance = guidanceImprove
	case !s.ProviderInvoked && s.VaultItems == 0:
		snap.State = model.ReadinessReady
		snap.Message = "System ready for exploration"
		snap.Action = model.ActionSelectOutputType
		snap.ActionGuidance = guidanceSelect
	case !s.ProviderInvoked:
		snap.State = model.ReadinessReady
		snap.Message = "System ready with existing outputs"
		snap.Action = model.ActionReviewOutputs
		snap.ActionGuidance = guidanceReview
	default:
		snap.State = model.ReadinessReady
		snap.Message = "System operational"
		snap.Action = model.ActionGenerateContent
		snap.ActionGuidance = guidanceContinue
	}
	return snap
}
