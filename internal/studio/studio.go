// Package studio is the orchestration context: it owns the baseline, the
// readiness snapshot, the execution table, the in-memory results, the
// diagnostic trail and the vault handle, and it runs the per-output
// generation routines.
//
// Both the HTTP API and the MCP server delegate to a single Service.
// State lives behind one mutex; network work runs outside it.
package studio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/ashita-ai/kasane/internal/eligibility"
	"github.com/ashita-ai/kasane/internal/lifecycle"
	"github.com/ashita-ai/kasane/internal/longform"
	"github.com/ashita-ai/kasane/internal/model"
	"github.com/ashita-ai/kasane/internal/readiness"
	"github.com/ashita-ai/kasane/internal/service/ingest"
	"github.com/ashita-ai/kasane/internal/service/media"
	"github.com/ashita-ai/kasane/internal/storage"
	"github.com/ashita-ai/kasane/internal/telemetry"
)

var (
	// ErrNoBaseline is returned when an operation needs a baseline and none exists.
	ErrNoBaseline = errors.New("studio: no baseline established")

	// ErrBlocked is returned when required environment variables are missing.
	ErrBlocked = errors.New("studio: system is blocked")

	// ErrNoPreview is returned when confirming without a pending preview.
	ErrNoPreview = errors.New("studio: no pending preview")

	// ErrBaselineRefused is returned when the ingestion backend rejects a source.
	ErrBaselineRefused = errors.New("studio: baseline refused")

	// ErrDevModeOnly is returned by developer actions outside dev mode.
	ErrDevModeOnly = errors.New("studio: developer action requires dev mode")
)

// IneligibleError carries the gate verdict that denied a generation.
type IneligibleError struct {
	Eligibility model.OutputEligibility
}

func (e *IneligibleError) Error() string {
	return fmt.Sprintf("studio: %s not eligible: %s", e.Eligibility.Type, e.Eligibility.Reason)
}

// Ingester is the content ingestion backend.
type Ingester interface {
	Ingest(ctx context.Context, req ingest.Request) (ingest.Response, error)
	Preview(ctx context.Context, rawURL string) (model.Preview, error)
}

// Media is the media synthesis backend.
type Media interface {
	TTS(ctx context.Context, req media.TTSRequest) (media.Audio, error)
	GenerateImage(ctx context.Context, req media.ImageRequest) (media.Image, error)
	Slides(ctx context.Context, req media.SlidesRequest) (media.SlideDeck, error)
	Hydrate(ctx context.Context, content, contentType string) (string, error)
}

// Writer assembles long-form text.
type Writer interface {
	Generate(ctx context.Context, source string, opts longform.Options) (*longform.Result, error)
	Segmented(ctx context.Context, source string, opts longform.SegmentOptions) (*longform.Result, error)
}

// Environment reports which required variables are missing.
type Environment struct {
	Ready       bool
	MissingVars []string
}

// Config wires a Service.
type Config struct {
	Ingester Ingester
	Media    Media
	Writer   Writer
	Vault    storage.Vault

	Environment Environment
	// DefaultTier applies to callers that carry no tier of their own.
	DefaultTier model.Tier
	DevMode     bool
	// ForceShortPreviewOK marks short (under 500 chars) confirmed previews
	// as ok regardless of the backend verdict.
	ForceShortPreviewOK bool
	// DefaultProvider is the text provider generation routines ask first.
	DefaultProvider longform.Provider
	// Hosts are stripped from podcast scripts before narration.
	Hosts          longform.Hosts
	DiagnosticsCap int
	Logger         *slog.Logger
}

// Service is the studio controller.
type Service struct {
	ingester Ingester
	media    Media
	writer   Writer
	vault    storage.Vault
	logger   *slog.Logger

	defaultTier     model.Tier
	devMode         bool
	forceShortOK    bool
	defaultProvider longform.Provider
	hosts           longform.Hosts

	evaluator *readiness.Evaluator
	tracker   *lifecycle.Tracker
	trail     *Trail
	now       func() time.Time

	mu              sync.Mutex
	env             Environment
	baseline        *model.Baseline
	preview         *model.Preview
	snapshot        model.ReadinessSnapshot
	providerInvoked bool
	vaultItems      int
	active          *model.GeneratedOutput
	results         map[model.OutputType]any

	genDuration   metric.Float64Histogram
	genCount      metric.Int64Counter
	continuations metric.Int64Histogram
}

// New builds a Service and computes its first readiness snapshot.
func New(ctx context.Context, cfg Config) (*Service, error) {
	if cfg.Ingester == nil || cfg.Media == nil || cfg.Writer == nil || cfg.Vault == nil {
		return nil, fmt.Errorf("studio: ingester, media, writer and vault are required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.DefaultTier == "" {
		cfg.DefaultTier = model.TierFree
	}
	if cfg.DefaultProvider == "" {
		cfg.DefaultProvider = longform.ProviderCodex
	}
	if cfg.Hosts == (longform.Hosts{}) {
		cfg.Hosts = longform.DefaultHosts
	}

	items, err := cfg.Vault.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("studio: count vault: %w", err)
	}

	s := &Service{
		ingester:        cfg.Ingester,
		media:           cfg.Media,
		writer:          cfg.Writer,
		vault:           cfg.Vault,
		logger:          cfg.Logger,
		defaultTier:     cfg.DefaultTier,
		devMode:         cfg.DevMode,
		forceShortOK:    cfg.ForceShortPreviewOK,
		defaultProvider: cfg.DefaultProvider,
		hosts:           cfg.Hosts,
		evaluator:       readiness.New(),
		tracker:         lifecycle.New(),
		trail:           NewTrail(cfg.DiagnosticsCap, cfg.Logger),
		now:             time.Now,
		env:             cfg.Environment,
		vaultItems:      items,
		results:         make(map[model.OutputType]any),
	}
	s.registerMetrics()

	s.mu.Lock()
	s.settleLocked()
	s.mu.Unlock()
	return s, nil
}

func (s *Service) registerMetrics() {
	meter := telemetry.Meter("kasane/studio")
	s.genDuration, _ = meter.Float64Histogram("kasane.generation.duration",
		metric.WithDescription("Time to generate one output (ms)"),
		metric.WithUnit("ms"),
	)
	s.genCount, _ = meter.Int64Counter("kasane.generation.count",
		metric.WithDescription("Generations by output type and outcome"),
	)
	s.continuations, _ = meter.Int64Histogram("kasane.longform.continuations",
		metric.WithDescription("Continuation calls needed per long-form generation"),
	)
	_, _ = meter.Int64ObservableGauge("kasane.vault.items",
		metric.WithDescription("Number of outputs stored in the vault"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			s.mu.Lock()
			n := s.vaultItems
			s.mu.Unlock()
			o.Observe(int64(n))
			return nil
		}),
	)
}

// recomputeLocked rebuilds the readiness snapshot. Callers hold s.mu.
func (s *Service) recomputeLocked() {
	sig := readiness.Signals{
		EnvReady:        s.env.Ready,
		MissingVars:     s.env.MissingVars,
		ProviderInvoked: s.providerInvoked,
		VaultItems:      s.vaultItems,
		HasActiveOutput: s.active != nil,
	}
	if s.baseline != nil {
		sig.HasBaseline = true
		sig.BaselineLength = len([]rune(s.baseline.Content))
	}
	s.snapshot = s.evaluator.Evaluate(sig)
}

// settleLocked recomputes and, if that evaluation consumed the one-time
// UNINITIALIZED state, records it in the trail and evaluates again. The
// stored snapshot therefore never holds UNINITIALIZED. Callers hold s.mu.
func (s *Service) settleLocked() {
	s.recomputeLocked()
	if s.snapshot.State != model.ReadinessUninitialized {
		return
	}
	s.trail.Add("readiness", s.snapshot.Message, model.LevelInfo)
	s.recomputeLocked()
}

// SetEnvironment replaces the environment status. It is the only way out of BLOCKED.
func (s *Service) SetEnvironment(env Environment) model.ReadinessSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.env = env
	s.settleLocked()
	return s.snapshot
}

// Readiness returns the current snapshot.
func (s *Service) Readiness() model.ReadinessSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

// Baseline returns a copy of the current baseline.
func (s *Service) Baseline() (model.Baseline, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.baseline == nil {
		return model.Baseline{}, ErrNoBaseline
	}
	return *s.baseline, nil
}

// PendingPreview returns the preview awaiting confirmation, if any.
func (s *Service) PendingPreview() (model.Preview, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.preview == nil {
		return model.Preview{}, false
	}
	return *s.preview, true
}

// DefaultTier is the tier used for callers without one.
func (s *Service) DefaultTier() model.Tier { return s.defaultTier }

// DevMode reports whether developer actions are enabled.
func (s *Service) DevMode() bool { return s.devMode }

// VaultBackend names the configured vault store.
func (s *Service) VaultBackend() string { return s.vault.Backend() }

// Eligibility evaluates every output type for tier against the current state.
func (s *Service) Eligibility(tier model.Tier) []model.OutputEligibility {
	s.mu.Lock()
	snap, blen := s.snapshot, s.baselineLenLocked()
	s.mu.Unlock()
	return s.gate(tier).Evaluate(snap, blen)
}

func (s *Service) gate(tier model.Tier) eligibility.Gate {
	if tier == "" {
		tier = s.defaultTier
	}
	return eligibility.Gate{Tier: tier, DevMode: s.devMode}
}

func (s *Service) baselineLenLocked() int {
	if s.baseline == nil {
		return 0
	}
	return len([]rune(s.baseline.Content))
}

// Status returns the execution table.
func (s *Service) Status() []model.ExecutionStatus {
	return s.tracker.Snapshot()
}

// Result returns the in-memory structured result for t.
func (s *Service) Result(t model.OutputType) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.results[t]
	return r, ok
}

// ActiveOutput returns the most recently generated output.
func (s *Service) ActiveOutput() (model.GeneratedOutput, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return model.GeneratedOutput{}, false
	}
	return *s.active, true
}

// Diagnostics returns the trail, oldest first.
func (s *Service) Diagnostics() []model.Diagnostic { return s.trail.List() }

// ClearDiagnostics empties the trail.
func (s *Service) ClearDiagnostics() { s.trail.Clear() }

// OnDiagnostic streams every new trail entry to fn.
func (s *Service) OnDiagnostic(fn func(model.Diagnostic)) { s.trail.Notify(fn) }

// Vault lists stored outputs in append order.
func (s *Service) Vault(ctx context.Context) ([]model.GeneratedOutput, error) {
	return s.vault.List(ctx)
}

// VaultItem returns one stored output.
func (s *Service) VaultItem(ctx context.Context, id string) (model.GeneratedOutput, error) {
	return s.vault.Get(ctx, id)
}

// DevReset returns t to IDLE and drops its stored result. A generation in
// flight is not interrupted: the reset fails with lifecycle.ErrInFlight.
func (s *Service) DevReset(t model.OutputType) (model.ExecutionStatus, error) {
	if !s.devMode {
		return model.ExecutionStatus{}, ErrDevModeOnly
	}
	st, err := s.tracker.Reset(t)
	if err != nil {
		return st, err
	}
	s.mu.Lock()
	delete(s.results, t)
	s.mu.Unlock()
	s.trail.Add("developer reset", fmt.Sprintf("%s execution state reset to IDLE", t.Label()), model.LevelInfo)
	return st, nil
}
