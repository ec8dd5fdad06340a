package studio

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	"github.com/ashita-ai/kasane/internal/eligibility"
	"github.com/ashita-ai/kasane/internal/genfail"
	"github.com/ashita-ai/kasane/internal/lifecycle"
	"github.com/ashita-ai/kasane/internal/model"
	"github.com/ashita-ai/kasane/internal/telemetry"
)

var tracer = telemetry.Tracer("kasane/studio")

// source is what a routine generates from. report is nil for the
// baseline-only routines.
type source struct {
	baseline model.Baseline
	report   *model.ReportResult
}

// outcome is a routine's product before the controller stamps and stores it.
type outcome struct {
	output        model.GeneratedOutput
	result        any
	continuations int
}

type routine func(ctx context.Context, src source) (outcome, error)

func (s *Service) routineFor(t model.OutputType) routine {
	switch t {
	case model.OutputNotes:
		return s.generateNotes
	case model.OutputReport:
		return s.generateReport
	case model.OutputAudioReport:
		return s.generateAudioReport
	case model.OutputInfographic:
		return s.generateInfographic
	case model.OutputSlideDeck:
		return s.generateSlideDeck
	case model.OutputPodcast:
		return s.generatePodcast
	default:
		return nil
	}
}

// Generate selects t and runs its generation synchronously. tier "" means
// the configured default tier.
//
// A gate failure moves t to FAILED with the reason and returns an
// *IneligibleError. A request while t is in flight returns
// lifecycle.ErrInFlight and changes nothing. A generation failure returns
// the FAILED status together with the cause.
func (s *Service) Generate(ctx context.Context, t model.OutputType, tier model.Tier) (model.GenerateResponse, error) {
	if !t.Valid() {
		return model.GenerateResponse{}, genfail.New(genfail.Validation, "studio.generate", "Unknown output type")
	}
	s.trail.Add("submit event", fmt.Sprintf("Output generation requested for %s.", t.DisplayName()), model.LevelInfo)

	s.mu.Lock()
	snap, blen := s.snapshot, s.baselineLenLocked()
	s.mu.Unlock()

	g := s.gate(tier)
	if v := eligibility.Sufficiency(t, snap.State, blen, snap.EvidenceVault.State); !v.Eligible {
		return s.deny(t, v, "execution check", fmt.Sprintf("Output %s is not eligible: %s", t.DisplayName(), v.Reason))
	}
	if v := eligibility.Entitlement(t, g.Tier, g.DevMode); !v.Eligible {
		return s.deny(t, v, "monetization check", fmt.Sprintf("Output %s requires %s tier", t.DisplayName(), v.RequiredTier))
	}

	st, err := s.tracker.Request(t)
	if err != nil {
		if errors.Is(err, lifecycle.ErrInFlight) {
			s.trail.Add("execution check", fmt.Sprintf("%s generation already in flight", t.Label()), model.LevelWarning)
		}
		cur, _ := s.tracker.Status(t)
		return model.GenerateResponse{Status: cur}, err
	}

	s.mu.Lock()
	var src source
	hasBaseline := s.baseline != nil
	if hasBaseline {
		src.baseline = *s.baseline
	}
	if r, ok := s.results[model.OutputReport].(model.ReportResult); ok {
		src.report = &r
	}
	s.mu.Unlock()

	if !hasBaseline {
		s.trail.Add("model invocation", "Generation aborted before model invocation.", model.LevelError)
		st, _ = s.tracker.Fail(t, "No baseline established")
		return model.GenerateResponse{Status: st}, ErrNoBaseline
	}
	return s.execute(ctx, t, src)
}

func (s *Service) deny(t model.OutputType, v model.OutputEligibility, stage, msg string) (model.GenerateResponse, error) {
	st, err := s.tracker.Reject(t, v.Reason)
	if err != nil {
		cur, _ := s.tracker.Status(t)
		return model.GenerateResponse{Status: cur}, err
	}
	s.trail.Add(stage, msg, model.LevelError)
	s.genCount.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("output_type", string(t)), attribute.String("outcome", "rejected")))
	return model.GenerateResponse{Status: st}, &IneligibleError{Eligibility: v}
}

// execute runs the routine for t. It expects t to be REQUESTED.
func (s *Service) execute(ctx context.Context, t model.OutputType, src source) (model.GenerateResponse, error) {
	label := t.Label()
	stage := strings.ToLower(label) + " generation"

	if st, _ := s.tracker.Status(t); st.State != model.ExecutionRequested {
		s.trail.Add("execution check", label+" generation not in REQUESTED state", model.LevelError)
		return model.GenerateResponse{Status: st}, nil
	}
	if t.DerivedFromReport() && src.report == nil {
		s.trail.Add("execution check", label+" requires a completed REPORT", model.LevelError)
		st, _ := s.tracker.Fail(t, "No REPORT exists")
		return model.GenerateResponse{Status: st}, genfail.New(genfail.Validation, "studio.generate", "No REPORT exists")
	}
	if _, err := s.tracker.Begin(t); err != nil {
		s.trail.Add("execution check", label+" generation not in REQUESTED state", model.LevelError)
		st, _ := s.tracker.Status(t)
		return model.GenerateResponse{Status: st}, nil
	}

	s.mu.Lock()
	s.providerInvoked = true
	s.recomputeLocked()
	s.mu.Unlock()

	ctx, span := tracer.Start(ctx, "studio.generate")
	span.SetAttributes(attribute.String("output_type", string(t)))
	defer span.End()

	s.trail.Add(stage, "Starting "+label+" generation", model.LevelInfo)
	start := s.now()

	oc, err := s.routineFor(t)(ctx, src)
	if err == nil {
		err = s.store(ctx, t, &oc)
	}
	elapsed := float64(time.Since(start).Milliseconds())
	attrs := []attribute.KeyValue{attribute.String("output_type", string(t))}

	if err != nil {
		msg := genfail.Message(err)
		st, _ := s.tracker.Fail(t, msg)
		s.trail.Add(stage, fmt.Sprintf("%s generation failed: %s", label, msg), model.LevelError)
		span.RecordError(err)
		span.SetStatus(codes.Error, msg)
		s.genDuration.Record(ctx, elapsed, metric.WithAttributes(append(attrs, attribute.String("outcome", "failed"))...))
		s.genCount.Add(ctx, 1, metric.WithAttributes(append(attrs, attribute.String("outcome", "failed"))...))
		return model.GenerateResponse{Status: st}, err
	}

	st, err := s.tracker.Complete(t)
	if err != nil {
		s.trail.Add(stage, label+" generation finished outside IN_PROGRESS", model.LevelError)
		span.RecordError(err)
		return model.GenerateResponse{Status: st}, err
	}
	s.trail.Add(stage, label+" generation completed successfully", model.LevelInfo)
	s.genDuration.Record(ctx, elapsed, metric.WithAttributes(append(attrs, attribute.String("outcome", "completed"))...))
	s.genCount.Add(ctx, 1, metric.WithAttributes(append(attrs, attribute.String("outcome", "completed"))...))
	if t == model.OutputNotes || t == model.OutputReport || t == model.OutputPodcast {
		s.continuations.Record(ctx, int64(oc.continuations), metric.WithAttributes(attrs...))
	}
	out := oc.output
	return model.GenerateResponse{Status: st, Output: &out}, nil
}

// store stamps the output, appends it to the vault and publishes the
// result. The snapshot is recomputed before returning.
func (s *Service) store(ctx context.Context, t model.OutputType, oc *outcome) error {
	now := s.now().UTC()
	oc.output.ID = NewOutputID(t, now)
	oc.output.Type = t
	oc.output.Timestamp = now

	if err := s.vault.Append(ctx, oc.output); err != nil {
		return fmt.Errorf("vault append failed: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[t] = oc.result
	out := oc.output
	s.active = &out
	s.vaultItems++
	s.recomputeLocked()
	return nil
}
