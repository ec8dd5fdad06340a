package studio

import (
	"context"
	"fmt"
	"strings"

	"github.com/ashita-ai/kasane/internal/genfail"
	"github.com/ashita-ai/kasane/internal/model"
	"github.com/ashita-ai/kasane/internal/service/ingest"
)

// shortPreviewChars is the length under which a confirmed preview counts as short.
const shortPreviewChars = 500

// IngestInput is one source submission.
type IngestInput struct {
	SourceType model.SourceType
	Value      string
	Purpose    string
}

// refusalDefaults are shown when the backend refuses a source without saying why.
var refusalDefaults = map[model.SourceType]string{
	model.SourceYouTube: "YouTube transcript unavailable. Paste a transcript manually to continue.",
	model.SourceManual:  "Manual entry insufficient. Provide more content.",
}

// checkIngestAllowed refuses work while BLOCKED.
func (s *Service) checkIngestAllowed() error {
	snap := s.Readiness()
	if snap.State == model.ReadinessBlocked {
		s.trail.Add("baseline status", "Cannot ingest: system is BLOCKED. "+snap.ActionGuidance, model.LevelError)
		return fmt.Errorf("%w: %s", ErrBlocked, snap.Message)
	}
	return nil
}

// Ingest submits a source and, on success, replaces the baseline.
// YouTube and manual sources the backend marks error or
// insufficient_content leave no baseline behind.
func (s *Service) Ingest(ctx context.Context, in IngestInput) (model.Baseline, error) {
	s.trail.Add("submit event", "Source submission received.", model.LevelInfo)
	value := strings.TrimSpace(in.Value)
	if value == "" {
		s.trail.Add("prompt normalization", "Empty submission. Nothing to ingest.", model.LevelError)
		return model.Baseline{}, genfail.New(genfail.Validation, "studio.ingest", "Empty submission. Nothing to ingest.")
	}
	if err := s.checkIngestAllowed(); err != nil {
		return model.Baseline{}, err
	}
	if in.SourceType == model.SourceURL {
		if err := model.ValidateSourceURL(value); err != nil {
			s.trail.Add("prompt normalization", err.Error(), model.LevelError)
			return model.Baseline{}, genfail.Wrap(genfail.Validation, "studio.ingest", err)
		}
	}
	s.trail.Add("prompt normalization",
		fmt.Sprintf("Normalized input length %d. Classified as %s.", len([]rune(value)), in.SourceType), model.LevelInfo)

	s.mu.Lock()
	s.active = nil
	s.preview = nil
	s.recomputeLocked()
	s.mu.Unlock()

	s.trail.Add("tool / retrieval invocation", fmt.Sprintf("Submitting %s ingestion.", in.SourceType), model.LevelInfo)
	resp, err := s.ingester.Ingest(ctx, ingest.Request{
		SourceType: in.SourceType,
		InputValue: value,
		Purpose:    in.Purpose,
	})
	if err != nil {
		s.trail.Add("response handling", "Ingestion failed: "+genfail.Message(err), model.LevelError)
		return model.Baseline{}, err
	}

	if refusal, ok := refusalDefaults[in.SourceType]; ok &&
		(resp.Status == model.BaselineError || resp.Status == model.BaselineInsufficientContent) {
		msg := resp.ErrorMessage
		if msg == "" {
			msg = refusal
		}
		s.trail.Add("response handling", msg, model.LevelWarning)
		s.mu.Lock()
		s.baseline = nil
		s.recomputeLocked()
		s.mu.Unlock()
		return model.Baseline{}, fmt.Errorf("%w: %s", ErrBaselineRefused, msg)
	}

	b := buildBaseline(in, resp)
	s.setBaseline(b)
	s.trail.Add("response handling", "Baseline response received.", model.LevelInfo)
	return *b, nil
}

func buildBaseline(in IngestInput, resp ingest.Response) *model.Baseline {
	keyPoint := resp.SourceRef
	if in.SourceType == model.SourceManual {
		keyPoint = in.Purpose
		if strings.TrimSpace(keyPoint) == "" {
			keyPoint = "Manual entry"
		}
	}
	theme := resp.SourceType
	if theme == "" {
		theme = string(in.SourceType)
	}
	prov := resp.Provenance
	if prov == nil {
		prov = []model.Provenance{}
	}
	return &model.Baseline{
		Content:      resp.Content,
		Summary:      model.Summarize(resp.Content),
		KeyPoints:    []string{keyPoint},
		Themes:       []string{theme},
		Provenance:   prov,
		Status:       resp.Status,
		ErrorMessage: resp.ErrorMessage,
	}
}

func (s *Service) setBaseline(b *model.Baseline) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.baseline = b
	s.recomputeLocked()
}

// Preview extracts a URL's text and holds it for confirmation.
func (s *Service) Preview(ctx context.Context, rawURL string) (model.Preview, error) {
	s.trail.Add("submit event", "Source submission received.", model.LevelInfo)
	if strings.TrimSpace(rawURL) == "" {
		s.trail.Add("prompt normalization", "Empty submission. Nothing to ingest.", model.LevelError)
		return model.Preview{}, genfail.New(genfail.Validation, "studio.preview", "Empty submission. Nothing to ingest.")
	}
	if err := s.checkIngestAllowed(); err != nil {
		return model.Preview{}, err
	}

	s.mu.Lock()
	s.active = nil
	s.preview = nil
	s.recomputeLocked()
	s.mu.Unlock()

	s.trail.Add("tool / retrieval invocation", "Requesting URL preview.", model.LevelInfo)
	p, err := s.ingester.Preview(ctx, rawURL)
	if err != nil {
		s.trail.Add("response handling", "Ingestion failed: "+genfail.Message(err), model.LevelError)
		return model.Preview{}, err
	}
	s.mu.Lock()
	s.preview = &p
	s.mu.Unlock()
	s.trail.Add("response handling", "Preview response received.", model.LevelInfo)
	return p, nil
}

// ConfirmPreview ingests the held preview URL. A short preview is
// accepted as ok when the override is enabled.
func (s *Service) ConfirmPreview(ctx context.Context) (model.Baseline, error) {
	s.trail.Add("submit event", "Baseline confirmation submitted.", model.LevelInfo)
	s.mu.Lock()
	pending := s.preview
	s.mu.Unlock()
	if pending == nil {
		s.trail.Add("response handling", "Preview missing. Cannot confirm baseline.", model.LevelError)
		return model.Baseline{}, ErrNoPreview
	}
	if err := s.checkIngestAllowed(); err != nil {
		return model.Baseline{}, err
	}

	length := len([]rune(strings.TrimSpace(pending.Content)))
	if length == 0 {
		s.trail.Add("response handling", "No content extracted from URL preview.", model.LevelError)
		return model.Baseline{}, genfail.New(genfail.ContentQuality, "studio.confirm",
			"No content extracted from this URL. Check robots.txt, CORS, or HTML structure.")
	}
	short := length < shortPreviewChars
	force := short && s.forceShortOK
	if short {
		s.trail.Add("response handling", fmt.Sprintf("Preview short (%d chars). Proceeding with warning.", length), model.LevelWarning)
	}

	s.trail.Add("tool / retrieval invocation", "Submitting URL ingestion.", model.LevelInfo)
	resp, err := s.ingester.Ingest(ctx, ingest.Request{SourceType: model.SourceURL, InputValue: pending.URL})
	if err != nil {
		s.trail.Add("response handling", "Baseline creation failed: "+genfail.Message(err), model.LevelError)
		return model.Baseline{}, err
	}
	s.trail.Add("response handling", "Baseline response received.", model.LevelInfo)

	b := buildBaseline(IngestInput{SourceType: model.SourceURL, Value: pending.URL}, resp)
	if force {
		s.trail.Add("response handling", "Short content override enabled for baseline.", model.LevelWarning)
		b.Status = model.BaselineOK
		b.ErrorMessage = ""
	}

	s.mu.Lock()
	s.baseline = b
	if s.preview == pending {
		s.preview = nil
	}
	s.recomputeLocked()
	s.mu.Unlock()
	return *b, nil
}

// DiscardPreview drops the held preview. It reports whether one existed.
func (s *Service) DiscardPreview() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	had := s.preview != nil
	s.preview = nil
	return had
}
