package studio

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/kasane/internal/longform"
	"github.com/ashita-ai/kasane/internal/model"
	"github.com/ashita-ai/kasane/internal/service/ingest"
	"github.com/ashita-ai/kasane/internal/service/media"
	"github.com/ashita-ai/kasane/internal/storage"
)

// longBaseline clears every sufficiency floor and the hydration threshold.
var longBaseline = strings.Repeat("Solar adoption keeps climbing as panel and battery costs fall. ", 12)

const reportText = `Executive Summary: Solar adoption doubled. Costs fell sharply. Storage followed.
## Market
Installations grew in every region. Storage attached to most new systems.
## Policy
Incentives expanded. Permitting got faster.
Key Finding: Storage is now the default add-on.
Conclusion: Grid operators must adapt.`

const podcastText = `Maya: Welcome back. Today we are talking about solar.
Alex: And why storage suddenly matters.
Maya: Let's start with the numbers.`

type fakeIngester struct {
	mu         sync.Mutex
	resp       ingest.Response
	err        error
	preview    model.Preview
	previewErr error
	calls      []ingest.Request
}

func (f *fakeIngester) Ingest(_ context.Context, req ingest.Request) (ingest.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	return f.resp, f.err
}

func (f *fakeIngester) Preview(_ context.Context, rawURL string) (model.Preview, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.previewErr != nil {
		return model.Preview{}, f.previewErr
	}
	p := f.preview
	p.URL = rawURL
	return p, nil
}

func (f *fakeIngester) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeMedia struct {
	mu sync.Mutex

	ttsErr   error
	ttsCalls []media.TTSRequest

	image       media.Image
	imageErr    error
	imageCalled int

	deck        media.SlideDeck
	slidesErr   error
	slidesCalls []media.SlidesRequest

	// hydrated, when set, replaces the hydrated content; otherwise the
	// input comes back unchanged.
	hydrated     string
	hydrateErr   error
	hydrateTypes []string
}

func (f *fakeMedia) TTS(_ context.Context, req media.TTSRequest) (media.Audio, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ttsCalls = append(f.ttsCalls, req)
	if f.ttsErr != nil {
		return media.Audio{}, f.ttsErr
	}
	return media.Audio{URL: "https://audio.example/" + req.Prefix + ".mp3", Duration: 42}, nil
}

func (f *fakeMedia) GenerateImage(_ context.Context, req media.ImageRequest) (media.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.imageCalled++
	if f.imageErr != nil {
		return media.Image{}, f.imageErr
	}
	img := f.image
	if img.URL == "" {
		img.URL = "https://img.example/infographic.png"
	}
	return img, nil
}

func (f *fakeMedia) Slides(_ context.Context, req media.SlidesRequest) (media.SlideDeck, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.slidesCalls = append(f.slidesCalls, req)
	return f.deck, f.slidesErr
}

func (f *fakeMedia) Hydrate(_ context.Context, content, contentType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hydrateTypes = append(f.hydrateTypes, contentType)
	if f.hydrateErr != nil {
		return "", f.hydrateErr
	}
	if f.hydrated != "" {
		return f.hydrated, nil
	}
	return content, nil
}

type writerCall struct {
	source    string
	mode      longform.Mode
	minWords  int
	hydrating bool
	segmented bool
}

type fakeWriter struct {
	mu    sync.Mutex
	err   error
	calls []writerCall
	// block, when non-nil, holds every call until it is closed.
	block   chan struct{}
	started chan struct{}
}

func (f *fakeWriter) wait(ctx context.Context) error {
	if f.started != nil {
		select {
		case f.started <- struct{}{}:
		default:
		}
	}
	if f.block == nil {
		return nil
	}
	select {
	case <-f.block:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeWriter) Generate(ctx context.Context, source string, opts longform.Options) (*longform.Result, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, writerCall{source: source, mode: opts.Mode, minWords: opts.MinWords, hydrating: opts.Hydrating})
	if f.err != nil {
		return nil, f.err
	}
	text := "- Solar is cheaper\n- Storage is standard\nKey takeaway: the grid changes"
	return &longform.Result{Text: text, Words: longform.CountWords(text), Continuations: 1}, nil
}

func (f *fakeWriter) Segmented(ctx context.Context, source string, opts longform.SegmentOptions) (*longform.Result, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, writerCall{source: source, mode: opts.Mode, hydrating: opts.Hydrating, segmented: true})
	if f.err != nil {
		return nil, f.err
	}
	text := reportText
	if opts.Mode == longform.ModePodcast {
		text = podcastText
	}
	return &longform.Result{Text: text, Words: longform.CountWords(text), Segments: 3}, nil
}

func (f *fakeWriter) lastCall() writerCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return writerCall{}
	}
	return f.calls[len(f.calls)-1]
}

// failingVault refuses every append.
type failingVault struct {
	*storage.MemoryVault
}

func (failingVault) Append(context.Context, model.GeneratedOutput) error {
	return errors.New("disk full")
}

type harness struct {
	svc      *Service
	ingester *fakeIngester
	media    *fakeMedia
	writer   *fakeWriter
	vault    storage.Vault
}

type option func(*Config)

func withDevMode(c *Config) { c.DevMode = true }
func withTier(t model.Tier) option { return func(c *Config) { c.DefaultTier = t } }
func withVault(v storage.Vault) option { return func(c *Config) { c.Vault = v } }
func withEnv(env Environment) option { return func(c *Config) { c.Environment = env } }
func withForceShort(force bool) option { return func(c *Config) { c.ForceShortPreviewOK = force } }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newHarness(t *testing.T, opts ...option) *harness {
	t.Helper()
	h := &harness{
		ingester: &fakeIngester{resp: ingest.Response{
			Content:    longBaseline,
			SourceType: "Paste",
			SourceRef:  "user_input",
			Status:     model.BaselineOK,
			Provenance: []model.Provenance{{SourceType: "Paste"}},
		}},
		media:  &fakeMedia{},
		writer: &fakeWriter{},
	}
	cfg := Config{
		Ingester:            h.ingester,
		Media:               h.media,
		Writer:              h.writer,
		Vault:               storage.NewMemoryVault(),
		Environment:         Environment{Ready: true},
		ForceShortPreviewOK: true,
		Logger:              discardLogger(),
	}
	for _, o := range opts {
		o(&cfg)
	}
	h.vault = cfg.Vault

	svc, err := New(context.Background(), cfg)
	require.NoError(t, err)
	h.svc = svc
	return h
}

// seed ingests the default long baseline.
func (h *harness) seed(t *testing.T) {
	t.Helper()
	_, err := h.svc.Ingest(context.Background(), IngestInput{SourceType: model.SourcePaste, Value: "pasted text"})
	require.NoError(t, err)
}

func hasDiagnostic(diags []model.Diagnostic, level model.DiagnosticLevel, substr string) bool {
	for _, d := range diags {
		if d.Level == level && strings.Contains(d.Message, substr) {
			return true
		}
	}
	return false
}
