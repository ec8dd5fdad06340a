package testutil

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/ashita-ai/kasane/internal/longform"
	"github.com/ashita-ai/kasane/internal/model"
	"github.com/ashita-ai/kasane/internal/service/ingest"
	"github.com/ashita-ai/kasane/internal/service/media"
	"github.com/ashita-ai/kasane/internal/storage"
	"github.com/ashita-ai/kasane/internal/studio"
)

// LongSource clears every sufficiency floor and the hydration threshold.
var LongSource = strings.Repeat("Solar adoption keeps climbing as panel and battery costs fall. ", 12)

// ReportText is what StubWriter returns for segmented articles.
const ReportText = `Executive Summary: Solar adoption doubled. Costs fell sharply.
## Market
Installations grew in every region.
Key Finding: Storage is now the default add-on.`

// StubIngester echoes the submitted value back as an ok baseline.
type StubIngester struct {
	mu    sync.Mutex
	Err   error
	Calls int
}

func (s *StubIngester) Ingest(_ context.Context, req ingest.Request) (ingest.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls++
	if s.Err != nil {
		return ingest.Response{}, s.Err
	}
	return ingest.Response{
		Content:    req.InputValue,
		SourceType: string(req.SourceType),
		SourceRef:  "user_input",
		Status:     model.BaselineOK,
		Provenance: []model.Provenance{{SourceType: string(req.SourceType)}},
	}, nil
}

func (s *StubIngester) Preview(_ context.Context, rawURL string) (model.Preview, error) {
	if s.Err != nil {
		return model.Preview{}, s.Err
	}
	return model.Preview{URL: rawURL, Content: LongSource, Length: len(LongSource)}, nil
}

// StubMedia answers every media call with fixed URLs.
type StubMedia struct{}

func (StubMedia) TTS(_ context.Context, req media.TTSRequest) (media.Audio, error) {
	return media.Audio{URL: "https://audio.example/" + req.Prefix + ".mp3", Duration: 30}, nil
}

func (StubMedia) GenerateImage(context.Context, media.ImageRequest) (media.Image, error) {
	return media.Image{URL: "https://img.example/infographic.png"}, nil
}

func (StubMedia) Slides(context.Context, media.SlidesRequest) (media.SlideDeck, error) {
	return media.SlideDeck{ImageURLs: []string{"https://slides.example/1.png", "https://slides.example/2.png"}}, nil
}

func (StubMedia) Hydrate(_ context.Context, content, _ string) (string, error) {
	return content, nil
}

// StubWriter returns canned long-form text.
type StubWriter struct {
	// Block, when non-nil, holds every call until closed.
	Block chan struct{}
}

func (w StubWriter) wait(ctx context.Context) error {
	if w.Block == nil {
		return nil
	}
	select {
	case <-w.Block:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w StubWriter) Generate(ctx context.Context, _ string, _ longform.Options) (*longform.Result, error) {
	if err := w.wait(ctx); err != nil {
		return nil, err
	}
	text := "- Solar is cheaper\n- Storage is standard\nKey takeaway: the grid changes"
	return &longform.Result{Text: text, Words: longform.CountWords(text)}, nil
}

func (w StubWriter) Segmented(ctx context.Context, _ string, opts longform.SegmentOptions) (*longform.Result, error) {
	if err := w.wait(ctx); err != nil {
		return nil, err
	}
	text := ReportText
	if opts.Mode == longform.ModePodcast {
		text = "Maya: Welcome back.\nAlex: Glad to be here."
	}
	return &longform.Result{Text: text, Words: longform.CountWords(text), Segments: 3}, nil
}

// NewStudio builds a studio.Service over stub collaborators and an
// in-memory vault. Fields already set on cfg are kept.
func NewStudio(t testing.TB, cfg studio.Config) *studio.Service {
	t.Helper()
	if cfg.Ingester == nil {
		cfg.Ingester = &StubIngester{}
	}
	if cfg.Media == nil {
		cfg.Media = StubMedia{}
	}
	if cfg.Writer == nil {
		cfg.Writer = StubWriter{}
	}
	if cfg.Vault == nil {
		cfg.Vault = storage.NewMemoryVault()
	}
	if cfg.Environment.MissingVars == nil && !cfg.Environment.Ready {
		cfg.Environment = studio.Environment{Ready: true}
	}
	if cfg.Logger == nil {
		cfg.Logger = TestLogger()
	}
	svc, err := studio.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("testutil: new studio: %v", err)
	}
	return svc
}
