// Package longform assembles long texts from providers that stop early.
//
// A single generation asks the provider once, then keeps asking it to
// continue from the tail of what it has written until a word floor is
// reached or the attempt ceiling runs out. Segmented generation runs one
// such generation per profile section, in order, handing the tail of each
// segment to the next.
package longform

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ashita-ai/kasane/internal/genfail"
	"github.com/ashita-ai/kasane/internal/resilient"
)

// Mode selects the prompt family.
type Mode string

const (
	ModeArticle Mode = "article"
	ModePodcast Mode = "podcast"
)

// Provider names a text backend.
type Provider string

const (
	ProviderCodex        Provider = "codex"
	ProviderZChat        Provider = "zchat"
	ProviderPollinations Provider = "pollinations"
)

// ParseProvider validates a provider name.
func ParseProvider(s string) (Provider, error) {
	switch p := Provider(strings.ToLower(strings.TrimSpace(s))); p {
	case ProviderCodex, ProviderZChat, ProviderPollinations:
		return p, nil
	default:
		return "", fmt.Errorf("unknown text provider %q", s)
	}
}

const (
	defaultArticleWords = 1500
	defaultPodcastWords = 800
	hydratingMinWords   = 10
	defaultMaxAttempts  = 8
	defaultMaxTokens    = 1500
	continuationContext = 1200
)

// TextClient is one text backend.
type TextClient interface {
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// Options control a single generation.
type Options struct {
	Mode        Mode
	MinWords    int      // 0 means the mode default
	Provider    Provider // "" means the engine default
	MaxAttempts int      // continuation ceiling; 0 means 8
	MaxTokens   int      // 0 means 1500
	// Hydrating forces a 10-word floor and skips the final floor check.
	Hydrating bool
}

// Result is an assembled text plus what it took to get there.
type Result struct {
	Text          string
	Words         int
	Continuations int
	Segments      int
	UsedFallback  bool
}

// Config wires an Engine.
type Config struct {
	Clients         map[Provider]TextClient
	DefaultProvider Provider
	Policy          resilient.Policy
	Timeout         time.Duration
	Profile         Profile
	Logger          *slog.Logger
}

// Engine runs single and segmented generations.
type Engine struct {
	clients         map[Provider]TextClient
	defaultProvider Provider
	policy          resilient.Policy
	timeout         time.Duration
	profile         Profile
	stitcher        *Stitcher
	logger          *slog.Logger
}

// NewEngine builds an Engine. Zero config fields take defaults.
func NewEngine(cfg Config) *Engine {
	if cfg.DefaultProvider == "" {
		cfg.DefaultProvider = ProviderCodex
	}
	if cfg.Policy.Attempts == 0 {
		cfg.Policy = resilient.DefaultPolicy()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = resilient.DefaultTimeouts().Longform
	}
	if len(cfg.Profile.Sections) == 0 {
		cfg.Profile = DefaultProfile()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Engine{
		clients:         cfg.Clients,
		defaultProvider: cfg.DefaultProvider,
		policy:          cfg.Policy,
		timeout:         cfg.Timeout,
		profile:         cfg.Profile,
		stitcher:        NewStitcher(cfg.Profile.Hosts),
		logger:          cfg.Logger,
	}
}

// Profile returns the engine's assembly profile.
func (e *Engine) Profile() Profile { return e.profile }

func (e *Engine) call(ctx context.Context, p Provider, prompt string, maxTokens int) (string, error) {
	client, ok := e.clients[p]
	if !ok {
		return "", genfail.New(genfail.Validation, "longform", "text provider %q is not configured", p)
	}
	e.logger.Debug("longform: provider call", "provider", p, "prompt_preview", preview(prompt))
	return resilient.Call(ctx, e.policy, e.timeout, func(ctx context.Context) (string, error) {
		return client.Complete(ctx, prompt, maxTokens)
	})
}

// callWithFallback applies the provider policy: the engine's default
// provider gets exactly one retry on pollinations; any other provider's
// error propagates.
func (e *Engine) callWithFallback(ctx context.Context, p Provider, prompt string, maxTokens int) (string, bool, error) {
	out, err := e.call(ctx, p, prompt, maxTokens)
	if err == nil {
		return out, false, nil
	}
	if p != e.defaultProvider || p == ProviderPollinations {
		return "", false, err
	}
	e.logger.Warn("longform: primary provider failed, using fallback", "provider", p, "error", err)
	out, ferr := e.call(ctx, ProviderPollinations, prompt, maxTokens)
	if ferr != nil {
		kind := genfail.KindOf(ferr)
		if kind == 0 {
			kind = genfail.Provider
		}
		return "", true, &genfail.Error{
			Kind: kind,
			Op:   "longform",
			Msg:  fmt.Sprintf("Initial generation failed: %v; fallback failed: %v", err, ferr),
		}
	}
	return out, true, nil
}

// Generate produces one text of at least the mode's minimum word count.
func (e *Engine) Generate(ctx context.Context, sourceText string, opts Options) (*Result, error) {
	if opts.Mode == "" {
		opts.Mode = ModeArticle
	}
	minWords := opts.MinWords
	switch {
	case opts.Hydrating:
		minWords = hydratingMinWords
	case minWords == 0 && opts.Mode == ModePodcast:
		minWords = defaultPodcastWords
	case minWords == 0:
		minWords = defaultArticleWords
	}
	provider := opts.Provider
	if provider == "" {
		provider = e.defaultProvider
	}
	maxAttempts := opts.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = defaultMaxAttempts
	}
	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	source := Sanitize(sourceText)
	if len([]rune(source)) < MinSourceLength {
		return nil, genfail.New(genfail.Validation, "longform", "Source text missing or too short for generation.")
	}

	rule := systemRule(opts.Mode, minWords, e.profile.Hosts)
	res := &Result{}

	output, fell, err := e.callWithFallback(ctx, provider, rule+userPrompt(opts.Mode, source, minWords), maxTokens)
	if err != nil {
		return nil, err
	}
	res.UsedFallback = fell
	if CountWords(output) == 0 {
		return nil, genfail.New(genfail.Provider, "longform", "Initial generation returned empty output.")
	}

	attempts := 0
	for CountWords(output) < minWords && attempts < maxAttempts {
		attempts++
		prompt := rule + continuationPrompt(CountWords(output), minWords, tailRunes(output, continuationContext))
		more, fell, err := e.callWithFallback(ctx, provider, prompt, maxTokens)
		if err != nil {
			e.logger.Warn("longform: continuation failed", "attempt", attempts, "error", err)
			break
		}
		res.UsedFallback = res.UsedFallback || fell
		if strings.TrimSpace(more) == "" {
			break
		}
		output += "\n\n" + more
		res.Continuations++
	}

	if opts.Mode == ModePodcast {
		output = e.profile.Hosts.EnforceTurns(output)
	}

	words := CountWords(output)
	if !opts.Hydrating && words < minWords {
		return nil, genfail.New(genfail.ContentQuality, "longform",
			"Unable to reach minimum word count after %d attempts. Produced %d words.", attempts, words)
	}

	res.Text = output
	res.Words = words
	return res, nil
}

// SegmentOptions control a segmented generation.
type SegmentOptions struct {
	Mode     Mode
	Provider Provider
	// Hydrating is passed to every article segment. Dialogue segments
	// always keep their word floor.
	Hydrating bool
}

// Segmented generates one segment per profile section, strictly in order.
// Any segment under the floor aborts the whole run.
func (e *Engine) Segmented(ctx context.Context, source string, opts SegmentOptions) (*Result, error) {
	if opts.Mode == "" {
		opts.Mode = ModeArticle
	}
	p := e.profile
	res := &Result{}
	segments := make([]string, 0, len(p.Sections))
	tail := ""

	for i, section := range p.Sections {
		var prompt string
		hydrating := opts.Hydrating
		if opts.Mode == ModePodcast {
			prompt = podcastSegmentPrompt(section, tail, source, i > 0, p.Hosts)
			hydrating = false
		} else {
			prompt = articleSegmentPrompt(section, tail, source)
		}

		seg, err := e.Generate(ctx, prompt, Options{
			Mode:      opts.Mode,
			MinWords:  p.SegmentMinWords,
			Provider:  opts.Provider,
			Hydrating: hydrating,
		})
		if err != nil {
			return nil, err
		}
		if seg.Words < p.SegmentFloorWords {
			return nil, genfail.New(genfail.ContentQuality, "longform",
				"Segment %q returned too short (%d words).", section, seg.Words)
		}
		e.logger.Info("longform: segment complete", "section", section, "words", seg.Words, "continuations", seg.Continuations)

		res.Continuations += seg.Continuations
		res.UsedFallback = res.UsedFallback || seg.UsedFallback
		segments = append(segments, strings.TrimSpace(seg.Text))
		tail = TailLines(seg.Text, p.ContextLines)
	}

	var text string
	if opts.Mode == ModePodcast {
		text = strings.TrimSpace(e.stitcher.Stitch(segments))
	}
	if text == "" {
		text = strings.TrimSpace(strings.Join(segments, "\n\n"))
	}
	if CountWords(text) == 0 {
		return nil, genfail.New(genfail.ContentQuality, "longform", "Generation returned empty output.")
	}

	res.Text = text
	res.Words = CountWords(text)
	res.Segments = len(segments)
	return res, nil
}

func preview(prompt string) string {
	r := []rune(prompt)
	if len(r) > 200 {
		r = r[:200]
	}
	return strings.Join(strings.Fields(string(r)), " ")
}
