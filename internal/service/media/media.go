// Package media is the client for the media synthesis backend: speech,
// images, slide rendering and short-content hydration.
package media

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ashita-ai/kasane/internal/genfail"
	"github.com/ashita-ai/kasane/internal/resilient"
	"github.com/ashita-ai/kasane/internal/service/httpcall"
)

// Client talks to the media backend. Every call is timeout-bounded and
// retried under the configured policy.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	policy       resilient.Policy
	slidesPolicy resilient.Policy
	timeouts     resilient.Timeouts
	logger       *slog.Logger
}

// Config wires a Client. Zero fields take defaults.
type Config struct {
	BaseURL      string
	HTTPClient   *http.Client
	Policy       resilient.Policy
	SlidesPolicy resilient.Policy
	Timeouts     resilient.Timeouts
	Logger       *slog.Logger
}

// New returns a media Client.
func New(cfg Config) *Client {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = httpcall.NewClient()
	}
	if cfg.Policy.Attempts == 0 {
		cfg.Policy = resilient.DefaultPolicy()
	}
	if cfg.SlidesPolicy.Attempts == 0 {
		cfg.SlidesPolicy = resilient.SlidesPolicy()
	}
	if cfg.Timeouts == (resilient.Timeouts{}) {
		cfg.Timeouts = resilient.DefaultTimeouts()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:   cfg.HTTPClient,
		policy:       cfg.Policy,
		slidesPolicy: cfg.SlidesPolicy,
		timeouts:     cfg.Timeouts,
		logger:       cfg.Logger,
	}
}

func post[T any](ctx context.Context, c *Client, p resilient.Policy, timeout time.Duration, op, path string, in any) (T, error) {
	c.logger.Debug("media: request", "op", op, "path", path, "timeout", timeout)
	return resilient.Call(ctx, p, timeout, func(ctx context.Context) (T, error) {
		var out T
		err := httpcall.PostJSON(ctx, c.httpClient, op, c.baseURL+path, in, &out)
		return out, err
	})
}

// TTSRequest is the body of POST /tts.
type TTSRequest struct {
	Text     string `json:"text"`
	Voice    string `json:"voice,omitempty"`
	Provider string `json:"provider,omitempty"`
	Prefix   string `json:"prefix,omitempty"`
}

type ttsResponse struct {
	AudioURL      string  `json:"audio_url"`
	AudioFilename string  `json:"audio_filename"`
	Duration      float64 `json:"duration"`
	Error         string  `json:"error"`
}

// Audio is a synthesized narration.
type Audio struct {
	URL      string
	Duration float64
}

// TTS synthesizes speech. A bare filename in the response is resolved
// against the backend's /audio/ path.
func (c *Client) TTS(ctx context.Context, req TTSRequest) (Audio, error) {
	const op = "media.tts"
	if strings.TrimSpace(req.Text) == "" {
		return Audio{}, genfail.New(genfail.Validation, op, "narration text is empty")
	}
	resp, err := post[ttsResponse](ctx, c, c.policy, c.timeouts.TTS, op, "/tts", req)
	if err != nil {
		return Audio{}, err
	}
	if resp.Error != "" {
		return Audio{}, genfail.New(genfail.Provider, op, "%s", resp.Error)
	}
	switch {
	case resp.AudioURL != "":
		return Audio{URL: resp.AudioURL, Duration: resp.Duration}, nil
	case resp.AudioFilename != "":
		return Audio{URL: c.baseURL + "/audio/" + resp.AudioFilename, Duration: resp.Duration}, nil
	default:
		return Audio{}, genfail.New(genfail.Provider, op, "unrecognized response shape")
	}
}

// ImageRequest is the body of POST /generate-image.
type ImageRequest struct {
	Prompt   string `json:"prompt"`
	Style    string `json:"style,omitempty"`
	Provider string `json:"provider,omitempty"`
}

type imageResponse struct {
	ImageURL string `json:"image_url"`
	Prompt   string `json:"prompt"`
	Analysis any    `json:"analysis"`
	Error    string `json:"error"`
}

// Image is a rendered image reference.
type Image struct {
	URL      string
	Prompt   string
	Analysis any
}

// GenerateImage renders a single image from a prompt.
func (c *Client) GenerateImage(ctx context.Context, req ImageRequest) (Image, error) {
	const op = "media.image"
	if strings.TrimSpace(req.Prompt) == "" {
		return Image{}, genfail.New(genfail.Validation, op, "image prompt is empty")
	}
	resp, err := post[imageResponse](ctx, c, c.policy, c.timeouts.Infographic, op, "/generate-image", req)
	if err != nil {
		return Image{}, err
	}
	if resp.Error != "" {
		return Image{}, genfail.New(genfail.Provider, op, "%s", resp.Error)
	}
	url := strings.TrimSpace(resp.ImageURL)
	if url == "" {
		return Image{}, genfail.New(genfail.Provider, op, "unrecognized response shape")
	}
	return Image{URL: url, Prompt: resp.Prompt, Analysis: resp.Analysis}, nil
}

type hydrateRequest struct {
	Content     string `json:"content"`
	ContentType string `json:"content_type"`
}

type hydrateResponse struct {
	Content string `json:"content"`
	Error   string `json:"error"`
}

// Hydrate asks the backend to expand short content. contentType is one of
// "podcast", "slides" or "general". The caller decides whether to trust
// the result.
func (c *Client) Hydrate(ctx context.Context, content, contentType string) (string, error) {
	const op = "media.hydrate"
	if strings.TrimSpace(content) == "" {
		return "", genfail.New(genfail.Validation, op, "Missing content in request body")
	}
	resp, err := post[hydrateResponse](ctx, c, c.policy, c.timeouts.Default, op, "/hydrate",
		hydrateRequest{Content: content, ContentType: contentType})
	if err != nil {
		return "", err
	}
	if resp.Error != "" {
		return "", genfail.New(genfail.Provider, op, "%s", resp.Error)
	}
	return resp.Content, nil
}
