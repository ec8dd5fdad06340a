// Package ingest is the client for the content ingestion backend.
package ingest

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ashita-ai/kasane/internal/genfail"
	"github.com/ashita-ai/kasane/internal/model"
	"github.com/ashita-ai/kasane/internal/resilient"
	"github.com/ashita-ai/kasane/internal/service/httpcall"
)

// DefaultManualPurpose is sent for a manual entry with no declared purpose.
const DefaultManualPurpose = "Manual entry without declared purpose"

// Request is the body of POST /ingest.
type Request struct {
	SourceType model.SourceType `json:"source_type"`
	InputValue string           `json:"input_value"`
	Purpose    string           `json:"purpose,omitempty"`
}

// Response is the backend's ingestion verdict.
type Response struct {
	Content      string               `json:"content"`
	SourceType   string               `json:"source_type"`
	SourceRef    string               `json:"source_ref"`
	CreatedAt    string               `json:"created_at,omitempty"`
	Status       model.BaselineStatus `json:"status"`
	ErrorMessage string               `json:"error_message,omitempty"`
	Provenance   []model.Provenance   `json:"provenance"`
	Error        string               `json:"error,omitempty"`
}

type previewRequest struct {
	URL string `json:"url"`
}

type previewResponse struct {
	Content string `json:"content"`
	Length  int    `json:"length"`
	Status  string `json:"status"`
	Error   string `json:"error"`
}

// Client talks to the ingestion backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	policy     resilient.Policy
	timeout    time.Duration
	logger     *slog.Logger
	previews   singleflight.Group
}

// Config wires a Client.
type Config struct {
	BaseURL    string
	HTTPClient *http.Client
	Policy     resilient.Policy
	Timeout    time.Duration
	Logger     *slog.Logger
}

// New returns an ingestion Client.
func New(cfg Config) *Client {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = httpcall.NewClient()
	}
	if cfg.Policy.Attempts == 0 {
		cfg.Policy = resilient.DefaultPolicy()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = resilient.DefaultTimeouts().Default
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: cfg.HTTPClient,
		policy:     cfg.Policy,
		timeout:    cfg.Timeout,
		logger:     cfg.Logger,
	}
}

// Ingest submits a source. Manual entries without a purpose get
// DefaultManualPurpose.
func (c *Client) Ingest(ctx context.Context, req Request) (Response, error) {
	const op = "ingest"
	if strings.TrimSpace(req.InputValue) == "" {
		return Response{}, genfail.New(genfail.Validation, op, "Empty submission. Nothing to ingest.")
	}
	if req.SourceType == model.SourceManual && strings.TrimSpace(req.Purpose) == "" {
		req.Purpose = DefaultManualPurpose
	}

	resp, err := resilient.Call(ctx, c.policy, c.timeout, func(ctx context.Context) (Response, error) {
		var out Response
		err := httpcall.PostJSON(ctx, c.httpClient, op, c.baseURL+"/ingest", req, &out)
		return out, err
	})
	if err != nil {
		return Response{}, err
	}
	if resp.Error != "" {
		return Response{}, genfail.New(genfail.Provider, op, "%s", resp.Error)
	}
	if resp.Status == "" {
		resp.Status = model.BaselineOK
	}
	c.logger.Info("ingest: source ingested",
		"source_type", req.SourceType, "status", resp.Status, "length", len(resp.Content))
	return resp, nil
}

// Preview extracts a URL's text without establishing a baseline.
// Concurrent previews of the same URL share one backend call.
func (c *Client) Preview(ctx context.Context, rawURL string) (model.Preview, error) {
	const op = "ingest.preview"
	url := strings.TrimSpace(rawURL)
	if err := model.ValidateSourceURL(url); err != nil {
		return model.Preview{}, genfail.Wrap(genfail.Validation, op, err)
	}

	v, err, shared := c.previews.Do(url, func() (any, error) {
		return resilient.Call(ctx, c.policy, c.timeout, func(ctx context.Context) (previewResponse, error) {
			var out previewResponse
			err := httpcall.PostJSON(ctx, c.httpClient, op, c.baseURL+"/preview", previewRequest{URL: url}, &out)
			return out, err
		})
	})
	if err != nil {
		return model.Preview{}, err
	}
	resp := v.(previewResponse)
	if resp.Error != "" {
		return model.Preview{}, genfail.New(genfail.Provider, op, "%s", resp.Error)
	}
	if shared {
		c.logger.Debug("ingest: preview shared with concurrent caller", "url", url)
	}
	length := resp.Length
	if length == 0 {
		length = len([]rune(resp.Content))
	}
	return model.Preview{URL: url, Content: resp.Content, Length: length}, nil
}
