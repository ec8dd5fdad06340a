// Package httpcall is the shared JSON-over-HTTP transport for the external
// generation and ingestion backends. It classifies failures with genfail
// so the resilient layer knows what to retry.
package httpcall

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ashita-ai/kasane/internal/genfail"
)

// ClientTimeout is the hard ceiling on any single request. Per-call
// deadlines come from the caller's context and are always shorter.
const ClientTimeout = 2 * time.Minute

// NewClient returns the http.Client shared by backend clients.
func NewClient() *http.Client {
	return &http.Client{Timeout: ClientTimeout}
}

// errorBodyLimit caps how much of a failed response is echoed into errors.
const errorBodyLimit = 1024

// PostJSON sends in as JSON to url and decodes the response into out.
// Transport failures, 5xx, 408 and 429 are genfail.Network. Other 4xx
// statuses and undecodable bodies are genfail.Provider.
func PostJSON(ctx context.Context, c *http.Client, op, url string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return genfail.Wrap(genfail.Validation, op, fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return genfail.Wrap(genfail.Validation, op, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.Do(req)
	if err != nil {
		return genfail.Wrap(genfail.Network, op, fmt.Errorf("send request: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return genfail.Wrap(statusKind(resp.StatusCode), op,
			fmt.Errorf("status %d: %s", resp.StatusCode, errorText(raw)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return genfail.Wrap(genfail.Provider, op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func statusKind(code int) genfail.Kind {
	switch {
	case code >= 500, code == http.StatusRequestTimeout, code == http.StatusTooManyRequests:
		return genfail.Network
	default:
		return genfail.Provider
	}
}

// errorText prefers the "error" field of a JSON error body.
func errorText(raw []byte) string {
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		return body.Error
	}
	return string(bytes.TrimSpace(raw))
}
