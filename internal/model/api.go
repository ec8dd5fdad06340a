package model

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// nonTextHosts are platforms whose pages carry no extractable article text.
// URL ingestion of these is refused; YouTube has its own transcript path.
var nonTextHosts = []string{
	"youtube.com",
	"youtu.be",
	"tiktok.com",
	"instagram.com",
	"x.com",
	"twitter.com",
}

// ValidateSourceURL ensures rawURL is an http(s) URL that is not hosted on
// a non-text platform.
func ValidateSourceURL(rawURL string) error {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("url must use http or https scheme (got %q)", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("url has no host")
	}
	host := strings.ToLower(u.Hostname())
	for _, blocked := range nonTextHosts {
		if host == blocked || strings.HasSuffix(host, "."+blocked) {
			return fmt.Errorf("%s does not serve article text; use the YouTube or paste source instead", blocked)
		}
	}
	return nil
}

// IngestRequest is the body of POST /v1/ingest.
type IngestRequest struct {
	SourceType SourceType `json:"source_type"`
	InputValue string     `json:"input_value"`
	Purpose    string     `json:"purpose,omitempty"`
}

// PreviewRequest is the body of POST /v1/preview.
type PreviewRequest struct {
	URL string `json:"url"`
}

// AuthTokenRequest is the body of POST /auth/token.
type AuthTokenRequest struct {
	APIKey string `json:"api_key"`
	Tier   Tier   `json:"tier"`
}

// AuthTokenResponse is returned by POST /auth/token.
type AuthTokenResponse struct {
	Token     string    `json:"token"`
	Tier      Tier      `json:"tier"`
	ExpiresAt time.Time `json:"expires_at"`
}

// GenerateResponse is returned by POST /v1/outputs/{type}.
type GenerateResponse struct {
	Status ExecutionStatus  `json:"status"`
	Output *GeneratedOutput `json:"output,omitempty"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status    string         `json:"status"`
	Version   string         `json:"version"`
	Vault     string         `json:"vault"`
	Readiness ReadinessState `json:"readiness"`
	Uptime    int64          `json:"uptime_seconds"`
}

// APIResponse is the standard response envelope for all HTTP API responses.
type APIResponse struct {
	Data any          `json:"data,omitempty"`
	Meta ResponseMeta `json:"meta"`
}

// APIError is the standard error response envelope.
type APIError struct {
	Error ErrorDetail  `json:"error"`
	Meta  ResponseMeta `json:"meta"`
}

// ResponseMeta contains request metadata included in every response.
type ResponseMeta struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorDetail describes an API error.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Error codes.
const (
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeForbidden     = "FORBIDDEN"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeConflict      = "CONFLICT"
	ErrCodeNotReady      = "NOT_READY"
	ErrCodeUpstream      = "UPSTREAM_ERROR"
	ErrCodeInternalError = "INTERNAL_ERROR"
	ErrCodeRateLimited   = "RATE_LIMITED"
)
