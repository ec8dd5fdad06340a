// Package config loads and validates application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ashita-ai/kasane/internal/longform"
	"github.com/ashita-ai/kasane/internal/model"
	"github.com/ashita-ai/kasane/internal/resilient"
)

// Required collaborator variables. Missing any of them leaves the service
// running but BLOCKED.
const (
	EnvIngestURL = "KASANE_INGEST_URL"
	EnvMediaURL  = "KASANE_MEDIA_URL"
	EnvTextURL   = "KASANE_TEXT_URL"
)

// Config holds all application configuration.
type Config struct {
	// Server settings.
	Port                int
	ReadTimeout         time.Duration
	WriteTimeout        time.Duration
	MaxRequestBodyBytes int64 // Maximum request body size in bytes.

	// Collaborator base URLs.
	IngestURL string
	MediaURL  string
	TextURL   string

	// Generation settings.
	DefaultProvider     string // "codex", "zchat" or "pollinations"
	UserTier            string // tier applied when auth is disabled
	DevMode             bool
	ForceShortPreviewOK bool
	ProfilePath         string // optional YAML assembly profile
	DiagnosticsCap      int

	// Retry policy for collaborator calls.
	RetryAttempts  int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration

	// Per-call deadlines.
	TimeoutDefault     time.Duration
	TimeoutInfographic time.Duration
	TimeoutSlides      time.Duration
	TimeoutLongform    time.Duration
	TimeoutTTS         time.Duration

	// Vault settings. DatabaseURL wins over VaultPath; neither means memory.
	DatabaseURL string
	VaultPath   string

	// Auth settings.
	AuthEnabled       bool
	JWTPrivateKeyPath string // Path to Ed25519 private key PEM file.
	JWTPublicKeyPath  string // Path to Ed25519 public key PEM file.
	JWTExpiration     time.Duration
	AdminAPIKey       string // Key exchanged for tier tokens at /auth/token.

	// Generation rate limits per caller. Rate 0 disables limiting.
	GenerationRate  float64
	GenerationBurst int

	// OTEL settings.
	OTELEndpoint string
	OTELInsecure bool
	ServiceName  string

	LogLevel string
}

// Load reads configuration from environment variables with sensible defaults.
// All parse errors are collected so the operator sees every bad variable at once.
func Load() (Config, error) {
	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	cfg := Config{
		IngestURL:         envStr(EnvIngestURL, ""),
		MediaURL:          envStr(EnvMediaURL, ""),
		TextURL:           envStr(EnvTextURL, ""),
		DefaultProvider:   envStr("KASANE_DEFAULT_PROVIDER", string(longform.ProviderCodex)),
		UserTier:          envStr("KASANE_USER_TIER", string(model.TierFree)),
		ProfilePath:       envStr("KASANE_PROFILE_PATH", ""),
		DatabaseURL:       envStr("DATABASE_URL", ""),
		VaultPath:         envStr("KASANE_VAULT_PATH", "data/kasane.db"),
		JWTPrivateKeyPath: envStr("KASANE_JWT_PRIVATE_KEY", ""),
		JWTPublicKeyPath:  envStr("KASANE_JWT_PUBLIC_KEY", ""),
		AdminAPIKey:       envStr("KASANE_ADMIN_API_KEY", ""),
		OTELEndpoint:      envStr("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		ServiceName:       envStr("OTEL_SERVICE_NAME", "kasane"),
		LogLevel:          envStr("KASANE_LOG_LEVEL", "info"),
	}

	var err error
	cfg.Port, err = envInt("KASANE_PORT", 8080)
	collect(err)
	cfg.ReadTimeout, err = envDuration("KASANE_READ_TIMEOUT", 30*time.Second)
	collect(err)
	// Slide decks can take 90s plus retries.
	cfg.WriteTimeout, err = envDuration("KASANE_WRITE_TIMEOUT", 5*time.Minute)
	collect(err)
	var bodyBytes int
	bodyBytes, err = envInt("KASANE_MAX_REQUEST_BODY_BYTES", 1*1024*1024) // 1 MB default
	collect(err)
	cfg.MaxRequestBodyBytes = int64(bodyBytes)

	cfg.DevMode, err = envBool("KASANE_DEV_MODE", false)
	collect(err)
	cfg.ForceShortPreviewOK, err = envBool("KASANE_FORCE_SHORT_PREVIEW_OK", true)
	collect(err)
	cfg.DiagnosticsCap, err = envInt("KASANE_DIAGNOSTICS_CAP", 500)
	collect(err)

	policy := resilient.DefaultPolicy()
	cfg.RetryAttempts, err = envInt("KASANE_RETRY_ATTEMPTS", policy.Attempts)
	collect(err)
	cfg.RetryBaseDelay, err = envDuration("KASANE_RETRY_BASE_DELAY", policy.BaseDelay)
	collect(err)
	cfg.RetryMaxDelay, err = envDuration("KASANE_RETRY_MAX_DELAY", policy.MaxDelay)
	collect(err)

	timeouts := resilient.DefaultTimeouts()
	cfg.TimeoutDefault, err = envDuration("KASANE_TIMEOUT_DEFAULT", timeouts.Default)
	collect(err)
	cfg.TimeoutInfographic, err = envDuration("KASANE_TIMEOUT_INFOGRAPHIC", timeouts.Infographic)
	collect(err)
	cfg.TimeoutSlides, err = envDuration("KASANE_TIMEOUT_SLIDES", timeouts.Slides)
	collect(err)
	cfg.TimeoutLongform, err = envDuration("KASANE_TIMEOUT_LONGFORM", timeouts.Longform)
	collect(err)
	cfg.TimeoutTTS, err = envDuration("KASANE_TIMEOUT_TTS", timeouts.TTS)
	collect(err)

	cfg.AuthEnabled, err = envBool("KASANE_AUTH_ENABLED", false)
	collect(err)
	cfg.JWTExpiration, err = envDuration("KASANE_JWT_EXPIRATION", 24*time.Hour)
	collect(err)
	cfg.GenerationRate, err = envFloat("KASANE_GENERATION_RATE", 0.2)
	collect(err)
	cfg.GenerationBurst, err = envInt("KASANE_GENERATION_BURST", 5)
	collect(err)
	cfg.OTELInsecure, err = envBool("KASANE_OTEL_INSECURE", false)
	collect(err)

	if len(errs) > 0 {
		return Config{}, fmt.Errorf("config: %w", errors.Join(errs...))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the loaded values are usable. Missing collaborator
// URLs are not an error here; see MissingRequired.
func (c Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("KASANE_PORT must be between 1 and 65535"))
	}
	if c.MaxRequestBodyBytes <= 0 {
		errs = append(errs, fmt.Errorf("KASANE_MAX_REQUEST_BODY_BYTES must be positive"))
	}
	if _, err := longform.ParseProvider(c.DefaultProvider); err != nil {
		errs = append(errs, fmt.Errorf("KASANE_DEFAULT_PROVIDER: %w", err))
	}
	if _, ok := model.ParseTier(c.UserTier); !ok {
		errs = append(errs, fmt.Errorf("KASANE_USER_TIER=%q is not one of FREE, STANDARD, PRO", c.UserTier))
	}
	if c.RetryAttempts < 1 {
		errs = append(errs, fmt.Errorf("KASANE_RETRY_ATTEMPTS must be at least 1"))
	}
	if c.RetryBaseDelay < 0 || c.RetryMaxDelay < c.RetryBaseDelay {
		errs = append(errs, fmt.Errorf("KASANE_RETRY_MAX_DELAY must be at least KASANE_RETRY_BASE_DELAY"))
	}
	for name, d := range map[string]time.Duration{
		"KASANE_TIMEOUT_DEFAULT":     c.TimeoutDefault,
		"KASANE_TIMEOUT_INFOGRAPHIC": c.TimeoutInfographic,
		"KASANE_TIMEOUT_SLIDES":      c.TimeoutSlides,
		"KASANE_TIMEOUT_LONGFORM":    c.TimeoutLongform,
		"KASANE_TIMEOUT_TTS":         c.TimeoutTTS,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	if c.GenerationRate < 0 || c.GenerationBurst < 0 {
		errs = append(errs, fmt.Errorf("KASANE_GENERATION_RATE and KASANE_GENERATION_BURST must not be negative"))
	}
	if c.AuthEnabled {
		if c.AdminAPIKey == "" {
			errs = append(errs, fmt.Errorf("KASANE_ADMIN_API_KEY is required when KASANE_AUTH_ENABLED is set"))
		}
		if c.JWTExpiration <= 0 {
			errs = append(errs, fmt.Errorf("KASANE_JWT_EXPIRATION must be positive"))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// MissingRequired lists the required collaborator variables that are unset.
func (c Config) MissingRequired() []string {
	missing := []string{}
	for _, v := range []struct{ name, val string }{
		{EnvIngestURL, c.IngestURL},
		{EnvMediaURL, c.MediaURL},
		{EnvTextURL, c.TextURL},
	} {
		if strings.TrimSpace(v.val) == "" {
			missing = append(missing, v.name)
		}
	}
	return missing
}

// Tier is the validated UserTier.
func (c Config) Tier() model.Tier {
	t, ok := model.ParseTier(c.UserTier)
	if !ok {
		return model.TierFree
	}
	return t
}

// Provider is the validated DefaultProvider.
func (c Config) Provider() longform.Provider {
	p, err := longform.ParseProvider(c.DefaultProvider)
	if err != nil {
		return longform.ProviderCodex
	}
	return p
}

// RetryPolicy builds the collaborator retry policy.
func (c Config) RetryPolicy() resilient.Policy {
	return resilient.Policy{Attempts: c.RetryAttempts, BaseDelay: c.RetryBaseDelay, MaxDelay: c.RetryMaxDelay}
}

// Timeouts builds the per-call deadlines.
func (c Config) Timeouts() resilient.Timeouts {
	return resilient.Timeouts{
		Default:     c.TimeoutDefault,
		Infographic: c.TimeoutInfographic,
		Slides:      c.TimeoutSlides,
		Longform:    c.TimeoutLongform,
		TTS:         c.TimeoutTTS,
	}
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal, fmt.Errorf("%s=%q is not a valid integer", key, v)
	}
	return n, nil
}

func envFloat(key string, defaultVal float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal, fmt.Errorf("%s=%q is not a valid number", key, v)
	}
	return f, nil
}

func envBool(key string, defaultVal bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal, fmt.Errorf("%s=%q is not a valid boolean", key, v)
	}
	return b, nil
}

func envDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal, fmt.Errorf("%s=%q is not a valid duration", key, v)
	}
	return d, nil
}
