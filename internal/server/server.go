package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/ashita-ai/kasane/internal/auth"
	"github.com/ashita-ai/kasane/internal/ctxutil"
	"github.com/ashita-ai/kasane/internal/eligibility"
	"github.com/ashita-ai/kasane/internal/model"
	"github.com/ashita-ai/kasane/internal/ratelimit"
	"github.com/ashita-ai/kasane/internal/studio"
)

// Server is the kasane HTTP server.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	handlers   *Handlers
	logger     *slog.Logger
}

// Handler returns the root HTTP handler for use in tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ServerConfig holds all dependencies and configuration for creating a Server.
// Optional fields (nil-safe): JWTMgr, AdminKey, Limiter, Broker, MCPServer.
type ServerConfig struct {
	// Required dependencies.
	Studio *studio.Service
	Logger *slog.Logger

	// Auth. With AuthEnabled false every caller is anonymous at DefaultTier.
	AuthEnabled bool
	DefaultTier model.Tier
	JWTMgr      *auth.JWTManager
	AdminKey    *auth.AdminKey

	// Optional dependencies (nil = disabled).
	Limiter   ratelimit.Limiter
	Broker    *Broker
	MCPServer *mcpserver.MCPServer

	// HTTP server settings.
	Port                int
	ReadTimeout         time.Duration
	WriteTimeout        time.Duration
	Version             string
	MaxRequestBodyBytes int64
}

// New creates a new HTTP server with all routes configured.
func New(cfg ServerConfig) *Server {
	h := NewHandlers(HandlersDeps{
		Studio:              cfg.Studio,
		JWTMgr:              cfg.JWTMgr,
		AdminKey:            cfg.AdminKey,
		Broker:              cfg.Broker,
		Logger:              cfg.Logger,
		Version:             cfg.Version,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
	})

	if cfg.Broker != nil {
		cfg.Studio.OnDiagnostic(cfg.Broker.Publish)
	}

	reqIDFunc := func(r *http.Request) string {
		return ctxutil.RequestIDFromContext(r.Context())
	}
	generationRL := ratelimit.Middleware(cfg.Limiter, generationKeyFunc, reqIDFunc, cfg.Logger)

	mux := http.NewServeMux()

	// Auth (no token required).
	mux.HandleFunc("POST /auth/token", h.HandleAuthToken)

	// Sources.
	mux.HandleFunc("POST /v1/ingest", h.HandleIngest)
	mux.HandleFunc("POST /v1/preview", h.HandlePreview)
	mux.HandleFunc("GET /v1/preview", h.HandleGetPreview)
	mux.HandleFunc("POST /v1/preview/confirm", h.HandleConfirmPreview)
	mux.HandleFunc("DELETE /v1/preview", h.HandleDiscardPreview)
	mux.HandleFunc("GET /v1/baseline", h.HandleBaseline)

	// Readiness and eligibility.
	mux.HandleFunc("GET /v1/readiness", h.HandleReadiness)
	mux.HandleFunc("GET /v1/eligibility", h.HandleEligibility)

	// Outputs. Only generation is rate limited.
	mux.Handle("POST /v1/outputs/{type}", generationRL(http.HandlerFunc(h.HandleGenerate)))
	mux.HandleFunc("GET /v1/outputs/status", h.HandleOutputStatus)
	mux.HandleFunc("GET /v1/outputs/{type}", h.HandleOutputResult)
	mux.HandleFunc("POST /v1/outputs/{type}/reset", h.HandleOutputReset)

	// Vault.
	mux.HandleFunc("GET /v1/vault", h.HandleVault)
	mux.HandleFunc("GET /v1/vault/{id}", h.HandleVaultItem)
	mux.HandleFunc("GET /v1/vault/{id}/export", h.HandleExport)

	// Diagnostics.
	mux.HandleFunc("GET /v1/diagnostics", h.HandleDiagnostics)
	mux.HandleFunc("DELETE /v1/diagnostics", h.HandleClearDiagnostics)
	mux.HandleFunc("GET /v1/diagnostics/stream", h.HandleDiagnosticsStream)

	// MCP StreamableHTTP transport.
	if cfg.MCPServer != nil {
		mux.Handle("/mcp", mcpserver.NewStreamableHTTPServer(cfg.MCPServer))
	}

	// Health (no auth, no rate limit).
	mux.HandleFunc("GET /health", h.HandleHealth)

	// Middleware chain (outermost executes first):
	// request ID → tracing → logging → auth → recovery → handler.
	var handler http.Handler = mux
	handler = recoveryMiddleware(cfg.Logger, handler)
	handler = authMiddleware(cfg.JWTMgr, cfg.AuthEnabled, cfg.DefaultTier, handler)
	handler = loggingMiddleware(cfg.Logger, handler)
	handler = tracingMiddleware(handler)
	handler = requestIDMiddleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		handler:  handler,
		handlers: h,
		logger:   cfg.Logger,
	}
}

// generationKeyFunc keys generation requests by caller. Tiers with
// unlimited generations return "" and skip the limiter.
func generationKeyFunc(r *http.Request) string {
	c, ok := ctxutil.CallerFromContext(r.Context())
	if !ok {
		return ""
	}
	if eligibility.HasCapability(c.Tier, eligibility.CapUnlimitedGenerations) {
		return ""
	}
	return "caller:" + c.ID
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}
