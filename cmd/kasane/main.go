package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ashita-ai/kasane/internal/app"
	"github.com/ashita-ai/kasane/internal/auth"
	"github.com/ashita-ai/kasane/internal/config"
	"github.com/ashita-ai/kasane/internal/mcp"
	"github.com/ashita-ai/kasane/internal/ratelimit"
	"github.com/ashita-ai/kasane/internal/server"
	"github.com/ashita-ai/kasane/internal/telemetry"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run0())
}

func run0() int {
	// Load .env file if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(os.Getenv("KASANE_LOG_LEVEL")),
	}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, logger); err != nil {
		slog.Error("fatal error", "error", err)
		return 1
	}
	return 0
}

func logLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	slog.Info("kasane starting", "version", version, "port", cfg.Port, "dev_mode", cfg.DevMode)

	otelShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Endpoint:    cfg.OTELEndpoint,
		Insecure:    cfg.OTELInsecure,
		ServiceName: cfg.ServiceName,
		Version:     version,
		DevMode:     cfg.DevMode,
	})
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() { _ = otelShutdown(context.Background()) }()

	// Studio plus its collaborators and vault. Missing collaborator URLs
	// leave the studio BLOCKED; the server still starts so /health and
	// /v1/readiness can report why.
	components, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = components.Close() }()
	logger.Info("studio ready",
		"vault", components.Studio.VaultBackend(),
		"readiness", components.Studio.Readiness().State,
		"default_tier", components.Studio.DefaultTier())

	jwtMgr, err := auth.NewJWTManager(cfg.JWTPrivateKeyPath, cfg.JWTPublicKeyPath, cfg.JWTExpiration)
	if err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	var adminKey *auth.AdminKey
	if cfg.AdminAPIKey != "" {
		adminKey, err = auth.NewAdminKey(cfg.AdminAPIKey)
		if err != nil {
			return fmt.Errorf("auth: admin key: %w", err)
		}
	}

	var limiter ratelimit.Limiter
	if cfg.GenerationRate > 0 {
		limiter = ratelimit.NewMemoryLimiter(cfg.GenerationRate, cfg.GenerationBurst)
		defer func() { _ = limiter.Close() }()
		logger.Info("generation rate limiting: memory (in-process token bucket)",
			"rps", cfg.GenerationRate, "burst", cfg.GenerationBurst)
	} else {
		limiter = ratelimit.NoopLimiter{}
		logger.Info("generation rate limiting: disabled")
	}

	mcpSrv := mcp.New(components.Studio, logger, version)
	broker := server.NewBroker(logger)

	srv := server.New(server.ServerConfig{
		Studio:              components.Studio,
		Logger:              logger,
		AuthEnabled:         cfg.AuthEnabled,
		DefaultTier:         cfg.Tier(),
		JWTMgr:              jwtMgr,
		AdminKey:            adminKey,
		Limiter:             limiter,
		Broker:              broker,
		MCPServer:           mcpSrv.MCPServer(),
		Port:                cfg.Port,
		ReadTimeout:         cfg.ReadTimeout,
		WriteTimeout:        cfg.WriteTimeout,
		Version:             version,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
	})

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	// Generations are synchronous requests, so draining HTTP drains them.
	slog.Info("kasane shutting down")
	httpCtx, httpCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer httpCancel()
	if err := srv.Shutdown(httpCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}

	slog.Info("kasane stopped")
	return nil
}
