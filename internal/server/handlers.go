package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ashita-ai/kasane/internal/auth"
	"github.com/ashita-ai/kasane/internal/ctxutil"
	"github.com/ashita-ai/kasane/internal/genfail"
	"github.com/ashita-ai/kasane/internal/lifecycle"
	"github.com/ashita-ai/kasane/internal/model"
	"github.com/ashita-ai/kasane/internal/storage"
	"github.com/ashita-ai/kasane/internal/studio"
)

// Handlers holds HTTP handler dependencies.
type Handlers struct {
	studio              *studio.Service
	jwtMgr              *auth.JWTManager
	adminKey            *auth.AdminKey
	broker              *Broker
	logger              *slog.Logger
	startedAt           time.Time
	version             string
	maxRequestBodyBytes int64
}

// HandlersDeps holds all dependencies for constructing Handlers.
// Optional (nil-safe): JWTMgr, AdminKey, Broker.
type HandlersDeps struct {
	Studio              *studio.Service
	JWTMgr              *auth.JWTManager
	AdminKey            *auth.AdminKey
	Broker              *Broker
	Logger              *slog.Logger
	Version             string
	MaxRequestBodyBytes int64
}

// NewHandlers creates a new Handlers with all dependencies.
func NewHandlers(d HandlersDeps) *Handlers {
	return &Handlers{
		studio:              d.Studio,
		jwtMgr:              d.JWTMgr,
		adminKey:            d.AdminKey,
		broker:              d.Broker,
		logger:              d.Logger,
		startedAt:           time.Now(),
		version:             d.Version,
		maxRequestBodyBytes: d.MaxRequestBodyBytes,
	}
}

// HandleAuthToken handles POST /auth/token. The admin key mints a token
// for any tier.
func (h *Handlers) HandleAuthToken(w http.ResponseWriter, r *http.Request) {
	if h.jwtMgr == nil || h.adminKey == nil {
		writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "token issuance is not configured")
		return
	}

	var req model.AuthTokenRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}

	if !h.adminKey.Verify(req.APIKey) {
		writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorized, "invalid credentials")
		return
	}

	tier, ok := model.ParseTier(string(req.Tier))
	if !ok {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "tier must be FREE, STANDARD or PRO")
		return
	}

	token, expiresAt, err := h.jwtMgr.IssueToken(tier)
	if err != nil {
		h.writeInternalError(w, r, "failed to issue token", err)
		return
	}

	h.logger.Info("token issued",
		"tier", tier,
		"expires_at", expiresAt,
		"request_id", ctxutil.RequestIDFromContext(r.Context()),
	)
	writeJSON(w, r, http.StatusOK, model.AuthTokenResponse{
		Token:     token,
		Tier:      tier,
		ExpiresAt: expiresAt,
	})
}

// HandleHealth handles GET /health. A blocked environment reports degraded.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	snap := h.studio.Readiness()
	status := "healthy"
	if snap.State == model.ReadinessBlocked {
		status = "degraded"
	}
	writeJSON(w, r, http.StatusOK, model.HealthResponse{
		Status:    status,
		Version:   h.version,
		Vault:     h.studio.VaultBackend(),
		Readiness: snap.State,
		Uptime:    int64(time.Since(h.startedAt).Seconds()),
	})
}

// --- Shared helpers ---

// callerTier is the entitlement tier of the resolved caller, or the
// studio default when none was resolved.
func (h *Handlers) callerTier(r *http.Request) model.Tier {
	if c, ok := ctxutil.CallerFromContext(r.Context()); ok && c.Tier != "" {
		return c.Tier
	}
	return h.studio.DefaultTier()
}

// pathOutputType parses the {type} path segment.
func pathOutputType(w http.ResponseWriter, r *http.Request) (model.OutputType, bool) {
	t, err := model.ParseOutputType(r.PathValue("type"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return "", false
	}
	return t, true
}

// maxQueryLimit is the maximum allowed value for limit query parameters.
const maxQueryLimit = 1000

func queryInt(r *http.Request, key string, defaultVal int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

// queryLimit returns a limit clamped to [0, maxQueryLimit]; 0 means all.
func queryLimit(r *http.Request) int {
	limit := queryInt(r, "limit", 0)
	if limit < 0 {
		return 0
	}
	if limit > maxQueryLimit {
		return maxQueryLimit
	}
	return limit
}

func (h *Handlers) writeInternalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.logger.Error(msg,
		"error", err,
		"request_id", ctxutil.RequestIDFromContext(r.Context()),
	)
	writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, msg)
}

// writeStudioError maps a studio failure to a status and error code.
// details, when non-nil, rides along in the error body.
func (h *Handlers) writeStudioError(w http.ResponseWriter, r *http.Request, err error, details any) {
	var inel *studio.IneligibleError
	switch {
	case errors.As(err, &inel):
		status, code := http.StatusConflict, model.ErrCodeNotReady
		if inel.Eligibility.RequiredTier != "" {
			status, code = http.StatusForbidden, model.ErrCodeForbidden
		}
		writeErrorDetails(w, r, status, code, inel.Eligibility.Reason, details)
	case errors.Is(err, lifecycle.ErrInFlight):
		writeErrorDetails(w, r, http.StatusConflict, model.ErrCodeConflict, "generation already in flight", details)
	case errors.Is(err, lifecycle.ErrUnknownType):
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "unknown output type")
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		writeErrorDetails(w, r, http.StatusConflict, model.ErrCodeConflict, err.Error(), details)
	case errors.Is(err, studio.ErrBlocked):
		writeError(w, r, http.StatusConflict, model.ErrCodeNotReady, "System blocked. Configure the missing environment variables.")
	case errors.Is(err, studio.ErrNoBaseline):
		writeErrorDetails(w, r, http.StatusConflict, model.ErrCodeNotReady, "no baseline established", details)
	case errors.Is(err, studio.ErrNoPreview):
		writeError(w, r, http.StatusConflict, model.ErrCodeConflict, "no pending preview to confirm")
	case errors.Is(err, studio.ErrBaselineRefused):
		writeError(w, r, http.StatusUnprocessableEntity, model.ErrCodeInvalidInput, err.Error())
	case errors.Is(err, studio.ErrDevModeOnly):
		writeError(w, r, http.StatusForbidden, model.ErrCodeForbidden, "developer reset requires dev mode")
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "vault item not found")
	case errors.Is(err, context.Canceled):
		// Client went away; nobody reads this.
		writeErrorDetails(w, r, 499, model.ErrCodeInternalError, "request canceled", details)
	case genfail.Is(err, genfail.Validation):
		writeErrorDetails(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, genfail.Message(err), details)
	case genfail.Is(err, genfail.ContentQuality):
		writeErrorDetails(w, r, http.StatusUnprocessableEntity, model.ErrCodeInvalidInput, genfail.Message(err), details)
	case genfail.Is(err, genfail.Network), genfail.Is(err, genfail.Provider):
		writeErrorDetails(w, r, http.StatusBadGateway, model.ErrCodeUpstream, genfail.Message(err), details)
	default:
		h.logger.Error("studio operation failed",
			"error", err,
			"request_id", ctxutil.RequestIDFromContext(r.Context()),
		)
		writeErrorDetails(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "internal error", details)
	}
}
