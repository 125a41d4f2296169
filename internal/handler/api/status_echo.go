package api

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/labstack/echo/v4"

	"NTIWatch/internal/domain/models"
	domrepo "NTIWatch/internal/domain/repository"
	"NTIWatch/internal/service/ratelimit"
	"NTIWatch/internal/services/persistence"
	xhttp "NTIWatch/pkg/http"
	xlogger "NTIWatch/pkg/logger"
)

// ArtifactProvider exposes the artifact of the last completed run.
type ArtifactProvider interface {
	Latest() *models.TriggerArtifact
}

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

// StateRequest selects a persistence key; empty means the configured one.
type StateRequest struct {
	Key string `query:"key" validate:"omitempty,max=128,printascii"`
}

// StateResponse is the persisted counter plus derived fields.
type StateResponse struct {
	Key            string     `json:"key"`
	Counter        int        `json:"counter"`
	LastQualifying *time.Time `json:"last_qualifying,omitempty"`
	Version        int64      `json:"version"`
	UpdatedAt      time.Time  `json:"updated_at"`
	Expired        bool       `json:"expired"`
	LastRunID      string     `json:"last_run_id,omitempty"`
}

// StatusEchoHandler serves read-only status of the trigger engine.
type StatusEchoHandler struct {
	logger     *xlogger.Logger
	state      domrepo.StateStore
	runIDs     domrepo.RunIDStore
	artifacts  ArtifactProvider
	defaultKey string
	decay      time.Duration
	checks     map[string]HealthCheck
	limiter    *ratelimit.Limiter
	now        func() time.Time
}

func NewStatusEchoHandler(logger *xlogger.Logger, state domrepo.StateStore, runIDs domrepo.RunIDStore, artifacts ArtifactProvider, defaultKey string, decay time.Duration) *StatusEchoHandler {
	if logger == nil {
		logger = xlogger.NewNop()
	}
	return &StatusEchoHandler{
		logger:     logger,
		state:      state,
		runIDs:     runIDs,
		artifacts:  artifacts,
		defaultKey: defaultKey,
		decay:      decay,
		checks:     make(map[string]HealthCheck),
		now:        time.Now,
	}
}

// AddHealthCheck registers a dependency probe reported by /healthz.
func (h *StatusEchoHandler) AddHealthCheck(name string, check HealthCheck) {
	h.checks[name] = check
}

// SetRateLimiter throttles /api/v1 per client IP.
func (h *StatusEchoHandler) SetRateLimiter(l *ratelimit.Limiter) { h.limiter = l }

func (h *StatusEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
	g := e.Group("/api/v1")
	if h.limiter != nil {
		g.Use(h.rateLimit)
	}
	g.GET("/state", h.State)
	g.GET("/artifact/latest", h.LatestArtifact)
}

func (h *StatusEchoHandler) rateLimit(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !h.limiter.Allow(c.RealIP()) {
			h.logger.Warn("status api rate limited", xlogger.String("remote", c.RealIP()))
			return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("rate limited"))
		}
		return next(c)
	}
}

// Health runs every registered check and answers 503 if any fails.
func (h *StatusEchoHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	report := make(map[string]string, len(names))
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			report[name] = err.Error()
			status = http.StatusServiceUnavailable
			h.logger.Warn("health check failed", xlogger.String("check", name), xlogger.Error(err))
			continue
		}
		report[name] = "ok"
	}
	return xhttp.DataResponse(c, status, report)
}

func (h *StatusEchoHandler) State(c echo.Context) error {
	req := &StateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	key := req.Key
	if key == "" {
		key = h.defaultKey
	}

	ctx := c.Request().Context()
	st, err := h.state.Read(ctx, key)
	if err != nil {
		h.logger.Error("state read error", xlogger.String("key", key), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, storeError(err))
	}

	res := StateResponse{
		Key:            key,
		Counter:        st.Counter,
		LastQualifying: st.LastQualifying,
		Version:        st.Version,
		UpdatedAt:      st.UpdatedAt,
		Expired:        persistence.Expired(st, h.now().UTC(), h.decay),
	}
	if h.runIDs != nil {
		id, err := h.runIDs.LastRunID(ctx, key)
		if err != nil {
			h.logger.Warn("last run id read error", xlogger.String("key", key), xlogger.Error(err))
		}
		res.LastRunID = id
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return xhttp.SuccessResponse(c, res)
}

func (h *StatusEchoHandler) LatestArtifact(c echo.Context) error {
	if h.artifacts == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("no evaluation has completed yet"))
	}
	a := h.artifacts.Latest()
	if a == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("no evaluation has completed yet"))
	}
	return xhttp.SuccessResponse(c, a)
}

func storeError(err error) error {
	if errors.Is(err, domrepo.ErrStateUnavailable) {
		return xhttp.ServiceUnavailableError("persistence store unavailable").WithError(err)
	}
	return xhttp.InternalError("state read failed").WithError(err)
}
