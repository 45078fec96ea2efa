package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dtcinsights/dtc-insights/internal/domain/assistant"
	"github.com/dtcinsights/dtc-insights/internal/domain/auth"
	"github.com/dtcinsights/dtc-insights/internal/domain/history"
	"github.com/dtcinsights/dtc-insights/internal/domain/overview"
	apperrors "github.com/dtcinsights/dtc-insights/pkg/errors"
	"github.com/dtcinsights/dtc-insights/pkg/metrics"
	"github.com/dtcinsights/dtc-insights/pkg/util"
)

// HandlerConfig carries transport level settings.
type HandlerConfig struct {
	// Location renders export timestamps.
	Location *time.Location
	// PostLoginRedirectURL receives the token pair after Google sign-in.
	// Empty answers the callback with JSON instead.
	PostLoginRedirectURL string
	// MaxRangeDays caps the inclusive length of a requested date range.
	// Zero leaves it unbounded.
	MaxRangeDays int
}

// Handler wires the HTTP transport to domain services.
type Handler struct {
	cfg          HandlerConfig
	authSvc      auth.Service
	views        *history.Views
	overviewSvc  overview.Service
	assistantSvc assistant.Service
	archive      history.ExportArchive
	metrics      *metrics.History
	logger       *slog.Logger
	now          func() time.Time
}

// NewHandler constructs the root HTTP handler. archive may be nil.
func NewHandler(
	cfg HandlerConfig,
	authSvc auth.Service,
	views *history.Views,
	overviewSvc overview.Service,
	assistantSvc assistant.Service,
	archive history.ExportArchive,
	m *metrics.History,
	logger *slog.Logger,
) *Handler {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Handler{
		cfg:          cfg,
		authSvc:      authSvc,
		views:        views,
		overviewSvc:  overviewSvc,
		assistantSvc: assistantSvc,
		archive:      archive,
		metrics:      m,
		logger:       logger.With("component", "http.handler"),
		now:          util.NowUTC,
	}
}

// Health answers liveness probes.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Overview lists recent DTC events per vehicle with their map markers.
func (h *Handler) Overview(c *gin.Context) {
	var q overview.Query
	if err := c.ShouldBindQuery(&q); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	result, err := h.overviewSvc.List(c.Request.Context(), q)
	if err != nil {
		abortWithError(c, fromAppError(err, "overview_failed"))
		return
	}
	c.JSON(http.StatusOK, result)
}

// Chat forwards a question to the DTC assistant.
func (h *Handler) Chat(c *gin.Context) {
	var req assistant.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	resp, err := h.assistantSvc.Ask(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, fromAppError(err, apperrors.CodeAssistant))
		return
	}
	c.JSON(http.StatusOK, resp)
}
