// Package handler exposes the operational HTTP surface: run history, load
// receipts, and a manual trigger for out-of-schedule runs.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/avolkhov/meteoflow/internal/meteoflow/store"
	"github.com/avolkhov/meteoflow/internal/pkg/errno"
	"github.com/avolkhov/meteoflow/internal/pkg/log"
)

// Handler serves the pipeline's HTTP API.
type Handler struct {
	store   store.IStore
	trigger func() bool
	logger  log.Logger
}

// New creates a Handler. trigger requests an immediate pipeline run and
// reports whether the request was accepted; nil disables manual triggering.
func New(istore store.IStore, trigger func() bool, logger log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{store: istore, trigger: trigger, logger: logger}
}

// InstallRoutes registers all routes on the engine.
func (h *Handler) InstallRoutes(engine *gin.Engine) {
	engine.GET("/healthz", h.Healthz)

	v1 := engine.Group("/v1")
	{
		v1.GET("/runs", h.ListRuns)
		v1.GET("/runs/:runID", h.GetRun)
		v1.GET("/runs/:runID/receipts", h.ListReceipts)
		v1.POST("/runs", h.TriggerRun)
	}
}

// Healthz reports liveness.
func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ListRuns returns recent runs, newest first.
func (h *Handler) ListRuns(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 200 {
			c.JSON(http.StatusBadRequest, errno.ErrInvalidArgument.WithMessage("limit must be in [1, 200]"))
			return
		}
		limit = parsed
	}

	runs, err := h.store.Run().List(c, limit)
	if err != nil {
		h.logger.Errorw("Failed to list runs", "error", err)
		c.JSON(http.StatusInternalServerError, errno.ErrStoreWrite.WithMessage("list runs: %v", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs, "count": len(runs)})
}

// GetRun returns one run by its run id.
func (h *Handler) GetRun(c *gin.Context) {
	runID := c.Param("runID")
	run, err := h.store.Run().Get(c, runID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, errno.ErrInvalidArgument.WithMessage("run %s not found", runID))
			return
		}
		h.logger.Errorw("Failed to get run", "runID", runID, "error", err)
		c.JSON(http.StatusInternalServerError, errno.ErrStoreWrite.WithMessage("get run: %v", err))
		return
	}
	c.JSON(http.StatusOK, run)
}

// ListReceipts returns the load receipts committed by one run.
func (h *Handler) ListReceipts(c *gin.Context) {
	runID := c.Param("runID")
	receipts, err := h.store.Receipt().List(c, runID)
	if err != nil {
		h.logger.Errorw("Failed to list receipts", "runID", runID, "error", err)
		c.JSON(http.StatusInternalServerError, errno.ErrStoreWrite.WithMessage("list receipts: %v", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"receipts": receipts, "count": len(receipts)})
}

// TriggerRun requests an immediate pipeline run. The run executes
// asynchronously; poll /v1/runs for its outcome.
func (h *Handler) TriggerRun(c *gin.Context) {
	if h.trigger == nil {
		c.JSON(http.StatusServiceUnavailable, errno.ErrInvalidArgument.WithMessage("manual triggering is disabled"))
		return
	}
	if !h.trigger() {
		c.JSON(http.StatusConflict, errno.ErrInvalidArgument.WithMessage("a run is already pending"))
		return
	}
	h.logger.Infow("Manual run triggered")
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}
