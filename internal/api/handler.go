package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/fundpulse/rollupd/internal/domain/dto"
	"github.com/fundpulse/rollupd/internal/domain/models"
	"github.com/fundpulse/rollupd/internal/storage"
)

// RollupRunner is the engine surface the HTTP layer depends on.
type RollupRunner interface {
	Run(ctx context.Context, trigger any) models.RunResult
}

// Handler provides HTTP handlers for the rollup engine.
//
// Responsibilities:
//   - Decode the trigger payload from the request body
//   - Invoke the engine and translate its result to HTTP status codes
//   - Expose the persisted run log when enabled
type Handler struct {
	engine RollupRunner
	runLog storage.RunLogRepository // nil when the run log is disabled
}

// NewHandler constructs a Handler. runLog may be nil.
func NewHandler(engine RollupRunner, runLog storage.RunLogRepository) *Handler {
	return &Handler{engine: engine, runLog: runLog}
}

// RunRollups handles POST /api/v1/rollups/run requests.
//
// The body is an arbitrary JSON trigger payload (or empty); the engine
// inspects it only for rebuild-mode signals and relation-field ids.
//
// RunRollups godoc
// @Summary      Execute a rollup run
// @Description  Recomputes rollup fields for the parents reachable from the trigger payload, or everything on a full rebuild
// @Tags         rollups
// @Accept       json
// @Produce      json
// @Param        trigger  body      object  false  "Trigger payload"
// @Success      200      {object}  models.RunResult   "Run completed (status ok or noop)"
// @Failure      400      {object}  dto.ErrorResponse  "Malformed trigger payload"
// @Failure      500      {object}  models.RunResult   "Run failed (status error)"
// @Router       /api/v1/rollups/run [post]
func (h *Handler) RunRollups(c *gin.Context) {
	var trigger any
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("failed to read request body", err))
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &trigger); err != nil {
			c.JSON(http.StatusBadRequest, dto.NewErrorResponse("invalid trigger payload", err))
			return
		}
	}

	result := h.engine.Run(c.Request.Context(), trigger)
	if result.Status == models.StatusError {
		c.JSON(http.StatusInternalServerError, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListRuns handles GET /api/v1/rollups/runs requests.
//
// ListRuns godoc
// @Summary      List recent rollup runs
// @Description  Returns persisted execution summaries, newest first (requires RUN_LOG_ENABLED)
// @Tags         rollups
// @Produce      json
// @Param        limit  query     int  false  "Maximum entries to return"  default(20)
// @Success      200    {array}   dto.RunLogEntryResponse
// @Failure      400    {object}  dto.ErrorResponse  "Invalid limit"
// @Failure      404    {object}  dto.ErrorResponse  "Run log disabled"
// @Failure      500    {object}  dto.ErrorResponse  "Storage failure"
// @Router       /api/v1/rollups/runs [get]
func (h *Handler) ListRuns(c *gin.Context) {
	if h.runLog == nil {
		c.JSON(http.StatusNotFound, dto.NewErrorResponse("run log is not enabled", nil))
		return
	}

	limit := 20
	if s := c.Query("limit"); s != "" {
		parsed, err := strconv.Atoi(s)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, dto.NewErrorResponse("invalid limit, expected a positive integer", err))
			return
		}
		limit = parsed
	}

	entries, err := h.runLog.LatestRuns(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("failed to list runs", err))
		return
	}

	out := make([]dto.RunLogEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, dto.RunLogEntryResponse{
			ID:        e.ID,
			Status:    e.Status,
			Reason:    e.Reason,
			Processed: e.Processed,
			Updated:   e.Updated,
			TookMs:    e.TookMs,
			Details:   e.Details,
		})
	}
	c.JSON(http.StatusOK, out)
}
