package analytics

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/eventease/backend/internal/models"
	"github.com/eventease/backend/pkg/queue"
	"github.com/eventease/backend/pkg/response"
)

// Events resolves event ids to catalog entries.
type Events interface {
	Get(id string) (models.Event, bool)
}

// ReportQueue accepts report export jobs.
type ReportQueue interface {
	EnqueueReport(ctx context.Context, payload queue.ReportPayload) (string, error)
}

// Handler handles GET /events/:id/analytics and POST /events/:id/reports.
type Handler struct {
	engine  *Engine
	events  Events
	reports ReportQueue
	logger  *zap.Logger
}

// NewHandler creates an analytics handler. reports may be nil when no queue is configured.
func NewHandler(engine *Engine, events Events, reports ReportQueue, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{engine: engine, events: events, reports: reports, logger: logger}
}

// GetByEvent handles GET /events/:id/analytics.
func (h *Handler) GetByEvent(c *gin.Context) {
	id := c.Param("id")
	if _, ok := h.events.Get(id); !ok {
		response.NotFound(c, "event not found")
		return
	}
	s, err := h.engine.Summary(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("compute analytics failed", zap.Error(err), zap.String("event_id", id))
		response.Internal(c, "failed to compute analytics")
		return
	}
	response.OK(c, s)
}

// RequestReport handles POST /events/:id/reports by enqueuing an export job.
func (h *Handler) RequestReport(c *gin.Context) {
	id := c.Param("id")
	if _, ok := h.events.Get(id); !ok {
		response.NotFound(c, "event not found")
		return
	}
	if h.reports == nil {
		response.ServiceUnavailable(c, "report export is not configured")
		return
	}
	jobID, err := h.reports.EnqueueReport(c.Request.Context(), queue.ReportPayload{
		EventID:     id,
		RequestedAt: time.Now().UTC(),
	})
	if err != nil {
		h.logger.Error("enqueue report failed", zap.Error(err), zap.String("event_id", id))
		response.Internal(c, "failed to enqueue report")
		return
	}
	response.Accepted(c, gin.H{"jobId": jobID, "eventId": id})
}
