package emaillogs

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/eventease/backend/internal/models"
	"github.com/eventease/backend/pkg/response"
)

// Registrations lists the registrations of an event.
type Registrations interface {
	ListForEvent(ctx context.Context, eventID string) ([]models.Registration, error)
}

// Resender re-sends the confirmation email of a registration.
type Resender interface {
	OnRegistration(reg models.Registration)
}

// Handler handles email log HTTP endpoints.
type Handler struct {
	log      *Log
	regs     Registrations
	resender Resender
	logger   *zap.Logger
}

// NewHandler creates an email logs handler. resender may be nil when no queue is configured.
func NewHandler(log *Log, regs Registrations, resender Resender, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{log: log, regs: regs, resender: resender, logger: logger}
}

// ListByEvent handles GET /events/:id/emails.
func (h *Handler) ListByEvent(c *gin.Context) {
	eventID := c.Param("id")
	logs, err := h.log.ListForEvent(c.Request.Context(), eventID)
	if err != nil {
		h.logger.Error("list email logs failed", zap.Error(err), zap.String("event_id", eventID))
		response.Internal(c, "failed to load email logs")
		return
	}
	response.OK(c, gin.H{"emails": logs})
}

// ResendRequest is the body for POST /events/:id/emails/resend.
type ResendRequest struct {
	RegistrationID string `json:"registrationId" binding:"required"`
}

// Resend handles POST /events/:id/emails/resend by enqueuing the confirmation again.
func (h *Handler) Resend(c *gin.Context) {
	eventID := c.Param("id")
	var body ResendRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "registrationId required")
		return
	}
	if h.resender == nil {
		response.ServiceUnavailable(c, "email delivery is not configured")
		return
	}
	id := strings.TrimSpace(body.RegistrationID)
	regs, err := h.regs.ListForEvent(c.Request.Context(), eventID)
	if err != nil {
		h.logger.Error("list registrations failed", zap.Error(err), zap.String("event_id", eventID))
		response.Internal(c, "failed to load registration")
		return
	}
	for _, r := range regs {
		if r.ID != id {
			continue
		}
		if !r.IsLive() {
			response.Conflict(c, "registration is cancelled")
			return
		}
		if !r.EmailNotifications {
			response.Conflict(c, "registration opted out of emails")
			return
		}
		h.resender.OnRegistration(r)
		response.OK(c, gin.H{"message": "resend queued"})
		return
	}
	response.NotFound(c, "registration not found")
}
