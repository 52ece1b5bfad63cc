package registrations

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/eventease/backend/internal/models"
	"github.com/eventease/backend/pkg/response"
)

// Events resolves event ids to catalog entries.
type Events interface {
	Get(id string) (models.Event, bool)
}

// RegisterRequest is the body for POST /events/:id/registrations.
type RegisterRequest struct {
	UserName           string  `json:"userName" binding:"required"`
	UserEmail          string  `json:"userEmail" binding:"required,email"`
	UserPhone          string  `json:"userPhone"`
	SpecialRequests    *string `json:"specialRequests,omitempty"`
	// EmailNotifications defaults to true when omitted.
	EmailNotifications *bool   `json:"emailNotifications"`
}

func (r RegisterRequest) notifications() bool {
	return r.EmailNotifications == nil || *r.EmailNotifications
}

// Handler handles registration HTTP endpoints.
type Handler struct {
	ledger *Ledger
	events Events
	logger *zap.Logger
}

// NewHandler creates a registrations handler.
func NewHandler(ledger *Ledger, events Events, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{ledger: ledger, events: events, logger: logger}
}

// Register handles POST /events/:id/registrations.
func (h *Handler) Register(c *gin.Context) {
	eventID, ok := h.event(c)
	if !ok {
		return
	}
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	reg, err := h.ledger.Register(c.Request.Context(), RegisterInput{
		EventID:            eventID,
		UserName:           req.UserName,
		UserEmail:          req.UserEmail,
		UserPhone:          req.UserPhone,
		SpecialRequests:    req.SpecialRequests,
		EmailNotifications: req.notifications(),
	})
	switch {
	case errors.Is(err, ErrAlreadyRegistered):
		response.Conflict(c, err.Error())
		return
	case errors.Is(err, ErrInvalidInput):
		response.BadRequest(c, err.Error())
		return
	case err != nil:
		h.logger.Error("register failed", zap.Error(err), zap.String("event_id", eventID))
		response.Internal(c, "failed to register")
		return
	}
	response.Created(c, reg)
}

// ListForEvent handles GET /events/:id/registrations.
func (h *Handler) ListForEvent(c *gin.Context) {
	eventID, ok := h.event(c)
	if !ok {
		return
	}
	list, err := h.ledger.ListForEvent(c.Request.Context(), eventID)
	if err != nil {
		h.logger.Error("list registrations failed", zap.Error(err), zap.String("event_id", eventID))
		response.Internal(c, "failed to list registrations")
		return
	}
	response.OK(c, gin.H{"registrations": list})
}

// Status handles GET /events/:id/registration.
func (h *Handler) Status(c *gin.Context) {
	eventID, ok := h.event(c)
	if !ok {
		return
	}
	registered, err := h.ledger.IsRegistered(c.Request.Context(), eventID)
	if err != nil {
		h.logger.Error("registration status failed", zap.Error(err), zap.String("event_id", eventID))
		response.Internal(c, "failed to load registration")
		return
	}
	response.OK(c, gin.H{"eventId": eventID, "isRegistered": registered})
}

// Cancel handles DELETE /events/:id/registration.
func (h *Handler) Cancel(c *gin.Context) {
	eventID, ok := h.event(c)
	if !ok {
		return
	}
	cancelled, err := h.ledger.Cancel(c.Request.Context(), eventID)
	if err != nil {
		h.logger.Error("cancel registration failed", zap.Error(err), zap.String("event_id", eventID))
		response.Internal(c, "failed to cancel registration")
		return
	}
	if !cancelled {
		response.NotFound(c, "registration not found")
		return
	}
	response.OK(c, gin.H{"eventId": eventID, "cancelled": true})
}

// ListMine handles GET /me/registrations.
func (h *Handler) ListMine(c *gin.Context) {
	list, err := h.ledger.ListForCurrentUser(c.Request.Context())
	if err != nil {
		h.logger.Error("list own registrations failed", zap.Error(err))
		response.Internal(c, "failed to list registrations")
		return
	}
	response.OK(c, gin.H{"registrations": list})
}

func (h *Handler) event(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, ok := h.events.Get(id); !ok {
		response.NotFound(c, "event not found")
		return "", false
	}
	return id, true
}
