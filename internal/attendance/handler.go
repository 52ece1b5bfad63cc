package attendance

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

// NotesRequest is the optional body of check-in and check-out.
type NotesRequest struct {
	Notes *string `json:"notes"`
}

// Handler handles attendance HTTP endpoints.
type Handler struct {
	ledger *Ledger
	events Events
	logger *zap.Logger
}

// NewHandler creates an attendance handler.
func NewHandler(ledger *Ledger, events Events, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{ledger: ledger, events: events, logger: logger}
}

// CheckIn handles POST /events/:id/checkin.
func (h *Handler) CheckIn(c *gin.Context) {
	eventID, ok := h.event(c)
	if !ok {
		return
	}
	req, ok := bindNotes(c)
	if !ok {
		return
	}
	rec, err := h.ledger.CheckIn(c.Request.Context(), eventID, req.Notes)
	switch {
	case errors.Is(err, ErrNotAuthenticated):
		response.Unauthorized(c, err.Error())
		return
	case errors.Is(err, ErrNotRegistered):
		response.Forbidden(c, err.Error())
		return
	case errors.Is(err, ErrAlreadyCheckedIn):
		response.Conflict(c, err.Error())
		return
	case err != nil:
		h.logger.Error("check in failed", zap.Error(err), zap.String("event_id", eventID))
		response.Internal(c, "failed to check in")
		return
	}
	response.Created(c, rec)
}

// CheckOut handles POST /events/:id/checkout.
func (h *Handler) CheckOut(c *gin.Context) {
	eventID, ok := h.event(c)
	if !ok {
		return
	}
	req, ok := bindNotes(c)
	if !ok {
		return
	}
	closed, err := h.ledger.CheckOut(c.Request.Context(), eventID, req.Notes)
	if err != nil {
		h.logger.Error("check out failed", zap.Error(err), zap.String("event_id", eventID))
		response.Internal(c, "failed to check out")
		return
	}
	if !closed {
		response.NotFound(c, "no open check-in")
		return
	}
	response.OK(c, gin.H{"eventId": eventID, "checkedOut": true})
}

// ListForEvent handles GET /events/:id/attendance.
func (h *Handler) ListForEvent(c *gin.Context) {
	eventID, ok := h.event(c)
	if !ok {
		return
	}
	list, err := h.ledger.ListForEvent(c.Request.Context(), eventID)
	if err != nil {
		h.logger.Error("list attendance failed", zap.Error(err), zap.String("event_id", eventID))
		response.Internal(c, "failed to list attendance")
		return
	}
	response.OK(c, gin.H{"attendance": list})
}

// Mine handles GET /events/:id/attendance/me.
func (h *Handler) Mine(c *gin.Context) {
	eventID, ok := h.event(c)
	if !ok {
		return
	}
	rec, err := h.ledger.FindForCurrentUser(c.Request.Context(), eventID)
	if err != nil {
		h.logger.Error("find attendance failed", zap.Error(err), zap.String("event_id", eventID))
		response.Internal(c, "failed to load attendance")
		return
	}
	if rec == nil {
		response.NotFound(c, "no attendance record")
		return
	}
	response.OK(c, rec)
}

func (h *Handler) event(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, ok := h.events.Get(id); !ok {
		response.NotFound(c, "event not found")
		return "", false
	}
	return id, true
}

func bindNotes(c *gin.Context) (NotesRequest, bool) {
	var req NotesRequest
	if c.Request.ContentLength == 0 {
		return req, true
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return req, false
	}
	return req, true
}
