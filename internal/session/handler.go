package session

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/eventease/backend/internal/models"
	"github.com/eventease/backend/pkg/response"
)

// LoginRequest is the body for POST /session/login.
type LoginRequest struct {
	Name        string `json:"name" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	PhoneNumber string `json:"phoneNumber"`
}

// PreferencesRequest is the body for PUT /session/preferences.
type PreferencesRequest struct {
	Theme              string `json:"theme" binding:"omitempty,oneof=light dark"`
	EmailNotifications *bool  `json:"emailNotifications"`
	Language           string `json:"language" binding:"omitempty,min=2,max=8"`
}

// Handler handles the session HTTP endpoints.
type Handler struct {
	provider *Provider
	logger   *zap.Logger
}

// NewHandler creates a session handler.
func NewHandler(provider *Provider, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{provider: provider, logger: logger}
}

// Login handles POST /session/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	s, err := h.provider.Login(c.Request.Context(), req.Name, req.Email, req.PhoneNumber)
	switch {
	case errors.Is(err, ErrNameRequired), errors.Is(err, ErrEmailRequired):
		response.BadRequest(c, err.Error())
		return
	case err != nil:
		h.logger.Error("login failed", zap.Error(err))
		response.Internal(c, "failed to start session")
		return
	}
	response.Created(c, s)
}

// Logout handles DELETE /session.
func (h *Handler) Logout(c *gin.Context) {
	if err := h.provider.Logout(c.Request.Context()); err != nil {
		h.logger.Error("logout failed", zap.Error(err))
		response.Internal(c, "failed to end session")
		return
	}
	response.NoContent(c)
}

// Current handles GET /session.
func (h *Handler) Current(c *gin.Context) {
	s, err := h.provider.Current(c.Request.Context())
	if err != nil {
		h.logger.Error("load session failed", zap.Error(err))
		response.Internal(c, "failed to load session")
		return
	}
	if s == nil {
		response.Unauthorized(c, "no active session")
		return
	}
	response.OK(c, s)
}

// GetPreferences handles GET /session/preferences.
func (h *Handler) GetPreferences(c *gin.Context) {
	prefs, err := h.provider.Preferences(c.Request.Context())
	if err != nil {
		h.logger.Error("load preferences failed", zap.Error(err))
		response.Internal(c, "failed to load preferences")
		return
	}
	response.OK(c, prefs)
}

// UpdatePreferences handles PUT /session/preferences. Omitted fields keep their stored value.
func (h *Handler) UpdatePreferences(c *gin.Context) {
	var req PreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	ctx := c.Request.Context()
	prefs, err := h.provider.Preferences(ctx)
	if err != nil {
		h.logger.Error("load preferences failed", zap.Error(err))
		response.Internal(c, "failed to load preferences")
		return
	}
	prefs = merge(prefs, req)
	if err := h.provider.SavePreferences(ctx, prefs); err != nil {
		h.logger.Error("save preferences failed", zap.Error(err))
		response.Internal(c, "failed to save preferences")
		return
	}
	response.OK(c, prefs)
}

func merge(p models.Preferences, req PreferencesRequest) models.Preferences {
	if req.Theme != "" {
		p.Theme = req.Theme
	}
	if req.EmailNotifications != nil {
		p.EmailNotifications = *req.EmailNotifications
	}
	if req.Language != "" {
		p.Language = req.Language
	}
	return p
}
