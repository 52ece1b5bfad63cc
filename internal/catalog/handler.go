package catalog

import (
	"github.com/gin-gonic/gin"

	"github.com/eventease/backend/pkg/response"
)

// Handler serves the event catalog.
type Handler struct {
	catalog *Catalog
}

// NewHandler creates a catalog handler.
func NewHandler(c *Catalog) *Handler {
	return &Handler{catalog: c}
}

// List handles GET /events.
func (h *Handler) List(c *gin.Context) {
	response.OK(c, gin.H{"events": h.catalog.All()})
}

// Get handles GET /events/:id.
func (h *Handler) Get(c *gin.Context) {
	e, ok := h.catalog.Get(c.Param("id"))
	if !ok {
		response.NotFound(c, "event not found")
		return
	}
	response.OK(c, e)
}
