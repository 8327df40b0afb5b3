package tracking

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"civicfix-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches tracking routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/track/:ticketId", h.track)
}

func (h *Handler) track(c *gin.Context) {
	ticketID := c.Param("ticketId")
	c.Set("ticketId", ticketID)

	report, err := h.Svc.Track(c.Request.Context(), ticketID)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", "Ticket ID is required", nil)
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "No report found for this ticket", gin.H{"ticketId": ticketID})
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "Unable to load ticket", nil)
		}
		return
	}
	respond.OK(c, report)
}
