package sessions

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"civicfix-backend/internal/imaging"
	"civicfix-backend/internal/shared/server/middleware"
	"civicfix-backend/internal/shared/server/respond"
	"civicfix-backend/internal/shared/telemetry"
	"civicfix-backend/internal/wizard"
)

// multipartOverhead covers form boundaries and headers around the image part.
const multipartOverhead = 1 << 20

// Handler wires report session routes to the service.
type Handler struct {
	Svc *Service
	Hub *Hub
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, hub *Hub) *Handler {
	return &Handler{Svc: svc, Hub: hub}
}

// RegisterRoutes attaches session routes to rg, which must carry an identity.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/sessions", h.create)
	rg.GET("/sessions/:id", h.get)
	rg.PUT("/sessions/:id/image", h.setImage)
	rg.PATCH("/sessions/:id/draft", h.updateDraft)
	rg.POST("/sessions/:id/analyze", h.analyze)
	rg.POST("/sessions/:id/submit", h.submit)
	rg.POST("/sessions/:id/reset", h.reset)
	rg.DELETE("/sessions/:id", h.end)
	rg.GET("/sessions/:id/events", h.events)
}

type submitResponse struct {
	View
	Message string `json:"message"`
}

func (h *Handler) create(c *gin.Context) {
	sess, err := h.Svc.Create(c.Request.Context(), middleware.OwnerIDFromContext(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.Set("sessionId", sess.ID)
	respond.Created(c, ToView(sess.Wizard.Snapshot()))
}

func (h *Handler) get(c *gin.Context) {
	id := h.sessionID(c)
	view, err := h.Svc.View(middleware.OwnerIDFromContext(c), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.OK(c, view)
}

func (h *Handler) setImage(c *gin.Context) {
	id := h.sessionID(c)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.Svc.MaxImageBytes()+multipartOverhead)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(c, ErrImageTooLarge)
			return
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()

	view, err := h.Svc.SetImage(middleware.OwnerIDFromContext(c), id, fileHeader.Filename, file)
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.OK(c, view)
}

func (h *Handler) updateDraft(c *gin.Context) {
	id := h.sessionID(c)
	var patch DraftPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid JSON body", nil)
		return
	}
	view, err := h.Svc.UpdateDraft(middleware.OwnerIDFromContext(c), id, patch)
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.OK(c, view)
}

func (h *Handler) analyze(c *gin.Context) {
	id := h.sessionID(c)
	view, err := h.Svc.Analyze(c.Request.Context(), middleware.OwnerIDFromContext(c), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.Set("statusTransition", string(wizard.StageUpload)+"->"+string(wizard.StageAnalyzing))
	respond.Accepted(c, view)
}

func (h *Handler) submit(c *gin.Context) {
	id := h.sessionID(c)
	view, err := h.Svc.Submit(c.Request.Context(), middleware.OwnerIDFromContext(c), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.Set("statusTransition", string(wizard.StageReview)+"->"+string(wizard.StageSubmitted))
	c.Set("ticketId", view.TicketID)
	respond.OK(c, submitResponse{
		View:    view,
		Message: "Your issue has been logged and routed to the correct department.",
	})
}

func (h *Handler) reset(c *gin.Context) {
	id := h.sessionID(c)
	ownerID := middleware.OwnerIDFromContext(c)
	before, err := h.Svc.View(ownerID, id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	view, err := h.Svc.Reset(ownerID, id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.Set("statusTransition", string(before.Stage)+"->"+string(view.Stage))
	respond.OK(c, view)
}

func (h *Handler) end(c *gin.Context) {
	id := h.sessionID(c)
	if err := h.Svc.End(middleware.OwnerIDFromContext(c), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) events(c *gin.Context) {
	id := h.sessionID(c)
	owner := middleware.OwnerIDFromContext(c)
	if _, err := h.Svc.Get(owner, id); err != nil {
		h.writeError(c, err)
		return
	}
	if h.Hub == nil {
		respond.Error(c, http.StatusNotFound, "not_found", "Event stream unavailable", nil)
		return
	}
	snapshot := func() (View, error) { return h.Svc.View(owner, id) }
	if err := h.Hub.Serve(c.Writer, c.Request, id, snapshot); err != nil {
		// The response is either a handshake failure or an open socket, so only log.
		telemetry.Warn("sessions.ws_serve_failed", map[string]any{
			"session_id": id,
			"error":      err.Error(),
		})
	}
}

func (h *Handler) sessionID(c *gin.Context) string {
	id := c.Param("id")
	c.Set("sessionId", id)
	return id
}

func (h *Handler) writeError(c *gin.Context, err error) {
	var verr *wizard.ValidationError
	switch {
	case errors.As(err, &verr):
		respond.Error(c, http.StatusUnprocessableEntity, "validation_error",
			"Please upload an image and provide a description.", gin.H{"missing": verr.Fields()})
	case errors.Is(err, ErrNotFound), errors.Is(err, wizard.ErrClosed):
		respond.Error(c, http.StatusNotFound, "not_found", "Session not found", nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, wizard.ErrInvalidTransition):
		respond.Error(c, http.StatusConflict, "invalid_transition", err.Error(), nil)
	case errors.Is(err, imaging.ErrUnsupportedImage):
		respond.Error(c, http.StatusUnsupportedMediaType, "image_invalid", "File is not a supported image", nil)
	case errors.Is(err, ErrImageTooLarge):
		respond.Error(c, http.StatusRequestEntityTooLarge, "image_too_large", "Image exceeds the upload limit",
			gin.H{"maxBytes": h.Svc.MaxImageBytes()})
	case errors.Is(err, ErrTooManySessions):
		respond.Error(c, http.StatusTooManyRequests, "rate_limited", "Too many open report sessions", nil)
	case errors.Is(err, ErrServiceShutdown):
		respond.Error(c, http.StatusServiceUnavailable, "unavailable", "Service is shutting down", nil)
	case errors.Is(err, wizard.ErrSubmitFailed):
		respond.Error(c, http.StatusInternalServerError, "internal_error", "Report could not be submitted", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "Internal server error", nil)
	}
}
