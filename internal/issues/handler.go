package issues

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"

	"civicfix-backend/internal/shared/server/respond"
	"civicfix-backend/internal/shared/storage/object"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc   *Service
	Store object.ObjectStore
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, store object.ObjectStore) *Handler {
	return &Handler{Svc: svc, Store: store}
}

// RegisterRoutes attaches dashboard routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/issues", h.list)
	rg.GET("/issues/stats", h.stats)
	rg.GET("/issues/:id", h.get)
	rg.GET("/issues/:id/image", h.image)
	rg.PATCH("/issues/:id/status", h.updateStatus)
}

type issueResponse struct {
	Issue
	ReportedAgo string `json:"reportedAgo"`
	HasImage    bool   `json:"hasImage"`
}

type listResponse struct {
	Items []issueResponse `json:"items"`
	Count int             `json:"count"`
}

// toResponse decorates an issue with display fields.
func toResponse(issue Issue) issueResponse {
	return issueResponse{
		Issue:       issue,
		ReportedAgo: humanize.Time(issue.CreatedAt),
		HasImage:    issue.HasImage(),
	}
}

func (h *Handler) list(c *gin.Context) {
	filter := Filter{
		Status: c.Query("status"),
		Query:  c.Query("q"),
	}
	items, err := h.Svc.List(c.Request.Context(), filter)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if limit := parseLimit(c.Query("limit"), defaultListLimit, maxListLimit); len(items) > limit {
		items = items[:limit]
	}
	out := make([]issueResponse, 0, len(items))
	for _, issue := range items {
		out = append(out, toResponse(issue))
	}
	respond.OK(c, listResponse{Items: out, Count: len(out)})
}

func (h *Handler) stats(c *gin.Context) {
	stats, err := h.Svc.Stats(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.OK(c, stats)
}

func (h *Handler) get(c *gin.Context) {
	issue, err := h.Svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.Set("ticketId", issue.ID)
	respond.OK(c, toResponse(issue))
}

func (h *Handler) image(c *gin.Context) {
	issue, err := h.Svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.Set("ticketId", issue.ID)
	if !issue.HasImage() || h.Store == nil {
		respond.Error(c, http.StatusNotFound, "not_found", "Issue has no image", nil)
		return
	}
	rc, err := h.Store.Open(c.Request.Context(), issue.ImageKey)
	if err != nil {
		respond.Error(c, http.StatusNotFound, "not_found", "Image not available", nil)
		return
	}
	defer rc.Close()

	mimeType := issue.ImageMimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	c.Header("Cache-Control", "private, max-age=300")
	c.Status(http.StatusOK)
	c.Header("Content-Type", mimeType)
	if _, err := io.Copy(c.Writer, rc); err != nil {
		_ = c.Error(err)
	}
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) updateStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	issue, err := h.Svc.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.Set("ticketId", issue.ID)
	c.Set("statusTransition", "status->"+string(issue.Status))
	respond.OK(c, toResponse(issue))
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "Issue not found", gin.H{"id": c.Param("id")})
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "Unable to load issues", nil)
	}
}

// parseLimit reads ?limit= with a default and a ceiling.
func parseLimit(raw string, def, max int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
