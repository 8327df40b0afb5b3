package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"civicfix-backend/internal/shared/server/middleware"
	"civicfix-backend/internal/shared/server/respond"
)

// registerMeRoutes attaches the /me endpoint.
func registerMeRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", meHandler)
}

// meHandler echoes the guest identity the server derived from X-Guest-Id.
func meHandler(c *gin.Context) {
	ownerID := middleware.OwnerIDFromContext(c)
	if ownerID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing identity", nil)
		return
	}
	respond.OK(c, gin.H{
		"ownerId": ownerID,
		"guestId": strings.TrimPrefix(ownerID, "guest:"),
		"guest":   c.GetBool("isGuest"),
	})
}
