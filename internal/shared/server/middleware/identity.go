package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"civicfix-backend/internal/shared/server/respond"
)

const (
	ownerIDKey = "ownerId"
	guestKey   = "isGuest"

	maxGuestIDLen = 128
)

// Identity reads the caller's opaque X-Guest-Id and stores it as the owner ID.
// When required is true, requests without an identity are rejected.
func Identity(required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		guestID := strings.TrimSpace(c.GetHeader("X-Guest-Id"))
		if guestID == "" && isWebsocketUpgrade(c.Request) {
			// Browsers cannot set headers on websocket handshakes.
			guestID = strings.TrimSpace(c.Query("guestId"))
		}
		if len(guestID) > maxGuestIDLen {
			respond.Error(c, http.StatusBadRequest, "validation_error", "X-Guest-Id is too long", nil)
			return
		}
		if guestID == "" {
			if required {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing identity", nil)
				return
			}
			c.Next()
			return
		}

		c.Set(ownerIDKey, "guest:"+guestID)
		c.Set(guestKey, true)
		c.Next()
	}
}

// OwnerIDFromContext fetches the owner ID set by the Identity middleware.
func OwnerIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(ownerIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}

func isWebsocketUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}
