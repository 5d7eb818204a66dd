package middleware

import (
	"github.com/gin-gonic/gin"
)

// Context keys set by Identity.
const (
	CtxUserID = "userID"
	CtxPaid   = "paid"
)

// Identity trusts the authenticated identity forwarded by the upstream
// gateway. Authentication itself happens before this service; requests
// without a user id are treated as anonymous for rate-limiting purposes.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID := c.GetHeader("X-User-ID"); userID != "" {
			c.Set(CtxUserID, userID)
			c.Set(CtxPaid, c.GetHeader("X-User-Tier") == "paid")
		}
		c.Next()
	}
}

// UserID returns the authenticated user id, if any.
func UserID(c *gin.Context) (string, bool) {
	userID := c.GetString(CtxUserID)
	return userID, userID != ""
}

// IsPaid reports the caller's tier.
func IsPaid(c *gin.Context) bool {
	return c.GetBool(CtxPaid)
}
