package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/superwave/maildesk/internal/utils"
)

// UserIDHeader identifies the acting user on every /v1 request. Templates,
// attachments and send records are all scoped to this value.
const UserIDHeader = "X-USER-ID"

func UserIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader(UserIDHeader)
		if userID == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Missing " + UserIDHeader + " header",
			})
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(utils.WithUserID(c.Request.Context(), userID))
		c.Set("UserId", userID)
		c.Next()
	}
}
