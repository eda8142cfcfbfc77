package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"telegram-shop-backend/internal/features/auth/models"
	"telegram-shop-backend/internal/features/auth/service"
)

const userCtxKey = "user"

// TelegramInitData validates the init-data payload carried in the
// X-Telegram-Init-Data header (or init_data query parameter) and stores the
// verified user in the request context. Requests without a payload pass
// through unauthenticated; protected routes add RequireAuth.
func TelegramInitData(verifier *service.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("X-Telegram-Init-Data")
		if raw == "" {
			raw = c.Query("init_data")
		}
		if raw == "" {
			c.Next()
			return
		}

		data, err := verifier.Verify(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid session"})
			return
		}
		if data.User != nil {
			c.Set(userCtxKey, *data.User)
		}
		c.Next()
	}
}

func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, exists := c.Get(userCtxKey); !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Telegram init data required"})
			return
		}
		c.Next()
	}
}

func RequireAdmin(adminIDs []int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, exists := c.Get(userCtxKey)
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Telegram init data required"})
			return
		}

		webAppUser, ok := user.(models.WebAppUser)
		if !ok {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid user data format"})
			return
		}

		for _, adminID := range adminIDs {
			if webAppUser.ID == adminID {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
	}
}

// UserFromContext returns the verified WebApp user stored by TelegramInitData.
func UserFromContext(c *gin.Context) (models.WebAppUser, bool) {
	user, exists := c.Get(userCtxKey)
	if !exists {
		return models.WebAppUser{}, false
	}
	webAppUser, ok := user.(models.WebAppUser)
	return webAppUser, ok
}
