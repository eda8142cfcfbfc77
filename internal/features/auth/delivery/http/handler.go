package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"telegram-shop-backend/internal/common/middleware"
	"telegram-shop-backend/internal/features/auth/service"
)

type Handler struct {
	auth service.AuthService
}

func NewHandler(auth service.AuthService) *Handler {
	return &Handler{auth: auth}
}

func (h *Handler) Register(r *gin.RouterGroup) {
	r.POST("/auth/verify", h.verify)
}

type verifyRequest struct {
	InitData string `json:"init_data" binding:"required"`
}

// verify validates a signed WebApp payload and returns the verified user.
func (h *Handler) verify(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "init_data is required"})
		return
	}

	user, err := h.auth.VerifySession(c.Request.Context(), req.InitData)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok": true,
		"user": gin.H{
			"id":            user.ID,
			"username":      user.Username,
			"first_name":    user.FirstName,
			"last_name":     user.LastName,
			"language_code": user.LanguageCode,
			"is_premium":    user.IsPremium,
		},
	})
}
