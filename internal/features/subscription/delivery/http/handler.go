package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"telegram-shop-backend/internal/common/middleware"
	"telegram-shop-backend/internal/features/subscription/service"
)

type Handler struct {
	subscriptions service.SubscriptionService
}

func NewHandler(subscriptions service.SubscriptionService) *Handler {
	return &Handler{subscriptions: subscriptions}
}

func (h *Handler) Register(r *gin.RouterGroup) {
	r.GET("/subscriptions/check", h.check)
}

// check evaluates the subscription gate for a user.
// GET /subscriptions/check?user_id=123&force=1
func (h *Handler) check(c *gin.Context) {
	userIDRaw := c.Query("user_id")
	if userIDRaw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "user_id is required"})
		return
	}
	userID, err := strconv.ParseInt(userIDRaw, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "user_id must be an integer"})
		return
	}

	force := c.Query("force") == "1" || c.Query("force") == "true"

	verdict, err := h.subscriptions.Check(c.Request.Context(), userID, force)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, verdict)
}
