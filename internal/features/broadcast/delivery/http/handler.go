package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "telegram-shop-backend/internal/common/errors"
	"telegram-shop-backend/internal/common/middleware"
	authrepo "telegram-shop-backend/internal/features/auth/repository"
	"telegram-shop-backend/internal/features/broadcast/models"
	"telegram-shop-backend/internal/features/broadcast/service"
)

type Handler struct {
	engine *service.Service
	users  authrepo.UserRepository
}

func NewHandler(engine *service.Service, users authrepo.UserRepository) *Handler {
	return &Handler{engine: engine, users: users}
}

func (h *Handler) Register(r *gin.RouterGroup) {
	r.POST("/broadcast", h.send)
}

type sendRequest struct {
	MediaType string  `json:"media_type" binding:"required,oneof=text photo video animation"`
	Text      string  `json:"text"`
	FilePath  string  `json:"file_path"`
	Buttons   string  `json:"buttons"`
	ChatIDs   []int64 `json:"chat_ids"`
}

// send runs a broadcast over the given recipients, defaulting to every known
// user that has not blocked the bot. Returns the outcome counters.
func (h *Handler) send(c *gin.Context) {
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	chatIDs := req.ChatIDs
	if len(chatIDs) == 0 {
		ids, err := h.users.ListRecipientIDs(c.Request.Context())
		if err != nil {
			middleware.AbortWithError(c, apperrors.NewDatabaseError("list broadcast recipients", err))
			return
		}
		chatIDs = ids
	}

	outcome := h.engine.Send(c.Request.Context(), models.Job{
		Media:      models.MediaType(req.MediaType),
		Text:       req.Text,
		FilePath:   req.FilePath,
		ButtonsRaw: req.Buttons,
		ChatIDs:    chatIDs,
	})

	c.JSON(http.StatusOK, outcome)
}
