package repository

import (
	"context"

	"telegram-shop-backend/internal/features/subscription/models"
)

// ChannelRepository reads the admin-managed subscription channel list.
type ChannelRepository interface {
	// ListActive returns active channels ordered by sort order.
	ListActive(ctx context.Context) ([]models.Channel, error)
}
