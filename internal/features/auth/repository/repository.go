package repository

import (
	"context"

	"telegram-shop-backend/internal/features/auth/models"
)

// UserRepository persists Telegram users keyed by their stable Telegram id.
type UserRepository interface {
	// Upsert inserts or updates a user. Optional fields overwrite the stored
	// value only when non-empty.
	Upsert(ctx context.Context, u *models.User) error
	// GetByID returns a user by Telegram id, or nil when unknown.
	GetByID(ctx context.Context, tgID int64) (*models.User, error)
	// ListRecipientIDs returns the Telegram ids of every user that has not
	// blocked the bot, in registration order.
	ListRecipientIDs(ctx context.Context) ([]int64, error)
	// MarkBlocked flags a user as having blocked the bot.
	MarkBlocked(ctx context.Context, tgID int64, blocked bool) error
}
