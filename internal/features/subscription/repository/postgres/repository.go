package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"telegram-shop-backend/internal/features/subscription/models"
	"telegram-shop-backend/internal/features/subscription/repository"
)

type channelRepository struct {
	db *sql.DB
}

func NewChannelRepository(db *sql.DB) repository.ChannelRepository {
	return &channelRepository{db: db}
}

func (r *channelRepository) ListActive(ctx context.Context) ([]models.Channel, error) {
	const q = `
SELECT id, title, COALESCE(chat_id, 0), COALESCE(username, ''), COALESCE(invite_link, ''), is_group, is_required, is_active, sort_order, created_at, updated_at
FROM subscription_channels
WHERE is_active
ORDER BY sort_order, id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list active channels: %w", err)
	}
	defer rows.Close()

	var channels []models.Channel
	for rows.Next() {
		var ch models.Channel
		if err := rows.Scan(&ch.ID, &ch.Title, &ch.ChatID, &ch.Username, &ch.InviteLink, &ch.IsGroup, &ch.IsRequired, &ch.IsActive, &ch.SortOrder, &ch.CreatedAt, &ch.UpdatedAt); err != nil {
			return nil, err
		}
		channels = append(channels, ch)
	}
	return channels, rows.Err()
}
