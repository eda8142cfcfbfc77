package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"

	"telegram-shop-backend/internal/features/auth/models"
	"telegram-shop-backend/internal/features/auth/repository"
)

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) repository.UserRepository {
	return &userRepository{db: db}
}

// Upsert inserts or updates a user by Telegram id. Optional fields keep their
// stored value when the incoming one is empty.
func (r *userRepository) Upsert(ctx context.Context, u *models.User) error {
	const q = `
	INSERT INTO telegram_users (tg_id, username, first_name, last_name, language_code, is_premium, created_at, updated_at)
	VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), $6, now(), now())
	ON CONFLICT (tg_id) DO UPDATE SET
		username = COALESCE(EXCLUDED.username, telegram_users.username),
		first_name = COALESCE(EXCLUDED.first_name, telegram_users.first_name),
		last_name = COALESCE(EXCLUDED.last_name, telegram_users.last_name),
		language_code = COALESCE(EXCLUDED.language_code, telegram_users.language_code),
		is_premium = EXCLUDED.is_premium,
		updated_at = now();
`
	_, err := r.db.ExecContext(ctx, q,
		u.TgID,
		u.Username,
		u.FirstName,
		u.LastName,
		u.LanguageCode,
		u.IsPremium,
	)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// GetByID returns a user by Telegram id. Returns nil when not found.
func (r *userRepository) GetByID(ctx context.Context, tgID int64) (*models.User, error) {
	const q = `
SELECT tg_id, COALESCE(username, ''), COALESCE(first_name, ''), COALESCE(last_name, ''), COALESCE(language_code, ''), is_premium, is_blocked, created_at, updated_at
FROM telegram_users
WHERE tg_id = $1`
	row := r.db.QueryRowContext(ctx, q, tgID)
	var u models.User
	if err := row.Scan(&u.TgID, &u.Username, &u.FirstName, &u.LastName, &u.LanguageCode, &u.IsPremium, &u.IsBlocked, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// ListRecipientIDs returns ids of all users who have not blocked the bot.
func (r *userRepository) ListRecipientIDs(ctx context.Context) ([]int64, error) {
	const q = `SELECT tg_id FROM telegram_users WHERE NOT is_blocked ORDER BY created_at, tg_id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// MarkBlocked flags whether a user has blocked the bot.
func (r *userRepository) MarkBlocked(ctx context.Context, tgID int64, blocked bool) error {
	const q = `UPDATE telegram_users SET is_blocked = $2, updated_at = now() WHERE tg_id = $1`
	_, err := r.db.ExecContext(ctx, q, tgID, blocked)
	return err
}
