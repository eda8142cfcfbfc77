package service

import (
	"context"
	"errors"

	apperrors "telegram-shop-backend/internal/common/errors"
	"telegram-shop-backend/internal/common/logger"
	"telegram-shop-backend/internal/features/auth/models"
	"telegram-shop-backend/internal/features/auth/repository"
)

// AuthService verifies WebApp sessions and keeps the user table current.
type AuthService interface {
	// VerifySession validates a raw init-data payload, upserts the embedded
	// user and returns it.
	VerifySession(ctx context.Context, rawInitData string) (*models.WebAppUser, error)
}

type authService struct {
	verifier *Verifier
	users    repository.UserRepository
}

func NewAuthService(verifier *Verifier, users repository.UserRepository) AuthService {
	return &authService{verifier: verifier, users: users}
}

func (s *authService) VerifySession(ctx context.Context, rawInitData string) (*models.WebAppUser, error) {
	data, err := s.verifier.Verify(rawInitData)
	if err != nil {
		return nil, translateVerifyError(err)
	}

	if data.User == nil || data.User.ID == 0 {
		return nil, apperrors.New(apperrors.ErrCodeInvalidInitData, "Invalid session").
			WithDetail("reason", "payload carries no user record")
	}

	user := &models.User{
		TgID:         data.User.ID,
		Username:     data.User.Username,
		FirstName:    data.User.FirstName,
		LastName:     data.User.LastName,
		LanguageCode: data.User.LanguageCode,
		IsPremium:    data.User.IsPremium,
	}
	if err := s.users.Upsert(ctx, user); err != nil {
		return nil, apperrors.NewDatabaseError("upsert user", err)
	}

	logger.Debug().Int64("tg_id", user.TgID).Msg("Session verified")
	return data.User, nil
}

// translateVerifyError maps verifier failures to typed application errors.
// The public message stays generic; the concrete reason goes to details.
func translateVerifyError(err error) *apperrors.AppError {
	switch {
	case errors.Is(err, ErrStaleSession):
		return apperrors.New(apperrors.ErrCodeSessionExpired, "Session expired")
	case errors.Is(err, ErrMissingHash),
		errors.Is(err, ErrSignatureMismatch),
		errors.Is(err, ErrMalformedAuthDate):
		return apperrors.New(apperrors.ErrCodeInvalidInitData, "Invalid session").
			WithDetail("reason", err.Error())
	default:
		return apperrors.Wrap(err, apperrors.ErrCodeInvalidInitData, "Invalid session")
	}
}
