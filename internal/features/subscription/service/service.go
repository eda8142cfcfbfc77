package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"telegram-shop-backend/internal/common/cache"
	apperrors "telegram-shop-backend/internal/common/errors"
	"telegram-shop-backend/internal/common/logger"
	"telegram-shop-backend/internal/features/subscription/models"
	"telegram-shop-backend/internal/features/subscription/repository"
)

const cacheKeyPrefix = "subs_check:v1"

// joinedStatuses are the chat-member states that count as joined. Telegram
// sometimes reports restricted for users who are in fact members.
var joinedStatuses = map[string]bool{
	"member":        true,
	"administrator": true,
	"creator":       true,
	"restricted":    true,
}

// MembershipProbe asks the messaging platform whether a user belongs to a
// chat. chatRef is a numeric id in string form or an @username.
type MembershipProbe interface {
	GetChatMember(ctx context.Context, chatRef string, userID int64) (status string, err error)
}

// SubscriptionService evaluates the subscription gate for a user.
type SubscriptionService interface {
	// Check returns the aggregated verdict for userID. Within the cache TTL
	// the verdict is served from cache unless forceRefresh is set.
	Check(ctx context.Context, userID int64, forceRefresh bool) (models.Verdict, error)
}

type subscriptionService struct {
	channels repository.ChannelRepository
	probe    MembershipProbe
	cache    cache.Store
	ttl      time.Duration
}

func NewSubscriptionService(channels repository.ChannelRepository, probe MembershipProbe, store cache.Store, ttl time.Duration) SubscriptionService {
	return &subscriptionService{
		channels: channels,
		probe:    probe,
		cache:    store,
		ttl:      ttl,
	}
}

func (s *subscriptionService) Check(ctx context.Context, userID int64, forceRefresh bool) (models.Verdict, error) {
	cacheKey := fmt.Sprintf("%s:%d", cacheKeyPrefix, userID)

	if !forceRefresh {
		var cached models.Verdict
		err := s.cache.Get(ctx, cacheKey, &cached)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			logger.Warn().Err(err).Int64("user_id", userID).Msg("Subscription verdict cache read failed")
		}
	}

	channels, err := s.channels.ListActive(ctx)
	if err != nil {
		return models.Verdict{}, apperrors.NewDatabaseError("list subscription channels", err)
	}

	verdict := models.Verdict{OK: true, NotJoined: []models.ChannelRef{}}
	for _, ch := range channels {
		if s.checkOne(ctx, userID, &ch) {
			continue
		}
		// Only required channels affect the aggregate.
		verdict.NotJoined = append(verdict.NotJoined, models.ChannelRef{
			Title: ch.Title,
			Link:  ch.PublicLink(),
		})
	}
	verdict.OK = len(verdict.NotJoined) == 0

	// Verdicts are idempotent within a TTL window; last writer wins.
	if err := s.cache.Set(ctx, cacheKey, verdict, s.ttl); err != nil {
		logger.Warn().Err(err).Int64("user_id", userID).Msg("Subscription verdict cache write failed")
	}

	return verdict, nil
}

// checkOne reports whether the channel is satisfied for the user. Probe
// failures are absorbed: a required channel fails closed, an optional one
// fails open. A user is never blocked on an optional or misconfigured
// channel.
func (s *subscriptionService) checkOne(ctx context.Context, userID int64, ch *models.Channel) bool {
	locator := ch.Locator()
	if locator == "" {
		// Misconfigured channel; flag it for operators instead of probing.
		logger.Warn().Str("title", ch.Title).Bool("required", ch.IsRequired).Msg("Subscription channel has no usable locator")
		return !ch.IsRequired
	}

	status, err := s.probe.GetChatMember(ctx, locator, userID)
	if err != nil {
		logger.Debug().
			Err(err).
			Int64("user_id", userID).
			Str("channel", ch.Title).
			Msg("Membership probe failed")
		return !ch.IsRequired
	}

	return joinedStatuses[status] || !ch.IsRequired
}
