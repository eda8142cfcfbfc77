package service

import (
	"context"
	"os"
	"time"

	"telegram-shop-backend/internal/common/logger"
	"telegram-shop-backend/internal/features/broadcast/models"
	"telegram-shop-backend/internal/platform/telegram"
)

// defaultRetryWait applies when the platform rate-limits without a hint.
const defaultRetryWait = 3 * time.Second

// Sender is the low-level delivery primitive against the messaging platform.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string, markup *telegram.InlineKeyboardMarkup) error
	SendPhoto(ctx context.Context, chatID int64, filePath, caption string, markup *telegram.InlineKeyboardMarkup) error
	SendVideo(ctx context.Context, chatID int64, filePath, caption string, markup *telegram.InlineKeyboardMarkup) error
	SendAnimation(ctx context.Context, chatID int64, filePath, caption string, markup *telegram.InlineKeyboardMarkup) error
}

// Service fans a job out to its recipients, absorbing every per-recipient
// failure into the outcome counters.
type Service struct {
	sender Sender

	// Injected for tests.
	sleep      func(time.Duration)
	removeFile func(string) error
}

func NewService(sender Sender) *Service {
	return &Service{
		sender:     sender,
		sleep:      time.Sleep,
		removeFile: os.Remove,
	}
}

// Send processes recipients strictly in input order. A rate-limited delivery
// is retried exactly once after the suggested wait; any other failure counts
// the recipient as failed without aborting the rest. Send never returns an
// error for a per-recipient failure.
func (s *Service) Send(ctx context.Context, job models.Job) models.Outcome {
	outcome := models.Outcome{Total: len(job.ChatIDs)}
	markup := buildMarkup(job.ButtonsRaw)

	logger.Info().
		Str("media_type", string(job.Media)).
		Str("file", job.FilePath).
		Int("recipients", outcome.Total).
		Msg("Broadcast started")

	for _, chatID := range job.ChatIDs {
		if ctx.Err() != nil {
			// The job was cut short; the remaining recipients are accounted
			// as failed so the counters still cover everyone.
			outcome.Failed++
			continue
		}

		if s.deliver(ctx, chatID, &job, markup) {
			outcome.OK++
		} else {
			outcome.Failed++
		}
	}

	if job.FilePath != "" {
		if err := s.removeFile(job.FilePath); err != nil {
			logger.Warn().Err(err).Str("file", job.FilePath).Msg("Failed to remove broadcast file")
		} else {
			logger.Info().Str("file", job.FilePath).Msg("Broadcast file removed")
		}
	}

	logger.Info().
		Int("total", outcome.Total).
		Int("ok", outcome.OK).
		Int("failed", outcome.Failed).
		Msg("Broadcast finished")

	return outcome
}

// deliver sends to one recipient, honoring a single rate-limit retry.
func (s *Service) deliver(ctx context.Context, chatID int64, job *models.Job, markup *telegram.InlineKeyboardMarkup) bool {
	err := s.sendOne(ctx, chatID, job, markup)
	if err == nil {
		return true
	}

	if wait, ok := telegram.AsRateLimited(err); ok {
		if wait <= 0 {
			wait = defaultRetryWait
		}
		logger.Warn().Int64("chat_id", chatID).Dur("wait", wait).Msg("Rate limited, retrying once")
		s.sleep(wait)

		if retryErr := s.sendOne(ctx, chatID, job, markup); retryErr == nil {
			return true
		} else {
			logger.Warn().Err(retryErr).Int64("chat_id", chatID).Msg("Broadcast retry failed")
			return false
		}
	}

	switch {
	case telegram.IsForbidden(err):
		logger.Warn().Int64("chat_id", chatID).Msg("Recipient blocked the bot")
	case telegram.IsBadRequest(err):
		logger.Warn().Err(err).Int64("chat_id", chatID).Msg("Broadcast rejected by platform")
	default:
		logger.Error().Err(err).Int64("chat_id", chatID).Msg("Broadcast delivery failed")
	}
	return false
}

func (s *Service) sendOne(ctx context.Context, chatID int64, job *models.Job, markup *telegram.InlineKeyboardMarkup) error {
	if job.Media == models.MediaText {
		return s.sender.SendMessage(ctx, chatID, job.Text, markup)
	}

	if job.FilePath == "" {
		// A media job without a file degrades to text instead of failing
		// the recipient.
		text := job.Text
		if text == "" {
			text = "[file not attached]"
		}
		return s.sender.SendMessage(ctx, chatID, text, markup)
	}

	switch job.Media {
	case models.MediaPhoto:
		return s.sender.SendPhoto(ctx, chatID, job.FilePath, job.Text, markup)
	case models.MediaVideo:
		return s.sender.SendVideo(ctx, chatID, job.FilePath, job.Text, markup)
	case models.MediaAnimation:
		return s.sender.SendAnimation(ctx, chatID, job.FilePath, job.Text, markup)
	default:
		return s.sender.SendMessage(ctx, chatID, job.Text, markup)
	}
}
