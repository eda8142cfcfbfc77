package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-shop-backend/internal/features/broadcast/models"
	"telegram-shop-backend/internal/platform/telegram"
)

type sendCall struct {
	method string
	chatID int64
	text   string
	file   string
	markup *telegram.InlineKeyboardMarkup
}

// scriptedSender fails according to a per-chat error script. Each script entry
// is consumed once; after the script runs out the call succeeds.
type scriptedSender struct {
	script map[int64][]error
	calls  []sendCall
}

func newScriptedSender() *scriptedSender {
	return &scriptedSender{script: map[int64][]error{}}
}

func (s *scriptedSender) fail(chatID int64, errs ...error) {
	s.script[chatID] = append(s.script[chatID], errs...)
}

func (s *scriptedSender) next(chatID int64) error {
	queue := s.script[chatID]
	if len(queue) == 0 {
		return nil
	}
	err := queue[0]
	s.script[chatID] = queue[1:]
	return err
}

func (s *scriptedSender) SendMessage(ctx context.Context, chatID int64, text string, markup *telegram.InlineKeyboardMarkup) error {
	s.calls = append(s.calls, sendCall{method: "message", chatID: chatID, text: text, markup: markup})
	return s.next(chatID)
}

func (s *scriptedSender) SendPhoto(ctx context.Context, chatID int64, filePath, caption string, markup *telegram.InlineKeyboardMarkup) error {
	s.calls = append(s.calls, sendCall{method: "photo", chatID: chatID, text: caption, file: filePath, markup: markup})
	return s.next(chatID)
}

func (s *scriptedSender) SendVideo(ctx context.Context, chatID int64, filePath, caption string, markup *telegram.InlineKeyboardMarkup) error {
	s.calls = append(s.calls, sendCall{method: "video", chatID: chatID, text: caption, file: filePath, markup: markup})
	return s.next(chatID)
}

func (s *scriptedSender) SendAnimation(ctx context.Context, chatID int64, filePath, caption string, markup *telegram.InlineKeyboardMarkup) error {
	s.calls = append(s.calls, sendCall{method: "animation", chatID: chatID, text: caption, file: filePath, markup: markup})
	return s.next(chatID)
}

func newTestService(sender Sender) (*Service, *[]time.Duration, *[]string) {
	svc := NewService(sender)
	var slept []time.Duration
	var removed []string
	svc.sleep = func(d time.Duration) { slept = append(slept, d) }
	svc.removeFile = func(path string) error {
		removed = append(removed, path)
		return nil
	}
	return svc, &slept, &removed
}

func rateLimited(after time.Duration) error {
	return &telegram.APIError{Kind: telegram.KindRateLimited, Code: 429, RetryAfter: after}
}

func TestSendAllDelivered(t *testing.T) {
	sender := newScriptedSender()
	svc, _, _ := newTestService(sender)

	outcome := svc.Send(context.Background(), models.Job{
		Media:   models.MediaText,
		Text:    "hello",
		ChatIDs: []int64{1, 2, 3},
	})

	assert.Equal(t, models.Outcome{Total: 3, OK: 3, Failed: 0}, outcome)
	require.Len(t, sender.calls, 3)
	assert.Equal(t, int64(1), sender.calls[0].chatID)
	assert.Equal(t, int64(3), sender.calls[2].chatID)
}

func TestSendCountersAlwaysCoverEveryone(t *testing.T) {
	sender := newScriptedSender()
	sender.fail(2, &telegram.APIError{Kind: telegram.KindForbidden, Code: 403})
	sender.fail(4, &telegram.APIError{Kind: telegram.KindUnknown, Code: 500})
	svc, _, _ := newTestService(sender)

	outcome := svc.Send(context.Background(), models.Job{
		Media:   models.MediaText,
		Text:    "hello",
		ChatIDs: []int64{1, 2, 3, 4},
	})

	assert.Equal(t, 4, outcome.Total)
	assert.Equal(t, 2, outcome.OK)
	assert.Equal(t, 2, outcome.Failed)
	assert.Equal(t, outcome.Total, outcome.OK+outcome.Failed)
}

func TestSendRateLimitRetriesOnce(t *testing.T) {
	sender := newScriptedSender()
	sender.fail(1, rateLimited(5*time.Second))
	svc, slept, _ := newTestService(sender)

	outcome := svc.Send(context.Background(), models.Job{
		Media:   models.MediaText,
		Text:    "hi",
		ChatIDs: []int64{1},
	})

	assert.Equal(t, models.Outcome{Total: 1, OK: 1}, outcome)
	assert.Len(t, sender.calls, 2)
	require.Len(t, *slept, 1)
	assert.Equal(t, 5*time.Second, (*slept)[0])
}

func TestSendRateLimitWithoutHintUsesDefaultWait(t *testing.T) {
	sender := newScriptedSender()
	sender.fail(1, rateLimited(0))
	svc, slept, _ := newTestService(sender)

	svc.Send(context.Background(), models.Job{Media: models.MediaText, Text: "hi", ChatIDs: []int64{1}})

	require.Len(t, *slept, 1)
	assert.Equal(t, defaultRetryWait, (*slept)[0])
}

func TestSendRateLimitRetryFailureCountsFailed(t *testing.T) {
	sender := newScriptedSender()
	sender.fail(1, rateLimited(time.Second), rateLimited(time.Second))
	svc, slept, _ := newTestService(sender)

	outcome := svc.Send(context.Background(), models.Job{Media: models.MediaText, Text: "hi", ChatIDs: []int64{1}})

	assert.Equal(t, models.Outcome{Total: 1, Failed: 1}, outcome)
	assert.Len(t, sender.calls, 2, "a rate-limited recipient is retried exactly once")
	assert.Len(t, *slept, 1)
}

func TestSendForbiddenNotRetried(t *testing.T) {
	sender := newScriptedSender()
	sender.fail(1, &telegram.APIError{Kind: telegram.KindForbidden, Code: 403})
	svc, slept, _ := newTestService(sender)

	outcome := svc.Send(context.Background(), models.Job{Media: models.MediaText, Text: "hi", ChatIDs: []int64{1, 2}})

	assert.Equal(t, models.Outcome{Total: 2, OK: 1, Failed: 1}, outcome)
	assert.Len(t, sender.calls, 2)
	assert.Empty(t, *slept)
}

func TestSendBadRequestNotRetried(t *testing.T) {
	sender := newScriptedSender()
	sender.fail(1, &telegram.APIError{Kind: telegram.KindBadRequest, Code: 400})
	svc, slept, _ := newTestService(sender)

	outcome := svc.Send(context.Background(), models.Job{Media: models.MediaText, Text: "hi", ChatIDs: []int64{1}})

	assert.Equal(t, models.Outcome{Total: 1, Failed: 1}, outcome)
	assert.Len(t, sender.calls, 1)
	assert.Empty(t, *slept)
}

func TestSendPlainErrorNotRetried(t *testing.T) {
	sender := newScriptedSender()
	sender.fail(1, errors.New("connection reset"))
	svc, slept, _ := newTestService(sender)

	outcome := svc.Send(context.Background(), models.Job{Media: models.MediaText, Text: "hi", ChatIDs: []int64{1}})

	assert.Equal(t, models.Outcome{Total: 1, Failed: 1}, outcome)
	assert.Empty(t, *slept)
}

func TestSendMediaJob(t *testing.T) {
	sender := newScriptedSender()
	svc, _, removed := newTestService(sender)

	outcome := svc.Send(context.Background(), models.Job{
		Media:    models.MediaPhoto,
		Text:     "caption",
		FilePath: "/tmp/promo.jpg",
		ChatIDs:  []int64{1, 2},
	})

	assert.Equal(t, models.Outcome{Total: 2, OK: 2}, outcome)
	require.Len(t, sender.calls, 2)
	assert.Equal(t, "photo", sender.calls[0].method)
	assert.Equal(t, "/tmp/promo.jpg", sender.calls[0].file)
	assert.Equal(t, "caption", sender.calls[0].text)
	assert.Equal(t, []string{"/tmp/promo.jpg"}, *removed)
}

func TestSendMediaWithoutFileDegradesToText(t *testing.T) {
	sender := newScriptedSender()
	svc, _, removed := newTestService(sender)

	outcome := svc.Send(context.Background(), models.Job{
		Media:   models.MediaVideo,
		ChatIDs: []int64{1},
	})

	assert.Equal(t, models.Outcome{Total: 1, OK: 1}, outcome)
	require.Len(t, sender.calls, 1)
	assert.Equal(t, "message", sender.calls[0].method)
	assert.Equal(t, "[file not attached]", sender.calls[0].text)
	assert.Empty(t, *removed)
}

func TestSendMediaWithoutFileKeepsCaption(t *testing.T) {
	sender := newScriptedSender()
	svc, _, _ := newTestService(sender)

	svc.Send(context.Background(), models.Job{
		Media:   models.MediaAnimation,
		Text:    "still worth reading",
		ChatIDs: []int64{1},
	})

	require.Len(t, sender.calls, 1)
	assert.Equal(t, "message", sender.calls[0].method)
	assert.Equal(t, "still worth reading", sender.calls[0].text)
}

func TestSendFileRemovalFailureIsNotFatal(t *testing.T) {
	sender := newScriptedSender()
	svc := NewService(sender)
	svc.sleep = func(time.Duration) {}
	svc.removeFile = func(string) error { return errors.New("no such file") }

	outcome := svc.Send(context.Background(), models.Job{
		Media:    models.MediaPhoto,
		FilePath: "/tmp/gone.jpg",
		ChatIDs:  []int64{1},
	})

	assert.Equal(t, models.Outcome{Total: 1, OK: 1}, outcome)
}

func TestSendCanceledContextCountsRemainingFailed(t *testing.T) {
	sender := newScriptedSender()
	svc, _, _ := newTestService(sender)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome := svc.Send(ctx, models.Job{Media: models.MediaText, Text: "hi", ChatIDs: []int64{1, 2, 3}})

	assert.Equal(t, models.Outcome{Total: 3, Failed: 3}, outcome)
	assert.Empty(t, sender.calls)
}

func TestSendButtonsAttached(t *testing.T) {
	sender := newScriptedSender()
	svc, _, _ := newTestService(sender)

	svc.Send(context.Background(), models.Job{
		Media:      models.MediaText,
		Text:       "promo",
		ButtonsRaw: "Shop | https://t.me/shop\nSupport | https://t.me/support",
		ChatIDs:    []int64{1},
	})

	require.Len(t, sender.calls, 1)
	markup := sender.calls[0].markup
	require.NotNil(t, markup)
	require.Len(t, markup.InlineKeyboard, 2)
	assert.Equal(t, "Shop", markup.InlineKeyboard[0][0].Text)
	assert.Equal(t, "https://t.me/shop", markup.InlineKeyboard[0][0].URL)
}
