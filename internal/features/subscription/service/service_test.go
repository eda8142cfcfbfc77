package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-shop-backend/internal/common/cache"
	"telegram-shop-backend/internal/features/subscription/models"
)

type fakeChannelRepo struct {
	channels []models.Channel
	err      error
}

func (f *fakeChannelRepo) ListActive(ctx context.Context) ([]models.Channel, error) {
	return f.channels, f.err
}

type fakeProbe struct {
	statuses map[string]string
	errs     map[string]error
	calls    []string
}

func (f *fakeProbe) GetChatMember(ctx context.Context, chatRef string, userID int64) (string, error) {
	f.calls = append(f.calls, chatRef)
	if err, ok := f.errs[chatRef]; ok {
		return "", err
	}
	if status, ok := f.statuses[chatRef]; ok {
		return status, nil
	}
	return "left", nil
}

type fakeStore struct {
	data    map[string][]byte
	getErr  error
	setErr  error
	setKeys []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: map[string][]byte{}}
}

func (f *fakeStore) Get(ctx context.Context, key string, dest interface{}) error {
	if f.getErr != nil {
		return f.getErr
	}
	raw, ok := f.data[key]
	if !ok {
		return cache.ErrMiss
	}
	return json.Unmarshal(raw, dest)
}

func (f *fakeStore) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if f.setErr != nil {
		return f.setErr
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.data[key] = raw
	f.setKeys = append(f.setKeys, key)
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, key string) error {
	delete(f.data, key)
	return nil
}

func requiredChannel(id int64, title string, chatID int64) models.Channel {
	return models.Channel{ID: id, Title: title, ChatID: chatID, IsRequired: true, IsActive: true}
}

func TestCheckAllJoined(t *testing.T) {
	repo := &fakeChannelRepo{channels: []models.Channel{
		requiredChannel(1, "News", -100123),
		requiredChannel(2, "Chat", -100456),
	}}
	probe := &fakeProbe{statuses: map[string]string{
		"-100123": "member",
		"-100456": "administrator",
	}}
	svc := NewSubscriptionService(repo, probe, newFakeStore(), time.Minute)

	verdict, err := svc.Check(context.Background(), 42, false)
	require.NoError(t, err)
	assert.True(t, verdict.OK)
	assert.Empty(t, verdict.NotJoined)
}

func TestCheckNotJoinedListsChannel(t *testing.T) {
	ch := requiredChannel(1, "News", 0)
	ch.Username = "shop_news"
	repo := &fakeChannelRepo{channels: []models.Channel{ch}}
	probe := &fakeProbe{statuses: map[string]string{"@shop_news": "left"}}
	svc := NewSubscriptionService(repo, probe, newFakeStore(), time.Minute)

	verdict, err := svc.Check(context.Background(), 42, false)
	require.NoError(t, err)
	assert.False(t, verdict.OK)
	require.Len(t, verdict.NotJoined, 1)
	assert.Equal(t, "News", verdict.NotJoined[0].Title)
	assert.Equal(t, "https://t.me/shop_news", verdict.NotJoined[0].Link)
}

func TestCheckRestrictedCountsAsJoined(t *testing.T) {
	repo := &fakeChannelRepo{channels: []models.Channel{requiredChannel(1, "News", -100123)}}
	probe := &fakeProbe{statuses: map[string]string{"-100123": "restricted"}}
	svc := NewSubscriptionService(repo, probe, newFakeStore(), time.Minute)

	verdict, err := svc.Check(context.Background(), 42, false)
	require.NoError(t, err)
	assert.True(t, verdict.OK)
}

func TestCheckRequiredProbeErrorFailsClosed(t *testing.T) {
	repo := &fakeChannelRepo{channels: []models.Channel{requiredChannel(1, "News", -100123)}}
	probe := &fakeProbe{errs: map[string]error{"-100123": errors.New("bad gateway")}}
	svc := NewSubscriptionService(repo, probe, newFakeStore(), time.Minute)

	verdict, err := svc.Check(context.Background(), 42, false)
	require.NoError(t, err)
	assert.False(t, verdict.OK)
	require.Len(t, verdict.NotJoined, 1)
}

func TestCheckOptionalProbeErrorFailsOpen(t *testing.T) {
	ch := requiredChannel(1, "Bonus", -100123)
	ch.IsRequired = false
	repo := &fakeChannelRepo{channels: []models.Channel{ch}}
	probe := &fakeProbe{errs: map[string]error{"-100123": errors.New("bad gateway")}}
	svc := NewSubscriptionService(repo, probe, newFakeStore(), time.Minute)

	verdict, err := svc.Check(context.Background(), 42, false)
	require.NoError(t, err)
	assert.True(t, verdict.OK)
}

func TestCheckMissingLocatorSkipsProbe(t *testing.T) {
	required := models.Channel{ID: 1, Title: "Broken", IsRequired: true, IsActive: true}
	optional := models.Channel{ID: 2, Title: "Also broken", IsActive: true}
	repo := &fakeChannelRepo{channels: []models.Channel{required, optional}}
	probe := &fakeProbe{}
	svc := NewSubscriptionService(repo, probe, newFakeStore(), time.Minute)

	verdict, err := svc.Check(context.Background(), 42, false)
	require.NoError(t, err)
	assert.Empty(t, probe.calls)
	assert.False(t, verdict.OK)
	require.Len(t, verdict.NotJoined, 1)
	assert.Equal(t, "Broken", verdict.NotJoined[0].Title)
}

func TestCheckServesCachedVerdict(t *testing.T) {
	repo := &fakeChannelRepo{channels: []models.Channel{requiredChannel(1, "News", -100123)}}
	probe := &fakeProbe{statuses: map[string]string{"-100123": "member"}}
	store := newFakeStore()
	svc := NewSubscriptionService(repo, probe, store, time.Minute)

	_, err := svc.Check(context.Background(), 42, false)
	require.NoError(t, err)
	require.Len(t, probe.calls, 1)

	verdict, err := svc.Check(context.Background(), 42, false)
	require.NoError(t, err)
	assert.True(t, verdict.OK)
	assert.Len(t, probe.calls, 1, "second check must be served from cache")
}

func TestCheckForceRefreshSkipsCache(t *testing.T) {
	repo := &fakeChannelRepo{channels: []models.Channel{requiredChannel(1, "News", -100123)}}
	probe := &fakeProbe{statuses: map[string]string{"-100123": "member"}}
	store := newFakeStore()
	svc := NewSubscriptionService(repo, probe, store, time.Minute)

	_, err := svc.Check(context.Background(), 42, false)
	require.NoError(t, err)

	probe.statuses["-100123"] = "left"
	verdict, err := svc.Check(context.Background(), 42, true)
	require.NoError(t, err)
	assert.False(t, verdict.OK)
	assert.Len(t, probe.calls, 2)
}

func TestCheckCacheFailuresAreNotFatal(t *testing.T) {
	repo := &fakeChannelRepo{channels: []models.Channel{requiredChannel(1, "News", -100123)}}
	probe := &fakeProbe{statuses: map[string]string{"-100123": "member"}}
	store := newFakeStore()
	store.getErr = errors.New("redis down")
	store.setErr = errors.New("redis down")
	svc := NewSubscriptionService(repo, probe, store, time.Minute)

	verdict, err := svc.Check(context.Background(), 42, false)
	require.NoError(t, err)
	assert.True(t, verdict.OK)
}

func TestCheckRepositoryErrorSurfaces(t *testing.T) {
	repo := &fakeChannelRepo{err: errors.New("connection refused")}
	svc := NewSubscriptionService(repo, &fakeProbe{}, newFakeStore(), time.Minute)

	_, err := svc.Check(context.Background(), 42, false)
	assert.Error(t, err)
}

func TestCheckNoChannelsPasses(t *testing.T) {
	svc := NewSubscriptionService(&fakeChannelRepo{}, &fakeProbe{}, newFakeStore(), time.Minute)

	verdict, err := svc.Check(context.Background(), 42, false)
	require.NoError(t, err)
	assert.True(t, verdict.OK)
	assert.NotNil(t, verdict.NotJoined)
}
