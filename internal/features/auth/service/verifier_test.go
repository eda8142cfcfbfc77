package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBotToken = "123456:test-bot-token"

// signPayload builds a raw init-data string with a valid hash over the given
// fields, mirroring what the Telegram client produces.
func signPayload(t *testing.T, token string, fields map[string]string) string {
	t.Helper()

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+fields[k])
	}
	check := strings.Join(parts, "\n")

	keyMAC := hmac.New(sha256.New, []byte("WebAppData"))
	keyMAC.Write([]byte(token))
	mac := hmac.New(sha256.New, keyMAC.Sum(nil))
	mac.Write([]byte(check))
	hash := hex.EncodeToString(mac.Sum(nil))

	encoded := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		encoded = append(encoded, url.QueryEscape(k)+"="+url.QueryEscape(fields[k]))
	}
	encoded = append(encoded, "hash="+hash)
	return strings.Join(encoded, "&")
}

func newTestVerifier(maxAge time.Duration, now time.Time) *Verifier {
	v := NewVerifier(testBotToken, maxAge)
	v.now = func() time.Time { return now }
	return v
}

func TestVerifyValidPayload(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	raw := signPayload(t, testBotToken, map[string]string{
		"auth_date": fmt.Sprintf("%d", now.Unix()-60),
		"query_id":  "AAE5Xrc",
		"user":      `{"id":42,"username":"alice","first_name":"Alice","is_premium":true}`,
	})

	v := newTestVerifier(24*time.Hour, now)
	data, err := v.Verify(raw)
	require.NoError(t, err)
	require.NotNil(t, data.User)

	assert.Equal(t, int64(42), data.User.ID)
	assert.Equal(t, "alice", data.User.Username)
	assert.Equal(t, "Alice", data.User.FirstName)
	assert.True(t, data.User.IsPremium)
	assert.Equal(t, now.Add(-time.Minute).Unix(), data.AuthDate.Unix())
}

func TestVerifyMissingHash(t *testing.T) {
	v := newTestVerifier(0, time.Now())

	_, err := v.Verify("auth_date=1700000000&user=%7B%22id%22%3A42%7D")
	assert.ErrorIs(t, err, ErrMissingHash)
}

func TestVerifyTamperedPayload(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	raw := signPayload(t, testBotToken, map[string]string{
		"auth_date": fmt.Sprintf("%d", now.Unix()),
		"user":      `{"id":42}`,
	})
	tampered := strings.Replace(raw, "%22id%22%3A42", "%22id%22%3A43", 1)
	require.NotEqual(t, raw, tampered)

	v := newTestVerifier(24*time.Hour, now)
	_, err := v.Verify(tampered)
	assert.ErrorIs(t, err, ErrSignatureMismatch)
}

func TestVerifyWrongBotToken(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	raw := signPayload(t, "999999:another-token", map[string]string{
		"auth_date": fmt.Sprintf("%d", now.Unix()),
	})

	v := newTestVerifier(24*time.Hour, now)
	_, err := v.Verify(raw)
	assert.ErrorIs(t, err, ErrSignatureMismatch)
}

func TestVerifyStaleSession(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	raw := signPayload(t, testBotToken, map[string]string{
		"auth_date": fmt.Sprintf("%d", now.Add(-25*time.Hour).Unix()),
		"user":      `{"id":42}`,
	})

	v := newTestVerifier(24*time.Hour, now)
	_, err := v.Verify(raw)
	assert.ErrorIs(t, err, ErrStaleSession)
}

func TestVerifyZeroMaxAgeDisablesFreshness(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	raw := signPayload(t, testBotToken, map[string]string{
		"auth_date": "1000",
	})

	v := newTestVerifier(0, now)
	_, err := v.Verify(raw)
	assert.NoError(t, err)
}

func TestVerifyMalformedAuthDate(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	raw := signPayload(t, testBotToken, map[string]string{
		"auth_date": "yesterday",
	})

	v := newTestVerifier(24*time.Hour, now)
	_, err := v.Verify(raw)
	assert.ErrorIs(t, err, ErrMalformedAuthDate)
}

func TestVerifyMissingAuthDateTreatedAsZero(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	raw := signPayload(t, testBotToken, map[string]string{
		"query_id": "AAE5Xrc",
	})

	v := newTestVerifier(24*time.Hour, now)
	_, err := v.Verify(raw)
	assert.ErrorIs(t, err, ErrStaleSession)
}

func TestVerifyMalformedUserKeepsRaw(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	raw := signPayload(t, testBotToken, map[string]string{
		"auth_date": fmt.Sprintf("%d", now.Unix()),
		"user":      `{"id":`,
	})

	v := newTestVerifier(24*time.Hour, now)
	data, err := v.Verify(raw)
	require.NoError(t, err)

	assert.Nil(t, data.User)
	assert.Equal(t, `{"id":`, data.RawUser)
}

func TestVerifyDuplicateKeysLastWins(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	raw := signPayload(t, testBotToken, map[string]string{
		"auth_date": fmt.Sprintf("%d", now.Unix()),
		"query_id":  "second",
	})
	// Inject an earlier duplicate; verification must use the signed value.
	raw = "query_id=first&" + raw

	v := newTestVerifier(24*time.Hour, now)
	data, err := v.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, "second", data.Fields["query_id"])
}
