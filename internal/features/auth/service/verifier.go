package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"telegram-shop-backend/internal/features/auth/models"
)

// Verification failures. The HTTP layer maps these to generic user-facing
// messages; the concrete reason is only for logs and tests.
var (
	ErrMissingHash       = errors.New("missing hash")
	ErrSignatureMismatch = errors.New("signature mismatch")
	ErrStaleSession      = errors.New("stale session")
	ErrMalformedAuthDate = errors.New("malformed auth_date")
)

// signingDomain is the HMAC domain separator fixed by the Telegram WebApp
// protocol.
const signingDomain = "WebAppData"

// Verifier validates signed Telegram WebApp init-data payloads. It is pure:
// no network or storage access.
type Verifier struct {
	secret string
	maxAge time.Duration
	now    func() time.Time
}

// NewVerifier creates a verifier for the given bot token. maxAge bounds the
// accepted payload age; zero disables the age check.
func NewVerifier(secret string, maxAge time.Duration) *Verifier {
	return &Verifier{secret: secret, maxAge: maxAge, now: time.Now}
}

// Verify checks the signature and freshness of a raw init-data query string
// and returns the decoded payload on success.
func (v *Verifier) Verify(raw string) (*models.InitData, error) {
	fields := parsePairs(raw)

	receivedHash, ok := fields["hash"]
	if !ok || receivedHash == "" {
		return nil, ErrMissingHash
	}

	computed := v.sign(checkString(fields))
	if !hmac.Equal([]byte(computed), []byte(receivedHash)) {
		return nil, ErrSignatureMismatch
	}

	authDateRaw := fields["auth_date"]
	if authDateRaw == "" {
		authDateRaw = "0"
	}
	authDate, err := strconv.ParseInt(authDateRaw, 10, 64)
	if err != nil {
		return nil, ErrMalformedAuthDate
	}
	if v.maxAge > 0 && v.now().Unix()-authDate > int64(v.maxAge.Seconds()) {
		return nil, ErrStaleSession
	}

	data := &models.InitData{
		Fields:   fields,
		AuthDate: time.Unix(authDate, 0),
	}
	if rawUser, ok := fields["user"]; ok {
		data.RawUser = rawUser
		var user models.WebAppUser
		// A malformed nested user record never fails the verification as a
		// whole; the raw string stays available.
		if err := json.Unmarshal([]byte(rawUser), &user); err == nil {
			data.User = &user
		}
	}
	return data, nil
}

// parsePairs splits a raw query string into key/value pairs. Later duplicate
// keys win; blank values are kept; undecodable components are used verbatim.
func parsePairs(raw string) map[string]string {
	fields := make(map[string]string)
	for _, pair := range strings.Split(raw, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		if decoded, err := url.QueryUnescape(key); err == nil {
			key = decoded
		}
		if decoded, err := url.QueryUnescape(value); err == nil {
			value = decoded
		}
		fields[key] = value
	}
	return fields
}

// checkString builds the canonical data-check-string: every key except hash,
// sorted, joined as key=value with newline separators.
func checkString(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k == "hash" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+fields[k])
	}
	return strings.Join(parts, "\n")
}

// sign derives the signing key from the bot token and computes the hex
// candidate signature of the check string.
func (v *Verifier) sign(check string) string {
	keyMAC := hmac.New(sha256.New, []byte(signingDomain))
	keyMAC.Write([]byte(v.secret))
	secretKey := keyMAC.Sum(nil)

	mac := hmac.New(sha256.New, secretKey)
	mac.Write([]byte(check))
	return hex.EncodeToString(mac.Sum(nil))
}
