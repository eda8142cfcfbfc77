package telegram

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind is the closed set of failure classes surfaced by the Bot API client.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindForbidden
	KindBadRequest
	KindRateLimited
)

func (k ErrorKind) String() string {
	switch k {
	case KindForbidden:
		return "forbidden"
	case KindBadRequest:
		return "bad_request"
	case KindRateLimited:
		return "rate_limited"
	default:
		return "unknown"
	}
}

// APIError is a typed Telegram Bot API failure. RetryAfter is only meaningful
// for KindRateLimited and may be zero when the platform gave no hint.
type APIError struct {
	Kind        ErrorKind
	Code        int
	Description string
	RetryAfter  time.Duration
}

func (e *APIError) Error() string {
	if e.Kind == KindRateLimited && e.RetryAfter > 0 {
		return fmt.Sprintf("telegram: %s (%d): %s, retry after %s", e.Kind, e.Code, e.Description, e.RetryAfter)
	}
	return fmt.Sprintf("telegram: %s (%d): %s", e.Kind, e.Code, e.Description)
}

func classify(code int, description string, retryAfter int) *APIError {
	apiErr := &APIError{Code: code, Description: description}
	switch {
	case code == 403:
		apiErr.Kind = KindForbidden
	case code == 429:
		apiErr.Kind = KindRateLimited
		apiErr.RetryAfter = time.Duration(retryAfter) * time.Second
	case code == 400 || code == 404:
		apiErr.Kind = KindBadRequest
	default:
		apiErr.Kind = KindUnknown
	}
	return apiErr
}

// IsForbidden reports whether err is a forbidden/blocked failure.
func IsForbidden(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == KindForbidden
}

// IsBadRequest reports whether err is a bad-request/not-found failure.
func IsBadRequest(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == KindBadRequest
}

// AsRateLimited extracts the retry hint when err is a rate-limit failure.
func AsRateLimited(err error) (time.Duration, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Kind == KindRateLimited {
		return apiErr.RetryAfter, true
	}
	return 0, false
}
