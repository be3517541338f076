package calendar

import (
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
)

var (
	// ErrAuthExpired means the provider rejected the access token. Callers may
	// refresh once and retry.
	ErrAuthExpired = errors.New("calendar: access token rejected")
	// ErrProviderUnavailable covers every other provider or network failure.
	ErrProviderUnavailable = errors.New("calendar: provider unavailable")
	ErrExchangeFailed      = errors.New("calendar: authorization code exchange failed")
	ErrRefreshFailed       = errors.New("calendar: token refresh failed")
)

// IsAuthExpired reports whether err was classified as an expired or revoked
// access token.
func IsAuthExpired(err error) bool {
	return errors.Is(err, ErrAuthExpired)
}

func classify(op string, err error) error {
	if statusOf(err) == http.StatusUnauthorized {
		return fmt.Errorf("%s: %w: %w", op, ErrAuthExpired, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrProviderUnavailable, err)
}

func statusOf(err error) int {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
		return retrieveErr.Response.StatusCode
	}
	return 0
}
