package twofactorsdk

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/aussiebroadwan/twofactor/pkg/httpx"
)

// Error codes returned in the "error" field.
const (
	ErrorCodeInvalidRequest   = "invalid_request"
	ErrorCodeInvalidToken     = "invalid_token"
	ErrorCodeInvalidCode      = "invalid_code"
	ErrorCodeRateLimited      = "rate_limited"
	ErrorCodeNotEnabled       = "not_enabled"
	ErrorCodeAlreadyEnabled   = "already_enabled"
	ErrorCodeReauthFailed     = "reauthentication_failed"
	ErrorCodeInvalidSetup     = "invalid_setup"
	ErrorCodeNotFound         = "not_found"
	ErrorCodeStoreUnavailable = "temporarily_unavailable"
	ErrorCodeServerError      = "server_error"
	ErrorCodeInvalidGrant     = "invalid_grant"
)

// APIError is the JSON error body of every failed request. It is written
// by the server and parsed back by the client.
type APIError struct {
	StatusCode int `json:"-"`

	Code        string `json:"error"`
	Description string `json:"error_description"`

	// RetryAfter mirrors the Retry-After header on 429 and 503 responses.
	RetryAfter time.Duration `json:"-"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.StatusCode, e.Code, e.Description)
}

// Is matches on status and code so callers can compare with the
// predefined errors below.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	return ok && t.StatusCode == e.StatusCode && t.Code == e.Code
}

// WriteError writes e, including Retry-After when set.
func (e *APIError) WriteError(w http.ResponseWriter) {
	if e.RetryAfter > 0 {
		httpx.SetRetryAfter(w, e.RetryAfter)
	}
	httpx.WriteJSON(w, e.StatusCode, e)
}

// WithRetryAfter returns a copy of e carrying d.
func (e *APIError) WithRetryAfter(d time.Duration) *APIError {
	c := *e
	c.RetryAfter = d
	return &c
}

var (
	ErrInvalidRequest = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "the request is malformed or missing required parameters",
	}

	ErrInvalidToken = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidToken,
		Description: "the access token is missing, invalid or expired",
	}

	// ErrInvalidCode never says whether the code was close, expired or
	// already used.
	ErrInvalidCode = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidCode,
		Description: "incorrect code",
	}

	ErrRateLimited = &APIError{
		StatusCode:  http.StatusTooManyRequests,
		Code:        ErrorCodeRateLimited,
		Description: "too many failed attempts, try again later",
	}

	ErrNotEnabled = &APIError{
		StatusCode:  http.StatusConflict,
		Code:        ErrorCodeNotEnabled,
		Description: "two-factor authentication is not enabled",
	}

	ErrAlreadyEnabled = &APIError{
		StatusCode:  http.StatusConflict,
		Code:        ErrorCodeAlreadyEnabled,
		Description: "two-factor authentication is already enabled",
	}

	ErrReauthFailed = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeReauthFailed,
		Description: "password or code is incorrect",
	}

	ErrInvalidSetup = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidSetup,
		Description: "the setup token is invalid or expired, start again",
	}

	ErrNotFound = &APIError{
		StatusCode:  http.StatusNotFound,
		Code:        ErrorCodeNotFound,
		Description: "not found",
	}

	ErrStoreUnavailable = &APIError{
		StatusCode:  http.StatusServiceUnavailable,
		Code:        ErrorCodeStoreUnavailable,
		Description: "the service is temporarily unavailable, try again",
	}

	ErrServerError = &APIError{
		StatusCode:  http.StatusInternalServerError,
		Code:        ErrorCodeServerError,
		Description: "internal server error",
	}

	ErrInvalidCredentials = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidGrant,
		Description: "invalid credentials",
	}
)

// parseErrorResponse turns a non-2xx response into an *APIError.
func parseErrorResponse(resp *http.Response, body []byte) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Code == "" {
		apiErr.Code = ErrorCodeServerError
		apiErr.Description = fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
		apiErr.RetryAfter = time.Duration(secs) * time.Second
	}
	return apiErr
}
