package twofactorsdk

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseErrorResponse(t *testing.T) {
	t.Parallel()

	t.Run("known error with retry", func(t *testing.T) {
		rec := httptest.NewRecorder()
		ErrRateLimited.WithRetryAfter(90 * time.Second).WriteError(rec)

		err := parseErrorResponse(rec.Result(), rec.Body.Bytes())
		require.ErrorIs(t, err, ErrRateLimited)

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, 90*time.Second, apiErr.RetryAfter)
	})

	t.Run("non json body", func(t *testing.T) {
		resp := &http.Response{StatusCode: http.StatusBadGateway, Header: http.Header{}}

		err := parseErrorResponse(resp, []byte("<html>bad gateway</html>"))

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
		require.Equal(t, ErrorCodeServerError, apiErr.Code)
		require.Zero(t, apiErr.RetryAfter)
	})

	t.Run("same code different status", func(t *testing.T) {
		err := &APIError{StatusCode: http.StatusBadRequest, Code: ErrorCodeNotFound}
		require.NotErrorIs(t, err, ErrNotFound)
	})
}

func TestSessionSendsBearer(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/2fa/verify", r.URL.Path)
		if r.Header.Get("Authorization") != "Bearer tok" {
			ErrInvalidToken.WriteError(w)
			return
		}

		var req VerifyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Code != "123456" {
			ErrInvalidCode.WriteError(w)
			return
		}
		_ = json.NewEncoder(w).Encode(VerifyResponse{Method: "authenticator", Assertion: "a.b.c"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL + "/")

	_, err := c.NewSession("other").Verify(t.Context(), VerifyRequest{Code: "123456"})
	require.ErrorIs(t, err, ErrInvalidToken)

	sess := c.NewSession("tok")
	_, err = sess.Verify(t.Context(), VerifyRequest{Code: "000000"})
	require.ErrorIs(t, err, ErrInvalidCode)

	res, err := sess.Verify(t.Context(), VerifyRequest{Code: "123456"})
	require.NoError(t, err)
	require.Equal(t, "authenticator", res.Method)
	require.Equal(t, "a.b.c", res.Assertion)
}
