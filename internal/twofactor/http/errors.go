package http

import (
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/aussiebroadwan/twofactor/internal/twofactor/domain"
	"github.com/aussiebroadwan/twofactor/pkg/fingerprint"
	"github.com/aussiebroadwan/twofactor/pkg/httpx"
	"github.com/aussiebroadwan/twofactor/pkg/slogx"
	"github.com/aussiebroadwan/twofactor/pkg/twofactorsdk"
)

// storeRetryAfter is advertised when the store is unreachable.
const storeRetryAfter = 5 * time.Second

// writeServiceError maps a service error onto the API error body. Code
// failures are deliberately indistinguishable from each other.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	log := slogx.FromContext(r.Context())

	switch domain.KindOf(err) {
	case domain.KindInvalidCode:
		log.Info("second factor rejected", "err", err)
		twofactorsdk.ErrInvalidCode.WriteError(w)

	case domain.KindRateLimited:
		retry := time.Second
		var de *domain.Error
		if errors.As(err, &de) && de.Decision != nil {
			retry = de.Decision.RetryAfter
		}
		log.Warn("second factor rate limited", "retry_after", retry.String())
		twofactorsdk.ErrRateLimited.WithRetryAfter(retry).WriteError(w)

	case domain.KindNotEnabled:
		twofactorsdk.ErrNotEnabled.WriteError(w)

	case domain.KindAlreadyEnabled:
		twofactorsdk.ErrAlreadyEnabled.WriteError(w)

	case domain.KindReauthenticationFailed:
		log.Info("reauthentication failed")
		twofactorsdk.ErrReauthFailed.WriteError(w)

	case domain.KindInvalidSetup:
		log.Info("invalid setup", "err", err)
		twofactorsdk.ErrInvalidSetup.WriteError(w)

	case domain.KindNotFound:
		twofactorsdk.ErrNotFound.WriteError(w)

	case domain.KindStoreUnavailable:
		log.Error("store unavailable", "err", err)
		twofactorsdk.ErrStoreUnavailable.WithRetryAfter(storeRetryAfter).WriteError(w)

	default:
		log.Error("request failed", "err", err)
		twofactorsdk.ErrServerError.WriteError(w)
	}
}

// clientContext is the coarse description of the caller stored with each
// attempt: client IP and the platform and browser families.
func clientContext(r *http.Request) string {
	ip := httpx.IPKeyExtractor(r)
	if parsed := net.ParseIP(ip); parsed == nil {
		ip = "unknown"
	}
	ua := r.UserAgent()
	return ip + " " + fingerprint.PlatformFamily(ua) + "/" + fingerprint.BrowserFamily(ua)
}
