package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/twofactor/internal/twofactor/service"
	"github.com/aussiebroadwan/twofactor/internal/twofactor/store"
	"github.com/aussiebroadwan/twofactor/pkg/httpx"
	"github.com/aussiebroadwan/twofactor/pkg/jwtx"
	"github.com/aussiebroadwan/twofactor/pkg/slogx"

	_ "github.com/aussiebroadwan/twofactor/api/twofactor" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Limits are the request throttles applied per route class.
type Limits struct {
	Strict   httpx.RateLimitConfig
	Moderate httpx.RateLimitConfig
	Public   httpx.RateLimitConfig
}

// DefaultLimits returns the package-level profiles from httpx.
func DefaultLimits() Limits {
	return Limits{
		Strict:   httpx.StrictLimit,
		Moderate: httpx.ModerateLimit,
		Public:   httpx.PublicLimit,
	}
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	keys         *jwtx.KeySet
	verifyKeys   []*jwtx.KeySet
	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store            store.Store
	TwoFactorService *service.TwoFactorService
	DeviceService    *service.DeviceTrustService
	AttemptLedger    *service.AttemptLedger
	UserService      *service.UserService // Optional: nil disables /v1/login
	TokenService     *service.TokenService
	SetupTokens      SetupTokens
	Limits           Limits
}

// NewRouter builds a router. keys is the published local key set;
// verifyKeys are every set whose keys may sign bearer tokens, for the
// readiness probe.
func NewRouter(
	keys *jwtx.KeySet,
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
	verifyKeys ...*jwtx.KeySet,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		keys:         keys,
		verifyKeys:   verifyKeys,
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
		Limits:       DefaultLimits(),
	}
	if len(r.verifyKeys) == 0 {
		r.verifyKeys = []*jwtx.KeySet{keys}
	}

	// Recover sits inside the logger so a panic is still logged as a 500.
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		httpx.Recover(),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerLogin()
	r.registerTwoFactor()
	r.registerDevices()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Two-Factor Authentication Service API
//	@version		0.1.0
//	@description	Second-factor enrolment, verification, backup codes and trusted devices.
//	@description
//	@description				Successful verifications return an EdDSA-signed assertion that can be checked against the JWKS endpoint.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/twofactor
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// secured authenticates the bearer token and then throttles per user.
func (r *Router) secured(h http.HandlerFunc, limit httpx.RateLimitConfig) http.Handler {
	return httpx.Chain(h,
		httpx.AuthnMiddleware(r.verifier),
		httpx.RateLimitByUser(limit),
	)
}

func (r *Router) registerLogin() {
	if r.UserService == nil {
		return
	}
	h := &LoginHandler{
		Users:     r.UserService,
		Tokens:    r.TokenService,
		TwoFactor: r.TwoFactorService,
	}

	// POST /v1/login - strict rate limit by IP (password guessing)
	r.Mux.Handle("POST /v1/login",
		httpx.Chain(h,
			httpx.RateLimitByIP(r.Limits.Strict),
		),
	)
}

func (r *Router) registerTwoFactor() {
	h := &TwoFactorHandler{
		TwoFactor:   r.TwoFactorService,
		Attempts:    r.AttemptLedger,
		Devices:     r.DeviceService,
		Users:       r.UserService,
		Tokens:      r.TokenService,
		SetupTokens: r.SetupTokens,
	}

	// Every route that checks a code is strict; the ledger still applies
	// its own per-user failure limit underneath.
	r.Mux.Handle("GET /v1/2fa", r.secured(h.HandleStatus, r.Limits.Moderate))
	r.Mux.Handle("DELETE /v1/2fa", r.secured(h.HandleDisable, r.Limits.Strict))
	r.Mux.Handle("POST /v1/2fa/setup", r.secured(h.HandleBeginSetup, r.Limits.Moderate))
	r.Mux.Handle("POST /v1/2fa/setup/confirm", r.secured(h.HandleConfirmSetup, r.Limits.Strict))
	r.Mux.Handle("POST /v1/2fa/verify", r.secured(h.HandleVerify, r.Limits.Strict))
	r.Mux.Handle("POST /v1/2fa/backup-codes", r.secured(h.HandleRegenerateBackupCodes, r.Limits.Strict))
	r.Mux.Handle("GET /v1/2fa/attempts", r.secured(h.HandleAttempts, r.Limits.Moderate))
}

func (r *Router) registerDevices() {
	h := &DevicesHandler{Devices: r.DeviceService}

	r.Mux.Handle("POST /v1/devices/check", r.secured(h.HandleCheck, r.Limits.Moderate))
	r.Mux.Handle("GET /v1/devices", r.secured(h.HandleList, r.Limits.Moderate))
	r.Mux.Handle("DELETE /v1/devices", r.secured(h.HandleRevokeAll, r.Limits.Moderate))
	r.Mux.Handle("DELETE /v1/devices/{id}", r.secured(h.HandleRevoke, r.Limits.Moderate))
}

func (r *Router) registerSystem() {
	// GET /jwks.json - public endpoint with high limit
	r.Mux.Handle("GET /.well-known/jwks.json",
		httpx.Chain(JWKSHandler(r.keys),
			httpx.RateLimitByIP(r.Limits.Public),
		),
	)

	// Health check endpoints - monitoring systems may poll frequently
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(r.Limits.Public),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.verifyKeys...),
			httpx.RateLimitByIP(r.Limits.Public),
		),
	)
}
