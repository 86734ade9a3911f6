package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	httpapi "github.com/aussiebroadwan/twofactor/internal/twofactor/http"
	"github.com/aussiebroadwan/twofactor/internal/twofactor/notify"
	"github.com/aussiebroadwan/twofactor/internal/twofactor/service"
	"github.com/aussiebroadwan/twofactor/internal/twofactor/store/drivers/redis"
	"github.com/aussiebroadwan/twofactor/pkg/cryptox"
	"github.com/aussiebroadwan/twofactor/pkg/slogx"
)

// BuildVersion is overridden at build time via -ldflags.
var BuildVersion = "v0.1.0"

// Application encapsulates the service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db    MigratableStore
	keys  *Keys
	redis *goredis.Client

	// Services
	users        *service.UserService
	attempts     *service.AttemptLedger
	devices      *service.DeviceTrustService
	twoFactor    *service.TwoFactorService
	tokens       *service.TokenService
	dispatcher   *notify.Dispatcher
	housekeeping *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// NewLogger builds the service logger from cfg.
func NewLogger(cfg Config) *slog.Logger {
	return slogx.New(slogx.Config{
		Service: "twofactor",
		Version: BuildVersion,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})
}

// New creates an Application with every dependency initialised. Migrations
// are applied before anything else touches the store.
func New(ctx context.Context, cfg Config) (*Application, error) {
	app := &Application{cfg: cfg, logger: NewLogger(cfg)}

	if err := app.initDatabase(ctx); err != nil {
		return nil, err
	}

	keys, err := InitKeys(ctx, cfg, app.logger)
	if err != nil {
		app.closeStores()
		return nil, fmt.Errorf("failed to initialize keys: %w", err)
	}
	app.keys = keys

	if err := app.initServices(ctx); err != nil {
		app.closeStores()
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// Handler exposes the router, mainly for tests.
func (app *Application) Handler() http.Handler { return app.router }

// Users exposes the local account service for the CLI.
func (app *Application) Users() *service.UserService { return app.users }

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run(ctx context.Context) error {
	if err := app.housekeeping.Start(ctx); err != nil {
		return fmt.Errorf("start housekeeping: %w", err)
	}

	app.logger.Info("twofactor service starting", "addr", app.cfg.HTTPAddr, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.Shutdown()
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)
	case <-ctx.Done():
		app.logger.Info("context cancelled")
	}

	return app.Shutdown()
}

// Shutdown drains requests, stops background jobs, waits for queued
// notifications and closes the stores.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down twofactor service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeeping.Stop()
	app.dispatcher.Wait()

	err := app.closeStores()
	app.logger.Info("twofactor service stopped")
	return err
}

func (app *Application) closeStores() error {
	var errs []error
	if app.redis != nil {
		errs = append(errs, app.redis.Close())
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database", "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (app *Application) initDatabase(ctx context.Context) error {
	db, err := OpenStore(ctx, app.cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "driver", app.cfg.StoreDriver)
	return nil
}

func (app *Application) initServices(ctx context.Context) error {
	cfg := app.cfg

	app.users = &service.UserService{
		Store:  app.db,
		Hasher: cryptox.PasswordHasher{Pepper: app.keys.Pepper},
	}

	app.attempts = &service.AttemptLedger{
		Store:        app.db,
		Logger:       app.logger,
		Policy:       cfg.RateLimitPolicy(),
		StoreTimeout: cfg.StoreTimeout,
	}
	if cfg.RateLimitBackend == "redis" {
		client, err := redis.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		app.redis = client
		app.attempts.Counter = redis.NewFailureWindow(client, "", cfg.AttemptWindow)
		app.logger.Info("rate limit failures counted in redis")
	}

	app.devices = &service.DeviceTrustService{
		Store:           app.db,
		Logger:          app.logger,
		DefaultDuration: cfg.DeviceTrustDuration,
		StoreTimeout:    cfg.StoreTimeout,
	}

	sender, err := app.newSender()
	if err != nil {
		return err
	}
	app.dispatcher = &notify.Dispatcher{Sender: sender, Logger: app.logger}

	app.twoFactor = &service.TwoFactorService{
		Store:        app.db,
		Sealer:       app.keys.Sealer,
		Attempts:     app.attempts,
		Passwords:    app.users,
		Notifier:     app.dispatcher,
		Logger:       app.logger,
		Issuer:       cfg.TOTPIssuer,
		Window:       cfg.TOTPWindow,
		SetupTTL:     cfg.SetupTTL,
		StoreTimeout: cfg.StoreTimeout,
	}

	app.tokens = &service.TokenService{
		Signer:            app.keys.Signer,
		Issuer:            cfg.Issuer,
		AssertionAudience: cfg.AssertionAudience,
		SessionTTL:        cfg.SessionTTL,
		AssertionTTL:      cfg.AssertionTTL,
	}

	app.housekeeping = service.NewHousekeepingService(
		app.devices,
		app.attempts,
		app.logger,
		cfg.HousekeepingInterval,
		cfg.AttemptRetention,
	)
	if app.keys.Source.Configured() {
		app.housekeeping.RefreshKeys = app.keys.Source.Refresh
		app.housekeeping.RefreshKeysInterval = cfg.JWKSRefresh
	}
	return nil
}

// newSender mails notifications when SMTP is configured and logs them
// otherwise.
func (app *Application) newSender() (notify.Sender, error) {
	if app.cfg.SMTPHost == "" {
		return notify.LogSender{Logger: app.logger}, nil
	}

	users := app.users
	sender, err := notify.NewSMTPSender(notify.SMTPConfig{
		Host:     app.cfg.SMTPHost,
		Port:     app.cfg.SMTPPort,
		Username: app.cfg.SMTPUsername,
		Password: app.cfg.SMTPPassword,
		From:     app.cfg.SMTPFrom,
		Timeout:  app.cfg.SMTPTimeout,
	}, app.cfg.TOTPIssuer, func(ctx context.Context, userID string) (string, error) {
		u, err := users.GetUserByID(ctx, userID)
		if err != nil {
			return "", err
		}
		return u.Email, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to configure smtp: %w", err)
	}
	app.logger.Info("security notifications sent by mail", "host", app.cfg.SMTPHost)
	return sender, nil
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.keys.Local,
		app.keys.Verifier,
		BuildVersion,
		app.db,
		app.logger,
		app.keys.BearerKeySets(app.cfg)...,
	)

	router.TwoFactorService = app.twoFactor
	router.DeviceService = app.devices
	router.AttemptLedger = app.attempts
	router.TokenService = app.tokens
	router.SetupTokens = httpapi.SetupTokens{Sealer: app.keys.Sealer}
	router.Limits = httpapi.Limits{
		Strict:   app.cfg.StrictLimit,
		Moderate: app.cfg.ModerateLimit,
		Public:   app.cfg.PublicLimit,
	}
	if app.cfg.LocalLogin {
		router.UserService = app.users
	}
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              app.cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
