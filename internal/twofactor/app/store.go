package app

import (
	"context"
	"fmt"

	"github.com/aussiebroadwan/twofactor/internal/twofactor/store"
	"github.com/aussiebroadwan/twofactor/internal/twofactor/store/drivers/postgres"
	"github.com/aussiebroadwan/twofactor/internal/twofactor/store/drivers/sqlite"
)

// MigratableStore is a store that can also step its schema back.
type MigratableStore interface {
	store.Store
	MigrateDown(n int) error
	MigrationVersion() (version uint, dirty bool, err error)
}

// OpenStore connects to the configured driver without migrating.
func OpenStore(ctx context.Context, cfg Config) (MigratableStore, error) {
	switch cfg.StoreDriver {
	case "postgres":
		st, err := postgres.NewStore(ctx, cfg.DatabaseURL, postgres.Options{
			ConnectTimeout: cfg.StoreTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		return st, nil
	default:
		dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", cfg.DatabaseFile)
		st, err := sqlite.NewStore(dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		return st, nil
	}
}
