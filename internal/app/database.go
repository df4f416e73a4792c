package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	repo "github.com/joseph-ayodele/invoice-extractor/internal/repository"
)

// ConnectDB opens the configured store and applies the schema.
func ConnectDB(ctx context.Context, cfg common.StoreConfig, logger *slog.Logger) (*repo.DB, error) {
	logger.Info("app.db.connect", "driver", cfg.Driver)
	db, err := repo.Open(ctx, repo.Config{
		Driver:           cfg.Driver,
		DSN:              cfg.DSN,
		MaxConns:         cfg.MaxConns,
		MinConns:         cfg.MinConns,
		MaxConnLifetime:  cfg.MaxConnLifetime,
		MaxConnIdleTime:  cfg.MaxConnIdleTime,
		DialTimeout:      cfg.DialTimeout,
		StatementTimeout: cfg.StatementTimeout,
	}, logger)
	if err != nil {
		logger.Error("app.db.connect_failed", "error", err)
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		logger.Error("app.db.migrate_failed", "error", err)
		return nil, err
	}

	logger.Info("app.db.connected", "driver", db.Driver())
	return db, nil
}

// PingDB pings the database to ensure it's responsive
func PingDB(ctx context.Context, db *repo.DB, logger *slog.Logger, timeout time.Duration) error {
	logger.Debug("app.db.ping")
	if err := db.HealthCheck(ctx, timeout); err != nil {
		logger.Error("app.db.ping_failed", "error", err)
		return err
	}
	return nil
}
