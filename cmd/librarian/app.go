package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/librario/lending-api/internal/infrastructure/config"
	"github.com/librario/lending-api/internal/infrastructure/db/sqlstore"
	"github.com/librario/lending-api/pkg/logger"
)

const serviceName = "librarian"

// bootstrap loads configuration, initialises the logger and opens the
// primary database with an up to date schema.
func bootstrap(ctx context.Context) (*config.Config, zerolog.Logger, *sqlstore.DB, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, zerolog.Nop(), nil, err
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: serviceName,
	})

	db, err := sqlstore.Connect(ctx, sqlstore.Config{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		Timeout:         cfg.StoreTimeout,
	})
	if err != nil {
		return nil, log, nil, err
	}

	if err := sqlstore.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, log, nil, fmt.Errorf("migrate: %w", err)
	}
	return cfg, log, db, nil
}
