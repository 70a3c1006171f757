package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/librario/lending-api/internal/api"
	"github.com/librario/lending-api/internal/core/ports"
	"github.com/librario/lending-api/internal/core/service"
	"github.com/librario/lending-api/internal/infrastructure/config"
	"github.com/librario/lending-api/internal/infrastructure/db/mongo"
	"github.com/librario/lending-api/internal/infrastructure/db/redis"
	"github.com/librario/lending-api/internal/infrastructure/db/sqlstore"
	"github.com/librario/lending-api/internal/infrastructure/http/handlers"
	"github.com/librario/lending-api/internal/infrastructure/queue"
)

const (
	devJWTSecret    = "development-only-secret"
	shutdownTimeout = 10 * time.Second
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
}

func serve(ctx context.Context) error {
	cfg, log, db, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.JWTSecret == "" {
		log.Warn().Msg("JWT_SECRET not set, using the development secret")
		cfg.JWTSecret = devJWTSecret
	}

	checks := []handlers.DependencyCheck{{Name: "database", Ping: db.Ping}}

	sessions, closeRedis, err := openSessionCache(ctx, cfg, log, &checks)
	if err != nil {
		return err
	}
	defer closeRedis()

	workerCtx, stopWorkers := context.WithCancel(context.WithoutCancel(ctx))
	publisher, closeAudit, err := openAuditTrail(ctx, workerCtx, cfg, log, &checks)
	if err != nil {
		stopWorkers()
		return err
	}
	defer closeAudit()
	defer stopWorkers()

	users := sqlstore.NewUserRepository(db)
	books := sqlstore.NewBookRepository(db)
	penalties := sqlstore.NewPenaltyRepository(db)

	e := api.NewRouter(api.Deps{
		Auth:    service.NewAuthService(users, sessions, cfg.JWTSecret, cfg.TokenTTL, log),
		Lending: service.NewLendingService(books, users, penalties, publisher, log),
		Users:   service.NewUserService(users, books, penalties, sessions, log),
		Checks:  checks,
		Log:     log,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Msg("http server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// openSessionCache connects Redis when configured. Without it sessions are
// read from the database on every request. checks may be nil.
func openSessionCache(ctx context.Context, cfg *config.Config, log zerolog.Logger, checks *[]handlers.DependencyCheck) (ports.SessionCache, func(), error) {
	if cfg.Redis.Addr == "" {
		log.Info().Msg("redis not configured, session cache disabled")
		return nil, func() {}, nil
	}

	rdb, err := redis.Connect(ctx, redis.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Timeout:  cfg.StoreTimeout,
	})
	if err != nil {
		return nil, nil, err
	}

	if checks != nil {
		*checks = append(*checks, handlers.DependencyCheck{Name: "redis", Ping: redis.Ping(rdb)})
	}
	return redis.NewSessionCache(rdb), func() { _ = rdb.Close() }, nil
}

// openAuditTrail connects MongoDB and starts the audit dispatcher when
// configured. Without it circulation events are not recorded.
func openAuditTrail(ctx, workerCtx context.Context, cfg *config.Config, log zerolog.Logger, checks *[]handlers.DependencyCheck) (ports.EventPublisher, func(), error) {
	if cfg.Mongo.URI == "" {
		log.Info().Msg("mongo not configured, circulation audit disabled")
		return nil, func() {}, nil
	}

	client, mdb, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return nil, nil, err
	}

	repo := mongo.NewAuditRepository(mdb)
	if err := repo.EnsureIndexes(ctx); err != nil {
		log.Warn().Err(err).Msg("circulation indexes not created")
	}

	dispatcher := queue.NewDispatcher(cfg.AuditWorkers, service.NewAuditService(repo, log), log)
	dispatcher.Start(workerCtx)

	*checks = append(*checks, handlers.DependencyCheck{Name: "mongodb", Ping: mongo.Ping(client)})

	closeFn := func() {
		dispatcher.Wait()
		disconnectCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = client.Disconnect(disconnectCtx)
	}
	return dispatcher, closeFn, nil
}
