package cli

import (
	"context"
	"fmt"
	"log"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/reimbursement-service/internal/config"
	"github.com/spec-kit/reimbursement-service/internal/observability"
	"github.com/spec-kit/reimbursement-service/internal/persistence"
	"github.com/spec-kit/reimbursement-service/internal/repository"
)

// runtime holds the opened backends for one command invocation.
type runtime struct {
	cfg    *config.Config
	logger *zap.Logger

	tickets repository.TicketStore
	users   repository.UserRepository

	postgres *persistence.Postgres
	sqlite   *persistence.SQLite
}

func loadConfig(opts *RootOptions) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if opts.LogLevel != "" {
		cfg.Logger.Level = opts.LogLevel
	}
	if opts.Driver != "" {
		cfg.Store.Driver = strings.ToLower(opts.Driver)
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *zap.Logger {
	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Printf("failed to init logger, falling back to nop: %v", err)
		return zap.NewNop()
	}
	return logger
}

// openRuntime connects the configured store. Schemas are applied when
// migrate is set; SQLite always ensures its schema on open.
func openRuntime(ctx context.Context, cfg *config.Config, logger *zap.Logger, migrate bool) (*runtime, error) {
	rt := &runtime{cfg: cfg, logger: logger}

	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if migrate {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
				pg.Close()
				return nil, fmt.Errorf("run migrations: %w", err)
			}
		}
		rt.postgres = pg
		rt.tickets = repository.NewTicketRepository(pg.PoolHandle())
		rt.users = repository.NewUserRepository(pg.PoolHandle())
	case config.StoreDriverSQLite:
		db, err := persistence.OpenSQLite(ctx, cfg.SQLite, logger)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		rt.sqlite = db
		rt.tickets = repository.NewSQLiteTicketRepository(db.DB)
		rt.users = repository.NewSQLiteUserRepository(db.DB)
	case config.StoreDriverMemory:
		logger.Warn("using in-memory store; data is lost on exit")
		rt.tickets = repository.NewMemoryTicketStore()
		rt.users = repository.NewMemoryUserRepository()
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}

	logger.Info("ticket store ready", zap.String("driver", cfg.Store.Driver))
	return rt, nil
}

func (rt *runtime) Close() {
	rt.postgres.Close()
	if err := rt.sqlite.Close(); err != nil {
		rt.logger.Warn("close sqlite", zap.Error(err))
	}
}
