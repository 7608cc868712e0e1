package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/secret-nick/internal/application"
	"github.com/example/secret-nick/internal/config"
	httptransport "github.com/example/secret-nick/internal/http"
	"github.com/example/secret-nick/internal/persistence"
	"github.com/example/secret-nick/internal/persistence/memory"
	"github.com/example/secret-nick/internal/persistence/sqlite"
)

type store interface {
	persistence.RoomRepository
	persistence.HealthChecker
	Migrate(ctx context.Context) error
	Close() error
}

// appOptions overrides generated values, used by tests.
type appOptions struct {
	codes func() string
	now   func() time.Time
}

type app struct {
	store   store
	handler http.Handler
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger, opts appOptions) (*app, error) {
	if opts.codes == nil {
		opts.codes = application.NewCodeGenerator()
	}
	if opts.now == nil {
		opts.now = func() time.Time { return time.Now().UTC() }
	}

	st, err := openStore(ctx, cfg, logger, opts.now)
	if err != nil {
		return nil, err
	}

	handler, err := newHandler(cfg, st, logger, opts)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	return &app{store: st, handler: handler}, nil
}

func (a *app) Handler() http.Handler { return a.handler }

func (a *app) Close() error { return a.store.Close() }

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger, now func() time.Time) (store, error) {
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		logger.Warn("using in-memory storage; data is lost on restart")
		return memory.New(now), nil
	case config.DriverSQLite:
		st, err := openSQLite(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func openSQLite(ctx context.Context, cfg config.Config, logger *slog.Logger) (*sqlite.Store, error) {
	sqlCfg := sqlite.DefaultConfig(cfg.Storage.DSN)
	sqlCfg.BusyTimeout = cfg.Storage.BusyTimeout
	st, err := sqlite.Open(ctx, sqlCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open sqlite storage: %w", err)
	}
	return st, nil
}

func newHandler(cfg config.Config, st store, logger *slog.Logger, opts appOptions) (http.Handler, error) {
	rooms := persistence.NewDomainRooms(st)
	limits := application.RoomLimits{
		MinUsers:  cfg.Room.MinUsers,
		MaxUsers:  cfg.Room.MaxUsers,
		MaxWishes: cfg.Room.MaxWishes,
	}

	roomService := application.NewRoomServiceWithLogger(rooms, opts.codes, opts.now, limits, logger)
	userService := application.NewUserServiceWithLogger(rooms, opts.codes, logger)

	createLimit, err := httptransport.NewIPRateLimiter(cfg.RateLimit.Create, logger)
	if err != nil {
		return nil, fmt.Errorf("ratelimit.create: %w", err)
	}
	joinLimit, err := httptransport.NewIPRateLimiter(cfg.RateLimit.Join, logger)
	if err != nil {
		return nil, fmt.Errorf("ratelimit.join: %w", err)
	}

	return httptransport.NewRouter(httptransport.RouterConfig{
		Rooms:         httptransport.NewRoomHandler(roomService, logger),
		Users:         httptransport.NewUserHandler(userService, logger),
		Health:        httptransport.NewHealthHandler(st, logger),
		Logger:        logger,
		CreateLimit:   createLimit,
		JoinLimit:     joinLimit,
		EnableMetrics: cfg.Metrics.Enabled,
	}), nil
}
