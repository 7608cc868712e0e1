package sqlite

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/secret-nick/internal/persistence/sqlite/migration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Store is the SQLite backed persistence layer. It implements
// persistence.RoomRepository and persistence.HealthChecker.
type Store struct {
	*RoomRepository
	pool   *ConnectionPool
	logger *slog.Logger
}

// Open connects to the database described by cfg. Call Migrate before use.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pool, err := NewConnectionPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{
		RoomRepository: NewRoomRepository(pool, func() time.Time { return time.Now().UTC() }),
		pool:           pool,
		logger:         logger,
	}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.pool.Close()
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate applies all pending embedded migrations.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.migrations().RunMigrations(ctx); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}

// MigrationStatus reports applied and pending embedded migrations.
func (s *Store) MigrationStatus(ctx context.Context) (*migration.Status, error) {
	return s.migrations().GetMigrationStatus(ctx)
}

func (s *Store) migrations() migration.Manager {
	return migration.NewManager(
		migration.NewScanner(migrationFiles, "migrations"),
		migration.NewSQLiteExecutor(s.pool.DB()),
		s.logger,
	)
}
