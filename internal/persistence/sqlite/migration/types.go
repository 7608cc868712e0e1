package migration

import (
	"context"
	"time"
)

// Migration is one versioned SQL script.
type Migration struct {
	Version     string
	Description string
	SQL         string
	FilePath    string
	Checksum    string
}

// Manager orchestrates scanning, ordering and applying migrations.
type Manager interface {
	RunMigrations(ctx context.Context) error
	GetPendingMigrations(ctx context.Context) ([]Migration, error)
	GetMigrationStatus(ctx context.Context) (*Status, error)
}

// Scanner loads migrations from a source.
type Scanner interface {
	ScanMigrations() ([]Migration, error)
	ValidateFileName(filename string) error
}

// Executor applies migrations and tracks applied versions.
type Executor interface {
	InitializeVersionTable(ctx context.Context) error
	// ApplyMigration executes the script and records it in one transaction.
	ApplyMigration(ctx context.Context, migration Migration) (time.Duration, error)
	GetAppliedVersions(ctx context.Context) ([]AppliedMigration, error)
}

// Status summarises the schema state.
type Status struct {
	CurrentVersion    string
	PendingCount      int
	AppliedMigrations []AppliedMigration
	PendingMigrations []Migration
}

// AppliedMigration is a row of schema_migrations.
type AppliedMigration struct {
	Version       string
	AppliedAt     time.Time
	ExecutionTime time.Duration
	Checksum      string
}
