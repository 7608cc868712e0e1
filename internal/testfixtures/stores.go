package testfixtures

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/secret-nick/internal/persistence"
	"github.com/example/secret-nick/internal/persistence/memory"
	"github.com/example/secret-nick/internal/persistence/sqlite"
)

// StoreHarness exposes a room repository for integration-style persistence tests.
type StoreHarness struct {
	Name  string
	Rooms persistence.RoomRepository

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *StoreHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness opens a migrated SQLite store in a temporary directory. The
// store is closed automatically when the test ends.
func NewSQLiteHarness(tb testing.TB) *StoreHarness {
	tb.Helper()

	cfg := sqlite.DefaultConfig(filepath.Join(tb.TempDir(), "secretnick.db"))
	store, err := sqlite.Open(context.Background(), cfg, nil)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}
	if err := store.Migrate(context.Background()); err != nil {
		_ = store.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &StoreHarness{
		Name:  "sqlite",
		Rooms: store,
		cleanup: func() {
			_ = store.Close()
		},
	}
	tb.Cleanup(harness.Close)
	return harness
}

// NewMemoryHarness returns an in-memory store.
func NewMemoryHarness(tb testing.TB) *StoreHarness {
	tb.Helper()
	return &StoreHarness{Name: "memory", Rooms: memory.New(NewClock(time.Time{}).NowFunc())}
}

// AllStores returns a harness per storage driver.
func AllStores(tb testing.TB) []*StoreHarness {
	tb.Helper()
	return []*StoreHarness{NewMemoryHarness(tb), NewSQLiteHarness(tb)}
}
