package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/nerrad567/sitewatch/internal/infrastructure/config"
	"github.com/nerrad567/sitewatch/internal/infrastructure/logging"
)

func testLogger() *logging.Logger {
	return logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")
}

func testStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(context.Background(), Config{
		Path:        filepath.Join(t.TempDir(), "test.db"),
		WALMode:     true,
		BusyTimeout: 5,
	}, testLogger())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() {
		st.Close() //nolint:errcheck // Test cleanup
	})
	return st
}

// TestOpen verifies store construction against the filesystem.
func TestOpen(t *testing.T) {
	t.Run("creates database file", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "test.db")

		st, err := Open(context.Background(), Config{Path: dbPath, WALMode: true, BusyTimeout: 5}, testLogger())
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer st.Close() //nolint:errcheck // Test cleanup

		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			t.Error("database file was not created")
		}
	})

	t.Run("creates directory if not exists", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "subdir", "nested", "test.db")

		st, err := Open(context.Background(), Config{Path: dbPath, BusyTimeout: 5}, testLogger())
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer st.Close() //nolint:errcheck // Test cleanup

		if _, err := os.Stat(filepath.Dir(dbPath)); os.IsNotExist(err) {
			t.Error("database directory was not created")
		}
	})

	t.Run("requires a path", func(t *testing.T) {
		if _, err := Open(context.Background(), Config{}, testLogger()); err == nil {
			t.Error("Open() with empty path should fail")
		}
	})

	t.Run("returns path", func(t *testing.T) {
		st := testStore(t)
		if st.Path() == "" {
			t.Error("Path() returned empty string")
		}
	})
}

// TestIsAlive verifies the liveness probe in both store states.
func TestIsAlive(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	if !st.IsAlive(ctx) {
		t.Error("IsAlive() = false on an open store, want true")
	}

	if err := st.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if st.IsAlive(ctx) {
		t.Error("IsAlive() = true on a closed store, want false")
	}
}

// TestClose verifies close semantics and the fail-fast contract afterwards.
func TestClose(t *testing.T) {
	t.Run("is idempotent", func(t *testing.T) {
		st := testStore(t)
		if err := st.Close(); err != nil {
			t.Fatalf("first Close() error = %v", err)
		}
		if err := st.Close(); err != nil {
			t.Errorf("second Close() error = %v, want nil", err)
		}
	})

	t.Run("operations after close fail fast", func(t *testing.T) {
		st := testStore(t)
		if err := st.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}

		if _, err := st.ListTables(context.Background()); !errors.Is(err, ErrNotInitialized) {
			t.Errorf("ListTables() after close error = %v, want ErrNotInitialized", err)
		}
		if err := st.Insert(context.Background(), "widgets", []Row{{"1"}}, []string{"id"}); !errors.Is(err, ErrNotInitialized) {
			t.Errorf("Insert() after close error = %v, want ErrNotInitialized", err)
		}
	})

	t.Run("zero value store is unusable", func(t *testing.T) {
		var st Store
		if _, err := st.ListTables(context.Background()); !errors.Is(err, ErrNotInitialized) {
			t.Errorf("ListTables() error = %v, want ErrNotInitialized", err)
		}
		if st.IsAlive(context.Background()) {
			t.Error("IsAlive() = true on zero value store")
		}
		if err := st.Close(); err != nil {
			t.Errorf("Close() on zero value store error = %v, want nil", err)
		}
	})
}
