package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/nerrad567/sitewatch/internal/infrastructure/logging"
)

// Store configuration constants.
const (
	// dirPermissions is the permission mode for the database directory.
	dirPermissions = 0750

	// filePermissions is the permission mode for the database file.
	filePermissions = 0600

	// msPerSecond converts seconds to milliseconds.
	msPerSecond = 1000

	// connectionTimeout is the timeout for verifying database connectivity.
	connectionTimeout = 5 * time.Second

	// connMaxIdleTime is how long the idle connection is kept open.
	connMaxIdleTime = 30 * time.Minute

	// defaultBusyTimeout is the lock wait in seconds when none is configured.
	defaultBusyTimeout = 5
)

// Row is one positional result row.
type Row = []any

// Record is one name-keyed result row.
type Record = map[string]any

// Config contains database configuration options.
// These map to the database section of config.yaml.
type Config struct {
	// Path is the filesystem path to the SQLite database file.
	// The directory will be created if it doesn't exist.
	Path string

	// WALMode enables Write-Ahead Logging for better concurrent access.
	// Recommended: true (allows concurrent reads during writes).
	WALMode bool

	// BusyTimeout is the maximum time to wait for a database lock (seconds).
	// Prevents "database is locked" errors under contention.
	BusyTimeout int

	// RiskyKeywords overrides the built-in set of SQL reserved words that
	// get backtick-quoted when used as column names. Empty keeps the default.
	RiskyKeywords []string
}

// Store is the single gateway to the SQLite file. It owns one live
// connection, serializes every statement behind an exclusive mutex, screens
// spliced identifiers through the injection guard and binds all values as
// parameters.
//
// Thread Safety:
//   - All methods are safe for concurrent use. Statements interleave at
//     operation granularity; there is no cross-statement transaction.
type Store struct {
	mu       sync.Mutex
	db       *sql.DB
	path     string
	log      *logging.Logger
	guard    Guard
	sanitize *Sanitizer
	closed   bool

	// now supplies the clock used to resolve "now"/"current_date" markers.
	// Markers resolve in UTC so their text agrees with the engine's
	// CURRENT_TIMESTAMP column defaults.
	now func() time.Time
}

// Open creates a store bound to the configured SQLite file.
//
// It performs the following setup:
//  1. Creates the database directory if it doesn't exist
//  2. Opens the database file (creates if not present)
//  3. Restricts the pool to a single connection (one writer)
//  4. Verifies the connection with a ping
//  5. Sets file permissions (0600)
//  6. Applies tuning pragmas (WAL, busy_timeout, foreign_keys) best effort;
//     a pragma failure is logged and swallowed, never fatal
//
// Parameters:
//   - ctx: Context bounding the connection verification
//   - cfg: Database configuration
//   - log: Logger for pragma and sanitiser warnings
//
// Returns:
//   - *Store: Fully usable store; no further initialisation step exists
//   - error: If the directory, open or ping fails
func Open(ctx context.Context, cfg Config, log *logging.Logger) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database: path is required")
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = defaultBusyTimeout
	}
	log = log.With("component", "database")

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(cfg.Path), dirPermissions); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	sqlDB, err := sql.Open("sqlite3", "file:"+cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// One connection total: SQLite has a single writer and the facade
	// serializes through it anyway.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, connectionTimeout)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		sqlDB.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, engineError("open", err)
	}

	// Owner read/write only. The file may not exist yet on first run; it is
	// created lazily by the first write.
	_ = os.Chmod(cfg.Path, filePermissions) //nolint:errcheck // Intentional: first run creates file later

	// Tuning pragmas are best effort, mirroring the engine defaults when one
	// is refused.
	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d;", cfg.BusyTimeout*msPerSecond),
		"PRAGMA foreign_keys = ON;",
	}
	if cfg.WALMode {
		pragmas = append(pragmas,
			"PRAGMA journal_mode = WAL;",
			"PRAGMA synchronous = NORMAL;",
		)
	}
	for _, pragma := range pragmas {
		if _, err := sqlDB.ExecContext(ctx, pragma); err != nil {
			log.Warn("pragma refused", "pragma", pragma, "error", err)
		}
	}

	return &Store{
		db:       sqlDB,
		path:     cfg.Path,
		log:      log,
		guard:    Guard{},
		sanitize: NewSanitizer(cfg.RiskyKeywords, log),
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// Path returns the filesystem path to the database file.
func (s *Store) Path() string {
	return s.path
}

// ready reports whether the store can execute statements. It must be called
// with the mutex held.
func (s *Store) ready() error {
	if s == nil || s.db == nil || s.closed {
		return ErrNotInitialized
	}
	return nil
}

// usable is the lock-free readiness precheck run before an operation
// touches the store's collaborators, so calls on a zero-value store fail
// fast instead of dereferencing them. The handle is set once at
// construction; the authoritative closed check still runs under the lock.
func (s *Store) usable() error {
	if s == nil || s.db == nil {
		return ErrNotInitialized
	}
	return nil
}

// execCommit runs a single parameterized statement under the store lock.
// The driver is in autocommit mode, so the statement is durable when the
// call returns.
func (s *Store) execCommit(ctx context.Context, op, query string, args ...any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return err
	}
	s.log.Debug("executing statement", "op", op, "query", query)
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return engineError(op, err)
	}
	return nil
}

// fetchAll runs a parameterized query under the store lock and materializes
// the complete result set before releasing it, so the returned rows outlive
// the lock. BLOB cells are normalized to strings.
func (s *Store) fetchAll(ctx context.Context, op, query string, args ...any) ([]Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return nil, err
	}
	s.log.Debug("executing query", "op", op, "query", query)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, engineError(op, err)
	}
	defer rows.Close() //nolint:errcheck // Read-only cursor, nothing to roll back

	cols, err := rows.Columns()
	if err != nil {
		return nil, engineError(op, err)
	}

	var out []Row
	for rows.Next() {
		cells := make(Row, len(cols))
		dests := make([]any, len(cols))
		for i := range cells {
			dests[i] = &cells[i]
		}
		if err := rows.Scan(dests...); err != nil {
			return nil, engineError(op, err)
		}
		for i, cell := range cells {
			if b, ok := cell.([]byte); ok {
				cells[i] = string(b)
			}
		}
		out = append(out, cells)
	}
	if err := rows.Err(); err != nil {
		return nil, engineError(op, err)
	}
	return out, nil
}

// IsAlive reports whether the underlying connection answers a trivial query.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - bool: true when the engine executed SELECT 1 successfully
func (s *Store) IsAlive(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return false
	}
	var one int
	if err := s.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		s.log.Warn("liveness probe failed", "error", err)
		return false
	}
	return true
}

// Close releases the underlying connection. It is idempotent; closing an
// already-closed or never-opened store is a no-op. Any operation after Close
// returns ErrNotInitialized.
//
// Returns:
//   - error: If closing the engine connection fails
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.db == nil {
		return nil
	}
	s.closed = true
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}
