package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"media-catalog/internal/logging"
	"media-catalog/internal/metrics"
)

// Default timeout for database operations
const defaultTimeout = 5 * time.Second

// busyTimeoutMillis bounds how long a statement waits on a locked database
// before it fails.
const busyTimeoutMillis = 1000

// Database is the persistent cache behind the in-memory catalog.
type Database struct {
	db       *sql.DB
	dbPath   string
	mu       sync.RWMutex
	failures atomic.Int64
	txStarts sync.Map // *sql.Tx -> time.Time, for the transaction duration metric
	now      func() time.Time
}

// New opens (creating if needed) the database file at dbPath.
// dbPath is the full path to the database FILE, and its parent directory
// must already exist and be writable.
// A file that is not a readable database yields a *CorruptError.
func New(ctx context.Context, dbPath string) (*Database, error) {
	logging.Info("Database path: %s", dbPath)

	// Diagnose potential permission issues
	if err := diagnoseDatabasePermissions(dbPath); err != nil {
		logging.Warn("Database permission diagnostics: %v", err)
	}

	d := &Database{dbPath: dbPath, now: time.Now}
	if err := d.open(ctx); err != nil {
		return nil, err
	}

	logging.Info("Database initialized successfully at %s", dbPath)
	return d, nil
}

func (d *Database) open(ctx context.Context) error {
	// busy_timeout keeps a locked database from failing at once, but only briefly
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=10000&_temp_store=MEMORY&_busy_timeout=%d",
		d.dbPath, busyTimeoutMillis)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	fail := func(err error) error {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after open failure: %v", closeErr)
		}
		var ce *CorruptError
		if errors.As(err, &ce) {
			ce.Path = d.dbPath
			return ce
		}
		if isCorrupt(err) {
			return &CorruptError{Path: d.dbPath, Err: err}
		}
		return err
	}

	if err := db.PingContext(pingCtx); err != nil {
		return fail(fmt.Errorf("failed to connect to database: %w", err))
	}
	if err := quickCheck(pingCtx, db); err != nil {
		return fail(err)
	}

	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(time.Hour)

	d.db = db
	if err := d.initialize(ctx); err != nil {
		return fail(fmt.Errorf("failed to initialize database schema: %w", err))
	}
	d.UpdateDBMetrics()
	return nil
}

// quickCheck runs sqlite's integrity quick check. Any answer other than
// "ok" means the file is damaged.
func quickCheck(ctx context.Context, db *sql.DB) error {
	var result string
	if err := db.QueryRowContext(ctx, "PRAGMA quick_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return &CorruptError{Err: fmt.Errorf("integrity check: %s", result)}
	}
	return nil
}

func (d *Database) initialize(ctx context.Context) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("initialize_schema", start, err) }()

	schema := `
	-- Cached properties of every catalogued file
	CREATE TABLE IF NOT EXISTS item_properties (
		folder_key TEXT NOT NULL,
		name_key TEXT NOT NULL,
		folder TEXT NOT NULL,
		name TEXT NOT NULL,
		properties BLOB,
		hash TEXT NOT NULL DEFAULT '',
		crc INTEGER NOT NULL DEFAULT 0,
		media_position INTEGER NOT NULL DEFAULT 0,
		size INTEGER NOT NULL DEFAULT 0,
		created INTEGER NOT NULL DEFAULT 0,
		modified INTEGER NOT NULL DEFAULT 0,
		offline INTEGER NOT NULL DEFAULT 0,
		last_scanned INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		PRIMARY KEY (folder_key, name_key)
	);

	-- Thumbnails of files, and of folders under an empty name
	CREATE TABLE IF NOT EXISTS item_thumbnails (
		folder_key TEXT NOT NULL,
		name_key TEXT NOT NULL,
		bitmap BLOB NOT NULL,
		last_scanned INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		PRIMARY KEY (folder_key, name_key)
	);

	-- Files already imported from devices
	CREATE TABLE IF NOT EXISTS item_imports (
		name TEXT NOT NULL COLLATE NOCASE,
		modified INTEGER NOT NULL,
		size INTEGER NOT NULL,
		imported INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		PRIMARY KEY (name, modified, size)
	);

	-- Responses of external web services
	CREATE TABLE IF NOT EXISTS web_service_cache (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		created_date INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);

	CREATE INDEX IF NOT EXISTS idx_web_service_cache_created ON web_service_cache(created_date);

	-- When each folder was last read from the file system
	CREATE TABLE IF NOT EXISTS folder_state (
		folder_key TEXT PRIMARY KEY,
		folder TEXT NOT NULL,
		last_indexed INTEGER NOT NULL
	);
	`

	_, err = d.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (d *Database) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.db == nil {
		return nil
	}
	err := d.db.Close()
	d.db = nil
	return err
}

// Path returns the database file path.
func (d *Database) Path() string {
	return d.dbPath
}

// Failures returns how many operations failed since the database was
// opened.
func (d *Database) Failures() int64 {
	return d.failures.Load()
}

// fail logs a failed operation and counts it.
func (d *Database) fail(operation string, err error) {
	d.failures.Add(1)
	metrics.DBFailuresTotal.Inc()
	logging.Error("Database %s failed: %v", operation, err)
}

// BeginBatch starts a transaction for batch operations.
// The caller is responsible for calling EndBatch when done.
func (d *Database) BeginBatch() (*sql.Tx, error) {
	d.mu.Lock()
	txStart := time.Now()

	if d.db == nil {
		d.mu.Unlock()
		return nil, sql.ErrConnDone
	}

	// Use background context - transaction lifetime is managed by EndBatch, not a timeout.
	tx, err := d.db.BeginTx(context.Background(), nil)
	d.mu.Unlock()

	recordQuery("begin_transaction", txStart, err)
	if err != nil {
		return nil, err
	}

	d.txStarts.Store(tx, txStart)
	return tx, nil
}

// EndBatch commits or rolls back a transaction.
func (d *Database) EndBatch(tx *sql.Tx, err error) error {
	start := time.Now()
	var duration float64
	if began, ok := d.txStarts.LoadAndDelete(tx); ok {
		duration = start.Sub(began.(time.Time)).Seconds()
	}

	if err != nil {
		metrics.DBTransactionDuration.WithLabelValues("rollback").Observe(duration)
		rbErr := tx.Rollback()
		recordQuery("rollback", start, rbErr)
		if rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback also failed: %w", rbErr))
		}
		return err
	}

	metrics.DBTransactionDuration.WithLabelValues("commit").Observe(duration)
	err = tx.Commit()
	recordQuery("commit", start, err)
	return err
}

// conn returns the open handle under the read lock. The caller must call
// the returned release function.
func (d *Database) conn() (*sql.DB, func(), error) {
	d.mu.RLock()
	if d.db == nil {
		d.mu.RUnlock()
		return nil, func() {}, sql.ErrConnDone
	}
	return d.db, d.mu.RUnlock, nil
}

// recordQuery records database query metrics
func recordQuery(operation string, start time.Time, err error) {
	duration := time.Since(start).Seconds()
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.DBQueryTotal.WithLabelValues(operation, status).Inc()
	metrics.DBQueryDuration.WithLabelValues(operation).Observe(duration)
}

// UpdateDBMetrics publishes the sizes of the database files.
func (d *Database) UpdateDBMetrics() {
	for label, suffix := range map[string]string{"main": "", "wal": "-wal", "shm": "-shm"} {
		size := int64(0)
		if info, err := os.Stat(d.dbPath + suffix); err == nil {
			size = info.Size()
		}
		metrics.DBSizeBytes.WithLabelValues(label).Set(float64(size))
	}
}

// diagnoseDatabasePermissions checks database directory and file permissions
func diagnoseDatabasePermissions(dbPath string) error {
	dir := filepath.Dir(dbPath)

	dirInfo, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("cannot stat database directory: %w", err)
	}

	logging.Debug("Database directory: %s (mode: %v)", dir, dirInfo.Mode())

	// Check if directory is writable by testing
	testFile := filepath.Join(dir, ".perm-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		return fmt.Errorf("database directory not writable: %w", err)
	}
	_ = os.Remove(testFile) // Explicitly ignore cleanup error
	logging.Debug("Database directory is writable")

	for _, path := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		logging.Debug("Database file exists: %s (mode: %v, size: %d bytes)", path, info.Mode(), info.Size())
		if info.Mode().Perm()&0o200 != 0 {
			continue
		}
		logging.Warn("Database file %s is read-only! Mode: %v - this will cause write failures", path, info.Mode())
		if chmodErr := os.Chmod(path, 0o600); chmodErr != nil {
			logging.Error("Failed to fix permissions of %s: %v", path, chmodErr)
		} else {
			logging.Info("Fixed permissions of %s", path)
		}
	}

	return nil
}
