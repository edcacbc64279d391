package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"media-catalog/internal/logging"
	"media-catalog/internal/metrics"
	"media-catalog/internal/paths"
)

// webCacheMaxAge is how long web service responses are kept.
const webCacheMaxAge = 30 * 24 * time.Hour

// CleanResult counts the rows Clean removed.
type CleanResult struct {
	Items      int64
	Thumbnails int64
	Folders    int64
	WebCache   int64
}

// Clean removes rows of folders that are no longer indexed, thumbnails
// without an item, and expired web cache entries. An empty indexed list
// leaves folder rows alone.
func (d *Database) Clean(ctx context.Context, indexed []paths.Folder) (CleanResult, error) {
	start := time.Now()
	var (
		res CleanResult
		err error
	)
	defer func() {
		recordQuery("clean", start, err)
		metrics.DBTransactionDuration.WithLabelValues("clean").Observe(time.Since(start).Seconds())
	}()

	tx, err := d.BeginBatch()
	if err != nil {
		d.fail("begin clean", err)
		return res, err
	}

	cleanErr := func() error {
		exec := func(query string, args ...any) (int64, error) {
			r, err := tx.ExecContext(ctx, query, args...)
			if err != nil {
				return 0, err
			}
			return r.RowsAffected()
		}

		if len(indexed) > 0 {
			if _, err := exec("CREATE TEMP TABLE IF NOT EXISTS keep_folders (folder_key TEXT PRIMARY KEY)"); err != nil {
				return err
			}
			if _, err := exec("DELETE FROM keep_folders"); err != nil {
				return err
			}
			stmt, err := tx.PrepareContext(ctx, "INSERT OR IGNORE INTO keep_folders (folder_key) VALUES (?)")
			if err != nil {
				return err
			}
			for _, f := range indexed {
				if _, err := stmt.ExecContext(ctx, f.Key()); err != nil {
					_ = stmt.Close()
					return err
				}
			}
			if err := stmt.Close(); err != nil {
				return err
			}

			const gone = "folder_key NOT IN (SELECT folder_key FROM keep_folders)"
			if res.Items, err = exec("DELETE FROM item_properties WHERE " + gone); err != nil {
				return err
			}
			if res.Thumbnails, err = exec("DELETE FROM item_thumbnails WHERE " + gone); err != nil {
				return err
			}
			if res.Folders, err = exec("DELETE FROM folder_state WHERE " + gone); err != nil {
				return err
			}
			if _, err := exec("DROP TABLE keep_folders"); err != nil {
				return err
			}
		}

		orphans, err := exec(`
			DELETE FROM item_thumbnails
			WHERE name_key != '' AND NOT EXISTS (
				SELECT 1 FROM item_properties p
				WHERE p.folder_key = item_thumbnails.folder_key AND p.name_key = item_thumbnails.name_key
			)`)
		if err != nil {
			return err
		}
		res.Thumbnails += orphans

		cutoff := d.now().Add(-webCacheMaxAge).Unix()
		res.WebCache, err = exec("DELETE FROM web_service_cache WHERE created_date < ?", cutoff)
		return err
	}()

	if err = d.EndBatch(tx, cleanErr); err != nil {
		d.fail("clean", err)
		return CleanResult{}, err
	}
	logging.Info("Database clean removed %d items, %d thumbnails, %d folders, %d cache entries",
		res.Items, res.Thumbnails, res.Folders, res.WebCache)
	return res, nil
}

// Maintenance compacts the database. With reset it deletes the database
// files and starts over with an empty schema, which is the recovery path
// for a corrupt or failing database.
func (d *Database) Maintenance(ctx context.Context, reset bool) error {
	if reset {
		return d.reset(ctx)
	}

	start := time.Now()
	var err error
	defer func() { recordQuery("vacuum", start, err) }()

	db, release, err := d.conn()
	if err != nil {
		return err
	}
	defer release()

	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	if _, err = db.ExecContext(ctx, "VACUUM"); err != nil {
		d.fail("vacuum", err)
		return err
	}
	if _, err = db.ExecContext(ctx, "PRAGMA optimize"); err != nil {
		d.fail("optimize", err)
		return err
	}
	d.UpdateDBMetrics()
	logging.Info("Database maintenance completed in %v", time.Since(start))
	return nil
}

func (d *Database) reset(ctx context.Context) error {
	logging.Warn("Resetting database %s", d.dbPath)

	d.mu.Lock()
	if d.db != nil {
		if err := d.db.Close(); err != nil {
			logging.Warn("failed to close database before reset: %v", err)
		}
		d.db = nil
	}
	err := Remove(d.dbPath)
	d.mu.Unlock()
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.open(ctx); err != nil {
		return fmt.Errorf("failed to recreate database: %w", err)
	}
	d.failures.Store(0)
	logging.Info("Database recreated at %s", d.dbPath)
	return nil
}

// Remove deletes the database file at dbPath with its WAL and shared-memory
// companions. Missing files are ignored. The database must not be open.
func Remove(dbPath string) error {
	var errs []error
	for _, suffix := range []string{"", "-wal", "-shm"} {
		if err := os.Remove(dbPath + suffix); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("failed to remove database files: %w", err)
	}
	return nil
}
