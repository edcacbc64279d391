package database

import (
	"context"
	"time"
)

// RecordImport remembers that a file with this name, modification time and
// size was imported.
func (d *Database) RecordImport(ctx context.Context, name string, modified time.Time, size int64) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("record_import", start, err) }()

	db, release, err := d.conn()
	if err != nil {
		return err
	}
	defer release()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = db.ExecContext(ctx, `
		INSERT INTO item_imports (name, modified, size, imported) VALUES (?, ?, ?, ?)
		ON CONFLICT(name, modified, size) DO UPDATE SET imported = excluded.imported
	`, name, modified.Unix(), size, d.now().Unix())
	if err != nil {
		d.fail("record import", err)
	}
	return err
}

// IsImported reports whether a matching file was imported before. Names
// compare case-insensitively; modification times to the second.
func (d *Database) IsImported(ctx context.Context, name string, modified time.Time, size int64) bool {
	start := time.Now()
	var err error
	defer func() { recordQuery("is_imported", start, err) }()

	db, release, err := d.conn()
	if err != nil {
		return false
	}
	defer release()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var found bool
	err = db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM item_imports WHERE name = ? AND modified = ? AND size = ?)
	`, name, modified.Unix(), size).Scan(&found)
	if err != nil {
		d.fail("is imported", err)
		return false
	}
	return found
}
