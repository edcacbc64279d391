package database

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// WebCacheGet returns a cached web service response.
func (d *Database) WebCacheGet(ctx context.Context, key string) (string, bool) {
	start := time.Now()
	var err error
	defer func() { recordQuery("web_cache_get", start, err) }()

	db, release, err := d.conn()
	if err != nil {
		return "", false
	}
	defer release()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var value string
	err = db.QueryRowContext(ctx, "SELECT value FROM web_service_cache WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		err = nil
		return "", false
	}
	if err != nil {
		d.fail("web cache get", err)
		return "", false
	}
	return value, true
}

// WebCacheSet stores a web service response, replacing any older one.
func (d *Database) WebCacheSet(ctx context.Context, key, value string) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("web_cache_set", start, err) }()

	db, release, err := d.conn()
	if err != nil {
		return err
	}
	defer release()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = db.ExecContext(ctx, `
		INSERT INTO web_service_cache (key, value, created_date) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, created_date = excluded.created_date
	`, key, value, d.now().Unix())
	if err != nil {
		d.fail("web cache set", err)
	}
	return err
}
