package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"media-catalog/internal/paths"
)

// LoadThumbnail returns the stored thumbnail of file. Failures are logged
// and reported as a missing thumbnail.
func (d *Database) LoadThumbnail(file paths.File) ([]byte, bool) {
	return d.loadThumbnail(file.Folder().Key(), paths.Fold(file.Name()))
}

// LoadFolderThumbnail returns the stored thumbnail of folder.
func (d *Database) LoadFolderThumbnail(folder paths.Folder) ([]byte, bool) {
	return d.loadThumbnail(folder.Key(), "")
}

func (d *Database) loadThumbnail(folderKey, nameKey string) ([]byte, bool) {
	start := time.Now()
	var err error
	defer func() { recordQuery("load_thumbnail", start, err) }()

	db, release, err := d.conn()
	if err != nil {
		return nil, false
	}
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var bitmap []byte
	err = db.QueryRowContext(ctx,
		"SELECT bitmap FROM item_thumbnails WHERE folder_key = ? AND name_key = ?",
		folderKey, nameKey,
	).Scan(&bitmap)
	if errors.Is(err, sql.ErrNoRows) {
		err = nil
		return nil, false
	}
	if err != nil {
		d.fail("load thumbnail", err)
		return nil, false
	}
	return bitmap, len(bitmap) > 0
}
