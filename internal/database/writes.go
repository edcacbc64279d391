package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"media-catalog/internal/index"
	"media-catalog/internal/logging"
	"media-catalog/internal/metadata"
	"media-catalog/internal/metrics"
	"media-catalog/internal/paths"
)

const (
	upsertPropertiesSQL = `
	INSERT INTO item_properties (folder_key, name_key, folder, name, properties, hash, crc,
		media_position, size, created, modified, offline, last_scanned)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(folder_key, name_key) DO UPDATE SET
		folder = excluded.folder,
		name = excluded.name,
		properties = excluded.properties,
		hash = excluded.hash,
		crc = CASE WHEN excluded.crc != 0 THEN excluded.crc ELSE item_properties.crc END,
		media_position = CASE WHEN excluded.media_position != 0
			THEN excluded.media_position ELSE item_properties.media_position END,
		size = excluded.size,
		created = excluded.created,
		modified = excluded.modified,
		offline = excluded.offline,
		last_scanned = excluded.last_scanned
	`

	upsertPositionSQL = `
	INSERT INTO item_properties (folder_key, name_key, folder, name, media_position, last_scanned)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(folder_key, name_key) DO UPDATE SET media_position = excluded.media_position
	`

	upsertCRCSQL = `
	INSERT INTO item_properties (folder_key, name_key, folder, name, crc, last_scanned)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(folder_key, name_key) DO UPDATE SET crc = excluded.crc
	`

	upsertThumbnailSQL = `
	INSERT INTO item_thumbnails (folder_key, name_key, bitmap, last_scanned)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(folder_key, name_key) DO UPDATE SET
		bitmap = excluded.bitmap,
		last_scanned = excluded.last_scanned
	`

	deleteThumbnailSQL = `DELETE FROM item_thumbnails WHERE folder_key = ? AND name_key = ?`

	upsertFolderSQL = `
	INSERT INTO folder_state (folder_key, folder, last_indexed)
	VALUES (?, ?, ?)
	ON CONFLICT(folder_key) DO UPDATE SET
		folder = excluded.folder,
		last_indexed = excluded.last_indexed
	`

	deletePropertiesSQL = `DELETE FROM item_properties WHERE folder_key = ? AND name_key = ?`
)

// batch caches prepared statements for the life of one transaction.
type batch struct {
	tx    *sql.Tx
	stmts map[string]*sql.Stmt
}

func (b *batch) exec(ctx context.Context, query string, args ...any) error {
	stmt, ok := b.stmts[query]
	if !ok {
		var err error
		stmt, err = b.tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("prepare: %w", err)
		}
		b.stmts[query] = stmt
	}
	_, err := stmt.ExecContext(ctx, args...)
	return err
}

func (b *batch) close() {
	for _, stmt := range b.stmts {
		if err := stmt.Close(); err != nil {
			logging.Debug("failed to close statement: %v", err)
		}
	}
}

// fileKeys returns the row key of a file; folder thumbnails use an empty
// name key.
func fileKeys(w index.Write) (folderKey, nameKey, name string) {
	if w.File.IsEmpty() {
		return w.Folder.Key(), "", ""
	}
	return w.File.Folder().Key(), paths.Fold(w.File.Name()), w.File.Name()
}

// PerformWrites applies queued writes in one transaction. Either all of
// them are applied or none are. Failures are logged and counted before
// being returned.
func (d *Database) PerformWrites(ctx context.Context, writes []index.Write) error {
	if len(writes) == 0 {
		return nil
	}
	start := time.Now()
	var err error
	defer func() {
		recordQuery("perform_writes", start, err)
		metrics.DBTransactionDuration.WithLabelValues("write_batch").Observe(time.Since(start).Seconds())
	}()

	tx, err := d.BeginBatch()
	if err != nil {
		d.fail("begin write batch", err)
		return err
	}

	b := &batch{tx: tx, stmts: make(map[string]*sql.Stmt)}
	now := d.now().UnixNano()
	var applyErr error
	for _, w := range writes {
		if applyErr = b.apply(ctx, w, now); applyErr != nil {
			applyErr = fmt.Errorf("%s write for %s: %w", w.Kind, describe(w), applyErr)
			break
		}
	}
	b.close()

	if err = d.EndBatch(tx, applyErr); err != nil {
		d.fail("perform writes", err)
		return err
	}
	logging.Debug("Wrote %d queued changes in %v", len(writes), time.Since(start))
	return nil
}

func describe(w index.Write) string {
	if w.File.IsEmpty() {
		return w.Folder.Text()
	}
	return w.File.Text()
}

func (b *batch) apply(ctx context.Context, w index.Write, now int64) error {
	folderKey, nameKey, name := fileKeys(w)
	folder := w.Folder.Text()
	if !w.File.IsEmpty() {
		folder = w.File.Folder().Text()
	}

	switch w.Kind {
	case index.WriteProperties:
		var packed []byte
		if !w.Metadata.IsEmpty() {
			packed = metadata.Pack(w.Metadata)
		}
		a := w.Attributes
		return b.exec(ctx, upsertPropertiesSQL, folderKey, nameKey, folder, name, packed, a.Hash,
			int64(w.CRC), w.Position, a.Size, toNanos(a.Created), toNanos(a.Modified), a.Offline, now)

	case index.WritePosition:
		return b.exec(ctx, upsertPositionSQL, folderKey, nameKey, folder, name, w.Position, now)

	case index.WriteCRC:
		return b.exec(ctx, upsertCRCSQL, folderKey, nameKey, folder, name, int64(w.CRC), now)

	case index.WriteThumbnail:
		if len(w.Thumbnail) == 0 {
			return b.exec(ctx, deleteThumbnailSQL, folderKey, nameKey)
		}
		return b.exec(ctx, upsertThumbnailSQL, folderKey, nameKey, w.Thumbnail, now)

	case index.WriteFolder:
		return b.exec(ctx, upsertFolderSQL, w.Folder.Key(), w.Folder.Text(), toNanos(w.LastIndexed))

	case index.WriteRemove:
		if err := b.exec(ctx, deletePropertiesSQL, folderKey, nameKey); err != nil {
			return err
		}
		return b.exec(ctx, deleteThumbnailSQL, folderKey, nameKey)

	default:
		return fmt.Errorf("unknown write kind %d", w.Kind)
	}
}
