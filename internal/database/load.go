package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"media-catalog/internal/catalog"
	"media-catalog/internal/logging"
	"media-catalog/internal/metadata"
	"media-catalog/internal/paths"
)

// FolderBatch is the cached content of one folder.
type FolderBatch struct {
	Folder      paths.Folder
	Items       []*catalog.FileItem
	LastIndexed time.Time
	Thumbnail   []byte
}

// toNanos stores times with full precision so that cached modification
// times compare equal to the file system's. The zero time is stored as 0.
func toNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

type folderState struct {
	folder      string
	lastIndexed time.Time
}

// LoadIndexValues reads the whole cache and hands it to fn one folder at a
// time, in folder key order. Folders known only from their index state are
// delivered last with no items. It returns the number of items loaded.
func (d *Database) LoadIndexValues(ctx context.Context, fn func(FolderBatch)) (int, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("load_index_values", start, err) }()

	db, release, err := d.conn()
	if err != nil {
		return 0, err
	}
	defer release()

	states, err := loadFolderStates(ctx, db)
	if err != nil {
		d.fail("load folder state", err)
		return 0, err
	}
	thumbs, err := loadFolderThumbnails(ctx, db)
	if err != nil {
		d.fail("load folder thumbnails", err)
		return 0, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT p.folder_key, p.folder, p.name, p.properties, p.hash, p.crc, p.media_position,
			p.size, p.created, p.modified, p.offline,
			EXISTS (SELECT 1 FROM item_thumbnails t
				WHERE t.folder_key = p.folder_key AND t.name_key = p.name_key)
		FROM item_properties p
		ORDER BY p.folder_key, p.name_key
	`)
	if err != nil {
		d.fail("load index values", err)
		return 0, err
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			logging.Warn("failed to close rows: %v", closeErr)
		}
	}()

	var (
		batch     *FolderBatch
		batchKey  string
		loaded    int
		delivered = make(map[string]bool)
	)
	flush := func() {
		if batch == nil {
			return
		}
		delivered[batchKey] = true
		fn(*batch)
		batch = nil
	}

	for rows.Next() {
		if err = ctx.Err(); err != nil {
			return loaded, err
		}
		var (
			folderKey, folder, name, hash string
			packed                        []byte
			crc                           uint32
			position, size                int64
			created, modified             int64
			offline, hasThumb             bool
		)
		if err = rows.Scan(&folderKey, &folder, &name, &packed, &hash, &crc, &position,
			&size, &created, &modified, &offline, &hasThumb); err != nil {
			d.fail("scan index row", err)
			return loaded, err
		}

		if batch == nil || folderKey != batchKey {
			flush()
			batchKey = folderKey
			batch = &FolderBatch{Folder: paths.NewFolder(folder), Thumbnail: thumbs[folderKey]}
			if st, ok := states[folderKey]; ok {
				batch.LastIndexed = st.lastIndexed
			}
		}

		item := catalog.NewFileItem(catalog.Attributes{
			Name:     name,
			Size:     size,
			Created:  fromNanos(created),
			Modified: fromNanos(modified),
			Hash:     hash,
			Offline:  offline,
		})
		if len(packed) > 0 {
			md, unpackErr := metadata.Unpack(packed)
			if unpackErr != nil {
				logging.Warn("Discarding unreadable metadata of %s: %v", name, unpackErr)
			} else {
				item.SetMetadata(md)
			}
		}
		item.SetCRC(crc)
		item.SetMediaPosition(position)
		item.SetHasThumbnail(hasThumb)
		batch.Items = append(batch.Items, item)
		loaded++
	}
	if err = rows.Err(); err != nil {
		d.fail("iterate index rows", err)
		return loaded, err
	}
	flush()

	for key, st := range states {
		if delivered[key] {
			continue
		}
		fn(FolderBatch{Folder: paths.NewFolder(st.folder), LastIndexed: st.lastIndexed, Thumbnail: thumbs[key]})
	}

	logging.Debug("Loaded %d cached items in %v", loaded, time.Since(start))
	return loaded, nil
}

func loadFolderStates(ctx context.Context, db *sql.DB) (map[string]folderState, error) {
	rows, err := db.QueryContext(ctx, "SELECT folder_key, folder, last_indexed FROM folder_state")
	if err != nil {
		return nil, fmt.Errorf("query folder state: %w", err)
	}
	defer rows.Close()

	out := make(map[string]folderState)
	for rows.Next() {
		var key, folder string
		var last int64
		if err := rows.Scan(&key, &folder, &last); err != nil {
			return nil, err
		}
		out[key] = folderState{folder: folder, lastIndexed: fromNanos(last)}
	}
	return out, rows.Err()
}

func loadFolderThumbnails(ctx context.Context, db *sql.DB) (map[string][]byte, error) {
	rows, err := db.QueryContext(ctx, "SELECT folder_key, bitmap FROM item_thumbnails WHERE name_key = ''")
	if err != nil {
		return nil, fmt.Errorf("query folder thumbnails: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]byte)
	for rows.Next() {
		var key string
		var bitmap []byte
		if err := rows.Scan(&key, &bitmap); err != nil {
			return nil, err
		}
		out[key] = bitmap
	}
	return out, rows.Err()
}
