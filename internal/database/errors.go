package database

import (
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

// CorruptError reports a database file that cannot be read. It is the one
// failure callers are expected to act on, usually by offering a rebuild
// through Maintenance(ctx, true).
type CorruptError struct {
	Path string
	Err  error
}

func (e *CorruptError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("database is corrupt: %v", e.Err)
	}
	return fmt.Sprintf("database %s is corrupt or not a database: %v", e.Path, e.Err)
}

func (e *CorruptError) Unwrap() error { return e.Err }

// isCorrupt reports whether err is sqlite's corruption or not-a-database
// error.
func isCorrupt(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code == sqlite3.ErrCorrupt || se.Code == sqlite3.ErrNotADB
}

// IsBusy reports whether err means the database was locked by another
// connection for longer than the busy timeout.
func IsBusy(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked
}
