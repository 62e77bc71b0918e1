// Package legacy reads and retires rows in the relational store being
// decommissioned. The store holds only previously cached file payloads
// in a two-column posts(id, file) table, plus a destroyed(id, file)
// archive for payloads whose posts the remote source no longer serves.
package legacy

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	_ "github.com/go-sql-driver/mysql"
)

// Bridge wraps the legacy database handle.
type Bridge struct {
	db *sql.DB
}

// Open connects to the legacy MariaDB instance.
func Open(dsn string) (*Bridge, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open legacy db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect legacy db: %w", err)
	}
	return &Bridge{db: db}, nil
}

// NewBridge wraps an existing handle. The caller owns the connection.
func NewBridge(db *sql.DB) *Bridge {
	return &Bridge{db: db}
}

// LowestID returns the smallest remaining post id, or false when the
// legacy table is empty. Callers use it to find the next unmigrated row.
func (b *Bridge) LowestID() (int64, bool, error) {
	var id int64
	err := b.db.QueryRow("SELECT id FROM posts ORDER BY id ASC LIMIT 1").Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("legacy lowest id: %w", err)
	}
	return id, true, nil
}

// FileFor returns the cached payload for a post id. A row with a NULL
// file column counts as absent.
func (b *Bridge) FileFor(id int64) ([]byte, bool, error) {
	var file []byte
	err := b.db.QueryRow("SELECT file FROM posts WHERE id = ?", id).Scan(&file)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("legacy file for %d: %w", id, err)
	}
	if file == nil {
		return nil, false, nil
	}
	return file, true, nil
}

// Purge removes the row for id. When destroyed is true and a payload
// exists, the payload is first copied into the destroyed archive: the
// remote source will never serve this content again, so the legacy copy
// is the last one. Deletion is unconditional once archival completes.
func (b *Bridge) Purge(id int64, destroyed bool) error {
	if destroyed {
		file, ok, err := b.FileFor(id)
		if err != nil {
			return err
		}
		if ok {
			if _, err := b.db.Exec("INSERT INTO destroyed (id, file) VALUES (?, ?)", id, file); err != nil {
				return fmt.Errorf("archive destroyed %d: %w", id, err)
			}
			slog.Info("archived destroyed post file", "id", id)
		}
	}
	if _, err := b.db.Exec("DELETE FROM posts WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete legacy %d: %w", id, err)
	}
	slog.Info("deleted from legacy store", "id", id)
	return nil
}

// Close releases the database handle.
func (b *Bridge) Close() error {
	return b.db.Close()
}
