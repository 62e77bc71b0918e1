package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"boorusync/pkg/domain"
	"boorusync/pkg/remote"
)

// ErrLegacyNotConfigured reports an operation that needs the legacy
// store when none was wired.
var ErrLegacyNotConfigured = errors.New("legacy store not configured")

// RangeResult summarizes one migrateRange run.
type RangeResult struct {
	Migrated  int `json:"migrated"`
	Destroyed int `json:"destroyed"`
}

// Migrate resolves a single id and retires its legacy row: with archival
// when the id turned out to be destroyed, plainly when it resolved.
func (a *App) Migrate(ctx context.Context, id int64) (*domain.Post, error) {
	p, err := a.ResolvePost(ctx, id)
	if err != nil {
		return nil, err
	}
	destroyed, err := a.store.IsDestroyed(id)
	if err != nil {
		return nil, fmt.Errorf("check tombstone %d: %w", id, err)
	}
	if destroyed || p != nil {
		if err := a.purgeLegacy(id, destroyed); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// MigrateRange migrates the contiguous id range [startID, startID+count)
// with one bulk remote request. Ids the bulk response omits are
// tombstoned and purged with archival. The range is not atomic: a
// failure leaves earlier ids migrated and purged, and the caller resumes
// with an adjusted start id. Each id's working set is released before
// the next id starts, since payloads can be large.
func (a *App) MigrateRange(ctx context.Context, startID int64, count int) (RangeResult, error) {
	var result RangeResult
	if count <= 0 {
		return result, fmt.Errorf("step size must be positive, got %d", count)
	}
	ids := make([]int64, 0, count)
	for id := startID; id < startID+int64(count); id++ {
		ids = append(ids, id)
	}
	records, err := a.remote.GetPosts(ctx, ids)
	if err != nil {
		return result, fmt.Errorf("bulk fetch [%d,%d): %w", startID, startID+int64(count), err)
	}
	recordByID := make(map[int64]remote.PostRecord, len(records))
	for _, rec := range records {
		recordByID[rec.ID] = rec
	}

	for _, id := range ids {
		rec, ok := recordByID[id]
		if !ok {
			slog.Info("post destroyed upstream", "id", id)
			if err := a.store.MarkDestroyed(id); err != nil {
				return result, fmt.Errorf("tombstone %d: %w", id, err)
			}
			if err := a.purgeLegacy(id, true); err != nil {
				return result, err
			}
			result.Destroyed++
			continue
		}
		p, err := a.ResolveRecord(ctx, rec)
		if err != nil {
			return result, err
		}
		// A bulk-listed post missing its file in the target store reuses
		// the legacy copy unconditionally; the remote fetch was already
		// skipped for it, so there is nothing to arbitrate against.
		if p != nil && !p.HasFile && a.legacy != nil {
			data, ok, err := a.legacy.FileFor(id)
			if err != nil {
				return result, err
			}
			if ok {
				slog.Info("file from legacy store for existing post", "id", id)
				if err := a.store.AttachPostFile(id, data); err != nil {
					return result, fmt.Errorf("post %d file: %w", id, err)
				}
			}
		}
		if err := a.purgeLegacy(id, false); err != nil {
			return result, err
		}
		result.Migrated++
		delete(recordByID, id)
	}
	return result, nil
}

// LowestLegacyID returns the smallest id still present in the legacy
// store.
func (a *App) LowestLegacyID() (int64, bool, error) {
	if a.legacy == nil {
		return 0, false, ErrLegacyNotConfigured
	}
	return a.legacy.LowestID()
}

// PostFile returns the stored payload and extension for a post.
func (a *App) PostFile(id int64) ([]byte, domain.Extension, bool, error) {
	return a.store.GetPostFile(id)
}

// LegacyFile returns the raw legacy payload for a post id.
func (a *App) LegacyFile(id int64) ([]byte, bool, error) {
	if a.legacy == nil {
		return nil, false, ErrLegacyNotConfigured
	}
	return a.legacy.FileFor(id)
}

func (a *App) purgeLegacy(id int64, destroyed bool) error {
	if a.legacy == nil {
		return nil
	}
	if err := a.legacy.Purge(id, destroyed); err != nil {
		return fmt.Errorf("purge legacy %d: %w", id, err)
	}
	return nil
}
