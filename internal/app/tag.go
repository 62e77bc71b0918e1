package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"boorusync/pkg/domain"
	"boorusync/pkg/remote"
	"boorusync/pkg/store"
)

// resolveTags finds or creates tags for the given names, which are
// assumed unique. Lookups for unknown names are batched to respect the
// upstream per-request limit. Names the remote source does not
// recognize are dropped.
func (a *App) resolveTags(ctx context.Context, names []string) ([]domain.Tag, error) {
	if len(names) == 0 {
		return nil, nil
	}
	tags, err := a.store.GetTagsByText(names)
	if err != nil {
		return nil, fmt.Errorf("load tags: %w", err)
	}
	known := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		known[t.Text] = struct{}{}
	}
	outstanding := make([]string, 0, len(names)-len(tags))
	for _, name := range names {
		if _, ok := known[name]; !ok {
			outstanding = append(outstanding, name)
		}
	}

	for start := 0; start < len(outstanding); start += remote.MaxTagLookup {
		end := min(start+remote.MaxTagLookup, len(outstanding))
		chunk := outstanding[start:end]
		records, err := a.remote.GetTagsByName(ctx, chunk)
		if err != nil {
			return nil, fmt.Errorf("fetch tags: %w", err)
		}
		for _, rec := range records {
			category, err := domain.ParseTagCategory(rec.Category)
			if err != nil {
				return nil, fmt.Errorf("tag %q: %w", rec.Name, err)
			}
			tag := domain.Tag{ID: rec.ID, Text: rec.Name, Category: category}
			if err := a.store.CreateTag(tag); err != nil {
				if errors.Is(err, store.ErrConflict) {
					// Another resolution created it between our store
					// lookup and now; keep theirs.
					tags = appendExistingTag(tags, a.store, rec.Name)
					continue
				}
				return nil, fmt.Errorf("create tag %q: %w", rec.Name, err)
			}
			tags = append(tags, tag)
		}
		if len(records) < len(chunk) {
			slog.Debug("tags unknown upstream", "requested", len(chunk), "returned", len(records))
		}
	}
	return tags, nil
}

func appendExistingTag(tags []domain.Tag, s store.Store, text string) []domain.Tag {
	existing, err := s.GetTagsByText([]string{text})
	if err != nil || len(existing) == 0 {
		return tags
	}
	return append(tags, existing[0])
}
