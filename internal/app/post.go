package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"boorusync/pkg/domain"
	"boorusync/pkg/remote"
	"boorusync/pkg/store"
)

// resolution carries the in-progress set for one top-level resolve call.
// The remote relationship graph may be cyclic; a child reaching back to
// an ancestor gets the ancestor's already-persisted row instead of
// recursing forever. The set dies with the call, so the target store
// stays the only cross-run dedup authority.
type resolution struct {
	inProgress map[int64]*domain.Post
}

func newResolution() *resolution {
	return &resolution{inProgress: make(map[int64]*domain.Post)}
}

// ResolvePost finds or creates the post with the given id, resolving its
// full relationship graph. Returns nil for tombstoned or permanently
// gone ids. Overlapping calls for the same id share one resolution.
func (a *App) ResolvePost(ctx context.Context, id int64) (*domain.Post, error) {
	v, err, _ := a.group.Do(strconv.FormatInt(id, 10), func() (any, error) {
		return a.findOrCreatePost(ctx, newResolution(), id)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Post), nil
}

// ResolveRecord is the bulk path: the caller already holds a freshly
// fetched remote record, so no per-id fetch is issued.
func (a *App) ResolveRecord(ctx context.Context, rec remote.PostRecord) (*domain.Post, error) {
	v, err, _ := a.group.Do(strconv.FormatInt(rec.ID, 10), func() (any, error) {
		return a.findOrCreateFromRecord(ctx, newResolution(), rec)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Post), nil
}

func (a *App) findOrCreatePost(ctx context.Context, res *resolution, id int64) (*domain.Post, error) {
	if p, ok := res.inProgress[id]; ok {
		return p, nil
	}
	destroyed, err := a.store.IsDestroyed(id)
	if err != nil {
		return nil, fmt.Errorf("check tombstone %d: %w", id, err)
	}
	if destroyed {
		return nil, nil
	}
	if p, ok, err := a.store.GetPost(id); err != nil {
		return nil, fmt.Errorf("load post %d: %w", id, err)
	} else if ok {
		return &p, nil
	}
	rec, err := a.remote.GetPost(ctx, id)
	if err != nil {
		if remote.IsNotFound(err) {
			if err := a.store.MarkDestroyed(id); err != nil {
				return nil, fmt.Errorf("tombstone %d: %w", id, err)
			}
			slog.Info("post destroyed upstream", "id", id)
			return nil, nil
		}
		return nil, fmt.Errorf("fetch post %d: %w", id, err)
	}
	return a.createPost(ctx, res, rec)
}

func (a *App) findOrCreateFromRecord(ctx context.Context, res *resolution, rec remote.PostRecord) (*domain.Post, error) {
	if p, ok := res.inProgress[rec.ID]; ok {
		return p, nil
	}
	destroyed, err := a.store.IsDestroyed(rec.ID)
	if err != nil {
		return nil, fmt.Errorf("check tombstone %d: %w", rec.ID, err)
	}
	if destroyed {
		return nil, nil
	}
	if p, ok, err := a.store.GetPost(rec.ID); err != nil {
		return nil, fmt.Errorf("load post %d: %w", rec.ID, err)
	} else if ok {
		return &p, nil
	}
	return a.createPost(ctx, res, rec)
}

// createPost persists the post row first, then resolves its graph. The
// early persist lets recursive child resolution observe the row and stop
// instead of creating it twice when a cycle reaches back here.
func (a *App) createPost(ctx context.Context, res *resolution, rec remote.PostRecord) (*domain.Post, error) {
	ext, err := domain.ParseExtension(rec.File.Ext)
	if err != nil {
		return nil, fmt.Errorf("post %d: %w", rec.ID, err)
	}
	rating, err := domain.ParseRating(rec.Rating)
	if err != nil {
		return nil, fmt.Errorf("post %d: %w", rec.ID, err)
	}
	p := domain.Post{
		ID:          rec.ID,
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
		Width:       rec.File.Width,
		Height:      rec.File.Height,
		Extension:   ext,
		Size:        rec.File.Size,
		MD5:         rec.File.MD5,
		ScoreUp:     rec.Score.Up,
		ScoreDown:   rec.Score.Down,
		ScoreTotal:  rec.Score.Total,
		Rating:      rating,
		FavCount:    rec.FavCount,
		Description: rec.Description,
		Duration:    rec.Duration,
	}
	if err := a.store.CreatePost(p); err != nil {
		if errors.Is(err, store.ErrConflict) {
			// Lost a cross-process race; the winner's row is authoritative.
			existing, ok, err := a.store.GetPost(rec.ID)
			if err != nil || !ok {
				return nil, fmt.Errorf("reload post %d after conflict: %w", rec.ID, err)
			}
			return &existing, nil
		}
		return nil, fmt.Errorf("create post %d: %w", rec.ID, err)
	}
	res.inProgress[rec.ID] = &p

	tags, err := a.resolveTags(ctx, rec.Tags.All())
	if err != nil {
		return nil, fmt.Errorf("post %d tags: %w", rec.ID, err)
	}
	tagIDs := make([]int64, 0, len(tags))
	for _, t := range tags {
		tagIDs = append(tagIDs, t.ID)
	}
	if err := a.store.SetPostTags(rec.ID, tagIDs); err != nil {
		return nil, fmt.Errorf("post %d tags: %w", rec.ID, err)
	}
	p.Tags = tags

	if rec.ApproverID != nil {
		approver, err := a.findOrCreateUser(ctx, res, *rec.ApproverID)
		if err != nil {
			return nil, fmt.Errorf("post %d approver: %w", rec.ID, err)
		}
		if approver != nil {
			if err := a.store.SetPostApprover(rec.ID, approver.ID); err != nil {
				return nil, fmt.Errorf("post %d approver: %w", rec.ID, err)
			}
			p.ApproverID = &approver.ID
		}
	}
	uploader, err := a.findOrCreateUser(ctx, res, rec.UploaderID)
	if err != nil {
		return nil, fmt.Errorf("post %d uploader: %w", rec.ID, err)
	}
	if uploader == nil {
		return nil, fmt.Errorf("post %d: %w", rec.ID, ErrUploaderMissing)
	}
	if err := a.store.SetPostUploader(rec.ID, uploader.ID); err != nil {
		return nil, fmt.Errorf("post %d uploader: %w", rec.ID, err)
	}
	p.UploaderID = uploader.ID

	// Files for deleted content may be unavailable upstream; never try.
	if !rec.Flags.Deleted {
		data, err := a.acquireFile(ctx, rec)
		if err != nil {
			return nil, fmt.Errorf("post %d file: %w", rec.ID, err)
		}
		if err := a.store.AttachPostFile(rec.ID, data); err != nil {
			return nil, fmt.Errorf("post %d file: %w", rec.ID, err)
		}
		p.HasFile = true
	}

	childIDs := make([]int64, 0, len(rec.Relationships.Children))
	for _, childID := range rec.Relationships.Children {
		child, err := a.findOrCreatePost(ctx, res, childID)
		if err != nil {
			return nil, fmt.Errorf("post %d child %d: %w", rec.ID, childID, err)
		}
		if child != nil {
			childIDs = append(childIDs, child.ID)
		}
	}
	if err := a.store.SetPostChildren(rec.ID, childIDs); err != nil {
		return nil, fmt.Errorf("post %d children: %w", rec.ID, err)
	}
	p.ChildIDs = childIDs

	if err := a.store.AddPostSources(rec.ID, rec.Sources); err != nil {
		return nil, fmt.Errorf("post %d sources: %w", rec.ID, err)
	}
	p.Sources = rec.Sources

	return &p, nil
}
