package app

import (
	"context"
	"errors"
	"fmt"

	"boorusync/pkg/domain"
	"boorusync/pkg/remote"
	"boorusync/pkg/store"
)

// findOrCreateUser resolves a user by id. A non-success remote response
// yields nil without creating a tombstone: tombstones are a post-only
// concept, and the caller decides whether a missing user is fatal.
func (a *App) findOrCreateUser(ctx context.Context, res *resolution, id int64) (*domain.User, error) {
	if u, ok, err := a.store.GetUser(id); err != nil {
		return nil, fmt.Errorf("load user %d: %w", id, err)
	} else if ok {
		return &u, nil
	}
	rec, err := a.remote.GetUser(ctx, id)
	if err != nil {
		var apiErr *remote.APIError
		if errors.As(err, &apiErr) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch user %d: %w", id, err)
	}
	return a.createUser(ctx, res, rec)
}

// createUser persists the user row before resolving its avatar, so a
// user and an avatar post that reference each other insert cleanly.
func (a *App) createUser(ctx context.Context, res *resolution, rec remote.UserRecord) (*domain.User, error) {
	level, err := domain.ParseLevel(rec.Level)
	if err != nil {
		return nil, fmt.Errorf("user %d: %w", rec.ID, err)
	}
	u := domain.User{
		ID:        rec.ID,
		CreatedAt: rec.CreatedAt,
		Name:      rec.Name,
		Level:     level,
		Banned:    rec.IsBanned,
	}
	if err := a.store.CreateUser(u); err != nil {
		if errors.Is(err, store.ErrConflict) {
			existing, ok, err := a.store.GetUser(rec.ID)
			if err != nil || !ok {
				return nil, fmt.Errorf("reload user %d after conflict: %w", rec.ID, err)
			}
			return &existing, nil
		}
		return nil, fmt.Errorf("create user %d: %w", rec.ID, err)
	}
	if rec.AvatarID != nil {
		avatar, err := a.findOrCreatePost(ctx, res, *rec.AvatarID)
		if err != nil {
			return nil, fmt.Errorf("user %d avatar: %w", rec.ID, err)
		}
		if avatar != nil {
			if err := a.store.SetUserAvatar(rec.ID, avatar.ID); err != nil {
				return nil, fmt.Errorf("user %d avatar: %w", rec.ID, err)
			}
			u.AvatarID = &avatar.ID
		}
	}
	return &u, nil
}
