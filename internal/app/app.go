// Package app implements the synchronization engine: idempotent
// find-or-create resolution of the remote catalog's object graph into
// the target store, with the legacy store as a fallback file source.
package app

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/singleflight"

	"boorusync/pkg/remote"
	"boorusync/pkg/store"
)

// ErrUploaderMissing reports a post whose required uploader could not be
// resolved. A post without an uploader cannot exist, so this aborts the
// enclosing resolution.
var ErrUploaderMissing = errors.New("post uploader could not be resolved")

// RemoteAPI is the surface of the upstream client the engine consumes.
type RemoteAPI interface {
	GetPost(ctx context.Context, id int64) (remote.PostRecord, error)
	GetPosts(ctx context.Context, ids []int64) ([]remote.PostRecord, error)
	GetUser(ctx context.Context, id int64) (remote.UserRecord, error)
	GetTagsByName(ctx context.Context, names []string) ([]remote.TagRecord, error)
	GetFile(ctx context.Context, md5, ext string) ([]byte, bool, error)
}

// LegacyStore is the surface of the legacy bridge the engine consumes.
type LegacyStore interface {
	LowestID() (int64, bool, error)
	FileFor(id int64) ([]byte, bool, error)
	Purge(id int64, destroyed bool) error
}

// Config wires the engine's collaborators.
type Config struct {
	// DatabaseURL selects the Postgres target store; empty falls back
	// to the in-memory store.
	DatabaseURL string
	// Store overrides DatabaseURL when set.
	Store  store.Store
	Remote RemoteAPI
	// Legacy is optional; without it resolution never consults the
	// legacy store and purges are no-ops.
	Legacy LegacyStore
}

// App drives resolution and migration. All entity writes go through the
// target store, which is also the only dedup authority: an id found
// there is never resolved again.
type App struct {
	store  store.Store
	remote RemoteAPI
	legacy LegacyStore
	group  singleflight.Group
}

// New constructs the engine.
func New(cfg Config) (*App, error) {
	if cfg.Remote == nil {
		return nil, errors.New("remote client required")
	}
	dataStore := cfg.Store
	if dataStore == nil {
		if cfg.DatabaseURL == "" {
			dataStore = store.NewMemoryStore()
		} else {
			var err error
			dataStore, err = store.NewGormStore(cfg.DatabaseURL)
			if err != nil {
				return nil, fmt.Errorf("init target store: %w", err)
			}
		}
	}
	return &App{
		store:  dataStore,
		remote: cfg.Remote,
		legacy: cfg.Legacy,
	}, nil
}
