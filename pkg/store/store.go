package store

import (
	"errors"

	"boorusync/pkg/domain"
)

// ErrConflict reports that a row with the same identity already exists.
// Resolvers treat it as "someone else created it first" and re-read.
var ErrConflict = errors.New("store: conflict")

// Store defines persistence operations over the migrated catalog. It is
// the single source of truth for "has this id been resolved": every
// resolver checks here before touching the remote source.
type Store interface {
	// posts
	GetPost(id int64) (domain.Post, bool, error)
	CreatePost(domain.Post) error
	SetPostUploader(postID, userID int64) error
	SetPostApprover(postID, userID int64) error
	SetPostTags(postID int64, tagIDs []int64) error
	SetPostChildren(postID int64, childIDs []int64) error
	AddPostSources(postID int64, urls []string) error
	AttachPostFile(postID int64, data []byte) error
	GetPostFile(postID int64) ([]byte, domain.Extension, bool, error)

	// tombstones
	IsDestroyed(id int64) (bool, error)
	MarkDestroyed(id int64) error

	// users
	GetUser(id int64) (domain.User, bool, error)
	CreateUser(domain.User) error
	SetUserAvatar(userID, postID int64) error

	// tags
	GetTagsByText(texts []string) ([]domain.Tag, error)
	CreateTag(domain.Tag) error
}
