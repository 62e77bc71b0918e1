package store

import (
	"fmt"
	"sync"

	"boorusync/pkg/domain"
)

// MemoryStore keeps the catalog in-process. It backs test runs and
// deployments without a configured database URL, with the same conflict
// semantics as the Postgres store.
type MemoryStore struct {
	mu        sync.RWMutex
	posts     map[int64]domain.Post
	files     map[int64][]byte
	users     map[int64]domain.User
	tags      map[int64]domain.Tag
	tagByText map[string]int64
	destroyed map[int64]struct{}
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		posts:     make(map[int64]domain.Post),
		files:     make(map[int64][]byte),
		users:     make(map[int64]domain.User),
		tags:      make(map[int64]domain.Tag),
		tagByText: make(map[string]int64),
		destroyed: make(map[int64]struct{}),
	}
}

func (m *MemoryStore) GetPost(id int64) (domain.Post, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.posts[id]
	if !ok {
		return domain.Post{}, false, nil
	}
	_, p.HasFile = m.files[id]
	return clonePost(p), true, nil
}

func (m *MemoryStore) CreatePost(p domain.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.posts[p.ID]; exists {
		return fmt.Errorf("%w: post %d", ErrConflict, p.ID)
	}
	m.posts[p.ID] = clonePost(p)
	return nil
}

func (m *MemoryStore) SetPostUploader(postID, userID int64) error {
	return m.updatePost(postID, func(p *domain.Post) { p.UploaderID = userID })
}

func (m *MemoryStore) SetPostApprover(postID, userID int64) error {
	return m.updatePost(postID, func(p *domain.Post) { p.ApproverID = &userID })
}

func (m *MemoryStore) SetPostTags(postID int64, tagIDs []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[postID]
	if !ok {
		return fmt.Errorf("post %d not found", postID)
	}
	for _, id := range tagIDs {
		tag, ok := m.tags[id]
		if !ok {
			return fmt.Errorf("tag %d not found", id)
		}
		p.Tags = append(p.Tags, tag)
	}
	m.posts[postID] = p
	return nil
}

func (m *MemoryStore) SetPostChildren(postID int64, childIDs []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[postID]
	if !ok {
		return fmt.Errorf("post %d not found", postID)
	}
	p.ChildIDs = append([]int64(nil), childIDs...)
	m.posts[postID] = p
	for _, childID := range childIDs {
		child, ok := m.posts[childID]
		if !ok {
			continue
		}
		parentID := postID
		child.ParentID = &parentID
		m.posts[childID] = child
	}
	return nil
}

func (m *MemoryStore) AddPostSources(postID int64, urls []string) error {
	return m.updatePost(postID, func(p *domain.Post) {
		p.Sources = append(p.Sources, urls...)
	})
}

func (m *MemoryStore) AttachPostFile(postID int64, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.files[postID]; exists {
		return fmt.Errorf("%w: file for post %d", ErrConflict, postID)
	}
	m.files[postID] = append([]byte(nil), data...)
	return nil
}

func (m *MemoryStore) GetPostFile(postID int64) ([]byte, domain.Extension, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.files[postID]
	if !ok {
		return nil, "", false, nil
	}
	return append([]byte(nil), data...), m.posts[postID].Extension, true, nil
}

func (m *MemoryStore) IsDestroyed(id int64) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.destroyed[id]
	return ok, nil
}

func (m *MemoryStore) MarkDestroyed(id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.destroyed[id] = struct{}{}
	return nil
}

func (m *MemoryStore) GetUser(id int64) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	return u, ok, nil
}

func (m *MemoryStore) CreateUser(u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.users[u.ID]; exists {
		return fmt.Errorf("%w: user %d", ErrConflict, u.ID)
	}
	m.users[u.ID] = u
	return nil
}

func (m *MemoryStore) SetUserAvatar(userID, postID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return fmt.Errorf("user %d not found", userID)
	}
	u.AvatarID = &postID
	m.users[userID] = u
	return nil
}

func (m *MemoryStore) GetTagsByText(texts []string) ([]domain.Tag, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var tags []domain.Tag
	for _, text := range texts {
		if id, ok := m.tagByText[text]; ok {
			tags = append(tags, m.tags[id])
		}
	}
	return tags, nil
}

func (m *MemoryStore) CreateTag(t domain.Tag) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.tags[t.ID]; exists {
		return fmt.Errorf("%w: tag %d", ErrConflict, t.ID)
	}
	if _, exists := m.tagByText[t.Text]; exists {
		return fmt.Errorf("%w: tag text %q", ErrConflict, t.Text)
	}
	m.tags[t.ID] = t
	m.tagByText[t.Text] = t.ID
	return nil
}

func (m *MemoryStore) updatePost(postID int64, fn func(*domain.Post)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[postID]
	if !ok {
		return fmt.Errorf("post %d not found", postID)
	}
	fn(&p)
	m.posts[postID] = p
	return nil
}

func clonePost(p domain.Post) domain.Post {
	p.Tags = append([]domain.Tag(nil), p.Tags...)
	p.ChildIDs = append([]int64(nil), p.ChildIDs...)
	p.Sources = append([]string(nil), p.Sources...)
	return p
}
