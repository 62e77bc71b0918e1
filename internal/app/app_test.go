package app

import (
	"context"
	"fmt"
	"testing"
	"time"

	"boorusync/pkg/remote"
	"boorusync/pkg/store"
)

// fakeRemote is a scripted upstream that records call counts.
type fakeRemote struct {
	posts map[int64]remote.PostRecord
	users map[int64]remote.UserRecord
	tags  map[string]remote.TagRecord
	files map[string][]byte

	postCalls int
	bulkCalls int
	userCalls int
	fileCalls int
	tagCalls  [][]string
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		posts: make(map[int64]remote.PostRecord),
		users: make(map[int64]remote.UserRecord),
		tags:  make(map[string]remote.TagRecord),
		files: make(map[string][]byte),
	}
}

func (f *fakeRemote) GetPost(_ context.Context, id int64) (remote.PostRecord, error) {
	f.postCalls++
	rec, ok := f.posts[id]
	if !ok {
		return remote.PostRecord{}, &remote.APIError{Status: 404, Message: "not found"}
	}
	return rec, nil
}

func (f *fakeRemote) GetPosts(_ context.Context, ids []int64) ([]remote.PostRecord, error) {
	f.bulkCalls++
	var records []remote.PostRecord
	for _, id := range ids {
		if rec, ok := f.posts[id]; ok {
			records = append(records, rec)
		}
	}
	return records, nil
}

func (f *fakeRemote) GetUser(_ context.Context, id int64) (remote.UserRecord, error) {
	f.userCalls++
	rec, ok := f.users[id]
	if !ok {
		return remote.UserRecord{}, &remote.APIError{Status: 404, Message: "not found"}
	}
	return rec, nil
}

func (f *fakeRemote) GetTagsByName(_ context.Context, names []string) ([]remote.TagRecord, error) {
	if len(names) > remote.MaxTagLookup {
		return nil, fmt.Errorf("tag lookup over limit: %d", len(names))
	}
	f.tagCalls = append(f.tagCalls, names)
	var records []remote.TagRecord
	for _, name := range names {
		if rec, ok := f.tags[name]; ok {
			records = append(records, rec)
		}
	}
	return records, nil
}

func (f *fakeRemote) GetFile(_ context.Context, md5, ext string) ([]byte, bool, error) {
	f.fileCalls++
	data, ok := f.files[md5+"."+ext]
	return data, ok, nil
}

// addPost scripts a minimal valid post with uploader 1 and a payload.
func (f *fakeRemote) addPost(id int64, mutate func(*remote.PostRecord)) {
	data := []byte("payload-" + fmt.Sprint(id))
	md5 := checksum(data)
	rec := remote.PostRecord{
		ID:         id,
		CreatedAt:  time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC),
		File:       remote.FileInfo{Width: 800, Height: 600, Ext: "png", Size: int64(len(data)), MD5: md5},
		Score:      remote.Score{Up: 10, Down: -2, Total: 8},
		Rating:     "s",
		FavCount:   3,
		UploaderID: 1,
	}
	if mutate != nil {
		mutate(&rec)
	}
	f.posts[rec.ID] = rec
	f.files[rec.File.MD5+"."+rec.File.Ext] = data
	f.ensureUser(rec.UploaderID)
	if rec.ApproverID != nil {
		f.ensureUser(*rec.ApproverID)
	}
}

func (f *fakeRemote) ensureUser(id int64) {
	if _, ok := f.users[id]; ok {
		return
	}
	f.users[id] = remote.UserRecord{
		ID:        id,
		CreatedAt: time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC),
		Name:      fmt.Sprintf("user%d", id),
		Level:     20,
	}
}

func (f *fakeRemote) addTag(id int64, name string, category int) {
	f.tags[name] = remote.TagRecord{ID: id, Name: name, Category: category}
}

func newTestApp(t *testing.T, legacy LegacyStore) (*App, *fakeRemote, *store.MemoryStore) {
	t.Helper()
	upstream := newFakeRemote()
	mem := store.NewMemoryStore()
	a, err := New(Config{Store: mem, Remote: upstream, Legacy: legacy})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return a, upstream, mem
}
