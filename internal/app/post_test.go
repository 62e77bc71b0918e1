package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"boorusync/pkg/domain"
	"boorusync/pkg/remote"
)

func TestResolvePostCreatesFullGraph(t *testing.T) {
	a, upstream, _ := newTestApp(t, nil)
	upstream.addTag(100, "landscape", 0)
	upstream.addTag(101, "painter", 1)
	approver := int64(2)
	upstream.addPost(5, func(rec *remote.PostRecord) {
		rec.Tags.General = []string{"landscape"}
		rec.Tags.Artist = []string{"painter"}
		rec.ApproverID = &approver
		rec.Sources = []string{"https://example.com/a", "https://example.com/b"}
	})

	p, err := a.ResolvePost(context.Background(), 5)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if p == nil {
		t.Fatalf("expected post")
	}
	if p.UploaderID != 1 {
		t.Fatalf("uploader = %d, want 1", p.UploaderID)
	}
	if p.ApproverID == nil || *p.ApproverID != 2 {
		t.Fatalf("approver = %v, want 2", p.ApproverID)
	}
	if len(p.Tags) != 2 {
		t.Fatalf("tags = %d, want 2", len(p.Tags))
	}
	if !p.HasFile {
		t.Fatalf("expected file attached")
	}
	if len(p.Sources) != 2 {
		t.Fatalf("sources = %d, want 2", len(p.Sources))
	}
	if p.Rating != domain.RatingSafe {
		t.Fatalf("rating = %q", p.Rating)
	}
}

func TestResolvePostIsIdempotent(t *testing.T) {
	a, upstream, _ := newTestApp(t, nil)
	upstream.addPost(5, nil)

	first, err := a.ResolvePost(context.Background(), 5)
	if err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	callsAfterFirst := upstream.postCalls + upstream.userCalls + upstream.fileCalls

	second, err := a.ResolvePost(context.Background(), 5)
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if second.ID != first.ID || second.MD5 != first.MD5 || second.UploaderID != first.UploaderID {
		t.Fatalf("second resolution differs: %+v vs %+v", second, first)
	}
	if got := upstream.postCalls + upstream.userCalls + upstream.fileCalls; got != callsAfterFirst {
		t.Fatalf("second resolution performed %d extra remote calls", got-callsAfterFirst)
	}
}

func TestResolvePostGoneCreatesTombstoneOnce(t *testing.T) {
	a, upstream, mem := newTestApp(t, nil)

	p, err := a.ResolvePost(context.Background(), 5)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if p != nil {
		t.Fatalf("expected nil post for gone id")
	}
	destroyed, err := mem.IsDestroyed(5)
	if err != nil || !destroyed {
		t.Fatalf("expected tombstone for 5")
	}
	if upstream.postCalls != 1 {
		t.Fatalf("postCalls = %d, want 1", upstream.postCalls)
	}

	p, err = a.ResolvePost(context.Background(), 5)
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if p != nil {
		t.Fatalf("expected nil post for tombstoned id")
	}
	if upstream.postCalls != 1 {
		t.Fatalf("tombstoned id still hit the remote: postCalls = %d", upstream.postCalls)
	}
}

func TestTombstoneAndLivePostAreExclusive(t *testing.T) {
	a, upstream, mem := newTestApp(t, nil)
	upstream.addPost(7, nil)

	if _, err := a.ResolvePost(context.Background(), 7); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	destroyed, err := mem.IsDestroyed(7)
	if err != nil {
		t.Fatalf("is destroyed: %v", err)
	}
	_, live, err := mem.GetPost(7)
	if err != nil {
		t.Fatalf("get post: %v", err)
	}
	if destroyed && live {
		t.Fatalf("id 7 has both a tombstone and a live post")
	}
	if !live {
		t.Fatalf("expected live post")
	}
}

func TestResolvePostUploaderMissingIsFatal(t *testing.T) {
	a, upstream, _ := newTestApp(t, nil)
	upstream.addPost(5, func(rec *remote.PostRecord) {
		rec.UploaderID = 99
	})
	delete(upstream.users, 99)

	_, err := a.ResolvePost(context.Background(), 5)
	if !errors.Is(err, ErrUploaderMissing) {
		t.Fatalf("expected ErrUploaderMissing, got %v", err)
	}
}

func TestResolvePostUnknownExtensionIsFatal(t *testing.T) {
	a, upstream, _ := newTestApp(t, nil)
	upstream.addPost(5, func(rec *remote.PostRecord) {
		rec.File.Ext = "tiff"
	})

	if _, err := a.ResolvePost(context.Background(), 5); err == nil {
		t.Fatalf("expected fatal mapping error for unknown extension")
	}
}

func TestResolvePostDeletedContentSkipsFile(t *testing.T) {
	a, upstream, _ := newTestApp(t, nil)
	upstream.addPost(5, func(rec *remote.PostRecord) {
		rec.Flags.Deleted = true
	})

	p, err := a.ResolvePost(context.Background(), 5)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if p.HasFile {
		t.Fatalf("deleted-content post should have no file")
	}
	if upstream.fileCalls != 0 {
		t.Fatalf("fileCalls = %d, want 0", upstream.fileCalls)
	}
}

func TestResolvePostChildren(t *testing.T) {
	a, upstream, mem := newTestApp(t, nil)
	upstream.addPost(10, func(rec *remote.PostRecord) {
		rec.Relationships.Children = []int64{11, 12}
	})
	upstream.addPost(11, nil)
	upstream.addPost(12, nil)

	p, err := a.ResolvePost(context.Background(), 10)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(p.ChildIDs) != 2 {
		t.Fatalf("children = %v, want [11 12]", p.ChildIDs)
	}
	child, ok, err := mem.GetPost(11)
	if err != nil || !ok {
		t.Fatalf("child 11 not persisted")
	}
	if child.ParentID == nil || *child.ParentID != 10 {
		t.Fatalf("child parent = %v, want 10", child.ParentID)
	}
}

func TestResolvePostCyclicChildrenTerminates(t *testing.T) {
	a, upstream, _ := newTestApp(t, nil)
	upstream.addPost(1, func(rec *remote.PostRecord) {
		rec.Relationships.Children = []int64{2}
	})
	upstream.addPost(2, func(rec *remote.PostRecord) {
		rec.Relationships.Children = []int64{1}
	})

	p, err := a.ResolvePost(context.Background(), 1)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(p.ChildIDs) != 1 || p.ChildIDs[0] != 2 {
		t.Fatalf("children = %v, want [2]", p.ChildIDs)
	}
	if upstream.postCalls != 2 {
		t.Fatalf("postCalls = %d, want 2 (one per id)", upstream.postCalls)
	}
}

func TestResolvePostMutuallyReferentialAvatar(t *testing.T) {
	a, upstream, mem := newTestApp(t, nil)
	avatarID := int64(30)
	upstream.addPost(30, func(rec *remote.PostRecord) {
		rec.UploaderID = 3
	})
	upstream.users[3] = remote.UserRecord{
		ID: 3, Name: "user3", Level: 20, AvatarID: &avatarID,
		CreatedAt: time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	p, err := a.ResolvePost(context.Background(), 30)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if p == nil {
		t.Fatalf("expected post")
	}
	u, ok, err := mem.GetUser(3)
	if err != nil || !ok {
		t.Fatalf("user 3 not persisted")
	}
	if u.AvatarID == nil || *u.AvatarID != 30 {
		t.Fatalf("avatar = %v, want 30", u.AvatarID)
	}
	if upstream.postCalls != 1 || upstream.userCalls != 1 {
		t.Fatalf("calls = %d/%d, want 1/1", upstream.postCalls, upstream.userCalls)
	}
}
