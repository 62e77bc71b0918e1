package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewClient(Config{BaseURL: srv.URL, UserAgent: "boorusync-test/1.0"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestGetPostUnwrapsEnvelope(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/posts/5.json" {
			t.Fatalf("path = %q", r.URL.Path)
		}
		if ua := r.Header.Get("User-Agent"); ua != "boorusync-test/1.0" {
			t.Fatalf("user agent = %q", ua)
		}
		fmt.Fprint(w, `{"post":{"id":5,"created_at":"2021-06-01T12:00:00Z","file":{"ext":"png","md5":"abcd1234"},"rating":"s","uploader_id":1}}`)
	}))

	rec, err := c.GetPost(context.Background(), 5)
	if err != nil {
		t.Fatalf("get post: %v", err)
	}
	if rec.ID != 5 || rec.File.Ext != "png" || rec.UploaderID != 1 {
		t.Fatalf("record = %+v", rec)
	}
}

func TestGetPostNotFound(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"reason":"not found"}`)
	}))

	_, err := c.GetPost(context.Background(), 5)
	if !IsNotFound(err) {
		t.Fatalf("expected not-found, got %v", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "not found" {
		t.Fatalf("error = %v", err)
	}
}

func TestGetPostsQuery(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/posts.json" {
			t.Fatalf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("tags"); got != "id:100,101,102" {
			t.Fatalf("tags = %q", got)
		}
		if got := r.URL.Query().Get("limit"); got != "3" {
			t.Fatalf("limit = %q", got)
		}
		fmt.Fprint(w, `{"posts":[{"id":100},{"id":102}]}`)
	}))

	records, err := c.GetPosts(context.Background(), []int64{100, 101, 102})
	if err != nil {
		t.Fatalf("get posts: %v", err)
	}
	if len(records) != 2 || records[0].ID != 100 || records[1].ID != 102 {
		t.Fatalf("records = %+v", records)
	}
}

func TestGetPostsEmptyInput(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected request %s", r.URL)
	}))
	records, err := c.GetPosts(context.Background(), nil)
	if err != nil || records != nil {
		t.Fatalf("records = %v, err = %v", records, err)
	}
}

func TestGetUser(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/7.json" {
			t.Fatalf("path = %q", r.URL.Path)
		}
		fmt.Fprint(w, `{"id":7,"name":"user7","level":20,"is_banned":true}`)
	}))

	rec, err := c.GetUser(context.Background(), 7)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if rec.ID != 7 || rec.Name != "user7" || rec.Level != 20 || !rec.IsBanned {
		t.Fatalf("record = %+v", rec)
	}
}

func TestGetTagsByName(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("search[name]"); got != "sky,tree" {
			t.Fatalf("search = %q", got)
		}
		fmt.Fprint(w, `[{"id":1,"name":"sky","category":0},{"id":2,"name":"tree","category":0}]`)
	}))

	tags, err := c.GetTagsByName(context.Background(), []string{"sky", "tree"})
	if err != nil {
		t.Fatalf("get tags: %v", err)
	}
	if len(tags) != 2 || tags[0].Name != "sky" {
		t.Fatalf("tags = %+v", tags)
	}
}

func TestGetTagsByNameEmptyResultObject(t *testing.T) {
	// When nothing matches, the API answers {"tags":[]} instead of [].
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"tags":[]}`)
	}))

	tags, err := c.GetTagsByName(context.Background(), []string{"no_such_tag"})
	if err != nil {
		t.Fatalf("get tags: %v", err)
	}
	if tags != nil {
		t.Fatalf("tags = %+v, want none", tags)
	}
}

func TestGetTagsByNameOverLimit(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected request %s", r.URL)
	}))
	names := make([]string, MaxTagLookup+1)
	for i := range names {
		names[i] = fmt.Sprintf("tag%d", i)
	}
	if _, err := c.GetTagsByName(context.Background(), names); err == nil {
		t.Fatalf("expected over-limit error")
	}
}

func TestGetFile(t *testing.T) {
	const md5 = "0123456789abcdef0123456789abcdef"
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		want := "/data/01/23/" + md5 + ".png"
		if r.URL.Path != want {
			t.Fatalf("path = %q, want %q", r.URL.Path, want)
		}
		w.Write([]byte("payload"))
	}))

	data, ok, err := c.GetFile(context.Background(), md5, "png")
	if err != nil || !ok {
		t.Fatalf("get file: ok=%v err=%v", ok, err)
	}
	if !bytes.Equal(data, []byte("payload")) {
		t.Fatalf("data = %q", data)
	}
}

func TestGetFileAbsent(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))

	_, ok, err := c.GetFile(context.Background(), "0123456789abcdef0123456789abcdef", "png")
	if err != nil {
		t.Fatalf("get file: %v", err)
	}
	if ok {
		t.Fatalf("missing file reported present")
	}
}

func TestGetFileMalformedChecksum(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected request %s", r.URL)
	}))
	if _, _, err := c.GetFile(context.Background(), "ab", "png"); err == nil {
		t.Fatalf("expected malformed checksum error")
	}
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(Config{UserAgent: "x"}); err == nil {
		t.Fatalf("missing base URL accepted")
	}
	if _, err := NewClient(Config{BaseURL: "http://example.com"}); err == nil {
		t.Fatalf("missing user agent accepted")
	}
	c, err := NewClient(Config{BaseURL: "http://example.com/", UserAgent: "x"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if strings.HasSuffix(c.baseURL, "/") {
		t.Fatalf("base URL not trimmed: %q", c.baseURL)
	}
	if c.fileBaseURL != c.baseURL {
		t.Fatalf("file base URL should default to base URL")
	}
}
