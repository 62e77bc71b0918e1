// Package remote talks to the upstream booru API, the ultimate source of
// truth for the catalog.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// MaxTagLookup is the per-request ceiling on name lookups the upstream
// API accepts.
const MaxTagLookup = 50

// APIError represents a non-success upstream response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("remote api: %s (status %d)", e.Message, e.Status)
}

// IsNotFound reports whether err is the upstream "permanently gone"
// signal (HTTP 404).
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// Client calls the upstream API over HTTP. It is stateless apart from
// credentials and safe to share.
type Client struct {
	baseURL     string
	fileBaseURL string
	userAgent   string
	httpClient  *http.Client
	limiter     *Limiter
}

// Config for the client. Limiter may be nil (no outbound throttling).
type Config struct {
	BaseURL     string
	FileBaseURL string
	UserAgent   string
	Limiter     *Limiter
}

// NewClient constructs the upstream API client.
func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("remote base URL required")
	}
	fileBaseURL := strings.TrimRight(strings.TrimSpace(cfg.FileBaseURL), "/")
	if fileBaseURL == "" {
		fileBaseURL = baseURL
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		return nil, errors.New("remote user agent required")
	}
	return &Client{
		baseURL:     baseURL,
		fileBaseURL: fileBaseURL,
		userAgent:   userAgent,
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		limiter:     cfg.Limiter,
	}, nil
}

// GetPost fetches a single post record by id.
func (c *Client) GetPost(ctx context.Context, id int64) (PostRecord, error) {
	var envelope struct {
		Post PostRecord `json:"post"`
	}
	path := fmt.Sprintf("/posts/%d.json", id)
	if err := c.getJSON(ctx, path, nil, &envelope); err != nil {
		return PostRecord{}, err
	}
	return envelope.Post, nil
}

// GetPosts bulk-fetches records for the given ids in one request. Ids the
// remote source no longer serves are simply missing from the result.
func (c *Client) GetPosts(ctx context.Context, ids []int64) ([]PostRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, strconv.FormatInt(id, 10))
	}
	query := url.Values{}
	query.Set("tags", "id:"+strings.Join(parts, ","))
	query.Set("limit", strconv.Itoa(len(ids)))
	var envelope struct {
		Posts []PostRecord `json:"posts"`
	}
	if err := c.getJSON(ctx, "/posts.json", query, &envelope); err != nil {
		return nil, err
	}
	return envelope.Posts, nil
}

// GetUser fetches a user record by id.
func (c *Client) GetUser(ctx context.Context, id int64) (UserRecord, error) {
	var user UserRecord
	path := fmt.Sprintf("/users/%d.json", id)
	if err := c.getJSON(ctx, path, nil, &user); err != nil {
		return UserRecord{}, err
	}
	return user, nil
}

// GetTagsByName looks up tags by exact name, at most MaxTagLookup per
// call. Names the remote source does not recognize are absent from the
// result.
func (c *Client) GetTagsByName(ctx context.Context, names []string) ([]TagRecord, error) {
	if len(names) == 0 {
		return nil, nil
	}
	if len(names) > MaxTagLookup {
		return nil, fmt.Errorf("tag lookup limited to %d names, got %d", MaxTagLookup, len(names))
	}
	query := url.Values{}
	query.Set("search[name]", strings.Join(names, ","))
	query.Set("limit", strconv.Itoa(len(names)))
	body, err := c.get(ctx, c.baseURL+"/tags.json?"+query.Encode())
	if err != nil {
		return nil, err
	}
	// When nothing matches, the API answers {"tags":[]} instead of [].
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return nil, nil
	}
	var tags []TagRecord
	if err := json.Unmarshal(trimmed, &tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	return tags, nil
}

// GetFile downloads a file payload by checksum and extension. A 404
// means absent, not an error.
func (c *Client) GetFile(ctx context.Context, md5, ext string) ([]byte, bool, error) {
	if len(md5) < 4 {
		return nil, false, fmt.Errorf("malformed md5 %q", md5)
	}
	fileURL := fmt.Sprintf("%s/data/%s/%s/%s.%s", c.fileBaseURL, md5[0:2], md5[2:4], md5, ext)
	body, err := c.get(ctx, fileURL)
	if err != nil {
		if IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return body, true, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}
	body, err := c.get(ctx, fullURL)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, fullURL string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("throttle: %w", err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var errResp struct {
			Message string `json:"message"`
			Reason  string `json:"reason"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&errResp)
		msg := errResp.Message
		if msg == "" {
			msg = errResp.Reason
		}
		if msg == "" {
			msg = resp.Status
		}
		return nil, &APIError{Status: resp.StatusCode, Message: msg}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}
