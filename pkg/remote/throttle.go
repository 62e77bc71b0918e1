package remote

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var slotScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// Limiter throttles outbound requests to the upstream API with a
// redis-backed fixed window, so that every migrator replica together
// stays inside the API's request ceiling.
type Limiter struct {
	limit  int
	window time.Duration
	client *redis.Client
	key    string
}

// NewLimiter creates a redis-backed request limiter.
func NewLimiter(addr, password, key string, limit int, window time.Duration) (*Limiter, error) {
	if limit <= 0 || window <= 0 {
		return nil, errors.New("limiter requires positive limit and window")
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("limiter redis addr is required")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		key = "boorusync:remote"
	}
	return &Limiter{
		limit:  limit,
		window: window,
		client: redis.NewClient(&redis.Options{Addr: addr, Password: password}),
		key:    key,
	}, nil
}

// Wait blocks until a request slot frees, the context is canceled, or
// redis fails. Redis failures propagate: stalling the migration forever
// on a dead coordination backend would mask the outage.
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		count, err := slotScript.Run(ctx, l.client, []string{l.key}, l.window.Milliseconds()).Int()
		if err != nil {
			return err
		}
		if count <= l.limit {
			return nil
		}
		ttl, err := l.client.PTTL(ctx, l.key).Result()
		if err != nil {
			return err
		}
		if ttl <= 0 {
			ttl = l.window
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(ttl):
		}
	}
}
