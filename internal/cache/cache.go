package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/spigell/job-aggregator/internal/jobs"
	"github.com/spigell/job-aggregator/internal/logger"
)

// DefaultTTL is how long a computed result stays valid.
const DefaultTTL = 15 * time.Minute

// Key identifies a search. Values are trimmed and lower-cased but keep their
// order, so the same lists in a different order are different searches.
func Key(profile jobs.UserProfile) string {
	return fmt.Sprintf("skills=%s|roles=%s|locations=%s|experience=%s",
		joinLower(profile.Skills),
		joinLower(profile.Preferences.Roles),
		joinLower(profile.Preferences.Locations),
		strings.ToLower(strings.TrimSpace(profile.Preferences.Experience)),
	)
}

func joinLower(values []string) string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			out = append(out, v)
		}
	}
	return strings.Join(out, ",")
}

type entry struct {
	jobs      []jobs.Job
	expiresAt time.Time
}

// Cache stores ranked search results for a fixed TTL. Concurrent misses
// for the same key share one computation.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	group   singleflight.Group

	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger
}

type Option func(*Cache)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// New creates a cache. A non-positive ttl falls back to DefaultTTL.
func New(ttl time.Duration, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	c := &Cache{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logger.OrNop(c.logger)

	return c
}

// ComputeFunc produces the value for a missing key.
type ComputeFunc func(ctx context.Context) ([]jobs.Job, error)

// GetOrCompute returns the cached jobs for key, reporting a hit, or runs
// compute and stores its result. Errors are returned but never stored.
func (c *Cache) GetOrCompute(ctx context.Context, key string, compute ComputeFunc) ([]jobs.Job, bool, error) {
	if items, ok := c.get(key); ok {
		c.logger.Debug("cache hit", zap.String("key", key))
		return items, true, nil
	}

	// Shared work is detached from the caller that started it; every caller
	// stops waiting on its own ctx.
	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		// Another caller may have filled the entry while we waited for the group.
		if items, ok := c.get(key); ok {
			return items, nil
		}

		items, err := compute(detached)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.purgeLocked()
		c.entries[key] = entry{jobs: items, expiresAt: c.now().Add(c.ttl)}
		c.mu.Unlock()

		return items, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, false, res.Err
	}

	c.logger.Debug("cache miss", zap.String("key", key), zap.Bool("shared", res.Shared))
	return res.Val.([]jobs.Job), false, nil
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.purgeLocked()
	return len(c.entries)
}

// Clear drops every entry and returns how many live entries were removed.
func (c *Cache) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.purgeLocked()
	n := len(c.entries)
	c.entries = make(map[string]entry)
	return n
}

func (c *Cache) get(key string) ([]jobs.Job, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.purgeLocked()
	e, ok := c.entries[key]
	return e.jobs, ok
}

func (c *Cache) purgeLocked() {
	now := c.now()
	for key, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, key)
		}
	}
}
