package blogit

import (
	"context"
	"database/sql"
	"sync"
	"time"
)

// ErrNotFound is returned when a requested blog or user does not exist.
var ErrNotFound = sql.ErrNoRows

// BlogCache is an in-memory cache of the blog list with TTL. Readers must
// treat the returned slice as read-only.
type BlogCache struct {
	mu      sync.RWMutex
	blogs   []Blog
	fetched time.Time
	ttl     time.Duration
	store   *Store
}

// NewBlogCache creates a BlogCache backed by the given Store.
func NewBlogCache(s *Store, ttl time.Duration) *BlogCache {
	return &BlogCache{store: s, ttl: ttl}
}

func (c *BlogCache) valid() bool {
	return c.blogs != nil && time.Since(c.fetched) < c.ttl
}

// Invalidate clears the cache so the next read triggers a fresh load.
func (c *BlogCache) Invalidate() {
	c.mu.Lock()
	c.blogs = nil
	c.mu.Unlock()
}

// ListBlogs returns the cached blog list, reloading it when stale.
// It tries a read lock first; only takes a write lock if a reload is needed.
func (c *BlogCache) ListBlogs(ctx context.Context) ([]Blog, error) {
	c.mu.RLock()
	if c.valid() {
		blogs := c.blogs
		c.mu.RUnlock()
		return blogs, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.valid() {
		return c.blogs, nil
	}
	blogs, err := c.store.ListBlogs(ctx)
	if err != nil {
		return nil, err
	}
	c.blogs = blogs
	c.fetched = time.Now()
	return c.blogs, nil
}

// Stats computes the aggregates over the cached blog list.
func (c *BlogCache) Stats(ctx context.Context) (Stats, error) {
	blogs, err := c.ListBlogs(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Summarize(blogs), nil
}
