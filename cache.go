package splotch

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/stjepangolemac/splotch/content"
)

// ErrNotFound is returned when a requested post does not exist.
var ErrNotFound = errors.New("post not found")

// PostLoader loads every post. *content.Loader satisfies it.
type PostLoader interface {
	Load(ctx context.Context) ([]*content.Post, error)
}

// PostCache is an in-memory cache of loaded posts with a TTL. Concurrent
// reloads are collapsed into one.
type PostCache struct {
	mu      sync.RWMutex
	posts   []*content.Post
	bySlug  map[string]*content.Post
	fetched time.Time
	ttl     time.Duration
	loader  PostLoader
	group   singleflight.Group
	now     func() time.Time

	// onLoad is called with the result of every reload.
	onLoad func(posts []*content.Post, took time.Duration, err error)
}

// NewPostCache creates a PostCache backed by loader.
func NewPostCache(loader PostLoader, ttl time.Duration) *PostCache {
	return &PostCache{loader: loader, ttl: ttl, now: time.Now}
}

func (c *PostCache) valid() bool {
	return c.posts != nil && (c.ttl <= 0 || c.now().Sub(c.fetched) < c.ttl)
}

// Invalidate clears the cache so the next read triggers a fresh load.
func (c *PostCache) Invalidate() {
	c.mu.Lock()
	c.posts = nil
	c.bySlug = nil
	c.mu.Unlock()
}

func (c *PostCache) ensureLoaded(ctx context.Context) ([]*content.Post, error) {
	c.mu.RLock()
	if c.valid() {
		posts := c.posts
		c.mu.RUnlock()
		return posts, nil
	}
	c.mu.RUnlock()

	v, err, _ := c.group.Do("posts", func() (any, error) {
		start := c.now()
		posts, err := c.loader.Load(ctx)
		if c.onLoad != nil {
			c.onLoad(posts, c.now().Sub(start), err)
		}
		if err != nil {
			return nil, err
		}
		if posts == nil {
			posts = []*content.Post{}
		}
		bySlug := make(map[string]*content.Post, len(posts))
		for _, p := range posts {
			bySlug[p.Slug] = p
		}
		c.mu.Lock()
		c.posts, c.bySlug, c.fetched = posts, bySlug, c.now()
		c.mu.Unlock()
		return posts, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]*content.Post), nil
}

// Posts returns every post, newest first.
func (c *PostCache) Posts(ctx context.Context) ([]*content.Post, error) {
	return c.ensureLoaded(ctx)
}

// Post returns the post with the given slug.
func (c *PostCache) Post(ctx context.Context, slug string) (*content.Post, error) {
	if _, err := c.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if p, ok := c.bySlug[slug]; ok {
		return p, nil
	}
	return nil, ErrNotFound
}
