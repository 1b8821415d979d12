package splotch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stjepangolemac/splotch/content"
)

type fakeLoader struct {
	calls atomic.Int32
	posts []*content.Post
	err   error
}

func (l *fakeLoader) Load(ctx context.Context) ([]*content.Post, error) {
	l.calls.Add(1)
	return l.posts, l.err
}

func TestPostCache(t *testing.T) {
	loader := &fakeLoader{posts: []*content.Post{{Slug: "b"}, {Slug: "a"}}}
	c := NewPostCache(loader, time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	posts, err := c.Posts(ctx)
	require.NoError(t, err)
	assert.Len(t, posts, 2)

	p, err := c.Post(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "a", p.Slug)
	assert.Equal(t, int32(1), loader.calls.Load())

	_, err = c.Post(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))

	now = now.Add(2 * time.Minute)
	_, err = c.Posts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), loader.calls.Load())

	c.Invalidate()
	_, err = c.Posts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(3), loader.calls.Load())
}

func TestPostCacheNoTTL(t *testing.T) {
	loader := &fakeLoader{}
	c := NewPostCache(loader, 0)
	now := time.Now()
	c.now = func() time.Time { return now }

	posts, err := c.Posts(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, posts)

	now = now.Add(24 * time.Hour)
	_, err = c.Posts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), loader.calls.Load())
}

func TestPostCacheError(t *testing.T) {
	loader := &fakeLoader{err: errors.New("boom")}
	c := NewPostCache(loader, time.Minute)
	var seen error
	c.onLoad = func(_ []*content.Post, _ time.Duration, err error) { seen = err }

	_, err := c.Posts(context.Background())
	assert.EqualError(t, err, "boom")
	assert.EqualError(t, seen, "boom")

	_, err = c.Post(context.Background(), "a")
	assert.Error(t, err)
	assert.Equal(t, int32(2), loader.calls.Load())
}

func TestPostCacheConcurrent(t *testing.T) {
	loader := &fakeLoader{posts: []*content.Post{{Slug: "a"}}}
	c := NewPostCache(loader, time.Minute)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Post(context.Background(), "a")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, loader.calls.Load(), int32(20))
	assert.GreaterOrEqual(t, loader.calls.Load(), int32(1))
}
