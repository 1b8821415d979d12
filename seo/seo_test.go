package seo

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSite = Site{
	Title:       "Splotch",
	Description: "Default description",
	Author:      "Stjepan Golemac",
	URL:         "https://example.com",
}

func keys(tags []MetaTag) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = t.Key()
	}
	return out
}

func find(tags []MetaTag, key string) []MetaTag {
	var out []MetaTag
	for _, t := range tags {
		if t.Key() == key {
			out = append(out, t)
		}
	}
	return out
}

func TestTagsBaseSet(t *testing.T) {
	tags := Tags(testSite, Input{Title: "Home"})
	require.Len(t, tags, 8)
	assert.Equal(t, []string{
		"description",
		"og:title",
		"og:description",
		"og:type",
		"twitter:card",
		"twitter:creator",
		"twitter:title",
		"twitter:description",
	}, keys(tags))
	assert.Equal(t, "website", find(tags, "og:type")[0].Content)
	assert.Equal(t, "summary_large_image", find(tags, "twitter:card")[0].Content)
	assert.Equal(t, "Stjepan Golemac", find(tags, "twitter:creator")[0].Content)
	assert.Equal(t, "og:title", tags[1].Property)
	assert.Empty(t, tags[1].Name)
	assert.Equal(t, "twitter:title", tags[6].Name)
}

func TestTagsLengthWithoutImages(t *testing.T) {
	for _, n := range []int{0, 1, 3} {
		meta := make([]MetaTag, n)
		for i := range meta {
			meta[i] = MetaTag{Name: "extra", Content: "x"}
		}
		tags := Tags(testSite, Input{Title: "T", Meta: meta})
		assert.Len(t, tags, 8+n)
	}
}

func TestTagsKeywords(t *testing.T) {
	tags := Tags(testSite, Input{Title: "T", Keywords: []string{"a", "b"}})
	kw := find(tags, "keywords")
	require.Len(t, kw, 1)
	assert.Equal(t, "a, b", kw[0].Content)

	tags = Tags(testSite, Input{Title: "T", Keywords: []string{}})
	assert.Empty(t, find(tags, "keywords"))
}

func TestTagsDescriptionFallback(t *testing.T) {
	tags := Tags(testSite, Input{Title: "T"})
	for _, key := range []string{"description", "og:description", "twitter:description"} {
		got := find(tags, key)
		require.Len(t, got, 1, key)
		assert.Equal(t, "Default description", got[0].Content, key)
	}

	tags = Tags(testSite, Input{Title: "T", Description: "Own"})
	assert.Equal(t, "Own", find(tags, "description")[0].Content)
	assert.Equal(t, "Own", find(tags, "twitter:description")[0].Content)
}

func TestTagsImageConcatenation(t *testing.T) {
	tags := Tags(testSite, Input{
		Title:         "T",
		TwitterImage:  &Image{Src: "/img/x.jpg"},
		FacebookImage: &Image{Src: "img/y.jpg"},
		Alt:           "a cat",
	})
	require.Len(t, tags, 11)
	assert.Equal(t, MetaTag{Name: "twitter:image", Content: "https://example.com/img/x.jpg"}, tags[8])
	assert.Equal(t, MetaTag{Property: "og:image", Content: "https://example.comimg/y.jpg"}, tags[9])
	assert.Equal(t, MetaTag{Name: "twitter:image:alt", Content: "a cat"}, tags[10])
}

func TestTagsMetaOrder(t *testing.T) {
	meta := []MetaTag{
		{Name: "robots", Content: "noindex"},
		{Property: "article:author", Content: "me"},
	}
	tags := Tags(testSite, Input{Title: "T", Meta: meta, Keywords: []string{"go"}, Alt: "alt"})
	require.Len(t, tags, 12)
	assert.Equal(t, meta[0], tags[8])
	assert.Equal(t, meta[1], tags[9])
	assert.Equal(t, "keywords", tags[10].Key())
	assert.Equal(t, "twitter:image:alt", tags[11].Key())
}

func TestTagsIdempotent(t *testing.T) {
	in := Input{Title: "T", Keywords: []string{"a"}, Meta: []MetaTag{{Name: "x", Content: "y"}}}
	assert.Equal(t, Tags(testSite, in), Tags(testSite, in))
	assert.Equal(t, []string{"a"}, in.Keywords)
	assert.Len(t, in.Meta, 1)
}

func TestTitleAndLang(t *testing.T) {
	assert.Equal(t, "Home • Splotch", Title(testSite, "Home"))
	assert.Equal(t, "Home", Title(Site{}, "Home"))
	assert.Equal(t, "en", Lang(Input{}))
	assert.Equal(t, "hr", Lang(Input{Lang: "hr"}))
}

func TestHeadRendersEscapedTags(t *testing.T) {
	var buf bytes.Buffer
	err := Head(testSite, Input{Title: `Tom & "Jerry"`}).Render(context.Background(), &buf)
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "<title>Tom &amp; &#34;Jerry&#34; • Splotch</title>")
	assert.Contains(t, out, `<meta property="og:title" content="Tom &amp; &#34;Jerry&#34;">`)
	assert.Contains(t, out, `<meta name="twitter:card" content="summary_large_image">`)
}
