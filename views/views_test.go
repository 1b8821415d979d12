package views

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stjepangolemac/splotch/analytics"
	"github.com/stjepangolemac/splotch/content"
	"github.com/stjepangolemac/splotch/imaging"
)

var testSite = Site{
	Title:       "Splotch",
	Description: "Personal blog",
	Author:      "Stjepan Golemac",
	Bio:         "who lives and works in London.",
	URL:         "https://splotch.dev",
	Twitter:     "SGolemac",
	Keywords:    []string{"blog", "go"},
	Avatar:      imaging.Variant{Src: "/static/abc/profile-pic-50x50.jpg", Width: 50, Height: 50},
	ThemeColor:  "#d43900",
}

func renderString(t *testing.T, c templ.Component) string {
	t.Helper()
	var b strings.Builder
	require.NoError(t, c.Render(context.Background(), &b))
	return b.String()
}

func testPosts() []*content.Post {
	older := &content.Post{Slug: "older", Title: "Older", Date: time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC), Excerpt: "Old news.", TimeToRead: 1}
	post := &content.Post{
		Slug:        "hello",
		Title:       "Hello <World>",
		Description: "A greeting",
		Keywords:    []string{"go", "static sites"},
		Date:        time.Date(2019, 3, 10, 0, 0, 0, 0, time.UTC),
		HTML:        "<p>Body <em>text</em></p>",
		TimeToRead:  3,
		Words:       600,
		Previous:    older,
		Cover: &content.Cover{
			Fluid:     imaging.Fluid{Src: "/static/c/cover-1440x720.jpg", SrcSet: "/static/c/cover-200x100.jpg 200w", Sizes: "(max-width: 1440px) 100vw, 1440px", Width: 1440, Height: 720},
			Twitter:   imaging.Variant{Src: "/static/c/cover-600x314.jpg", Width: 600, Height: 314},
			Facebook:  imaging.Variant{Src: "/static/c/cover-1200x627.jpg", Width: 1200, Height: 627},
			PublicURL: "/static/c/cover.png",
			Alt:       "A cover",
		},
	}
	older.Next = post
	return []*content.Post{post, older}
}

func TestIndex(t *testing.T) {
	html := renderString(t, Index(testSite, testPosts()))

	assert.True(t, strings.HasPrefix(html, "<!DOCTYPE html>"))
	assert.Contains(t, html, `<html lang="en">`)
	assert.Contains(t, html, "<title>Home • Splotch</title>")
	assert.Contains(t, html, `<meta name="keywords" content="blog, go">`)
	assert.Contains(t, html, `<h1 class="site-title">`)
	assert.Contains(t, html, `<a href="/hello/">Hello &lt;World&gt;</a>`)
	assert.Contains(t, html, "March 10, 2019 • 3 minutes")
	assert.Contains(t, html, "January 1, 2019 • 1 minute")
	assert.Contains(t, html, "<p>A greeting</p>")
	assert.Contains(t, html, "<p>Old news.</p>")
	assert.Contains(t, html, `"@type":"WebSite"`)
	assert.Contains(t, html, `<meta name="theme-color" content="#d43900">`)
	assert.NotContains(t, html, "googletagmanager")
	assert.NotContains(t, html, "/analytics.js")
}

func TestPost(t *testing.T) {
	post := testPosts()[0]
	html := renderString(t, Post(testSite, post))

	assert.Contains(t, html, "<title>Hello &lt;World&gt; • Splotch</title>")
	assert.Contains(t, html, `<h1 class="site-header">`)
	assert.Contains(t, html, `<meta name="description" content="A greeting">`)
	assert.Contains(t, html, `<meta name="twitter:image" content="https://splotch.dev/static/c/cover-600x314.jpg">`)
	assert.Contains(t, html, `<meta property="og:image" content="https://splotch.dev/static/c/cover-1200x627.jpg">`)
	assert.Contains(t, html, `<meta name="twitter:image:alt" content="A cover">`)
	assert.Contains(t, html, `<link rel="canonical" href="https://splotch.dev/hello/">`)
	assert.Contains(t, html, "<p>Body <em>text</em></p>")
	assert.Contains(t, html, `<a class="cover" href="/static/c/cover.png">`)
	assert.Contains(t, html, `<p class="post-date">March 10, 2019 • 3 minutes</p>`)
	assert.Contains(t, html, "One last thing...")
	assert.Contains(t, html, `rel="prev">← Older</a>`)
	assert.NotContains(t, html, `rel="next"`)
	assert.Contains(t, html, "Written by <strong>Stjepan Golemac</strong> who lives and works in London.")
	assert.Contains(t, html, `href="https://twitter.com/SGolemac"`)
	assert.Contains(t, html, `"@type":"BlogPosting"`)
}

func TestPostSEOWithoutCover(t *testing.T) {
	post := &content.Post{Title: "T", Excerpt: "An excerpt"}
	in := PostSEO(post)
	assert.Equal(t, "An excerpt", in.Description)
	assert.Nil(t, in.TwitterImage)
	assert.Nil(t, in.FacebookImage)
	assert.Empty(t, in.Alt)
}

func TestLayoutScripts(t *testing.T) {
	site := testSite
	site.TrackingID = "UA-135752216-1"
	site.Analytics = true
	html := renderString(t, NotFound(site))

	assert.Contains(t, html, "https://www.googletagmanager.com/gtag/js?id=UA-135752216-1")
	assert.Contains(t, html, `gtag('config',"UA-135752216-1"`)
	assert.Contains(t, html, `<script src="/analytics.js" defer></script>`)
	assert.Contains(t, html, "<title>404: Not Found • Splotch</title>")
}

func TestBio(t *testing.T) {
	html := renderString(t, Bio(Site{Author: "Ana"}))
	assert.Contains(t, html, "Written by <strong>Ana</strong></p>")
	assert.NotContains(t, html, "<img")
	assert.NotContains(t, html, "twitter.com")
}

func TestAdminPages(t *testing.T) {
	html := renderString(t, AdminLogin(testSite, true, "tok"))
	assert.Contains(t, html, "Invalid password.")
	assert.Contains(t, html, `name="_csrf" value="tok"`)

	report := &analytics.Report{
		Period:   "week",
		Realtime: 2,
		Stats: &analytics.Stats{
			Period:         "2019-03-03 to 2019-03-11",
			UniqueVisitors: 4,
			TotalViews:     9,
			TopPages:       []analytics.PageStat{{Path: "/hello/", Views: 5}},
		},
		Bots: &analytics.BotStats{TotalVisits: 1, TopBots: []analytics.DimensionStat{{Name: "Googlebot", Count: 1}}},
	}
	html = renderString(t, AdminDashboard(testSite, Dashboard{
		Posts:  2,
		Builds: []Build{{ID: "b1", Started: time.Date(2019, 3, 10, 12, 0, 0, 0, time.UTC), Duration: 1500 * time.Millisecond, Pages: 10, Posts: 2}},
		Report: report,
		CSRF:   "tok",
	}))
	assert.Contains(t, html, "2 posts published.")
	assert.Contains(t, html, "<td>1.5s</td>")
	assert.Contains(t, html, "4 visitors, 9 views, 2 online now")
	assert.Contains(t, html, "<tr><td>/hello/</td><td>5</td></tr>")
	assert.Contains(t, html, "<tr><td>Googlebot</td><td>1</td></tr>")
}

func TestShareURL(t *testing.T) {
	post := testPosts()[0]
	assert.Equal(t,
		"https://twitter.com/share?hashtags=splotch%2Cgo%2Cstaticsites&text=Hello+%3CWorld%3E&url=https%3A%2F%2Fsplotch.dev%2Fhello%2F",
		ShareURL(testSite, post))
}

func TestBuildURL(t *testing.T) {
	assert.Equal(t, "https://splotch.dev/", BuildURL("https://splotch.dev"))
	assert.Equal(t, "https://splotch.dev/2019/hello/", BuildURL("https://splotch.dev", "2019/hello"))
}

func TestAdminDashboardWithoutAnalytics(t *testing.T) {
	html := renderString(t, AdminDashboard(testSite, Dashboard{
		Builds:  []Build{{ID: "b2", Started: time.Date(2019, 3, 11, 8, 0, 0, 0, time.UTC), Err: `load <posts>: boom`}},
		Message: "Built & done",
		CSRF:    "tok",
	}))
	assert.Contains(t, html, "<p>Built &amp; done</p>")
	assert.Contains(t, html, `<span class="error">load &lt;posts&gt;: boom</span>`)
	assert.Contains(t, html, `<td title="b2">2019-03-11 08:00:00</td>`)
	assert.NotContains(t, html, "Visitors")
	assert.Equal(t, 2, strings.Count(html, `name="_csrf" value="tok"`))
}
