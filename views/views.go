// Package views renders the blog pages as templ components, so the server
// and the static build render them the same way.
package views

import (
	"context"
	"encoding/json"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/a-h/templ"

	"github.com/stjepangolemac/splotch/content"
	"github.com/stjepangolemac/splotch/markdown"
	"github.com/stjepangolemac/splotch/seo"
)

var esc = templ.EscapeString[string]

// component renders into a buffer and writes it in one go.
func component(fn func(ctx context.Context, b *strings.Builder) error) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		if err := fn(ctx, &b); err != nil {
			return err
		}
		_, err := io.WriteString(w, b.String())
		return err
	})
}

// Layout wraps body in the page shell: head tags, site header and footer.
func Layout(site Site, page Page, body templ.Component) templ.Component {
	return component(func(ctx context.Context, b *strings.Builder) error {
		lang := seo.Lang(page.SEO)
		if page.SEO.Lang == "" && site.Lang != "" {
			lang = site.Lang
		}
		b.WriteString("<!DOCTYPE html>\n<html lang=\"" + esc(lang) + "\">\n<head>\n")
		b.WriteString("<meta charset=\"utf-8\">\n<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">\n")
		if err := seo.Head(site.SEO(), page.SEO).Render(ctx, b); err != nil {
			return err
		}
		b.WriteString("\n<link rel=\"canonical\" href=\"" + esc(site.URL+page.Path) + "\">\n")
		b.WriteString("<link rel=\"stylesheet\" href=\"/styles.css\">\n")
		b.WriteString("<link rel=\"manifest\" href=\"/manifest.webmanifest\">\n")
		b.WriteString("<link rel=\"alternate\" type=\"application/rss+xml\" title=\"" + esc(site.Title) + "\" href=\"/rss.xml\">\n")
		if site.ThemeColor != "" {
			b.WriteString("<meta name=\"theme-color\" content=\"" + esc(site.ThemeColor) + "\">\n")
		}
		if page.JSONLD != "" {
			// json.Marshal already escapes <, > and &.
			b.WriteString("<script type=\"application/ld+json\">" + page.JSONLD + "</script>\n")
		}
		if site.TrackingID != "" {
			id, err := json.Marshal(site.TrackingID)
			if err != nil {
				return err
			}
			b.WriteString("<script async src=\"https://www.googletagmanager.com/gtag/js?id=" + esc(site.TrackingID) + "\"></script>\n")
			b.WriteString("<script>window.dataLayer=window.dataLayer||[];function gtag(){dataLayer.push(arguments);}gtag('js',new Date());gtag('config'," + string(id) + ",{anonymize_ip:true});</script>\n")
		}
		b.WriteString("</head>\n<body>\n<div class=\"container\">\n<header>\n")
		class := "site-header"
		if page.Path == "/" {
			class = "site-title"
		}
		b.WriteString("<h1 class=\"" + class + "\"><a href=\"/\" title=\"Home\">" + esc(site.Title) + "</a></h1>\n")
		b.WriteString("</header>\n<main>\n")
		if err := body.Render(ctx, b); err != nil {
			return err
		}
		b.WriteString("\n</main>\n<footer>\n")
		b.WriteString("<small>© " + strconv.Itoa(time.Now().Year()) + ", Built with <a href=\"https://go.dev\" title=\"Go homepage\">Go</a></small>\n")
		b.WriteString("</footer>\n</div>\n")
		if site.Analytics {
			b.WriteString("<script src=\"/analytics.js\" defer></script>\n")
		}
		b.WriteString("</body>\n</html>\n")
		return nil
	})
}

// Bio is the author box shown on the index and under every post.
func Bio(site Site) templ.Component {
	return component(func(_ context.Context, b *strings.Builder) error {
		b.WriteString("<div class=\"bio\">\n")
		if site.Avatar.Src != "" {
			b.WriteString("<img src=\"" + esc(site.Avatar.Src) + "\" alt=\"" + esc(site.Author) + "\" width=\"" +
				strconv.Itoa(site.Avatar.Width) + "\" height=\"" + strconv.Itoa(site.Avatar.Height) + "\">\n")
		}
		b.WriteString("<p>Written by <strong>" + esc(site.Author) + "</strong>")
		if site.Bio != "" {
			b.WriteString(" " + esc(site.Bio))
		}
		if site.Twitter != "" {
			b.WriteString(" <a target=\"_blank\" rel=\"nofollow noopener noreferrer\" href=\"https://twitter.com/" +
				esc(site.Twitter) + "\">You can follow me on Twitter</a>")
		}
		b.WriteString("</p>\n</div>")
		return nil
	})
}

// Index lists every post, newest first.
func Index(site Site, posts []*content.Post) templ.Component {
	page := Page{
		Path:   "/",
		SEO:    seo.Input{Title: "Home", Keywords: site.Keywords},
		JSONLD: WebsiteJSONLD(site),
	}
	return Layout(site, page, component(func(ctx context.Context, b *strings.Builder) error {
		if err := Bio(site).Render(ctx, b); err != nil {
			return err
		}
		b.WriteString("\n")
		if len(posts) == 0 {
			b.WriteString("<p>No posts yet.</p>\n")
		}
		for _, p := range posts {
			b.WriteString("<div class=\"post-entry\">\n")
			b.WriteString("<h2 class=\"post-list-title\"><a href=\"" + esc(p.URL()) + "\">" + esc(p.Title) + "</a></h2>\n")
			b.WriteString("<small>" + esc(p.DisplayDate()) + " • " + esc(p.ReadTime()) + "</small>\n")
			b.WriteString("<p>" + esc(p.Summary()) + "</p>\n</div>\n")
		}
		return nil
	}))
}

// PostSEO builds the head input for a post: its summary as description,
// its keywords and, with a cover, the social card images.
func PostSEO(post *content.Post) seo.Input {
	in := seo.Input{
		Title:       post.Title,
		Description: post.Summary(),
		Keywords:    post.Keywords,
	}
	if c := post.Cover; c != nil {
		in.TwitterImage = &seo.Image{Src: c.Twitter.Src, Width: c.Twitter.Width, Height: c.Twitter.Height}
		in.FacebookImage = &seo.Image{Src: c.Facebook.Src, Width: c.Facebook.Width, Height: c.Facebook.Height}
		in.Alt = c.Alt
	}
	return in
}

// Post renders a single post with its share link and neighbours.
func Post(site Site, post *content.Post) templ.Component {
	page := Page{
		Path:   post.URL(),
		SEO:    PostSEO(post),
		JSONLD: BlogPostingJSONLD(site, post),
	}
	return Layout(site, page, component(func(ctx context.Context, b *strings.Builder) error {
		b.WriteString("<article>\n<header>\n")
		b.WriteString("<h1 class=\"post-title\">" + esc(post.Title) + "</h1>\n")
		if post.Description != "" {
			b.WriteString("<p class=\"post-description\">" + esc(post.Description) + "</p>\n")
		}
		b.WriteString("<p class=\"post-date\">" + esc(post.DisplayDate()) + " • " + esc(post.ReadTime()) + "</p>\n</header>\n")
		if c := post.Cover; c != nil {
			b.WriteString("<a class=\"cover\" href=\"" + esc(c.PublicURL) + "\"><img src=\"" + esc(c.Fluid.Src) +
				"\" srcset=\"" + esc(c.Fluid.SrcSet) + "\" sizes=\"" + esc(c.Fluid.Sizes) +
				"\" width=\"" + strconv.Itoa(c.Fluid.Width) + "\" height=\"" + strconv.Itoa(c.Fluid.Height) +
				"\" alt=\"" + esc(c.Alt) + "\"></a>\n")
		}
		b.WriteString("<div class=\"post-content\">\n")
		if err := markdown.Markdown(post.HTML).Render(ctx, b); err != nil {
			return err
		}
		b.WriteString("\n</div>\n<div class=\"share\">\n")
		b.WriteString("<p><strong>One last thing...</strong> If you like this post be sure to share it!</p>\n")
		b.WriteString("<a target=\"_blank\" rel=\"noopener noreferrer nofollow\" href=\"" + esc(ShareURL(site, post)) + "\">Share on Twitter</a>\n")
		b.WriteString("</div>\n<hr>\n<footer>\n")
		if err := Bio(site).Render(ctx, b); err != nil {
			return err
		}
		b.WriteString("\n</footer>\n</article>\n<ul class=\"post-nav\">\n<li>")
		if p := post.Previous; p != nil {
			b.WriteString("<a href=\"" + esc(p.URL()) + "\" rel=\"prev\">← " + esc(p.Title) + "</a>")
		}
		b.WriteString("</li>\n<li>")
		if n := post.Next; n != nil {
			b.WriteString("<a href=\"" + esc(n.URL()) + "\" rel=\"next\">" + esc(n.Title) + " →</a>")
		}
		b.WriteString("</li>\n</ul>\n")
		return nil
	}))
}

// NotFound is the 404 page.
func NotFound(site Site) templ.Component {
	return Layout(site, Page{Path: "/404.html", SEO: seo.Input{Title: "404: Not Found"}}, component(func(_ context.Context, b *strings.Builder) error {
		b.WriteString("<h1>Not found</h1>\n<p>You just hit a route that doesn't exist... the sadness.</p>\n<p><a href=\"/\">Back home</a></p>\n")
		return nil
	}))
}

// ServerError is the 500 page.
func ServerError(site Site) templ.Component {
	return Layout(site, Page{Path: "/500.html", SEO: seo.Input{Title: "500: Server Error"}}, component(func(_ context.Context, b *strings.Builder) error {
		b.WriteString("<h1>Something went wrong</h1>\n<p>The page could not be rendered. Please try again later.</p>\n<p><a href=\"/\">Back home</a></p>\n")
		return nil
	}))
}
