package views

import (
	"encoding/json"
	"net/url"
	"path"
	"strings"

	"github.com/samber/lo"

	"github.com/stjepangolemac/splotch/content"
)

// BuildURL joins path segments onto a base URL, ensuring a trailing slash.
func BuildURL(base string, segments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join(u.Path, path.Join(segments...))
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.String()
}

// ShareURL is the tweet intent for a post, tagged with the site hashtag and
// the post keywords.
func ShareURL(site Site, post *content.Post) string {
	q := url.Values{}
	q.Set("text", post.Title)
	q.Set("url", BuildURL(site.URL, post.Slug))
	tags := lo.Uniq(append([]string{"splotch"}, lo.Map(post.Keywords, func(k string, _ int) string {
		return strings.ReplaceAll(k, " ", "")
	})...))
	q.Set("hashtags", strings.Join(lo.Compact(tags), ","))
	return "https://twitter.com/share?" + q.Encode()
}

func person(name string) map[string]string {
	return map[string]string{"@type": "Person", "name": name}
}

func jsonLD(data map[string]any) string {
	b, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// WebsiteJSONLD produces a Schema.org WebSite block.
func WebsiteJSONLD(site Site) string {
	data := map[string]any{
		"@context": "https://schema.org",
		"@type":    "WebSite",
		"name":     site.Title,
		"url":      BuildURL(site.URL),
	}
	if site.Description != "" {
		data["description"] = site.Description
	}
	if site.Author != "" {
		data["author"] = person(site.Author)
	}
	return jsonLD(data)
}

// BlogPostingJSONLD produces a Schema.org BlogPosting block for a post.
func BlogPostingJSONLD(site Site, post *content.Post) string {
	postURL := BuildURL(site.URL, post.Slug)
	data := map[string]any{
		"@context":      "https://schema.org",
		"@type":         "BlogPosting",
		"headline":      post.Title,
		"description":   post.Summary(),
		"datePublished": post.Date.Format("2006-01-02"),
		"url":           postURL,
		"wordCount":     post.Words,
		"publisher": map[string]string{
			"@type": "Organization",
			"name":  site.Title,
		},
		"mainEntityOfPage": map[string]string{
			"@type": "WebPage",
			"@id":   postURL,
		},
	}
	if site.Author != "" {
		data["author"] = person(site.Author)
	}
	if len(post.Keywords) > 0 {
		data["keywords"] = strings.Join(post.Keywords, ", ")
	}
	if post.Cover != nil {
		data["image"] = site.URL + post.Cover.Facebook.Src
	}
	return jsonLD(data)
}
