// Package seo assembles the meta tags every page puts in its document head.
package seo

import "strings"

// DefaultLang is used for the <html lang> attribute when a page sets none.
const DefaultLang = "en"

// MetaTag is a single <meta> descriptor. Exactly one of Name or Property is set.
type MetaTag struct {
	Name     string `json:"name,omitempty"`
	Property string `json:"property,omitempty"`
	Content  string `json:"content"`
}

// Key returns the tag's name or property, whichever is set.
func (t MetaTag) Key() string {
	if t.Property != "" {
		return t.Property
	}
	return t.Name
}

// Site carries the site-wide defaults the assembler falls back to.
type Site struct {
	Title       string
	Description string
	Author      string
	URL         string // canonical base, no trailing slash
}

// Image is a pre-rendered fixed-size image variant.
type Image struct {
	Src    string // path relative to the site root, e.g. /static/ab12/cover-600x314.jpg
	Width  int
	Height int
}

// Input holds the per-page values. Only Title is required.
type Input struct {
	Title         string
	Description   string
	Lang          string
	Keywords      []string
	Meta          []MetaTag
	TwitterImage  *Image
	FacebookImage *Image
	Alt           string
}

// Tags builds the ordered meta tag list for a page: the fixed base set,
// then in.Meta verbatim, then keywords, images and image alt text when present.
func Tags(site Site, in Input) []MetaTag {
	description := in.Description
	if description == "" {
		description = site.Description
	}

	tags := make([]MetaTag, 0, 8+len(in.Meta)+4)
	tags = append(tags,
		MetaTag{Name: "description", Content: description},
		MetaTag{Property: "og:title", Content: in.Title},
		MetaTag{Property: "og:description", Content: description},
		MetaTag{Property: "og:type", Content: "website"},
		MetaTag{Name: "twitter:card", Content: "summary_large_image"},
		MetaTag{Name: "twitter:creator", Content: site.Author},
		MetaTag{Name: "twitter:title", Content: in.Title},
		MetaTag{Name: "twitter:description", Content: description},
	)
	tags = append(tags, in.Meta...)

	if len(in.Keywords) > 0 {
		tags = append(tags, MetaTag{Name: "keywords", Content: strings.Join(in.Keywords, ", ")})
	}
	if in.TwitterImage != nil {
		tags = append(tags, MetaTag{Name: "twitter:image", Content: site.URL + in.TwitterImage.Src})
	}
	if in.FacebookImage != nil {
		tags = append(tags, MetaTag{Property: "og:image", Content: site.URL + in.FacebookImage.Src})
	}
	if in.Alt != "" {
		tags = append(tags, MetaTag{Name: "twitter:image:alt", Content: in.Alt})
	}
	return tags
}

// Title formats the document title as "<page> • <site>".
func Title(site Site, title string) string {
	if site.Title == "" {
		return title
	}
	return title + " • " + site.Title
}

// Lang returns the page language, falling back to DefaultLang.
func Lang(in Input) string {
	if in.Lang == "" {
		return DefaultLang
	}
	return in.Lang
}
