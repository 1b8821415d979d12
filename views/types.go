package views

import (
	"net/url"
	"time"

	"github.com/stjepangolemac/splotch/analytics"
	"github.com/stjepangolemac/splotch/imaging"
	"github.com/stjepangolemac/splotch/seo"
)

// Site holds the site-wide settings every page is rendered with.
type Site struct {
	Title       string
	Description string
	Author      string
	Bio         string // follows "Written by <author>"
	URL         string // absolute, no trailing slash
	Twitter     string // handle without @
	Lang        string
	TrackingID  string // Google Analytics; empty disables the snippet
	Keywords    []string
	Avatar      imaging.Variant
	Analytics   bool // self-hosted beacon
	ThemeColor  string
}

// SEO returns the subset of s the tag assembler needs.
func (s Site) SEO() seo.Site {
	return seo.Site{Title: s.Title, Description: s.Description, Author: s.Author, URL: s.URL}
}

// Host is the host part of URL.
func (s Site) Host() string {
	u, err := url.Parse(s.URL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// Page carries per-page head data into the layout.
type Page struct {
	// Path is the site-relative URL of the page; "/" makes the title large.
	Path   string
	SEO    seo.Input
	JSONLD string
}

// Build is one row of the admin build history.
type Build struct {
	ID       string
	Started  time.Time
	Duration time.Duration
	Posts    int
	Pages    int
	Err      string
}

// Dashboard is the data behind the admin dashboard.
type Dashboard struct {
	Posts   int
	Builds  []Build
	Report  *analytics.Report
	Message string
	CSRF    string
}
