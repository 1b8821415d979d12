// Package content loads markdown posts from disk into renderable posts.
package content

import (
	"math"
	"path"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/stjepangolemac/splotch/imaging"
	"github.com/stjepangolemac/splotch/markdown"
)

const (
	// ExcerptLength is the maximum length of an excerpt before the ellipsis.
	ExcerptLength = 160
	// WordsPerMinute is the reading speed used for TimeToRead.
	WordsPerMinute = 265
	// DateLayout is how post dates are displayed.
	DateLayout = "January 2, 2006"
)

// Post is a parsed and rendered markdown document.
type Post struct {
	// Path is the source file relative to the content directory.
	Path        string
	Slug        string
	Title       string
	Description string
	Keywords    []string
	Date        time.Time
	HTML        string
	Excerpt     string
	Words       int
	TimeToRead  int
	Cover       *Cover

	// Previous is the next-older post, Next the next-newer one.
	Previous *Post
	Next     *Post
}

// Cover holds the derived variants of a post's cover image.
type Cover struct {
	Fluid     imaging.Fluid
	Twitter   imaging.Variant
	Facebook  imaging.Variant
	PublicURL string
	Alt       string
}

// URL is the site-relative path of the post.
func (p *Post) URL() string {
	return "/" + p.Slug + "/"
}

// DisplayDate formats the post date for humans.
func (p *Post) DisplayDate() string {
	return p.Date.Format(DateLayout)
}

// Summary is the description, or the excerpt when there is none.
func (p *Post) Summary() string {
	if p.Description != "" {
		return p.Description
	}
	return p.Excerpt
}

// ReadTime is TimeToRead as "1 minute" or "N minutes".
func (p *Post) ReadTime() string {
	if p.TimeToRead > 1 {
		return strconv.Itoa(p.TimeToRead) + " minutes"
	}
	return strconv.Itoa(p.TimeToRead) + " minute"
}

// Slugify converts text to a lowercase, hyphen separated, accent free slug.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(markdown.StripAccents(s)))
	var b strings.Builder
	prev := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prev = false
		default:
			if !prev && b.Len() > 0 {
				b.WriteByte('-')
				prev = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// SlugFor maps a path relative to the content directory to a slug:
// "2019/Hello World/index.md" becomes "2019/hello-world".
func SlugFor(rel string) string {
	rel = strings.TrimSuffix(rel, path.Ext(rel))
	rel = strings.TrimSuffix(rel, "/index")
	if rel == "index" {
		return ""
	}
	var segs []string
	for _, seg := range strings.Split(rel, "/") {
		if s := Slugify(seg); s != "" {
			segs = append(segs, s)
		}
	}
	return strings.Join(segs, "/")
}

// plainText extracts the visible text of rendered HTML, skipping footnotes.
func plainText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}
	doc.Find(".footnotes, sup.footnote-ref, a.anchor").Remove()
	return strings.Join(strings.Fields(doc.Text()), " "), nil
}

// Excerpt prunes text to at most length characters on a word boundary and
// appends an ellipsis when anything was cut.
func Excerpt(text string, length int) string {
	if utf8.RuneCountInString(text) <= length {
		return text
	}
	runes := []rune(text)
	cut := string(runes[:length+1])
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	} else {
		cut = string(runes[:length])
	}
	return strings.TrimRight(cut, " ,.;:") + "…"
}

// TimeToRead returns the reading time in whole minutes, at least one.
func TimeToRead(words int) int {
	return max(1, int(math.Round(float64(words)/WordsPerMinute)))
}
