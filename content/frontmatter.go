package content

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"gopkg.in/yaml.v3"
)

var (
	// ErrMissingClosingDelimiter indicates the document opened a front-matter
	// block but never closed it.
	ErrMissingClosingDelimiter = errors.New("front-matter closing delimiter is missing")
	// ErrMissingTitle is returned for posts without a title.
	ErrMissingTitle = errors.New("post has no title")
	// ErrMissingDate is returned for posts without a date.
	ErrMissingDate = errors.New("post has no date")
)

// FrontMatter holds the YAML header of a post.
type FrontMatter struct {
	Title       string   `yaml:"title"`
	Date        string   `yaml:"date"`
	Description string   `yaml:"description"`
	Cover       string   `yaml:"cover"`
	CoverAlt    string   `yaml:"coverAlt"`
	Keywords    []string `yaml:"keywords"`
}

// Split separates `---` delimited YAML front-matter from the markdown body.
// A document that does not open with a delimiter has no front-matter.
func Split(doc []byte) (front, body []byte, err error) {
	nl := "\n"
	if i := bytes.IndexByte(doc, '\n'); i > 0 && doc[i-1] == '\r' {
		nl = "\r\n"
	}

	open := []byte("---" + nl)
	if !bytes.HasPrefix(doc, open) {
		return nil, doc, nil
	}
	start := len(open)
	if bytes.HasPrefix(doc[start:], open) {
		return []byte{}, doc[start+len(open):], nil
	}

	closing := []byte(nl + "---" + nl)
	idx := bytes.Index(doc[start:], closing)
	if idx < 0 {
		// A closing delimiter on the last line has no trailing newline.
		if bytes.HasSuffix(doc, []byte(nl+"---")) {
			end := len(doc) - len("---")
			return doc[start:end], []byte{}, nil
		}
		return nil, nil, ErrMissingClosingDelimiter
	}
	return doc[start : start+idx+len(nl)], doc[start+idx+len(closing):], nil
}

// ParseFrontMatter decodes and validates a front-matter block.
func ParseFrontMatter(front []byte) (FrontMatter, time.Time, error) {
	var fm FrontMatter
	if len(front) > 0 {
		if err := yaml.Unmarshal(front, &fm); err != nil {
			return fm, time.Time{}, fmt.Errorf("decode front-matter: %w", err)
		}
	}
	fm.Title = strings.TrimSpace(fm.Title)
	if fm.Title == "" {
		return fm, time.Time{}, ErrMissingTitle
	}
	if strings.TrimSpace(fm.Date) == "" {
		return fm, time.Time{}, ErrMissingDate
	}
	date, err := dateparse.ParseAny(strings.TrimSpace(fm.Date))
	if err != nil {
		return fm, time.Time{}, fmt.Errorf("parse date %q: %w", fm.Date, err)
	}
	return fm, date, nil
}
