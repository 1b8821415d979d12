// Package analytics records privacy-friendly page views for the blog and
// aggregates them for the admin dashboard. Visitor identities are salted
// hashes; raw IP addresses are never stored.
package analytics

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/samber/lo"
)

// Visit is a single human page view.
type Visit struct {
	VisitorID   string
	SessionID   string
	IPHash      string
	Browser     string
	OS          string
	Device      string
	Path        string
	Referrer    string
	ScreenSize  string
	Timestamp   time.Time
	DurationSec int
}

// BotVisit is a page view by a crawler.
type BotVisit struct {
	BotName   string
	IPHash    string
	UserAgent string
	Path      string
	Timestamp time.Time
}

// Stats is the aggregated view of human traffic in a period.
type Stats struct {
	Period         string          `json:"period"`
	UniqueVisitors int             `json:"unique_visitors"`
	TotalViews     int             `json:"total_views"`
	AvgDuration    int             `json:"avg_duration_sec"`
	TopPages       []PageStat      `json:"top_pages"`
	LatestPages    []LatestVisit   `json:"latest_pages"`
	Browsers       []DimensionStat `json:"browsers"`
	OS             []DimensionStat `json:"os"`
	Devices        []DimensionStat `json:"devices"`
	Referrers      []DimensionStat `json:"referrers"`
	Views          []Bucket        `json:"views"`
}

// BotStats is the aggregated view of crawler traffic in a period.
type BotStats struct {
	Period      string          `json:"period"`
	TotalVisits int             `json:"total_visits"`
	TopBots     []DimensionStat `json:"top_bots"`
	TopPages    []PageStat      `json:"top_pages"`
	Visits      []Bucket        `json:"visits"`
}

// PageStat counts views of one path.
type PageStat struct {
	Path  string `json:"path"`
	Views int    `json:"views"`
}

// LatestVisit is one recent page view.
type LatestVisit struct {
	Path      string `json:"path"`
	Timestamp string `json:"timestamp"`
	Browser   string `json:"browser"`
}

// DimensionStat counts visits sharing one value of a dimension.
type DimensionStat struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Bucket counts views in one hour, day or month.
type Bucket struct {
	Label string `json:"label"`
	Views int    `json:"views"`
}

// Hasher derives anonymous identifiers from request data with a salt that
// is persisted per installation.
type Hasher struct {
	salt string
}

// NewSalt returns a random hex salt.
func NewSalt() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func (h Hasher) sum(parts ...string) string {
	sum := sha256.Sum256([]byte(h.salt + strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])[:16]
}

// IP hashes an address.
func (h Hasher) IP(ip string) string {
	return h.sum(ip)
}

// Visitor derives a visitor ID from address and user agent.
func (h Hasher) Visitor(ip, userAgent string) string {
	return h.sum(ip, userAgent)
}

// Session derives a per-day session ID for a visitor.
func (h Hasher) Session(visitorID string, day time.Time) string {
	return h.sum(visitorID, day.UTC().Format("2006-01-02"))
}

// ParseUserAgent classifies a user agent into browser, OS and device.
func ParseUserAgent(ua string) (browser, os, device string) {
	ua = strings.ToLower(ua)

	// Specific engines first: Edge and Opera also claim to be Chrome.
	switch {
	case strings.Contains(ua, "firefox"):
		browser = "Firefox"
	case strings.Contains(ua, "opera") || strings.Contains(ua, "opr/"):
		browser = "Opera"
	case strings.Contains(ua, "edg"):
		browser = "Edge"
	case strings.Contains(ua, "chrome"):
		browser = "Chrome"
	case strings.Contains(ua, "safari"):
		browser = "Safari"
	default:
		browser = "Other"
	}

	switch {
	case strings.Contains(ua, "windows"):
		os = "Windows"
	case strings.Contains(ua, "android"):
		os = "Android"
	case strings.Contains(ua, "iphone") || strings.Contains(ua, "ipad"):
		os = "iOS"
	case strings.Contains(ua, "macintosh") || strings.Contains(ua, "mac os"):
		os = "macOS"
	case strings.Contains(ua, "linux"):
		os = "Linux"
	default:
		os = "Other"
	}

	switch {
	case strings.Contains(ua, "tablet") || strings.Contains(ua, "ipad"):
		device = "Tablet"
	case strings.Contains(ua, "mobile"):
		device = "Mobile"
	default:
		device = "Desktop"
	}
	return
}

type botPattern struct {
	needle string
	name   string
}

// Checked in order; the generic patterns come last.
var botPatterns = []botPattern{
	{"googlebot", "Googlebot"},
	{"bingbot", "Bingbot"},
	{"yandex", "Yandex"},
	{"baidu", "Baidu"},
	{"duckduckbot", "DuckDuckBot"},
	{"facebookexternalhit", "Facebook"},
	{"twitterbot", "Twitterbot"},
	{"linkedinbot", "LinkedIn"},
	{"ahrefsbot", "Ahrefs"},
	{"semrushbot", "SEMrush"},
	{"mj12bot", "Majestic"},
	{"dotbot", "Moz"},
	{"slurp", "Yahoo Slurp"},
	{"crawler", "Generic Crawler"},
	{"crawl", "Generic Crawler"},
	{"spider", "Generic Spider"},
	{"scrape", "Scraper"},
	{"bot", "Other Bot"},
}

// BotName returns the crawler name for ua, or "" for humans.
func BotName(ua string) string {
	ua = strings.ToLower(ua)
	p, ok := lo.Find(botPatterns, func(p botPattern) bool {
		return strings.Contains(ua, p.needle)
	})
	if !ok {
		return ""
	}
	return p.name
}

var searchEngines = []botPattern{
	{"google.", "Google"},
	{"bing.", "Bing"},
	{"duckduckgo.", "DuckDuckGo"},
	{"yahoo.", "Yahoo"},
	{"github.", "GitHub"},
}

// CleanReferrer reduces a referrer URL to a source name. Referrers from
// siteHost count as internal navigation.
func CleanReferrer(ref, siteHost string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "Direct"
	}
	u, err := url.Parse(ref)
	if err != nil || u.Host == "" {
		return "Other"
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	if siteHost != "" && host == strings.TrimPrefix(strings.ToLower(siteHost), "www.") {
		return "Internal"
	}
	if p, ok := lo.Find(searchEngines, func(p botPattern) bool {
		return strings.Contains(host, p.needle)
	}); ok {
		return p.name
	}
	return host
}
