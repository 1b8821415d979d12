package splotch

import (
	"bytes"
	"encoding/xml"

	"github.com/stjepangolemac/splotch/content"
	"github.com/stjepangolemac/splotch/views"
)

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc        string  `xml:"loc"`
	LastMod    string  `xml:"lastmod,omitempty"`
	ChangeFreq string  `xml:"changefreq"`
	Priority   float64 `xml:"priority"`
}

func (a *App) renderSitemap(posts []*content.Post) ([]byte, error) {
	base := a.Config.URL
	home := sitemapURL{Loc: views.BuildURL(base), ChangeFreq: "daily", Priority: 0.7}
	if len(posts) > 0 {
		home.LastMod = posts[0].Date.Format("2006-01-02")
	}
	urls := []sitemapURL{home}
	for _, p := range posts {
		urls = append(urls, sitemapURL{
			Loc:        views.BuildURL(base, p.Slug),
			LastMod:    p.Date.Format("2006-01-02"),
			ChangeFreq: "daily",
			Priority:   0.7,
		})
	}
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	if err := xml.NewEncoder(&buf).Encode(sitemapURLSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  urls,
	}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (a *App) renderRobots() []byte {
	var b bytes.Buffer
	b.WriteString("User-agent: *\nAllow: /\n")
	if a.Config.AdminEnabled() {
		b.WriteString("Disallow: /admin/\n")
	}
	b.WriteString("Sitemap: " + a.Config.URL + "/sitemap.xml\n")
	return b.Bytes()
}
