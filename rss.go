package splotch

import (
	"bytes"
	"encoding/xml"
	"time"

	"github.com/stjepangolemac/splotch/content"
	"github.com/stjepangolemac/splotch/views"
)

type rssXML struct {
	XMLName      xml.Name   `xml:"rss"`
	Version      string     `xml:"version,attr"`
	XMLNSContent string     `xml:"xmlns:content,attr"`
	Channel      rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	Language      string    `xml:"language,omitempty"`
	Generator     string    `xml:"generator"`
	LastBuildDate string    `xml:"lastBuildDate,omitempty"`
	Items         []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string   `xml:"title"`
	Link        string   `xml:"link"`
	Description string   `xml:"description"`
	PubDate     string   `xml:"pubDate"`
	GUID        rssGUID  `xml:"guid"`
	Content     rssCDATA `xml:"content:encoded"`
}

type rssGUID struct {
	IsPermaLink bool   `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

type rssCDATA struct {
	Text string `xml:",cdata"`
}

// renderFeed returns the RSS 2.0 feed of posts, newest first, with the full
// post HTML in content:encoded.
func (a *App) renderFeed(posts []*content.Post) ([]byte, error) {
	base := a.Config.URL
	items := make([]rssItem, 0, len(posts))
	for _, p := range posts {
		postURL := views.BuildURL(base, p.Slug)
		items = append(items, rssItem{
			Title:       p.Title,
			Link:        postURL,
			Description: p.Summary(),
			PubDate:     p.Date.Format(time.RFC1123Z),
			GUID:        rssGUID{IsPermaLink: false, Value: postURL},
			Content:     rssCDATA{Text: p.HTML},
		})
	}
	feed := rssXML{
		Version:      "2.0",
		XMLNSContent: "http://purl.org/rss/1.0/modules/content/",
		Channel: rssChannel{
			Title:       a.Config.Title,
			Link:        views.BuildURL(base),
			Description: a.Config.Description,
			Language:    a.Config.Lang,
			Generator:   "splotch",
			Items:       items,
		},
	}
	if len(posts) > 0 {
		feed.Channel.LastBuildDate = posts[0].Date.Format(time.RFC1123Z)
	}
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(feed); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
