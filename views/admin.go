package views

import (
	"context"
	"strconv"
	"strings"

	"github.com/a-h/templ"
	"github.com/samber/lo"

	"github.com/stjepangolemac/splotch/analytics"
	"github.com/stjepangolemac/splotch/seo"
)

func csrfField(b *strings.Builder, token string) {
	b.WriteString("<input type=\"hidden\" name=\"_csrf\" value=\"" + esc(token) + "\">\n")
}

// AdminLogin is the password form.
func AdminLogin(site Site, showError bool, csrf string) templ.Component {
	return Layout(site, Page{Path: "/admin/login", SEO: seo.Input{Title: "Admin"}}, component(func(_ context.Context, b *strings.Builder) error {
		b.WriteString("<h2>Admin</h2>\n")
		if showError {
			b.WriteString("<p class=\"error\">Invalid password.</p>\n")
		}
		b.WriteString("<form method=\"post\" action=\"/admin/login\">\n")
		csrfField(b, csrf)
		b.WriteString("<p><label>Password <input type=\"password\" name=\"password\" autocomplete=\"current-password\" required autofocus></label></p>\n")
		b.WriteString("<p><button type=\"submit\">Log in</button></p>\n</form>\n")
		return nil
	}))
}

// AdminDashboard shows build history and visitor statistics.
func AdminDashboard(site Site, d Dashboard) templ.Component {
	return Layout(site, Page{Path: "/admin/", SEO: seo.Input{Title: "Dashboard"}}, component(func(_ context.Context, b *strings.Builder) error {
		b.WriteString("<h2>Dashboard</h2>\n")
		if d.Message != "" {
			b.WriteString("<p>" + esc(d.Message) + "</p>\n")
		}
		b.WriteString("<p>" + strconv.Itoa(d.Posts) + " posts published.</p>\n")
		b.WriteString("<form method=\"post\" action=\"/admin/rebuild\">\n")
		csrfField(b, d.CSRF)
		b.WriteString("<button type=\"submit\">Rebuild</button>\n</form>\n")

		b.WriteString("<h3>Builds</h3>\n<table class=\"admin-table\">\n")
		b.WriteString("<thead><tr><th>Started</th><th>Posts</th><th>Pages</th><th>Duration</th><th>Status</th></tr></thead>\n<tbody>\n")
		if len(d.Builds) == 0 {
			b.WriteString("<tr><td colspan=\"5\">No builds yet.</td></tr>\n")
		}
		for _, r := range d.Builds {
			status := "ok"
			if r.Err != "" {
				status = "<span class=\"error\">" + esc(r.Err) + "</span>"
			}
			b.WriteString("<tr><td title=\"" + esc(r.ID) + "\">" + r.Started.Format("2006-01-02 15:04:05") + "</td><td>" +
				strconv.Itoa(r.Posts) + "</td><td>" + strconv.Itoa(r.Pages) + "</td><td>" + r.Duration.String() +
				"</td><td>" + status + "</td></tr>\n")
		}
		b.WriteString("</tbody>\n</table>\n")

		if rep := d.Report; rep != nil && rep.Stats != nil {
			s := rep.Stats
			b.WriteString("<h3>Visitors</h3>\n")
			b.WriteString("<p>" + esc(s.Period) + ": " + strconv.Itoa(s.UniqueVisitors) + " visitors, " + strconv.Itoa(s.TotalViews) +
				" views, " + strconv.Itoa(rep.Realtime) + " online now. Average time on page " + strconv.Itoa(s.AvgDuration) + "s.</p>\n")
			b.WriteString("<p><a href=\"/admin/?period=today\">Today</a> · <a href=\"/admin/?period=week\">Week</a> · " +
				"<a href=\"/admin/?period=month\">Month</a> · <a href=\"/admin/?period=year\">Year</a></p>\n")
			pages := lo.Map(s.TopPages, func(p analytics.PageStat, _ int) analytics.DimensionStat {
				return analytics.DimensionStat{Name: p.Path, Count: p.Views}
			})
			statTable(b, "Page", pages)
			statTable(b, "Referrer", s.Referrers)
			statTable(b, "Browser", s.Browsers)
			statTable(b, "Device", s.Devices)
			if bots := rep.Bots; bots != nil {
				b.WriteString("<h3>Crawlers</h3>\n<p>" + strconv.Itoa(bots.TotalVisits) + " crawler visits.</p>\n")
				statTable(b, "Crawler", bots.TopBots)
			}
		}

		b.WriteString("<form method=\"post\" action=\"/admin/logout\">\n")
		csrfField(b, d.CSRF)
		b.WriteString("<button type=\"submit\">Log out</button>\n</form>\n")
		return nil
	}))
}

func statTable(b *strings.Builder, name string, rows []analytics.DimensionStat) {
	b.WriteString("<table class=\"admin-table\">\n<thead><tr><th>" + esc(name) + "</th><th>Count</th></tr></thead>\n<tbody>\n")
	if len(rows) == 0 {
		b.WriteString("<tr><td colspan=\"2\">No data.</td></tr>\n")
	}
	for _, r := range rows {
		b.WriteString("<tr><td>" + esc(r.Name) + "</td><td>" + strconv.Itoa(r.Count) + "</td></tr>\n")
	}
	b.WriteString("</tbody>\n</table>\n")
}
