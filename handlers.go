package splotch

import (
	"errors"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/afero"

	"github.com/stjepangolemac/splotch/typography"
	"github.com/stjepangolemac/splotch/views"
)

func (a *App) setupRoutes() {
	e := a.Echo

	e.GET("/", a.handleIndex)
	e.GET("/rss.xml", a.handleFeed)
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/manifest.webmanifest", a.handleManifest)
	e.GET("/robots.txt", a.handleRobots)
	e.GET("/styles.css", handleStyles)
	e.GET("/static/*", echo.WrapHandler(http.FileServer(afero.NewHttpFs(a.out))))

	if a.Config.MetricsEnabled {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(a.Metrics.Registry, promhttp.HandlerOpts{})))
	}
	var adminAPI *echo.Group
	if a.Config.AdminEnabled() {
		adminAPI = a.setupAdmin()
	}
	if a.analytics != nil {
		e.GET("/analytics.js", handleAnalyticsScript)
		a.analytics.RegisterRoutes(e, adminAPI)
	}

	// Posts may live under nested slugs, so they share the catch-all
	// with the static directory.
	e.GET("/*", a.handlePath)
}

func (a *App) handleIndex(c echo.Context) error {
	posts, err := a.Cache.Posts(c.Request().Context())
	if err != nil {
		return err
	}
	return Render(c, views.Index(a.site, posts))
}

// handlePath serves /<slug>/ posts, redirects /<slug> to them and falls back
// to files in the static directory.
func (a *App) handlePath(c echo.Context) error {
	ctx := c.Request().Context()
	p := c.Request().URL.Path
	slug := strings.Trim(p, "/")

	if strings.HasSuffix(p, "/") {
		post, err := a.Cache.Post(ctx, slug)
		if errors.Is(err, ErrNotFound) {
			return echo.ErrNotFound
		}
		if err != nil {
			return err
		}
		return Render(c, views.Post(a.site, post))
	}

	if _, err := a.Cache.Post(ctx, slug); err == nil {
		return c.Redirect(http.StatusMovedPermanently, p+"/")
	}
	return a.serveStatic(c, p)
}

func (a *App) serveStatic(c echo.Context, p string) error {
	name := path.Join(a.Config.StaticDir, path.Clean("/"+p))
	info, err := a.src.Stat(name)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && info.IsDir()) {
		return echo.ErrNotFound
	}
	if err != nil {
		return err
	}
	data, err := afero.ReadFile(a.src, name)
	if err != nil {
		return err
	}
	ct := mime.TypeByExtension(path.Ext(name))
	if ct == "" {
		ct = http.DetectContentType(data)
	}
	return c.Blob(http.StatusOK, ct, data)
}

func (a *App) handleFeed(c echo.Context) error {
	posts, err := a.Cache.Posts(c.Request().Context())
	if err != nil {
		return err
	}
	b, err := a.renderFeed(posts)
	if err != nil {
		return err
	}
	return c.Blob(http.StatusOK, "application/rss+xml; charset=utf-8", b)
}

func (a *App) handleSitemap(c echo.Context) error {
	posts, err := a.Cache.Posts(c.Request().Context())
	if err != nil {
		return err
	}
	b, err := a.renderSitemap(posts)
	if err != nil {
		return err
	}
	return c.Blob(http.StatusOK, "application/xml; charset=utf-8", b)
}

func (a *App) handleManifest(c echo.Context) error {
	b, err := a.renderManifest(c.Request().Context())
	if err != nil {
		return err
	}
	return c.Blob(http.StatusOK, "application/manifest+json", b)
}

func (a *App) handleRobots(c echo.Context) error {
	return c.Blob(http.StatusOK, echo.MIMETextPlainCharsetUTF8, a.renderRobots())
}

func handleStyles(c echo.Context) error {
	return c.Blob(http.StatusOK, "text/css; charset=utf-8", []byte(typography.Default.CSS()))
}

func handleAnalyticsScript(c echo.Context) error {
	return c.Blob(http.StatusOK, "text/javascript; charset=utf-8", analyticsScript)
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	ok := errors.As(err, &he)
	if ok && he.Code == http.StatusNotFound {
		_ = RenderStatus(c, http.StatusNotFound, views.NotFound(a.site))
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		a.log.Errorw("server error", "path", c.Request().URL.Path, "err", err)
		_ = RenderStatus(c, code, views.ServerError(a.site))
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}
