package splotch

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/samber/lo"

	"github.com/stjepangolemac/splotch/views"
)

// Builds shown on the dashboard.
const dashboardBuilds = 10

// setupAdmin mounts the admin pages and returns a group for admin APIs that
// require an authenticated session.
func (a *App) setupAdmin() *echo.Group {
	mw := a.adminMiddleware()
	g := a.Echo.Group("/admin", mw...)
	g.GET("", func(c echo.Context) error {
		return c.Redirect(http.StatusMovedPermanently, "/admin/")
	})
	g.GET("/", a.handleAdmin)
	g.POST("/login", a.handleAdminLogin)
	g.POST("/logout", handleAdminLogout)
	g.POST("/rebuild", a.handleAdminRebuild)

	return a.Echo.Group("/admin", append(mw, requireAdmin)...)
}

func (a *App) handleAdmin(c echo.Context) error {
	if !IsAdmin(c) {
		return Render(c, views.AdminLogin(a.site, false, CsrfToken(c)))
	}
	return a.renderAdminDashboard(c, c.QueryParam("msg"))
}

func (a *App) handleAdminLogin(c echo.Context) error {
	if !a.loginLimiter.Allow(c.RealIP()) {
		return c.String(http.StatusTooManyRequests, "Too many login attempts. Try again later.")
	}
	pass := c.FormValue("password")
	if subtle.ConstantTimeCompare([]byte(pass), []byte(a.Config.AdminPassword)) == 1 {
		if err := setAdminSession(c); err != nil {
			return err
		}
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	a.log.Warnw("failed admin login", "ip", c.RealIP())
	return RenderStatus(c, http.StatusUnauthorized, views.AdminLogin(a.site, true, CsrfToken(c)))
}

func handleAdminLogout(c echo.Context) error {
	if err := clearAdminSession(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/admin/")
}

func (a *App) handleAdminRebuild(c echo.Context) error {
	if !IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	a.Cache.Invalidate()
	rec, err := a.Build(c.Request().Context())
	msg := fmt.Sprintf("Built %d pages from %d posts in %s.", rec.Pages, rec.Posts, rec.Duration.Round(time.Millisecond))
	if err != nil {
		msg = "Build failed: " + err.Error()
	}
	return c.Redirect(http.StatusSeeOther, "/admin/?msg="+url.QueryEscape(msg))
}

func (a *App) renderAdminDashboard(c echo.Context, msg string) error {
	ctx := c.Request().Context()
	posts, err := a.Cache.Posts(ctx)
	if err != nil {
		return err
	}
	builds, err := a.Store.ListBuilds(ctx, dashboardBuilds)
	if err != nil {
		return err
	}
	d := views.Dashboard{
		Posts:   len(posts),
		Builds:  lo.Map(builds, func(b BuildRecord, _ int) views.Build { return views.Build(b) }),
		Message: msg,
		CSRF:    CsrfToken(c),
	}
	if a.analytics != nil {
		if d.Report, err = a.analytics.Report(c, c.QueryParam("period")); err != nil {
			return err
		}
	}
	return Render(c, views.AdminDashboard(a.site, d))
}
