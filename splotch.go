// Package splotch is a personal blog engine. It renders markdown posts
// with responsive images and SEO metadata, and either writes the whole
// site to a directory or serves it with Echo.
package splotch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/stjepangolemac/splotch/analytics"
	"github.com/stjepangolemac/splotch/content"
	"github.com/stjepangolemac/splotch/imaging"
	"github.com/stjepangolemac/splotch/markdown"
	"github.com/stjepangolemac/splotch/ratelimit"
	"github.com/stjepangolemac/splotch/views"
)

// App wires together the store, the content pipeline, the HTTP server and
// the optional admin and analytics areas.
type App struct {
	Config  SiteConfig
	Echo    *echo.Echo
	Store   *Store
	Cache   *PostCache
	Metrics *Metrics

	logger *zap.Logger
	log    *zap.SugaredLogger
	src    afero.Fs
	out    afero.Fs
	images *imaging.Processor
	loader *content.Loader
	site   views.Site

	loginLimiter   *ratelimit.Limiter
	collectLimiter *ratelimit.Limiter
	analyticsStore *analytics.Store
	analytics      *analytics.Handler
	stopCleanup    func()
	customRoutes   []func(*App)

	openMu  sync.Mutex
	setupMu sync.Mutex
	routed  bool
}

// New creates an App. Nothing is opened until Open, Build or Start.
func New(cfg SiteConfig, opts ...Option) *App {
	cfg.setDefaults()
	a := &App{
		Config: cfg,
		Echo:   echo.New(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.src == nil {
		a.src = afero.NewOsFs()
	}
	if a.out == nil {
		a.out = afero.NewBasePathFs(afero.NewOsFs(), cfg.OutputDir)
	}
	a.log = a.logger.Sugar()
	a.Echo.HideBanner = true
	a.Echo.HidePort = true
	return a
}

// Open initializes the database, the content pipeline and, when enabled,
// analytics. It is idempotent and safe for concurrent use.
func (a *App) Open(ctx context.Context) error {
	a.openMu.Lock()
	defer a.openMu.Unlock()
	if a.Store != nil {
		return nil
	}
	if err := a.Config.validate(); err != nil {
		return fmt.Errorf("splotch: %w", err)
	}

	store, err := NewStore(a.Config.DatabasePath)
	if err != nil {
		return fmt.Errorf("splotch: init store: %w", err)
	}
	a.Store = store
	a.Metrics = newMetrics()

	a.images = imaging.NewProcessor(a.src, a.out, store, a.logger)
	md := markdown.New(
		markdown.WithAssets(a.images),
		markdown.WithSiteURL(a.Config.URL),
		markdown.WithLogger(a.logger),
	)
	a.loader = content.NewLoader(a.src, a.Config.ContentDir, md,
		content.WithImages(a.images),
		content.WithWorkers(a.Config.Workers),
		content.WithLogger(a.logger),
	)
	a.Cache = NewPostCache(a.loader, a.Config.PostCacheTTL)
	a.Cache.onLoad = func(posts []*content.Post, took time.Duration, err error) {
		a.Metrics.observeLoad(took.Seconds(), len(posts), err)
		if err != nil {
			a.log.Errorw("load posts", "err", err)
		}
	}

	avatar, err := a.avatar(ctx)
	if err != nil {
		return fmt.Errorf("splotch: avatar: %w", err)
	}
	a.site = a.Config.site(avatar)

	a.loginLimiter = ratelimit.New(5, time.Minute)

	if a.Config.AnalyticsEnabled {
		if err := a.openAnalytics(ctx); err != nil {
			return fmt.Errorf("splotch: init analytics: %w", err)
		}
	}
	return nil
}

func (a *App) openAnalytics(ctx context.Context) error {
	store, err := analytics.NewStore(a.Config.AnalyticsDatabasePath)
	if err != nil {
		return err
	}
	a.analyticsStore = store
	hasher, err := store.Hasher(ctx)
	if err != nil {
		return err
	}
	a.collectLimiter = ratelimit.New(60, time.Minute)
	a.analytics = analytics.NewHandler(store, hasher, a.collectLimiter, a.site.Host(), a.logger)
	a.stopCleanup, err = store.ScheduleCleanup("@daily", a.Config.AnalyticsRetentionDays, a.logger)
	return err
}

// Handler opens the App and configures middleware and routes without
// listening, so the server can be mounted or tested. Routes are registered
// once; later calls return the same handler.
func (a *App) Handler(ctx context.Context) (http.Handler, error) {
	a.setupMu.Lock()
	defer a.setupMu.Unlock()
	if a.routed {
		return a.Echo, nil
	}
	if err := a.Open(ctx); err != nil {
		return nil, err
	}
	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}
	a.routed = true
	return a.Echo, nil
}

// Start serves the site on Config.Addr until Shutdown is called.
func (a *App) Start(ctx context.Context) error {
	if _, err := a.Handler(ctx); err != nil {
		return err
	}
	a.log.Infow("serving", "addr", a.Config.Addr, "url", a.Config.URL,
		"admin", a.Config.AdminEnabled(), "analytics", a.Config.AnalyticsEnabled)
	if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (a *App) Shutdown(ctx context.Context) error {
	return a.Echo.Shutdown(ctx)
}

// Close releases every resource opened by Open.
func (a *App) Close() error {
	if a.stopCleanup != nil {
		a.stopCleanup()
	}
	for _, l := range []*ratelimit.Limiter{a.loginLimiter, a.collectLimiter} {
		if l != nil {
			l.Stop()
		}
	}
	var errs []error
	if a.analyticsStore != nil {
		errs = append(errs, a.analyticsStore.Close())
	}
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	return errors.Join(errs...)
}
