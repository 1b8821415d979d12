package splotch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/a-h/templ"
	"github.com/google/uuid"
	"github.com/spf13/afero"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/stjepangolemac/splotch/content"
	"github.com/stjepangolemac/splotch/typography"
	"github.com/stjepangolemac/splotch/views"
)

// page is one file of the static output.
type page struct {
	name   string
	render func(ctx context.Context) ([]byte, error)
}

func component(cmp templ.Component) func(context.Context) ([]byte, error) {
	return func(ctx context.Context) ([]byte, error) { return renderBytes(ctx, cmp) }
}

func static(b []byte) func(context.Context) ([]byte, error) {
	return func(context.Context) ([]byte, error) { return b, nil }
}

// Build renders the whole site into the output filesystem and records the
// outcome in the store. Images are written by the processor as posts load.
func (a *App) Build(ctx context.Context) (BuildRecord, error) {
	if err := a.Open(ctx); err != nil {
		return BuildRecord{}, err
	}
	rec := BuildRecord{ID: uuid.NewString(), Started: time.Now()}
	log := a.logger.With(zap.String("build", rec.ID))
	log.Info("build started", zap.String("content", a.Config.ContentDir))

	err := a.build(ctx, &rec)
	rec.Duration = time.Since(rec.Started)
	if err != nil {
		rec.Err = err.Error()
	}
	a.Metrics.observeBuild(rec.Duration.Seconds(), rec.Pages, err)
	if serr := a.Store.RecordBuild(ctx, rec); serr != nil {
		log.Warn("record build", zap.Error(serr))
	}

	if err != nil {
		log.Error("build failed", zap.Error(err), zap.Duration("took", rec.Duration))
		return rec, err
	}
	log.Info("build finished",
		zap.Int("posts", rec.Posts),
		zap.Int("pages", rec.Pages),
		zap.Duration("took", rec.Duration),
	)
	return rec, nil
}

func (a *App) build(ctx context.Context, rec *BuildRecord) error {
	posts, err := a.Cache.Posts(ctx)
	if err != nil {
		return fmt.Errorf("load posts: %w", err)
	}
	rec.Posts = len(posts)

	pages := a.pages(posts)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.Config.Workers)
	for _, p := range pages {
		g.Go(func() error {
			b, err := p.render(gctx)
			if err != nil {
				return fmt.Errorf("render %s: %w", p.name, err)
			}
			return a.writeOutput(p.name, b)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	rec.Pages = len(pages)

	return a.copyStatic()
}

func (a *App) pages(posts []*content.Post) []page {
	pages := []page{
		{"/index.html", component(views.Index(a.site, posts))},
		{"/404.html", component(views.NotFound(a.site))},
		{"/rss.xml", func(context.Context) ([]byte, error) { return a.renderFeed(posts) }},
		{"/sitemap.xml", func(context.Context) ([]byte, error) { return a.renderSitemap(posts) }},
		{"/manifest.webmanifest", a.renderManifest},
		{"/robots.txt", static(a.renderRobots())},
		{"/styles.css", static([]byte(typography.Default.CSS()))},
	}
	if a.Config.AnalyticsEnabled {
		pages = append(pages, page{"/analytics.js", static(analyticsScript)})
	}
	for _, p := range posts {
		pages = append(pages, page{path.Join("/", p.Slug, "index.html"), component(views.Post(a.site, p))})
	}
	return pages
}

func (a *App) writeOutput(name string, b []byte) error {
	if err := a.out.MkdirAll(path.Dir(name), 0o755); err != nil {
		return err
	}
	return afero.WriteFile(a.out, name, b, 0o644)
}

// copyStatic mirrors the static directory into the output root.
func (a *App) copyStatic() error {
	root := a.Config.StaticDir
	err := afero.Walk(a.src, root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		b, err := afero.ReadFile(a.src, p)
		if err != nil {
			return err
		}
		return a.writeOutput(path.Join("/", filepath.ToSlash(rel)), b)
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("copy static: %w", err)
	}
	return nil
}
