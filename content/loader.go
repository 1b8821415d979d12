package content

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/samber/lo"
	"github.com/spf13/afero"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/stjepangolemac/splotch/imaging"
	"github.com/stjepangolemac/splotch/markdown"
)

// Cover image variants.
var (
	CoverFluid = imaging.FluidOptions{
		MaxWidth:    1440,
		Quality:     100,
		Breakpoints: []int{200, 340, 520, 890, 1440, 1920, 2560, 3840},
	}
	TwitterImage  = imaging.FixedOptions{Width: 600, Height: 314, Quality: 75}
	FacebookImage = imaging.FixedOptions{Width: 1200, Height: 627, Quality: 75}
)

// Images derives image variants. *imaging.Processor satisfies it.
type Images interface {
	Fixed(ctx context.Context, file string, opts imaging.FixedOptions) (imaging.Variant, error)
	Fluid(ctx context.Context, file string, opts imaging.FluidOptions) (imaging.Fluid, error)
	Publish(ctx context.Context, file string) (imaging.Variant, error)
}

// Loader reads every post under a directory.
type Loader struct {
	fs      afero.Fs
	dir     string
	md      *markdown.Renderer
	images  Images
	workers int
	log     *zap.SugaredLogger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithImages enables cover processing.
func WithImages(images Images) LoaderOption {
	return func(l *Loader) { l.images = images }
}

// WithWorkers bounds how many posts are rendered at once.
func WithWorkers(n int) LoaderOption {
	return func(l *Loader) {
		if n > 0 {
			l.workers = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) LoaderOption {
	return func(l *Loader) { l.log = logger.Sugar().Named("content") }
}

// NewLoader returns a Loader for the markdown files under dir on fs.
func NewLoader(fs afero.Fs, dir string, md *markdown.Renderer, opts ...LoaderOption) *Loader {
	l := &Loader{
		fs:      fs,
		dir:     filepath.ToSlash(filepath.Clean(dir)),
		md:      md,
		workers: 4,
		log:     zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func isPost(name string) bool {
	return lo.Contains([]string{".md", ".markdown"}, strings.ToLower(path.Ext(name)))
}

// Load parses every post and returns them newest first, linked to their
// neighbours.
func (l *Loader) Load(ctx context.Context) ([]*Post, error) {
	var files []string
	err := afero.Walk(l.fs, l.dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if p != l.dir && strings.HasPrefix(info.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if isPost(info.Name()) {
			files = append(files, filepath.ToSlash(p))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", l.dir, err)
	}

	var (
		mu    sync.Mutex
		posts = make([]*Post, 0, len(files))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.workers)
	for _, file := range files {
		g.Go(func() error {
			post, err := l.LoadFile(gctx, file)
			if err != nil {
				return err
			}
			mu.Lock()
			posts = append(posts, post)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(posts, func(i, j int) bool {
		if posts[i].Date.Equal(posts[j].Date) {
			return posts[i].Slug < posts[j].Slug
		}
		return posts[i].Date.After(posts[j].Date)
	})

	seen := make(map[string]string, len(posts))
	for _, p := range posts {
		if other, ok := seen[p.Slug]; ok {
			return nil, fmt.Errorf("duplicate slug %q: %s and %s", p.Slug, other, p.Path)
		}
		seen[p.Slug] = p.Path
	}
	Link(posts)

	l.log.Debugw("loaded posts", "dir", l.dir, "count", len(posts))
	return posts, nil
}

// Link sets Previous and Next on posts sorted newest first.
func Link(posts []*Post) {
	for i, p := range posts {
		p.Previous, p.Next = nil, nil
		if i+1 < len(posts) {
			p.Previous = posts[i+1]
		}
		if i > 0 {
			p.Next = posts[i-1]
		}
	}
}

// LoadFile parses and renders a single post. file is a path on the
// Loader's filesystem.
func (l *Loader) LoadFile(ctx context.Context, file string) (*Post, error) {
	rel := strings.TrimPrefix(strings.TrimPrefix(file, l.dir), "/")

	doc, err := afero.ReadFile(l.fs, file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rel, err)
	}
	front, body, err := Split(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", rel, err)
	}
	fm, date, err := ParseFrontMatter(front)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", rel, err)
	}

	slug := SlugFor(rel)
	if slug == "" {
		return nil, fmt.Errorf("%s: cannot derive a slug", rel)
	}

	dir := path.Dir(file)
	html, err := l.md.Render(ctx, body, dir)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", rel, err)
	}
	text, err := plainText(html)
	if err != nil {
		return nil, fmt.Errorf("%s: extract text: %w", rel, err)
	}
	words := len(strings.Fields(text))

	post := &Post{
		Path:        rel,
		Slug:        slug,
		Title:       fm.Title,
		Description: strings.TrimSpace(fm.Description),
		Keywords:    lo.Compact(lo.Map(fm.Keywords, func(k string, _ int) string { return strings.TrimSpace(k) })),
		Date:        date,
		HTML:        html,
		Excerpt:     Excerpt(text, ExcerptLength),
		Words:       words,
		TimeToRead:  TimeToRead(words),
	}

	if fm.Cover != "" && l.images != nil {
		cover, err := l.cover(ctx, path.Join(dir, fm.Cover), fm.CoverAlt)
		if err != nil {
			return nil, fmt.Errorf("%s: cover: %w", rel, err)
		}
		post.Cover = cover
	}
	return post, nil
}

func (l *Loader) cover(ctx context.Context, file, alt string) (*Cover, error) {
	fluid, err := l.images.Fluid(ctx, file, CoverFluid)
	if err != nil {
		return nil, err
	}
	twitter, err := l.images.Fixed(ctx, file, TwitterImage)
	if err != nil {
		return nil, err
	}
	facebook, err := l.images.Fixed(ctx, file, FacebookImage)
	if err != nil {
		return nil, err
	}
	original, err := l.images.Publish(ctx, file)
	if err != nil {
		return nil, err
	}
	if alt == "" {
		base := path.Base(file)
		alt = strings.TrimSuffix(base, path.Ext(base))
	}
	return &Cover{
		Fluid:     fluid,
		Twitter:   twitter,
		Facebook:  facebook,
		PublicURL: original.Src,
		Alt:       alt,
	}, nil
}
