// Package markdown converts post bodies to HTML with goldmark and rewrites
// their local images and linked files into published assets.
package markdown

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"io"
	"net/url"
	"strings"

	"github.com/a-h/templ"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"
	"go.uber.org/zap"

	"github.com/stjepangolemac/splotch/imaging"
)

// MaxImageWidth is the presentation width of images inside post bodies.
const MaxImageWidth = 590

// Assets publishes files referenced from markdown. *imaging.Processor
// satisfies it.
type Assets interface {
	Fluid(ctx context.Context, file string, opts imaging.FluidOptions) (imaging.Fluid, error)
	Publish(ctx context.Context, file string) (imaging.Variant, error)
}

// Renderer converts markdown documents to HTML.
type Renderer struct {
	md     goldmark.Markdown
	assets Assets
	host   string
	log    *zap.SugaredLogger
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithAssets enables responsive images and linked-file publishing.
func WithAssets(a Assets) Option {
	return func(r *Renderer) { r.assets = a }
}

// WithSiteURL sets the site URL; links to any other host are external.
func WithSiteURL(siteURL string) Option {
	return func(r *Renderer) {
		if u, err := url.Parse(siteURL); err == nil {
			r.host = strings.ToLower(u.Hostname())
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Renderer) { r.log = l.Sugar().Named("markdown") }
}

// New returns a Renderer.
func New(opts ...Option) *Renderer {
	r := &Renderer{log: zap.NewNop().Sugar()}
	for _, opt := range opts {
		opt(r)
	}
	r.md = goldmark.New(
		goldmark.WithRendererOptions(
			gmhtml.WithUnsafe(),
			renderer.WithNodeRenderers(util.Prioritized(&nodeRenderer{Config: gmhtml.NewConfig()}, 100)),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
			parser.WithASTTransformers(util.Prioritized(&transformer{r: r}, 100)),
		),
		goldmark.WithExtensions(
			extension.GFM,
			extension.Footnote,
			extension.Typographer,
		),
	)
	return r
}

// Render converts source to HTML. dir is the directory of the document on
// the asset filesystem; relative references resolve against it.
func (r *Renderer) Render(ctx context.Context, source []byte, dir string) (string, error) {
	st := &state{ctx: ctx, dir: dir}
	pc := parser.NewContext(parser.WithIDs(newHeadingIDs()))
	pc.Set(stateKey, st)

	var buf bytes.Buffer
	if err := r.md.Convert(source, &buf, parser.WithContext(pc)); err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}
	if st.err != nil {
		return "", st.err
	}
	return buf.String(), nil
}

// Markdown returns a templ.Component that writes already rendered HTML.
func Markdown(rendered string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, rendered)
		return err
	})
}

// SafeURL returns raw, trimmed and unescaped, when it is a relative
// reference or an http, https, mailto or tel URL. Anything else yields "".
func SafeURL(raw string) string {
	val := strings.TrimSpace(html.UnescapeString(raw))
	if val == "" {
		return ""
	}
	u, err := url.Parse(val)
	if err != nil {
		return ""
	}
	switch strings.ToLower(u.Scheme) {
	case "", "http", "https", "mailto", "tel":
		return val
	}
	return ""
}
