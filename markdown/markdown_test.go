package markdown

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stjepangolemac/splotch/imaging"
)

type fakeAssets struct {
	files     map[string]bool
	published []string
	fluid     []string
	err       error
}

func (f *fakeAssets) Fluid(_ context.Context, file string, opts imaging.FluidOptions) (imaging.Fluid, error) {
	if !f.files[file] {
		return imaging.Fluid{}, fmt.Errorf("read %s: %w", file, fs.ErrNotExist)
	}
	if f.err != nil {
		return imaging.Fluid{}, f.err
	}
	f.fluid = append(f.fluid, file)
	return imaging.Fluid{
		Src:    "/static/abc/photo-590x295.jpg",
		SrcSet: "/static/abc/photo-295x148.jpg 295w,\n/static/abc/photo-590x295.jpg 590w",
		Sizes:  fmt.Sprintf("(max-width: %dpx) 100vw, %dpx", opts.MaxWidth, opts.MaxWidth),
		Width:  opts.MaxWidth,
		Height: 295,
	}, nil
}

func (f *fakeAssets) Publish(_ context.Context, file string) (imaging.Variant, error) {
	if !f.files[file] {
		return imaging.Variant{}, fmt.Errorf("read %s: %w", file, fs.ErrNotExist)
	}
	f.published = append(f.published, file)
	base := file[strings.LastIndex(file, "/")+1:]
	return imaging.Variant{Src: "/static/abc/" + base}, nil
}

func render(t *testing.T, r *Renderer, src string) string {
	t.Helper()
	out, err := r.Render(context.Background(), []byte(src), "/posts/hello")
	require.NoError(t, err)
	return out
}

func TestRenderBasics(t *testing.T) {
	r := New()
	out := render(t, r, "Some *em* and **strong** text.\n\n| a | b |\n|---|---|\n| 1 | 2 |\n\n~~gone~~\n")
	assert.Contains(t, out, "<em>em</em>")
	assert.Contains(t, out, "<strong>strong</strong>")
	assert.Contains(t, out, "<table>")
	assert.Contains(t, out, "<del>gone</del>")
}

func TestRenderCodeBlockKeepsLanguageClass(t *testing.T) {
	out := render(t, New(), "```go\nfmt.Println(\"hi\")\n```\n")
	assert.Contains(t, out, `<code class="language-go">`)
	assert.Contains(t, out, "fmt.Println(&quot;hi&quot;)")
}

func TestRenderTypographerDashes(t *testing.T) {
	out := render(t, New(), "a -- b --- c\n")
	assert.Contains(t, out, "&ndash;")
	assert.Contains(t, out, "&mdash;")
}

func TestRenderFootnotes(t *testing.T) {
	out := render(t, New(), "Claim[^1].\n\n[^1]: Source.\n")
	assert.Contains(t, out, `class="footnotes"`)
}

func TestRenderRawHTML(t *testing.T) {
	out := render(t, New(), "<div class=\"note\">hi</div>\n")
	assert.Contains(t, out, `<div class="note">hi</div>`)
}

func TestExternalLinks(t *testing.T) {
	r := New(WithSiteURL("https://splotch.dev"))
	out := render(t, r, "[ext](https://golang.org) [int](https://splotch.dev/post/) [rel](/about/)\n")
	assert.Contains(t, out, `<a href="https://golang.org" target="_blank" rel="nofollow noopener noreferrer">ext</a>`)
	assert.Contains(t, out, `<a href="https://splotch.dev/post/">int</a>`)
	assert.Contains(t, out, `<a href="/about/">rel</a>`)
}

func TestLinkifiedURLsAreExternal(t *testing.T) {
	r := New(WithSiteURL("https://splotch.dev"))
	out := render(t, r, "see https://example.com now\n")
	assert.Contains(t, out, `href="https://example.com"`)
	assert.Contains(t, out, `target="_blank"`)
}

func TestHeadingAnchors(t *testing.T) {
	out := render(t, New(), "## Čćžšđ Heading!\n\n## Intro\n\n## Intro\n")
	assert.Contains(t, out, `<h2 id="cczsđ-heading">`)
	assert.Contains(t, out, `<h2 id="intro">`)
	assert.Contains(t, out, `<h2 id="intro-1">`)
	assert.Contains(t, out, `<a href="#intro" aria-label="intro permalink" class="anchor"><svg`)
}

func TestAnchor(t *testing.T) {
	assert.Equal(t, "hello-world", Anchor("Hello World"))
	assert.Equal(t, "cafe-creme", Anchor("Café Crème"))
	assert.Equal(t, "whats-new", Anchor("What's new?"))
	assert.Equal(t, "ccz", StripAccents("čćž"))
}

func TestResponsiveImages(t *testing.T) {
	assets := &fakeAssets{files: map[string]bool{"/posts/hello/photo.png": true}}
	r := New(WithAssets(assets))

	out := render(t, r, "![A photo](./photo.png \"Title\")\n")
	assert.NotContains(t, out, "<p>", "image-only paragraphs are unwrapped")
	assert.Contains(t, out, `<a class="post-image-link" href="/static/abc/photo.png" target="_blank" rel="noopener">`)
	assert.Contains(t, out, `style="max-width: 590px;"`)
	assert.Contains(t, out, `alt="A photo"`)
	assert.Contains(t, out, `title="Title"`)
	assert.Contains(t, out, `src="/static/abc/photo-590x295.jpg"`)
	assert.Contains(t, out, `sizes="(max-width: 590px) 100vw, 590px"`)
	assert.Equal(t, []string{"/posts/hello/photo.png"}, assets.fluid)
	assert.True(t, strings.HasPrefix(out, `<figure class="post-image-figure"><a class="post-image-link"`))
	assert.Contains(t, out, `</a><figcaption class="post-image-figcaption">Title</figcaption></figure>`)
}

func TestImageCaptions(t *testing.T) {
	assets := &fakeAssets{files: map[string]bool{"/posts/hello/photo.png": true}}
	r := New(WithAssets(assets))

	out := render(t, r, "![Sunset & sea](photo.png)\n")
	assert.Contains(t, out, `<figcaption class="post-image-figcaption">Sunset &amp; sea</figcaption>`)

	out = render(t, r, "![](photo.png)\n")
	assert.NotContains(t, out, "<figure")

	out = render(t, r, "Inline ![alt](photo.png) image\n")
	assert.NotContains(t, out, "figcaption")

	out = render(t, r, "[![alt](photo.png)](https://example.com)\n")
	assert.NotContains(t, out, "figcaption")
}

func TestImageWithTextKeepsParagraph(t *testing.T) {
	assets := &fakeAssets{files: map[string]bool{"/posts/hello/photo.png": true}}
	out := render(t, New(WithAssets(assets)), "Look: ![x](photo.png)\n")
	assert.Contains(t, out, "<p>Look: ")
}

func TestGIFsAndLinkedFilesArePublished(t *testing.T) {
	assets := &fakeAssets{files: map[string]bool{
		"/posts/hello/anim.gif":      true,
		"/posts/hello/files/cv.pdf": true,
	}}
	out := render(t, New(WithAssets(assets)), "![anim](anim.gif)\n\n[CV](files/cv.pdf#page=2) and [other](../other/index.md)\n")
	assert.Contains(t, out, `<img src="/static/abc/anim.gif" alt="anim">`)
	assert.Contains(t, out, `<a href="/static/abc/cv.pdf#page=2">CV</a>`)
	assert.Contains(t, out, `<a href="../other/index.md">other</a>`)
	assert.Empty(t, assets.fluid)
}

func TestMissingAssetsAreLeftAlone(t *testing.T) {
	out := render(t, New(WithAssets(&fakeAssets{})), "![gone](gone.png)\n")
	assert.Contains(t, out, `src="gone.png"`)
}

func TestAssetErrorsFailRender(t *testing.T) {
	boom := errors.New("boom")
	assets := &fakeAssets{files: map[string]bool{"/posts/hello/photo.png": true}, err: boom}
	_, err := New(WithAssets(assets)).Render(context.Background(), []byte("![x](photo.png)\n"), "/posts/hello")
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
}

func TestMarkdownComponent(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Markdown("<p>hi</p>").Render(context.Background(), &buf))
	assert.Equal(t, "<p>hi</p>", buf.String())
}

func TestSafeURL(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"https://example.com", "https://example.com"},
		{"/local/path", "/local/path"},
		{"#anchor", "#anchor"},
		{"mailto:me@example.com", "mailto:me@example.com"},
		{"relative/path", "relative/path"},
		{" ../other/ ", "../other/"},
		{"javascript:alert(1)", ""},
		{"JavaScript:alert(1)", ""},
		{"&#106;avascript:alert(1)", ""},
		{"data:text/html;base64,PHNjcmlwdD4=", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := SafeURL(tt.input); got != tt.expected {
			t.Errorf("SafeURL(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestUnsafeLinksAreUnwrapped(t *testing.T) {
	out := render(t, New(), "[click *me*](javascript:alert(1)) and <javascript:alert(2)> and [ok](/about/)\n")
	assert.NotContains(t, out, "javascript:alert(1)")
	assert.NotContains(t, out, `href="javascript`)
	assert.Contains(t, out, "click <em>me</em> and ")
	assert.Contains(t, out, `<a href="/about/">ok</a>`)
}
