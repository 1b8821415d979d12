package markdown

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"

	"github.com/stjepangolemac/splotch/imaging"
)

// KindResponsiveImage is the node kind that replaces local raster images.
var KindResponsiveImage = ast.NewNodeKind("ResponsiveImage")

type responsiveImage struct {
	ast.BaseInline
	fluid    imaging.Fluid
	original string
	link     bool
	alt      string
	title    string
}

func (n *responsiveImage) Kind() ast.NodeKind { return KindResponsiveImage }

func (n *responsiveImage) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Src": n.fluid.Src, "Original": n.original}, nil)
}

// caption is the figure caption for an image standing alone in its
// paragraph: the title, else the alt text. Images inside links or running
// text get none.
func (n *responsiveImage) caption(source []byte) string {
	parent := n.Parent()
	if !n.link || parent == nil || parent.Kind() != ast.KindParagraph || !imageOnly(parent, source) {
		return ""
	}
	if n.title != "" {
		return n.title
	}
	return n.alt
}

const anchorIcon = `<svg aria-hidden="true" height="16" version="1.1" viewBox="0 0 16 16" width="16"><path fill-rule="evenodd" d="M4 9h1v1H4c-1.5 0-3-1.69-3-3.5S2.55 3 4 3h4c1.45 0 3 1.69 3 3.5 0 1.41-.91 2.72-2 3.25V8.59c.58-.45 1-1.27 1-2.09C10 5.22 8.98 4 8 4H4c-.98 0-2 1.22-2 2.5S3 9 4 9zm9-3h-1v1h1c1 0 2 1.22 2 2.5S13.98 12 13 12H9c-.98 0-2-1.22-2-2.5 0-.83.42-1.64 1-2.09V6.25c-1.09.53-2 1.84-2 3.25C6 11.31 7.55 13 9 13h4c1.45 0 3-1.69 3-3.5S14.5 6 13 6z"></path></svg>`

type nodeRenderer struct {
	html.Config
}

func (r *nodeRenderer) SetOption(name renderer.OptionName, value interface{}) {
	r.Config.SetOption(name, value)
}

func (r *nodeRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindParagraph, r.renderParagraph)
	reg.Register(KindAnchor, r.renderAnchor)
	reg.Register(KindResponsiveImage, r.renderResponsiveImage)
}

// imageOnly reports whether a paragraph holds nothing but images and
// whitespace.
func imageOnly(node ast.Node, source []byte) bool {
	found := false
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		switch n := c.(type) {
		case *ast.Image, *responsiveImage:
			found = true
		case *ast.Text:
			if len(bytes.TrimSpace(n.Segment.Value(source))) > 0 {
				return false
			}
		default:
			return false
		}
	}
	return found
}

func (r *nodeRenderer) renderParagraph(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if imageOnly(node, source) {
		return ast.WalkContinue, nil
	}

	if entering {
		if node.Attributes() != nil {
			_, _ = w.WriteString("<p")
			html.RenderAttributes(w, node, html.ParagraphAttributeFilter)
			_ = w.WriteByte('>')
		} else {
			_, _ = w.WriteString("<p>")
		}
	} else {
		_, _ = w.WriteString("</p>\n")
	}
	return ast.WalkContinue, nil
}

func (r *nodeRenderer) renderAnchor(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*anchorNode)
	_, _ = w.WriteString(`<a href="#`)
	_, _ = w.Write(util.EscapeHTML([]byte(n.id)))
	_, _ = w.WriteString(`" aria-label="`)
	_, _ = w.Write(util.EscapeHTML([]byte(n.id)))
	_, _ = w.WriteString(` permalink" class="anchor">`)
	_, _ = w.WriteString(anchorIcon)
	_, _ = w.WriteString(`</a>`)
	return ast.WalkSkipChildren, nil
}

func (r *nodeRenderer) renderResponsiveImage(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*responsiveImage)
	esc := func(s string) []byte { return util.EscapeHTML([]byte(s)) }

	caption := n.caption(source)
	if caption != "" {
		_, _ = w.WriteString(`<figure class="post-image-figure">`)
	}
	if n.link {
		_, _ = w.WriteString(`<a class="post-image-link" href="`)
		_, _ = w.Write(esc(n.original))
		_, _ = w.WriteString(`" target="_blank" rel="noopener">`)
	}
	_, _ = fmt.Fprintf(w, `<span class="post-image" style="max-width: %dpx;">`, n.fluid.Width)
	_, _ = w.WriteString(`<img class="post-image-img" alt="`)
	_, _ = w.Write(esc(n.alt))
	_ = w.WriteByte('"')
	if n.title != "" {
		_, _ = w.WriteString(` title="`)
		_, _ = w.Write(esc(n.title))
		_ = w.WriteByte('"')
	}
	_, _ = w.WriteString(` src="`)
	_, _ = w.Write(esc(n.fluid.Src))
	_, _ = w.WriteString(`" srcset="`)
	_, _ = w.Write(esc(n.fluid.SrcSet))
	_, _ = w.WriteString(`" sizes="`)
	_, _ = w.Write(esc(n.fluid.Sizes))
	_, _ = w.WriteString(`" width="` + strconv.Itoa(n.fluid.Width) + `" height="` + strconv.Itoa(n.fluid.Height) + `"`)
	_, _ = w.WriteString(` loading="lazy" decoding="async">`)
	_, _ = w.WriteString(`</span>`)
	if n.link {
		_, _ = w.WriteString(`</a>`)
	}
	if caption != "" {
		_, _ = w.WriteString(`<figcaption class="post-image-figcaption">`)
		_, _ = w.Write(esc(caption))
		_, _ = w.WriteString(`</figcaption></figure>`)
	}
	return ast.WalkSkipChildren, nil
}
