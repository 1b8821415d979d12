package markdown

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"path"
	"strings"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"

	"github.com/stjepangolemac/splotch/imaging"
)

var stateKey = parser.NewContextKey()

// state carries per-document values into the transformer. The first asset
// error aborts the render.
type state struct {
	ctx context.Context
	dir string
	err error
}

func (s *state) fail(err error) {
	if s.err == nil {
		s.err = err
	}
}

type transformer struct {
	r *Renderer
}

func (t *transformer) Transform(doc *ast.Document, reader text.Reader, pc parser.Context) {
	st, _ := pc.Get(stateKey).(*state)
	if st == nil {
		st = &state{ctx: context.Background()}
	}
	source := reader.Source()

	var (
		headings []*ast.Heading
		links    []ast.Node
		images   []*ast.Image
	)
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			headings = append(headings, node)
		case *ast.Link, *ast.AutoLink:
			links = append(links, node)
		case *ast.Image:
			images = append(images, node)
		}
		return ast.WalkContinue, nil
	})

	for _, h := range headings {
		t.anchor(h)
	}
	for _, l := range links {
		t.link(st, l, source)
	}
	for _, img := range images {
		if st.err != nil {
			return
		}
		t.image(st, img, source)
	}
}

func (t *transformer) anchor(h *ast.Heading) {
	id, ok := h.AttributeString("id")
	if !ok {
		return
	}
	a := &anchorNode{id: string(id.([]byte))}
	if first := h.FirstChild(); first != nil {
		h.InsertBefore(h, first, a)
	} else {
		h.AppendChild(h, a)
	}
}

func (t *transformer) link(st *state, n ast.Node, source []byte) {
	var dest string
	switch l := n.(type) {
	case *ast.Link:
		dest = string(l.Destination)
	case *ast.AutoLink:
		if l.AutoLinkType != ast.AutoLinkURL {
			return
		}
		dest = string(l.URL(source))
	}

	if dest != "" && SafeURL(dest) == "" {
		t.r.log.Debugw("dropping unsafe link", "dest", dest)
		unlink(n, source)
		return
	}
	if t.external(dest) {
		n.SetAttributeString("target", []byte("_blank"))
		n.SetAttributeString("rel", []byte("nofollow noopener noreferrer"))
		return
	}

	l, ok := n.(*ast.Link)
	if !ok || t.r.assets == nil {
		return
	}
	file, suffix, ok := localFile(st.dir, dest)
	if !ok || isMarkdown(file) {
		return
	}
	v, err := t.r.assets.Publish(st.ctx, file)
	if err != nil {
		t.assetError(st, file, err)
		return
	}
	l.Destination = []byte(v.Src + suffix)
}

// unlink replaces a link with its text.
func unlink(n ast.Node, source []byte) {
	parent := n.Parent()
	if parent == nil {
		return
	}
	if l, ok := n.(*ast.AutoLink); ok {
		parent.ReplaceChild(parent, n, ast.NewString(l.Label(source)))
		return
	}
	for c := n.FirstChild(); c != nil; c = n.FirstChild() {
		parent.InsertBefore(parent, n, c)
	}
	parent.RemoveChild(parent, n)
}

func (t *transformer) image(st *state, img *ast.Image, source []byte) {
	if t.r.assets == nil {
		return
	}
	file, _, ok := localFile(st.dir, string(img.Destination))
	if !ok {
		return
	}

	ext := strings.ToLower(path.Ext(file))
	if !imaging.IsImage(file) || ext == ".gif" {
		v, err := t.r.assets.Publish(st.ctx, file)
		if err != nil {
			t.assetError(st, file, err)
			return
		}
		img.Destination = []byte(v.Src)
		return
	}

	fluid, err := t.r.assets.Fluid(st.ctx, file, imaging.FluidOptions{
		MaxWidth: MaxImageWidth,
		Quality:  100,
	})
	if err != nil {
		t.assetError(st, file, err)
		return
	}
	original, err := t.r.assets.Publish(st.ctx, file)
	if err != nil {
		t.assetError(st, file, err)
		return
	}

	parent := img.Parent()
	if parent == nil {
		return
	}
	parent.ReplaceChild(parent, img, &responsiveImage{
		fluid:    fluid,
		original: original.Src,
		link:     parent.Kind() != ast.KindLink,
		alt:      string(img.Text(source)), //nolint:staticcheck
		title:    string(img.Title),
	})
}

// assetError ignores references to files that do not exist and records
// every other failure.
func (t *transformer) assetError(st *state, file string, err error) {
	if errors.Is(err, fs.ErrNotExist) {
		t.r.log.Debugw("skipping missing asset", "file", file)
		return
	}
	st.fail(fmt.Errorf("asset %s: %w", file, err))
}

func (t *transformer) external(dest string) bool {
	u, err := url.Parse(dest)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return t.r.host == "" || !strings.EqualFold(u.Hostname(), t.r.host)
}

// localFile resolves a relative reference against dir. suffix holds any
// query or fragment to carry over to the rewritten URL.
func localFile(dir, dest string) (file, suffix string, ok bool) {
	u, err := url.Parse(dest)
	if err != nil || u.Scheme != "" || u.Host != "" || u.Path == "" || strings.HasPrefix(u.Path, "/") {
		return "", "", false
	}
	if u.RawQuery != "" {
		suffix += "?" + u.RawQuery
	}
	if u.Fragment != "" {
		suffix += "#" + u.Fragment
	}
	return path.Join(dir, u.Path), suffix, true
}

func isMarkdown(file string) bool {
	switch strings.ToLower(path.Ext(file)) {
	case ".md", ".markdown":
		return true
	}
	return false
}
