// Package scaffold renders the embedded starter files used by
// `splotch init` and `splotch new`.
package scaffold

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"text/template"

	"github.com/spf13/afero"
)

// Templates contains all scaffold template files.
// Files use Go text/template syntax and have a .tmpl suffix.
//
//go:embed all:templates
var Templates embed.FS

// Template roots under Templates.
const (
	SiteRoot = "templates/site"
	PostRoot = "templates/post"
)

// SiteData is passed to the site templates.
type SiteData struct {
	Title  string
	Author string
	URL    string
}

// PostData is passed to the post templates.
type PostData struct {
	Title string
	Date  string
}

// renames maps template names that cannot be embedded as dotfiles.
var renames = map[string]string{
	"dotenv":    ".env.example",
	"gitignore": ".gitignore",
}

// Render executes every template below root into dest on fsys and returns
// the written paths. Existing files are never overwritten.
func Render(fsys afero.Fs, root, dest string, data any) ([]string, error) {
	var written []string
	err := fs.WalkDir(Templates, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel := strings.TrimPrefix(strings.TrimPrefix(p, root), "/")
		out := path.Join(dest, strings.TrimSuffix(rel, ".tmpl"))
		if name, ok := renames[path.Base(out)]; ok {
			out = path.Join(path.Dir(out), name)
		}

		if d.IsDir() {
			return fsys.MkdirAll(out, 0o755)
		}

		if ok, err := afero.Exists(fsys, out); err != nil {
			return err
		} else if ok {
			return fmt.Errorf("%s already exists", out)
		}

		content, err := Templates.ReadFile(p)
		if err != nil {
			return fmt.Errorf("read %s: %w", p, err)
		}
		tmpl, err := template.New(path.Base(p)).Parse(string(content))
		if err != nil {
			return fmt.Errorf("parse template %s: %w", p, err)
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			return fmt.Errorf("execute template %s: %w", p, err)
		}
		if err := afero.WriteFile(fsys, out, buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", out, err)
		}
		written = append(written, out)
		return nil
	})
	return written, err
}
