package seo

import (
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// Head returns a component writing the <title> element followed by one
// <meta> element per tag, in order.
func Head(site Site, in Input) templ.Component {
	tags := Tags(site, in)
	title := Title(site, in.Title)
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString("<title>")
		b.WriteString(templ.EscapeString(title))
		b.WriteString("</title>")
		for _, t := range tags {
			b.WriteString("<meta ")
			if t.Property != "" {
				b.WriteString(`property="` + templ.EscapeString(t.Property) + `"`)
			} else {
				b.WriteString(`name="` + templ.EscapeString(t.Name) + `"`)
			}
			b.WriteString(` content="` + templ.EscapeString(t.Content) + `">`)
		}
		_, err := io.WriteString(w, b.String())
		return err
	})
}
