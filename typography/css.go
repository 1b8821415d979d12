package typography

import (
	"strconv"
	"strings"
)

// CSS renders the theme as a complete stylesheet: the baseline reset, the
// heading scale, the blog overrides and the page layout classes.
func (t Theme) CSS() string {
	r := newRules()
	r.set("html", map[string]string{
		"font":                     strconv.FormatFloat(t.BaseFontSize/16*100, 'f', -1, 64) + "%/" + trim(t.BaseLineHeight) + " " + fontStack(t.BodyFontFamily),
		"box-sizing":               "border-box",
		"overflow-y":               "scroll",
		"-ms-text-size-adjust":     "100%",
		"-webkit-text-size-adjust": "100%",
	})
	r.set("*,*:before,*:after", map[string]string{"box-sizing": "inherit"})
	r.set("body", map[string]string{
		"color":       t.BodyColor,
		"font-family": fontStack(t.BodyFontFamily),
		"font-weight": strconv.Itoa(t.BodyWeight),
		"word-wrap":   "break-word",
		"margin":      "0",
	})
	r.set("img", map[string]string{"max-width": "100%", "margin": "0", "padding": "0"})

	block := map[string]string{
		"margin":        "0",
		"padding":       "0",
		"margin-bottom": t.Rhythm(1),
	}
	for _, sel := range []string{"h1", "h2", "h3", "h4", "h5", "h6", "hgroup", "ul", "ol", "dl", "dd", "p", "figure", "pre", "table", "fieldset", "blockquote", "form", "hr"} {
		r.set(sel, block)
	}
	headings := []struct {
		sel  string
		step float64
	}{
		{"h1", 5.0 / 5}, {"h2", 3.0 / 5}, {"h3", 2.0 / 5}, {"h4", 0}, {"h5", -1.0 / 5}, {"h6", -1.5 / 5},
	}
	for _, h := range headings {
		s := t.Scale(h.step)
		r.set(h.sel, map[string]string{
			"font-family":    fontStack(t.HeaderFontFamily),
			"font-weight":    strconv.Itoa(t.HeaderWeight),
			"color":          t.HeaderColor,
			"text-rendering": "optimizeLegibility",
			"font-size":      s.FontSize,
			"line-height":    s.LineHeight,
		})
	}
	r.set("h1,h2,h3,h4,h5,h6", map[string]string{"margin-top": t.Rhythm(2)})
	r.set("h4", map[string]string{"letter-spacing": "0.140625em", "text-transform": "uppercase"})
	r.set("h6", map[string]string{"font-style": "italic"})
	r.set("b,strong,dt,th", map[string]string{"font-weight": strconv.Itoa(t.BoldWeight)})
	r.set("ul", map[string]string{"list-style": "disc"})
	r.set("ul,ol", map[string]string{"margin-left": "0", "list-style-position": "outside"})
	r.set("li", map[string]string{"margin-bottom": t.Rhythm(0.5)})
	r.set("li>p", map[string]string{"margin-bottom": t.Rhythm(0.5)})
	r.set("hr", map[string]string{
		"background":    Gray(80),
		"border":        "none",
		"height":        "1px",
		"margin-bottom": "calc(" + t.Rhythm(1) + " - 1px)",
	})
	quote := t.Scale(1.0 / 5)
	r.set("blockquote", map[string]string{
		"font-size":    quote.FontSize,
		"line-height":  quote.LineHeight,
		"color":        Gray(41),
		"font-style":   "italic",
		"padding-left": t.Rhythm(13.0 / 16),
		"margin-left":  t.Rhythm(-1),
		"border-left":  t.Rhythm(3.0/16) + " solid " + Gray(10),
	})
	r.set("blockquote>:last-child", map[string]string{"margin-bottom": "0"})
	base := t.Scale(0)
	r.set("blockquote cite", map[string]string{
		"font-size":   base.FontSize,
		"line-height": base.LineHeight,
		"color":       t.BodyColor,
		"font-weight": strconv.Itoa(t.BodyWeight),
	})
	r.set("blockquote cite:before", map[string]string{"content": `"\2014 "`})
	r.set("a", map[string]string{
		"color":               t.AccentColor,
		"text-decoration":     "none",
		"background-image":    "linear-gradient(currentColor, currentColor)",
		"background-position": "0% 100%",
		"background-repeat":   "no-repeat",
		"background-size":     "0% 0.1em",
		"transition":          "background-size ease-in-out 200ms",
	})
	r.set("a:hover,a:active", map[string]string{"background-size": "100% 0.1em"})
	r.set("mark,ins", map[string]string{
		"background":      "#007acc",
		"color":           "white",
		"padding":         t.Rhythm(1.0/16) + " " + t.Rhythm(1.0/8),
		"text-decoration": "none",
	})
	r.set("a.post-image-link", map[string]string{
		"display":          "block",
		"margin":           t.Rhythm(1.5) + " -" + t.Rhythm(0.75),
		"background-image": "unset",
	})
	r.set("a.post-image-link:hover,a.post-image-link:focus", map[string]string{"background-size": "unset"})
	r.set("a.anchor", map[string]string{
		"float":         "left",
		"margin-left":   "-1em",
		"padding-right": "0.25em",
		"visibility":    "hidden",
	})
	r.set("h1:hover a.anchor,h2:hover a.anchor,h3:hover a.anchor,h4:hover a.anchor,h5:hover a.anchor,h6:hover a.anchor", map[string]string{"visibility": "visible"})
	r.set("code,pre", map[string]string{
		"font-family": "Consolas,'Roboto Mono',monospace",
		"font-size":   "0.85rem",
		"line-height": trim(t.BaseLineHeight),
	})
	r.set("pre", map[string]string{
		"overflow":   "auto",
		"padding":    t.Rhythm(0.5),
		"background": Gray(96),
	})
	r.set(":not(pre)>code", map[string]string{
		"background":    Gray(94),
		"padding":       "0.1em 0.3em",
		"border-radius": "0.2em",
	})
	r.set("table", map[string]string{"border-collapse": "collapse", "width": "100%"})
	r.set("td,th", map[string]string{
		"text-align":    "left",
		"border-bottom": "1px solid " + Gray(88),
		"padding":       t.Rhythm(0.25) + " " + t.Rhythm(2.0/3),
	})
	r.set(".footnotes", map[string]string{"font-size": t.Scale(-1.0 / 5).FontSize})

	// layout
	r.set(".container", map[string]string{
		"margin-left":  "auto",
		"margin-right": "auto",
		"max-width":    t.Rhythm(24),
		"padding":      t.Rhythm(1.5) + " " + t.Rhythm(0.75),
	})
	r.set(".site-title", map[string]string{
		"font-size":     t.Scale(1.5).FontSize,
		"line-height":   t.Scale(1.5).LineHeight,
		"margin-top":    "0",
		"margin-bottom": t.Rhythm(1.5),
	})
	r.set(".site-title a,.site-header a", map[string]string{"color": "inherit"})
	r.set(".site-header", map[string]string{"margin-top": "0", "margin-bottom": t.Rhythm(-1)})
	r.set(".bio", map[string]string{"display": "flex", "margin-bottom": t.Rhythm(2.5)})
	r.set(".bio img", map[string]string{
		"margin-right":  t.Rhythm(0.5),
		"margin-bottom": "0",
		"min-width":     "50px",
		"width":         "50px",
		"height":        "50px",
		"border-radius": "100%",
	})
	r.set(".post-title", map[string]string{"margin-top": t.Rhythm(1), "margin-bottom": "0"})
	r.set(".post-description", map[string]string{"margin-top": t.Rhythm(-0.5), "color": Gray(54)})
	r.set(".post-list-title", map[string]string{
		"font-size":     t.Scale(1.0 / 5).FontSize,
		"line-height":   t.Scale(1.0 / 5).LineHeight,
		"margin-bottom": t.Rhythm(1.0 / 4),
	})
	r.set(".post-date", map[string]string{
		"display":       "block",
		"font-size":     t.Scale(-1.0 / 5).FontSize,
		"line-height":   t.Scale(-1.0 / 5).LineHeight,
		"margin-bottom": t.Rhythm(1),
		"color":         Gray(46),
	})
	r.set(".cover", map[string]string{"margin-bottom": t.Rhythm(1)})
	r.set(".cover img,.post-image img", map[string]string{"display": "block", "width": "100%", "height": "auto"})
	r.set(".post-image", map[string]string{"display": "block", "margin-left": "auto", "margin-right": "auto", "max-width": "590px"})
	r.set(".post-image-figure", map[string]string{"margin-left": "0", "margin-right": "0"})
	r.set(".post-image-figcaption", map[string]string{
		"text-align": "center",
		"font-size":  t.Scale(-1.0 / 5).FontSize,
		"color":      Gray(46),
	})
	r.set(".share", map[string]string{"display": "flex", "flex-wrap": "wrap", "margin-bottom": t.Rhythm(1)})
	r.set(".share a", map[string]string{"margin-right": t.Rhythm(0.5)})
	r.set(".post-nav", map[string]string{
		"display":         "flex",
		"flex-wrap":       "wrap",
		"justify-content": "space-between",
		"list-style":      "none",
		"padding":         "0",
		"margin-left":     "0",
	})
	r.set(".admin-table td,.admin-table th", map[string]string{"font-size": t.Scale(-1.0 / 5).FontSize})
	r.set(".error", map[string]string{"color": "#b00020"})

	mobile := newRules()
	mobile.set("ul,ol", map[string]string{"margin-left": t.Rhythm(1)})
	mobile.set("blockquote", map[string]string{
		"margin-left":  t.Rhythm(-0.75),
		"margin-right": "0",
		"padding-left": t.Rhythm(9.0 / 16),
	})
	mobile.set(".container", map[string]string{"padding": t.Rhythm(1) + " " + t.Rhythm(0.5)})

	var b strings.Builder
	r.write(&b, "")
	b.WriteString(MobileMediaQuery + "{\n")
	mobile.write(&b, "  ")
	b.WriteString("}\n")
	return b.String()
}
