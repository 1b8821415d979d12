// Package typography computes the vertical-rhythm theme of the site and
// renders it as a stylesheet.
package typography

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Theme describes the typographic scale.
type Theme struct {
	BaseFontSize     float64 // px
	BaseLineHeight   float64 // unitless
	ScaleRatio       float64
	HeaderFontFamily []string
	HeaderWeight     int
	HeaderColor      string
	BodyFontFamily   []string
	BodyWeight       int
	BoldWeight       int
	BodyColor        string
	AccentColor      string
	MinLinePadding   float64 // px
}

// Default is the Splotch theme.
var Default = Theme{
	BaseFontSize:     18,
	BaseLineHeight:   1.75,
	ScaleRatio:       2.5,
	HeaderFontFamily: []string{"Fredoka One", "Comic Sans MS", "sans-serif"},
	HeaderWeight:     400,
	HeaderColor:      "hsla(0, 0%, 15%, 1)",
	BodyFontFamily:   []string{"Merriweather", "Times New Roman", "serif"},
	BodyWeight:       400,
	BoldWeight:       700,
	BodyColor:        "hsla(0, 0%, 10%, 1)",
	AccentColor:      "#d43900",
	MinLinePadding:   2,
}

// MobileMediaQuery matches narrow screens.
const MobileMediaQuery = "@media only screen and (max-width: 480px)"

// FontScale is a font-size/line-height pair.
type FontScale struct {
	FontSize   string
	LineHeight string
}

func (t Theme) lineHeightPx() float64 {
	return t.BaseFontSize * t.BaseLineHeight
}

// Rhythm returns n baseline units as a rem length.
func (t Theme) Rhythm(n float64) string {
	return rem(n * t.lineHeightPx() / t.BaseFontSize)
}

// Scale returns the font size n steps along the modular scale, with a line
// height snapped to the nearest half baseline.
func (t Theme) Scale(n float64) FontScale {
	fontPx := t.BaseFontSize * math.Pow(t.ScaleRatio, n)
	lines := math.Ceil(2*(fontPx+2*t.MinLinePadding)/t.lineHeightPx()) / 2
	lineHeight := lines * t.lineHeightPx() / fontPx
	return FontScale{
		FontSize:   rem(fontPx / t.BaseFontSize),
		LineHeight: trim(lineHeight),
	}
}

// Gray returns an hsla gray with the given lightness percentage.
func Gray(lightness float64) string {
	return fmt.Sprintf("hsla(0, 0%%, %s%%, 1)", trim(lightness))
}

func rem(v float64) string {
	if v == 0 {
		return "0"
	}
	return trim(v) + "rem"
}

func trim(v float64) string {
	return strconv.FormatFloat(math.Round(v*10000)/10000, 'f', -1, 64)
}

func fontStack(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		if strings.Contains(n, " ") {
			quoted[i] = `'` + n + `'`
		} else {
			quoted[i] = n
		}
	}
	return strings.Join(quoted, ",")
}

// rules is an ordered stylesheet: selector -> declarations.
type rules struct {
	order []string
	decls map[string]map[string]string
}

func newRules() *rules {
	return &rules{decls: map[string]map[string]string{}}
}

func (r *rules) set(selector string, decls map[string]string) {
	if _, ok := r.decls[selector]; !ok {
		r.order = append(r.order, selector)
		r.decls[selector] = map[string]string{}
	}
	for k, v := range decls {
		r.decls[selector][k] = v
	}
}

func (r *rules) write(b *strings.Builder, indent string) {
	for _, sel := range r.order {
		d := r.decls[sel]
		props := make([]string, 0, len(d))
		for k := range d {
			props = append(props, k)
		}
		sort.Strings(props)
		b.WriteString(indent + sel + "{")
		for _, p := range props {
			b.WriteString(p + ":" + d[p] + ";")
		}
		b.WriteString("}\n")
	}
}
