package markdown

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/yuin/goldmark/ast"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// StripAccents removes combining marks, so "čćž" becomes "ccz".
func StripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Anchor turns heading text into a fragment identifier: accents stripped,
// lowercased, punctuation dropped and spaces replaced with hyphens.
func Anchor(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(StripAccents(s))) {
		switch {
		case unicode.IsLetter(r), unicode.IsNumber(r), r == '-', r == '_':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte('-')
		}
	}
	return b.String()
}

// headingIDs hands out unique anchors within one document. Repeats get a
// numeric suffix: "intro", "intro-1", "intro-2".
type headingIDs struct {
	seen map[string]int
}

func newHeadingIDs() *headingIDs {
	return &headingIDs{seen: make(map[string]int)}
}

func (h *headingIDs) Generate(value []byte, kind ast.NodeKind) []byte {
	base := Anchor(string(value))
	if base == "" {
		base = "heading"
	}
	id := base
	for {
		n, ok := h.seen[id]
		if !ok {
			break
		}
		h.seen[id] = n + 1
		id = base + "-" + strconv.Itoa(n)
	}
	h.seen[id] = 1
	return []byte(id)
}

func (h *headingIDs) Put(value []byte) {
	h.seen[string(value)] = 1
}

// KindAnchor is the node kind of the link prepended to every heading.
var KindAnchor = ast.NewNodeKind("HeadingAnchor")

type anchorNode struct {
	ast.BaseInline
	id string
}

func (n *anchorNode) Kind() ast.NodeKind { return KindAnchor }

func (n *anchorNode) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"ID": n.id}, nil)
}
