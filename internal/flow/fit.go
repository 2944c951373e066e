package flow

import (
	"strings"
	"unicode"

	"github.com/dgallion1/boxflow/internal/flowtree"
	"github.com/dgallion1/boxflow/internal/measure"
)

// replaced elements have extent but no content to divide.
var replaced = map[string]bool{
	"img": true, "hr": true, "svg": true, "canvas": true, "video": true,
	"iframe": true, "embed": true, "object": true,
}

// fitter checks whether content fits above the bottom of one box and marks the
// first node that does not: SplitHere on that node, DivideThis on each ancestor.
type fitter struct {
	opts     Options
	advance  flowtree.Matcher
	lay      measure.Layout
	bottom   float64
	diagnose func(n *flowtree.Node)
}

func newFitter(opts Options, lay measure.Layout, diagnose func(*flowtree.Node)) *fitter {
	return &fitter{
		opts:     opts,
		advance:  flowtree.Class(opts.AdvanceBefore),
		lay:      lay,
		bottom:   lay.Bottom(),
		diagnose: diagnose,
	}
}

func (f *fitter) fits(n *flowtree.Node) bool {
	switch n.Kind {
	case flowtree.CommentNode:
		return true
	case flowtree.TextNode:
		if strings.TrimSpace(n.Data) == "" {
			return true
		}
		// Text has no position of its own until it is wrapped.
		n = f.wrapText(n)
	case flowtree.ElementNode:
	default:
		f.diagnose(n)
		return true
	}

	top := f.lay.Top(n)
	switch {
	case n.HasClass(f.opts.AdvanceBefore) && top > 0:
		// Placement, not space, forces this break.
		n.Mark(flowtree.SplitHere | flowtree.Leaf)
		n.RemoveClass(f.opts.AdvanceBefore)
		return false
	case top+f.lay.Height(n) < f.bottom && !n.HasDescendant(f.advance):
		return true
	case n.HasClass(f.opts.KeepTogether):
		n.Mark(flowtree.SplitHere | flowtree.Leaf)
		return false
	case n.Has(flowtree.FormerText):
		return f.fitsWords(n)
	case !n.Has(flowtree.Leaf) && !replaced[n.Tag]:
		if f.fitsAll(n) {
			return true
		}
		n.Mark(flowtree.DivideThis)
		return false
	}
	n.Mark(flowtree.SplitHere)
	return false
}

// fitsAll checks children left to right and stops at the first that does not fit.
func (f *fitter) fitsAll(n *flowtree.Node) bool {
	kids := append([]*flowtree.Node(nil), n.Children...)
	for _, c := range kids {
		if !f.fits(c) {
			return false
		}
	}
	return true
}

func (f *fitter) wrapText(t *flowtree.Node) *flowtree.Node {
	span := flowtree.NewElement("span", flowtree.Attr{Key: "class", Val: f.opts.textClass()})
	span.Mark(flowtree.FormerText)
	if t.Parent != nil {
		t.Parent.ReplaceChild(span, t)
	}
	span.AppendChild(t)
	return span
}

// fitsWords turns a former text span into one span per word, keeping the
// whitespace between them verbatim, then checks the words in order.
func (f *fitter) fitsWords(span *flowtree.Node) bool {
	text := span.TextContent()
	span.Empty()
	span.Unmark(flowtree.FormerText)
	for _, tok := range tokenize(text) {
		if tok.space {
			span.AppendChild(flowtree.NewText(tok.s))
			continue
		}
		w := flowtree.NewElement("span", flowtree.Attr{Key: "class", Val: f.opts.wordClass()})
		w.Mark(flowtree.Leaf)
		w.AppendChild(flowtree.NewText(tok.s))
		span.AppendChild(w)
	}
	for _, c := range span.Children {
		if c.Kind == flowtree.ElementNode && !f.fits(c) {
			span.Mark(flowtree.DivideThis)
			return false
		}
	}
	return true
}

type token struct {
	s     string
	space bool
}

func tokenize(s string) []token {
	var out []token
	start := 0
	for i, r := range s {
		space := unicode.IsSpace(r)
		if i > start && space != out[len(out)-1].space {
			out[len(out)-1].s = s[start:i]
			start = i
		}
		if i == start {
			out = append(out, token{space: space})
		}
	}
	if len(out) > 0 {
		out[len(out)-1].s = s[start:]
	}
	return out
}
