package measure

import (
	"unicode"

	"golang.org/x/text/width"

	"github.com/dgallion1/boxflow/internal/flowtree"
)

var blockTags = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true, "dd": true,
	"details": true, "div": true, "dl": true, "dt": true, "fieldset": true,
	"figcaption": true, "figure": true, "footer": true, "form": true, "h1": true,
	"h2": true, "h3": true, "h4": true, "h5": true, "h6": true, "header": true,
	"hr": true, "img": true, "li": true, "main": true, "nav": true, "ol": true,
	"p": true, "pre": true, "section": true, "table": true, "tbody": true,
	"td": true, "tfoot": true, "th": true, "thead": true, "tr": true, "ul": true,
	"canvas": true, "svg": true, "video": true, "iframe": true,
}

var atomicTags = map[string]bool{
	"img": true, "hr": true, "canvas": true, "svg": true, "video": true, "iframe": true,
}

type rect struct {
	top, height float64
}

type layout struct {
	flow          *Flow
	box           *flowtree.Node
	width, height float64
	rects         map[*flowtree.Node]rect
}

func (l *layout) Bottom() float64 { return l.height }

func (l *layout) Top(n *flowtree.Node) float64 { return l.lookup(n).top }

func (l *layout) Height(n *flowtree.Node) float64 { return l.lookup(n).height }

// lookup recomputes the whole box when n is unknown: the caller may have
// wrapped or re-tokenized content since the last pass.
func (l *layout) lookup(n *flowtree.Node) rect {
	if r, ok := l.rects[n]; ok {
		return r
	}
	l.run()
	return l.rects[n]
}

func (l *layout) run() {
	l.rects = make(map[*flowtree.Node]rect)
	l.rects[l.box] = rect{0, l.height}
	l.flowChildren(l.box, 0)
}

func (l *layout) isBlock(n *flowtree.Node) bool {
	if n.Kind != flowtree.ElementNode {
		return false
	}
	if blockTags[n.Tag] {
		return true
	}
	for _, c := range n.Children {
		if l.isBlock(c) {
			return true
		}
	}
	return false
}

// flowChildren stacks the children of n starting at y and returns the height used.
func (l *layout) flowChildren(n *flowtree.Node, y float64) float64 {
	cur := y
	var run []*flowtree.Node
	flush := func() {
		if len(run) > 0 {
			cur += l.inline(run, cur)
			run = nil
		}
	}
	for _, c := range n.Children {
		switch {
		case l.isBlock(c):
			flush()
			cur += l.block(c, cur)
		case c.Kind == flowtree.TextNode || c.Kind == flowtree.ElementNode:
			run = append(run, c)
		}
	}
	flush()
	return cur - y
}

func (l *layout) block(n *flowtree.Node, y float64) float64 {
	var h float64
	if atomicTags[n.Tag] {
		var ok bool
		if h, ok = length(n, "height"); !ok {
			h = l.flow.lineHeight
		}
	} else {
		h = l.flowChildren(n, y)
		// A height attribute on a non-replaced element has no effect in HTML.
		if fixed, ok := styleLength(n, "height"); ok {
			h = fixed
		}
	}
	l.rects[n] = rect{y, h}
	return h
}

type openElement struct {
	first, last int
	seen        bool
}

type lineState struct {
	top          float64
	line         int
	x            float64
	placed       bool
	pendingSpace bool
	open         []*openElement
}

// inline lays out a run of inline nodes as line boxes starting at y.
func (l *layout) inline(nodes []*flowtree.Node, y float64) float64 {
	st := &lineState{top: y}
	for _, n := range nodes {
		l.inlineNode(st, n)
	}
	if !st.placed {
		return 0
	}
	return float64(st.line+1) * l.flow.lineHeight
}

func (l *layout) inlineNode(st *lineState, n *flowtree.Node) {
	switch n.Kind {
	case flowtree.TextNode:
		l.text(st, n.Data)
	case flowtree.ElementNode:
		if n.Tag == "br" {
			l.place(st, 0)
			st.line++
			st.x = 0
			st.pendingSpace = false
			return
		}
		oe := &openElement{}
		st.open = append(st.open, oe)
		for _, c := range n.Children {
			l.inlineNode(st, c)
		}
		st.open = st.open[:len(st.open)-1]
		lh := l.flow.lineHeight
		if oe.seen {
			l.rects[n] = rect{st.top + float64(oe.first)*lh, float64(oe.last-oe.first+1) * lh}
		} else {
			l.rects[n] = rect{st.top + float64(st.line)*lh, 0}
		}
	}
}

func (l *layout) text(st *lineState, s string) {
	start := -1
	for i, r := range s {
		if unicode.IsSpace(r) {
			if start >= 0 {
				l.word(st, s[start:i])
				start = -1
			}
			st.pendingSpace = true
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		l.word(st, s[start:])
	}
}

func (l *layout) word(st *lineState, w string) {
	adv := l.advance(w)
	var sp float64
	if st.pendingSpace && st.x > 0 {
		sp = l.advance(" ")
	}
	if st.x > 0 && l.width > 0 && st.x+sp+adv > l.width {
		st.line++
		st.x = 0
		sp = 0
	}
	l.place(st, sp+adv)
	st.pendingSpace = false
}

func (l *layout) place(st *lineState, w float64) {
	st.x += w
	st.placed = true
	for _, oe := range st.open {
		if !oe.seen {
			oe.first = st.line
			oe.seen = true
		}
		oe.last = st.line
	}
}

// advance sums glyph advances; East Asian wide and fullwidth runes count double.
func (l *layout) advance(s string) float64 {
	var total float64
	for _, r := range s {
		a, ok := l.flow.face.GlyphAdvance(r)
		if !ok {
			a, _ = l.flow.face.GlyphAdvance('x')
		}
		w := float64(a) / 64
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			w *= 2
		}
		total += w
	}
	return total
}
