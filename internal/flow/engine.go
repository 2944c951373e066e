// Package flow pours content trees into the boxes of page templates.
//
// Each content item is placed in a box and measured. When it overflows, the
// first node that does not fit is found, the tree is divided there (ancestors
// are duplicated as empty shells on the moving side) and the remainder is put in
// the next box, adding pages from the templates as needed. Finally every page
// number placeholder receives the number of the page it ended up on.
package flow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dgallion1/boxflow/internal/flowtree"
	"github.com/dgallion1/boxflow/internal/measure"
)

// Engine flows content into pages built from a fixed set of templates.
// Templates are only read; every page is a deep copy.
type Engine struct {
	opts       Options
	box        *flowtree.Selector
	pageNumber flowtree.Matcher
	templates  []*flowtree.Node
	filler     *flowtree.Node
	repeatFrom int
	oracle     measure.Oracle
	log        *slog.Logger
}

// Page is one instantiated template.
type Page struct {
	Root     *flowtree.Node
	Number   int // page number within its content item, from 1
	Item     int // index of the content item whose placement created this page
	Template int // template index; -1 for the filler page
	Filler   bool
	Boxes    []*flowtree.Node
}

// Run is the output of one Flow call: pages in production order.
type Run struct {
	Pages       []*Page
	Splits      int
	Diagnostics []string
}

// Roots returns the root element of every page in order.
func (r *Run) Roots() []*flowtree.Node {
	out := make([]*flowtree.Node, len(r.Pages))
	for i, p := range r.Pages {
		out[i] = p.Root
	}
	return out
}

// Items groups the pages by the content item that created them.
func (r *Run) Items() [][]*Page {
	var out [][]*Page
	for _, p := range r.Pages {
		for len(out) <= p.Item {
			out = append(out, nil)
		}
		out[p.Item] = append(out[p.Item], p)
	}
	return out
}

// Document moves every page, in production order, into a new container element.
func (r *Run) Document() *flowtree.Node {
	doc := flowtree.NewElement("div", flowtree.Attr{Key: "class", Val: "pages"})
	for _, p := range r.Pages {
		doc.AppendChild(p.Root)
	}
	return doc
}

// PagesPerItem counts the pages created for each content item.
func (r *Run) PagesPerItem(items int) []int {
	counts := make([]int, items)
	for _, p := range r.Pages {
		if p.Item >= 0 && p.Item < items {
			counts[p.Item]++
		}
	}
	return counts
}

// New prepares an engine. A template carrying the filler-page class is set
// aside for duplex padding; the template carrying the repeat-from class (else
// the last) is where page instantiation restarts once all are used.
func New(templates []*flowtree.Node, oracle measure.Oracle, opts Options, log *slog.Logger) (*Engine, error) {
	opts = opts.withDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	box, err := flowtree.Compile(opts.Box)
	if err != nil {
		return nil, fmt.Errorf("box selector: %w", err)
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	e := &Engine{
		opts:       opts,
		box:        box,
		pageNumber: flowtree.Class(opts.PageNumber),
		oracle:     oracle,
		log:        log,
	}
	for _, t := range templates {
		if t.HasClass(opts.FillerPage) {
			if e.filler == nil {
				e.filler = t
			}
			continue
		}
		e.templates = append(e.templates, t)
	}
	if len(e.templates) == 0 {
		return nil, ErrNoTemplates
	}
	e.repeatFrom = len(e.templates) - 1
	for i, t := range e.templates {
		if t.HasClass(opts.RepeatFrom) {
			e.repeatFrom = i
			break
		}
	}
	// The wrap-around must reach a box or nextBox never terminates.
	cycleHasBox := false
	for _, t := range e.templates[e.repeatFrom:] {
		if len(t.FindAll(box)) > 0 {
			cycleHasBox = true
			break
		}
	}
	if !cycleHasBox {
		return nil, fmt.Errorf("%w: selector %q", ErrNoBoxes, opts.Box)
	}
	return e, nil
}

// Options returns the effective options.
func (e *Engine) Options() Options { return e.opts }

// Flow places every content item and returns the pages produced. The content
// trees are moved into the pages.
func (e *Engine) Flow(ctx context.Context, contents []*flowtree.Node) (*Run, error) {
	run := &Run{}
	cur := &cursor{e: e, run: run}

	for i, content := range contents {
		if err := e.place(ctx, cur, run, i, content); err != nil {
			return run, err
		}
	}

	e.finish(run)
	return run, nil
}

func (e *Engine) place(ctx context.Context, cur *cursor, run *Run, item int, content *flowtree.Node) error {
	cur.startItem(item)
	var err error
	if e.opts.Pagination == Repeat {
		err = cur.nextBox(!cur.started)
	} else {
		err = cur.nextPage(false)
		if err == nil && len(cur.boxes) == 0 {
			err = cur.nextBox(false)
		}
	}
	if err != nil {
		return err
	}

	log := e.log.With("item", item)
	box := cur.current()
	box.Empty()
	if content != nil {
		box.AppendChild(content)
	}

	for len(box.Children) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		lay, err := e.oracle.Measure(box)
		if err != nil {
			return fmt.Errorf("content item %d, page %d: %w", item, cur.number, err)
		}
		f := newFitter(e.opts, lay, func(n *flowtree.Node) {
			msg := fmt.Sprintf("content item %d: unexpected %s node treated as fitting", item, n.Kind)
			run.Diagnostics = append(run.Diagnostics, msg)
			log.Warn("unexpected node kind", "kind", n.Kind.String())
		})
		// The box holds exactly one content root; fits may replace it.
		if f.fits(box.Children[0]) {
			break
		}

		if err := cur.nextBox(false); err != nil {
			return err
		}
		next := cur.current()
		next.Empty()
		e.divide(box.Children[0], next)
		if len(next.Children) == 0 {
			return fmt.Errorf("content item %d, page %d: %w", item, cur.number, ErrNoBreak)
		}
		run.Splits++
		log.Debug("overflow", "page", cur.number, "box", cur.box)
		box = next
	}

	if e.opts.Pagination == Duplex && cur.number%2 != 0 {
		if e.filler != nil {
			return cur.nextPage(true)
		}
		if err := cur.nextPage(false); err != nil {
			return err
		}
		if len(cur.boxes) > 0 {
			cur.boxes[0].Empty()
		}
	}
	return nil
}

// finish resolves page number placeholders and drops all markers.
func (e *Engine) finish(run *Run) {
	stamped := flowtree.HasAttribute(e.opts.PageNumber)
	for _, p := range run.Pages {
		for _, n := range p.Root.FindAll(e.pageNumber) {
			if owner := n.Closest(stamped); owner != nil {
				v, _ := owner.Attr(e.opts.PageNumber)
				n.SetText(v)
			}
		}
		p.Root.ClearMarks()
	}
}
