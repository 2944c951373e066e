package flow

import (
	"fmt"
	"strconv"

	"github.com/dgallion1/boxflow/internal/flowtree"
)

// cursor walks the live boxes, instantiating pages from templates as they run out.
type cursor struct {
	e     *Engine
	run   *Run
	boxes []*flowtree.Node // boxes of the current page
	box   int
	page  int // template index of the current page

	item    int
	number  int // page number within the current item
	created int // pages created for the current item
	started bool
}

func (c *cursor) current() *flowtree.Node {
	return c.boxes[c.box]
}

// startItem resets the per-item counters.
func (c *cursor) startItem(item int) {
	c.item = item
	c.number = 0
	c.created = 0
}

// nextBox advances to the next box, adding pages when the current one is used
// up. Past the last template it wraps to the repeat-from template. first keeps
// the current box when it is still free.
func (c *cursor) nextBox(first bool) error {
	if !first {
		c.box++
	}
	for c.box >= len(c.boxes) {
		if c.started {
			c.page++
			if c.page == len(c.e.templates) {
				c.page = c.e.repeatFrom
			}
		}
		if err := c.instantiate(c.e.templates[c.page], c.page); err != nil {
			return err
		}
	}
	return nil
}

// nextPage starts a brand new page from the first template, or from the filler
// template when filler is set, and moves to its first box.
func (c *cursor) nextPage(filler bool) error {
	tpl, idx := c.e.templates[0], 0
	if filler {
		tpl, idx = c.e.filler, -1
	}
	if err := c.instantiate(tpl, idx); err != nil {
		return err
	}
	c.page = 0
	return nil
}

func (c *cursor) instantiate(tpl *flowtree.Node, idx int) error {
	if c.created >= c.e.opts.MaxPagesPerItem {
		return fmt.Errorf("content item %d: %w (%d pages)", c.item, ErrPageLimit, c.created)
	}
	c.created++
	c.number++
	c.started = true

	root := tpl.Clone(true)
	root.SetAttr(c.e.opts.PageNumber, strconv.Itoa(c.number))
	p := &Page{
		Root:     root,
		Number:   c.number,
		Item:     c.item,
		Template: idx,
		Filler:   idx < 0,
		Boxes:    root.FindAll(c.e.box),
	}
	c.run.Pages = append(c.run.Pages, p)
	c.boxes = p.Boxes
	c.box = 0
	c.e.log.Debug("page added", "item", c.item, "page", c.number, "template", idx, "boxes", len(p.Boxes))
	return nil
}
