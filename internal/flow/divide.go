package flow

import "github.com/dgallion1/boxflow/internal/flowtree"

// divide follows the DivideThis path down from n and moves the SplitHere node,
// with everything after it, out of the tree. into collects what moves at n's
// level; it is nil until the break point has been passed. The returned node
// holds the moved part, or is nil when nothing moved. Markers are cleared on
// the way so the moved tree can be checked and divided again.
func (e *Engine) divide(n, into *flowtree.Node) *flowtree.Node {
	switch {
	case n.Kind != flowtree.ElementNode:
		if into != nil {
			into.AppendChild(n)
		}
		return into

	case n.Has(flowtree.SplitHere):
		n.Unmark(flowtree.SplitHere)
		if !n.HasClass(e.opts.wordClass()) {
			n.Unmark(flowtree.Leaf)
		}
		if into == nil {
			// The parent's identity carries styling onto the next box; its
			// already placed children stay behind.
			into = n.Parent.Clone(false)
		}
		into.AppendChild(n)
		return into

	case n.Has(flowtree.DivideThis):
		n.Unmark(flowtree.DivideThis)
		var part *flowtree.Node
		for _, c := range append([]*flowtree.Node(nil), n.Children...) {
			part = e.divide(c, part)
		}
		if part == nil {
			return into
		}
		if into == nil {
			into = n.Parent.Clone(false)
		}
		into.AppendChild(part)
		return into
	}

	if into != nil {
		into.AppendChild(n)
	}
	return into
}
