package flowtree

import "strings"

// Marker records transient fit/split state on a node.
type Marker uint8

const (
	// Leaf nodes are never descended into by the fit check.
	Leaf Marker = 1 << iota
	// SplitHere marks the first node that does not fit.
	SplitHere
	// DivideThis marks each ancestor on the path to the SplitHere node.
	DivideThis
	// FormerText marks a span that wraps what used to be a bare text node.
	FormerText
)

var markerNames = []struct {
	m    Marker
	name string
}{
	{Leaf, "leaf"},
	{SplitHere, "split-here"},
	{DivideThis, "divide-this"},
	{FormerText, "former-text"},
}

func (m Marker) String() string {
	var names []string
	for _, mn := range markerNames {
		if m&mn.m != 0 {
			names = append(names, mn.name)
		}
	}
	return strings.Join(names, "|")
}

// Mark sets markers on n.
func (n *Node) Mark(m Marker) { n.marks |= m }

// Unmark clears markers on n.
func (n *Node) Unmark(m Marker) { n.marks &^= m }

// Has reports whether all of the given markers are set on n.
func (n *Node) Has(m Marker) bool { return n.marks&m == m }

// Marks returns the markers currently set on n.
func (n *Node) Marks() Marker { return n.marks }

// ClearMarks removes every marker from n and its descendants.
func (n *Node) ClearMarks() {
	n.Walk(func(d *Node) bool {
		d.marks = 0
		return true
	})
}
