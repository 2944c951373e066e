package flowtree

import "strings"

// Kind identifies the variant a Node holds.
type Kind int

const (
	ElementNode Kind = iota
	TextNode
	CommentNode
	DoctypeNode
)

func (k Kind) String() string {
	switch k {
	case ElementNode:
		return "element"
	case TextNode:
		return "text"
	case CommentNode:
		return "comment"
	case DoctypeNode:
		return "doctype"
	}
	return "unknown"
}

// Attr is a single element attribute. Order is preserved on output.
type Attr struct {
	Key string
	Val string
}

// Node is a content tree node: an element, a run of text or a comment.
type Node struct {
	Kind     Kind
	Tag      string // Element tag name, lower case
	Attrs    []Attr
	Data     string // Text or comment data
	Children []*Node
	Parent   *Node

	marks Marker
}

// NewElement creates a detached element with the given attributes.
func NewElement(tag string, attrs ...Attr) *Node {
	return &Node{Kind: ElementNode, Tag: tag, Attrs: attrs}
}

// NewText creates a detached text node.
func NewText(data string) *Node {
	return &Node{Kind: TextNode, Data: data}
}

// NewComment creates a detached comment node.
func NewComment(data string) *Node {
	return &Node{Kind: CommentNode, Data: data}
}

// IsElement reports whether n is an element with the given tag (any tag when tag is empty).
func (n *Node) IsElement(tag string) bool {
	return n != nil && n.Kind == ElementNode && (tag == "" || n.Tag == tag)
}

// AppendChild adds child as the last child of n, detaching it from any previous parent.
func (n *Node) AppendChild(child *Node) *Node {
	if child.Parent != nil {
		child.Parent.RemoveChild(child)
	}
	child.Parent = n
	n.Children = append(n.Children, child)
	return child
}

// InsertBefore inserts newChild before ref. A nil or foreign ref appends.
func (n *Node) InsertBefore(newChild, ref *Node) *Node {
	if newChild.Parent != nil {
		newChild.Parent.RemoveChild(newChild)
	}
	i := n.indexOf(ref)
	if ref == nil || i < 0 {
		return n.AppendChild(newChild)
	}
	n.Children = append(n.Children, nil)
	copy(n.Children[i+1:], n.Children[i:])
	n.Children[i] = newChild
	newChild.Parent = n
	return newChild
}

// RemoveChild detaches child from n. Returns nil if child is not a child of n.
func (n *Node) RemoveChild(child *Node) *Node {
	i := n.indexOf(child)
	if i < 0 {
		return nil
	}
	n.Children = append(n.Children[:i], n.Children[i+1:]...)
	child.Parent = nil
	return child
}

// ReplaceChild puts newChild where old was. old is detached.
func (n *Node) ReplaceChild(newChild, old *Node) *Node {
	i := n.indexOf(old)
	if i < 0 {
		return nil
	}
	if newChild.Parent != nil {
		newChild.Parent.RemoveChild(newChild)
		i = n.indexOf(old)
	}
	n.Children[i] = newChild
	newChild.Parent = n
	old.Parent = nil
	return old
}

// Empty detaches all children of n.
func (n *Node) Empty() {
	for _, c := range n.Children {
		c.Parent = nil
	}
	n.Children = nil
}

// Detach removes n from its parent, if any.
func (n *Node) Detach() *Node {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
	return n
}

// Index returns the position of n among its parent's children, or -1.
func (n *Node) Index() int {
	if n.Parent == nil {
		return -1
	}
	return n.Parent.indexOf(n)
}

func (n *Node) indexOf(child *Node) int {
	for i, c := range n.Children {
		if c == child {
			return i
		}
	}
	return -1
}

// Clone copies n. A shallow clone keeps the identity (kind, tag, attributes, data)
// and drops the children; a deep clone copies the whole subtree. Markers are not copied.
func (n *Node) Clone(deep bool) *Node {
	c := &Node{Kind: n.Kind, Tag: n.Tag, Data: n.Data}
	if len(n.Attrs) > 0 {
		c.Attrs = make([]Attr, len(n.Attrs))
		copy(c.Attrs, n.Attrs)
	}
	if deep {
		c.Children = make([]*Node, 0, len(n.Children))
		for _, child := range n.Children {
			cc := child.Clone(true)
			cc.Parent = c
			c.Children = append(c.Children, cc)
		}
	}
	return c
}

// FirstElementChild returns the first element child of n, or nil.
func (n *Node) FirstElementChild() *Node {
	for _, c := range n.Children {
		if c.Kind == ElementNode {
			return c
		}
	}
	return nil
}

// Attr returns the value of the named attribute.
func (n *Node) Attr(key string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// HasAttr reports whether the named attribute is present.
func (n *Node) HasAttr(key string) bool {
	_, ok := n.Attr(key)
	return ok
}

// SetAttr sets or replaces an attribute.
func (n *Node) SetAttr(key, val string) {
	for i, a := range n.Attrs {
		if a.Key == key {
			n.Attrs[i].Val = val
			return
		}
	}
	n.Attrs = append(n.Attrs, Attr{Key: key, Val: val})
}

// RemoveAttr deletes an attribute if present.
func (n *Node) RemoveAttr(key string) {
	for i, a := range n.Attrs {
		if a.Key == key {
			n.Attrs = append(n.Attrs[:i], n.Attrs[i+1:]...)
			return
		}
	}
}

// Classes returns the element's class list.
func (n *Node) Classes() []string {
	v, _ := n.Attr("class")
	return strings.Fields(v)
}

// HasClass reports whether the element carries the class name.
func (n *Node) HasClass(name string) bool {
	if n.Kind != ElementNode || name == "" {
		return false
	}
	for _, c := range n.Classes() {
		if c == name {
			return true
		}
	}
	return false
}

// AddClass appends a class name if not already present.
func (n *Node) AddClass(name string) {
	if n.HasClass(name) {
		return
	}
	classes := append(n.Classes(), name)
	n.SetAttr("class", strings.Join(classes, " "))
}

// RemoveClass removes a class name. An emptied class attribute is dropped.
func (n *Node) RemoveClass(name string) {
	if !n.HasClass(name) {
		return
	}
	var kept []string
	for _, c := range n.Classes() {
		if c != name {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		n.RemoveAttr("class")
		return
	}
	n.SetAttr("class", strings.Join(kept, " "))
}

// TextContent concatenates all text descendants of n in tree order.
func (n *Node) TextContent() string {
	var sb strings.Builder
	n.Walk(func(d *Node) bool {
		if d.Kind == TextNode {
			sb.WriteString(d.Data)
		}
		return true
	})
	return sb.String()
}

// SetText replaces all children of n with a single text node.
func (n *Node) SetText(s string) {
	n.Empty()
	n.AppendChild(NewText(s))
}

// Walk visits n and its descendants depth-first. Returning false from fn
// skips the children of the visited node.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// FindAll returns the descendants of n (n excluded) matching m, in tree order.
func (n *Node) FindAll(m Matcher) []*Node {
	var out []*Node
	for _, c := range n.Children {
		c.Walk(func(d *Node) bool {
			if m.Match(d) {
				out = append(out, d)
			}
			return true
		})
	}
	return out
}

// HasDescendant reports whether any descendant of n (n excluded) matches m.
func (n *Node) HasDescendant(m Matcher) bool {
	for _, c := range n.Children {
		if c.contains(m) {
			return true
		}
	}
	return false
}

func (n *Node) contains(m Matcher) bool {
	if m.Match(n) {
		return true
	}
	for _, c := range n.Children {
		if c.contains(m) {
			return true
		}
	}
	return false
}

// Closest returns n or its nearest ancestor matching m.
func (n *Node) Closest(m Matcher) *Node {
	for p := n; p != nil; p = p.Parent {
		if m.Match(p) {
			return p
		}
	}
	return nil
}
