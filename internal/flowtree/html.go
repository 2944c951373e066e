package flowtree

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is a parsed HTML document.
type Document struct {
	Doctype string // e.g. "html"; empty when the source had none
	Root    *Node  // the <html> element
}

// Body returns the document's <body> element, or nil.
func (d *Document) Body() *Node {
	return findTag(d.Root, "body")
}

// Head returns the document's <head> element, or nil.
func (d *Document) Head() *Node {
	return findTag(d.Root, "head")
}

func findTag(n *Node, tag string) *Node {
	if n == nil {
		return nil
	}
	if n.IsElement(tag) {
		return n
	}
	for _, c := range n.Children {
		if f := findTag(c, tag); f != nil {
			return f
		}
	}
	return nil
}

// ParseDocument parses a complete HTML document.
func ParseDocument(r io.Reader) (*Document, error) {
	hn, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	doc := &Document{}
	for c := hn.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.DoctypeNode:
			doc.Doctype = c.Data
		case html.ElementNode:
			doc.Root = FromHTML(c)
		}
	}
	if doc.Root == nil {
		return nil, fmt.Errorf("parse html: no root element")
	}
	return doc, nil
}

// ParseFragment parses an HTML fragment in a <body> context.
func ParseFragment(r io.Reader) ([]*Node, error) {
	ctx := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	hns, err := html.ParseFragment(r, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse html fragment: %w", err)
	}
	out := make([]*Node, 0, len(hns))
	for _, hn := range hns {
		if n := FromHTML(hn); n != nil {
			out = append(out, n)
		}
	}
	return out, nil
}

// FromHTML converts an x/net/html subtree. Document nodes and error nodes yield nil.
func FromHTML(hn *html.Node) *Node {
	var n *Node
	switch hn.Type {
	case html.ElementNode:
		n = NewElement(strings.ToLower(hn.Data))
		for _, a := range hn.Attr {
			key := a.Key
			if a.Namespace != "" {
				key = a.Namespace + ":" + a.Key
			}
			n.Attrs = append(n.Attrs, Attr{Key: key, Val: a.Val})
		}
	case html.TextNode:
		return NewText(hn.Data)
	case html.CommentNode:
		return NewComment(hn.Data)
	case html.DoctypeNode:
		return &Node{Kind: DoctypeNode, Data: hn.Data}
	default:
		return nil
	}
	for c := hn.FirstChild; c != nil; c = c.NextSibling {
		if cn := FromHTML(c); cn != nil {
			n.AppendChild(cn)
		}
	}
	return n
}

// ToHTML converts n into an x/net/html subtree.
func ToHTML(n *Node) *html.Node {
	hn := &html.Node{}
	switch n.Kind {
	case ElementNode:
		hn.Type = html.ElementNode
		hn.Data = n.Tag
		hn.DataAtom = atom.Lookup([]byte(n.Tag))
		for _, a := range n.Attrs {
			hn.Attr = append(hn.Attr, html.Attribute{Key: a.Key, Val: a.Val})
		}
		for _, c := range n.Children {
			hn.AppendChild(ToHTML(c))
		}
	case TextNode:
		hn.Type = html.TextNode
		hn.Data = n.Data
	case CommentNode:
		hn.Type = html.CommentNode
		hn.Data = n.Data
	default:
		hn.Type = html.DoctypeNode
		hn.Data = n.Data
	}
	return hn
}

// Render writes n as HTML.
func Render(w io.Writer, n *Node) error {
	return html.Render(w, ToHTML(n))
}

// RenderDocument writes a complete document, doctype included.
func RenderDocument(w io.Writer, d *Document) error {
	hd := &html.Node{Type: html.DocumentNode}
	if d.Doctype != "" {
		hd.AppendChild(&html.Node{Type: html.DoctypeNode, Data: d.Doctype})
	}
	hd.AppendChild(ToHTML(d.Root))
	return html.Render(w, hd)
}

// String renders n as HTML, for logs and tests.
func (n *Node) String() string {
	var buf bytes.Buffer
	if err := Render(&buf, n); err != nil {
		return fmt.Sprintf("<!-- render error: %v -->", err)
	}
	return buf.String()
}
