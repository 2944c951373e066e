package parser

import (
	"fmt"
	"io"

	"github.com/dgallion1/boxflow/internal/flowtree"
)

// HTMLParser handles HTML files.
type HTMLParser struct {
	ContentSelector string
	SectionLevel    int
}

func (p *HTMLParser) Parse(r io.Reader, filename string) ([]*flowtree.Node, error) {
	doc, err := flowtree.ParseDocument(r)
	if err != nil {
		return nil, err
	}
	body := doc.Body()
	if body == nil {
		return nil, nil
	}
	stripNonContent(body)

	if p.ContentSelector == "" {
		return items(children(body), p.SectionLevel), nil
	}

	sel, err := flowtree.Compile(p.ContentSelector)
	if err != nil {
		return nil, fmt.Errorf("content selector: %w", err)
	}
	var out []*flowtree.Node
	for _, n := range body.FindAll(sel) {
		// A match nested in another match travels with the outer one.
		if n.Parent != nil && n.Parent.Closest(sel) != nil {
			continue
		}
		out = append(out, n)
	}
	for _, n := range out {
		n.Detach()
	}
	return out, nil
}

// stripNonContent drops elements that take no part in the flow.
func stripNonContent(n *flowtree.Node) {
	for _, c := range append([]*flowtree.Node(nil), n.Children...) {
		if c.Kind != flowtree.ElementNode {
			continue
		}
		switch c.Tag {
		case "script", "style", "template", "noscript":
			n.RemoveChild(c)
		default:
			stripNonContent(c)
		}
	}
}
