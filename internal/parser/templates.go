package parser

import (
	"errors"
	"fmt"
	"io"

	"github.com/dgallion1/boxflow/internal/flow"
	"github.com/dgallion1/boxflow/internal/flowtree"
)

// ErrNoTemplatePages means a template document holds no page templates.
var ErrNoTemplatePages = errors.New("template document has no pages")

// TemplateDoc is a host HTML document holding the page templates. The
// templates are taken out of the document; the pages produced from them are
// written back where the first template stood.
type TemplateDoc struct {
	doc       *flowtree.Document
	templates []*flowtree.Node
	anchor    *flowtree.Node // placeholder at the insertion point
}

// LoadTemplates parses a template document. The page templates are the
// elements matching pages, or every element child of <body> when pages is
// empty. Anything else stays in the document around the produced pages.
func LoadTemplates(r io.Reader, pages string) (*TemplateDoc, error) {
	doc, err := flowtree.ParseDocument(r)
	if err != nil {
		return nil, err
	}
	body := doc.Body()
	if body == nil {
		return nil, ErrNoTemplatePages
	}
	stripNonContent(body)

	var found []*flowtree.Node
	if pages == "" {
		for _, c := range body.Children {
			if c.Kind == flowtree.ElementNode {
				found = append(found, c)
			}
		}
	} else {
		sel, err := flowtree.Compile(pages)
		if err != nil {
			return nil, fmt.Errorf("page selector: %w", err)
		}
		for _, n := range body.FindAll(sel) {
			if n.Parent != nil && n.Parent.Closest(sel) != nil {
				continue
			}
			found = append(found, n)
		}
	}
	if len(found) == 0 {
		return nil, ErrNoTemplatePages
	}

	td := &TemplateDoc{doc: doc, anchor: flowtree.NewComment("pages")}
	found[0].Parent.InsertBefore(td.anchor, found[0])
	for _, n := range found {
		td.templates = append(td.templates, n.Detach())
	}
	return td, nil
}

// Templates returns the page templates in document order.
func (td *TemplateDoc) Templates() []*flowtree.Node { return td.templates }

// Render writes the host document with the run's pages at the insertion
// point. The document is left as loaded, so it can be rendered again.
func (td *TemplateDoc) Render(w io.Writer, run *flow.Run) error {
	body := td.anchor.Parent
	roots := run.Roots()
	for _, root := range roots {
		body.InsertBefore(root, td.anchor)
	}
	idx := td.anchor.Index()
	body.RemoveChild(td.anchor)

	err := flowtree.RenderDocument(w, td.doc)

	// Put the anchor back and take the pages out again.
	var ref *flowtree.Node
	if idx < len(body.Children) {
		ref = body.Children[idx]
	}
	body.InsertBefore(td.anchor, ref)
	for _, root := range roots {
		root.Detach()
	}
	if err != nil {
		return fmt.Errorf("render document: %w", err)
	}
	return nil
}
