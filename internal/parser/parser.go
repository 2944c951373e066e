package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/boxflow/internal/flowtree"
)

// Parser converts raw document bytes into content items, each one tree to be
// flowed into its own run of pages.
type Parser interface {
	Parse(r io.Reader, filename string) ([]*flowtree.Node, error)
}

// Options tune how documents are cut into content items.
type Options struct {
	// ContentSelector makes every matching HTML element a content item.
	ContentSelector string
	// SectionLevel starts a new content item at each heading of this level
	// or above (1 = h1 only). Zero keeps a document as a single item.
	SectionLevel int
	// PDFFallback shells out to pdftotext when the Go reader fails.
	PDFFallback bool
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".csv":      true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string, opts Options) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{SectionLevel: opts.SectionLevel}, nil
	case ".csv":
		return &CSVParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{ContentSelector: opts.ContentSelector, SectionLevel: opts.SectionLevel}, nil
	case ".pdf":
		return &PDFParser{FallbackPdftotext: opts.PDFFallback}, nil
	case ".docx":
		return &DOCXParser{SectionLevel: opts.SectionLevel}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// items turns a run of top-level nodes into content items. With level > 0 a
// heading of that level or above opens a new <section>; otherwise everything
// is one item, the lone element itself when there is exactly one.
func items(nodes []*flowtree.Node, level int) []*flowtree.Node {
	if level <= 0 {
		if !hasContent(nodes) {
			return nil
		}
		if el := loneElement(nodes); el != nil {
			el.Detach()
			return []*flowtree.Node{el}
		}
		return []*flowtree.Node{wrap("div", nodes)}
	}

	var out []*flowtree.Node
	var group []*flowtree.Node
	flush := func() {
		if hasContent(group) {
			out = append(out, wrap("section", group))
		}
		group = nil
	}
	for _, n := range nodes {
		if l := headingLevel(n.Tag); n.Kind == flowtree.ElementNode && l > 0 && l <= level {
			flush()
		}
		group = append(group, n)
	}
	flush()
	return out
}

func wrap(tag string, nodes []*flowtree.Node) *flowtree.Node {
	el := flowtree.NewElement(tag)
	for _, n := range nodes {
		el.AppendChild(n)
	}
	return el
}

func hasContent(nodes []*flowtree.Node) bool {
	for _, n := range nodes {
		switch n.Kind {
		case flowtree.ElementNode:
			return true
		case flowtree.TextNode:
			if strings.TrimSpace(n.Data) != "" {
				return true
			}
		}
	}
	return false
}

// loneElement returns the only element among nodes when everything else is
// whitespace or comments.
func loneElement(nodes []*flowtree.Node) *flowtree.Node {
	var el *flowtree.Node
	for _, n := range nodes {
		switch n.Kind {
		case flowtree.ElementNode:
			if el != nil {
				return nil
			}
			el = n
		case flowtree.TextNode:
			if strings.TrimSpace(n.Data) != "" {
				return nil
			}
		}
	}
	return el
}

// children detaches and returns the children of n.
func children(n *flowtree.Node) []*flowtree.Node {
	out := append([]*flowtree.Node(nil), n.Children...)
	for _, c := range out {
		c.Detach()
	}
	return out
}

func headingLevel(tag string) int {
	switch tag {
	case "h1":
		return 1
	case "h2":
		return 2
	case "h3":
		return 3
	case "h4":
		return 4
	case "h5":
		return 5
	case "h6":
		return 6
	}
	return 0
}

// paragraph builds <p>text</p>.
func paragraph(text string) *flowtree.Node {
	p := flowtree.NewElement("p")
	p.AppendChild(flowtree.NewText(text))
	return p
}
