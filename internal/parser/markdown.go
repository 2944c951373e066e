package parser

import (
	"bytes"
	"fmt"
	"io"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/dgallion1/boxflow/internal/flowtree"
)

// MarkdownParser handles Markdown files using goldmark. The rendered HTML
// becomes the content; raw HTML in the source is kept so authors can place
// keep-together and advance-before blocks.
type MarkdownParser struct {
	SectionLevel int
}

func (p *MarkdownParser) Parse(r io.Reader, filename string) ([]*flowtree.Node, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
	)
	var buf bytes.Buffer
	if err := md.Convert(src, &buf); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}

	nodes, err := flowtree.ParseFragment(&buf)
	if err != nil {
		return nil, err
	}
	return items(nodes, p.SectionLevel), nil
}
