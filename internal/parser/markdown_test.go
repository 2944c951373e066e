package parser

import (
	"strings"
	"testing"

	"github.com/dgallion1/boxflow/internal/flowtree"
)

const sampleMarkdown = `# Title

Intro text.

## Section A

Section A content.

### Subsection A1

Subsection A1 content.

# Appendix

Appendix content.
`

func TestMarkdownParser_SingleItem(t *testing.T) {
	p := &MarkdownParser{}
	items, err := p.Parse(strings.NewReader(sampleMarkdown), "doc.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 content item, got %d", len(items))
	}

	root := items[0]
	if root.Tag != "div" {
		t.Errorf("expected wrapping <div>, got <%s>", root.Tag)
	}
	var tags []string
	for _, c := range root.Children {
		if c.Kind == flowtree.ElementNode {
			tags = append(tags, c.Tag)
		}
	}
	want := "h1 p h2 p h3 p h1 p"
	if got := strings.Join(tags, " "); got != want {
		t.Errorf("expected block sequence %q, got %q", want, got)
	}
}

func TestMarkdownParser_SectionLevel(t *testing.T) {
	tests := []struct {
		level int
		want  []string // first heading text of each item
	}{
		{1, []string{"Title", "Appendix"}},
		{2, []string{"Title", "Section A", "Appendix"}},
		{3, []string{"Title", "Section A", "Subsection A1", "Appendix"}},
	}
	for _, tt := range tests {
		p := &MarkdownParser{SectionLevel: tt.level}
		items, err := p.Parse(strings.NewReader(sampleMarkdown), "doc.md")
		if err != nil {
			t.Fatalf("level %d: unexpected error: %v", tt.level, err)
		}
		if len(items) != len(tt.want) {
			t.Fatalf("level %d: expected %d items, got %d", tt.level, len(tt.want), len(items))
		}
		for i, item := range items {
			if item.Tag != "section" {
				t.Errorf("level %d item %d: expected <section>, got <%s>", tt.level, i, item.Tag)
			}
			h := item.FirstElementChild()
			if h == nil || h.TextContent() != tt.want[i] {
				t.Errorf("level %d item %d: expected heading %q, got %v", tt.level, i, tt.want[i], h)
			}
		}
	}
}

func TestMarkdownParser_NoHeadings(t *testing.T) {
	input := "Just some text.\n\nAnother paragraph."
	p := &MarkdownParser{SectionLevel: 1}
	items, err := p.Parse(strings.NewReader(input), "plain.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if !strings.Contains(items[0].TextContent(), "Another paragraph.") {
		t.Errorf("expected text to contain %q, got %q", "Another paragraph.", items[0].TextContent())
	}
}

func TestMarkdownParser_RawHTMLKept(t *testing.T) {
	input := "Before.\n\n<div class=\"keep-together\">\n\nKept **together**.\n\n</div>\n"
	p := &MarkdownParser{}
	items, err := p.Parse(strings.NewReader(input), "raw.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	kept := items[0].FindAll(flowtree.Class("keep-together"))
	if len(kept) != 1 {
		t.Fatalf("expected the keep-together block to survive, got %s", items[0])
	}
	if len(kept[0].FindAll(flowtree.MustCompile("strong"))) != 1 {
		t.Errorf("expected markdown inside the block to render, got %s", kept[0])
	}
}

func TestMarkdownParser_EmptyInput(t *testing.T) {
	p := &MarkdownParser{}
	items, err := p.Parse(strings.NewReader(""), "empty.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("expected no items for empty input, got %d", len(items))
	}
}
