package parser

import (
	"strings"
	"testing"
)

func TestTextParser_BasicParagraphSplitting(t *testing.T) {
	input := "First paragraph line one.\nFirst paragraph line two.\n\nSecond paragraph.\n\nThird paragraph."
	p := &TextParser{}
	items, err := p.Parse(strings.NewReader(input), "notes.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 content item, got %d", len(items))
	}

	paras := items[0].Children
	if len(paras) != 3 {
		t.Fatalf("expected 3 paragraphs, got %d", len(paras))
	}

	want := []string{
		"First paragraph line one.\nFirst paragraph line two.",
		"Second paragraph.",
		"Third paragraph.",
	}
	for i, w := range want {
		if paras[i].Tag != "p" {
			t.Errorf("child[%d]: expected <p>, got <%s>", i, paras[i].Tag)
		}
		if got := paras[i].TextContent(); got != w {
			t.Errorf("child[%d]: expected %q, got %q", i, w, got)
		}
	}
}

func TestTextParser_EmptyInput(t *testing.T) {
	p := &TextParser{}
	items, err := p.Parse(strings.NewReader(""), "empty.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("expected no content items for empty input, got %d", len(items))
	}
}

func TestTextParser_SingleLine(t *testing.T) {
	p := &TextParser{}
	items, err := p.Parse(strings.NewReader("Hello world"), "single.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 content item, got %d", len(items))
	}
	if got := items[0].String(); got != "<div><p>Hello world</p></div>" {
		t.Errorf("unexpected html %q", got)
	}
}

func TestTextParser_MultipleBlankLines(t *testing.T) {
	// Multiple consecutive blank lines should not produce empty paragraphs.
	input := "Para one.\n\n\n\nPara two."
	p := &TextParser{}
	items, err := p.Parse(strings.NewReader(input), "gaps.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items[0].Children) != 2 {
		t.Fatalf("expected 2 paragraphs, got %d", len(items[0].Children))
	}
}

func TestTextParser_WhitespaceOnlyLines(t *testing.T) {
	// Lines with only whitespace should be treated as blank.
	input := "Para one.\n   \nPara two."
	p := &TextParser{}
	items, err := p.Parse(strings.NewReader(input), "ws.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items[0].Children) != 2 {
		t.Fatalf("expected 2 paragraphs, got %d", len(items[0].Children))
	}
}

func TestTextParser_EscapesMarkup(t *testing.T) {
	p := &TextParser{}
	items, err := p.Parse(strings.NewReader("a <b> & c"), "markup.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := items[0].String(); got != "<div><p>a &lt;b&gt; &amp; c</p></div>" {
		t.Errorf("unexpected html %q", got)
	}
}
