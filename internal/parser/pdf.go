package parser

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	pdflib "github.com/ledongthuc/pdf"

	"github.com/dgallion1/boxflow/internal/flowtree"
)

// PDFParser handles PDF files. It tries the Go library first,
// then falls back to pdftotext if enabled. Every source page becomes a
// <div class="pdf-page"> of paragraphs inside one content item.
type PDFParser struct {
	FallbackPdftotext bool
}

func (p *PDFParser) Parse(r io.Reader, filename string) ([]*flowtree.Node, error) {
	// ledongthuc/pdf requires a ReadSeeker+size, so we write to a temp file.
	tmp, err := os.CreateTemp("", "boxflow-pdf-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	text, err := extractPDFText(tmpPath)
	if err != nil && p.FallbackPdftotext {
		text, err = extractPdftotext(tmpPath)
	}
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}

	return pdfItems(text), nil
}

// pdfItems builds the content item from form-feed separated page text.
func pdfItems(text string) []*flowtree.Node {
	doc := flowtree.NewElement("div")
	for i, page := range splitPages(text) {
		paras := splitParagraphs(page)
		if len(paras) == 0 {
			continue
		}
		div := flowtree.NewElement("div",
			flowtree.Attr{Key: "class", Val: "pdf-page"},
			flowtree.Attr{Key: "data-source-page", Val: fmt.Sprint(i + 1)},
		)
		for _, para := range paras {
			div.AppendChild(paragraph(para))
		}
		doc.AppendChild(div)
	}
	if len(doc.Children) == 0 {
		return nil
	}
	return []*flowtree.Node{doc}
}

func extractPDFText(path string) (string, error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var buf strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		if i > 1 {
			buf.WriteString("\f") // Form feed as page separator.
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		buf.WriteString(text)
	}
	return buf.String(), nil
}

func extractPdftotext(path string) (string, error) {
	cmd := exec.Command("pdftotext", "-layout", path, "-")
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("pdftotext: %w", err)
	}
	return string(out), nil
}

func splitPages(text string) []string {
	return strings.Split(text, "\f")
}

// splitParagraphs cuts page text at blank lines.
func splitParagraphs(page string) []string {
	var out []string
	for _, block := range strings.Split(strings.ReplaceAll(page, "\r\n", "\n"), "\n\n") {
		if b := strings.TrimSpace(block); b != "" {
			out = append(out, b)
		}
	}
	return out
}
