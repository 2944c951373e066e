package parser

import (
	"bufio"
	"io"
	"strings"

	"github.com/dgallion1/boxflow/internal/flowtree"
)

// TextParser handles plain text files.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) ([]*flowtree.Node, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var paragraphs []string
	var current strings.Builder

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			if current.Len() > 0 {
				paragraphs = append(paragraphs, current.String())
				current.Reset()
			}
		} else {
			if current.Len() > 0 {
				current.WriteString("\n")
			}
			current.WriteString(line)
		}
	}
	if current.Len() > 0 {
		paragraphs = append(paragraphs, current.String())
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(paragraphs) == 0 {
		return nil, nil
	}

	// Each paragraph becomes a <p> of one content item.
	div := flowtree.NewElement("div")
	for _, para := range paragraphs {
		div.AppendChild(paragraph(para))
	}
	return []*flowtree.Node{div}, nil
}
