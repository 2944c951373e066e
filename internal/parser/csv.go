package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/boxflow/internal/flowtree"
)

// CSVParser handles CSV files. The header row becomes a heading paragraph and
// every data row a paragraph of "header: cell" pairs.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader, filename string) ([]*flowtree.Node, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	// First row is headers.
	headers := records[0]
	div := flowtree.NewElement("div", flowtree.Attr{Key: "class", Val: "csv"})
	head := paragraph(strings.Join(headers, ", "))
	head.AddClass("csv-header")
	div.AppendChild(head)

	for _, row := range records[1:] {
		var text strings.Builder
		for j, cell := range row {
			if j < len(headers) {
				text.WriteString(headers[j] + ": " + cell)
			} else {
				text.WriteString(cell)
			}
			if j < len(row)-1 {
				text.WriteString(", ")
			}
		}
		div.AppendChild(paragraph(text.String()))
	}

	return []*flowtree.Node{div}, nil
}
