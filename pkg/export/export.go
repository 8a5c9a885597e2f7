// Package export renders ranked tables as downloadable documents.
package export

import (
	"fmt"
	"strings"
)

// Format names a supported document type.
type Format string

const (
	FormatCSV Format = "csv"
	FormatPDF Format = "pdf"
)

// Table is the tabular content to export. Rows follow the order of Columns.
type Table struct {
	Title   string
	Columns []string
	Rows    [][]string
}

// Renderer encodes a Table into a document.
type Renderer interface {
	Render(table Table) ([]byte, error)
	ContentType() string
	Extension() string
}

// ParseFormat normalises user input; empty defaults to CSV.
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatPDF:
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", raw)
	}
}

// ForFormat returns the renderer for f.
func ForFormat(f Format) Renderer {
	if f == FormatPDF {
		return NewPDFExporter()
	}
	return NewCSVExporter()
}

func validate(table Table) error {
	if len(table.Columns) == 0 {
		return fmt.Errorf("export requires at least one column")
	}
	for i, row := range table.Rows {
		if len(row) != len(table.Columns) {
			return fmt.Errorf("row %d has %d cells, want %d", i, len(row), len(table.Columns))
		}
	}
	return nil
}
