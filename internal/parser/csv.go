package parser

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/link-review/backend/internal/dataset"
)

// DelimitedParser handles comma or tab separated text files.
type DelimitedParser struct {
	name       string
	comma      rune
	extensions []string
}

// NewCSVParser returns a parser for comma separated files.
func NewCSVParser() *DelimitedParser {
	return &DelimitedParser{name: "csv", comma: ',', extensions: []string{".csv", ".txt"}}
}

// NewTSVParser returns a parser for tab separated files.
func NewTSVParser() *DelimitedParser {
	return &DelimitedParser{name: "tsv", comma: '\t', extensions: []string{".tsv", ".tab"}}
}

func (p *DelimitedParser) Name() string {
	return p.name
}

// CanParse accepts known extensions; files with any other extension are
// sniffed for the delimiter on their first line.
func (p *DelimitedParser) CanParse(filePath string) (bool, error) {
	ext := extension(filePath)
	for _, e := range p.extensions {
		if ext == e {
			return true, nil
		}
	}
	if isKnownExtension(ext) {
		return false, nil
	}

	line, err := firstLine(filePath)
	if err != nil {
		return false, err
	}
	return strings.ContainsRune(line, p.comma), nil
}

func (p *DelimitedParser) Parse(ctx context.Context, filePath string) (*dataset.Table, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = p.comma
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	table := &dataset.Table{Header: header}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row: %w", err)
		}
		table.Rows = append(table.Rows, rec)
	}
	return table, nil
}
