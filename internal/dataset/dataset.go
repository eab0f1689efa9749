// Package dataset holds the tabular link list under review.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/link-review/backend/internal/models"
)

const (
	// LinkColumn is the required column identifying each row.
	LinkColumn = "link"
	// StatusColumn is appended when an upload has no status column.
	StatusColumn = "status"
)

// ErrMissingLinkColumn is returned when the header has no link column.
var ErrMissingLinkColumn = errors.New("'link' column not found")

// Table is a raw header plus rows as produced by a parser.
type Table struct {
	Header []string
	Rows   [][]string
}

// Dataset is a normalized table: unique links and a status column.
type Dataset struct {
	Columns []string
	Rows    [][]string

	linkCol   int
	statusCol int
}

// NormalizeResult reports what normalization changed.
type NormalizeResult struct {
	Duplicates    int // rows dropped because their link was already seen
	ResetStatuses int // unrecognized status values reset to pending
}

// Normalize turns a raw table into a Dataset. Rows whose link duplicates an
// earlier row are dropped, keeping the first occurrence in order.
func Normalize(t *Table) (*Dataset, NormalizeResult, error) {
	var res NormalizeResult

	cols := cleanHeader(t.Header)
	linkCol := indexOf(cols, LinkColumn)
	if linkCol < 0 {
		return nil, res, ErrMissingLinkColumn
	}

	statusCol := indexOfFold(cols, StatusColumn)
	if statusCol < 0 {
		cols = append(cols, StatusColumn)
		statusCol = len(cols) - 1
	}

	seen := make(map[string]struct{}, len(t.Rows))
	rows := make([][]string, 0, len(t.Rows))
	for _, raw := range t.Rows {
		row := padRow(raw, len(cols))
		link := row[linkCol]
		if _, dup := seen[link]; dup {
			res.Duplicates++
			continue
		}
		seen[link] = struct{}{}

		st, err := models.ParseStatus(row[statusCol])
		if err != nil {
			res.ResetStatuses++
		}
		row[statusCol] = string(st)
		rows = append(rows, row)
	}

	return &Dataset{
		Columns:   cols,
		Rows:      rows,
		linkCol:   linkCol,
		statusCol: statusCol,
	}, res, nil
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	return len(d.Rows)
}

// Link returns the link of row i.
func (d *Dataset) Link(i int) string {
	return d.Rows[i][d.linkCol]
}

// Status returns the status of row i. Unknown values read as pending.
func (d *Dataset) Status(i int) models.Status {
	st, _ := models.ParseStatus(d.Rows[i][d.statusCol])
	return st
}

// SetStatus records a decision for row i.
func (d *Dataset) SetStatus(i int, st models.Status) error {
	if i < 0 || i >= len(d.Rows) {
		return fmt.Errorf("row %d out of range [0, %d)", i, len(d.Rows))
	}
	d.Rows[i][d.statusCol] = string(st)
	return nil
}

// Counts tallies statuses over all rows.
func (d *Dataset) Counts() models.Counts {
	var c models.Counts
	for i := range d.Rows {
		c.Add(d.Status(i))
	}
	return c
}

// DisplayName derives a short name for a link: its last path element,
// without query string or fragment.
func DisplayName(link string) string {
	s := strings.TrimSpace(link)
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimRight(strings.ReplaceAll(s, "\\", "/"), "/")
	if s == "" {
		return link
	}
	return path.Base(s)
}

// Read parses a normalized dataset previously written with Write.
func Read(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading dataset: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrMissingLinkColumn
	}

	cols := cleanHeader(records[0])
	linkCol := indexOf(cols, LinkColumn)
	if linkCol < 0 {
		return nil, ErrMissingLinkColumn
	}
	statusCol := indexOfFold(cols, StatusColumn)
	if statusCol < 0 {
		cols = append(cols, StatusColumn)
		statusCol = len(cols) - 1
	}

	rows := make([][]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		rows = append(rows, padRow(rec, len(cols)))
	}
	return &Dataset{Columns: cols, Rows: rows, linkCol: linkCol, statusCol: statusCol}, nil
}

// Write serializes the dataset as CSV with a header row.
func (d *Dataset) Write(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(d.Columns); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if err := cw.WriteAll(d.Rows); err != nil {
		return fmt.Errorf("writing rows: %w", err)
	}
	return nil
}

func cleanHeader(header []string) []string {
	cols := make([]string, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		cols[i] = strings.TrimSpace(h)
	}
	return cols
}

func padRow(row []string, n int) []string {
	out := make([]string, n)
	copy(out, row)
	return out
}

func indexOf(cols []string, name string) int {
	for i, c := range cols {
		if c == name {
			return i
		}
	}
	return -1
}

func indexOfFold(cols []string, name string) int {
	if i := indexOf(cols, name); i >= 0 {
		return i
	}
	for i, c := range cols {
		if strings.EqualFold(c, name) {
			return i
		}
	}
	return -1
}
