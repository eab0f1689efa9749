// Package parser reads uploaded spreadsheet-like files into raw tables.
package parser

import (
	"bufio"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/link-review/backend/internal/dataset"
)

// ErrEmptyFile is returned when an upload has no header row.
var ErrEmptyFile = errors.New("file is empty")

// Parser defines the interface for tabular file readers.
type Parser interface {
	// Name returns the unique name of the parser.
	Name() string
	// CanParse returns true if this parser can handle the given file.
	CanParse(filePath string) (bool, error)
	// Parse reads the whole file into a header and rows.
	Parse(ctx context.Context, filePath string) (*dataset.Table, error)
}

// extension returns the lower-cased extension of a path.
func extension(filePath string) string {
	return strings.ToLower(filepath.Ext(filePath))
}

// firstLine returns the first non-empty line of a file.
func firstLine(filePath string) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			return line, nil
		}
	}
	return "", scanner.Err()
}
