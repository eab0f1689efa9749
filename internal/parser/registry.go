package parser

import (
	"errors"
	"fmt"
)

// ErrUnsupportedFormat is returned when no parser accepts a file.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// Registry holds all available parsers and provides auto-detection.
type Registry struct {
	parsers []Parser
}

// NewRegistry returns a registry with the built-in parsers. Extension-bound
// parsers come first so the delimiter sniffing only sees unknown extensions.
func NewRegistry(duckThreads int) *Registry {
	return &Registry{
		parsers: []Parser{
			NewDuckDBParser(duckThreads),
			NewTSVParser(),
			NewCSVParser(),
		},
	}
}

// Register adds a new parser to the registry.
func (r *Registry) Register(p Parser) {
	r.parsers = append(r.parsers, p)
}

// FindParser detects the correct parser for a file.
func (r *Registry) FindParser(filePath string) (Parser, error) {
	for _, p := range r.parsers {
		can, err := p.CanParse(filePath)
		if err != nil {
			continue
		}
		if can {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filePath)
}

// Extensions lists the file extensions accepted without sniffing.
func Extensions() []string {
	return []string{".csv", ".txt", ".tsv", ".tab", ".parquet", ".json", ".jsonl", ".ndjson", ".gz"}
}

func isKnownExtension(ext string) bool {
	for _, e := range Extensions() {
		if e == ext {
			return true
		}
	}
	return false
}
