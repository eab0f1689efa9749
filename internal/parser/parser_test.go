package parser

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/link-review/backend/internal/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func TestCSVParser(t *testing.T) {
	path := writeFile(t, "links.csv", "title,link\n\"Report, final\",http://x/a.pdf\nshort\n")
	p := NewCSVParser()

	ok, err := p.CanParse(path)
	require.NoError(t, err)
	assert.True(t, ok)

	tbl, err := p.Parse(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"title", "link"}, tbl.Header)
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, []string{"Report, final", "http://x/a.pdf"}, tbl.Rows[0])
	assert.Equal(t, []string{"short"}, tbl.Rows[1], "ragged rows are kept for normalization")
}

func TestCSVParser_EmptyFile(t *testing.T) {
	path := writeFile(t, "empty.csv", "")
	_, err := NewCSVParser().Parse(context.Background(), path)
	assert.True(t, errors.Is(err, ErrEmptyFile))
}

func TestCSVParser_Cancelled(t *testing.T) {
	path := writeFile(t, "links.csv", "link\na\nb\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewCSVParser().Parse(ctx, path)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTSVParser(t *testing.T) {
	path := writeFile(t, "links.tsv", "link\tnote\nhttp://x/a.pdf\tfirst\n")
	tbl, err := NewTSVParser().Parse(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"link", "note"}, tbl.Header)
	assert.Equal(t, [][]string{{"http://x/a.pdf", "first"}}, tbl.Rows)
}

func TestDelimitedParser_Sniffing(t *testing.T) {
	tabbed := writeFile(t, "export", "link\tnote\na\tb\n")
	commas := writeFile(t, "export2", "link,note\na,b\n")

	ok, err := NewTSVParser().CanParse(tabbed)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = NewCSVParser().CanParse(tabbed)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = NewCSVParser().CanParse(commas)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = NewCSVParser().CanParse(writeFile(t, "data.parquet", "PAR1"))
	require.NoError(t, err)
	assert.False(t, ok, "known foreign extensions are not sniffed")
}

func TestRegistry_FindParser(t *testing.T) {
	r := NewRegistry(1)

	tests := []struct {
		file    string
		content string
		want    string
	}{
		{"a.csv", "link\nx\n", "csv"},
		{"a.TSV", "link\nx\n", "tsv"},
		{"a.json", "[]", "duckdb"},
		{"a.ndjson", "{}", "duckdb"},
		{"a.parquet", "PAR1", "duckdb"},
		{"noext", "link\tstatus\n", "tsv"},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			p, err := r.FindParser(writeFile(t, tt.file, tt.content))
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Name())
		})
	}

	_, err := r.FindParser(writeFile(t, "image.png", "\x89PNG"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

type staticParser struct{}

func (staticParser) Name() string { return "static" }
func (staticParser) CanParse(string) (bool, error) { return true, nil }
func (staticParser) Parse(context.Context, string) (*dataset.Table, error) {
	return &dataset.Table{Header: []string{"link"}}, nil
}

func TestRegistry_Register(t *testing.T) {
	r := &Registry{}
	_, err := r.FindParser(writeFile(t, "a.xyz", "anything"))
	assert.Error(t, err)

	r.Register(staticParser{})
	p, err := r.FindParser(writeFile(t, "a.xyz", "anything"))
	require.NoError(t, err)
	assert.Equal(t, "static", p.Name())
}

func TestDuckDBParser_JSON(t *testing.T) {
	path := writeFile(t, "links.json", `[
		{"link": "http://x/a.pdf", "title": "A"},
		{"link": "http://x/b.pdf", "title": null}
	]`)

	tbl, err := NewDuckDBParser(1).Parse(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"link", "title"}, tbl.Header)
	assert.Equal(t, [][]string{
		{"http://x/a.pdf", "A"},
		{"http://x/b.pdf", ""},
	}, tbl.Rows)
}

func TestDuckDBParser_NDJSONWithQuoteInPath(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "o'brien")
	require.NoError(t, os.MkdirAll(dir, 0755))
	path := filepath.Join(dir, "links.ndjson")
	require.NoError(t, os.WriteFile(path, []byte("{\"link\":\"a\"}\n{\"link\":\"b\"}\n"), 0644))

	tbl, err := NewDuckDBParser(1).Parse(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a"}, {"b"}}, tbl.Rows)
}

func TestCellString(t *testing.T) {
	assert.Equal(t, "", cellString(nil))
	assert.Equal(t, "x", cellString([]byte("x")))
	assert.Equal(t, "42", cellString(int64(42)))
	assert.Equal(t, "true", cellString(true))
}
