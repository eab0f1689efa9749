package parser

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"github.com/link-review/backend/internal/dataset"
	"github.com/marcboeker/go-duckdb"
)

// duckFunctions maps file extensions to the DuckDB table function reading them.
var duckFunctions = map[string]string{
	".parquet": "read_parquet",
	".json":    "read_json_auto",
	".jsonl":   "read_json_auto",
	".ndjson":  "read_json_auto",
}

// DuckDBParser reads Parquet and JSON uploads through an in-memory DuckDB.
type DuckDBParser struct {
	threads int
}

// NewDuckDBParser creates a parser that limits DuckDB to the given thread count.
func NewDuckDBParser(threads int) *DuckDBParser {
	if threads <= 0 {
		threads = 1
	}
	return &DuckDBParser{threads: threads}
}

func (p *DuckDBParser) Name() string {
	return "duckdb"
}

func (p *DuckDBParser) CanParse(filePath string) (bool, error) {
	_, ok := duckFunctions[extension(filePath)]
	return ok, nil
}

func (p *DuckDBParser) Parse(ctx context.Context, filePath string) (*dataset.Table, error) {
	fn, ok := duckFunctions[extension(filePath)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filePath)
	}

	connector, err := duckdb.NewConnector("", func(execer driver.ExecerContext) error {
		pragmas := []string{
			fmt.Sprintf("PRAGMA threads=%d", p.threads),
			"PRAGMA enable_progress_bar=false",
		}
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(ctx, pragma, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create DuckDB connector: %w", err)
	}
	db := sql.OpenDB(connector)
	defer db.Close()

	query := fmt.Sprintf("SELECT * FROM %s(%s)", fn, quoteLiteral(filePath))
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", fn, err)
	}
	defer rows.Close()

	header, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	if len(header) == 0 {
		return nil, ErrEmptyFile
	}

	table := &dataset.Table{Header: header}
	vals := make([]any, len(header))
	ptrs := make([]any, len(header))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		rec := make([]string, len(vals))
		for i, v := range vals {
			rec[i] = cellString(v)
		}
		table.Rows = append(table.Rows, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return table, nil
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func cellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case time.Time:
		return x.Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}
