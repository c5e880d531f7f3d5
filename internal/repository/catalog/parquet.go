package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	"github.com/kailas-cloud/carmatch/internal/domain/dataset"
)

// readBatch is the number of rows buffered per ReadRows call.
const readBatch = 1000

// ParquetLoader reads flat columns of a parquet file through the generic row reader.
// Null values become null cells; nested columns are ignored.
type ParquetLoader struct {
	path string
}

// NewParquetLoader creates a loader for the file at path.
func NewParquetLoader(path string) *ParquetLoader {
	return &ParquetLoader{path: filepath.Clean(path)}
}

// Source implements usecase/catalog.Loader.
func (l *ParquetLoader) Source() string { return "parquet" }

// Load reads every row group into a Frame.
func (l *ParquetLoader) Load(ctx context.Context) (dataset.Frame, error) {
	f, err := os.Open(l.path)
	if err != nil {
		return dataset.Frame{}, fmt.Errorf("open %s: %w", l.path, err)
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		return dataset.Frame{}, fmt.Errorf("stat %s: %w", l.path, err)
	}

	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		return dataset.Frame{}, fmt.Errorf("open parquet %s: %w", l.path, err)
	}

	columns, leaf := flatColumns(pf)

	var rows [][]sql.NullString
	for _, rg := range pf.RowGroups() {
		if err := ctx.Err(); err != nil {
			return dataset.Frame{}, fmt.Errorf("read %s: %w", l.path, err)
		}
		rows, err = readRowGroup(rg, leaf, len(columns), rows)
		if err != nil {
			return dataset.Frame{}, fmt.Errorf("read %s: %w", l.path, err)
		}
	}

	frame, err := dataset.New(columns, rows)
	if err != nil {
		return dataset.Frame{}, fmt.Errorf("build frame: %w", err)
	}
	return frame, nil
}

// flatColumns maps leaf column indexes of top-level fields to frame positions.
func flatColumns(pf *parquet.File) ([]string, map[int]int) {
	var columns []string
	leaf := make(map[int]int)
	for i, path := range pf.Schema().Columns() {
		if len(path) != 1 {
			continue
		}
		leaf[i] = len(columns)
		columns = append(columns, path[0])
	}
	return columns, leaf
}

func readRowGroup(
	rg parquet.RowGroup, leaf map[int]int, width int, out [][]sql.NullString,
) ([][]sql.NullString, error) {
	reader := parquet.NewRowGroupReader(rg)
	buf := make([]parquet.Row, readBatch)

	for {
		n, readErr := reader.ReadRows(buf)
		for _, row := range buf[:n] {
			cells := make([]sql.NullString, width)
			for _, v := range row {
				pos, ok := leaf[v.Column()]
				if !ok || v.IsNull() {
					continue
				}
				cells[pos] = sql.NullString{String: v.String(), Valid: true}
			}
			out = append(out, cells)
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return out, nil
			}
			return nil, fmt.Errorf("read rows: %w", readErr)
		}
	}
}
