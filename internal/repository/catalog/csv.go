// Package catalog loads the raw listing table from files and databases.
package catalog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/kailas-cloud/carmatch/internal/domain/dataset"
)

// CSVLoader reads a headered CSV file. Common NA tokens become null cells.
type CSVLoader struct {
	path string
}

// NewCSVLoader creates a loader for the file at path.
func NewCSVLoader(path string) *CSVLoader {
	return &CSVLoader{path: filepath.Clean(path)}
}

// Source implements usecase/catalog.Loader.
func (l *CSVLoader) Source() string { return "csv" }

// Load reads the whole file into a Frame.
func (l *CSVLoader) Load(ctx context.Context) (dataset.Frame, error) {
	f, err := os.Open(l.path)
	if err != nil {
		return dataset.Frame{}, fmt.Errorf("open %s: %w", l.path, err)
	}
	defer func() { _ = f.Close() }()

	frame, err := ReadCSV(ctx, f)
	if err != nil {
		return dataset.Frame{}, fmt.Errorf("read %s: %w", l.path, err)
	}
	return frame, nil
}

// ReadCSV parses CSV from r. The first record is the header.
// Short records are padded with null cells; records longer than the header fail.
func ReadCSV(ctx context.Context, r io.Reader) (dataset.Frame, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return dataset.Frame{}, fmt.Errorf("empty file: no header")
		}
		return dataset.Frame{}, fmt.Errorf("read header: %w", err)
	}
	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	var records [][]string
	for {
		if len(records)%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return dataset.Frame{}, fmt.Errorf("read records: %w", err)
			}
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return dataset.Frame{}, fmt.Errorf("read record %d: %w", len(records)+1, err)
		}
		if len(rec) > len(columns) {
			return dataset.Frame{}, fmt.Errorf("record %d has %d fields, header has %d",
				len(records)+1, len(rec), len(columns))
		}
		for len(rec) < len(columns) {
			rec = append(rec, "")
		}
		records = append(records, rec)
	}

	frame, err := dataset.FromRecords(columns, records)
	if err != nil {
		return dataset.Frame{}, fmt.Errorf("build frame: %w", err)
	}
	return frame, nil
}
