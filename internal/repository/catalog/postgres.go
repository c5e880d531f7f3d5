package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/kailas-cloud/carmatch/internal/domain/dataset"
)

// PostgresLoader reads every row of a listings table. SQL NULL becomes a null cell.
type PostgresLoader struct {
	db    *sqlx.DB
	table string
}

// NewPostgresLoader creates a loader for table, optionally schema-qualified ("public.listings").
func NewPostgresLoader(db *sqlx.DB, table string) *PostgresLoader {
	return &PostgresLoader{db: db, table: table}
}

// Source implements usecase/catalog.Loader.
func (l *PostgresLoader) Source() string { return "postgres" }

// Load selects all columns and rows as text.
func (l *PostgresLoader) Load(ctx context.Context) (dataset.Frame, error) {
	query := "SELECT * FROM " + quoteTable(l.table)

	rows, err := l.db.QueryxContext(ctx, query)
	if err != nil {
		return dataset.Frame{}, fmt.Errorf("query %s: %w", l.table, err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return dataset.Frame{}, fmt.Errorf("columns: %w", err)
	}

	var out [][]sql.NullString
	for rows.Next() {
		cells := make([]sql.NullString, len(columns))
		dest := make([]any, len(columns))
		for i := range cells {
			dest[i] = &cells[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return dataset.Frame{}, fmt.Errorf("scan row %d: %w", len(out), err)
		}
		out = append(out, cells)
	}
	if err := rows.Err(); err != nil {
		return dataset.Frame{}, fmt.Errorf("iterate rows: %w", err)
	}

	frame, err := dataset.New(columns, out)
	if err != nil {
		return dataset.Frame{}, fmt.Errorf("build frame: %w", err)
	}
	return frame, nil
}

// quoteTable quotes each dot-separated part of a table name.
func quoteTable(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = pq.QuoteIdentifier(p)
	}
	return strings.Join(parts, ".")
}
