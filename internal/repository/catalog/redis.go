package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/kailas-cloud/carmatch/internal/db"
	"github.com/kailas-cloud/carmatch/internal/domain/dataset"
	"github.com/kailas-cloud/carmatch/internal/domain/listing"
)

// fetchBatch bounds the number of hashes fetched per pipelined round-trip.
const fetchBatch = 500

// hashStore is the consumer interface for hash-backed listings.
type hashStore interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, keys ...string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// RedisLoader reads listings stored as one hash per listing under a key prefix.
// Missing fields become null cells. When a hash has no id_listing field,
// the key suffix after the prefix is used as the identifier.
type RedisLoader struct {
	store  hashStore
	prefix string
}

// NewRedisLoader creates a loader for keys starting with prefix.
func NewRedisLoader(store hashStore, prefix string) *RedisLoader {
	return &RedisLoader{store: store, prefix: prefix}
}

// Source implements usecase/catalog.Loader.
func (l *RedisLoader) Source() string { return "redis" }

// Load scans the prefix and fetches every hash with pipelined HGETALL.
// Rows are ordered by key so repeated loads produce the same frame.
func (l *RedisLoader) Load(ctx context.Context) (dataset.Frame, error) {
	keys, err := l.store.Scan(ctx, l.prefix+"*")
	if err != nil {
		return dataset.Frame{}, fmt.Errorf("scan %s*: %w", l.prefix, err)
	}
	slices.Sort(keys)
	keys = slices.Compact(keys)

	hashes := make([]map[string]string, 0, len(keys))
	ids := make([]string, 0, len(keys))
	for start := 0; start < len(keys); start += fetchBatch {
		end := min(start+fetchBatch, len(keys))
		batch, err := l.store.HGetAllMulti(ctx, keys[start:end])
		if err != nil {
			return dataset.Frame{}, fmt.Errorf("fetch listings: %w", err)
		}
		for i, h := range batch {
			// key expired between SCAN and HGETALL
			if len(h) == 0 {
				continue
			}
			hashes = append(hashes, h)
			ids = append(ids, strings.TrimPrefix(keys[start+i], l.prefix))
		}
	}

	columns := hashColumns(hashes)
	rows := make([][]sql.NullString, len(hashes))
	for r, h := range hashes {
		row := make([]sql.NullString, len(columns))
		for c, col := range columns {
			v, ok := h[col]
			if col == listing.ColumnID && !ok {
				v, ok = ids[r], true
			}
			row[c] = sql.NullString{String: v, Valid: ok && !dataset.IsNA(v)}
		}
		rows[r] = row
	}

	frame, err := dataset.New(columns, rows)
	if err != nil {
		return dataset.Frame{}, fmt.Errorf("build frame: %w", err)
	}
	return frame, nil
}

// Save replaces the stored catalog with the frame's rows, one hash per row.
// Null cells are not written.
func (l *RedisLoader) Save(ctx context.Context, f dataset.Frame) error {
	old, err := l.store.Scan(ctx, l.prefix+"*")
	if err != nil {
		return fmt.Errorf("scan %s*: %w", l.prefix, err)
	}
	for start := 0; start < len(old); start += fetchBatch {
		end := min(start+fetchBatch, len(old))
		if err := l.store.Del(ctx, old[start:end]...); err != nil {
			return fmt.Errorf("delete old listings: %w", err)
		}
	}

	items := make([]db.HashSetItem, 0, fetchBatch)
	flush := func() error {
		if err := l.store.HSetMulti(ctx, items); err != nil {
			return fmt.Errorf("store listings: %w", err)
		}
		items = items[:0]
		return nil
	}

	for row := range f.Len() {
		fields := make(map[string]string, len(f.Columns()))
		for _, col := range f.Columns() {
			if v, ok := f.Value(row, col); ok {
				fields[col] = v
			}
		}
		id, ok := f.Value(row, listing.ColumnID)
		if !ok {
			id = strconv.Itoa(row)
			fields[listing.ColumnID] = id
		}
		items = append(items, db.HashSetItem{Key: l.prefix + id, Fields: fields})
		if len(items) == fetchBatch {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	return flush()
}

// hashColumns returns id_listing and the feature columns in canonical order,
// followed by any other fields sorted by name.
func hashColumns(hashes []map[string]string) []string {
	known := make(map[string]bool, len(listing.FeatureColumns)+1)
	columns := []string{listing.ColumnID}
	known[listing.ColumnID] = true

	present := make(map[string]bool)
	for _, h := range hashes {
		for k := range h {
			present[k] = true
		}
	}
	for _, c := range listing.FeatureColumns {
		known[c] = true
		if present[c] {
			columns = append(columns, c)
		}
	}

	var extra []string
	for k := range present {
		if !known[k] {
			extra = append(extra, k)
		}
	}
	slices.Sort(extra)
	return append(columns, extra...)
}
