// Package linear serves predictions from a linear model artifact stored as YAML.
//
// An artifact looks like:
//
//	name: price
//	version: "2024-05-01"
//	intercept: -9500.0
//	numeric:
//	  tahun: 4.9
//	  kilometer: -0.0004
//	categorical:
//	  merk:
//	    Toyota: 12.5
//	    Honda: 9.0
//	clip:
//	  min: 0
//
// The prediction is intercept + sum(weight * numeric value) + sum(weight of the
// row's category per column), optionally clipped. Unknown categories contribute 0.
package linear

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/carmatch/internal/domain/listing"
)

// Clip bounds a prediction; nil bounds are open.
type Clip struct {
	Min *float64 `yaml:"min"`
	Max *float64 `yaml:"max"`
}

// Model is a loaded linear artifact.
type Model struct {
	Name        string                        `yaml:"name"`
	Version     string                        `yaml:"version"`
	Intercept   float64                       `yaml:"intercept"`
	Numeric     map[string]float64            `yaml:"numeric"`
	Categorical map[string]map[string]float64 `yaml:"categorical"`
	Clip        *Clip                         `yaml:"clip"`

	// weights in feature-column order, so sums are bit-for-bit repeatable
	numericTerms     []numericTerm
	categoricalTerms []categoricalTerm
}

type numericTerm struct {
	column string
	weight float64
}

// categoricalTerm holds a column's weights keyed by lower-cased trimmed value.
type categoricalTerm struct {
	column  string
	weights map[string]float64
}

// Load reads and validates an artifact file.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model %s: %w", path, err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", path, err)
	}
	return m, nil
}

// Parse decodes and validates an artifact.
func Parse(data []byte) (*Model, error) {
	var m Model
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	m.fold()
	return &m, nil
}

// Validate checks that every weight names a known feature column of the right kind.
func (m *Model) Validate() error {
	var errs []error
	if m.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if !finite(m.Intercept) {
		errs = append(errs, errors.New("intercept must be finite"))
	}
	for col, w := range m.Numeric {
		if !listing.IsNumeric(col) || !isFeature(col) {
			errs = append(errs, fmt.Errorf("numeric weight for non-numeric feature %q", col))
		}
		if !finite(w) {
			errs = append(errs, fmt.Errorf("numeric weight %q must be finite", col))
		}
	}
	for col, values := range m.Categorical {
		if listing.IsNumeric(col) || !isFeature(col) {
			errs = append(errs, fmt.Errorf("categorical weights for non-text feature %q", col))
		}
		for v, w := range values {
			if !finite(w) {
				errs = append(errs, fmt.Errorf("categorical weight %s=%q must be finite", col, v))
			}
		}
	}
	if m.Clip != nil && m.Clip.Min != nil && m.Clip.Max != nil && *m.Clip.Min > *m.Clip.Max {
		errs = append(errs, fmt.Errorf("clip.min %v > clip.max %v", *m.Clip.Min, *m.Clip.Max))
	}
	return errors.Join(errs...)
}

func (m *Model) fold() {
	m.numericTerms = m.numericTerms[:0]
	m.categoricalTerms = m.categoricalTerms[:0]
	for _, col := range listing.FeatureColumns {
		if w, ok := m.Numeric[col]; ok {
			m.numericTerms = append(m.numericTerms, numericTerm{column: col, weight: w})
		}
		values, ok := m.Categorical[col]
		if !ok {
			continue
		}
		f := make(map[string]float64, len(values))
		for v, w := range values {
			f[normalize(v)] = w
		}
		m.categoricalTerms = append(m.categoricalTerms, categoricalTerm{column: col, weights: f})
	}
}

// Predict scores each row; output length always equals input length.
func (m *Model) Predict(ctx context.Context, rows []listing.Features) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err //nolint:wrapcheck // context errors pass through
	}
	out := make([]float64, len(rows))
	for i := range rows {
		out[i] = m.score(&rows[i])
	}
	return out, nil
}

func (m *Model) score(row *listing.Features) float64 {
	y := m.Intercept
	for _, t := range m.numericTerms {
		if v, ok := row.Numeric(t.column); ok {
			y += t.weight * v
		}
	}
	for _, t := range m.categoricalTerms {
		if v, ok := row.Text(t.column); ok {
			y += t.weights[normalize(v)]
		}
	}
	if m.Clip != nil {
		if m.Clip.Min != nil {
			y = math.Max(y, *m.Clip.Min)
		}
		if m.Clip.Max != nil {
			y = math.Min(y, *m.Clip.Max)
		}
	}
	return y
}

func isFeature(col string) bool {
	for _, c := range listing.FeatureColumns {
		if c == col {
			return true
		}
	}
	return false
}

func normalize(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
