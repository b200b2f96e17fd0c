// Package dataset provides the immutable column table shared read-only by
// every estimation component. Constructors copy data in and accessors copy
// data out, so no caller can mutate another caller's view.
package dataset

import (
	"fmt"
	"math"
)

// Dataset is an immutable table of named float64 columns of equal length.
// One column holds the outcome, one the binary treatment, and the rest are
// covariates. The Dataset itself is role-agnostic; estimator configs name
// the roles.
type Dataset struct {
	n     int
	order []string
	cols  map[string][]float64
}

// New builds a Dataset from named columns. The order slice fixes column
// order for Names, CSV output and tie-breaking in rankings; it must list
// every column exactly once. All columns must have equal, non-zero length
// and contain only finite values.
func New(cols map[string][]float64, order []string) (*Dataset, error) {
	if len(cols) == 0 {
		return nil, fmt.Errorf("dataset: no columns")
	}
	if len(order) != len(cols) {
		return nil, fmt.Errorf("dataset: order lists %d names for %d columns", len(order), len(cols))
	}

	seen := make(map[string]bool, len(order))
	n := -1
	copied := make(map[string][]float64, len(cols))
	for _, name := range order {
		col, ok := cols[name]
		if !ok {
			return nil, fmt.Errorf("dataset: order names unknown column %q", name)
		}
		if seen[name] {
			return nil, fmt.Errorf("dataset: duplicate column %q in order", name)
		}
		seen[name] = true

		if n == -1 {
			n = len(col)
			if n == 0 {
				return nil, fmt.Errorf("dataset: column %q is empty", name)
			}
		} else if len(col) != n {
			return nil, fmt.Errorf("dataset: column %q has %d rows, want %d", name, len(col), n)
		}
		for i, v := range col {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("dataset: column %q row %d is not finite", name, i)
			}
		}
		copied[name] = append([]float64(nil), col...)
	}

	return &Dataset{
		n:     n,
		order: append([]string(nil), order...),
		cols:  copied,
	}, nil
}

// Len returns the number of rows.
func (d *Dataset) Len() int { return d.n }

// Names returns the column names in dataset order.
func (d *Dataset) Names() []string {
	return append([]string(nil), d.order...)
}

// Has reports whether the dataset contains the named column.
func (d *Dataset) Has(name string) bool {
	_, ok := d.cols[name]
	return ok
}

// Column returns a copy of the named column.
func (d *Dataset) Column(name string) ([]float64, error) {
	col, ok := d.cols[name]
	if !ok {
		return nil, fmt.Errorf("dataset: unknown column %q", name)
	}
	return append([]float64(nil), col...), nil
}

// Matrix returns a row-major feature matrix for the named columns, one row
// per dataset row. The matrix is a fresh copy on every call.
func (d *Dataset) Matrix(names []string) ([][]float64, error) {
	src := make([][]float64, len(names))
	for j, name := range names {
		col, ok := d.cols[name]
		if !ok {
			return nil, fmt.Errorf("dataset: unknown column %q", name)
		}
		src[j] = col
	}

	m := make([][]float64, d.n)
	for i := 0; i < d.n; i++ {
		row := make([]float64, len(names))
		for j := range names {
			row[j] = src[j][i]
		}
		m[i] = row
	}
	return m, nil
}

// CheckBinary verifies that every value of the named column is exactly 0 or 1.
// Treatment columns must pass this before estimation.
func (d *Dataset) CheckBinary(name string) error {
	col, ok := d.cols[name]
	if !ok {
		return fmt.Errorf("dataset: unknown column %q", name)
	}
	for i, v := range col {
		if v != 0 && v != 1 {
			return fmt.Errorf("dataset: column %q row %d = %g, want 0 or 1", name, i, v)
		}
	}
	return nil
}

// Covariates returns the column names in dataset order with the named
// outcome and treatment removed.
func (d *Dataset) Covariates(outcome, treatment string) []string {
	out := make([]string, 0, len(d.order))
	for _, name := range d.order {
		if name == outcome || name == treatment {
			continue
		}
		out = append(out, name)
	}
	return out
}
