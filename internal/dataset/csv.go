package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

// FromCSV loads a dataset from a CSV file. The first row is the header
// (column names); every other cell must parse as a float64.
func FromCSV(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("dataset: read %s: %w", path, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("dataset: %s has no data rows", path)
	}

	header := records[0]
	cols := make(map[string][]float64, len(header))
	for _, name := range header {
		if name == "" {
			return nil, fmt.Errorf("dataset: %s has an empty column name", path)
		}
		if _, dup := cols[name]; dup {
			return nil, fmt.Errorf("dataset: %s has duplicate column %q", path, name)
		}
		cols[name] = make([]float64, 0, len(records)-1)
	}

	for i, rec := range records[1:] {
		if len(rec) != len(header) {
			return nil, fmt.Errorf("dataset: %s row %d has %d fields, want %d", path, i+2, len(rec), len(header))
		}
		for j, cell := range rec {
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("dataset: %s row %d column %q: %w", path, i+2, header[j], err)
			}
			cols[header[j]] = append(cols[header[j]], v)
		}
	}

	return New(cols, header)
}

// WriteCSV writes the dataset to a CSV file with a header row, columns in
// dataset order.
func (d *Dataset) WriteCSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("dataset: create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(d.order); err != nil {
		return fmt.Errorf("dataset: write header: %w", err)
	}

	rec := make([]string, len(d.order))
	for i := 0; i < d.n; i++ {
		for j, name := range d.order {
			rec[j] = strconv.FormatFloat(d.cols[name][i], 'g', -1, 64)
		}
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("dataset: write row %d: %w", i, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("dataset: flush %s: %w", path, err)
	}
	return nil
}
