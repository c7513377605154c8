package types

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// FromRows builds a dataset from a table whose first row holds the header
// names, keeping only the requested headers in the requested order. When
// headers is empty every column is kept. This is the shape of Census API
// responses.
func FromRows(rows [][]any, headers []string) (*Dataset, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: table has no header row", ErrValidation)
	}

	all := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		s, ok := h.(string)
		if !ok {
			return nil, fmt.Errorf("%w: header %d is %T, want string", ErrValidation, i, h)
		}
		all[i] = s
	}
	if len(headers) == 0 {
		headers = all
	}

	indexes := make([]int, len(headers))
	for i, h := range headers {
		indexes[i] = -1
		for j, name := range all {
			if name == h {
				indexes[i] = j
				break
			}
		}
		if indexes[i] < 0 {
			return nil, fmt.Errorf("%w: header %q not found in %v", ErrLookup, h, all)
		}
	}

	cols := make([][]any, len(headers))
	for i := range cols {
		cols[i] = make([]any, 0, len(rows)-1)
	}
	for r, row := range rows[1:] {
		if len(row) < len(all) {
			return nil, fmt.Errorf("%w: row %d has %d cells, header has %d", ErrValidation, r+1, len(row), len(all))
		}
		for i, j := range indexes {
			cols[i] = append(cols[i], row[j])
		}
	}

	d := NewDataset()
	for i, h := range headers {
		if err := d.Set(h, cols[i]); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// FromJSON decodes a JSON array-of-arrays and passes it to FromRows.
func FromJSON(r io.Reader, headers []string) (*Dataset, error) {
	var rows [][]any
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode table: %w", err)
	}
	return FromRows(rows, headers)
}

// ReadJSONFile reads a cached Census-style JSON table from disk.
func ReadJSONFile(path string, headers []string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	d, err := FromJSON(f, headers)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}
