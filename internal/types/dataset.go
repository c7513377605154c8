package types

import (
	"fmt"
	"strings"
)

// Dataset is an in-memory columnar table. Columns keep the order in which they
// were first set and every column is expected to hold the same number of
// values; index i across all columns describes one record.
type Dataset struct {
	names  []string
	values map[string][]any
}

// NewDataset returns an empty dataset.
func NewDataset() *Dataset {
	return &Dataset{values: make(map[string][]any)}
}

// Set adds or replaces a whole column. values must be a slice of scalars;
// anything else (a bare string, a map, a number) is rejected with ErrValidation.
func (d *Dataset) Set(name string, values any) error {
	col, err := toColumn(values)
	if err != nil {
		return fmt.Errorf("%w: column %q: %v", ErrValidation, name, err)
	}
	if d.values == nil {
		d.values = make(map[string][]any)
	}
	if _, ok := d.values[name]; !ok {
		d.names = append(d.names, name)
	}
	d.values[name] = col
	return nil
}

// Column returns the values of the named column.
func (d *Dataset) Column(name string) ([]any, bool) {
	col, ok := d.values[name]
	return col, ok
}

// Has reports whether the dataset holds the named column.
func (d *Dataset) Has(name string) bool {
	_, ok := d.values[name]
	return ok
}

// Columns returns the column names in insertion order.
func (d *Dataset) Columns() []string {
	out := make([]string, len(d.names))
	copy(out, d.names)
	return out
}

// Len returns the number of records, taken from the first column.
func (d *Dataset) Len() int {
	if len(d.names) == 0 {
		return 0
	}
	return len(d.values[d.names[0]])
}

// Delete removes a column and returns its values.
func (d *Dataset) Delete(name string) ([]any, bool) {
	col, ok := d.values[name]
	if !ok {
		return nil, false
	}
	delete(d.values, name)
	for i, n := range d.names {
		if n == name {
			d.names = append(d.names[:i], d.names[i+1:]...)
			break
		}
	}
	return col, true
}

// Clone returns a deep copy; mutating the copy never affects d.
func (d *Dataset) Clone() *Dataset {
	out := &Dataset{
		names:  make([]string, len(d.names)),
		values: make(map[string][]any, len(d.values)),
	}
	copy(out.names, d.names)
	for name, col := range d.values {
		c := make([]any, len(col))
		copy(c, col)
		out.values[name] = c
	}
	return out
}

// Validate checks that every column has the same length.
func (d *Dataset) Validate() error {
	if len(d.names) == 0 {
		return nil
	}
	want := len(d.values[d.names[0]])
	for _, name := range d.names[1:] {
		if got := len(d.values[name]); got != want {
			return fmt.Errorf("%w: column %q has %d values, column %q has %d; all columns must be the same length",
				ErrValidation, name, got, d.names[0], want)
		}
	}
	return nil
}

// Apply derives column dst from column src by calling fn on every value.
// dst may equal src, in which case the column is replaced in place.
func (d *Dataset) Apply(src, dst string, fn func(v any) (any, error)) error {
	col, ok := d.values[src]
	if !ok {
		return fmt.Errorf("%w: column %q not found in dataset columns [%s]", ErrLookup, src, strings.Join(d.names, ", "))
	}
	out := make([]any, len(col))
	for i, v := range col {
		nv, err := fn(v)
		if err != nil {
			return fmt.Errorf("column %q row %d: %w", src, i, err)
		}
		out[i] = nv
	}
	return d.Set(dst, out)
}

// Row returns the values of record i keyed by column name.
func (d *Dataset) Row(i int) map[string]any {
	row := make(map[string]any, len(d.names))
	for _, name := range d.names {
		if col := d.values[name]; i < len(col) {
			row[name] = col[i]
		}
	}
	return row
}

func toColumn(values any) ([]any, error) {
	switch v := values.(type) {
	case []any:
		out := make([]any, len(v))
		copy(out, v)
		return out, nil
	case []string:
		return convert(v), nil
	case []float64:
		return convert(v), nil
	case []int:
		return convert(v), nil
	case []int64:
		return convert(v), nil
	case []bool:
		return convert(v), nil
	default:
		return nil, fmt.Errorf("expected a sequence of values, got %T", values)
	}
}

func convert[T any](in []T) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
