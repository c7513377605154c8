package types

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatasetSet(t *testing.T) {
	t.Parallel()

	t.Run("keeps insertion order and replaces in place", func(t *testing.T) {
		t.Parallel()
		d := NewDataset()
		require.NoError(t, d.Set("b", []string{"1", "2"}))
		require.NoError(t, d.Set("a", []float64{1, 2}))
		require.NoError(t, d.Set("b", []int{3, 4}))

		assert.Equal(t, []string{"b", "a"}, d.Columns())
		col, ok := d.Column("b")
		require.True(t, ok)
		assert.Equal(t, []any{3, 4}, col)
	})

	t.Run("rejects a bare string", func(t *testing.T) {
		t.Parallel()
		d := NewDataset()
		err := d.Set("name", "I am not a list")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrValidation))
		assert.Contains(t, err.Error(), `"name"`)
	})

	t.Run("rejects a map", func(t *testing.T) {
		t.Parallel()
		err := NewDataset().Set("m", map[string]any{"a": 1})
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestDatasetValidate(t *testing.T) {
	t.Parallel()

	d := NewDataset()
	require.NoError(t, d.Set("id", []string{"a", "b", "c"}))
	require.NoError(t, d.Set("v", []int{1, 2, 3}))
	require.NoError(t, d.Validate())

	require.NoError(t, d.Set("id", []string{"a", "b", "c", "extra element"}))
	err := d.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDatasetCloneIsIndependent(t *testing.T) {
	t.Parallel()

	d := NewDataset()
	require.NoError(t, d.Set("id", []string{"a", "b"}))
	require.NoError(t, d.Set("v", []int{1, 2}))

	c := d.Clone()
	_, ok := c.Delete("id")
	require.True(t, ok)
	col, _ := c.Column("v")
	col[0] = 99

	assert.Equal(t, []string{"id", "v"}, d.Columns())
	orig, _ := d.Column("v")
	assert.Equal(t, []any{1, 2}, orig)
	assert.Equal(t, []string{"v"}, c.Columns())
}

func TestDatasetApply(t *testing.T) {
	t.Parallel()

	d := NewDataset()
	require.NoError(t, d.Set("income", []string{"11456.84", "", "-666666666"}))

	require.NoError(t, d.Apply("income", "income_num", ParseFloat))
	col, ok := d.Column("income_num")
	require.True(t, ok)
	if diff := cmp.Diff([]any{11456.84, nil, -666666666.0}, col); diff != "" {
		t.Errorf("derived column mismatch (-want +got):\n%s", diff)
	}

	err := d.Apply("missing", "x", ParseFloat)
	assert.ErrorIs(t, err, ErrLookup)

	require.NoError(t, d.Set("bad", []string{"abc"}))
	err = d.Apply("bad", "bad", ParseFloat)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDatasetRow(t *testing.T) {
	t.Parallel()

	d := NewDataset()
	require.NoError(t, d.Set("id", []string{"a", "b"}))
	require.NoError(t, d.Set("v", []int{1, 2}))
	assert.Equal(t, map[string]any{"id": "b", "v": 2}, d.Row(1))
}

func TestSameValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b any
		want bool
	}{
		{name: "equal strings", a: "08001", b: "08001", want: true},
		{name: "string and int", a: "08001", b: 8001, want: false},
		{name: "int and float", a: int64(8001), b: 8001.0, want: true},
		{name: "case sensitive", a: "abc", b: "ABC", want: false},
		{name: "nil and nil", a: nil, b: nil, want: true},
		{name: "slice never equal", a: []int{1}, b: []int{1}, want: false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, SameValue(tt.a, tt.b))
		})
	}
}

func TestIndexFirstOccurrence(t *testing.T) {
	t.Parallel()

	idx := NewIndex([]any{"x", "y", "x", 3, 3.0})
	i, ok := idx.Lookup("x")
	require.True(t, ok)
	assert.Equal(t, 0, i)

	i, ok = idx.Lookup(int64(3))
	require.True(t, ok)
	assert.Equal(t, 3, i)

	_, ok = idx.Lookup("3")
	assert.False(t, ok)
}

func TestFromRows(t *testing.T) {
	t.Parallel()

	rows := [][]any{
		{"NAME", "DP03_0062E", "state", "congressional district"},
		{"District 1", "80000", "08", "01"},
		{"District 2", "90000", "08", "02"},
	}

	t.Run("keeps requested headers in order", func(t *testing.T) {
		t.Parallel()
		d, err := FromRows(rows, []string{"state", "NAME"})
		require.NoError(t, err)
		assert.Equal(t, []string{"state", "NAME"}, d.Columns())
		names, _ := d.Column("NAME")
		assert.Equal(t, []any{"District 1", "District 2"}, names)
		assert.Equal(t, 2, d.Len())
	})

	t.Run("all headers when none requested", func(t *testing.T) {
		t.Parallel()
		d, err := FromRows(rows, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"NAME", "DP03_0062E", "state", "congressional district"}, d.Columns())
	})

	t.Run("missing header", func(t *testing.T) {
		t.Parallel()
		_, err := FromRows(rows, []string{"GEO_ID"})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrLookup)
		assert.Contains(t, err.Error(), "GEO_ID")
	})

	t.Run("short row", func(t *testing.T) {
		t.Parallel()
		_, err := FromRows([][]any{{"a", "b"}, {"1"}}, nil)
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestFromJSON(t *testing.T) {
	t.Parallel()

	in := `[["NAME","B01001_001E","state"],["Colorado","5758736","08"],["Texas",29145505,"48"]]`
	d, err := FromJSON(strings.NewReader(in), []string{"NAME", "B01001_001E"})
	require.NoError(t, err)

	pop, _ := d.Column("B01001_001E")
	assert.Equal(t, []any{"5758736", 29145505.0}, pop)

	_, err = FromJSON(strings.NewReader(`{"not":"a table"}`), nil)
	assert.Error(t, err)
}
