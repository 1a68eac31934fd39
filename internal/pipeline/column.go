package pipeline

import "sort"

// Asset identifies one instrument in the cross-section. The universe may
// differ from date to date; ordering is ascending lexicographic and is used
// as the deterministic tie-break everywhere ranking happens.
type Asset string

// Column is a dated mapping Asset -> Value with a single kind. It is built
// once per evaluation and treated as immutable afterwards; nothing in the
// evaluator mutates a column it did not create.
type Column struct {
	kind  Kind
	cells map[Asset]Value
}

// NewColumn creates an empty column of the given kind.
func NewColumn(kind Kind) Column {
	return Column{kind: kind, cells: make(map[Asset]Value)}
}

// NumericColumn builds a numeric column from a plain map.
func NumericColumn(vals map[Asset]float64) Column {
	c := NewColumn(KindNumeric)
	for a, f := range vals {
		c.cells[a] = Num(f)
	}
	return c
}

// BoolColumn builds a boolean column from a plain map.
func BoolColumn(vals map[Asset]bool) Column {
	c := NewColumn(KindBool)
	for a, b := range vals {
		c.cells[a] = Bool(b)
	}
	return c
}

func (c Column) Kind() Kind { return c.kind }

// Len counts all cells, nulls included.
func (c Column) Len() int { return len(c.cells) }

// Get returns the cell for an asset. Absent assets read as a null of the
// column's kind, so callers never have to distinguish absent from null.
func (c Column) Get(a Asset) Value {
	if v, ok := c.cells[a]; ok {
		return v
	}
	return Null(c.kind)
}

// Has reports whether the asset carries a cell, null or not.
func (c Column) Has(a Asset) bool {
	_, ok := c.cells[a]
	return ok
}

// Set writes one cell. Used during construction only.
func (c Column) Set(a Asset, v Value) {
	c.cells[a] = v
}

// Assets returns all assets with a cell, sorted ascending.
func (c Column) Assets() []Asset {
	out := make([]Asset, 0, len(c.cells))
	for a := range c.cells {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// TrueAssets returns the assets whose boolean cell is true, sorted ascending.
// Nulls count as false.
func (c Column) TrueAssets() []Asset {
	out := make([]Asset, 0, len(c.cells))
	for a, v := range c.cells {
		if v.Bool() {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
