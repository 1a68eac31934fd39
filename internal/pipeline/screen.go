package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// Output is one named column a pipeline reports for surviving assets.
type Output struct {
	Name string
	Term *Term
}

// Pipeline is a named set of output terms plus exactly one boolean screen.
// Outputs evaluate under their own masks, independent of the screen; the
// screen then decides which assets appear in the result at all.
type Pipeline struct {
	Name    string
	Screen  *Term
	Outputs []Output
}

// NewPipeline creates a pipeline around a screen filter.
func NewPipeline(name string, screen Filter) *Pipeline {
	return &Pipeline{Name: name, Screen: screen.Term()}
}

// AddFactor attaches a numeric output column.
func (p *Pipeline) AddFactor(name string, f Factor) *Pipeline {
	p.Outputs = append(p.Outputs, Output{Name: name, Term: f.Term()})
	return p
}

// AddFilter attaches a boolean output column.
func (p *Pipeline) AddFilter(name string, f Filter) *Pipeline {
	p.Outputs = append(p.Outputs, Output{Name: name, Term: f.Term()})
	return p
}

// ResultTable holds one date's surviving assets and their output values.
// It is created fresh per evaluation and never persisted by the kernel.
type ResultTable struct {
	Date    time.Time
	Columns []string
	Rows    map[Asset]map[string]Value
}

// AssetsSorted returns surviving assets in ascending order.
func (r *ResultTable) AssetsSorted() []Asset {
	out := make([]Asset, 0, len(r.Rows))
	for a := range r.Rows {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// EvaluateDate runs the pipeline for one date. Assets survive iff the screen
// evaluates true; an asset lacking a value for some output (because it sits
// outside that output's own mask) keeps its row with that field null.
func EvaluateDate(ctx context.Context, src Source, p *Pipeline, date time.Time) (*ResultTable, error) {
	if p.Screen == nil {
		return nil, fmt.Errorf("pipeline %q has no screen", p.Name)
	}
	ev := NewEvaluator(src, date)

	screenCol, err := ev.Eval(ctx, p.Screen)
	if err != nil {
		return nil, fmt.Errorf("screen %q: %w", p.Name, err)
	}

	cols := make([]Column, len(p.Outputs))
	names := make([]string, len(p.Outputs))
	for i, out := range p.Outputs {
		c, err := ev.Eval(ctx, out.Term)
		if err != nil {
			return nil, fmt.Errorf("output %q: %w", out.Name, err)
		}
		cols[i] = c
		names[i] = out.Name
	}

	table := &ResultTable{
		Date:    date,
		Columns: names,
		Rows:    make(map[Asset]map[string]Value),
	}
	for _, a := range screenCol.TrueAssets() {
		row := make(map[string]Value, len(p.Outputs))
		for i, name := range names {
			row[name] = cols[i].Get(a)
		}
		table.Rows[a] = row
	}
	return table, nil
}
