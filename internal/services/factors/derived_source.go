package factors

import (
	"context"
	"fmt"
	"time"

	"Screener/internal/pipeline"
)

// HistorySource supplies per-asset trailing series of a raw field, ending at
// and including the given date, oldest first.
type HistorySource interface {
	GetHistory(ctx context.Context, field string, date time.Time, window int) (map[pipeline.Asset][]float64, error)
}

// DerivedSource is a pipeline.Source that answers registered derived fields
// from trailing history and delegates every other field to the raw source.
type DerivedSource struct {
	raw  pipeline.Source
	hist HistorySource
	defs map[string]Definition
}

// NewDerivedSource registers the given definitions over a raw source.
// Duplicate names error out so the caller cannot silently shadow a factor.
func NewDerivedSource(raw pipeline.Source, hist HistorySource, defs ...Definition) (*DerivedSource, error) {
	m := make(map[string]Definition, len(defs))
	for _, d := range defs {
		if _, dup := m[d.Name]; dup {
			return nil, fmt.Errorf("derived source: duplicate factor %q", d.Name)
		}
		if d.Window <= 0 || d.Compute == nil || len(d.Fields) == 0 {
			return nil, fmt.Errorf("derived source: malformed factor %q", d.Name)
		}
		m[d.Name] = d
	}
	return &DerivedSource{raw: raw, hist: hist, defs: m}, nil
}

// Names lists the registered derived fields.
func (s *DerivedSource) Names() []string {
	out := make([]string, 0, len(s.defs))
	for n := range s.defs {
		out = append(out, n)
	}
	return out
}

func (s *DerivedSource) GetColumn(ctx context.Context, field string, date time.Time) (pipeline.Column, error) {
	def, ok := s.defs[field]
	if !ok {
		return s.raw.GetColumn(ctx, field, date)
	}

	series := make(map[string]map[pipeline.Asset][]float64, len(def.Fields))
	for _, f := range def.Fields {
		h, err := s.hist.GetHistory(ctx, f, date, def.Window)
		if err != nil {
			return pipeline.Column{}, fmt.Errorf("factor %q: %w", def.Name, err)
		}
		series[f] = h
	}

	col := pipeline.NewColumn(pipeline.KindNumeric)
	for a := range series[def.Fields[0]] {
		perAsset := make(map[string][]float64, len(def.Fields))
		complete := true
		for _, f := range def.Fields {
			sr, ok := series[f][a]
			if !ok {
				complete = false
				break
			}
			perAsset[f] = sr
		}
		if !complete {
			col.Set(a, pipeline.Null(pipeline.KindNumeric))
			continue
		}
		if v, ok := def.Compute(perAsset); ok {
			col.Set(a, pipeline.Num(v))
		} else {
			// Not enough history yet; the asset stays in the cross-section
			// as a null so rank selection drops it instead of inventing 0.
			col.Set(a, pipeline.Null(pipeline.KindNumeric))
		}
	}
	return col, nil
}
