package repository

import (
	"context"
	"time"

	"Screener/internal/domain/repository"
	"Screener/internal/pipeline"
	"Screener/pkg/cache"
)

// cellDTO and columnDTO are the JSON shape of a cached column.
type cellDTO struct {
	Null bool    `json:"null,omitempty"`
	Num  float64 `json:"num,omitempty"`
	Bool bool    `json:"bool,omitempty"`
}

type columnDTO struct {
	Kind  string             `json:"kind"`
	Cells map[string]cellDTO `json:"cells"`
}

func columnToDTO(col pipeline.Column) columnDTO {
	dto := columnDTO{Kind: col.Kind().String(), Cells: make(map[string]cellDTO, col.Len())}
	for _, a := range col.Assets() {
		v := col.Get(a)
		dto.Cells[string(a)] = cellDTO{Null: v.IsNull(), Num: v.Num(), Bool: v.Bool()}
	}
	return dto
}

func dtoToColumn(dto columnDTO) pipeline.Column {
	kind := pipeline.KindNumeric
	if dto.Kind == pipeline.KindBool.String() {
		kind = pipeline.KindBool
	}
	col := pipeline.NewColumn(kind)
	for a, c := range dto.Cells {
		switch {
		case c.Null:
			col.Set(pipeline.Asset(a), pipeline.Null(kind))
		case kind == pipeline.KindBool:
			col.Set(pipeline.Asset(a), pipeline.Bool(c.Bool))
		default:
			col.Set(pipeline.Asset(a), pipeline.Num(c.Num))
		}
	}
	return col
}

// CachedColumnStore wraps a ColumnStore with a cache layer. Daily columns are
// immutable once the day is closed, so a plain TTL is sufficient.
type CachedColumnStore struct {
	next    repository.ColumnStore
	cache   cache.Service
	ttl     time.Duration
	metrics repository.Metrics
}

func NewCachedColumnStore(next repository.ColumnStore, c cache.Service, ttl time.Duration, m repository.Metrics) repository.ColumnStore {
	return &CachedColumnStore{next: next, cache: c, ttl: ttl, metrics: m}
}

func columnKey(field string, date time.Time) string {
	return cache.GenerateKeyWithParams("col", field, date.Format("2006-01-02"))
}

func (s *CachedColumnStore) Init(ctx context.Context) error {
	return s.next.Init(ctx)
}

func (s *CachedColumnStore) GetColumn(ctx context.Context, field string, date time.Time) (pipeline.Column, error) {
	key := columnKey(field, date)
	var dto columnDTO
	if err := s.cache.Get(ctx, key, &dto); err == nil {
		s.metrics.RecordCacheLookup("column", true)
		return dtoToColumn(dto), nil
	}
	s.metrics.RecordCacheLookup("column", false)

	col, err := s.next.GetColumn(ctx, field, date)
	if err != nil {
		return pipeline.Column{}, err
	}
	// Best effort: a failed cache write must not fail the read.
	_ = s.cache.Set(ctx, key, columnToDTO(col), s.ttl)
	return col, nil
}

func (s *CachedColumnStore) GetHistory(ctx context.Context, field string, date time.Time, window int) (map[pipeline.Asset][]float64, error) {
	return s.next.GetHistory(ctx, field, date, window)
}

func (s *CachedColumnStore) Health(ctx context.Context) error { return s.next.Health(ctx) }

func (s *CachedColumnStore) Close() error { return s.next.Close() }
