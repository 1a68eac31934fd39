package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"Screener/internal/pipeline"
	"Screener/pkg/util"
)

// MemoryColumnStore holds bar columns in memory. Used in tests and for the
// memory data backend in local development.
type MemoryColumnStore struct {
	mu   sync.RWMutex
	cols map[string]map[int64]pipeline.Column // field -> unix day -> column
}

func NewMemoryColumnStore() *MemoryColumnStore {
	return &MemoryColumnStore{cols: make(map[string]map[int64]pipeline.Column)}
}

// SetColumn registers a column for (field, date), replacing any previous one.
func (s *MemoryColumnStore) SetColumn(field string, date time.Time, col pipeline.Column) {
	s.mu.Lock()
	defer s.mu.Unlock()
	day := util.TruncateDay(date).Unix()
	if s.cols[field] == nil {
		s.cols[field] = make(map[int64]pipeline.Column)
	}
	s.cols[field][day] = col
}

func (s *MemoryColumnStore) Init(ctx context.Context) error { return nil }

func (s *MemoryColumnStore) GetColumn(ctx context.Context, field string, date time.Time) (pipeline.Column, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	day := util.TruncateDay(date).Unix()
	col, ok := s.cols[field][day]
	if !ok {
		return pipeline.Column{}, &pipeline.MissingColumnError{Field: field, Date: date}
	}
	return col, nil
}

func (s *MemoryColumnStore) GetHistory(ctx context.Context, field string, date time.Time, window int) (map[pipeline.Asset][]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byDay, ok := s.cols[field]
	if !ok {
		return nil, &pipeline.MissingColumnError{Field: field, Date: date}
	}
	cutoff := util.TruncateDay(date).Unix()
	days := make([]int64, 0, len(byDay))
	for d := range byDay {
		if d <= cutoff {
			days = append(days, d)
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })
	if len(days) > window {
		days = days[len(days)-window:]
	}

	hist := make(map[pipeline.Asset][]float64)
	for _, d := range days {
		col := byDay[d]
		for _, a := range col.Assets() {
			v := col.Get(a)
			if !v.IsNull() {
				hist[a] = append(hist[a], v.Num())
			}
		}
	}
	return hist, nil
}

func (s *MemoryColumnStore) Health(ctx context.Context) error { return nil }

func (s *MemoryColumnStore) Close() error { return nil }
