package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Screener/internal/pipeline"
	"Screener/pkg/cache"
)

type testMetrics struct {
	hits, misses int
}

func (m *testMetrics) RecordEvaluation(string, bool) {}
func (m *testMetrics) RecordResultRows(string, int)  {}
func (m *testMetrics) RecordError(string)            {}
func (m *testMetrics) RecordLatency(string, float64) {}
func (m *testMetrics) RecordCacheLookup(_ string, hit bool) {
	if hit {
		m.hits++
	} else {
		m.misses++
	}
}
func (m *testMetrics) RecordResultsSent(string, string, int) {}

type countingStore struct {
	*MemoryColumnStore
	fetches int
}

func (s *countingStore) GetColumn(ctx context.Context, field string, date time.Time) (pipeline.Column, error) {
	s.fetches++
	return s.MemoryColumnStore.GetColumn(ctx, field, date)
}

func TestCachedColumnStoreCachesColumns(t *testing.T) {
	d := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	inner := &countingStore{MemoryColumnStore: NewMemoryColumnStore()}
	col := pipeline.NewColumn(pipeline.KindNumeric)
	col.Set("A", pipeline.Num(10))
	col.Set("B", pipeline.Null(pipeline.KindNumeric))
	inner.SetColumn("close", d, col)

	m := &testMetrics{}
	store := NewCachedColumnStore(inner, cache.NewMemoryCache(), time.Minute, m)

	first, err := store.GetColumn(context.Background(), "close", d)
	require.NoError(t, err)
	second, err := store.GetColumn(context.Background(), "close", d)
	require.NoError(t, err)

	assert.Equal(t, 1, inner.fetches)
	assert.Equal(t, 1, m.hits)
	assert.Equal(t, 1, m.misses)

	for _, got := range []pipeline.Column{first, second} {
		assert.Equal(t, pipeline.KindNumeric, got.Kind())
		assert.Equal(t, 10.0, got.Get("A").Num())
		assert.True(t, got.Get("B").IsNull())
	}
}

func TestCachedColumnStoreBoolRoundTrip(t *testing.T) {
	d := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	inner := NewMemoryColumnStore()
	inner.SetColumn("tradable", d, pipeline.BoolColumn(map[pipeline.Asset]bool{
		"A": true, "B": false,
	}))

	store := NewCachedColumnStore(inner, cache.NewMemoryCache(), time.Minute, &testMetrics{})
	_, err := store.GetColumn(context.Background(), "tradable", d)
	require.NoError(t, err)

	got, err := store.GetColumn(context.Background(), "tradable", d)
	require.NoError(t, err)
	assert.Equal(t, pipeline.KindBool, got.Kind())
	assert.True(t, got.Get("A").Bool())
	assert.False(t, got.Get("B").Bool())
	assert.False(t, got.Get("B").IsNull())
}

func TestCachedColumnStoreMissPassesThroughError(t *testing.T) {
	store := NewCachedColumnStore(NewMemoryColumnStore(), cache.NewMemoryCache(), time.Minute, &testMetrics{})
	_, err := store.GetColumn(context.Background(), "close", time.Now())
	var mce *pipeline.MissingColumnError
	assert.ErrorAs(t, err, &mce)
}
