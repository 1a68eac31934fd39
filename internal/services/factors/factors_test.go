package factors

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Screener/internal/pipeline"
)

type fixtureHistory struct {
	data map[string]map[pipeline.Asset][]float64
}

func (f *fixtureHistory) GetHistory(_ context.Context, field string, _ time.Time, window int) (map[pipeline.Asset][]float64, error) {
	out := make(map[pipeline.Asset][]float64)
	for a, s := range f.data[field] {
		if len(s) > window {
			s = s[len(s)-window:]
		}
		out[a] = s
	}
	return out, nil
}

type emptyRaw struct{}

func (emptyRaw) GetColumn(_ context.Context, field string, date time.Time) (pipeline.Column, error) {
	return pipeline.Column{}, &pipeline.MissingColumnError{Field: field, Date: date}
}

var asOf = time.Date(2024, 6, 7, 0, 0, 0, 0, time.UTC)

func TestSMA(t *testing.T) {
	hist := &fixtureHistory{data: map[string]map[pipeline.Asset][]float64{
		"close": {
			"AAA": {1, 2, 3, 4, 5},
			"BBB": {10, 10}, // short history
		},
	}}
	src, err := NewDerivedSource(emptyRaw{}, hist, SMA("close", 5))
	require.NoError(t, err)

	col, err := src.GetColumn(context.Background(), "sma_5:close", asOf)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, col.Get("AAA").Num(), 1e-9)
	assert.True(t, col.Get("BBB").IsNull(), "short history yields null, not zero")
}

func TestReturns(t *testing.T) {
	hist := &fixtureHistory{data: map[string]map[pipeline.Asset][]float64{
		"close": {"AAA": {100, 101, 102, 110}},
	}}
	src, err := NewDerivedSource(emptyRaw{}, hist, Returns("close", 3))
	require.NoError(t, err)

	col, err := src.GetColumn(context.Background(), "returns_3:close", asOf)
	require.NoError(t, err)
	assert.InDelta(t, 0.10, col.Get("AAA").Num(), 1e-9)
}

func TestZScore(t *testing.T) {
	hist := &fixtureHistory{data: map[string]map[pipeline.Asset][]float64{
		"close": {"AAA": {2, 4, 4, 4, 5, 5, 7, 9}},
	}}
	src, err := NewDerivedSource(emptyRaw{}, hist, ZScore("close", 8))
	require.NoError(t, err)

	col, err := src.GetColumn(context.Background(), "zscore_8:close", asOf)
	require.NoError(t, err)
	v := col.Get("AAA")
	require.False(t, v.IsNull())
	assert.Greater(t, v.Num(), 0.0, "latest value above the mean")
}

func TestAvgDollarVolume(t *testing.T) {
	hist := &fixtureHistory{data: map[string]map[pipeline.Asset][]float64{
		"close":  {"AAA": {10, 20}},
		"volume": {"AAA": {100, 200}},
	}}
	src, err := NewDerivedSource(emptyRaw{}, hist, AvgDollarVolume("close", "volume", 2))
	require.NoError(t, err)

	col, err := src.GetColumn(context.Background(), "adv_2:close:volume", asOf)
	require.NoError(t, err)
	assert.InDelta(t, (10*100+20*200)/2.0, col.Get("AAA").Num(), 1e-9)
}

func TestUnknownFieldFallsThrough(t *testing.T) {
	src, err := NewDerivedSource(emptyRaw{}, &fixtureHistory{}, SMA("close", 5))
	require.NoError(t, err)

	_, err = src.GetColumn(context.Background(), "nonexistent", asOf)
	var mc *pipeline.MissingColumnError
	require.ErrorAs(t, err, &mc)
}

func TestDuplicateDefinitionRejected(t *testing.T) {
	_, err := NewDerivedSource(emptyRaw{}, &fixtureHistory{}, SMA("close", 5), SMA("close", 5))
	assert.Error(t, err)
}
