package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakySource fails GetColumn on one specific date.
type flakySource struct {
	inner   Source
	badDate time.Time
}

func (f *flakySource) GetColumn(ctx context.Context, field string, date time.Time) (Column, error) {
	if date.Equal(f.badDate) {
		return Column{}, &MissingColumnError{Field: field, Date: date}
	}
	return f.inner.GetColumn(ctx, field, date)
}

func rangePipeline() *Pipeline {
	score := ColumnFactor("score")
	return NewPipeline("range", score.RankTop(2).Or(score.RankBottom(2))).
		AddFactor("score", score)
}

func TestRunAscendingInclusive(t *testing.T) {
	start := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 4)

	results, err := Run(context.Background(), fiveAssets(), rangePipeline(), start, end, RunOptions{})
	require.NoError(t, err)
	require.Len(t, results, 5)
	for i, r := range results {
		assert.Equal(t, start.AddDate(0, 0, i), r.Date)
		require.NoError(t, r.Err)
		assert.Len(t, r.Table.Rows, 4)
	}
}

func TestRunSkipAndContinue(t *testing.T) {
	start := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 2)
	src := &flakySource{inner: fiveAssets(), badDate: start.AddDate(0, 0, 1)}

	results, err := Run(context.Background(), src, rangePipeline(), start, end,
		RunOptions{Policy: SkipAndContinue})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.NoError(t, results[0].Err)
	require.Error(t, results[1].Err)
	var mc *MissingColumnError
	assert.ErrorAs(t, results[1].Err, &mc)
	assert.Nil(t, results[1].Table, "no partial table for a failed date")
	assert.NoError(t, results[2].Err, "failure stays isolated to its date")
}

func TestRunAbortAll(t *testing.T) {
	start := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 2)
	src := &flakySource{inner: fiveAssets(), badDate: start.AddDate(0, 0, 1)}

	_, err := Run(context.Background(), src, rangePipeline(), start, end,
		RunOptions{Policy: AbortAll})
	require.Error(t, err)
	var mc *MissingColumnError
	assert.ErrorAs(t, err, &mc)
}

func TestRunParallelMatchesSequential(t *testing.T) {
	start := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 9)
	p := rangePipeline()

	seq, err := Run(context.Background(), fiveAssets(), p, start, end, RunOptions{})
	require.NoError(t, err)
	par, err := Run(context.Background(), fiveAssets(), p, start, end, RunOptions{Workers: 4})
	require.NoError(t, err)

	require.Len(t, par, len(seq))
	for i := range seq {
		assert.Equal(t, seq[i].Date, par[i].Date)
		assert.Equal(t, seq[i].Table.AssetsSorted(), par[i].Table.AssetsSorted())
	}
}

func TestRunCalendarFilter(t *testing.T) {
	start := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC) // Monday
	end := start.AddDate(0, 0, 6)
	weekdays := func(d time.Time) bool {
		wd := d.Weekday()
		return wd != time.Saturday && wd != time.Sunday
	}

	results, err := Run(context.Background(), fiveAssets(), rangePipeline(), start, end,
		RunOptions{Calendar: weekdays})
	require.NoError(t, err)
	assert.Len(t, results, 5)
}

func TestRunRejectsInvertedRange(t *testing.T) {
	start := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	_, err := Run(context.Background(), fiveAssets(), rangePipeline(), start, start.AddDate(0, 0, -1), RunOptions{})
	assert.Error(t, err)
}
