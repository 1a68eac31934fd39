package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubSource serves fixed columns regardless of date.
type stubSource struct {
	cols map[string]Column
}

func (s *stubSource) GetColumn(_ context.Context, field string, date time.Time) (Column, error) {
	col, ok := s.cols[field]
	if !ok {
		return Column{}, &MissingColumnError{Field: field, Date: date}
	}
	return col, nil
}

var testDate = time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

// fiveAssets is the worked example from the design discussion: values
// ascending A..E.
func fiveAssets() *stubSource {
	return &stubSource{cols: map[string]Column{
		"score": NumericColumn(map[Asset]float64{"A": 1, "B": 2, "C": 3, "D": 4, "E": 5}),
	}}
}

func evalFilter(t *testing.T, src Source, f Filter) Column {
	t.Helper()
	col, err := NewEvaluator(src, testDate).Eval(context.Background(), f.Term())
	require.NoError(t, err)
	return col
}

func TestRankTopBottom(t *testing.T) {
	src := fiveAssets()
	score := ColumnFactor("score")

	top := evalFilter(t, src, score.RankTop(2))
	assert.Equal(t, []Asset{"D", "E"}, top.TrueAssets())

	bottom := evalFilter(t, src, score.RankBottom(2))
	assert.Equal(t, []Asset{"A", "B"}, bottom.TrueAssets())

	union := evalFilter(t, src, score.RankTop(2).Or(score.RankBottom(2)))
	assert.Equal(t, []Asset{"A", "B", "D", "E"}, union.TrueAssets())
	assert.False(t, union.Get("C").Bool(), "middle asset excluded")
}

func TestRankDisjointHalves(t *testing.T) {
	src := &stubSource{cols: map[string]Column{
		"score": NumericColumn(map[Asset]float64{
			"A": 1, "B": 2, "C": 3, "D": 4, "E": 5, "F": 6,
		}),
	}}
	score := ColumnFactor("score")

	top := evalFilter(t, src, score.RankTop(3)).TrueAssets()
	bottom := evalFilter(t, src, score.RankBottom(3)).TrueAssets()

	assert.Len(t, top, 3)
	assert.Len(t, bottom, 3)
	for _, a := range top {
		assert.NotContains(t, bottom, a)
	}
}

func TestRankDegradesGracefully(t *testing.T) {
	src := fiveAssets()
	score := ColumnFactor("score")

	all := evalFilter(t, src, score.RankTop(50))
	assert.Equal(t, []Asset{"A", "B", "C", "D", "E"}, all.TrueAssets(),
		"n beyond the active count selects the full active set")

	all = evalFilter(t, src, score.RankBottom(0))
	assert.Equal(t, []Asset{"A", "B", "C", "D", "E"}, all.TrueAssets())
}

func TestRankDeterministicTieBreak(t *testing.T) {
	src := &stubSource{cols: map[string]Column{
		"score": NumericColumn(map[Asset]float64{"A": 7, "B": 7, "C": 7, "D": 1}),
	}}
	score := ColumnFactor("score")

	// Equal values break ties by asset id ascending, so top-1 of the tied
	// trio is always C, run after run.
	for i := 0; i < 10; i++ {
		top := evalFilter(t, src, score.RankTop(1))
		assert.Equal(t, []Asset{"C"}, top.TrueAssets())
	}
}

func TestRankUnderMask(t *testing.T) {
	src := fiveAssets()
	src.cols["eligible"] = BoolColumn(map[Asset]bool{
		"A": true, "B": true, "C": false, "D": true, "E": true,
	})

	score := ColumnFactor("score").WithMask(ColumnFilter("eligible"))
	top := evalFilter(t, src, score.RankTop(1))
	assert.Equal(t, []Asset{"E"}, top.TrueAssets())

	// With E also excluded, the best remaining is D.
	src.cols["eligible"] = BoolColumn(map[Asset]bool{
		"A": true, "B": true, "C": false, "D": true, "E": false,
	})
	top = evalFilter(t, src, score.RankTop(1))
	assert.Equal(t, []Asset{"D"}, top.TrueAssets())
}

func TestPercentileFullRange(t *testing.T) {
	src := fiveAssets()
	band, err := ColumnFactor("score").PercentileBetween(0, 100)
	require.NoError(t, err)
	col := evalFilter(t, src, band)
	assert.Equal(t, []Asset{"A", "B", "C", "D", "E"}, col.TrueAssets())
}

func TestPercentileBand(t *testing.T) {
	src := fiveAssets()
	// Rank fractions over five assets are 0, .25, .5, .75, 1.
	band, err := ColumnFactor("score").PercentileBetween(25, 75)
	require.NoError(t, err)
	col := evalFilter(t, src, band)
	assert.Equal(t, []Asset{"B", "C", "D"}, col.TrueAssets(), "bounds are inclusive")
}

func TestPercentileSingleAsset(t *testing.T) {
	src := &stubSource{cols: map[string]Column{
		"score": NumericColumn(map[Asset]float64{"A": 42}),
	}}
	band, err := ColumnFactor("score").PercentileBetween(0, 50)
	require.NoError(t, err)
	col := evalFilter(t, src, band)
	assert.Equal(t, []Asset{"A"}, col.TrueAssets(), "single asset ranks at fraction 0")
}

func TestNullPropagation(t *testing.T) {
	price := NewColumn(KindNumeric)
	price.Set("A", Num(10))
	price.Set("B", Null(KindNumeric))
	src := &stubSource{cols: map[string]Column{
		"price": price,
		"base":  NumericColumn(map[Asset]float64{"A": 2, "B": 2}),
	}}

	ratio := ColumnFactor("price").Div(ColumnFactor("base"))
	col, err := NewEvaluator(src, testDate).Eval(context.Background(), ratio.Term())
	require.NoError(t, err)

	assert.Equal(t, 5.0, col.Get("A").Num())
	assert.True(t, col.Get("B").IsNull(), "null operand propagates through arithmetic")

	// Downstream filter resolves the null to excluded, never included.
	gate := ratio.Eq(ColumnFactor("base"))
	gcol, err := NewEvaluator(src, testDate).Eval(context.Background(), gate.Term())
	require.NoError(t, err)
	assert.False(t, gcol.Get("B").Bool())
}

func TestDivisionByZeroIsNull(t *testing.T) {
	src := &stubSource{cols: map[string]Column{
		"num": NumericColumn(map[Asset]float64{"A": 1}),
		"den": NumericColumn(map[Asset]float64{"A": 0}),
	}}
	col, err := NewEvaluator(src, testDate).Eval(context.Background(),
		ColumnFactor("num").Div(ColumnFactor("den")).Term())
	require.NoError(t, err)
	assert.True(t, col.Get("A").IsNull())
}

func TestAndMatchesPointwiseConjunction(t *testing.T) {
	src := &stubSource{cols: map[string]Column{
		"p": BoolColumn(map[Asset]bool{"A": true, "B": true, "C": false}),
		"q": BoolColumn(map[Asset]bool{"A": true, "B": false, "D": true}),
	}}
	p, q := ColumnFilter("p"), ColumnFilter("q")

	both := evalFilter(t, src, p.And(q))
	pc := evalFilter(t, src, p)
	qc := evalFilter(t, src, q)

	for _, a := range []Asset{"A", "B", "C", "D"} {
		assert.Equal(t, pc.Get(a).Bool() && qc.Get(a).Bool(), both.Get(a).Bool(), "asset %s", a)
	}
	assert.False(t, both.Get("D").Bool(), "asset missing from one side excludes")
}

func TestEmptyUniverseIsNotAnError(t *testing.T) {
	src := &stubSource{cols: map[string]Column{
		"score": NewColumn(KindNumeric),
	}}
	col, err := NewEvaluator(src, testDate).Eval(context.Background(),
		ColumnFactor("score").RankTop(3).Term())
	require.NoError(t, err)
	assert.Zero(t, col.Len())
}

func TestMissingColumn(t *testing.T) {
	src := fiveAssets()
	_, err := NewEvaluator(src, testDate).Eval(context.Background(),
		ColumnFactor("nonexistent").Term())
	require.Error(t, err)
	var mc *MissingColumnError
	require.ErrorAs(t, err, &mc)
	assert.Equal(t, "nonexistent", mc.Field)
}

func TestMemoizationSharesEvaluation(t *testing.T) {
	src := &countingSource{inner: fiveAssets()}
	score := ColumnFactor("score")
	// score feeds both halves of the union; one evaluator, one fetch.
	union := score.RankTop(2).Or(score.RankBottom(2))

	_, err := NewEvaluator(src, testDate).Eval(context.Background(), union.Term())
	require.NoError(t, err)
	assert.Equal(t, 1, src.calls["score"])
}

type countingSource struct {
	inner Source
	calls map[string]int
}

func (c *countingSource) GetColumn(ctx context.Context, field string, date time.Time) (Column, error) {
	if c.calls == nil {
		c.calls = make(map[string]int)
	}
	c.calls[field]++
	return c.inner.GetColumn(ctx, field, date)
}
