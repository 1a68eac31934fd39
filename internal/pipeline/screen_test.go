package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateDate(t *testing.T) {
	src := fiveAssets()
	score := ColumnFactor("score")
	longs := score.RankBottom(2)
	shorts := score.RankTop(2)

	p := NewPipeline("meanrev", longs.Or(shorts)).
		AddFactor("score", score).
		AddFilter("longs", longs).
		AddFilter("shorts", shorts)

	table, err := EvaluateDate(context.Background(), src, p, testDate)
	require.NoError(t, err)

	assert.Equal(t, []Asset{"A", "B", "D", "E"}, table.AssetsSorted())
	assert.Equal(t, []string{"score", "longs", "shorts"}, table.Columns)

	assert.True(t, table.Rows["A"]["longs"].Bool())
	assert.False(t, table.Rows["A"]["shorts"].Bool())
	assert.True(t, table.Rows["E"]["shorts"].Bool())
	assert.Equal(t, 5.0, table.Rows["E"]["score"].Num())
}

func TestOutputsKeepOwnMasks(t *testing.T) {
	src := fiveAssets()
	src.cols["eligible"] = BoolColumn(map[Asset]bool{
		"A": true, "B": true, "C": true, "D": true, "E": false,
	})

	score := ColumnFactor("score")
	// Output masked independently of the screen: E passes the screen but has
	// no masked score, so its field comes back null instead of the row being
	// dropped.
	maskedScore := score.WithMask(ColumnFilter("eligible"))

	p := NewPipeline("screen", score.RankTop(2)).
		AddFactor("masked_score", maskedScore)

	table, err := EvaluateDate(context.Background(), src, p, testDate)
	require.NoError(t, err)

	assert.Equal(t, []Asset{"D", "E"}, table.AssetsSorted())
	assert.Equal(t, 4.0, table.Rows["D"]["masked_score"].Num())
	assert.True(t, table.Rows["E"]["masked_score"].IsNull())
}

func TestPipelineWithoutScreen(t *testing.T) {
	p := &Pipeline{Name: "broken"}
	_, err := EvaluateDate(context.Background(), fiveAssets(), p, testDate)
	assert.Error(t, err)
}
