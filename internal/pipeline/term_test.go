package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCombineTypeMismatch(t *testing.T) {
	num := SourceTerm("close", KindNumeric)
	boo := SourceTerm("listed", KindBool)

	_, err := Combine(OpAnd, num, boo)
	require.Error(t, err)
	var tm *TypeMismatchError
	assert.ErrorAs(t, err, &tm)

	_, err = Combine(OpAdd, num, boo)
	require.Error(t, err)
	assert.ErrorAs(t, err, &tm)
}

func TestCombineKinds(t *testing.T) {
	a := SourceTerm("close", KindNumeric)
	b := SourceTerm("open", KindNumeric)

	sum, err := Combine(OpAdd, a, b)
	require.NoError(t, err)
	assert.Equal(t, KindNumeric, sum.OutKind())

	eq, err := Combine(OpEq, a, b)
	require.NoError(t, err)
	assert.Equal(t, KindBool, eq.OutKind(), "comparison yields boolean")
}

func TestPercentileRangeValidation(t *testing.T) {
	f := ColumnFactor("close")

	for _, bad := range [][2]float64{{-1, 50}, {0, 101}, {60, 60}, {80, 20}} {
		_, err := f.PercentileBetween(bad[0], bad[1])
		require.Error(t, err, "bounds %v", bad)
		var ir *InvalidRangeError
		assert.ErrorAs(t, err, &ir)
	}

	_, err := f.PercentileBetween(0, 100)
	assert.NoError(t, err)
}

func TestCycleDetection(t *testing.T) {
	a := SourceTerm("x", KindBool)
	b := mustTerm(Combine(OpAnd, a, SourceTerm("y", KindBool)))

	// Force a cycle the way only a hand-built graph could.
	a.args = []*Term{b}

	_, err := Combine(OpOr, b, SourceTerm("z", KindBool))
	require.Error(t, err)
	var ce *CyclicExpressionError
	assert.ErrorAs(t, err, &ce)
}

func TestMaskComposesByAnd(t *testing.T) {
	f := ColumnFactor("close")
	m1 := ColumnFilter("liquid")
	m2 := ColumnFilter("listed")

	masked := f.WithMask(m1).WithMask(m2)
	mask := masked.Term().mask
	require.NotNil(t, mask)
	assert.Equal(t, OpAnd, mask.op, "second mask stacks by AND")
}

func TestWithMaskDoesNotMutateOriginal(t *testing.T) {
	f := ColumnFactor("close")
	_ = f.WithMask(ColumnFilter("liquid"))
	assert.Nil(t, f.Term().mask)
}
