package crossval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStratifiedKFold(t *testing.T) {
	labels := make([]int, 100)
	for i := range labels {
		if i%4 == 0 {
			labels[i] = 1
		}
	}

	folds, err := StratifiedKFold(labels, 5, 1234)
	require.NoError(t, err)
	require.Len(t, folds, 5)
	require.NoError(t, CheckPartition(folds, len(labels)))

	for i, f := range folds {
		assert.Len(t, f.Valid, 20, "fold %d", i)
		assert.Len(t, f.Train, 80, "fold %d", i)
		assert.IsIncreasing(t, f.Valid)
		assert.IsIncreasing(t, f.Train)

		pos := 0
		for _, idx := range f.Valid {
			pos += labels[idx]
		}
		assert.Equal(t, 5, pos, "fold %d keeps the 1:3 class ratio", i)
	}
}

func TestStratifiedKFoldDeterministic(t *testing.T) {
	labels := []int{0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 1, 0, 0}
	a, err := StratifiedKFold(labels, 3, 7)
	require.NoError(t, err)
	b, err := StratifiedKFold(labels, 3, 7)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := StratifiedKFold(labels, 3, 8)
	require.NoError(t, err)
	assert.NoError(t, CheckPartition(c, len(labels)))
}

func TestStratifiedKFoldUneven(t *testing.T) {
	labels := []int{0, 0, 0, 1, 1, 1, 1}
	folds, err := StratifiedKFold(labels, 3, 1)
	require.NoError(t, err)
	require.NoError(t, CheckPartition(folds, len(labels)))
	for _, f := range folds {
		assert.GreaterOrEqual(t, len(f.Valid), 2)
		assert.LessOrEqual(t, len(f.Valid), 3)
	}
}

func TestStratifiedKFoldInvalid(t *testing.T) {
	_, err := StratifiedKFold([]int{0, 1, 0}, 1, 0)
	assert.ErrorIs(t, err, ErrFolds)
	_, err = StratifiedKFold([]int{0, 1, 0}, 4, 0)
	assert.ErrorIs(t, err, ErrFolds)
}

func TestCheckPartitionRejects(t *testing.T) {
	overlap := []Fold{
		{Train: []int{2, 3}, Valid: []int{0, 1}},
		{Train: []int{0, 3}, Valid: []int{1, 2}},
	}
	assert.Error(t, CheckPartition(overlap, 4))

	leaky := []Fold{{Train: []int{0, 1}, Valid: []int{1}}}
	assert.Error(t, CheckPartition(leaky, 2))

	missing := []Fold{
		{Train: []int{1}, Valid: []int{0}},
		{Train: []int{0}, Valid: []int{1}},
	}
	assert.Error(t, CheckPartition(missing, 3))
}

func TestMacroF1(t *testing.T) {
	truth := []int{1, 1, 0, 0, 0, 1}
	pred := []int{1, 0, 0, 1, 0, 1}
	// class 1: tp 2, fp 1, fn 1 -> 4/6; class 0: tp 2, fp 1, fn 1 -> 4/6
	assert.InDelta(t, 2.0/3.0, MacroF1(truth, pred), 1e-12)

	// class 1 is never predicted and scores 0; class 0: tp 2, fp 1 -> 4/5
	assert.InDelta(t, 0.4, MacroF1([]int{1, 0, 0}, []int{0, 0, 0}), 1e-12)

	assert.InDelta(t, 1.0, MacroF1([]int{0, 0}, []int{0, 0}), 1e-12)
	assert.Zero(t, MacroF1(nil, nil))
}
