package classifier

import (
	"context"
	"math/rand/v2"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/happyhackingspace/insincere/embedding"
	"github.com/happyhackingspace/insincere/internal/runinfo"
	"github.com/happyhackingspace/insincere/internal/vectorizer"
	"github.com/happyhackingspace/insincere/rnn"
)

// toyData builds a separable problem: label 1 rows start with token 1.
func toyData() *vectorizer.Dataset {
	ds := &vectorizer.Dataset{PadLength: 4}
	for i := range 20 {
		label := i % 2
		first := 2
		if label == 1 {
			first = 1
		}
		row := []int{first, 3 + i%3, 0, 0}
		if i%4 == 0 {
			row[2] = 6
		}
		ds.TrainArray = append(ds.TrainArray, row)
		ds.TrainLabels = append(ds.TrainLabels, label)
	}
	ds.TestArray = [][]int{{1, 3, 0, 0}, {2, 4, 6, 0}, {1, 5, 0, 0}}
	return ds
}

func toyConfig(t *testing.T) Config {
	cfg := DefaultConfig()
	cfg.Folds = 4
	cfg.Epochs = 2
	cfg.BatchSize = 4
	cfg.CheckpointDir = t.TempDir()
	cfg.Model = rnn.Config{Kind: rnn.LSTM, Hidden: 4, Bidirectional: true, Dropout: 0.3, LearningRate: 0.01}
	return cfg
}

func toyWeights() *mat.Dense {
	return embedding.Random(7, 5, 0, 1, rand.NewPCG(5, 6))
}

func TestCrossValidate(t *testing.T) {
	cfg := toyConfig(t)
	ens, err := CrossValidate(context.Background(), runinfo.Discard(), toyData(), toyWeights(), cfg)
	require.NoError(t, err)

	require.Len(t, ens.Scores, 3)
	for _, s := range ens.Scores {
		assert.GreaterOrEqual(t, s, 0.0)
		assert.LessOrEqual(t, s, 1.0)
		// every fold contributes a 0 or a 1 divided by the fold count
		assert.InDelta(t, 0, s*4-float64(int(s*4+0.5)), 1e-9)
	}
	for _, l := range ens.Labels(cfg.Threshold) {
		assert.Contains(t, []int{0, 1}, l)
	}

	require.Len(t, ens.Folds, 4)
	total := 0
	for i, f := range ens.Folds {
		assert.Equal(t, i+1, f.Fold)
		assert.Len(t, f.EpochF1, 2)
		assert.GreaterOrEqual(t, f.BestEpoch, 1)
		assert.Equal(t, f.EpochF1[f.BestEpoch-1], f.BestF1)
		assert.Equal(t, 20, f.TrainSize+f.ValidSize)
		total += f.ValidSize
	}
	assert.Equal(t, 20, total)
	assert.GreaterOrEqual(t, ens.MeanF1(), 0.0)

	entries, err := os.ReadDir(cfg.CheckpointDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "fold checkpoints are removed")
}

func TestCrossValidateDeterministic(t *testing.T) {
	cfg := toyConfig(t)
	a, err := CrossValidate(context.Background(), runinfo.Discard(), toyData(), toyWeights(), cfg)
	require.NoError(t, err)
	b, err := CrossValidate(context.Background(), runinfo.Discard(), toyData(), toyWeights(), cfg)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestCrossValidateFreshEmbedding(t *testing.T) {
	cfg := toyConfig(t)
	cfg.Pretrained = false
	cfg.VocabSize = 7
	cfg.EmbeddingDim = 3
	cfg.Model.Kind = rnn.GRU

	ens, err := CrossValidate(context.Background(), runinfo.Discard(), toyData(), nil, cfg)
	require.NoError(t, err)
	assert.Len(t, ens.Scores, 3)
}

func TestCrossValidateNoTestSet(t *testing.T) {
	cfg := toyConfig(t)
	data := toyData()
	data.TestArray = nil

	ens, err := CrossValidate(context.Background(), runinfo.Discard(), data, toyWeights(), cfg)
	require.NoError(t, err)
	assert.Empty(t, ens.Scores)
	assert.Len(t, ens.Folds, 4)
}

func TestCrossValidateCancelled(t *testing.T) {
	cfg := toyConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := CrossValidate(ctx, runinfo.Discard(), toyData(), toyWeights(), cfg)
	assert.ErrorIs(t, err, context.Canceled)

	entries, err := os.ReadDir(cfg.CheckpointDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "checkpoint released on failure")
}

func TestCrossValidateRejectsConfig(t *testing.T) {
	data := toyData()
	cfg := toyConfig(t)

	bad := cfg
	bad.Folds = 1
	_, err := CrossValidate(context.Background(), runinfo.Discard(), data, toyWeights(), bad)
	assert.Error(t, err)

	bad = cfg
	bad.Folds = 21
	_, err = CrossValidate(context.Background(), runinfo.Discard(), data, toyWeights(), bad)
	assert.Error(t, err)

	_, err = CrossValidate(context.Background(), runinfo.Discard(), data, nil, cfg)
	assert.Error(t, err)

	bad = cfg
	bad.Pretrained = false
	_, err = CrossValidate(context.Background(), runinfo.Discard(), data, nil, bad)
	assert.Error(t, err)
}

func TestEnsembleLabels(t *testing.T) {
	e := &Ensemble{Scores: []float64{0, 0.4, 0.5, 0.6, 1}}
	assert.Equal(t, []int{0, 0, 0, 1, 1}, e.Labels(0.5))
	assert.Equal(t, []int{0, 1, 1, 1, 1}, e.Labels(0.2))
}

func TestVoteSharesStayInUnitInterval(t *testing.T) {
	for _, k := range []int{9, 11, 18, 20} {
		counts := make([]int, k+1)
		for c := range counts {
			counts[c] = c
		}
		shares := voteShares(counts, k)
		for c, s := range shares {
			assert.GreaterOrEqual(t, s, 0.0, "k=%d c=%d", k, c)
			assert.LessOrEqual(t, s, 1.0, "k=%d c=%d", k, c)
		}
		assert.Equal(t, 1.0, shares[k], "unanimous vote with k=%d", k)
		assert.Equal(t, 0.0, shares[0])
	}
}

func TestCrossValidateNineFolds(t *testing.T) {
	cfg := toyConfig(t)
	cfg.Folds = 9
	cfg.Epochs = 1
	ens, err := CrossValidate(context.Background(), runinfo.Discard(), toyData(), toyWeights(), cfg)
	require.NoError(t, err)
	require.Len(t, ens.Folds, 9)
	for _, s := range ens.Scores {
		assert.GreaterOrEqual(t, s, 0.0)
		assert.LessOrEqual(t, s, 1.0)
		assert.InDelta(t, 0, s*9-float64(int(s*9+0.5)), 1e-9)
	}
}
