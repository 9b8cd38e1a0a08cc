package insincere

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/happyhackingspace/insincere/embedding"
	"github.com/happyhackingspace/insincere/internal/config"
	"github.com/happyhackingspace/insincere/internal/corpus"
	"github.com/happyhackingspace/insincere/internal/runinfo"
	"github.com/happyhackingspace/insincere/internal/storage"
	"github.com/happyhackingspace/insincere/rnn"
)

const tinyEmbedding = `why 0.1 0.2 0.3 0.4
are 0.0 0.1 0.0 0.1
people 0.5 0.5 0.5 0.5
so -1 -1 -1 -1
stupid -0.9 -0.8 -0.7 -0.6
kind 0.9 0.8 0.7 0.6
A 1 2 3 4
`

func writeEmbedding(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tiny.txt")
	require.NoError(t, os.WriteFile(path, []byte(tinyEmbedding), 0o644))
	return path
}

func tinyOptions(t *testing.T) Options {
	opts := DefaultOptions()
	opts.Classifier.Folds = 5
	opts.Classifier.Epochs = 1
	opts.Classifier.BatchSize = 4
	opts.Classifier.CheckpointDir = t.TempDir()
	opts.Classifier.Model.Hidden = 4
	opts.Sources = []embedding.Source{{Name: "tiny", Path: writeEmbedding(t), Mean: 0, Std: 0.5}}
	return opts
}

func toyCorpus() *corpus.Corpus {
	var train [][]string
	var labels []int
	for i := range 10 {
		if i%2 == 0 {
			train = append(train, []string{"why", "are", "people", "so", "kind"})
			labels = append(labels, 0)
		} else {
			train = append(train, []string{"why", "are", "people", "so", "stupid"})
			labels = append(labels, 1)
		}
	}
	test := [][]string{{"people", "so", "kind"}, {"so", "stupid"}, {"why", "unknown"}}
	return &corpus.Corpus{
		Vocabulary: corpus.Vocabulary(train, test),
		Train:      train,
		Labels:     labels,
		Test:       test,
		TestIDs:    []string{"q1", "q2", "q3"},
	}
}

func TestRunToyCorpus(t *testing.T) {
	opts := tinyOptions(t)
	res, err := Run(context.Background(), runinfo.Discard(), toyCorpus(), opts)
	require.NoError(t, err)

	assert.Equal(t, []string{"q1", "q2", "q3"}, res.IDs)
	require.Len(t, res.Labels, 3)
	for _, l := range res.Labels {
		assert.Contains(t, []int{0, 1}, l)
	}
	for _, s := range res.Scores {
		assert.GreaterOrEqual(t, s, 0.0)
		assert.LessOrEqual(t, s, 1.0)
	}
	assert.Len(t, res.Folds, 5)
	require.Len(t, res.Coverage, 1)
	assert.Equal(t, 6, res.Coverage[0].Found)
	assert.Equal(t, 7, res.Coverage[0].Total)

	entries, err := os.ReadDir(opts.Classifier.CheckpointDir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	out := filepath.Join(t.TempDir(), "submission.csv")
	require.NoError(t, res.Write(out))
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 4)
	assert.Equal(t, "qid,prediction", lines[0])
}

func TestRunFromFiles(t *testing.T) {
	dir := t.TempDir()
	var b strings.Builder
	b.WriteString("qid,question_text,target\n")
	for i := range 10 {
		if i%2 == 0 {
			b.WriteString("k" + string(rune('a'+i)) + ",Why are people so kind?,0\n")
		} else {
			b.WriteString("s" + string(rune('a'+i)) + ",Why are people so stupid?,1\n")
		}
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, storage.TrainFile), []byte(b.String()), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, storage.TestFile),
		[]byte("qid,question_text\nt1,Are people kind?\nt2,So stupid!\n"), 0o644))

	run := runinfo.Discard()
	provider := &corpus.FileProvider{Storage: storage.NewStorage(dir), Log: run.Log}
	res, err := Run(context.Background(), run, provider, tinyOptions(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"t1", "t2"}, res.IDs)
	assert.Len(t, res.Labels, 2)
}

func TestEvaluate(t *testing.T) {
	opts := tinyOptions(t)
	opts.Classifier.Pretrained = false
	opts.Classifier.EmbeddingDim = 3
	opts.Classifier.Model.Kind = rnn.GRU

	ev, err := Evaluate(context.Background(), runinfo.Discard(), toyCorpus(), opts)
	require.NoError(t, err)
	assert.Len(t, ev.Folds, 5)
	assert.Empty(t, ev.Coverage)
	assert.GreaterOrEqual(t, ev.MeanF1, 0.0)
	assert.LessOrEqual(t, ev.MeanF1, 1.0)
}

func TestPrepareVectorizes(t *testing.T) {
	c := &corpus.Corpus{
		Vocabulary: []string{"a", "b"},
		Train:      [][]string{{"a", "b"}, {"b", "a", "b"}},
		Labels:     []int{0, 1},
	}
	opts := DefaultOptions()
	opts.Classifier.Pretrained = false

	p, err := prepare(context.Background(), runinfo.Discard(), c, opts, true)
	require.NoError(t, err)
	assert.Equal(t, 3, p.data.PadLength)
	assert.Equal(t, []int{1, 2, 0}, p.data.TrainArray[0])
	assert.Nil(t, p.weights)
}

func TestPrepareUppercaseFallback(t *testing.T) {
	c := &corpus.Corpus{
		Vocabulary: []string{"a"},
		Train:      [][]string{{"a"}},
		Labels:     []int{1},
	}
	p, err := prepare(context.Background(), runinfo.Discard(), c, tinyOptions(t), true)
	require.NoError(t, err)

	rows, cols := p.weights.Dims()
	assert.Equal(t, 2, rows)
	assert.Equal(t, 4, cols)
	assert.Equal(t, []float64{1, 2, 3, 4}, mat.Row(nil, 1, p.weights))
	assert.Equal(t, 1, p.coverage[0].ByTransform[embedding.Upper])
}

func TestAlignOnly(t *testing.T) {
	opts := tinyOptions(t)
	opts.Classifier.Pretrained = false
	reports, err := AlignOnly(context.Background(), runinfo.Discard(), toyCorpus(), opts)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, "tiny", reports[0].Source)
}

func TestRunErrors(t *testing.T) {
	opts := tinyOptions(t)
	_, err := Run(context.Background(), runinfo.Discard(), &corpus.Corpus{}, opts)
	assert.Error(t, err)

	opts.Sources[0].Path = filepath.Join(t.TempDir(), "missing.txt")
	_, err = Run(context.Background(), runinfo.Discard(), toyCorpus(), opts)
	assert.Error(t, err)
}

func TestOptionsFromConfig(t *testing.T) {
	cfg, err := config.Load("", nil)
	require.NoError(t, err)
	cfg.RNNType = "rnn"

	opts, err := OptionsFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, rnn.RNN, opts.Classifier.Model.Kind)
	assert.Equal(t, cfg.NSplits, opts.Classifier.Folds)
	assert.Equal(t, cfg.HiddenDim, opts.Classifier.Model.Hidden)
	assert.Equal(t, filepath.Join("data", embedding.Para.Path), opts.Sources[0].Path)

	cfg.RNNType = "lstm2"
	_, err = OptionsFromConfig(cfg)
	assert.Error(t, err)
}
