// Package insincere flags insincere questions with an ensemble of recurrent
// classifiers trained by stratified k-fold cross-validation.
//
//	run := runinfo.New(runinfo.Console())
//	provider := &corpus.FileProvider{Storage: storage.NewStorage("data"), Log: run.Log}
//	res, _ := insincere.Run(ctx, run, provider, insincere.DefaultOptions())
//	_ = res.Write("submission.csv")
package insincere

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/happyhackingspace/insincere/classifier"
	"github.com/happyhackingspace/insincere/embedding"
	"github.com/happyhackingspace/insincere/internal/config"
	"github.com/happyhackingspace/insincere/internal/corpus"
	"github.com/happyhackingspace/insincere/internal/runinfo"
	"github.com/happyhackingspace/insincere/internal/storage"
	"github.com/happyhackingspace/insincere/internal/vectorizer"
	"github.com/happyhackingspace/insincere/rnn"
)

// Options configures a pipeline run.
type Options struct {
	Classifier classifier.Config
	// Sources are aligned in order and concatenated along the feature axis.
	// They are not read when Classifier.Pretrained is false.
	Sources []embedding.Source
}

// DefaultOptions returns the reference settings.
func DefaultOptions() Options {
	return Options{
		Classifier: classifier.DefaultConfig(),
		Sources:    embedding.DefaultSources(),
	}
}

// OptionsFromConfig maps loaded settings onto pipeline options.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	kind, err := rnn.ParseCellKind(cfg.RNNType)
	if err != nil {
		return Options{}, fmt.Errorf("insincere: %w", err)
	}
	return Options{
		Classifier: classifier.Config{
			Folds:         cfg.NSplits,
			Epochs:        cfg.NumEpochs,
			BatchSize:     cfg.BatchSize,
			Threshold:     cfg.Threshold,
			Seed:          cfg.Seed,
			CheckpointDir: cfg.CheckpointDir,
			Pretrained:    cfg.PreTrained,
			EmbeddingDim:  cfg.EmbeddingDim,
			Model: rnn.Config{
				Kind:          kind,
				Hidden:        cfg.HiddenDim,
				Bidirectional: cfg.Bidirectional,
				Dropout:       cfg.Dropout,
				LearningRate:  cfg.LearningRate,
				Seed:          cfg.Seed,
			},
		},
		Sources: cfg.EmbeddingSources(),
	}, nil
}

// Result is the outcome of a full run.
type Result struct {
	IDs      []string
	Scores   []float64 // share of folds voting insincere
	Labels   []int
	Folds    []classifier.FoldReport
	MeanF1   float64
	Coverage []embedding.Report
}

// Write stores the predictions as a qid,prediction CSV.
func (r *Result) Write(path string) error {
	if err := storage.WriteSubmission(path, r.IDs, r.Labels); err != nil {
		return fmt.Errorf("insincere: %w", err)
	}
	return nil
}

// Evaluation is the outcome of a validation-only run.
type Evaluation struct {
	Folds    []classifier.FoldReport
	MeanF1   float64
	Coverage []embedding.Report
}

// prepared is everything cross-validation needs.
type prepared struct {
	corpus   *corpus.Corpus
	vocab    *vectorizer.Vocabulary
	data     *vectorizer.Dataset
	weights  *mat.Dense
	coverage []embedding.Report
}

// Run provides the corpus, vectorizes it, aligns the embedding, trains one
// model per fold and thresholds the fold-averaged test votes.
func Run(ctx context.Context, run *runinfo.Run, provider corpus.Provider, opts Options) (*Result, error) {
	p, err := prepare(ctx, run, provider, opts, true)
	if err != nil {
		return nil, err
	}

	ens, err := crossValidate(ctx, run, p, opts)
	if err != nil {
		return nil, err
	}

	run.Stage("finalise")
	res := &Result{
		IDs:      testIDs(p.corpus),
		Scores:   ens.Scores,
		Labels:   ens.Labels(opts.Classifier.Threshold),
		Folds:    ens.Folds,
		MeanF1:   ens.MeanF1(),
		Coverage: p.coverage,
	}
	positive := 0
	for _, l := range res.Labels {
		positive += l
	}
	run.Log.Info().
		Float64("mean_f1", res.MeanF1).
		Int("test", len(res.Labels)).
		Int("insincere", positive).
		Msg("run finished")
	return res, nil
}

// Evaluate cross-validates on the training set only and skips test inference.
func Evaluate(ctx context.Context, run *runinfo.Run, provider corpus.Provider, opts Options) (*Evaluation, error) {
	p, err := prepare(ctx, run, provider, opts, false)
	if err != nil {
		return nil, err
	}
	ens, err := crossValidate(ctx, run, p, opts)
	if err != nil {
		return nil, err
	}
	run.Log.Info().Float64("mean_f1", ens.MeanF1()).Msg("evaluation finished")
	return &Evaluation{Folds: ens.Folds, MeanF1: ens.MeanF1(), Coverage: p.coverage}, nil
}

// AlignOnly provides and vectorizes the corpus and reports how well each
// embedding source covers its vocabulary.
func AlignOnly(ctx context.Context, run *runinfo.Run, provider corpus.Provider, opts Options) ([]embedding.Report, error) {
	opts.Classifier.Pretrained = true
	p, err := prepare(ctx, run, provider, opts, true)
	if err != nil {
		return nil, err
	}
	return p.coverage, nil
}

func crossValidate(ctx context.Context, run *runinfo.Run, p *prepared, opts Options) (*classifier.Ensemble, error) {
	cfg := opts.Classifier
	cfg.VocabSize = p.vocab.Size()
	ens, err := classifier.CrossValidate(ctx, run, p.data, p.weights, cfg)
	if err != nil {
		return nil, fmt.Errorf("insincere: %w", err)
	}
	return ens, nil
}

func prepare(ctx context.Context, run *runinfo.Run, provider corpus.Provider, opts Options, withTest bool) (*prepared, error) {
	run.Stage("load")
	c, err := provider.Provide(ctx)
	if err != nil {
		return nil, fmt.Errorf("insincere: %w", err)
	}
	if len(c.Train) == 0 {
		return nil, fmt.Errorf("insincere: no training questions")
	}

	test := c.Test
	if !withTest {
		test = nil
	}

	run.Stage("vectorize")
	vocab, err := vectorizer.NewVocabulary(c.Vocabulary)
	if err != nil {
		return nil, fmt.Errorf("insincere: %w", err)
	}
	data, err := vectorizer.Vectorize(vocab, c.Train, c.Labels, test)
	if err != nil {
		return nil, fmt.Errorf("insincere: %w", err)
	}
	run.Log.Info().
		Int("vocabulary", vocab.Size()).
		Int("pad_length", data.PadLength).
		Int("train", len(data.TrainArray)).
		Int("test", len(data.TestArray)).
		Msg("vectorized")

	p := &prepared{corpus: c, vocab: vocab, data: data}
	if !opts.Classifier.Pretrained {
		return p, nil
	}

	run.Stage("align")
	if len(opts.Sources) == 0 {
		return nil, fmt.Errorf("insincere: no embedding sources configured")
	}
	rng := rand.NewPCG(opts.Classifier.Seed, uint64(len(opts.Sources)))
	parts := make([]*mat.Dense, 0, len(opts.Sources))
	for _, src := range opts.Sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		w, report, err := embedding.AlignFile(vocab, src, rng)
		if err != nil {
			return nil, fmt.Errorf("insincere: align %s: %w", src.Name, err)
		}
		run.Log.Info().Object("coverage", report).Msg("aligned")
		parts = append(parts, w)
		p.coverage = append(p.coverage, report)
	}
	if p.weights, err = embedding.Concat(parts...); err != nil {
		return nil, fmt.Errorf("insincere: %w", err)
	}
	return p, nil
}

// testIDs returns the corpus test ids, or row numbers when it has none.
func testIDs(c *corpus.Corpus) []string {
	if c.TestIDs != nil {
		return c.TestIDs
	}
	ids := make([]string, len(c.Test))
	for i := range ids {
		ids[i] = strconv.Itoa(i)
	}
	return ids
}
