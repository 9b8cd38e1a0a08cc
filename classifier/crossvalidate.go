package classifier

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/happyhackingspace/insincere/embedding"
	"github.com/happyhackingspace/insincere/internal/checkpoint"
	"github.com/happyhackingspace/insincere/internal/crossval"
	"github.com/happyhackingspace/insincere/internal/runinfo"
	"github.com/happyhackingspace/insincere/internal/vectorizer"
	"github.com/happyhackingspace/insincere/rnn"
)

// logEvery is the batch interval of training-loss log lines.
const logEvery = 100

// FoldReport summarises one cross-validation fold.
type FoldReport struct {
	Fold      int       `json:"fold"`
	BestEpoch int       `json:"best_epoch"`
	BestF1    float64   `json:"best_f1"`
	EpochF1   []float64 `json:"epoch_f1"`
	TrainSize int       `json:"train_size"`
	ValidSize int       `json:"valid_size"`
}

// Ensemble holds the fold-averaged test votes.
type Ensemble struct {
	// Scores[i] is the share of folds that voted 1 for test example i.
	Scores []float64
	Folds  []FoldReport
}

// Labels thresholds the averaged votes; a score must exceed threshold to be 1.
func (e *Ensemble) Labels(threshold float64) []int {
	labels := make([]int, len(e.Scores))
	for i, s := range e.Scores {
		if s > threshold {
			labels[i] = 1
		}
	}
	return labels
}

// MeanF1 is the mean of the best validation F1 over folds.
func (e *Ensemble) MeanF1() float64 {
	if len(e.Folds) == 0 {
		return 0
	}
	best := make([]float64, len(e.Folds))
	for i, f := range e.Folds {
		best[i] = f.BestF1
	}
	return stat.Mean(best, nil)
}

// CrossValidate trains one model per stratified fold of data's training set,
// keeps each fold's best epoch by validation macro F1, and averages the
// folds' thresholded test predictions. weights is the aligned embedding and is
// ignored when cfg.Pretrained is false.
func CrossValidate(ctx context.Context, run *runinfo.Run, data *vectorizer.Dataset, weights *mat.Dense, cfg Config) (*Ensemble, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Pretrained && weights == nil {
		return nil, fmt.Errorf("classifier: pretrained run without an embedding")
	}

	folds, err := crossval.StratifiedKFold(data.TrainLabels, cfg.Folds, cfg.Seed)
	if err != nil {
		return nil, fmt.Errorf("classifier: %w", err)
	}

	t := &trainer{
		run:          run,
		data:         data,
		weights:      weights,
		cfg:          cfg,
		trainLengths: vectorizer.Lengths(data.TrainArray),
		testLengths:  vectorizer.Lengths(data.TestArray),
	}

	ens := &Ensemble{}
	counts := make([]int, len(data.TestArray))
	for i, fold := range folds {
		run.Stage(fmt.Sprintf("fold %d/%d", i+1, len(folds)))
		report, votes, err := t.fold(ctx, i, fold)
		if err != nil {
			return nil, fmt.Errorf("classifier: fold %d: %w", i+1, err)
		}
		for j, v := range votes {
			counts[j] += v
		}
		ens.Folds = append(ens.Folds, report)
	}
	ens.Scores = voteShares(counts, len(folds))
	return ens, nil
}

// voteShares divides each vote count by the number of folds once, so a
// unanimous vote is exactly 1.
func voteShares(counts []int, folds int) []float64 {
	shares := make([]float64, len(counts))
	for i, c := range counts {
		shares[i] = float64(c) / float64(folds)
	}
	return shares
}

type trainer struct {
	run          *runinfo.Run
	data         *vectorizer.Dataset
	weights      *mat.Dense
	cfg          Config
	trainLengths []int
	testLengths  []int
}

func (t *trainer) fold(ctx context.Context, n int, fold crossval.Fold) (report FoldReport, votes []int, err error) {
	log := t.run.Log.With().Int("fold", n+1).Logger()
	report = FoldReport{Fold: n + 1, TrainSize: len(fold.Train), ValidSize: len(fold.Valid)}

	handle, err := checkpoint.Acquire(t.cfg.CheckpointDir, fmt.Sprintf("fold-%d", n+1))
	if err != nil {
		return report, nil, err
	}
	defer func() {
		err = errors.Join(err, handle.Release())
	}()

	model, err := t.newModel(n)
	if err != nil {
		return report, nil, err
	}

	seed := t.cfg.Seed + uint64(n)
	rng := rand.New(rand.NewPCG(seed, seed^0x5eed))
	order := slices.Clone(fold.Train)
	validLabels := pick(t.data.TrainLabels, fold.Valid)

	best := -1.0
	for epoch := range t.cfg.Epochs {
		if err := ctx.Err(); err != nil {
			return report, nil, err
		}
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		if err := t.epoch(log, model, order, epoch); err != nil {
			return report, nil, err
		}

		validVotes, err := t.predict(model, t.data.TrainArray, t.trainLengths, fold.Valid)
		if err != nil {
			return report, nil, err
		}
		f1 := crossval.MacroF1(validLabels, validVotes)
		report.EpochF1 = append(report.EpochF1, f1)
		log.Info().Int("epoch", epoch+1).Float64("f1", f1).Msg("validation")

		if f1 > best {
			best = f1
			report.BestEpoch = epoch + 1
			if err := handle.Save(model.State()); err != nil {
				return report, nil, err
			}
		}
	}
	report.BestF1 = best

	var state rnn.State
	if err := handle.Load(&state); err != nil {
		return report, nil, err
	}
	if err := model.SetState(state); err != nil {
		return report, nil, err
	}

	all := make([]int, len(t.data.TestArray))
	for i := range all {
		all[i] = i
	}
	votes, err = t.predict(model, t.data.TestArray, t.testLengths, all)
	if err != nil {
		return report, nil, err
	}
	log.Info().Int("best_epoch", report.BestEpoch).Float64("best_f1", best).Msg("fold done")
	return report, votes, nil
}

func (t *trainer) newModel(n int) (*rnn.Model, error) {
	cfg := t.cfg.Model
	cfg.Seed = t.cfg.Seed + uint64(n)
	weights := t.weights
	if !t.cfg.Pretrained {
		weights = embedding.Random(t.cfg.VocabSize, t.cfg.EmbeddingDim, 0, 1, rand.NewPCG(cfg.Seed, 0xe4b))
		cfg.TrainEmbedding = true
	}
	return rnn.New(cfg, weights)
}

// epoch runs one pass of mini-batch updates over order.
func (t *trainer) epoch(log zerolog.Logger, model *rnn.Model, order []int, epoch int) error {
	size := t.cfg.BatchSize
	batches := (len(order) + size - 1) / size
	running, iterations := 0.0, 0
	for b := range batches {
		idx := order[b*size : min((b+1)*size, len(order))]
		loss, err := model.Step(pick(t.data.TrainArray, idx), pick(t.trainLengths, idx), pick(t.data.TrainLabels, idx))
		if err != nil {
			return err
		}
		running += loss
		iterations++
		if b%logEvery == 0 {
			log.Info().
				Int("epoch", epoch+1).
				Str("batch", fmt.Sprintf("%d/%d", b+1, batches)).
				Float64("cost", running/float64(iterations)).
				Msg("train")
			running, iterations = 0, 0
		}
	}
	return nil
}

// predict votes 1 where sigmoid(logit) > 0.5 for the rows at idx, batched in order.
func (t *trainer) predict(model *rnn.Model, rows [][]int, lengths []int, idx []int) ([]int, error) {
	votes := make([]int, 0, len(idx))
	size := t.cfg.BatchSize
	for lo := 0; lo < len(idx); lo += size {
		part := idx[lo:min(lo+size, len(idx))]
		logits, err := model.Forward(pick(rows, part), pick(lengths, part))
		if err != nil {
			return nil, err
		}
		for _, z := range logits {
			v := 0
			if rnn.Sigmoid(z) > 0.5 {
				v = 1
			}
			votes = append(votes, v)
		}
	}
	return votes, nil
}

func pick[T any](xs []T, idx []int) []T {
	out := make([]T, len(idx))
	for i, j := range idx {
		out[i] = xs[j]
	}
	return out
}
