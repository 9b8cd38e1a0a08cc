// Package classifier trains recurrent question classifiers with stratified
// k-fold cross-validation and averages their test predictions.
package classifier

import (
	"fmt"

	"github.com/happyhackingspace/insincere/rnn"
)

// Config holds cross-validation hyper-parameters.
type Config struct {
	Folds         int
	Epochs        int
	BatchSize     int
	Threshold     float64 // final decision cutoff on the averaged fold votes
	Seed          uint64
	CheckpointDir string // empty means the OS temp dir

	// Pretrained selects the aligned embedding. Otherwise every fold draws a
	// fresh N(0, 1) trainable embedding of VocabSize × EmbeddingDim.
	Pretrained   bool
	VocabSize    int
	EmbeddingDim int

	Model rnn.Config
}

// DefaultConfig returns the reference settings.
func DefaultConfig() Config {
	return Config{
		Folds:        5,
		Epochs:       3,
		BatchSize:    512,
		Threshold:    0.5,
		Seed:         1234,
		Pretrained:   true,
		EmbeddingDim: 600,
		Model:        rnn.DefaultConfig(),
	}
}

// Validate reports settings cross-validation cannot run with.
func (c Config) Validate() error {
	switch {
	case c.Folds < 2:
		return fmt.Errorf("classifier: need at least 2 folds, got %d", c.Folds)
	case c.Epochs < 1:
		return fmt.Errorf("classifier: need at least 1 epoch, got %d", c.Epochs)
	case c.BatchSize < 1:
		return fmt.Errorf("classifier: batch size must be positive, got %d", c.BatchSize)
	case c.Threshold < 0 || c.Threshold > 1:
		return fmt.Errorf("classifier: threshold %v outside [0, 1]", c.Threshold)
	case !c.Pretrained && (c.VocabSize < 1 || c.EmbeddingDim < 1):
		return fmt.Errorf("classifier: fresh embedding needs vocabulary size and dimension")
	}
	return nil
}
