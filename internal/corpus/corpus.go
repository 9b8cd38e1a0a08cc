// Package corpus turns raw questions into the token sequences and vocabulary
// the classifier trains on.
package corpus

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/iter"

	"github.com/happyhackingspace/insincere/internal/storage"
	"github.com/happyhackingspace/insincere/internal/textutil"
)

// Corpus is the tokenized input of one run.
type Corpus struct {
	Vocabulary []string
	Train      [][]string
	Labels     []int
	Test       [][]string
	TrainIDs   []string
	TestIDs    []string
}

// Provider supplies a corpus.
type Provider interface {
	Provide(ctx context.Context) (*Corpus, error)
}

// Provide returns c itself, so an in-memory corpus is its own provider.
func (c *Corpus) Provide(ctx context.Context) (*Corpus, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c, c.Validate()
}

// Validate checks that parallel slices agree and labels are 0 or 1.
func (c *Corpus) Validate() error {
	if len(c.Train) != len(c.Labels) {
		return fmt.Errorf("corpus: %d train sequences but %d labels", len(c.Train), len(c.Labels))
	}
	if c.TrainIDs != nil && len(c.TrainIDs) != len(c.Train) {
		return fmt.Errorf("corpus: %d train ids for %d sequences", len(c.TrainIDs), len(c.Train))
	}
	if c.TestIDs != nil && len(c.TestIDs) != len(c.Test) {
		return fmt.Errorf("corpus: %d test ids for %d sequences", len(c.TestIDs), len(c.Test))
	}
	for i, l := range c.Labels {
		if l != 0 && l != 1 {
			return fmt.Errorf("corpus: train row %d: label %d is not 0 or 1", i, l)
		}
	}
	return nil
}

// MinTextLength is the shortest train text, in characters, that is kept.
const MinTextLength = 3

// FileProvider reads train.csv and test.csv from a data folder.
type FileProvider struct {
	Storage   *storage.Storage
	TrainSize int // 0 reads every row
	TestSize  int
	Log       zerolog.Logger
}

// Provide reads, cleans and tokenizes both files and builds the vocabulary
// from train tokens followed by test tokens in first-seen order.
func (p *FileProvider) Provide(ctx context.Context) (*Corpus, error) {
	train, err := p.Storage.ReadTrain(p.TrainSize)
	if err != nil {
		return nil, fmt.Errorf("corpus: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	test, err := p.Storage.ReadTest(p.TestSize)
	if err != nil {
		return nil, fmt.Errorf("corpus: %w", err)
	}

	kept := train[:0:0]
	for _, q := range train {
		if utf8.RuneCountInString(q.Text) < MinTextLength {
			continue
		}
		kept = append(kept, q)
	}
	p.Log.Info().
		Int("train", len(kept)).
		Int("dropped", len(train)-len(kept)).
		Int("test", len(test)).
		Msg("questions read")

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := &Corpus{
		Train:    p.tokenize(kept),
		Test:     p.tokenize(test),
		Labels:   make([]int, len(kept)),
		TrainIDs: make([]string, len(kept)),
		TestIDs:  make([]string, len(test)),
	}
	for i, q := range kept {
		c.Labels[i] = q.Label
		c.TrainIDs[i] = q.ID
	}
	for i, q := range test {
		c.TestIDs[i] = q.ID
	}
	c.Vocabulary = Vocabulary(c.Train, c.Test)

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (p *FileProvider) tokenize(qs []storage.Question) [][]string {
	seqs := iter.Map(qs, func(q *storage.Question) []string {
		return textutil.CleanTokens(q.Text)
	})
	for i, s := range seqs {
		if len(s) == 0 {
			p.Log.Debug().Str("qid", qs[i].ID).Msg("question has no tokens")
		}
	}
	return seqs
}

// Vocabulary returns the distinct tokens of every sequence in first-seen order.
func Vocabulary(sets ...[][]string) []string {
	seen := make(map[string]struct{})
	var vocab []string
	for _, set := range sets {
		for _, seq := range set {
			for _, tok := range seq {
				if _, ok := seen[tok]; ok {
					continue
				}
				seen[tok] = struct{}{}
				vocab = append(vocab, tok)
			}
		}
	}
	return vocab
}
