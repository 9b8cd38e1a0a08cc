package vectorizer

import (
	"fmt"
)

// Dataset holds the padded arrays fed to the sequence model. Treat it as read-only.
type Dataset struct {
	TrainArray  [][]int
	TrainLabels []int
	TestArray   [][]int
	PadLength   int
}

// Vectorize converts train and test sequences into arrays that share one
// padding width: the longest sequence across both sets.
func Vectorize(vocab *Vocabulary, train [][]string, labels []int, test [][]string) (*Dataset, error) {
	if len(train) != len(labels) {
		return nil, fmt.Errorf("vectorizer: %d train sequences but %d labels", len(train), len(labels))
	}

	padLength := max(MaxLength(train), MaxLength(test), 1)

	trainArray, err := Encode(vocab, train, padLength)
	if err != nil {
		return nil, fmt.Errorf("encode train: %w", err)
	}
	testArray, err := Encode(vocab, test, padLength)
	if err != nil {
		return nil, fmt.Errorf("encode test: %w", err)
	}

	trainLabels := make([]int, len(labels))
	copy(trainLabels, labels)

	return &Dataset{
		TrainArray:  trainArray,
		TrainLabels: trainLabels,
		TestArray:   testArray,
		PadLength:   padLength,
	}, nil
}

// Encode maps every sequence to a row of word indices right-padded with PadIndex.
func Encode(vocab *Vocabulary, seqs [][]string, padLength int) ([][]int, error) {
	rows := make([][]int, len(seqs))
	for i, seq := range seqs {
		if len(seq) > padLength {
			return nil, fmt.Errorf("vectorizer: sequence %d has %d tokens, pad length is %d", i, len(seq), padLength)
		}
		row := make([]int, padLength)
		for j, tok := range seq {
			idx, ok := vocab.Index(tok)
			if !ok {
				return nil, fmt.Errorf("%w: %q in sequence %d", ErrUnknownToken, tok, i)
			}
			row[j] = idx
		}
		rows[i] = row
	}
	return rows, nil
}

// MaxLength returns the longest sequence length.
func MaxLength(seqs [][]string) int {
	longest := 0
	for _, seq := range seqs {
		longest = max(longest, len(seq))
	}
	return longest
}

// Lengths counts the non-pad entries of each row. A row holding only padding
// reports length 1 so that it still occupies one recurrent step.
func Lengths(rows [][]int) []int {
	lengths := make([]int, len(rows))
	for i, row := range rows {
		n := 0
		for _, idx := range row {
			if idx != PadIndex {
				n++
			}
		}
		lengths[i] = max(n, 1)
	}
	return lengths
}
