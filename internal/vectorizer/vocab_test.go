package vectorizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVocabulary(t *testing.T) {
	input := []string{"why", "do", "why", "cats", "do"}
	vocab, err := NewVocabulary(input)
	require.NoError(t, err)

	assert.Equal(t, []string{PadToken, "why", "do", "cats"}, vocab.Tokens())
	assert.Equal(t, 4, vocab.Size())
	assert.Equal(t, []string{"why", "do", "why", "cats", "do"}, input, "input must not change")

	idx, ok := vocab.Index("cats")
	assert.True(t, ok)
	assert.Equal(t, 3, idx)
	assert.Equal(t, "cats", vocab.Token(idx))

	_, ok = vocab.Index("dogs")
	assert.False(t, ok)
}

func TestNewVocabularyEmpty(t *testing.T) {
	vocab, err := NewVocabulary(nil)
	require.NoError(t, err)
	assert.Equal(t, 1, vocab.Size())
	assert.Equal(t, PadToken, vocab.Token(PadIndex))
}

func TestNewVocabularyReservedToken(t *testing.T) {
	_, err := NewVocabulary([]string{"a", PadToken})
	assert.ErrorIs(t, err, ErrReservedToken)
}

func TestVectorize(t *testing.T) {
	vocab, err := NewVocabulary([]string{"how", "are", "you", "fine"})
	require.NoError(t, err)

	train := [][]string{{"how", "are", "you"}, {"fine"}}
	test := [][]string{{"you", "are", "fine", "how"}}
	ds, err := Vectorize(vocab, train, []int{0, 1}, test)
	require.NoError(t, err)

	assert.Equal(t, 4, ds.PadLength)
	assert.Equal(t, [][]int{{1, 2, 3, 0}, {4, 0, 0, 0}}, ds.TrainArray)
	assert.Equal(t, [][]int{{3, 2, 4, 1}}, ds.TestArray)
	assert.Equal(t, []int{0, 1}, ds.TrainLabels)

	for i, row := range ds.TrainArray {
		assert.Equal(t, train[i], vocab.Decode(row))
	}
}

func TestVectorizeEmptySequences(t *testing.T) {
	vocab, err := NewVocabulary(nil)
	require.NoError(t, err)

	ds, err := Vectorize(vocab, [][]string{{}}, []int{1}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, ds.PadLength)
	assert.Equal(t, [][]int{{0}}, ds.TrainArray)
	assert.Empty(t, ds.TestArray)
}

func TestVectorizeUnknownToken(t *testing.T) {
	vocab, err := NewVocabulary([]string{"known"})
	require.NoError(t, err)

	_, err = Vectorize(vocab, [][]string{{"known"}}, []int{0}, [][]string{{"unknown"}})
	assert.ErrorIs(t, err, ErrUnknownToken)
}

func TestVectorizeLabelMismatch(t *testing.T) {
	vocab, err := NewVocabulary([]string{"a"})
	require.NoError(t, err)

	_, err = Vectorize(vocab, [][]string{{"a"}}, nil, nil)
	assert.Error(t, err)
}

func TestLengths(t *testing.T) {
	rows := [][]int{{1, 2, 3, 0}, {4, 0, 0, 0}, {0, 0, 0, 0}}
	assert.Equal(t, []int{3, 1, 1}, Lengths(rows))
}
