// Package vectorizer turns token sequences into right-padded word-index arrays.
package vectorizer

import (
	"errors"
	"fmt"
)

// PadToken is the reserved token stored at PadIndex.
const PadToken = "XXPADXX"

// PadIndex is the word index used for padding.
const PadIndex = 0

var (
	// ErrUnknownToken is returned when a sequence holds a token missing from the vocabulary.
	ErrUnknownToken = errors.New("vectorizer: token not in vocabulary")
	// ErrReservedToken is returned when the corpus itself contains PadToken.
	ErrReservedToken = errors.New("vectorizer: corpus contains the reserved pad token")
)

// Vocabulary is an ordered, padded token list. The position of a token is its word index.
type Vocabulary struct {
	tokens []string
	index  map[string]int
}

// NewVocabulary builds a padded vocabulary from corpus tokens. Duplicates keep
// their first position. The input slice is not modified.
func NewVocabulary(tokens []string) (*Vocabulary, error) {
	v := &Vocabulary{
		tokens: make([]string, 1, len(tokens)+1),
		index:  make(map[string]int, len(tokens)+1),
	}
	v.tokens[PadIndex] = PadToken
	v.index[PadToken] = PadIndex

	for _, tok := range tokens {
		if tok == PadToken {
			return nil, fmt.Errorf("%w: %q", ErrReservedToken, tok)
		}
		if _, ok := v.index[tok]; ok {
			continue
		}
		v.index[tok] = len(v.tokens)
		v.tokens = append(v.tokens, tok)
	}
	return v, nil
}

// Size returns the number of entries including the pad token.
func (v *Vocabulary) Size() int {
	return len(v.tokens)
}

// Index returns the word index of tok.
func (v *Vocabulary) Index(tok string) (int, bool) {
	idx, ok := v.index[tok]
	return idx, ok
}

// Token returns the token stored at word index i.
func (v *Vocabulary) Token(i int) string {
	return v.tokens[i]
}

// Tokens returns a copy of the ordered token list.
func (v *Vocabulary) Tokens() []string {
	out := make([]string, len(v.tokens))
	copy(out, v.tokens)
	return out
}

// Decode maps an index row back to tokens, stopping at the first pad index.
func (v *Vocabulary) Decode(row []int) []string {
	out := make([]string, 0, len(row))
	for _, idx := range row {
		if idx == PadIndex {
			break
		}
		out = append(out, v.tokens[idx])
	}
	return out
}
