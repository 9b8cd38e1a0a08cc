// Package embedding aligns a corpus vocabulary with pretrained word vectors.
package embedding

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/happyhackingspace/insincere/internal/stem"
)

// Transform is a string rewrite tried when a token has no exact match.
type Transform int

// Transforms in lookup priority order.
const (
	Exact Transform = iota
	Lower
	Upper
	Capitalize
	Porter
	Lancaster
	Snowball
)

// Transforms lists every transform in the order Align tries them.
var Transforms = []Transform{Exact, Lower, Upper, Capitalize, Porter, Lancaster, Snowball}

var transformNames = [...]string{"exact", "lower", "upper", "capitalize", "porter", "lancaster", "snowball"}

func (t Transform) String() string {
	if t < 0 || int(t) >= len(transformNames) {
		return "unknown"
	}
	return transformNames[t]
}

// Apply rewrites word.
func (t Transform) Apply(word string) string {
	switch t {
	case Exact:
		return word
	case Lower:
		return strings.ToLower(word)
	case Upper:
		return strings.ToUpper(word)
	case Capitalize:
		return capitalize(word)
	case Porter:
		return stem.Porter(word)
	case Lancaster:
		return stem.LancasterStem(word)
	case Snowball:
		return stem.Snowball(word)
	}
	return word
}

// capitalize upper-cases the first rune and lower-cases the rest.
func capitalize(word string) string {
	r, size := utf8.DecodeRuneInString(word)
	if r == utf8.RuneError {
		return strings.ToLower(word)
	}
	return string(unicode.ToTitle(r)) + strings.ToLower(word[size:])
}

// Candidates returns every lookup key Align may try for words.
func Candidates(words []string) map[string]struct{} {
	keys := make(map[string]struct{}, len(words)*2)
	for _, w := range words {
		for _, t := range Transforms {
			keys[t.Apply(w)] = struct{}{}
		}
	}
	return keys
}
