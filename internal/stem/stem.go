package stem

import (
	"strings"
	"unicode/utf8"

	"github.com/kljensen/snowball/english"
	porterstemmer "github.com/reiver/go-porterstemmer"
)

// Porter returns the Porter stem of word. Words shorter than three letters
// are only lowercased.
func Porter(word string) string {
	word = strings.ToLower(word)
	if utf8.RuneCountInString(word) < 3 {
		return word
	}
	return porterstemmer.StemString(word)
}

// Snowball returns the English Snowball stem of word.
func Snowball(word string) string {
	return english.Stem(strings.ToLower(word), true)
}

var lancaster = NewLancaster()

// LancasterStem returns the Paice/Husk stem of word using the standard rules.
func LancasterStem(word string) string {
	return lancaster.Stem(word)
}
