// Package textutil cleans and tokenizes question text.
package textutil

import (
	"regexp"
	"strings"

	"github.com/happyhackingspace/insincere/internal/htmlutil"
)

var (
	newlineRe    = regexp.MustCompile(`[\n\r]`)
	multiSpaceRe = regexp.MustCompile(`\s{2,}`)
)

// NormalizeWhitespaces replaces newlines and multiple whitespace with a single space.
func NormalizeWhitespaces(text string) string {
	text = newlineRe.ReplaceAllString(text, " ")
	return multiSpaceRe.ReplaceAllString(text, " ")
}

var (
	digitsRe      = regexp.MustCompile(`\p{Nd}+`)
	capitalisedRe = regexp.MustCompile(`[A-Z][a-z]+`)
)

// asciiPunctuation drops every ASCII punctuation character.
var asciiPunctuation = strings.NewReplacer(
	"!", "", `"`, "", "#", "", "$", "", "%", "", "&", "", "'", "", "(", "", ")", "",
	"*", "", "+", "", ",", "", "-", "", ".", "", "/", "", ":", "", ";", "", "<", "",
	"=", "", ">", "", "?", "", "@", "", "[", "", `\`, "", "]", "", "^", "", "_", "",
	"`", "", "{", "", "|", "", "}", "", "~", "",
)

// Clean prepares raw question text for tokenization: markup is removed,
// contractions are expanded, ASCII punctuation is dropped, digit runs become
// "#" and Capitalised words are lowercased while ALL-CAPS words are kept.
func Clean(text string) string {
	text = htmlutil.StripTags(text)
	text = ExpandContractions(text)
	text = asciiPunctuation.Replace(text)
	text = digitsRe.ReplaceAllString(text, "#")
	text = capitalisedRe.ReplaceAllStringFunc(text, strings.ToLower)
	return NormalizeWhitespaces(text)
}

var symbolRe = regexp.MustCompile(`[;@#$%&]`)

// Tokenize splits cleaned text on whitespace, makes each of ; @ # $ % & a
// token of its own and separates the fused forms cannot, gimme, gonna,
// gotta, lemme and wanna.
func Tokenize(text string) []string {
	fields := strings.Fields(symbolRe.ReplaceAllString(text, " $0 "))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		tokens = append(tokens, splitFused(f)...)
	}
	return tokens
}

var fused = map[string]int{
	"cannot": 3,
	"gimme":  3,
	"gonna":  3,
	"gotta":  3,
	"lemme":  3,
	"wanna":  3,
}

func splitFused(word string) []string {
	if at, ok := fused[strings.ToLower(word)]; ok {
		return []string{word[:at], word[at:]}
	}
	return []string{word}
}

// CleanTokens is Clean followed by Tokenize.
func CleanTokens(text string) []string {
	return Tokenize(Clean(text))
}
