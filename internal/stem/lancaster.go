// Package stem provides the Porter, Lancaster and Snowball stemmers used for embedding lookups.
package stem

import (
	"strings"
	"unicode"
)

type rule struct {
	ending     string // already reversed back to its natural order
	intactOnly bool
	remove     int
	appendix   string
	stop       bool
}

// Rules use the classic Paice/Husk notation: reversed ending, optional '*'
// (word must be untouched), characters to remove, optional suffix to append,
// then '>' to continue or '.' to stop.
var defaultRules = []string{
	"ai*2.", "a*1.",
	"bb1.",
	"city3s.", "ci2>", "cn1t>",
	"dd1.", "dei3y>", "deec2ss.", "dee1.", "de2>", "dooh4>",
	"e1>",
	"feil1v.", "fi2>",
	"gni3>", "gai3y.", "ga2>", "gg1.",
	"ht*2.", "hsiug5ct.", "hsi3>",
	"i*1.", "i1y>",
	"ji1d.", "juf1s.", "ju1d.", "jo1d.", "jeh1r.", "jrev1t.", "jsim2t.", "jn1d.", "j1s.",
	"lbaifi6.", "lbai4y.", "lba3>", "lbi3.", "lib2l>", "lc1.", "lufi4y.", "luf3>", "lu2.", "lai3>", "lau3>", "la2>", "ll1.",
	"mui3.", "mu*2.", "msi3>", "mm1.",
	"nois4j>", "noix4ct.", "noi3>", "nai3>", "na2>", "nee0.", "ne2>", "nn1.",
	"pihs4>", "pp1.",
	"re2>", "rae0.", "ra2.", "ro2>", "ru2>", "rr1.", "rt1>", "rei3y>",
	"sei3y>", "sis2.", "si2>", "ssen4>", "ss0.", "suo3>", "su*2.", "s*1>", "s0.",
	"tacilp4y.", "ta2>", "tnem4>", "tne3>", "tna3>", "tpir2b.", "tpro2b.", "tcud1.", "tpmus2.", "tpec2iv.", "tulo2v.", "tsis0.", "tsi3>", "tt1.",
	"uqi3.", "ugo1.",
	"vis3j>", "vie0.", "vi2>",
	"ylb1>", "yli3y>", "ylp0.", "yl2>", "ygo1.", "yhp1.", "ymo1.", "ypo1.", "yti3>", "yte3>", "ytl2.", "yrtsi5.", "yra3>", "yro3>", "yfi3.", "ycn2t>", "yca3>",
	"zi2>", "zy1s.",
}

// Lancaster is a Paice/Husk stemmer. The zero value is not usable; use NewLancaster.
type Lancaster struct {
	rules map[rune][]rule
}

// NewLancaster returns a stemmer loaded with the standard rule table.
func NewLancaster() *Lancaster {
	l := &Lancaster{rules: make(map[rune][]rule)}
	for _, raw := range defaultRules {
		r, ok := parseRule(raw)
		if !ok {
			panic("stem: malformed lancaster rule " + raw)
		}
		key := rune(raw[0])
		l.rules[key] = append(l.rules[key], r)
	}
	return l
}

func parseRule(raw string) (rule, bool) {
	var r rule
	i := 0
	for i < len(raw) && raw[i] >= 'a' && raw[i] <= 'z' {
		i++
	}
	if i == 0 {
		return r, false
	}
	r.ending = reverse(raw[:i])
	if i < len(raw) && raw[i] == '*' {
		r.intactOnly = true
		i++
	}
	if i >= len(raw) || raw[i] < '0' || raw[i] > '9' {
		return r, false
	}
	r.remove = int(raw[i] - '0')
	i++
	j := i
	for j < len(raw) && raw[j] >= 'a' && raw[j] <= 'z' {
		j++
	}
	r.appendix = raw[i:j]
	switch raw[j:] {
	case ".":
		r.stop = true
	case ">", "":
	default:
		return r, false
	}
	return r, true
}

// Stem lowercases word and strips suffixes until no rule applies or a stop rule fires.
func (l *Lancaster) Stem(word string) string {
	word = strings.ToLower(word)
	intact := word
	for {
		w := []rune(word)
		last := lastLetter(w)
		if last < 0 {
			return word
		}
		candidates, ok := l.rules[w[last]]
		if !ok {
			return word
		}

		applied := false
		stop := false
		for _, r := range candidates {
			if !strings.HasSuffix(word, r.ending) {
				continue
			}
			if r.intactOnly && word != intact {
				continue
			}
			if !acceptable(w, r.remove) {
				continue
			}
			word = string(w[:len(w)-r.remove]) + r.appendix
			applied = true
			stop = r.stop
			break
		}
		if !applied || stop {
			return word
		}
	}
}

// lastLetter returns the position of the last letter in the leading run of letters.
func lastLetter(w []rune) int {
	last := -1
	for i, r := range w {
		if !unicode.IsLetter(r) {
			break
		}
		last = i
	}
	return last
}

func acceptable(w []rune, remove int) bool {
	left := len(w) - remove
	if len(w) == 0 {
		return false
	}
	if isVowel(w[0]) {
		return left >= 2
	}
	if left < 3 {
		return false
	}
	return isVowel(w[1]) || isVowel(w[2])
}

func isVowel(r rune) bool {
	return strings.ContainsRune("aeiouy", r)
}

func reverse(s string) string {
	b := []byte(s)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}
