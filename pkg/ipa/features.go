// Package ipa models International Phonetic Alphabet symbols as articulatory
// feature vectors and provides the primitives the alignment engine is built
// on: a static symbol table, a pairwise phonetic distance, and a longest-match
// tokenizer for reference pronunciations.
//
// Every symbol in the table is either a [Consonant] or a [Vowel]. The two
// kinds carry different feature sets (place/manner/voicing versus
// height/backness/roundedness/length) so a consonant can never be described
// with a vowel height and vice versa.
//
// The table is immutable process-wide data. All functions in this package
// are pure and safe for concurrent use.
package ipa

import (
	"slices"
	"sort"
	"unicode/utf8"
)

// Kind is the major class of a phonetic symbol.
type Kind int

const (
	// KindConsonant marks symbols described by place, manner and voicing.
	KindConsonant Kind = iota

	// KindVowel marks symbols described by height, backness, roundedness and
	// length.
	KindVowel
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindConsonant:
		return "consonant"
	case KindVowel:
		return "vowel"
	default:
		return "unknown"
	}
}

// Features is the articulatory description of a symbol. It is implemented
// only by [Consonant] and [Vowel].
type Features interface {
	// Kind reports whether the features describe a consonant or a vowel.
	Kind() Kind

	// dims returns the four comparable dimensions in a fixed order. Unused
	// dimensions are zero.
	dims() [4]int
}

// Consonant describes a consonant.
//
// Place runs from bilabial (0) to glottal (7), Manner from plosive (0) to
// lateral approximant (4). Voicing is 0 for voiceless and 1 for voiced.
type Consonant struct {
	Place   int
	Manner  int
	Voicing int
}

// Kind implements [Features].
func (Consonant) Kind() Kind { return KindConsonant }

func (c Consonant) dims() [4]int { return [4]int{c.Place, c.Manner, c.Voicing, 0} }

// Vowel describes a vowel, diphthong or rhotic vowel.
//
// Height runs from close (0) to open (4), Backness from front (0) to back
// (3). Rounded is 0 or 1. Length is 0 for short, 1 for long, 2 for
// rhoticised and 3 for diphthongs.
type Vowel struct {
	Height   int
	Backness int
	Rounded  int
	Length   int
}

// Kind implements [Features].
func (Vowel) Kind() Kind { return KindVowel }

func (v Vowel) dims() [4]int { return [4]int{v.Height, v.Backness, v.Rounded, v.Length} }

// symbolTable is the static symbol → features mapping. It must never be
// mutated after package initialisation.
var symbolTable = map[string]Features{
	// Monophthongs
	"ɪ":  Vowel{Height: 0, Backness: 1},
	"i":  Vowel{},
	"iː": Vowel{Length: 1},
	"ɛ":  Vowel{Height: 2},
	"e":  Vowel{Height: 1},
	"æ":  Vowel{Height: 3},
	"ə":  Vowel{Height: 2, Backness: 1},
	"ɚ":  Vowel{Height: 2, Backness: 1, Length: 1},
	"ɐ":  Vowel{Height: 3, Backness: 1},
	"ʌ":  Vowel{Height: 2, Backness: 2},
	"ɑ":  Vowel{Height: 4, Backness: 2},
	"ɑː": Vowel{Height: 4, Backness: 2, Length: 1},
	"ɒ":  Vowel{Height: 4, Backness: 2, Rounded: 1},
	"ɔ":  Vowel{Height: 3, Backness: 2, Rounded: 1},
	"ɔː": Vowel{Height: 3, Backness: 2, Rounded: 1, Length: 1},
	"ʊ":  Vowel{Height: 0, Backness: 3, Rounded: 1},
	"u":  Vowel{Height: 0, Backness: 2, Rounded: 1},
	"uː": Vowel{Height: 0, Backness: 2, Rounded: 1, Length: 1},
	"ᵻ":  Vowel{Height: 0, Backness: 1},
	"o":  Vowel{Height: 2, Backness: 2, Rounded: 1},
	"a":  Vowel{Height: 4},
	"y":  Vowel{Rounded: 1},
	"ø":  Vowel{Height: 1, Rounded: 1},
	"œ":  Vowel{Height: 2, Rounded: 1},
	"ɯ":  Vowel{Height: 0, Backness: 2},

	// Diphthongs. aʊ and oʊ are deliberately placed close together.
	"eɪ": Vowel{Height: 1, Length: 3},
	"aɪ": Vowel{Height: 4, Length: 3},
	"ɔɪ": Vowel{Height: 3, Backness: 2, Rounded: 1, Length: 3},
	"aʊ": Vowel{Height: 3, Backness: 2, Rounded: 1, Length: 3},
	"oʊ": Vowel{Height: 2, Backness: 2, Rounded: 1, Length: 3},
	"əʊ": Vowel{Height: 2, Backness: 1, Length: 3},

	// Rhotic vowels
	"ɑːɹ": Vowel{Height: 4, Backness: 2, Length: 2},
	"ɔːɹ": Vowel{Height: 3, Backness: 2, Rounded: 1, Length: 2},
	"ɝ":   Vowel{Height: 2, Backness: 1, Length: 2},

	// Consonants
	"p": Consonant{Place: 0, Manner: 0, Voicing: 0},
	"b": Consonant{Place: 0, Manner: 0, Voicing: 1},
	"t": Consonant{Place: 3, Manner: 0, Voicing: 0},
	"d": Consonant{Place: 3, Manner: 0, Voicing: 1},
	"k": Consonant{Place: 6, Manner: 0, Voicing: 0},
	"ɡ": Consonant{Place: 6, Manner: 0, Voicing: 1},
	"g": Consonant{Place: 6, Manner: 0, Voicing: 1},
	"f": Consonant{Place: 1, Manner: 2, Voicing: 0},
	"v": Consonant{Place: 1, Manner: 2, Voicing: 1},
	"θ": Consonant{Place: 2, Manner: 2, Voicing: 0},
	"ð": Consonant{Place: 2, Manner: 2, Voicing: 1},
	"s": Consonant{Place: 3, Manner: 2, Voicing: 0},
	"z": Consonant{Place: 3, Manner: 2, Voicing: 1},
	"ʃ": Consonant{Place: 4, Manner: 2, Voicing: 0},
	"ʒ": Consonant{Place: 4, Manner: 2, Voicing: 1},
	"h": Consonant{Place: 7, Manner: 2, Voicing: 0},
	"m": Consonant{Place: 0, Manner: 1, Voicing: 1},
	"n": Consonant{Place: 3, Manner: 1, Voicing: 1},
	"ŋ": Consonant{Place: 6, Manner: 1, Voicing: 1},
	"l": Consonant{Place: 3, Manner: 4, Voicing: 1},
	"ɹ": Consonant{Place: 3, Manner: 3, Voicing: 1},
	"r": Consonant{Place: 3, Manner: 3, Voicing: 1},
	"j": Consonant{Place: 5, Manner: 3, Voicing: 1},
	"w": Consonant{Place: 0, Manner: 3, Voicing: 1},

	// Affricates
	"tʃ": Consonant{Place: 4, Manner: 0, Voicing: 0},
	"dʒ": Consonant{Place: 4, Manner: 0, Voicing: 1},

	// Syllabic consonants are scored as schwa.
	"əl": Vowel{Height: 2, Backness: 1},
	"ən": Vowel{Height: 2, Backness: 1},
}

// multiCharSymbols holds every table symbol longer than one rune, sorted
// longest first. Built once at init.
var multiCharSymbols = buildMultiChar(symbolTable)

func buildMultiChar(table map[string]Features) []string {
	out := make([]string, 0, 16)
	for sym := range table {
		if utf8.RuneCountInString(sym) > 1 {
			out = append(out, sym)
		}
	}
	sortLongestFirst(out)
	return out
}

// sortLongestFirst orders symbols by descending rune count. Symbols of equal
// length are ordered lexically so the result is deterministic.
func sortLongestFirst(symbols []string) {
	sort.Slice(symbols, func(i, j int) bool {
		li, lj := utf8.RuneCountInString(symbols[i]), utf8.RuneCountInString(symbols[j])
		if li != lj {
			return li > lj
		}
		return symbols[i] < symbols[j]
	})
}

// Lookup returns the features of sym. ok is false for symbols not in the
// table.
func Lookup(sym string) (f Features, ok bool) {
	f, ok = symbolTable[sym]
	return f, ok
}

// Known reports whether sym is in the symbol table.
func Known(sym string) bool {
	_, ok := symbolTable[sym]
	return ok
}

// Symbols returns all table symbols in lexical order. The returned slice is
// a fresh copy.
func Symbols() []string {
	out := make([]string, 0, len(symbolTable))
	for sym := range symbolTable {
		out = append(out, sym)
	}
	slices.Sort(out)
	return out
}

// MultiCharSymbols returns the table symbols longer than one rune, longest
// first. The returned slice is a fresh copy.
func MultiCharSymbols() []string {
	return slices.Clone(multiCharSymbols)
}
