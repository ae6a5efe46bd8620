package ipa

import (
	"slices"
	"strings"
	"unicode/utf8"
)

// Tokenizer splits IPA text into symbols using greedy longest-match against a
// fixed set of multi-character symbols. A Tokenizer is immutable and safe for
// concurrent use.
type Tokenizer struct {
	// multi is sorted longest first.
	multi []string
}

var defaultTokenizer = &Tokenizer{multi: multiCharSymbols}

// DefaultTokenizer returns the tokenizer built from the multi-character
// symbols of the symbol table.
func DefaultTokenizer() *Tokenizer { return defaultTokenizer }

// NewTokenizer returns a Tokenizer that recognises the given multi-character
// symbols. Single-rune and empty entries are ignored since any single rune is
// consumed on its own anyway. Duplicates are removed.
func NewTokenizer(symbols ...string) *Tokenizer {
	multi := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if utf8.RuneCountInString(s) > 1 && !slices.Contains(multi, s) {
			multi = append(multi, s)
		}
	}
	sortLongestFirst(multi)
	return &Tokenizer{multi: multi}
}

// Tokenize splits text into whitespace-delimited words and each word into
// symbols. Every rune of the input (other than whitespace) ends up in exactly
// one symbol. Unrecognised runes are emitted as single-rune symbols.
func (t *Tokenizer) Tokenize(text string) [][]string {
	words := strings.Fields(text)
	out := make([][]string, 0, len(words))
	for _, w := range words {
		out = append(out, t.TokenizeWord(w))
	}
	return out
}

// TokenizeWord splits a single word (no whitespace) into symbols.
func (t *Tokenizer) TokenizeWord(word string) []string {
	syms := make([]string, 0, utf8.RuneCountInString(word))
	for i := 0; i < len(word); {
		n := t.matchAt(word[i:])
		syms = append(syms, word[i:i+n])
		i += n
	}
	return syms
}

// matchAt returns the byte length of the symbol starting at the beginning of
// s: the longest known multi-character prefix, or one rune.
func (t *Tokenizer) matchAt(s string) int {
	for _, m := range t.multi {
		if strings.HasPrefix(s, m) {
			return len(m)
		}
	}
	_, size := utf8.DecodeRuneInString(s)
	return size
}

// Tokenize splits text using [DefaultTokenizer].
func Tokenize(text string) [][]string {
	return defaultTokenizer.Tokenize(text)
}
