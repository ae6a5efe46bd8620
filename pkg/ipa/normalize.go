package ipa

import "strings"

// DefaultStripSymbols are the primary and secondary stress marks. Reference
// transcriptions usually carry them while recognised phoneme streams do not.
var DefaultStripSymbols = []string{"ˈ", "ˌ"}

// Normalizer removes a fixed set of marks from IPA text before it is
// tokenised or compared. The zero value removes nothing.
type Normalizer struct {
	replacer *strings.Replacer
}

// NewNormalizer returns a Normalizer that deletes every occurrence of the
// given symbols. Empty entries are ignored.
func NewNormalizer(strip ...string) Normalizer {
	pairs := make([]string, 0, 2*len(strip))
	for _, s := range strip {
		if s != "" {
			pairs = append(pairs, s, "")
		}
	}
	if len(pairs) == 0 {
		return Normalizer{}
	}
	return Normalizer{replacer: strings.NewReplacer(pairs...)}
}

// String returns s with the configured marks removed.
func (n Normalizer) String(s string) string {
	if n.replacer == nil {
		return s
	}
	return n.replacer.Replace(s)
}

// Tokens normalises each token and drops those that become empty.
func (n Normalizer) Tokens(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		t = strings.TrimSpace(n.String(t))
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// ParsePhonemes splits a whitespace-delimited recognised phoneme string into
// its tokens, preserving order.
func ParsePhonemes(s string) []string {
	return strings.Fields(s)
}
