// Package types defines the shared wire types used across all phonexa packages.
//
// These types form the lingua franca between the analysis service, the
// attempt store, the HTTP API and the CLI. They are kept minimal.
// Each package defines its own domain types, but cross-cutting data
// structures live here to avoid circular imports.
package types

// WordAlignment is the per-word output of a pronunciation analysis.
//
// A successful analysis yields one WordAlignment per reference word, in
// sentence order. When the recognised phonemes cannot be segmented, the
// analysis yields exactly one WordAlignment whose Error is set and whose
// other fields are zero.
type WordAlignment struct {
	// ReferenceWordText is the sentence word this entry belongs to. Empty
	// when the sentence has fewer words than its IPA transcription.
	ReferenceWordText string `json:"reference_word_text"`

	// ReferencePhonemes is the reference word's symbols joined without
	// separators (e.g. "kæt").
	ReferencePhonemes string `json:"reference_phonemes"`

	// UserPhonemes is the recognised segment assigned to the word, joined
	// without separators.
	UserPhonemes string `json:"user_phonemes"`

	// SimilarityScore is the 0–100 pronunciation score of the word.
	SimilarityScore float64 `json:"similarity_score"`

	// Error marks the failure entry. Empty on success.
	Error string `json:"error,omitempty"`
}

// Failed reports whether w is the failure entry.
func (w WordAlignment) Failed() bool { return w.Error != "" }

// Analysis is the complete result of scoring one utterance of a sentence.
type Analysis struct {
	// SentenceArray is the sentence split into words, punctuation trimmed.
	SentenceArray []string `json:"sentence_array"`

	// SentencePhonemeArray is the normalised reference IPA, one entry per
	// word.
	SentencePhonemeArray []string `json:"sentence_phoneme_array"`

	// UserPhonemeArray is the normalised recognised phoneme stream.
	UserPhonemeArray []string `json:"user_phoneme_array"`

	// Alignment holds the per-word results, or a single failure entry.
	Alignment []WordAlignment `json:"alignment"`

	// OverallSimilarity is the mean SimilarityScore over all words; 0 on
	// failure or when the sentence has no words.
	OverallSimilarity float64 `json:"overall_similarity"`
}

// Failed reports whether the alignment could not be computed.
func (a Analysis) Failed() bool {
	return len(a.Alignment) == 1 && a.Alignment[0].Failed()
}
