package analysis

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// Sentinel errors returned by [Service.Analyze]. Callers should test with
// errors.Is; the returned errors carry detail.
var (
	// ErrEmptySentence means neither a sentence nor its IPA was supplied.
	ErrEmptySentence = errors.New("sentence and sentence_ipa are empty")

	// ErrInvalidRequest means the request is malformed.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrInputTooLarge means the request exceeds the configured limits.
	ErrInputTooLarge = errors.New("input too large")
)

// Request is one utterance to score.
type Request struct {
	// Sentence is the reference sentence text, e.g. "The cat sat."
	Sentence string `json:"sentence"`

	// SentenceIPA is its IPA transcription with words separated by
	// whitespace, e.g. "ðə kæt sæt".
	SentenceIPA string `json:"sentence_ipa"`

	// Phonemes is the recognised phoneme stream as whitespace-delimited
	// symbols, e.g. "d ə k æ t". Mutually exclusive with PhonemeTokens.
	Phonemes string `json:"phonemes,omitempty"`

	// PhonemeTokens is the recognised phoneme stream as a list. An empty
	// list counts as absent.
	PhonemeTokens []string `json:"phoneme_tokens,omitempty"`

	// SessionID, when set, records the attempt in the session's history.
	SessionID string `json:"session_id,omitempty"`
}

func (r Request) validate() error {
	if strings.TrimSpace(r.Sentence) == "" && strings.TrimSpace(r.SentenceIPA) == "" {
		return ErrEmptySentence
	}
	if r.Phonemes != "" && len(r.PhonemeTokens) > 0 {
		return fmt.Errorf("%w: phonemes and phoneme_tokens are mutually exclusive", ErrInvalidRequest)
	}
	if len(r.SessionID) > 128 {
		return fmt.Errorf("%w: session_id longer than 128 bytes", ErrInvalidRequest)
	}
	return nil
}

// SentenceWords splits a sentence into words with surrounding punctuation
// removed. Words made only of punctuation are dropped.
func SentenceWords(sentence string) []string {
	fields := strings.Fields(sentence)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if w := strings.TrimFunc(f, unicode.IsPunct); w != "" {
			out = append(out, w)
		}
	}
	return out
}
