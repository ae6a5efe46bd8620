// Package attempt records pronunciation attempts so a learner's progress on a
// sentence can be reviewed later.
//
// Two implementations of [Store] are provided: [MemStore] for single-process
// deployments and tests, and the PostgreSQL store in the postgres
// sub-package.
package attempt

import (
	"context"
	"errors"
	"time"

	"github.com/MrWong99/phonexa/pkg/types"
)

// ErrNotFound is returned by Get when the requested attempt does not exist.
var ErrNotFound = errors.New("attempt not found")

// DefaultListLimit caps List results when the caller passes a non-positive
// limit.
const DefaultListLimit = 50

// Attempt is one scored reading of a sentence.
type Attempt struct {
	// ID is assigned by the store on Save.
	ID int64 `json:"id"`

	// SessionID groups the attempts of one learner or game session.
	SessionID string `json:"session_id"`

	// CreatedAt is assigned by the store on Save when zero.
	CreatedAt time.Time `json:"created_at"`

	// Sentence is the reference sentence text.
	Sentence string `json:"sentence"`

	// SentenceIPA is the normalised reference IPA transcription.
	SentenceIPA string `json:"sentence_ipa"`

	// Phonemes is the normalised recognised phoneme stream.
	Phonemes []string `json:"phonemes"`

	// Words holds the per-word alignment (or the single failure entry).
	Words []types.WordAlignment `json:"words"`

	// OverallSimilarity is the mean per-word score.
	OverallSimilarity float64 `json:"overall_similarity"`

	// Failed is set when the phonemes could not be aligned.
	Failed bool `json:"failed"`
}

// Store persists attempts. All implementations must be safe for concurrent
// use.
type Store interface {
	// Save stores a and returns it with ID and CreatedAt filled in.
	Save(ctx context.Context, a Attempt) (Attempt, error)

	// Get returns the attempt with the given ID or [ErrNotFound].
	Get(ctx context.Context, id int64) (Attempt, error)

	// List returns the newest attempts of a session first. A non-positive
	// limit means [DefaultListLimit].
	List(ctx context.Context, sessionID string, limit int) ([]Attempt, error)

	// Ping reports whether the backing storage is reachable.
	Ping(ctx context.Context) error

	// Close releases resources held by the store.
	Close()
}
