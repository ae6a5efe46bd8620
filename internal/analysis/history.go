package analysis

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrWong99/phonexa/internal/attempt"
	"github.com/MrWong99/phonexa/internal/observe"
	"github.com/MrWong99/phonexa/pkg/types"
)

// ErrNoStore is returned by the history methods when no store is configured.
var ErrNoStore = errors.New("attempt history is not enabled")

// record saves a finished analysis. Failures are logged and counted; they
// never fail the analysis.
func (s *Service) record(ctx context.Context, req Request, res types.Analysis) {
	if s.store == nil {
		return
	}
	a := attempt.Attempt{
		SessionID:         req.SessionID,
		Sentence:          req.Sentence,
		SentenceIPA:       s.settings.Load().norm.String(req.SentenceIPA),
		Phonemes:          res.UserPhonemeArray,
		Words:             res.Alignment,
		OverallSimilarity: res.OverallSimilarity,
		Failed:            res.Failed(),
	}

	// The attempt is kept even if the client goes away mid-save.
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeTimeout)
	defer cancel()

	err := s.breaker.Do(sctx, func(ctx context.Context) error {
		_, err := s.store.Save(ctx, a)
		return err
	})
	if err != nil {
		s.metrics.RecordStoreError(ctx, "save")
		observe.Logger(ctx).Warn("failed to record attempt",
			"session_id", req.SessionID,
			"err", err,
		)
	}
}

// History returns the newest attempts of a session. A non-positive limit
// means the store's default.
func (s *Service) History(ctx context.Context, sessionID string, limit int) ([]attempt.Attempt, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}
	var out []attempt.Attempt
	err := s.breaker.Do(ctx, func(ctx context.Context) error {
		var err error
		out, err = s.store.List(ctx, sessionID, limit)
		return err
	})
	if err != nil {
		s.metrics.RecordStoreError(ctx, "list")
		return nil, fmt.Errorf("analysis: history: %w", err)
	}
	return out, nil
}

// Attempt returns one recorded attempt or an error wrapping
// [attempt.ErrNotFound].
func (s *Service) Attempt(ctx context.Context, id int64) (attempt.Attempt, error) {
	if s.store == nil {
		return attempt.Attempt{}, ErrNoStore
	}
	var out attempt.Attempt
	err := s.breaker.Do(ctx, func(ctx context.Context) error {
		var err error
		out, err = s.store.Get(ctx, id)
		// A missing row says nothing about store health.
		if errors.Is(err, attempt.ErrNotFound) {
			return nil
		}
		return err
	})
	if err != nil {
		s.metrics.RecordStoreError(ctx, "get")
		return attempt.Attempt{}, fmt.Errorf("analysis: attempt %d: %w", id, err)
	}
	if out.ID == 0 {
		return attempt.Attempt{}, fmt.Errorf("analysis: attempt %d: %w", id, attempt.ErrNotFound)
	}
	return out, nil
}
