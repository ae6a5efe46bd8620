package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrWong99/phonexa/internal/attempt"
	"github.com/MrWong99/phonexa/pkg/types"
)

var _ attempt.Store = (*Store)(nil)

// Store persists attempts in the attempts table. All methods are safe for
// concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to the database at dsn, verifies the connection and runs
// [Migrate].
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres store: parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres store: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: ping: %w", err)
	}

	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: migrate: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Save implements [attempt.Store].
func (s *Store) Save(ctx context.Context, a attempt.Attempt) (attempt.Attempt, error) {
	const q = `
		INSERT INTO attempts
		    (session_id, created_at, sentence, sentence_ipa, phonemes, words, overall_similarity, failed)
		VALUES ($1, COALESCE($2::timestamptz, now()), $3, $4, $5, $6::jsonb, $7, $8)
		RETURNING id, created_at`

	words, err := json.Marshal(nonNilWords(a.Words))
	if err != nil {
		return attempt.Attempt{}, fmt.Errorf("attempt store: encode words: %w", err)
	}

	var createdAt any
	if !a.CreatedAt.IsZero() {
		createdAt = a.CreatedAt
	}
	phonemes := a.Phonemes
	if phonemes == nil {
		phonemes = []string{}
	}

	err = s.pool.QueryRow(ctx, q,
		a.SessionID,
		createdAt,
		a.Sentence,
		a.SentenceIPA,
		phonemes,
		string(words),
		a.OverallSimilarity,
		a.Failed,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return attempt.Attempt{}, fmt.Errorf("attempt store: save: %w", err)
	}
	return a, nil
}

// Get implements [attempt.Store].
func (s *Store) Get(ctx context.Context, id int64) (attempt.Attempt, error) {
	const q = `
		SELECT id, session_id, created_at, sentence, sentence_ipa, phonemes, words, overall_similarity, failed
		FROM   attempts
		WHERE  id = $1`

	rows, err := s.pool.Query(ctx, q, id)
	if err != nil {
		return attempt.Attempt{}, fmt.Errorf("attempt store: get: %w", err)
	}
	a, err := pgx.CollectExactlyOneRow(rows, scanAttempt)
	if errors.Is(err, pgx.ErrNoRows) {
		return attempt.Attempt{}, attempt.ErrNotFound
	}
	if err != nil {
		return attempt.Attempt{}, fmt.Errorf("attempt store: get: %w", err)
	}
	return a, nil
}

// List implements [attempt.Store].
func (s *Store) List(ctx context.Context, sessionID string, limit int) ([]attempt.Attempt, error) {
	const q = `
		SELECT id, session_id, created_at, sentence, sentence_ipa, phonemes, words, overall_similarity, failed
		FROM   attempts
		WHERE  session_id = $1
		ORDER  BY created_at DESC, id DESC
		LIMIT  $2`

	if limit <= 0 {
		limit = attempt.DefaultListLimit
	}
	rows, err := s.pool.Query(ctx, q, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("attempt store: list: %w", err)
	}
	out, err := pgx.CollectRows(rows, scanAttempt)
	if err != nil {
		return nil, fmt.Errorf("attempt store: scan rows: %w", err)
	}
	if out == nil {
		out = []attempt.Attempt{}
	}
	return out, nil
}

// Ping implements [attempt.Store].
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

func scanAttempt(row pgx.CollectableRow) (attempt.Attempt, error) {
	var (
		a     attempt.Attempt
		words []byte
	)
	if err := row.Scan(
		&a.ID,
		&a.SessionID,
		&a.CreatedAt,
		&a.Sentence,
		&a.SentenceIPA,
		&a.Phonemes,
		&words,
		&a.OverallSimilarity,
		&a.Failed,
	); err != nil {
		return attempt.Attempt{}, err
	}
	if err := json.Unmarshal(words, &a.Words); err != nil {
		return attempt.Attempt{}, fmt.Errorf("decode words: %w", err)
	}
	return a, nil
}

func nonNilWords(w []types.WordAlignment) []types.WordAlignment {
	if w == nil {
		return []types.WordAlignment{}
	}
	return w
}
