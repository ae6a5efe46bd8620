// Package postgres provides a PostgreSQL-backed [attempt.Store].
//
// Usage:
//
//	store, err := postgres.NewStore(ctx, dsn)
//	if err != nil { … }
//	defer store.Close()
//
//	saved, _ := store.Save(ctx, a)
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlAttempts = `
CREATE TABLE IF NOT EXISTS attempts (
    id                  BIGSERIAL         PRIMARY KEY,
    session_id          TEXT              NOT NULL DEFAULT '',
    created_at          TIMESTAMPTZ       NOT NULL DEFAULT now(),
    sentence            TEXT              NOT NULL,
    sentence_ipa        TEXT              NOT NULL,
    phonemes            TEXT[]            NOT NULL DEFAULT '{}',
    words               JSONB             NOT NULL DEFAULT '[]',
    overall_similarity  DOUBLE PRECISION  NOT NULL DEFAULT 0,
    failed              BOOLEAN           NOT NULL DEFAULT false
);

CREATE INDEX IF NOT EXISTS idx_attempts_session_created
    ON attempts (session_id, created_at DESC, id DESC);
`

// Migrate creates the attempts table and its index. It is idempotent and
// safe to call on every start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range []string{ddlAttempts} {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres migrate: %w", err)
		}
	}
	return nil
}
