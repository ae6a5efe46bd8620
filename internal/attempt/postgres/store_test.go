package postgres_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrWong99/phonexa/internal/attempt"
	"github.com/MrWong99/phonexa/internal/attempt/postgres"
	"github.com/MrWong99/phonexa/pkg/types"
)

// testDSN returns the test database DSN from the environment, or skips the
// test if PHONEXA_TEST_POSTGRES_DSN is not set.
func testDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("PHONEXA_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("PHONEXA_TEST_POSTGRES_DSN not set, skipping PostgreSQL integration tests")
	}
	return dsn
}

// newTestStore creates a fresh [postgres.Store] on an empty attempts table.
func newTestStore(t *testing.T) *postgres.Store {
	t.Helper()
	dsn := testDSN(t)
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	if _, err := pool.Exec(ctx, "DROP TABLE IF EXISTS attempts CASCADE"); err != nil {
		t.Fatalf("drop: %v", err)
	}
	pool.Close()

	store, err := postgres.NewStore(ctx, dsn)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(store.Close)
	return store
}

func TestStore_SaveGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	in := attempt.Attempt{
		SessionID:   "s1",
		Sentence:    "The cat.",
		SentenceIPA: "ðə kæt",
		Phonemes:    []string{"d", "ə", "k", "æ", "t"},
		Words: []types.WordAlignment{
			{ReferenceWordText: "The", ReferencePhonemes: "ðə", UserPhonemes: "də", SimilarityScore: 63.5},
			{ReferenceWordText: "cat", ReferencePhonemes: "kæt", UserPhonemes: "kæt", SimilarityScore: 100},
		},
		OverallSimilarity: 81.75,
	}
	saved, err := store.Save(ctx, in)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if saved.ID == 0 || saved.CreatedAt.IsZero() {
		t.Fatalf("Save did not assign ID/CreatedAt: %+v", saved)
	}

	got, err := store.Get(ctx, saved.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Sentence != in.Sentence || got.SentenceIPA != in.SentenceIPA {
		t.Errorf("Get: got %+v", got)
	}
	if len(got.Phonemes) != 5 || got.Phonemes[0] != "d" {
		t.Errorf("phonemes = %q", got.Phonemes)
	}
	if len(got.Words) != 2 || got.Words[0].UserPhonemes != "də" || got.Words[1].SimilarityScore != 100 {
		t.Errorf("words = %+v", got.Words)
	}
	if got.OverallSimilarity != 81.75 {
		t.Errorf("overall = %v", got.OverallSimilarity)
	}
}

func TestStore_GetMissing(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Get(context.Background(), 424242); !errors.Is(err, attempt.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_ListNewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, sentence := range []string{"one", "two", "three"} {
		_, err := store.Save(ctx, attempt.Attempt{
			SessionID:   "s1",
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
			Sentence:    sentence,
			SentenceIPA: "x",
		})
		if err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	if _, err := store.Save(ctx, attempt.Attempt{SessionID: "s2", Sentence: "other", SentenceIPA: "x"}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.List(ctx, "s1", 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 || got[0].Sentence != "three" || got[1].Sentence != "two" {
		t.Fatalf("List = %+v", got)
	}
	if got[0].Words == nil {
		t.Error("words should decode to an empty slice")
	}

	empty, err := store.List(ctx, "nobody", 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("List for unknown session = %#v, want empty slice", empty)
	}
}

func TestStore_Ping(t *testing.T) {
	store := newTestStore(t)
	if err := store.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}
