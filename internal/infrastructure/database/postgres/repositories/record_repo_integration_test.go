//go:build integration

// Integration tests require a reachable PostgreSQL instance. Point
// KEYTERM_TEST_DATABASE_URL at a disposable database and run with the
// "integration" build tag.
package repositories

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/KeyTerm-Intelligence/internal/infrastructure/database/postgres"
	"github.com/turtacn/KeyTerm-Intelligence/pkg/types/record"
)

type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}

func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("KEYTERM_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("KEYTERM_TEST_DATABASE_URL not set")
	}

	require.NoError(t, postgres.RunMigrations(dsn))

	pool, err := pgxpool.New(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func TestRecordRepository_RoundTrip(t *testing.T) {
	pool := testPool(t)
	repo := NewRecordRepository(pool, noopLogger{})
	ctx := context.Background()

	rec := &record.Record{
		ProblemID: "p900001",
		Model:     "qwen2-7b",
		Attempt:   1,
		Problem:   "Define entropy.",
		Answer:    "Entropy measures disorder.",
		Lang:      record.LangEN,
		Nouns:     []string{"entropy", "disorder"},
		Keywords:  []string{"entropy", "disorder"},
	}
	require.NoError(t, repo.Save(ctx, rec))
	t.Cleanup(func() { repo.DeleteByProblem(ctx, rec.ProblemID) })

	got, err := repo.Get(ctx, rec.ProblemID, rec.Model, rec.Attempt)
	require.NoError(t, err)
	assert.Equal(t, rec.Keywords, got.Keywords)

	// Upsert replaces the previous attempt.
	rec.Keywords = []string{"entropy"}
	require.NoError(t, repo.Save(ctx, rec))
	got, err = repo.Get(ctx, rec.ProblemID, rec.Model, rec.Attempt)
	require.NoError(t, err)
	assert.Equal(t, []string{"entropy"}, got.Keywords)

	hits, err := repo.SearchByKeyword(ctx, "entropy", 10)
	require.NoError(t, err)
	assert.NotEmpty(t, hits)
}

func TestRecordRepository_SaveBatch(t *testing.T) {
	pool := testPool(t)
	repo := NewRecordRepository(pool, noopLogger{})
	ctx := context.Background()

	recs := []*record.Record{
		{ProblemID: "p900002", Model: "m", Attempt: 1, Lang: record.LangEN},
		{ProblemID: "p900002", Model: "m", Attempt: 2, Lang: record.LangEN},
	}
	require.NoError(t, repo.SaveBatch(ctx, recs))
	t.Cleanup(func() { repo.DeleteByProblem(ctx, "p900002") })

	listed, err := repo.ListByProblem(ctx, "p900002")
	require.NoError(t, err)
	assert.Len(t, listed, 2)
}
