// Package repositories provides the PostgreSQL-backed record store used to
// persist extraction results for later querying.
package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	appErrors "github.com/turtacn/KeyTerm-Intelligence/pkg/errors"
	"github.com/turtacn/KeyTerm-Intelligence/pkg/types/record"
)

// Logger is the minimal logging contract required by repository
// implementations. It is satisfied by most structured-logging libraries.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ModelStat aggregates per-model extraction counts.
type ModelStat struct {
	Model       string
	Records     int64
	AvgKeywords float64
}

// RecordRepository persists processed records keyed by
// (problem_id, model, attempt).
type RecordRepository struct {
	pool   *pgxpool.Pool
	logger Logger
}

// NewRecordRepository constructs a ready-to-use RecordRepository.
func NewRecordRepository(pool *pgxpool.Pool, logger Logger) *RecordRepository {
	return &RecordRepository{pool: pool, logger: logger}
}

const upsertRecordSQL = `
	INSERT INTO records (
		problem_id, model, attempt, problem, answer, lang,
		nouns, adjectives, nominalized_verbs, keywords, keywords_raw, updated_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,NOW())
	ON CONFLICT (problem_id, model, attempt) DO UPDATE SET
		problem           = EXCLUDED.problem,
		answer            = EXCLUDED.answer,
		lang              = EXCLUDED.lang,
		nouns             = EXCLUDED.nouns,
		adjectives        = EXCLUDED.adjectives,
		nominalized_verbs = EXCLUDED.nominalized_verbs,
		keywords          = EXCLUDED.keywords,
		keywords_raw      = EXCLUDED.keywords_raw,
		updated_at        = NOW()`

// Save upserts a single record.
func (r *RecordRepository) Save(ctx context.Context, rec *record.Record) error {
	r.logger.Debug("RecordRepository.Save", "key", rec.Key())

	_, err := r.pool.Exec(ctx, upsertRecordSQL, upsertArgs(rec)...)
	if err != nil {
		r.logger.Error("RecordRepository.Save", "error", err, "key", rec.Key())
		return appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to upsert record")
	}
	return nil
}

// SaveBatch upserts records inside a single transaction so a partially
// written batch never becomes visible.
func (r *RecordRepository) SaveBatch(ctx context.Context, recs []*record.Record) error {
	if len(recs) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error("RecordRepository.SaveBatch: begin tx", "error", err)
		return appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to begin transaction")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	batch := &pgx.Batch{}
	for _, rec := range recs {
		batch.Queue(upsertRecordSQL, upsertArgs(rec)...)
	}

	results := tx.SendBatch(ctx, batch)
	for range recs {
		if _, err := results.Exec(); err != nil {
			results.Close()
			r.logger.Error("RecordRepository.SaveBatch: exec", "error", err)
			return appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to upsert record batch")
		}
	}
	if err := results.Close(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to close batch results")
	}

	if err := tx.Commit(ctx); err != nil {
		r.logger.Error("RecordRepository.SaveBatch: commit", "error", err)
		return appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to commit transaction")
	}
	return nil
}

const selectRecordSQL = `
	SELECT problem_id, model, attempt, problem, answer, lang,
	       nouns, adjectives, nominalized_verbs, keywords, keywords_raw
	FROM records`

// Get returns one record by its composite key, or a not-found error.
func (r *RecordRepository) Get(ctx context.Context, problemID, model string, attempt int) (*record.Record, error) {
	row := r.pool.QueryRow(ctx, selectRecordSQL+`
		WHERE problem_id = $1 AND model = $2 AND attempt = $3`,
		problemID, model, attempt)

	rec, err := scanRecord(row)
	if err == pgx.ErrNoRows {
		return nil, appErrors.NotFound("record")
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to query record")
	}
	return rec, nil
}

// ListByProblem returns all attempts for one problem ordered by model and
// attempt.
func (r *RecordRepository) ListByProblem(ctx context.Context, problemID string) ([]*record.Record, error) {
	rows, err := r.pool.Query(ctx, selectRecordSQL+`
		WHERE problem_id = $1
		ORDER BY model, attempt`,
		problemID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to query records")
	}
	defer rows.Close()

	var recs []*record.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to scan record")
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to iterate records")
	}
	return recs, nil
}

// SearchByKeyword returns records whose keyword list contains the given term.
func (r *RecordRepository) SearchByKeyword(ctx context.Context, keyword string, limit int) ([]*record.Record, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, selectRecordSQL+`
		WHERE keywords @> ARRAY[$1]::text[]
		ORDER BY problem_id, model, attempt
		LIMIT $2`,
		keyword, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to search records")
	}
	defer rows.Close()

	var recs []*record.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to scan record")
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to iterate records")
	}
	return recs, nil
}

// StatsByModel aggregates record counts and mean keyword list length per
// model.
func (r *RecordRepository) StatsByModel(ctx context.Context) ([]ModelStat, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT model, COUNT(*), COALESCE(AVG(cardinality(keywords)), 0)
		FROM records
		GROUP BY model
		ORDER BY model`)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to query model stats")
	}
	defer rows.Close()

	var stats []ModelStat
	for rows.Next() {
		var s ModelStat
		if err := rows.Scan(&s.Model, &s.Records, &s.AvgKeywords); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to scan model stats")
		}
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to iterate model stats")
	}
	return stats, nil
}

// DeleteByProblem removes every attempt for one problem and returns the
// number of rows deleted.
func (r *RecordRepository) DeleteByProblem(ctx context.Context, problemID string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM records WHERE problem_id = $1`, problemID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to delete records")
	}
	return tag.RowsAffected(), nil
}

func upsertArgs(rec *record.Record) []interface{} {
	return []interface{}{
		rec.ProblemID, rec.Model, rec.Attempt, rec.Problem, rec.Answer, string(rec.Lang),
		textArray(rec.Nouns), textArray(rec.Adjectives), textArray(rec.NominalizedVerbs),
		textArray(rec.Keywords), rec.KeywordsRaw,
	}
}

// textArray normalizes nil slices to empty arrays so NOT NULL columns accept
// them.
func textArray(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (*record.Record, error) {
	var rec record.Record
	var lang string
	err := row.Scan(
		&rec.ProblemID, &rec.Model, &rec.Attempt, &rec.Problem, &rec.Answer, &lang,
		&rec.Nouns, &rec.Adjectives, &rec.NominalizedVerbs, &rec.Keywords, &rec.KeywordsRaw,
	)
	if err != nil {
		return nil, err
	}
	rec.Lang = record.Language(lang)
	return &rec, nil
}
