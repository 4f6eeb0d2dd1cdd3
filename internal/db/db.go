// Package db provides PostgreSQL storage for evaluation run history.
package db

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jonathan/resume-evaluator/internal/types"
)

//go:embed schema.sql
var schemaSQL string

// DefaultListLimit caps ListRuns when a non-positive limit is given.
const DefaultListLimit = 20

// maxConns bounds the pool; run history writes are a few statements per run.
const maxConns = 4

// DB is the run history store.
type DB struct {
	pool *pgxpool.Pool
}

// Connect opens a pool for databaseURL and pings it.
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	poolCfg.MaxConns = maxConns
	poolCfg.ConnConfig.RuntimeParams["application_name"] = "resume_eval"

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &DB{pool: pool}, nil
}

// Close releases the pool. It is safe on a zero DB.
func (db *DB) Close() {
	if db != nil && db.pool != nil {
		db.pool.Close()
	}
}

// EnsureSchema creates the run history tables if they do not exist.
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// CreateRun records the start of an evaluation run.
func (db *DB) CreateRun(ctx context.Context, runID uuid.UUID, query, pageURL string) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO evaluation_runs (id, query, page_url, status)
		 VALUES ($1, $2, $3, $4)`,
		runID, query, pageURL, RunStatusRunning,
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// CompleteRun stores the final counters and status of a run.
func (db *DB) CompleteRun(ctx context.Context, runID uuid.UUID, summary RunSummary) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE evaluation_runs
		 SET status = $1, query = COALESCE(NULLIF($2, ''), query), links_found = $3,
		     documents_fetched = $4, fetch_failures = $5, total_matches = $6,
		     error = $7, completed_at = NOW()
		 WHERE id = $8`,
		summary.Status, summary.Query, summary.LinksFound, summary.DocumentsFetched,
		summary.FetchFailures, summary.TotalMatches, nullIfEmpty(summary.Error), runID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to complete run: run %s not found", runID)
	}
	return nil
}

// SaveResultSet stores the result set of a run, both as the JSON artifact and
// as one row per result.
func (db *DB) SaveResultSet(ctx context.Context, runID uuid.UUID, set *types.SearchResultSet) error {
	jsonBytes, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("failed to marshal result set: %w", err)
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx,
		`UPDATE evaluation_runs SET result_set = $1, total_matches = $2 WHERE id = $3`,
		jsonBytes, set.TotalMatches, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to save result set: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to save result set: run %s not found", runID)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM evaluation_results WHERE run_id = $1`, runID); err != nil {
		return fmt.Errorf("failed to clear results: %w", err)
	}

	batch := &pgx.Batch{}
	for _, row := range resultRows(set) {
		batch.Queue(
			`INSERT INTO evaluation_results
			 (run_id, position, result_id, filename, is_match, score, explanation, snippet, linkedin_profile)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			runID, row.Position, row.ResultID, row.Filename, row.IsMatch, row.Score,
			row.Explanation, row.Snippet, row.LinkedInProfile,
		)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to insert results: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit result set: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID. Returns nil when it does not exist.
func (db *DB) GetRun(ctx context.Context, runID uuid.UUID) (*Run, error) {
	var run Run
	err := db.pool.QueryRow(ctx,
		`SELECT `+runColumns+` FROM evaluation_runs WHERE id = $1`,
		runID,
	).Scan(run.scanTargets()...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &run, nil
}

// ListRuns retrieves the most recent runs, newest first.
func (db *DB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := db.pool.Query(ctx,
		`SELECT `+runColumns+` FROM evaluation_runs ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var run Run
		if err := rows.Scan(run.scanTargets()...); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// GetRunResults returns the stored result set of a run. Returns nil when the
// run does not exist or produced no results.
func (db *DB) GetRunResults(ctx context.Context, runID uuid.UUID) (*types.SearchResultSet, error) {
	var content []byte
	err := db.pool.QueryRow(ctx,
		`SELECT result_set FROM evaluation_runs WHERE id = $1`,
		runID,
	).Scan(&content)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get run results: %w", err)
	}
	if content == nil {
		return nil, nil
	}

	var set types.SearchResultSet
	if err := json.Unmarshal(content, &set); err != nil {
		return nil, fmt.Errorf("failed to decode run results: %w", err)
	}
	return &set, nil
}

const runColumns = `id, query, page_url, status, links_found, documents_fetched,
	fetch_failures, total_matches, error, created_at, completed_at`

func (r *Run) scanTargets() []any {
	return []any{
		&r.ID, &r.Query, &r.PageURL, &r.Status, &r.LinksFound, &r.DocumentsFetched,
		&r.FetchFailures, &r.TotalMatches, &r.Error, &r.CreatedAt, &r.CompletedAt,
	}
}

func resultRows(set *types.SearchResultSet) []ResultRow {
	if set == nil {
		return nil
	}
	rows := make([]ResultRow, len(set.Results))
	for i, r := range set.Results {
		rows[i] = ResultRow{
			Position:        i,
			ResultID:        r.ID,
			Filename:        r.Filename,
			IsMatch:         r.IsMatch,
			Score:           r.Score,
			Explanation:     r.Explanation,
			Snippet:         r.Snippet,
			LinkedInProfile: r.LinkedInProfile,
		}
	}
	return rows
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
