package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

var ErrRunNotFound = errors.New("run not found")

// Run is one scrape-run record.
type Run struct {
	ID           string     `json:"id"`
	Site         string     `json:"site"`
	Categories   []string   `json:"categories"`
	MaxPages     int        `json:"max_pages"`
	Status       string     `json:"status"`
	PagesScraped int        `json:"pages_scraped"`
	URLsFound    int        `json:"urls_found"`
	Summary      string     `json:"summary,omitempty"`
	Error        string     `json:"error,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// Schema is the table the service expects. Applied out of band.
const Schema = `
CREATE TABLE IF NOT EXISTS scrape_runs (
    id            TEXT PRIMARY KEY,
    site          TEXT NOT NULL,
    categories    TEXT[] NOT NULL,
    max_pages     INT NOT NULL,
    status        TEXT NOT NULL,
    pages_scraped INT NOT NULL DEFAULT 0,
    urls_found    INT NOT NULL DEFAULT 0,
    summary       TEXT NOT NULL DEFAULT '',
    error         TEXT NOT NULL DEFAULT '',
    started_at    TIMESTAMPTZ NOT NULL,
    completed_at  TIMESTAMPTZ
);`

// InsertRun records a freshly started run.
func (db *DB) InsertRun(ctx context.Context, run *Run) error {
	query := `
		INSERT INTO scrape_runs (id, site, categories, max_pages, status, started_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := db.pool.Exec(ctx, query,
		run.ID, run.Site, run.Categories, run.MaxPages, run.Status, run.StartedAt)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// CompleteRun marks a run completed with its outcome.
func (db *DB) CompleteRun(ctx context.Context, id string, pagesScraped, urlsFound int, summary string) error {
	query := `
		UPDATE scrape_runs
		SET status = $2, pages_scraped = $3, urls_found = $4, summary = $5, completed_at = now()
		WHERE id = $1
	`
	tag, err := db.pool.Exec(ctx, query, id, RunStatusCompleted, pagesScraped, urlsFound, summary)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRunNotFound
	}
	return nil
}

// FailRun marks a run failed with the fatal error.
func (db *DB) FailRun(ctx context.Context, id, errMsg string) error {
	query := `
		UPDATE scrape_runs
		SET status = $2, error = $3, completed_at = now()
		WHERE id = $1
	`
	tag, err := db.pool.Exec(ctx, query, id, RunStatusFailed, errMsg)
	if err != nil {
		return fmt.Errorf("failed to mark run failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRunNotFound
	}
	return nil
}

// GetRun fetches one run by id.
func (db *DB) GetRun(ctx context.Context, id string) (*Run, error) {
	query := `
		SELECT id, site, categories, max_pages, status, pages_scraped,
		       urls_found, summary, error, started_at, completed_at
		FROM scrape_runs WHERE id = $1
	`
	run := &Run{}
	err := db.pool.QueryRow(ctx, query, id).Scan(
		&run.ID, &run.Site, &run.Categories, &run.MaxPages, &run.Status,
		&run.PagesScraped, &run.URLsFound, &run.Summary, &run.Error,
		&run.StartedAt, &run.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first.
func (db *DB) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	query := `
		SELECT id, site, categories, max_pages, status, pages_scraped,
		       urls_found, summary, error, started_at, completed_at
		FROM scrape_runs ORDER BY started_at DESC LIMIT $1
	`
	rows, err := db.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run := &Run{}
		if err := rows.Scan(
			&run.ID, &run.Site, &run.Categories, &run.MaxPages, &run.Status,
			&run.PagesScraped, &run.URLsFound, &run.Summary, &run.Error,
			&run.StartedAt, &run.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
