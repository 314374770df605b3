package runstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Store records pipeline runs for later inspection. Recording is best-effort
// bookkeeping; the pipeline runs identically without a database.
type Store interface {
	CreateRun(ctx context.Context, runID, audioURI string, startedAt time.Time) error
	MarkTranscribed(ctx context.Context, runID, jobName, transcriptURI string) error
	MarkSummarized(ctx context.Context, runID, summary string) error
	MarkFailed(ctx context.Context, runID, errorMessage string) error
	Close() error
}

// Client is the Postgres-backed Store. Expected schema:
//
//	create table pipeline_run (
//	    run_id         text primary key,
//	    audio_uri      text not null,
//	    status         text not null,
//	    job_name       text,
//	    transcript_uri text,
//	    summary        text,
//	    error_message  text,
//	    started_at     timestamptz not null,
//	    updated_at     timestamptz not null default now()
//	);
type Client struct {
	db *sql.DB
}

func NewClient(databaseURL string) (*Client, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) CreateRun(ctx context.Context, runID, audioURI string, startedAt time.Time) error {
	query := `insert into pipeline_run (run_id, audio_uri, status, started_at) values ($1, $2, 'started', $3)`
	if _, err := c.db.ExecContext(ctx, query, runID, audioURI, startedAt); err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

func (c *Client) MarkTranscribed(ctx context.Context, runID, jobName, transcriptURI string) error {
	query := `update pipeline_run set status = 'transcribed', job_name = $2, transcript_uri = $3, updated_at = now() where run_id = $1`
	if _, err := c.db.ExecContext(ctx, query, runID, jobName, transcriptURI); err != nil {
		return fmt.Errorf("failed to record transcription: %w", err)
	}
	return nil
}

func (c *Client) MarkSummarized(ctx context.Context, runID, summary string) error {
	query := `update pipeline_run set status = 'summarized', summary = $2, updated_at = now() where run_id = $1`
	if _, err := c.db.ExecContext(ctx, query, runID, summary); err != nil {
		return fmt.Errorf("failed to record summary: %w", err)
	}
	return nil
}

func (c *Client) MarkFailed(ctx context.Context, runID, errorMessage string) error {
	query := `update pipeline_run set status = 'failed', error_message = $2, updated_at = now() where run_id = $1`
	if _, err := c.db.ExecContext(ctx, query, runID, errorMessage); err != nil {
		return fmt.Errorf("failed to record failure: %w", err)
	}
	return nil
}

// Noop is the Store used when no DATABASE_URL is configured.
type Noop struct{}

func (Noop) CreateRun(context.Context, string, string, time.Time) error    { return nil }
func (Noop) MarkTranscribed(context.Context, string, string, string) error { return nil }
func (Noop) MarkSummarized(context.Context, string, string) error          { return nil }
func (Noop) MarkFailed(context.Context, string, string) error              { return nil }
func (Noop) Close() error                                                  { return nil }
