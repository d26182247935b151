// Package ledger keeps a sqlite record of finished jobs and the outcome of
// each of their chunks.
package ledger

import (
	"bgremove/models"
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	job_id      TEXT PRIMARY KEY,
	input_path  TEXT NOT NULL,
	output_path TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL,
	error       TEXT NOT NULL DEFAULT '',
	chunks      INTEGER NOT NULL DEFAULT 0,
	succeeded   INTEGER NOT NULL DEFAULT 0,
	frames      INTEGER NOT NULL DEFAULT 0,
	started_at  TEXT NOT NULL,
	finished_at TEXT NOT NULL,
	updated_at  TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS chunks (
	job_id         TEXT NOT NULL REFERENCES jobs(job_id) ON DELETE CASCADE,
	chunk_index    INTEGER NOT NULL,
	window_start   REAL NOT NULL,
	window_end     REAL NOT NULL,
	status         TEXT NOT NULL,
	error          TEXT NOT NULL DEFAULT '',
	frames_decoded INTEGER NOT NULL DEFAULT 0,
	frames_written INTEGER NOT NULL DEFAULT 0,
	frames_dropped INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (job_id, chunk_index)
);
`

// JobRecord is one row of the jobs table.
type JobRecord struct {
	JobID      string `json:"job_id"`
	InputPath  string `json:"input_path"`
	OutputPath string `json:"output_path"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	Chunks     int    `json:"chunks"`
	Succeeded  int    `json:"succeeded"`
	Frames     int    `json:"frames"`
	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at"`
}

// ChunkRecord is one row of the chunks table.
type ChunkRecord struct {
	Index         uint    `json:"index"`
	Start         float64 `json:"start"`
	End           float64 `json:"end"`
	Status        string  `json:"status"`
	Error         string  `json:"error,omitempty"`
	FramesDecoded int     `json:"frames_decoded"`
	FramesWritten int     `json:"frames_written"`
	FramesDropped int     `json:"frames_dropped"`
}

// Ledger is a job history database.
type Ledger struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to ledger %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate ledger: %w", err)
	}
	return &Ledger{db: db}, nil
}

// Close closes the database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// RecordJob stores report and its chunk outcomes, replacing any previous
// record of the same job.
func (l *Ledger) RecordJob(ctx context.Context, report *models.JobReport) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
	INSERT INTO jobs
	(job_id, input_path, output_path, status, error, chunks, succeeded, frames, started_at, finished_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(job_id) DO UPDATE SET
		output_path=excluded.output_path,
		status=excluded.status,
		error=excluded.error,
		chunks=excluded.chunks,
		succeeded=excluded.succeeded,
		frames=excluded.frames,
		finished_at=excluded.finished_at,
		updated_at=CURRENT_TIMESTAMP;
	`,
		report.JobID,
		report.InputPath,
		report.OutputPath,
		string(report.Status),
		report.Error,
		len(report.Chunks),
		report.ChunksSucceeded(),
		report.FramesWritten(),
		formatTime(report.StartedAt),
		formatTime(report.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to record job %s: %w", report.JobID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE job_id = ?`, report.JobID); err != nil {
		return fmt.Errorf("failed to clear chunks of job %s: %w", report.JobID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO chunks
	(job_id, chunk_index, window_start, window_end, status, error, frames_decoded, frames_written, frames_dropped)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, c := range report.Chunks {
		if c == nil {
			continue
		}
		msg := ""
		if c.Error != nil {
			msg = c.Error.Error()
		}
		if _, err := stmt.ExecContext(ctx,
			report.JobID, c.Index, c.Window.Start, c.Window.End,
			c.Status(), msg, c.FramesDecoded, c.FramesWritten, c.FramesDropped,
		); err != nil {
			return fmt.Errorf("failed to record chunk %d of job %s: %w", c.Index, report.JobID, err)
		}
	}

	return tx.Commit()
}

// RecentJobs lists the most recently finished jobs, newest first.
func (l *Ledger) RecentJobs(ctx context.Context, limit int) ([]JobRecord, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT job_id, input_path, output_path, status, error, chunks, succeeded, frames, started_at, finished_at
		FROM jobs
		ORDER BY finished_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []JobRecord
	for rows.Next() {
		var job JobRecord
		if err := rows.Scan(
			&job.JobID,
			&job.InputPath,
			&job.OutputPath,
			&job.Status,
			&job.Error,
			&job.Chunks,
			&job.Succeeded,
			&job.Frames,
			&job.StartedAt,
			&job.FinishedAt,
		); err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// JobChunks returns the chunk outcomes of a job in index order.
func (l *Ledger) JobChunks(ctx context.Context, jobID string) ([]ChunkRecord, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT chunk_index, window_start, window_end, status, error, frames_decoded, frames_written, frames_dropped
		FROM chunks
		WHERE job_id = ?
		ORDER BY chunk_index`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []ChunkRecord
	for rows.Next() {
		var c ChunkRecord
		if err := rows.Scan(
			&c.Index,
			&c.Start,
			&c.End,
			&c.Status,
			&c.Error,
			&c.FramesDecoded,
			&c.FramesWritten,
			&c.FramesDropped,
		); err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// timeLayout has fixed-width fractions so stored times sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
