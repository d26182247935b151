package models

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus is the terminal state of a job.
type JobStatus string

const (
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusPartial   JobStatus = "partial" // merged, but some chunks were dropped
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Job is one background removal run. All of its temporary state lives in
// TempDir, which is removed when the job ends.
type Job struct {
	ID         string
	Source     *VideoSource
	Chunks     []*Chunk
	TempDir    string
	OutputPath string
	StartedAt  time.Time
}

// NewJob creates a job with a fresh UUID.
func NewJob(inputPath, outputPath string) *Job {
	return &Job{
		ID:         uuid.New().String(),
		Source:     &VideoSource{Path: inputPath},
		OutputPath: outputPath,
		StartedAt:  time.Now(),
	}
}

// JobReport summarizes a finished job.
type JobReport struct {
	JobID      string         `json:"job_id"`
	InputPath  string         `json:"input_path"`
	OutputPath string         `json:"output_path,omitempty"`
	Status     JobStatus      `json:"status"`
	Error      string         `json:"error,omitempty"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Chunks     []*ChunkResult `json:"chunks"`
}

// ChunksSucceeded counts the successful chunk results.
func (r *JobReport) ChunksSucceeded() int {
	return len(Successful(r.Chunks))
}

// FramesWritten sums the frames written across all chunks.
func (r *JobReport) FramesWritten() int {
	total := 0
	for _, c := range r.Chunks {
		if c != nil {
			total += c.FramesWritten
		}
	}
	return total
}

// Elapsed returns the wall time of the job.
func (r *JobReport) Elapsed() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
