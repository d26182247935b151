package models

import "time"

// ProgressState is the phase a job is in.
type ProgressState string

const (
	ProgressStateProbing    ProgressState = "probing"
	ProgressStateProcessing ProgressState = "processing"
	ProgressStateMerging    ProgressState = "merging"
	ProgressStateCompleted  ProgressState = "completed"
	ProgressStateFailed     ProgressState = "failed"
)

// JobProgress is a snapshot of a running job.
type JobProgress struct {
	JobID        string
	State        ProgressState
	TotalChunks  int
	DoneChunks   int
	FailedChunks int

	// LastChunk is the result that triggered this update, if any.
	LastChunk *ChunkResult

	StartTime time.Time
	UpdatedAt time.Time
}

// ProgressCallback receives progress updates. It may be called from
// worker goroutines but never concurrently.
type ProgressCallback func(progress JobProgress)

// Percent returns the share of finished chunks in [0, 100].
func (p JobProgress) Percent() float64 {
	if p.TotalChunks == 0 {
		return 0
	}
	return float64(p.DoneChunks) / float64(p.TotalChunks) * 100
}

// ETA estimates the remaining time from the average chunk duration so far.
func (p JobProgress) ETA() time.Duration {
	if p.DoneChunks == 0 {
		return 0
	}
	elapsed := p.UpdatedAt.Sub(p.StartTime)
	perChunk := elapsed / time.Duration(p.DoneChunks)
	return perChunk * time.Duration(p.TotalChunks-p.DoneChunks)
}
