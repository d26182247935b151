package ledger

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
)

// WriteHistory prints the limit most recent jobs, newest first, each
// followed by the outcome of its chunks.
func (l *Ledger) WriteHistory(ctx context.Context, w io.Writer, limit int) error {
	jobs, err := l.RecentJobs(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to list jobs: %w", err)
	}
	if len(jobs) == 0 {
		_, err := fmt.Fprintln(w, "No jobs recorded.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, job := range jobs {
		if i > 0 {
			fmt.Fprintln(tw)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d/%d chunks\t%d frames\t%s\n",
			job.JobID, job.Status, job.Succeeded, job.Chunks, job.Frames, job.FinishedAt)
		fmt.Fprintf(tw, "  input:\t%s\n", job.InputPath)
		if job.OutputPath != "" {
			fmt.Fprintf(tw, "  output:\t%s\n", job.OutputPath)
		}
		if job.Error != "" {
			fmt.Fprintf(tw, "  error:\t%s\n", job.Error)
		}

		chunks, err := l.JobChunks(ctx, job.JobID)
		if err != nil {
			return fmt.Errorf("failed to list chunks of job %s: %w", job.JobID, err)
		}
		for _, c := range chunks {
			fmt.Fprintf(tw, "  chunk %d\t[%.3f, %.3f)\t%s\t%d/%d frames",
				c.Index, c.Start, c.End, c.Status, c.FramesWritten, c.FramesDecoded)
			if c.Error != "" {
				fmt.Fprintf(tw, "\t%s", c.Error)
			}
			fmt.Fprintln(tw)
		}
	}
	return tw.Flush()
}
