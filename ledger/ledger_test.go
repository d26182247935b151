package ledger

import (
	"bgremove/models"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "jobs.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func sampleReport(id string, finished time.Time) *models.JobReport {
	return &models.JobReport{
		JobID:      id,
		InputPath:  "/videos/talk.mp4",
		OutputPath: "/videos/talk_nobg.mp4",
		Status:     models.JobStatusPartial,
		StartedAt:  finished.Add(-time.Minute),
		FinishedAt: finished,
		Chunks: []*models.ChunkResult{
			{Index: 1, Window: models.TimeWindow{Start: 0, End: 15}, Success: true, OutputPath: "/tmp/c1.mp4", FramesDecoded: 375, FramesWritten: 375},
			{Index: 2, Window: models.TimeWindow{Start: 15, End: 30}, Error: models.ErrChunkEncode, FramesDecoded: 375, FramesDropped: 375},
			{Index: 3, Window: models.TimeWindow{Start: 30, End: 40}, Success: true, OutputPath: "/tmp/c3.mp4", FramesDecoded: 250, FramesWritten: 249, FramesDropped: 1},
		},
	}
}

func TestLedger_RecordJob(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()
	now := time.Now()

	if err := l.RecordJob(ctx, sampleReport("job-1", now)); err != nil {
		t.Fatalf("RecordJob() error = %v", err)
	}

	jobs, err := l.RecentJobs(ctx, 10)
	if err != nil {
		t.Fatalf("RecentJobs() error = %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("Expected 1 job, got %d", len(jobs))
	}
	job := jobs[0]
	if job.Status != "partial" || job.Chunks != 3 || job.Succeeded != 2 || job.Frames != 624 {
		t.Errorf("Unexpected job record %+v", job)
	}

	chunks, err := l.JobChunks(ctx, "job-1")
	if err != nil {
		t.Fatalf("JobChunks() error = %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("Expected 3 chunks, got %d", len(chunks))
	}
	if chunks[1].Status != "failed" || chunks[1].Error != models.ErrChunkEncode.Error() {
		t.Errorf("Unexpected failed chunk %+v", chunks[1])
	}
	if chunks[2].Start != 30 || chunks[2].End != 40 || chunks[2].FramesDropped != 1 {
		t.Errorf("Unexpected tail chunk %+v", chunks[2])
	}
}

func TestLedger_RecordJobReplaces(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()
	now := time.Now()

	report := sampleReport("job-1", now)
	if err := l.RecordJob(ctx, report); err != nil {
		t.Fatal(err)
	}

	report.Status = models.JobStatusSucceeded
	report.Chunks = report.Chunks[:1]
	if err := l.RecordJob(ctx, report); err != nil {
		t.Fatal(err)
	}

	jobs, _ := l.RecentJobs(ctx, 10)
	if len(jobs) != 1 || jobs[0].Status != "succeeded" {
		t.Errorf("Expected replaced job, got %+v", jobs)
	}
	chunks, _ := l.JobChunks(ctx, "job-1")
	if len(chunks) != 1 {
		t.Errorf("Expected chunks to be replaced, got %d", len(chunks))
	}
}

func TestLedger_RecentJobsOrder(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()
	now := time.Now()

	for i, id := range []string{"old", "new", "mid"} {
		offsets := []time.Duration{-2 * time.Hour, 0, -time.Hour}
		if err := l.RecordJob(ctx, sampleReport(id, now.Add(offsets[i]))); err != nil {
			t.Fatal(err)
		}
	}

	jobs, err := l.RecentJobs(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 2 || jobs[0].JobID != "new" || jobs[1].JobID != "mid" {
		t.Errorf("Unexpected order %+v", jobs)
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "missing", "dir", "jobs.db")); err == nil {
		t.Error("Expected error for unwritable path")
	}
}

func TestLedger_WriteHistory(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()
	now := time.Now()

	if err := l.RecordJob(ctx, sampleReport("job-old", now.Add(-time.Hour))); err != nil {
		t.Fatal(err)
	}
	failed := sampleReport("job-new", now)
	failed.Status = models.JobStatusFailed
	failed.Error = "merge failed"
	if err := l.RecordJob(ctx, failed); err != nil {
		t.Fatal(err)
	}

	var buf strings.Builder
	if err := l.WriteHistory(ctx, &buf, 1); err != nil {
		t.Fatalf("WriteHistory() error = %v", err)
	}
	out := buf.String()

	want := []string{
		"job-new",
		"failed",
		"2/3 chunks",
		"/videos/talk.mp4",
		"merge failed",
		"chunk 2",
		"[30.000, 40.000)",
		models.ErrChunkEncode.Error(),
	}
	for _, w := range want {
		if !strings.Contains(out, w) {
			t.Errorf("Expected %q in history:\n%s", w, out)
		}
	}
	if strings.Contains(out, "job-old") {
		t.Errorf("Expected only the newest job, got:\n%s", out)
	}
	if strings.Index(out, "chunk 1") > strings.Index(out, "chunk 3") {
		t.Errorf("Expected chunks in index order, got:\n%s", out)
	}
}

func TestLedger_WriteHistoryEmpty(t *testing.T) {
	l := openTestLedger(t)

	var buf strings.Builder
	if err := l.WriteHistory(context.Background(), &buf, 5); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "No jobs recorded") {
		t.Errorf("Unexpected output %q", buf.String())
	}
}
