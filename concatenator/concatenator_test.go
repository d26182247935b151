package concatenator

import (
	"bgremove/command"
	"bgremove/models"
	"bufio"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// joinRunner emulates the concat demuxer by appending the bytes of every
// file listed in the manifest to the output.
type joinRunner struct {
	err       error
	manifests []string
	calls     int
}

func (r *joinRunner) Run(ctx context.Context, cmd command.Command) error {
	r.calls++
	if r.err != nil {
		return r.err
	}

	data, err := os.ReadFile(cmd.GetInputPath())
	if err != nil {
		return err
	}
	r.manifests = append(r.manifests, string(data))

	var out []byte
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	for scanner.Scan() {
		line := strings.TrimSuffix(strings.TrimPrefix(scanner.Text(), "file '"), "'")
		chunk, err := os.ReadFile(strings.ReplaceAll(line, `'\''`, "'"))
		if err != nil {
			return err
		}
		out = append(out, chunk...)
	}
	return os.WriteFile(cmd.GetOutputPath(), out, 0o644)
}

func writeChunks(t *testing.T, dir string, contents ...string) []*models.ChunkResult {
	t.Helper()
	results := make([]*models.ChunkResult, 0, len(contents))
	for i, c := range contents {
		idx := uint(i + 1)
		if c == "" {
			results = append(results, &models.ChunkResult{Index: idx, Error: models.ErrChunkEncode})
			continue
		}
		path := filepath.Join(dir, "chunk_"+c+".mp4")
		if err := os.WriteFile(path, []byte(c), 0o644); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}
		results = append(results, &models.ChunkResult{Index: idx, OutputPath: path, Success: true})
	}
	return results
}

func TestValidateResults(t *testing.T) {
	dir := t.TempDir()
	c := NewConcatenator(&joinRunner{}, true, nil)

	if _, _, err := c.validateResults(nil); err == nil {
		t.Error("Expected error for empty results")
	}

	results := writeChunks(t, dir, "A", "", "C")
	results = append(results, &models.ChunkResult{Index: 4, OutputPath: filepath.Join(dir, "gone.mp4"), Success: true}, nil)

	// Reverse to check sorting
	for i, j := 0, len(results)-1; i < j; i, j = i+1, j-1 {
		results[i], results[j] = results[j], results[i]
	}

	successful, failed, err := c.validateResults(results)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(successful) != 2 || len(failed) != 2 {
		t.Fatalf("Expected 2 successful and 2 failed, got %d and %d", len(successful), len(failed))
	}
	if successful[0].Index != 1 || successful[1].Index != 3 {
		t.Errorf("Results not sorted by index: %d, %d", successful[0].Index, successful[1].Index)
	}
}

func TestCheckForGaps(t *testing.T) {
	tests := []struct {
		name        string
		indexes     []uint
		expectError bool
	}{
		{"no gaps", []uint{1, 2, 3}, false},
		{"single gap", []uint{1, 3}, true},
		{"multiple gaps", []uint{1, 4, 7}, true},
		{"missing first", []uint{2, 3}, true},
		{"single chunk", []uint{1}, false},
		{"empty", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := make([]*models.ChunkResult, len(tt.indexes))
			for i, idx := range tt.indexes {
				results[i] = &models.ChunkResult{Index: idx}
			}
			err := NewConcatenator(&joinRunner{}, true, nil).checkForGaps(results)
			if (err != nil) != tt.expectError {
				t.Errorf("checkForGaps() error = %v, expectError %v", err, tt.expectError)
			}
		})
	}
}

func TestConcatenate_MergesInOrder(t *testing.T) {
	dir := t.TempDir()
	results := writeChunks(t, dir, "A", "B", "C")
	results[0], results[2] = results[2], results[0]
	output := filepath.Join(dir, "merged.mp4")
	runner := &joinRunner{}

	if err := NewConcatenator(runner, true, nil).Concatenate(context.Background(), results, dir, output); err != nil {
		t.Fatalf("Concatenate() error = %v", err)
	}

	data, _ := os.ReadFile(output)
	if string(data) != "ABC" {
		t.Errorf("Expected chunks in index order, got %q", data)
	}
	if len(runner.manifests) != 1 || !strings.HasPrefix(runner.manifests[0], "file '") {
		t.Errorf("Unexpected manifest %v", runner.manifests)
	}

	// The manifest is removed after the merge
	matches, _ := filepath.Glob(filepath.Join(dir, "concat-*.txt"))
	if len(matches) != 0 {
		t.Errorf("Expected manifest to be removed, found %v", matches)
	}
}

func TestConcatenate_SkipsFailedChunks(t *testing.T) {
	dir := t.TempDir()
	results := writeChunks(t, dir, "A", "", "C")
	output := filepath.Join(dir, "merged.mp4")

	if err := NewConcatenator(&joinRunner{}, false, nil).Concatenate(context.Background(), results, dir, output); err != nil {
		t.Fatalf("Concatenate() error = %v", err)
	}
	data, _ := os.ReadFile(output)
	if string(data) != "AC" {
		t.Errorf("Expected %q, got %q", "AC", data)
	}
}

func TestConcatenate_StrictMode(t *testing.T) {
	dir := t.TempDir()
	results := writeChunks(t, dir, "A", "", "C")
	runner := &joinRunner{}

	err := NewConcatenator(runner, true, nil).Concatenate(context.Background(), results, dir, filepath.Join(dir, "out.mp4"))
	if !errors.Is(err, models.ErrMerge) {
		t.Fatalf("Expected ErrMerge, got %v", err)
	}
	if !strings.Contains(err.Error(), "strict mode") {
		t.Errorf("Expected strict mode error, got %v", err)
	}
	if runner.calls != 0 {
		t.Error("ffmpeg should not run in strict mode with failures")
	}
}

func TestConcatenate_Failures(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		runner  *joinRunner
		results []*models.ChunkResult
	}{
		{"no results", &joinRunner{}, nil},
		{"only failures", &joinRunner{}, writeChunks(t, dir, "", "")},
		{"ffmpeg error", &joinRunner{err: errors.New("exit status 1")}, writeChunks(t, dir, "X")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewConcatenator(tt.runner, false, nil).Concatenate(context.Background(), tt.results, dir, filepath.Join(dir, "out.mp4"))
			if !errors.Is(err, models.ErrMerge) {
				t.Errorf("Expected ErrMerge, got %v", err)
			}
		})
	}
}
