// Package concat builds the ffmpeg command that joins chunk videos listed
// in a concat-demuxer manifest without re-encoding.
package concat

import (
	"bgremove/command"
	"fmt"
	"strings"
)

// ConcatBuilder joins the files listed in manifestPath into outputPath.
type ConcatBuilder struct {
	manifestPath string
	outputPath   string
	extraArgs    []string
}

// NewConcatBuilder creates a concat command.
func NewConcatBuilder(manifestPath, outputPath string) *ConcatBuilder {
	return &ConcatBuilder{
		manifestPath: manifestPath,
		outputPath:   outputPath,
	}
}

// AddExtraArgs adds custom output arguments.
func (c *ConcatBuilder) AddExtraArgs(args ...string) *ConcatBuilder {
	c.extraArgs = append(c.extraArgs, args...)
	return c
}

// BuildArgs constructs the concat arguments.
func (c *ConcatBuilder) BuildArgs() []string {
	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-f", "concat",
		"-safe", "0", // manifest holds absolute paths
		"-i", c.manifestPath,
		"-c", "copy",
	}
	args = append(args, c.extraArgs...)
	return append(args, "-y", c.outputPath)
}

// DryRun returns the command that would be executed.
func (c *ConcatBuilder) DryRun() (string, error) {
	if strings.TrimSpace(c.manifestPath) == "" {
		return "", fmt.Errorf("concat builder has no manifest")
	}
	if strings.TrimSpace(c.outputPath) == "" {
		return "", fmt.Errorf("concat builder has no output path")
	}
	return command.Preview(c.BuildArgs()), nil
}

// GetTaskType returns the task type identifier.
func (c *ConcatBuilder) GetTaskType() command.TaskType {
	return command.TaskTypeConcat
}

// GetInputPath returns the manifest path.
func (c *ConcatBuilder) GetInputPath() string {
	return c.manifestPath
}

// GetOutputPath returns the merged video path.
func (c *ConcatBuilder) GetOutputPath() string {
	return c.outputPath
}

// ManifestLine formats one entry of a concat manifest, quoting path for
// the demuxer.
func ManifestLine(path string) string {
	return fmt.Sprintf("file '%s'\n", strings.ReplaceAll(path, "'", `'\''`))
}
