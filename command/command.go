// Package command provides the Command interface implemented by the
// ffmpeg argument builders of the pipeline.
//
// Builders only describe a command. Running it is left to the ffmpeg
// package, which owns process lifecycles, pipes and exit-status handling.
package command

import "strings"

// TaskType identifies what a command does.
type TaskType string

const (
	TaskTypeDecode TaskType = "decode" // chunk window to raw frames
	TaskTypeEncode TaskType = "encode" // raw frames to chunk video
	TaskTypeConcat TaskType = "concat" // chunk videos to one file
	TaskTypeMixing TaskType = "mixing" // video plus source audio
)

// Binary is the executable every builder targets.
const Binary = "ffmpeg"

// Command is an ffmpeg invocation that can be built or previewed.
//
// Example usage:
//
//	cmd := decode.NewDecodeBuilder(chunk).SetScale(1280, 720)
//	preview, _ := cmd.DryRun()
//	reader, err := runner.StartReader(ctx, cmd, 1280, 720)
type Command interface {
	// BuildArgs returns the ffmpeg arguments, without the binary name.
	BuildArgs() []string

	// DryRun returns "ffmpeg <args...>" or an error if the builder is
	// missing required parameters.
	DryRun() (string, error)

	// GetTaskType returns the kind of work the command performs.
	GetTaskType() TaskType

	// GetInputPath returns the primary input ("pipe:0" for piped input).
	GetInputPath() string

	// GetOutputPath returns the output ("pipe:1" for piped output).
	GetOutputPath() string
}

// Preview joins args into a shell-like string, quoting arguments that
// contain spaces.
func Preview(args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, Binary)
	for _, a := range args {
		if a == "" || strings.ContainsAny(a, " \t'\"") {
			a = "'" + strings.ReplaceAll(a, "'", `'\''`) + "'"
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}
