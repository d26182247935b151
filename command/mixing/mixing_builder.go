// Package mixing builds the ffmpeg command that carries the source audio
// over onto the background-removed video.
package mixing

import (
	"bgremove/command"
	"fmt"
	"sort"
	"strings"
)

// MixingBuilder muxes the processed video with audio taken from other
// inputs. The video stream is always stream-copied.
//
// Audio mappings are optional ("1:a:0?"), so a source without an audio
// track still produces an output instead of an ffmpeg error.
type MixingBuilder struct {
	videoInput   string
	audioInputs  []string
	outputPath   string
	audioCodec   string
	audioBitrate string
	shortest     bool

	metadata   map[string]string
	mapStreams []string
	extraArgs  []string
}

// NewMixingBuilder creates a new mixing builder.
// videoInput: merged video without audio (required)
// outputPath: final output file (required)
func NewMixingBuilder(videoInput, outputPath string) *MixingBuilder {
	return &MixingBuilder{
		videoInput: videoInput,
		outputPath: outputPath,
		audioCodec: "aac", // source codecs are not all valid in mp4
		shortest:   true,
		metadata:   make(map[string]string),
	}
}

// AddAudioTrack adds an input whose first audio stream is carried over.
// Can be called multiple times for multiple audio tracks.
func (m *MixingBuilder) AddAudioTrack(path string) *MixingBuilder {
	m.audioInputs = append(m.audioInputs, path)
	return m
}

// SetAudioCodec sets the audio codec ("copy" keeps the source stream).
func (m *MixingBuilder) SetAudioCodec(codec string) *MixingBuilder {
	m.audioCodec = codec
	return m
}

// SetAudioBitrate sets the audio bitrate when re-encoding.
func (m *MixingBuilder) SetAudioBitrate(bitrate string) *MixingBuilder {
	m.audioBitrate = bitrate
	return m
}

// SetShortest stops the output at the end of the shortest stream.
func (m *MixingBuilder) SetShortest(shortest bool) *MixingBuilder {
	m.shortest = shortest
	return m
}

// AddMetadata adds metadata to the output file.
// Common keys: title, comment, description
func (m *MixingBuilder) AddMetadata(key, value string) *MixingBuilder {
	m.metadata[key] = value
	return m
}

// MapStream replaces the default mapping with an explicit one.
// Example: "0:v:0" maps the first video stream of the first input
func (m *MixingBuilder) MapStream(mapping string) *MixingBuilder {
	m.mapStreams = append(m.mapStreams, mapping)
	return m
}

// AddExtraArgs adds custom ffmpeg arguments.
func (m *MixingBuilder) AddExtraArgs(args ...string) *MixingBuilder {
	m.extraArgs = append(m.extraArgs, args...)
	return m
}

// BuildArgs constructs the ffmpeg command arguments.
func (m *MixingBuilder) BuildArgs() []string {
	args := []string{"-hide_banner", "-loglevel", "error"}

	args = append(args, "-i", m.videoInput)
	for _, audio := range m.audioInputs {
		args = append(args, "-i", audio)
	}

	if len(m.mapStreams) > 0 {
		for _, mapping := range m.mapStreams {
			args = append(args, "-map", mapping)
		}
	} else {
		args = append(args, "-map", "0:v:0")
		for i := range m.audioInputs {
			args = append(args, "-map", fmt.Sprintf("%d:a:0?", i+1))
		}
	}

	args = append(args, "-c:v", "copy")

	if m.audioCodec != "" {
		args = append(args, "-c:a", m.audioCodec)
	}
	if m.audioBitrate != "" && m.audioCodec != "copy" {
		args = append(args, "-b:a", m.audioBitrate)
	}

	if m.shortest {
		args = append(args, "-shortest")
	}

	// Sorted so the same builder always yields the same command
	keys := make([]string, 0, len(m.metadata))
	for key := range m.metadata {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		args = append(args, "-metadata", fmt.Sprintf("%s=%s", key, m.metadata[key]))
	}

	args = append(args, m.extraArgs...)
	args = append(args, "-y", m.outputPath)

	return args
}

// DryRun returns the command that would be executed without running it.
func (m *MixingBuilder) DryRun() (string, error) {
	if strings.TrimSpace(m.videoInput) == "" {
		return "", fmt.Errorf("mixing builder has no video input")
	}
	if strings.TrimSpace(m.outputPath) == "" {
		return "", fmt.Errorf("mixing builder has no output path")
	}
	if m.videoInput == m.outputPath {
		return "", fmt.Errorf("mixing output must differ from video input")
	}
	return command.Preview(m.BuildArgs()), nil
}

// GetTaskType returns the task type identifier.
func (m *MixingBuilder) GetTaskType() command.TaskType {
	return command.TaskTypeMixing
}

// GetInputPath returns the primary input path (video).
func (m *MixingBuilder) GetInputPath() string {
	return m.videoInput
}

// GetOutputPath returns the output file path.
func (m *MixingBuilder) GetOutputPath() string {
	return m.outputPath
}
