// Package ffprobe extracts the video metadata the pipeline needs (duration,
// frame rate, resolution, audio presence) using the ffprobe command-line
// tool.
package ffprobe

import (
	"bgremove/models"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// Stream represents a media stream (audio, video, subtitle, etc.)
type Stream struct {
	Index        int    `json:"index"`
	CodecName    string `json:"codec_name"`
	CodecType    string `json:"codec_type"`
	Width        int    `json:"width,omitempty"`
	Height       int    `json:"height,omitempty"`
	RFrameRate   string `json:"r_frame_rate,omitempty"`
	AvgFrameRate string `json:"avg_frame_rate,omitempty"`
	NbFrames     string `json:"nb_frames,omitempty"`
	Duration     string `json:"duration,omitempty"`

	Tags         map[string]string `json:"tags,omitempty"`
	SideDataList []SideData        `json:"side_data_list,omitempty"`
}

// SideData is one entry of a stream's side_data_list. Only the display
// matrix rotation is read.
type SideData struct {
	SideDataType string  `json:"side_data_type"`
	Rotation     float64 `json:"rotation,omitempty"`
}

// Rotation returns the clockwise display rotation of the stream in
// degrees: 0, 90, 180 or 270. The display matrix wins over the legacy
// "rotate" tag.
//
// ffprobe reports the display matrix rotation counter-clockwise, so -90
// there is the same as rotate=90.
func (s *Stream) Rotation() int {
	for _, sd := range s.SideDataList {
		if sd.SideDataType == "Display Matrix" {
			return normalizeRotation(-sd.Rotation)
		}
	}
	if tag, ok := s.Tags["rotate"]; ok {
		if deg, err := strconv.ParseFloat(strings.TrimSpace(tag), 64); err == nil {
			return normalizeRotation(deg)
		}
	}
	return 0
}

// normalizeRotation snaps deg to the nearest quarter turn in [0, 360).
func normalizeRotation(deg float64) int {
	quarter := int(math.Round(deg/90)) % 4
	if quarter < 0 {
		quarter += 4
	}
	return quarter * 90
}

// Format represents the container format information.
type Format struct {
	Filename   string `json:"filename"`
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	BitRate    string `json:"bit_rate"`
}

// ProbeResult holds the raw metadata reported by ffprobe.
type ProbeResult struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// GetDuration returns the duration of the media file in seconds, falling
// back to the video stream duration when the container has none.
func (pr *ProbeResult) GetDuration() (float64, error) {
	raw := pr.Format.Duration
	if raw == "" || raw == "N/A" {
		if v := pr.VideoStream(); v != nil {
			raw = v.Duration
		}
	}
	if raw == "" || raw == "N/A" {
		return 0, fmt.Errorf("duration not available in format metadata")
	}

	duration, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration '%s': %w", raw, err)
	}

	return duration, nil
}

// VideoStream returns the first video stream, or nil if there is none.
//
// Attached pictures (cover art) are reported as mjpeg/png video streams
// with a nonsense rate and are skipped.
func (pr *ProbeResult) VideoStream() *Stream {
	for i := range pr.Streams {
		s := &pr.Streams[i]
		if s.CodecType != "video" {
			continue
		}
		if (s.CodecName == "mjpeg" || s.CodecName == "png") && s.AvgFrameRate == "0/0" {
			continue
		}
		return s
	}
	return nil
}

// GetAudioStreams returns all audio streams from the media file.
func (pr *ProbeResult) GetAudioStreams() []Stream {
	var audioStreams []Stream
	for _, stream := range pr.Streams {
		if stream.CodecType == "audio" {
			audioStreams = append(audioStreams, stream)
		}
	}
	return audioStreams
}

// VideoSource converts the probe result into the pipeline's source
// description. Missing or unusable metadata is a decode error.
//
// Width and Height are the display size. ffmpeg applies the rotation when
// decoding, so a 1920x1080 stream rotated by 90 degrees yields 1080x1920
// frames.
func (pr *ProbeResult) VideoSource(path string) (*models.VideoSource, error) {
	video := pr.VideoStream()
	if video == nil {
		return nil, fmt.Errorf("%w: %s has no video stream", models.ErrDecode, path)
	}

	duration, err := pr.GetDuration()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", models.ErrDecode, path, err)
	}

	// avg_frame_rate is what the decoder actually emits; r_frame_rate is the
	// container's base rate and can be a multiple of it
	expr := video.AvgFrameRate
	rate := parseFrameRate(expr)
	if rate <= 0 {
		expr = video.RFrameRate
		rate = parseFrameRate(expr)
	}

	width, height := video.Width, video.Height
	rotation := video.Rotation()
	if rotation == 90 || rotation == 270 {
		width, height = height, width
	}

	src := &models.VideoSource{
		Path:          path,
		Duration:      duration,
		FrameRate:     rate,
		FrameRateExpr: expr,
		Width:         width,
		Height:        height,
		Rotation:      rotation,
		HasAudio:      len(pr.GetAudioStreams()) > 0,
	}
	if err := src.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", models.ErrDecode, path, err)
	}
	return src, nil
}

// Parse decodes ffprobe's JSON output.
func Parse(data []byte) (*ProbeResult, error) {
	var result ProbeResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe JSON output: %w", err)
	}
	return &result, nil
}

// Prober runs ffprobe.
type Prober struct {
	// Binary defaults to "ffprobe" on PATH
	Binary string
	Logger *slog.Logger
}

// NewProber creates a prober for binary ("" means ffprobe on PATH).
func NewProber(binary string, logger *slog.Logger) *Prober {
	if binary == "" {
		binary = "ffprobe"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Prober{Binary: binary, Logger: logger}
}

// Probe analyzes a video file and returns its metadata.
//
// Example:
//
//	src, err := ffprobe.NewProber("", logger).Probe(ctx, "/path/to/video.mp4")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("%dx%d @ %s fps, %.2fs\n", src.Width, src.Height, src.RateArg(), src.Duration)
func (p *Prober) Probe(ctx context.Context, sourcePath string) (*models.VideoSource, error) {
	if strings.TrimSpace(sourcePath) == "" {
		return nil, fmt.Errorf("%w: source path cannot be empty", models.ErrDecode)
	}

	// -v error: only report real problems on stderr
	// -of json: machine-readable output on stdout
	args := []string{
		"-v", "error",
		"-show_format",
		"-show_streams",
		"-of", "json",
		sourcePath,
	}

	cmd := exec.CommandContext(ctx, p.Binary, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%w: ffprobe failed: %v (output: %s)", models.ErrDecode, err, strings.TrimSpace(stderr.String()))
	}

	result, err := Parse(output)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrDecode, err)
	}

	src, err := result.VideoSource(sourcePath)
	if err != nil {
		return nil, err
	}

	p.Logger.Info("probed source",
		"path", sourcePath,
		"duration", src.Duration,
		"fps", src.RateArg(),
		"width", src.Width,
		"height", src.Height,
		"rotation", src.Rotation,
		"audio", src.HasAudio)

	return src, nil
}

// parseFrameRate converts "num/den" or a plain number to frames per second.
func parseFrameRate(s string) float64 {
	parts := strings.Split(s, "/")
	if len(parts) == 1 {
		v, _ := strconv.ParseFloat(parts[0], 64)
		return v
	}
	if len(parts) != 2 {
		return 0
	}
	num, _ := strconv.ParseFloat(parts[0], 64)
	den, _ := strconv.ParseFloat(parts[1], 64)
	if den == 0 {
		return 0
	}
	return num / den
}
