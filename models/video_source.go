package models

import (
	"fmt"
	"strconv"
	"strings"
)

// VideoSource describes an input video. It is produced once by the prober
// and is read-only for the rest of the job.
type VideoSource struct {
	Path     string  `json:"path"`
	Duration float64 `json:"duration"`

	// FrameRate is the average frame rate as a float. FrameRateExpr keeps
	// the exact rational form reported by the container (e.g. "30000/1001")
	// and is preferred when talking to ffmpeg.
	FrameRate     float64 `json:"frame_rate"`
	FrameRateExpr string  `json:"frame_rate_expr,omitempty"`

	// Width and Height are the display size, after Rotation is applied.
	// Rotation is the clockwise quarter turn (0, 90, 180, 270) the decoder
	// applies to the coded frames.
	Width    int  `json:"width"`
	Height   int  `json:"height"`
	Rotation int  `json:"rotation,omitempty"`
	HasAudio bool `json:"has_audio"`
}

// Validate checks the metadata needed to plan and decode chunks.
func (v *VideoSource) Validate() error {
	var problems []string
	if strings.TrimSpace(v.Path) == "" {
		problems = append(problems, "path is empty")
	}
	if v.Duration <= 0 {
		problems = append(problems, fmt.Sprintf("invalid duration %.3f", v.Duration))
	}
	if v.FrameRate <= 0 {
		problems = append(problems, fmt.Sprintf("invalid frame rate %.3f", v.FrameRate))
	}
	if v.Width <= 0 || v.Height <= 0 {
		problems = append(problems, fmt.Sprintf("invalid dimensions %dx%d", v.Width, v.Height))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, ", "))
	}
	return nil
}

// RateArg returns the frame rate formatted for ffmpeg's -r option.
func (v *VideoSource) RateArg() string {
	if v.FrameRateExpr != "" {
		return v.FrameRateExpr
	}
	return strconv.FormatFloat(v.FrameRate, 'f', -1, 64)
}

// FrameSize returns the decode size for the source, scaled down to
// maxHeight (keeping the aspect ratio and an even width) when the source
// is taller. maxHeight <= 0 keeps the native size.
func (v *VideoSource) FrameSize(maxHeight int) (width, height int) {
	if maxHeight <= 0 || v.Height <= maxHeight {
		return v.Width, v.Height
	}
	width = int(float64(v.Width)*float64(maxHeight)/float64(v.Height) + 0.5)
	if width%2 == 1 {
		width++
	}
	if width < 2 {
		width = 2
	}
	return width, maxHeight
}

// GetDuration returns the duration in seconds, satisfying chunker.MediaInfo.
func (v *VideoSource) GetDuration() (float64, error) {
	if v.Duration <= 0 {
		return 0, fmt.Errorf("invalid duration: %.3f seconds", v.Duration)
	}
	return v.Duration, nil
}
