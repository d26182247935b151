// Package timeutil formats time offsets for ffmpeg arguments and logs.
package timeutil

import (
	"fmt"
	"math"
	"strconv"
)

// FormatSeconds converts seconds to HH:MM:SS.mmm.
//
// Milliseconds are rounded, not truncated, so a value such as 29.9996
// prints as 00:00:30.000.
//
// Example:
//
//	FormatSeconds(0)       // "00:00:00.000"
//	FormatSeconds(90)      // "00:01:30.000"
//	FormatSeconds(3661.5)  // "01:01:01.500"
func FormatSeconds(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	ms := int64(math.Round(seconds * 1000))
	h := ms / 3_600_000
	m := (ms % 3_600_000) / 60_000
	s := (ms % 60_000) / 1000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms%1000)
}

// Offset formats seconds as a plain decimal with microsecond precision,
// which ffmpeg accepts for -ss, -t and -to.
func Offset(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	return strconv.FormatFloat(seconds, 'f', 6, 64)
}
