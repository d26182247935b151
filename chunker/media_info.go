package chunker

// MediaInfo is the minimal metadata the chunker needs.
//
// It decouples planning from the probing implementation; *models.VideoSource
// satisfies it, and tests use a small mock.
type MediaInfo interface {
	// GetDuration returns the media duration in seconds, or an error if
	// it is unknown or invalid.
	GetDuration() (float64, error)
}
