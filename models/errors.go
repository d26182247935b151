package models

import "errors"

// Error kinds of the pipeline. Concrete errors wrap one of these and are
// matched with errors.Is.
var (
	// ErrDecode means the source is unreadable; fatal for the job.
	ErrDecode = errors.New("decode error")

	// ErrInference is a per-frame matting failure; the frame is skipped.
	ErrInference = errors.New("inference error")

	// ErrCompositeContract means mask and frame sizes differ. It is a
	// defect, but the frame is skipped the same way as ErrInference.
	ErrCompositeContract = errors.New("composite contract violation")

	// ErrChunkEncode means a chunk produced no output; the chunk is
	// excluded from the merge.
	ErrChunkEncode = errors.New("chunk produced no output")

	// ErrMerge means the concatenation failed or had nothing to join.
	ErrMerge = errors.New("merge failed")

	// ErrNoChunksProduced means every chunk failed.
	ErrNoChunksProduced = errors.New("no chunks produced")
)
