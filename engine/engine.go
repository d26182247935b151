// Package engine wraps the pretrained matting model. An Engine maps a
// normalized RGB tensor to a per-pixel foreground probability map of
// the same spatial size.
package engine

import (
	"bgremove/models"
	"fmt"
)

// DefaultInputSize is the square working resolution of the bundled
// MODNet-style models.
const DefaultInputSize = 256

// Engine runs matting inference on one frame at a time.
//
// Input is planar CHW RGB in [0, 1] with length 3*S*S, alpha receives S*S
// probabilities, where S is InputSize. Implementations must be safe for
// use by one processor at a time; the pipeline gives each processor its
// own engine or serializes calls.
type Engine interface {
	InputSize() int
	Infer(input, alpha []float32) error
	Close() error
}

// CheckShapes validates buffer lengths for an engine of the given size.
func CheckShapes(size int, input, alpha []float32) error {
	if size <= 0 {
		return fmt.Errorf("%w: invalid input size %d", models.ErrInference, size)
	}
	if len(input) != 3*size*size {
		return fmt.Errorf("%w: input has %d values, want %d", models.ErrInference, len(input), 3*size*size)
	}
	if len(alpha) != size*size {
		return fmt.Errorf("%w: alpha has %d values, want %d", models.ErrInference, len(alpha), size*size)
	}
	return nil
}
