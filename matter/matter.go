// Package matter turns a decoded frame into an alpha mask at the frame's
// native resolution using a matting Engine.
package matter

import (
	"bgremove/engine"
	"bgremove/models"
	"fmt"
	"image"
	"math"

	"golang.org/x/image/draw"
)

// Matter resizes frames to the engine's working resolution, runs
// inference and scales the resulting mask back up.
//
// A Matter owns reusable working buffers and is not safe for concurrent
// use; create one per processor.
type Matter struct {
	engine engine.Engine
	size   int

	small     *image.RGBA
	smallMask *image.Gray
	input     []float32
	alpha     []float32
}

// New creates a Matter for e.
func New(e engine.Engine) (*Matter, error) {
	size := e.InputSize()
	if size <= 0 {
		return nil, fmt.Errorf("engine reports invalid input size %d", size)
	}
	rect := image.Rect(0, 0, size, size)
	return &Matter{
		engine:    e,
		size:      size,
		small:     image.NewRGBA(rect),
		smallMask: image.NewGray(rect),
		input:     make([]float32, 3*size*size),
		alpha:     make([]float32, size*size),
	}, nil
}

// Matte writes the foreground opacity of frame into dst, which must have
// the frame's dimensions. Any engine failure, including a panic, is
// reported as models.ErrInference.
func (m *Matter) Matte(frame *models.RawFrame, dst *models.AlphaMask) (err error) {
	if frame.Width <= 0 || frame.Height <= 0 || len(frame.Pix) != models.FrameBytes(frame.Width, frame.Height) {
		return fmt.Errorf("%w: malformed frame %dx%d", models.ErrInference, frame.Width, frame.Height)
	}
	if dst.Width() != frame.Width || dst.Height() != frame.Height {
		return fmt.Errorf("%w: mask is %dx%d, frame is %dx%d",
			models.ErrInference, dst.Width(), dst.Height(), frame.Width, frame.Height)
	}

	src := frame.Image()
	draw.BiLinear.Scale(m.small, m.small.Bounds(), src, src.Bounds(), draw.Src, nil)
	m.pack()

	if err := m.infer(); err != nil {
		return err
	}

	for i, v := range m.alpha {
		m.smallMask.Pix[i] = quantize(v)
	}

	if frame.Width == m.size && frame.Height == m.size {
		copy(dst.Pix, m.smallMask.Pix)
		return nil
	}
	draw.BiLinear.Scale(dst.Gray, dst.Bounds(), m.smallMask, m.smallMask.Bounds(), draw.Src, nil)
	return nil
}

// pack converts the working image to planar CHW floats in [0, 1].
func (m *Matter) pack() {
	plane := m.size * m.size
	for i := 0; i < plane; i++ {
		p := m.small.Pix[i*4 : i*4+3 : i*4+3]
		m.input[i] = float32(p[0]) / 255
		m.input[plane+i] = float32(p[1]) / 255
		m.input[2*plane+i] = float32(p[2]) / 255
	}
}

func (m *Matter) infer() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: engine panic: %v", models.ErrInference, r)
		}
	}()

	if err := m.engine.Infer(m.input, m.alpha); err != nil {
		return fmt.Errorf("%w: %w", models.ErrInference, err)
	}
	return nil
}

// quantize clamps a probability to [0, 1] and maps it to 8 bits. NaN is
// treated as background.
func quantize(v float32) uint8 {
	f := float64(v)
	switch {
	case math.IsNaN(f) || f <= 0:
		return 0
	case f >= 1:
		return 255
	default:
		return uint8(f*255 + 0.5)
	}
}
