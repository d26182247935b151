package models

import (
	"fmt"
	"image"
	"strconv"
	"strings"
)

// RawFrame is a decoded frame.
//
// Pixels are packed RGBA with an opaque alpha byte so the buffer can be
// viewed as an *image.RGBA without copying; only R, G and B carry data.
// Index is the frame's ordinal position within its chunk.
type RawFrame struct {
	Index  int
	Width  int
	Height int
	Pix    []uint8
}

// NewRawFrame allocates a frame buffer for width x height pixels.
func NewRawFrame(width, height int) *RawFrame {
	return &RawFrame{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height*4),
	}
}

// FrameBytes is the size of one packed RGBA frame.
func FrameBytes(width, height int) int {
	return width * height * 4
}

// Image returns an *image.RGBA view sharing the frame's pixels.
func (f *RawFrame) Image() *image.RGBA {
	return &image.RGBA{
		Pix:    f.Pix,
		Stride: f.Width * 4,
		Rect:   image.Rect(0, 0, f.Width, f.Height),
	}
}

// Release marks the frame as unused. The buffer is kept as is; the next
// decode overwrites every byte of it.
func (f *RawFrame) Release() {
	f.Index = -1
}

// AlphaMask is a single-channel opacity matrix with the same dimensions as
// its frame. Coverage is stored as 8 bits; 255 is fully foreground (1.0)
// and 0 is fully background (0.0).
type AlphaMask struct {
	*image.Gray
}

// NewAlphaMask allocates a mask of width x height.
func NewAlphaMask(width, height int) *AlphaMask {
	return &AlphaMask{Gray: image.NewGray(image.Rect(0, 0, width, height))}
}

// Width returns the mask width in pixels.
func (m *AlphaMask) Width() int {
	return m.Rect.Dx()
}

// Height returns the mask height in pixels.
func (m *AlphaMask) Height() int {
	return m.Rect.Dy()
}

// Value returns the opacity at (x, y) in [0, 1].
func (m *AlphaMask) Value(x, y int) float64 {
	return float64(m.GrayAt(x, y).Y) / 255
}

// Fill sets every pixel of the mask to v, clamped to [0, 1].
func (m *AlphaMask) Fill(v float64) {
	a := quantize(v)
	for i := range m.Pix {
		m.Pix[i] = a
	}
}

// Release zeroes the mask so no coverage from the previous frame leaks
// into the next one.
func (m *AlphaMask) Release() {
	clear(m.Pix)
}

func quantize(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	default:
		return uint8(v*255 + 0.5)
	}
}

// CompositedFrame is the packed RGB frame handed to the chunk encoder.
type CompositedFrame struct {
	Index  int
	Width  int
	Height int
	Pix    []uint8
}

// NewCompositedFrame allocates an RGB buffer for width x height pixels.
func NewCompositedFrame(width, height int) *CompositedFrame {
	return &CompositedFrame{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height*3),
	}
}

// Release resets the frame index; the buffer is overwritten on reuse.
func (f *CompositedFrame) Release() {
	f.Index = -1
}

// Color is a solid background color.
type Color struct {
	R, G, B uint8
}

var namedColors = map[string]Color{
	"green": {0x00, 0xFF, 0x00},
	"blue":  {0x00, 0x00, 0xFF},
	"red":   {0xFF, 0x00, 0x00},
	"white": {0xFF, 0xFF, 0xFF},
	"black": {0x00, 0x00, 0x00},
}

// ParseColor accepts a color name (green, blue, red, white, black) or a
// hex value in "#RRGGBB" or "0xRRGGBB" form.
func ParseColor(s string) (Color, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := namedColors[s]; ok {
		return c, nil
	}

	hex := strings.TrimPrefix(strings.TrimPrefix(s, "#"), "0x")
	if len(hex) != 6 {
		return Color{}, fmt.Errorf("invalid color %q: want a name or #RRGGBB", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

// Hex formats the color as "#RRGGBB".
func (c Color) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}
