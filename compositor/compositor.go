// Package compositor blends a frame over a solid background using its
// alpha mask.
package compositor

import (
	"bgremove/models"
	"fmt"
)

// Composite writes frame*alpha + bg*(1-alpha) into dst for every pixel.
//
// frame, mask and dst must share dimensions; a mismatch is a
// models.ErrCompositeContract error and dst is left untouched. Alpha 255
// reproduces the frame exactly, alpha 0 the background exactly.
func Composite(frame *models.RawFrame, mask *models.AlphaMask, bg models.Color, dst *models.CompositedFrame) error {
	w, h := frame.Width, frame.Height
	if mask.Width() != w || mask.Height() != h {
		return fmt.Errorf("%w: mask %dx%d does not match frame %dx%d",
			models.ErrCompositeContract, mask.Width(), mask.Height(), w, h)
	}
	if dst.Width != w || dst.Height != h || len(dst.Pix) != w*h*3 {
		return fmt.Errorf("%w: output %dx%d does not match frame %dx%d",
			models.ErrCompositeContract, dst.Width, dst.Height, w, h)
	}
	if len(frame.Pix) != models.FrameBytes(w, h) {
		return fmt.Errorf("%w: frame buffer has %d bytes, want %d",
			models.ErrCompositeContract, len(frame.Pix), models.FrameBytes(w, h))
	}

	bgR, bgG, bgB := uint32(bg.R), uint32(bg.G), uint32(bg.B)

	for y := 0; y < h; y++ {
		src := frame.Pix[y*w*4 : (y+1)*w*4]
		alpha := mask.Pix[y*mask.Stride : y*mask.Stride+w]
		out := dst.Pix[y*w*3 : (y+1)*w*3]

		for x := 0; x < w; x++ {
			a := uint32(alpha[x])
			s := src[x*4 : x*4+3 : x*4+3]
			o := out[x*3 : x*3+3 : x*3+3]

			switch a {
			case 255:
				o[0], o[1], o[2] = s[0], s[1], s[2]
			case 0:
				o[0], o[1], o[2] = bg.R, bg.G, bg.B
			default:
				na := 255 - a
				o[0] = uint8((uint32(s[0])*a + bgR*na + 127) / 255)
				o[1] = uint8((uint32(s[1])*a + bgG*na + 127) / 255)
				o[2] = uint8((uint32(s[2])*a + bgB*na + 127) / 255)
			}
		}
	}

	dst.Index = frame.Index
	return nil
}
