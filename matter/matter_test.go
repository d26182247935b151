package matter

import (
	"bgremove/models"
	"errors"
	"math"
	"testing"
)

// constEngine fills the alpha map with a fixed value.
type constEngine struct {
	size  int
	value float32
	err   error
	panic bool

	calls     int
	lastInput []float32
}

func (e *constEngine) InputSize() int { return e.size }
func (e *constEngine) Close() error   { return nil }

func (e *constEngine) Infer(input, alpha []float32) error {
	e.calls++
	e.lastInput = append(e.lastInput[:0], input...)
	if e.panic {
		panic("model exploded")
	}
	if e.err != nil {
		return e.err
	}
	for i := range alpha {
		alpha[i] = e.value
	}
	return nil
}

func solidFrame(w, h int, r, g, b uint8) *models.RawFrame {
	f := models.NewRawFrame(w, h)
	for i := 0; i < w*h; i++ {
		f.Pix[i*4], f.Pix[i*4+1], f.Pix[i*4+2], f.Pix[i*4+3] = r, g, b, 255
	}
	return f
}

func TestNew_InvalidSize(t *testing.T) {
	if _, err := New(&constEngine{size: 0}); err == nil {
		t.Error("Expected error for zero input size")
	}
}

func TestMatte_OutputMatchesFrameSize(t *testing.T) {
	tests := []struct {
		name  string
		w, h  int
		size  int
		value float32
		want  uint8
	}{
		{"upscale ones", 12, 8, 4, 1, 255},
		{"upscale zeros", 12, 8, 4, 0, 0},
		{"downscale ones", 3, 3, 8, 1, 255},
		{"native size", 4, 4, 4, 1, 255},
		{"clamped above", 6, 6, 4, 1.7, 255},
		{"clamped below", 6, 6, 4, -0.3, 0},
		{"nan is background", 6, 6, 4, float32(math.NaN()), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := New(&constEngine{size: tt.size, value: tt.value})
			if err != nil {
				t.Fatal(err)
			}
			mask := models.NewAlphaMask(tt.w, tt.h)
			if err := m.Matte(solidFrame(tt.w, tt.h, 10, 20, 30), mask); err != nil {
				t.Fatalf("Matte() error = %v", err)
			}
			if mask.Width() != tt.w || mask.Height() != tt.h {
				t.Fatalf("Mask is %dx%d, want %dx%d", mask.Width(), mask.Height(), tt.w, tt.h)
			}
			for i, v := range mask.Pix {
				if v != tt.want {
					t.Fatalf("Pixel %d = %d, want %d", i, v, tt.want)
				}
			}
		})
	}
}

func TestMatte_HalfCoverage(t *testing.T) {
	m, _ := New(&constEngine{size: 4, value: 0.5})
	mask := models.NewAlphaMask(10, 10)
	if err := m.Matte(solidFrame(10, 10, 0, 0, 0), mask); err != nil {
		t.Fatal(err)
	}
	for i, v := range mask.Pix {
		if v < 127 || v > 129 {
			t.Fatalf("Pixel %d = %d, want ~128", i, v)
		}
	}
}

func TestMatte_PacksPlanarInput(t *testing.T) {
	e := &constEngine{size: 4, value: 1}
	m, _ := New(e)

	if err := m.Matte(solidFrame(8, 8, 255, 0, 51), models.NewAlphaMask(8, 8)); err != nil {
		t.Fatal(err)
	}

	plane := 16
	if len(e.lastInput) != 3*plane {
		t.Fatalf("Expected %d input values, got %d", 3*plane, len(e.lastInput))
	}
	want := []float32{1, 0, 0.2}
	for c := 0; c < 3; c++ {
		for i := 0; i < plane; i++ {
			got := e.lastInput[c*plane+i]
			if math.Abs(float64(got-want[c])) > 0.01 {
				t.Fatalf("Channel %d value %d = %f, want %f", c, i, got, want[c])
			}
		}
	}
}

func TestMatte_Failures(t *testing.T) {
	tests := []struct {
		name   string
		engine *constEngine
		frame  *models.RawFrame
		mask   *models.AlphaMask
	}{
		{"engine error", &constEngine{size: 4, err: errors.New("cuda oom")}, solidFrame(8, 8, 1, 2, 3), models.NewAlphaMask(8, 8)},
		{"engine panic", &constEngine{size: 4, panic: true}, solidFrame(8, 8, 1, 2, 3), models.NewAlphaMask(8, 8)},
		{"mask size mismatch", &constEngine{size: 4, value: 1}, solidFrame(8, 8, 1, 2, 3), models.NewAlphaMask(4, 8)},
		{"empty frame", &constEngine{size: 4, value: 1}, &models.RawFrame{}, models.NewAlphaMask(0, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := New(tt.engine)
			if err := m.Matte(tt.frame, tt.mask); !errors.Is(err, models.ErrInference) {
				t.Errorf("Expected ErrInference, got %v", err)
			}
		})
	}
}

func TestMatte_ReusesBuffers(t *testing.T) {
	e := &constEngine{size: 4, value: 1}
	m, _ := New(e)
	mask := models.NewAlphaMask(8, 8)

	for i := 0; i < 3; i++ {
		if err := m.Matte(solidFrame(8, 8, 1, 2, 3), mask); err != nil {
			t.Fatal(err)
		}
	}
	if e.calls != 3 {
		t.Errorf("Expected 3 inference calls, got %d", e.calls)
	}

	// A later failure must not be affected by earlier successes
	e.err = errors.New("boom")
	if err := m.Matte(solidFrame(8, 8, 1, 2, 3), mask); err == nil {
		t.Error("Expected error")
	}
}
