// Package facenorm crops face regions out of grayscale frames and resamples
// them to a fixed size so that every frame of a local volume lines up.
package facenorm

import (
	"errors"
	"fmt"
	"math"

	"github.com/banshee-data/lbptop/internal/faceloc"
	"github.com/banshee-data/lbptop/internal/frame"
)

var (
	// ErrMissingFace is returned when a frame that must be normalized has no
	// face location.
	ErrMissingFace = errors.New("facenorm: no face location for frame")

	// ErrInvalidBox is returned when a face box does not overlap the frame.
	ErrInvalidBox = errors.New("facenorm: face box outside frame")
)

// Size is the normalized face size.
type Size struct {
	Height int
	Width  int
}

func (s Size) String() string { return fmt.Sprintf("%dx%d", s.Height, s.Width) }

// Normalizer crops and resizes faces. A nil size disables normalization and
// frames pass through unchanged.
type Normalizer struct {
	size *Size
}

// New returns a Normalizer producing faces of the given size, or a
// pass-through Normalizer when size is nil.
func New(size *Size) *Normalizer {
	if size != nil {
		s := *size
		size = &s
	}
	return &Normalizer{size: size}
}

// Size returns the target size, nil when normalization is disabled.
func (n *Normalizer) Size() *Size { return n.size }

// Normalize crops box out of f and resamples it to the target size.
// ok reports whether a face location exists for the frame.
func (n *Normalizer) Normalize(f *frame.Gray, box faceloc.BoundingBox, ok bool) (*frame.Gray, error) {
	if n.size == nil {
		return f, nil
	}
	if !ok || !box.IsValid() {
		return nil, ErrMissingFace
	}

	// Clip the box to the frame.
	x0, y0 := max(box.X, 0), max(box.Y, 0)
	x1, y1 := min(box.X+box.Width, f.Width), min(box.Y+box.Height, f.Height)
	if x1 <= x0 || y1 <= y0 {
		return nil, fmt.Errorf("%w: box %v, frame %dx%d", ErrInvalidBox, box, f.Width, f.Height)
	}

	return resample(f, x0, y0, x1-x0, y1-y0, n.size.Width, n.size.Height), nil
}

// resample bilinearly maps the cw×ch window at (cx, cy) of src onto a
// dw×dh frame, aligning pixel centres.
func resample(src *frame.Gray, cx, cy, cw, ch, dw, dh int) *frame.Gray {
	dst := frame.NewGray(dw, dh)
	sy := float64(ch) / float64(dh)
	sx := float64(cw) / float64(dw)
	for y := 0; y < dh; y++ {
		fy := clamp((float64(y)+0.5)*sy-0.5, 0, float64(ch-1))
		y0 := int(math.Floor(fy))
		y1 := min(y0+1, ch-1)
		wy := fy - float64(y0)
		for x := 0; x < dw; x++ {
			fx := clamp((float64(x)+0.5)*sx-0.5, 0, float64(cw-1))
			x0 := int(math.Floor(fx))
			x1 := min(x0+1, cw-1)
			wx := fx - float64(x0)

			top := (1-wx)*src.At(cy+y0, cx+x0) + wx*src.At(cy+y0, cx+x1)
			bot := (1-wx)*src.At(cy+y1, cx+x0) + wx*src.At(cy+y1, cx+x1)
			dst.Set(y, x, (1-wy)*top+wy*bot)
		}
	}
	return dst
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
