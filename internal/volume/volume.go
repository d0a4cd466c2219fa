package volume

import (
	"errors"
	"fmt"

	"github.com/banshee-data/lbptop/internal/frame"
)

var (
	// ErrEmpty is returned when a volume is built from no frames.
	ErrEmpty = errors.New("volume: no frames")

	// ErrShapeMismatch is returned when frames disagree on size.
	ErrShapeMismatch = errors.New("volume: frame size mismatch")
)

// Volume is an ordered stack of equally sized frames.
type Volume struct {
	frames []*frame.Gray
	width  int
	height int
}

// New builds a Volume over frames without copying them.
func New(frames []*frame.Gray) (*Volume, error) {
	if len(frames) == 0 {
		return nil, ErrEmpty
	}
	w, h := frames[0].Width, frames[0].Height
	for i, f := range frames {
		if f == nil {
			return nil, fmt.Errorf("volume: frame %d is nil", i)
		}
		if f.Width != w || f.Height != h {
			return nil, fmt.Errorf("%w: frame %d is %dx%d, frame 0 is %dx%d", ErrShapeMismatch, i, f.Width, f.Height, w, h)
		}
	}
	return &Volume{frames: frames, width: w, height: h}, nil
}

// Len returns the number of frames (T).
func (v *Volume) Len() int { return len(v.frames) }

// Width returns the frame width (W).
func (v *Volume) Width() int { return v.width }

// Height returns the frame height (H).
func (v *Volume) Height() int { return v.height }

// Slice returns the sub-volume of frames [start, end).
func (v *Volume) Slice(start, end int) (*Volume, error) {
	if start < 0 || end > len(v.frames) || start >= end {
		return nil, fmt.Errorf("volume: slice [%d, %d) out of range for %d frames", start, end, len(v.frames))
	}
	return &Volume{frames: v.frames[start:end], width: v.width, height: v.height}, nil
}

// XY returns frame t.
func (v *Volume) XY(t int) *frame.Gray {
	return v.frames[t]
}

// XT returns the time × width plane of image row y.
func (v *Volume) XT(y int) Plane {
	return xtPlane{v: v, y: y}
}

// YT returns the time × height plane of image column x.
func (v *Volume) YT(x int) Plane {
	return ytPlane{v: v, x: x}
}

// Plane is a 2D view with time on the row axis for XT/YT slices.
type Plane interface {
	Rows() int
	Cols() int
	At(row, col int) float64
}

type xtPlane struct {
	v *Volume
	y int
}

func (p xtPlane) Rows() int { return len(p.v.frames) }
func (p xtPlane) Cols() int { return p.v.width }
func (p xtPlane) At(t, x int) float64 {
	return p.v.frames[t].At(p.y, x)
}

type ytPlane struct {
	v *Volume
	x int
}

func (p ytPlane) Rows() int { return len(p.v.frames) }
func (p ytPlane) Cols() int { return p.v.height }
func (p ytPlane) At(t, y int) float64 {
	return p.v.frames[t].At(y, p.x)
}
