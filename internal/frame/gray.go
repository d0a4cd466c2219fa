package frame

import (
	"fmt"
	"image"
	"image/color"
)

// Gray is a single-channel image with float64 intensities stored row-major.
// Intensities decoded from 8-bit video are in [0, 255]; preprocessing filters
// may produce arbitrary real values.
type Gray struct {
	Width  int
	Height int
	Pix    []float64 // len == Width*Height
}

// NewGray allocates a zeroed Width×Height frame.
func NewGray(width, height int) *Gray {
	if width < 0 || height < 0 {
		panic(fmt.Sprintf("frame: negative size %dx%d", width, height))
	}
	return &Gray{Width: width, Height: height, Pix: make([]float64, width*height)}
}

// NewConstant returns a frame filled with v.
func NewConstant(width, height int, v float64) *Gray {
	g := NewGray(width, height)
	for i := range g.Pix {
		g.Pix[i] = v
	}
	return g
}

// At returns the intensity at (row, col). No bounds checks beyond the slice's.
func (g *Gray) At(row, col int) float64 {
	return g.Pix[row*g.Width+col]
}

// Set stores v at (row, col).
func (g *Gray) Set(row, col int, v float64) {
	g.Pix[row*g.Width+col] = v
}

// Rows returns the frame height. It lets Gray satisfy lbp.Plane.
func (g *Gray) Rows() int { return g.Height }

// Cols returns the frame width. It lets Gray satisfy lbp.Plane.
func (g *Gray) Cols() int { return g.Width }

// SameSize reports whether g and o have identical dimensions.
func (g *Gray) SameSize(o *Gray) bool {
	return g.Width == o.Width && g.Height == o.Height
}

// Clone returns a deep copy of g.
func (g *Gray) Clone() *Gray {
	c := &Gray{Width: g.Width, Height: g.Height, Pix: make([]float64, len(g.Pix))}
	copy(c.Pix, g.Pix)
	return c
}

// Rotate180 returns a copy of g rotated by 180 degrees.
func (g *Gray) Rotate180() *Gray {
	r := &Gray{Width: g.Width, Height: g.Height, Pix: make([]float64, len(g.Pix))}
	n := len(g.Pix)
	for i, v := range g.Pix {
		r.Pix[n-1-i] = v
	}
	return r
}

// FromImage converts img to a Gray frame using ITU-R 601 luma weights.
// *image.Gray and *image.YCbCr are read directly from their luma planes.
func FromImage(img image.Image) *Gray {
	b := img.Bounds()
	g := NewGray(b.Dx(), b.Dy())

	switch src := img.(type) {
	case *image.Gray:
		for y := 0; y < g.Height; y++ {
			off := src.PixOffset(b.Min.X, b.Min.Y+y)
			row := src.Pix[off : off+g.Width]
			for x, v := range row {
				g.Pix[y*g.Width+x] = float64(v)
			}
		}
	case *image.YCbCr:
		for y := 0; y < g.Height; y++ {
			for x := 0; x < g.Width; x++ {
				g.Pix[y*g.Width+x] = float64(src.Y[src.YOffset(b.Min.X+x, b.Min.Y+y)])
			}
		}
	default:
		for y := 0; y < g.Height; y++ {
			for x := 0; x < g.Width; x++ {
				c := color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
				g.Pix[y*g.Width+x] = float64(c.Y)
			}
		}
	}
	return g
}

// ToImage quantizes g to an 8-bit image, clamping to [0, 255].
// Used for debug dumps and Y4M output.
func (g *Gray) ToImage() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, g.Width, g.Height))
	for i, v := range g.Pix {
		switch {
		case v <= 0:
			img.Pix[i] = 0
		case v >= 255:
			img.Pix[i] = 255
		default:
			img.Pix[i] = uint8(v + 0.5)
		}
	}
	return img
}
