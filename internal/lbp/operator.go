package lbp

import (
	"fmt"
	"math"
	"math/bits"
)

// snapEps collapses trigonometric noise so that axis-aligned sample points
// land exactly on pixel centres.
const snapEps = 1e-9

// Plane is a 2D array of intensities. frame.Gray and the volume slice views
// implement it.
type Plane interface {
	Rows() int
	Cols() int
	At(row, col int) float64
}

// Params configures an Operator.
type Params struct {
	Neighbors int     // P, 4 or 8
	RadiusY   int     // radius along the row axis (Y for XY, T for XT/YT)
	RadiusX   int     // radius along the column axis
	Circular  bool    // bilinear-interpolated circle instead of the rectangle points
	Variant   Variant // bin mapping
	Mode      Mode    // neighbour comparison
}

// Validate checks the parameter combination.
func (p Params) Validate() error {
	if _, ok := binCounts[p.Variant]; !ok {
		return fmt.Errorf("%w: unknown variant %d", ErrInvalidParams, int(p.Variant))
	}
	if p.Mode < ModeRegular || p.Mode > ModeModified {
		return fmt.Errorf("%w: unknown extended mode %d", ErrInvalidParams, int(p.Mode))
	}
	// The bin table is fixed per variant (256/10/59), which only holds for
	// up to 8 neighbours.
	if p.Neighbors != 4 && p.Neighbors != 8 {
		return fmt.Errorf("%w: neighbour count must be 4 or 8, got %d", ErrInvalidParams, p.Neighbors)
	}
	if p.RadiusY < 1 || p.RadiusX < 1 {
		return fmt.Errorf("%w: radii must be >= 1, got (%d, %d)", ErrInvalidParams, p.RadiusY, p.RadiusX)
	}
	return nil
}

type offset struct {
	dy, dx float64
}

// Operator computes LBP codes and histograms for one plane configuration.
// It is immutable and safe for concurrent use.
type Operator struct {
	params  Params
	offsets []offset
	labels  []int // raw code -> bin
	bins    int
}

// NewOperator validates p and precomputes the sampling offsets and label table.
func NewOperator(p Params) (*Operator, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	op := &Operator{
		params:  p,
		offsets: sampleOffsets(p),
		bins:    Bins(p.Variant),
	}
	op.labels = labelTable(p.Neighbors, p.Variant, op.bins)
	return op, nil
}

// Params returns the operator configuration.
func (op *Operator) Params() Params { return op.params }

// Bins returns the histogram length.
func (op *Operator) Bins() int { return op.bins }

// sampleOffsets places neighbour i at angle 2πi/P, starting on the positive
// column axis and turning towards decreasing rows.
func sampleOffsets(p Params) []offset {
	offs := make([]offset, p.Neighbors)
	for i := range offs {
		angle := 2 * math.Pi * float64(i) / float64(p.Neighbors)
		s, c := math.Sin(angle), math.Cos(angle)
		if p.Circular {
			offs[i] = offset{dy: snap(-float64(p.RadiusY) * s), dx: snap(float64(p.RadiusX) * c)}
		} else {
			offs[i] = offset{dy: -float64(p.RadiusY) * sign(s), dx: float64(p.RadiusX) * sign(c)}
		}
	}
	return offs
}

func snap(v float64) float64 {
	if r := math.Round(v); math.Abs(v-r) < snapEps {
		return r
	}
	return v
}

func sign(v float64) float64 {
	switch {
	case v > snapEps:
		return 1
	case v < -snapEps:
		return -1
	}
	return 0
}

// labelTable maps every raw P-bit code to its bin.
func labelTable(neighbors int, v Variant, nbins int) []int {
	n := 1 << neighbors
	table := make([]int, n)
	next := 0
	for code := 0; code < n; code++ {
		uniform := transitions(code, neighbors) <= 2
		switch v {
		case Regular:
			table[code] = code
		case RIU2:
			if uniform {
				table[code] = bits.OnesCount(uint(code))
			} else {
				table[code] = neighbors + 1
			}
		case Uniform:
			if uniform {
				table[code] = next
				next++
			} else {
				table[code] = nbins - 1
			}
		}
	}
	return table
}

// transitions counts 0/1 changes around the circular P-bit pattern.
func transitions(code, neighbors int) int {
	rotated := (code >> 1) | ((code & 1) << (neighbors - 1))
	return bits.OnesCount(uint(code ^ rotated))
}

// sample reads the neighbourhood point at (row+dy, col+dx), bilinearly
// interpolating fractional positions. Nested lerps return the corner value
// exactly when all corners are equal.
func sample(pl Plane, row, col int, o offset) float64 {
	y := float64(row) + o.dy
	x := float64(col) + o.dx
	y0, x0 := math.Floor(y), math.Floor(x)
	fy, fx := y-y0, x-x0
	r0, c0 := int(y0), int(x0)

	lerpRow := func(r int) float64 {
		a := pl.At(r, c0)
		if fx == 0 {
			return a
		}
		return a + fx*(pl.At(r, c0+1)-a)
	}
	top := lerpRow(r0)
	if fy == 0 {
		return top
	}
	return top + fy*(lerpRow(r0+1)-top)
}

// Code returns the raw P-bit LBP code at (row, col). The caller must keep
// (row, col) at least RadiusY/RadiusX away from the border. The first
// neighbour is the most significant bit.
func (op *Operator) Code(pl Plane, row, col int) int {
	var buf [8]float64
	g := buf[:op.params.Neighbors]
	for i, o := range op.offsets {
		g[i] = sample(pl, row, col, o)
	}
	return op.code(g, pl.At(row, col))
}

func (op *Operator) code(g []float64, center float64) int {
	p := len(g)
	code := 0
	setBit := func(i int, on bool) {
		if on {
			code |= 1 << (p - 1 - i)
		}
	}

	switch op.params.Mode {
	case ModeRegular:
		for i, v := range g {
			setBit(i, v >= center)
		}
	case ModeTransitional:
		for i, v := range g {
			setBit(i, v >= g[(i+1)%p])
		}
	case ModeDirectionCoded:
		half := p / 2
		for i := 0; i < half; i++ {
			a := g[i] - center
			b := g[i+half] - center
			setBit(2*i, a*b >= 0)
			setBit(2*i+1, math.Abs(a) >= math.Abs(b))
		}
	case ModeModified:
		// Offsets from the centre keep the mean exact on flat regions.
		var dev float64
		for _, v := range g {
			dev += v - center
		}
		mean := center + dev/float64(p+1)
		for i, v := range g {
			setBit(i, v >= mean)
		}
	}
	return code
}

// Label maps a raw code to its histogram bin.
func (op *Operator) Label(code int) int {
	return op.labels[code]
}

// Accumulate adds the label counts of every valid pixel of pl to hist, which
// must have length Bins(). It returns the number of codes added.
func (op *Operator) Accumulate(hist []float64, pl Plane) (int, error) {
	if len(hist) != op.bins {
		return 0, fmt.Errorf("lbp: histogram has %d bins, operator needs %d", len(hist), op.bins)
	}
	ry, rx := op.params.RadiusY, op.params.RadiusX
	rows, cols := pl.Rows(), pl.Cols()
	if rows-2*ry <= 0 || cols-2*rx <= 0 {
		return 0, fmt.Errorf("%w: %dx%d plane, radius (%d, %d)", ErrPlaneTooSmall, rows, cols, ry, rx)
	}

	var buf [8]float64
	g := buf[:op.params.Neighbors]
	n := 0
	for r := ry; r < rows-ry; r++ {
		for c := rx; c < cols-rx; c++ {
			for i, o := range op.offsets {
				g[i] = sample(pl, r, c, o)
			}
			hist[op.labels[op.code(g, pl.At(r, c))]]++
			n++
		}
	}
	return n, nil
}

// Histogram returns the label counts over all valid pixels of pl and the
// number of codes counted.
func (op *Operator) Histogram(pl Plane) ([]float64, int, error) {
	hist := make([]float64, op.bins)
	n, err := op.Accumulate(hist, pl)
	if err != nil {
		return nil, 0, err
	}
	return hist, n, nil
}
