package lbptop

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Output names.
const (
	PlaneXY     = "XY"
	PlaneXT     = "XT"
	PlaneYT     = "YT"
	PlaneXTYT   = "XT_YT"
	PlaneXYXTYT = "XY_XT_YT"
)

// Features are the per-plane feature matrices of one video.
type Features struct {
	XY, XT, YT *mat.Dense

	MaxRadius int
	AllPlanes bool

	// Skipped lists interior frames left NaN because a face was missing.
	Skipped []int
}

// Output is one named matrix to persist.
type Output struct {
	Name   string
	Matrix *mat.Dense
}

// Frames returns the number of rows, equal to the video frame count.
func (f *Features) Frames() int {
	r, _ := f.XY.Dims()
	return r
}

// OutputNames lists the plane combinations Outputs produces.
func OutputNames(allPlanes bool) []string {
	if !allPlanes {
		return []string{PlaneXYXTYT}
	}
	return []string{PlaneXY, PlaneXT, PlaneYT, PlaneXTYT, PlaneXYXTYT}
}

// Outputs returns the matrices to persist: all five plane combinations when
// AllPlanes is set, otherwise only XY_XT_YT.
func (f *Features) Outputs() []Output {
	all := concat(f.XY, f.XT, f.YT)
	if !f.AllPlanes {
		return []Output{{Name: PlaneXYXTYT, Matrix: all}}
	}
	return []Output{
		{Name: PlaneXY, Matrix: f.XY},
		{Name: PlaneXT, Matrix: f.XT},
		{Name: PlaneYT, Matrix: f.YT},
		{Name: PlaneXTYT, Matrix: concat(f.XT, f.YT)},
		{Name: PlaneXYXTYT, Matrix: all},
	}
}

// concat joins matrices with equal row counts column-wise.
func concat(ms ...*mat.Dense) *mat.Dense {
	out := mat.DenseCopyOf(ms[0])
	for _, m := range ms[1:] {
		var next mat.Dense
		next.Augment(out, m)
		out = &next
	}
	return out
}

// IsSentinelRow reports whether every value of row i is NaN.
func IsSentinelRow(m mat.Matrix, i int) bool {
	_, c := m.Dims()
	for j := 0; j < c; j++ {
		if !math.IsNaN(m.At(i, j)) {
			return false
		}
	}
	return true
}
