// Package preproc holds illumination-normalization filters applied to whole
// grayscale frames before face normalization.
package preproc

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/lbptop/internal/frame"
)

// TanTriggs is the Tan & Triggs illumination normalization chain: gamma
// correction, difference-of-Gaussians filtering and two-stage contrast
// equalization followed by tanh compression.
type TanTriggs struct {
	Gamma  float64 // gamma exponent; 0 means log
	Sigma0 float64 // inner Gaussian
	Sigma1 float64 // outer Gaussian
	Radius int     // kernel half-size
	Alpha  float64 // contrast equalization exponent
	Tau    float64 // compression threshold

	kernel []float64 // DoG kernel, (2*Radius+1)^2, row-major
}

// NewTanTriggs returns the filter with the usual defaults
// (gamma 0.2, sigma0 1, sigma1 2, radius 2, alpha 0.1, tau 10).
func NewTanTriggs() *TanTriggs {
	tt, _ := NewTanTriggsWith(0.2, 1, 2, 2, 0.1, 10)
	return tt
}

// NewTanTriggsWith validates the parameters and precomputes the DoG kernel.
func NewTanTriggsWith(gamma, sigma0, sigma1 float64, radius int, alpha, tau float64) (*TanTriggs, error) {
	switch {
	case gamma < 0:
		return nil, fmt.Errorf("tan-triggs: gamma must be >= 0, got %g", gamma)
	case sigma0 <= 0 || sigma1 <= 0:
		return nil, fmt.Errorf("tan-triggs: sigmas must be positive, got %g, %g", sigma0, sigma1)
	case radius < 1:
		return nil, fmt.Errorf("tan-triggs: radius must be >= 1, got %d", radius)
	case alpha <= 0:
		return nil, fmt.Errorf("tan-triggs: alpha must be positive, got %g", alpha)
	case tau <= 0:
		return nil, fmt.Errorf("tan-triggs: tau must be positive, got %g", tau)
	}
	tt := &TanTriggs{Gamma: gamma, Sigma0: sigma0, Sigma1: sigma1, Radius: radius, Alpha: alpha, Tau: tau}
	g0 := gaussian2D(sigma0, radius)
	g1 := gaussian2D(sigma1, radius)
	floats.Sub(g0, g1)
	tt.kernel = g0
	return tt, nil
}

// gaussian2D returns a normalized (2r+1)^2 Gaussian kernel.
func gaussian2D(sigma float64, r int) []float64 {
	size := 2*r + 1
	k := make([]float64, size*size)
	for y := -r; y <= r; y++ {
		for x := -r; x <= r; x++ {
			k[(y+r)*size+(x+r)] = math.Exp(-float64(x*x+y*y) / (2 * sigma * sigma))
		}
	}
	floats.Scale(1/floats.Sum(k), k)
	return k
}

// mirror reflects an out-of-range index back into [0, n).
func mirror(i, n int) int {
	for i < 0 || i >= n {
		if i < 0 {
			i = -i - 1
		}
		if i >= n {
			i = 2*n - i - 1
		}
	}
	return i
}

// Apply filters f and returns a new frame.
func (tt *TanTriggs) Apply(f *frame.Gray) *frame.Gray {
	w, h := f.Width, f.Height
	n := len(f.Pix)
	if n == 0 {
		return f.Clone()
	}

	// 1. Gamma correction.
	g := make([]float64, n)
	for i, v := range f.Pix {
		v = math.Max(v, 0)
		if tt.Gamma == 0 {
			g[i] = math.Log(1 + v)
		} else {
			g[i] = math.Pow(v, tt.Gamma)
		}
	}

	// 2. Difference of Gaussians with mirrored borders.
	r := tt.Radius
	size := 2*r + 1
	d := make([]float64, n)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var acc float64
			for ky := -r; ky <= r; ky++ {
				row := mirror(y+ky, h) * w
				krow := (ky + r) * size
				for kx := -r; kx <= r; kx++ {
					acc += tt.kernel[krow+kx+r] * g[row+mirror(x+kx, w)]
				}
			}
			d[y*w+x] = acc
		}
	}

	// 3. Contrast equalization.
	a := tt.Alpha
	tmp := make([]float64, n)
	for i, v := range d {
		tmp[i] = math.Pow(math.Abs(v), a)
	}
	if m := floats.Sum(tmp) / float64(n); m > 0 {
		floats.Scale(1/math.Pow(m, 1/a), d)
	}
	for i, v := range d {
		tmp[i] = math.Pow(math.Min(tt.Tau, math.Abs(v)), a)
	}
	if m := floats.Sum(tmp) / float64(n); m > 0 {
		floats.Scale(1/math.Pow(m, 1/a), d)
	}

	// 4. Compression.
	out := frame.NewGray(w, h)
	for i, v := range d {
		out.Pix[i] = tt.Tau * math.Tanh(v/tt.Tau)
	}
	return out
}

// ApplySequence filters every frame.
func (tt *TanTriggs) ApplySequence(s frame.Sequence) frame.Sequence {
	return s.Map(tt.Apply)
}
