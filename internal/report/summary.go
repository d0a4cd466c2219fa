package report

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Summary describes the shape and sentinel layout of a feature matrix.
type Summary struct {
	Rows, Cols int
	// SentinelRows counts rows that are NaN in every column.
	SentinelRows int
	// Leading and Trailing count the consecutive sentinel rows at each end.
	Leading, Trailing int
	// Partial counts rows with some but not all values NaN.
	Partial int
}

func (s Summary) String() string {
	return fmt.Sprintf("%dx%d, %d sentinel rows (%d leading, %d trailing), %d partial",
		s.Rows, s.Cols, s.SentinelRows, s.Leading, s.Trailing, s.Partial)
}

// Summarize inspects m.
func Summarize(m mat.Matrix) Summary {
	r, c := m.Dims()
	s := Summary{Rows: r, Cols: c}
	sentinel := make([]bool, r)
	for i := 0; i < r; i++ {
		nan := 0
		for j := 0; j < c; j++ {
			if math.IsNaN(m.At(i, j)) {
				nan++
			}
		}
		switch {
		case c > 0 && nan == c:
			sentinel[i] = true
			s.SentinelRows++
		case nan > 0:
			s.Partial++
		}
	}
	for i := 0; i < r && sentinel[i]; i++ {
		s.Leading++
	}
	if s.Leading == r {
		s.Trailing = 0
		return s
	}
	for i := r - 1; i >= 0 && sentinel[i]; i-- {
		s.Trailing++
	}
	return s
}

// MeanHistogram returns the column means over rows without NaN values and the
// number of rows used. With no usable row it returns nil, 0.
func MeanHistogram(m mat.Matrix) ([]float64, int) {
	r, c := m.Dims()
	var rows []int
	for i := 0; i < r; i++ {
		ok := true
		for j := 0; j < c && ok; j++ {
			ok = !math.IsNaN(m.At(i, j))
		}
		if ok {
			rows = append(rows, i)
		}
	}
	if len(rows) == 0 {
		return nil, 0
	}

	col := make([]float64, len(rows))
	mean := make([]float64, c)
	for j := 0; j < c; j++ {
		for k, i := range rows {
			col[k] = m.At(i, j)
		}
		mean[j] = stat.Mean(col, nil)
	}
	return mean, len(rows)
}
