//go:build withcv

package video

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/banshee-data/lbptop/internal/frame"
)

// readContainer decodes any format OpenCV's VideoCapture understands.
func readContainer(path string) (frame.Sequence, error) {
	vc, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnsupported, path, err)
	}
	defer vc.Close()

	img := gocv.NewMat()
	defer img.Close()
	gray := gocv.NewMat()
	defer gray.Close()

	var seq frame.Sequence
	for vc.Read(&img) {
		if img.Empty() {
			continue
		}
		if img.Channels() == 1 {
			img.CopyTo(&gray)
		} else {
			gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)
		}
		seq = append(seq, matToGray(gray))
	}
	if len(seq) == 0 {
		return nil, fmt.Errorf("video: %s: no frames decoded", path)
	}
	return seq, nil
}

func matToGray(m gocv.Mat) *frame.Gray {
	g := frame.NewGray(m.Cols(), m.Rows())
	for y := 0; y < m.Rows(); y++ {
		for x := 0; x < m.Cols(); x++ {
			g.Set(y, x, float64(m.GetUCharAt(y, x)))
		}
	}
	return g
}
