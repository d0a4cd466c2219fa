package frame

import "fmt"

// Sequence is the ordered set of frames of one video.
type Sequence []*Gray

// Size returns the common frame size of the sequence. It fails if the
// sequence is empty or frames disagree on size.
func (s Sequence) Size() (width, height int, err error) {
	if len(s) == 0 {
		return 0, 0, fmt.Errorf("frame: empty sequence")
	}
	width, height = s[0].Width, s[0].Height
	for i, f := range s[1:] {
		if !f.SameSize(s[0]) {
			return 0, 0, fmt.Errorf("frame: frame %d is %dx%d, expected %dx%d", i+1, f.Width, f.Height, width, height)
		}
	}
	return width, height, nil
}

// Map applies fn to every frame and returns the resulting sequence.
func (s Sequence) Map(fn func(*Gray) *Gray) Sequence {
	out := make(Sequence, len(s))
	for i, f := range s {
		out[i] = fn(f)
	}
	return out
}
