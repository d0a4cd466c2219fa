// Package faceloc reads per-frame face bounding boxes and turns sparse
// detections into a location for every frame that can be analysed.
package faceloc

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

// ErrMalformed is returned for unparsable face-location lines.
var ErrMalformed = errors.New("faceloc: malformed line")

// BoundingBox is a face rectangle in frame pixel coordinates.
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// IsValid reports whether the box has a positive area.
func (b BoundingBox) IsValid() bool {
	return b.Width > 0 && b.Height > 0
}

// Area returns Width*Height.
func (b BoundingBox) Area() int {
	return b.Width * b.Height
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("(%d,%d %dx%d)", b.X, b.Y, b.Width, b.Height)
}

// Locations maps a frame index to its face box. Frames without an entry have
// no face.
type Locations map[int]BoundingBox

// Frames returns the frame indices with a location, ascending.
func (l Locations) Frames() []int {
	idx := make([]int, 0, len(l))
	for k := range l {
		idx = append(idx, k)
	}
	sort.Ints(idx)
	return idx
}

// Lookup returns the box for a frame and whether it is usable.
func (l Locations) Lookup(frameIndex int) (BoundingBox, bool) {
	b, ok := l[frameIndex]
	return b, ok && b.IsValid()
}

// ReadFile parses a face-location file. See Parse for the format.
func ReadFile(path string) (Locations, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open face locations: %w", err)
	}
	defer f.Close()

	locs, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return locs, nil
}

// Parse reads lines of "frame x y width height" separated by whitespace or
// commas. Extra trailing columns (detector scores) are ignored, as are blank
// lines and lines starting with '#'. Boxes with a zero dimension mean the
// detector found no face in that frame and are dropped.
func Parse(r io.Reader) (Locations, error) {
	locs := make(Locations)
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.FieldsFunc(line, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t'
		})
		if len(fields) < 5 {
			return nil, fmt.Errorf("%w %d: want 5 fields, got %d", ErrMalformed, lineNo, len(fields))
		}
		var v [5]int
		for i := 0; i < 5; i++ {
			n, err := parseNumber(fields[i])
			if err != nil {
				return nil, fmt.Errorf("%w %d: field %d: %v", ErrMalformed, lineNo, i+1, err)
			}
			v[i] = n
		}
		if v[0] < 0 {
			return nil, fmt.Errorf("%w %d: negative frame index %d", ErrMalformed, lineNo, v[0])
		}
		box := BoundingBox{X: v[1], Y: v[2], Width: v[3], Height: v[4]}
		if !box.IsValid() {
			continue
		}
		locs[v[0]] = box
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read face locations: %w", err)
	}
	return locs, nil
}

// parseNumber accepts integers and decimal values (some annotation tools emit
// floats), truncating towards zero.
func parseNumber(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

// Filter drops boxes smaller than minSize in either dimension.
// minSize <= 0 keeps everything.
func Filter(locs Locations, minSize int) Locations {
	out := make(Locations, len(locs))
	for k, b := range locs {
		if !b.IsValid() {
			continue
		}
		if minSize > 0 && (b.Width < minSize || b.Height < minSize) {
			continue
		}
		out[k] = b
	}
	return out
}

// Expand fills every frame in [0, frameCount) that lacks a detection with the
// most recent earlier detection. Frames before the first detection stay
// absent. Entries at or beyond frameCount are dropped.
func Expand(locs Locations, frameCount int) Locations {
	out := make(Locations, frameCount)
	var last BoundingBox
	have := false
	for i := 0; i < frameCount; i++ {
		if b, ok := locs[i]; ok && b.IsValid() {
			last = b
			have = true
		}
		if have {
			out[i] = last
		}
	}
	return out
}

// Preprocess applies Filter then Expand.
func Preprocess(locs Locations, frameCount, minFaceSize int) Locations {
	return Expand(Filter(locs, minFaceSize), frameCount)
}
