// Package dataset owns the enumeration of videos to process and the
// per-dataset rules for finding each video's face locations.
package dataset

import (
	"errors"
	"fmt"

	"github.com/banshee-data/lbptop/internal/faceloc"
)

// ErrGridIndex is returned when a grid task index selects no file.
var ErrGridIndex = errors.New("dataset: grid index out of range")

// Groups.
const (
	GroupTrain  = "train"
	GroupDevel  = "devel"
	GroupTest   = "test"
	GroupEnroll = "enroll"
)

// Classes.
const (
	ClassReal   = "real"
	ClassAttack = "attack"
)

// Location sources.
const (
	// SourceDetections is a sparse face-detector output: boxes smaller than
	// the size filter are dropped and gaps are forward-filled.
	SourceDetections = "detections"
	// SourceBBX is an annotated per-frame box file: only gaps are filled.
	SourceBBX = "bbx"
)

// LocationOptions parameterize FaceLocations.
type LocationOptions struct {
	FrameCount  int
	MinFaceSize int
}

// File is one video of a dataset.
type File interface {
	ID() string
	VideoPath() string
	// Rotated reports whether frames are stored upside down.
	Rotated() bool
	FaceLocations(opts LocationOptions) (faceloc.Locations, error)
}

// Selection chooses which files of a dataset to process.
type Selection struct {
	// Enrollment selects the enrollment videos only.
	Enrollment bool
	// Groups restricts non-enrollment selections; empty means train, devel
	// and test.
	Groups []string
}

// Dataset enumerates files.
type Dataset interface {
	Name() string
	// Files returns the selected files: enrollment files, or real files
	// followed by attack files.
	Files(sel Selection) ([]File, error)
}

// SelectGrid returns the single file handled by 1-based grid task index.
func SelectGrid(files []File, taskIndex int) (File, error) {
	if taskIndex < 1 || taskIndex > len(files) {
		return nil, fmt.Errorf("%w: task %d of %d files", ErrGridIndex, taskIndex, len(files))
	}
	return files[taskIndex-1], nil
}
