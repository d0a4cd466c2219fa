//go:build !withcv

package video

import (
	"fmt"

	"github.com/banshee-data/lbptop/internal/frame"
)

func readContainer(path string) (frame.Sequence, error) {
	return nil, fmt.Errorf("%w: %s (container formats need a build with -tags withcv)", ErrUnsupported, path)
}
