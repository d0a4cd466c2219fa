package video

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/banshee-data/lbptop/internal/frame"
)

// ErrUnsupported is returned for inputs no compiled-in decoder can read.
var ErrUnsupported = errors.New("video: unsupported input")

var imageExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".bmp": true, ".tif": true, ".tiff": true, ".webp": true,
}

// Load decodes the video at path into grayscale frames.
func Load(path string) (frame.Sequence, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	var seq frame.Sequence
	switch {
	case info.IsDir():
		seq, err = ReadImageDir(path)
	case strings.EqualFold(filepath.Ext(path), ".y4m"):
		seq, err = ReadY4M(path)
	default:
		seq, err = readContainer(path)
	}
	if err != nil {
		return nil, err
	}
	if _, _, err := seq.Size(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return seq, nil
}

// ReadImageDir reads every image file in dir, in lexical file-name order, as
// one frame each. Other files are ignored.
func ReadImageDir(dir string) (frame.Sequence, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		names = append(names, e.Name())
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no image frames in %s", ErrUnsupported, dir)
	}
	sort.Strings(names)

	seq := make(frame.Sequence, 0, len(names))
	for _, name := range names {
		g, err := readImage(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		seq = append(seq, g)
	}
	return seq, nil
}

func readImage(path string) (*frame.Gray, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return frame.FromImage(img), nil
}
