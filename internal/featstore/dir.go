package featstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/lbptop/internal/security"
)

// Ext is the feature file extension.
const Ext = ".dense"

// DirSink writes gonum binary matrices under a root directory:
// <root>/<name>/<videoID>.dense when PerPlane is set, <root>/<videoID>.dense
// otherwise. Video IDs may contain '/' to mirror the input layout.
type DirSink struct {
	Root     string
	PerPlane bool
}

// NewDirSink returns a DirSink rooted at root.
func NewDirSink(root string, perPlane bool) *DirSink {
	return &DirSink{Root: root, PerPlane: perPlane}
}

// Path returns the file a matrix is written to.
func (d *DirSink) Path(videoID, name string) string {
	rel := filepath.FromSlash(videoID) + Ext
	if d.PerPlane {
		return filepath.Join(d.Root, name, rel)
	}
	return filepath.Join(d.Root, rel)
}

// Save implements Sink. The file is written to a temporary name and renamed so
// readers never see a partial matrix.
func (d *DirSink) Save(ctx context.Context, videoID, name string, m *mat.Dense) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if videoID == "" {
		return fmt.Errorf("featstore: empty video id")
	}
	if err := os.MkdirAll(d.Root, 0o755); err != nil {
		return fmt.Errorf("featstore: %w", err)
	}
	path := d.Path(videoID, name)
	if err := security.WithinDir(path, d.Root); err != nil {
		return fmt.Errorf("featstore: video id %q: %w", videoID, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("featstore: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*"+Ext)
	if err != nil {
		return fmt.Errorf("featstore: %w", err)
	}
	if _, err := m.MarshalBinaryTo(tmp); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("featstore: write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("featstore: close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("featstore: %w", err)
	}
	return nil
}

// Exists reports whether every named matrix of a video is already on disk.
func (d *DirSink) Exists(videoID string, names ...string) bool {
	for _, n := range names {
		if _, err := os.Stat(d.Path(videoID, n)); err != nil {
			return false
		}
	}
	return len(names) > 0
}

// LoadDense reads a matrix written by DirSink.
func LoadDense(path string) (*mat.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var m mat.Dense
	if _, err := m.UnmarshalBinaryFrom(f); err != nil {
		return nil, fmt.Errorf("featstore: read %s: %w", path, err)
	}
	return &m, nil
}
