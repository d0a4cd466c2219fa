package lbptop

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/lbptop/internal/faceloc"
	"github.com/banshee-data/lbptop/internal/facenorm"
	"github.com/banshee-data/lbptop/internal/frame"
	"github.com/banshee-data/lbptop/internal/monitoring"
	"github.com/banshee-data/lbptop/internal/volume"
)

// ErrNoFrames is returned for a video without frames.
var ErrNoFrames = errors.New("lbptop: video has no frames")

// Normalizer maps a raw frame and its face location to the face image the
// planes are cut from. facenorm.Normalizer implements it.
type Normalizer interface {
	Normalize(f *frame.Gray, box faceloc.BoundingBox, ok bool) (*frame.Gray, error)
}

// Extractor runs the sliding-window computation for one configuration. It
// holds no per-video state and can be shared between goroutines.
type Extractor struct {
	cfg     Config
	builder *Builder
	norm    Normalizer
}

// NewExtractor validates cfg. A nil norm uses facenorm.New(cfg.NormSize).
func NewExtractor(cfg Config, norm Normalizer) (*Extractor, error) {
	cfg = cfg.clone()
	b, err := NewBuilder(cfg)
	if err != nil {
		return nil, err
	}
	if norm == nil {
		norm = facenorm.New(cfg.NormSize)
	}
	return &Extractor{cfg: cfg, builder: b, norm: norm}, nil
}

// Config returns a copy of the extractor configuration.
func (e *Extractor) Config() Config { return e.cfg.clone() }

// ComputeFeatures is the one-shot form of NewExtractor(cfg, nil).Extract.
func ComputeFeatures(ctx context.Context, frames frame.Sequence, locs faceloc.Locations, cfg Config) (*Features, error) {
	e, err := NewExtractor(cfg, nil)
	if err != nil {
		return nil, err
	}
	return e.Extract(ctx, frames, locs)
}

// Extract computes the XY, XT and YT feature matrices of one video. Every
// matrix has one row per frame; the first and last MaxRadius rows, and rows
// skipped under SentinelOnMissing, are NaN.
func (e *Extractor) Extract(ctx context.Context, frames frame.Sequence, locs faceloc.Locations) (*Features, error) {
	n := len(frames)
	if n == 0 {
		return nil, ErrNoFrames
	}

	radii := e.cfg.Radii
	maxR := e.cfg.MaxRadius()
	xyBins, xtBins, ytBins := e.builder.Bins()
	feat := &Features{
		XY:        nanDense(n, xyBins),
		XT:        nanDense(n, xtBins*len(radii)),
		YT:        nanDense(n, ytBins*len(radii)),
		MaxRadius: maxR,
		AllPlanes: e.cfg.AllPlanes,
	}

	w := &window{e: e, frames: frames, locs: locs, cache: make([]normalized, n)}
	for idx := maxR; idx < n-maxR; idx++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		xy, xt, yt, err := w.row(idx)
		if err != nil {
			if e.cfg.MissingFace == SentinelOnMissing && isMissingFace(err) {
				monitoring.Logf("lbptop: frame %d left undefined: %v", idx, err)
				feat.Skipped = append(feat.Skipped, idx)
				continue
			}
			return nil, fmt.Errorf("frame %d: %w", idx, err)
		}
		feat.XY.SetRow(idx, xy)
		feat.XT.SetRow(idx, xt)
		feat.YT.SetRow(idx, yt)
	}
	return feat, nil
}

func isMissingFace(err error) bool {
	return errors.Is(err, facenorm.ErrMissingFace) || errors.Is(err, facenorm.ErrInvalidBox)
}

type normalized struct {
	f   *frame.Gray
	err error
}

// window holds the per-video normalization cache.
type window struct {
	e      *Extractor
	frames frame.Sequence
	locs   faceloc.Locations
	cache  []normalized
}

func (w *window) frame(i int) (*frame.Gray, error) {
	c := &w.cache[i]
	if c.f == nil && c.err == nil {
		box, ok := w.locs.Lookup(i)
		c.f, c.err = w.e.norm.Normalize(w.frames[i], box, ok)
		if c.err != nil {
			c.err = fmt.Errorf("normalize frame %d: %w", i, c.err)
		}
	}
	return c.f, c.err
}

// row builds the feature rows of frame idx: XY from the first radius, XT and
// YT concatenated over all radii.
func (w *window) row(idx int) (xy, xt, yt []float64, err error) {
	n := len(w.frames)
	for i, r := range w.e.cfg.Radii {
		lr := w.e.cfg.localRadius(r)
		start, end := max(idx-lr, 0), min(idx+lr+1, n)

		sub := make([]*frame.Gray, 0, end-start)
		for t := start; t < end; t++ {
			f, err := w.frame(t)
			if err != nil {
				return nil, nil, nil, err
			}
			sub = append(sub, f)
		}
		vol, err := volume.New(sub)
		if err != nil {
			return nil, nil, nil, err
		}
		h, err := w.e.builder.Build(vol, idx-start, r)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("radius %d: %w", r, err)
		}
		if i == 0 {
			xy = h.XY
		}
		xt = append(xt, h.XT...)
		yt = append(yt, h.YT...)
	}
	return xy, xt, yt, nil
}

func nanDense(r, c int) *mat.Dense {
	data := make([]float64, r*c)
	for i := range data {
		data[i] = math.NaN()
	}
	return mat.NewDense(r, c, data)
}
