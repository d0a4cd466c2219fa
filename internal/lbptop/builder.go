package lbptop

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/lbptop/internal/lbp"
	"github.com/banshee-data/lbptop/internal/volume"
)

// Histograms holds one unit-sum histogram per plane for a single local
// volume and temporal radius.
type Histograms struct {
	XY []float64
	XT []float64
	YT []float64
}

// Builder computes plane histograms of local volumes. Operators are built once
// per radius. A Builder is immutable and safe for concurrent use.
type Builder struct {
	xy *lbp.Operator
	xt map[int]*lbp.Operator
	yt map[int]*lbp.Operator
}

// NewBuilder validates cfg and prepares the operators for every radius.
func NewBuilder(cfg Config) (*Builder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	xy, err := lbp.NewOperator(cfg.xyParams())
	if err != nil {
		return nil, fmt.Errorf("XY: %w", err)
	}
	b := &Builder{
		xy: xy,
		xt: make(map[int]*lbp.Operator, len(cfg.Radii)),
		yt: make(map[int]*lbp.Operator, len(cfg.Radii)),
	}
	for _, r := range cfg.Radii {
		if b.xt[r], err = lbp.NewOperator(cfg.xtParams(r)); err != nil {
			return nil, fmt.Errorf("XT radius %d: %w", r, err)
		}
		if b.yt[r], err = lbp.NewOperator(cfg.ytParams(r)); err != nil {
			return nil, fmt.Errorf("YT radius %d: %w", r, err)
		}
	}
	return b, nil
}

// Bins returns the per-radius histogram length of each plane.
func (b *Builder) Bins() (xy, xt, yt int) {
	for _, op := range b.xt {
		xt = op.Bins()
		break
	}
	for _, op := range b.yt {
		yt = op.Bins()
		break
	}
	return b.xy.Bins(), xt, yt
}

// Build computes the three histograms of vol for temporal radius r. XY uses
// frame center of the volume; XT and YT accumulate every row and column plane
// over all time positions the radius allows.
func (b *Builder) Build(vol *volume.Volume, center, r int) (Histograms, error) {
	xtOp, ok := b.xt[r]
	if !ok {
		return Histograms{}, fmt.Errorf("%w: radius %d not configured", lbp.ErrInvalidParams, r)
	}
	ytOp := b.yt[r]
	if center < 0 || center >= vol.Len() {
		return Histograms{}, fmt.Errorf("lbptop: centre %d outside volume of %d frames", center, vol.Len())
	}

	xy, _, err := b.xy.Histogram(vol.XY(center))
	if err != nil {
		return Histograms{}, fmt.Errorf("XY: %w", err)
	}

	xt := make([]float64, xtOp.Bins())
	for y := 0; y < vol.Height(); y++ {
		if _, err := xtOp.Accumulate(xt, vol.XT(y)); err != nil {
			return Histograms{}, fmt.Errorf("XT row %d: %w", y, err)
		}
	}

	yt := make([]float64, ytOp.Bins())
	for x := 0; x < vol.Width(); x++ {
		if _, err := ytOp.Accumulate(yt, vol.YT(x)); err != nil {
			return Histograms{}, fmt.Errorf("YT column %d: %w", x, err)
		}
	}

	return Histograms{XY: normalize(xy), XT: normalize(xt), YT: normalize(yt)}, nil
}

// normalize scales h to unit sum in place.
func normalize(h []float64) []float64 {
	if s := floats.Sum(h); s > 0 {
		floats.Scale(1/s, h)
	}
	return h
}
