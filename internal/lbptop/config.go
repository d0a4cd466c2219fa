package lbptop

import (
	"fmt"
	"slices"
	"strings"

	"github.com/banshee-data/lbptop/internal/config"
	"github.com/banshee-data/lbptop/internal/facenorm"
	"github.com/banshee-data/lbptop/internal/lbp"
)

// MissingFacePolicy decides what happens when a window needs a frame that has
// no usable face location.
type MissingFacePolicy int

const (
	// FailOnMissing aborts the video.
	FailOnMissing MissingFacePolicy = iota
	// SentinelOnMissing leaves the affected row NaN in every plane.
	SentinelOnMissing
)

func (p MissingFacePolicy) String() string {
	switch p {
	case FailOnMissing:
		return config.MissingFaceFail
	case SentinelOnMissing:
		return config.MissingFaceSentinel
	}
	return fmt.Sprintf("MissingFacePolicy(%d)", int(p))
}

// ParseMissingFacePolicy accepts "fail" or "sentinel".
func ParseMissingFacePolicy(s string) (MissingFacePolicy, error) {
	switch strings.ToLower(s) {
	case config.MissingFaceFail:
		return FailOnMissing, nil
	case config.MissingFaceSentinel:
		return SentinelOnMissing, nil
	}
	return 0, fmt.Errorf("unknown missing-face policy %q", s)
}

// PlaneConfig is the per-plane LBP setup. Radii come from Config.
type PlaneConfig struct {
	Variant   lbp.Variant
	Neighbors int
	Circular  bool
	Mode      lbp.Mode
}

// Config is the run-wide extraction configuration. Treat it as a value: the
// Extractor copies what it keeps.
type Config struct {
	XY, XT, YT PlaneConfig

	RadiusX int   // spatial radius along image columns
	RadiusY int   // spatial radius along image rows
	Radii   []int // temporal radii; extractors process them ascending

	// NormSize is the normalized face size; nil disables face normalization.
	NormSize *facenorm.Size

	AllPlanes   bool
	MissingFace MissingFacePolicy
}

// DefaultConfig is uniform LBP with 8 neighbours on every plane, unit radii
// and 64×64 faces.
func DefaultConfig() Config {
	p := PlaneConfig{Variant: lbp.Uniform, Neighbors: 8, Mode: lbp.ModeRegular}
	return Config{
		XY: p, XT: p, YT: p,
		RadiusX:  1,
		RadiusY:  1,
		Radii:    []int{1},
		NormSize: &facenorm.Size{Height: 64, Width: 64},
	}
}

// MaxRadius is the largest temporal radius: the number of sentinel rows at
// each end of every feature matrix.
func (c Config) MaxRadius() int {
	if len(c.Radii) == 0 {
		return 0
	}
	return slices.Max(c.Radii)
}

// localRadius is the half-length of the local volume used for radius r.
func (c Config) localRadius(r int) int {
	return max(c.RadiusX, c.RadiusY, r)
}

func (c Config) xyParams() lbp.Params {
	return planeParams(c.XY, c.RadiusY, c.RadiusX)
}

func (c Config) xtParams(r int) lbp.Params {
	return planeParams(c.XT, r, c.RadiusX)
}

func (c Config) ytParams(r int) lbp.Params {
	return planeParams(c.YT, r, c.RadiusY)
}

func planeParams(p PlaneConfig, ry, rx int) lbp.Params {
	return lbp.Params{
		Neighbors: p.Neighbors,
		RadiusY:   ry,
		RadiusX:   rx,
		Circular:  p.Circular,
		Variant:   p.Variant,
		Mode:      p.Mode,
	}
}

// Validate checks every plane configuration for every radius.
func (c Config) Validate() error {
	if len(c.Radii) == 0 {
		return fmt.Errorf("%w: empty temporal radius set", lbp.ErrInvalidParams)
	}
	seen := make(map[int]bool, len(c.Radii))
	for _, r := range c.Radii {
		if seen[r] {
			return fmt.Errorf("%w: duplicate temporal radius %d", lbp.ErrInvalidParams, r)
		}
		seen[r] = true
	}
	if err := c.xyParams().Validate(); err != nil {
		return fmt.Errorf("XY: %w", err)
	}
	for _, r := range c.Radii {
		if err := c.xtParams(r).Validate(); err != nil {
			return fmt.Errorf("XT radius %d: %w", r, err)
		}
		if err := c.ytParams(r).Validate(); err != nil {
			return fmt.Errorf("YT radius %d: %w", r, err)
		}
	}
	if c.NormSize != nil && (c.NormSize.Width <= 2*c.RadiusX || c.NormSize.Height <= 2*c.RadiusY) {
		return fmt.Errorf("%w: face size %v too small for spatial radii (%d, %d)",
			lbp.ErrInvalidParams, *c.NormSize, c.RadiusY, c.RadiusX)
	}
	switch c.MissingFace {
	case FailOnMissing, SentinelOnMissing:
	default:
		return fmt.Errorf("%w: %v", lbp.ErrInvalidParams, c.MissingFace)
	}
	return nil
}

// clone deep-copies c with Radii sorted ascending.
func (c Config) clone() Config {
	out := c
	out.Radii = slices.Clone(c.Radii)
	slices.Sort(out.Radii)
	if c.NormSize != nil {
		s := *c.NormSize
		out.NormSize = &s
	}
	return out
}

// ConfigFromExtraction converts the file/flag configuration into a validated
// Config.
func ConfigFromExtraction(ec *config.ExtractionConfig) (Config, error) {
	if err := ec.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid extraction config: %w", err)
	}

	plane := func(variant, mode string, neighbors int, circular bool) (PlaneConfig, error) {
		v, err := lbp.ParseVariant(variant)
		if err != nil {
			return PlaneConfig{}, err
		}
		m, err := lbp.ParseMode(mode)
		if err != nil {
			return PlaneConfig{}, err
		}
		return PlaneConfig{Variant: v, Neighbors: neighbors, Circular: circular, Mode: m}, nil
	}

	var (
		cfg Config
		err error
	)
	if cfg.XY, err = plane(ec.GetLBPTypeXY(), ec.GetELBPTypeXY(), ec.GetNeighborsXY(), ec.GetCircularXY()); err != nil {
		return Config{}, fmt.Errorf("XY: %w", err)
	}
	if cfg.XT, err = plane(ec.GetLBPTypeXT(), ec.GetELBPTypeXT(), ec.GetNeighborsXT(), ec.GetCircularXT()); err != nil {
		return Config{}, fmt.Errorf("XT: %w", err)
	}
	if cfg.YT, err = plane(ec.GetLBPTypeYT(), ec.GetELBPTypeYT(), ec.GetNeighborsYT(), ec.GetCircularYT()); err != nil {
		return Config{}, fmt.Errorf("YT: %w", err)
	}
	cfg.RadiusX = ec.GetRadiusX()
	cfg.RadiusY = ec.GetRadiusY()
	cfg.Radii = ec.GetRadiusT()
	if !ec.GetNoNorm() {
		h, w := ec.GetNormFaceSize()
		cfg.NormSize = &facenorm.Size{Height: h, Width: w}
	}
	cfg.AllPlanes = ec.GetAllPlanes()
	if cfg.MissingFace, err = ParseMissingFacePolicy(ec.GetMissingFace()); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
