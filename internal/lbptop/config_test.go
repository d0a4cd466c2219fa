package lbptop

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/lbptop/internal/config"
	"github.com/banshee-data/lbptop/internal/facenorm"
	"github.com/banshee-data/lbptop/internal/lbp"
	"github.com/banshee-data/lbptop/internal/volume"
)

func TestConfigFromExtraction_Defaults(t *testing.T) {
	t.Parallel()
	cfg, err := ConfigFromExtraction(config.EmptyExtractionConfig())
	require.NoError(t, err)

	want := DefaultConfig()
	assert.Equal(t, want, cfg)
	assert.Equal(t, 1, cfg.MaxRadius())
}

func TestConfigFromExtraction_Overrides(t *testing.T) {
	t.Parallel()
	ec := config.EmptyExtractionConfig()
	riu2, dc, sentinel := "riu2", "direction_coded", "sentinel"
	four, two := 4, 2
	yes := true
	ec.LBPTypeXT = &riu2
	ec.ELBPTypeYT = &dc
	ec.NeighborsXY = &four
	ec.RadiusX = &two
	ec.RadiusT = []int{3, 1}
	ec.CircularXT = &yes
	ec.NoNorm = &yes
	ec.AllPlanes = &yes
	ec.MissingFace = &sentinel

	cfg, err := ConfigFromExtraction(ec)
	require.NoError(t, err)
	assert.Equal(t, lbp.RIU2, cfg.XT.Variant)
	assert.True(t, cfg.XT.Circular)
	assert.Equal(t, lbp.ModeDirectionCoded, cfg.YT.Mode)
	assert.Equal(t, 4, cfg.XY.Neighbors)
	assert.Equal(t, 2, cfg.RadiusX)
	assert.Equal(t, []int{1, 3}, cfg.Radii)
	assert.Equal(t, 3, cfg.MaxRadius())
	assert.Nil(t, cfg.NormSize)
	assert.True(t, cfg.AllPlanes)
	assert.Equal(t, SentinelOnMissing, cfg.MissingFace)
}

func TestConfigFromExtraction_Invalid(t *testing.T) {
	t.Parallel()
	ec := config.EmptyExtractionConfig()
	bad := "fancy"
	ec.LBPTypeXY = &bad
	_, err := ConfigFromExtraction(ec)
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()
	cases := map[string]func(*Config){
		"no radii":        func(c *Config) { c.Radii = nil },
		"duplicate radii": func(c *Config) { c.Radii = []int{1, 1} },
		"zero radius":     func(c *Config) { c.Radii = []int{0} },
		"neighbours":      func(c *Config) { c.YT.Neighbors = 6 },
		"spatial radius":  func(c *Config) { c.RadiusY = 0 },
		"tiny face":       func(c *Config) { c.NormSize = &facenorm.Size{Height: 2, Width: 2} },
		"policy":          func(c *Config) { c.MissingFace = 9 },
	}
	for name, mutate := range cases {
		cfg := DefaultConfig()
		mutate(&cfg)
		err := cfg.Validate()
		assert.True(t, errors.Is(err, lbp.ErrInvalidParams), "%s: %v", name, err)
	}
	assert.NoError(t, DefaultConfig().Validate())
}

func TestParseMissingFacePolicy(t *testing.T) {
	t.Parallel()
	p, err := ParseMissingFacePolicy("Sentinel")
	require.NoError(t, err)
	assert.Equal(t, SentinelOnMissing, p)
	assert.Equal(t, "fail", FailOnMissing.String())
	_, err = ParseMissingFacePolicy("ignore")
	assert.Error(t, err)
}

func TestBuilder_UnknownRadius(t *testing.T) {
	t.Parallel()
	b, err := NewBuilder(rawConfig(1))
	require.NoError(t, err)
	vol, err := volume.New(constantVideo(5, 8, 8, 1))
	require.NoError(t, err)

	_, err = b.Build(vol, 2, 2)
	assert.True(t, errors.Is(err, lbp.ErrInvalidParams))
	_, err = b.Build(vol, 9, 1)
	assert.Error(t, err)

	h, err := b.Build(vol, 2, 1)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, sum(h.XY), 1e-12)
	assert.InDelta(t, 1.0, sum(h.XT), 1e-12)
	assert.InDelta(t, 1.0, sum(h.YT), 1e-12)
}

func sum(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x
	}
	return s
}
