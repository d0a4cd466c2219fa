package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/go-playground/validator/v10"
)

// DefaultConfigPath is the path to the canonical extraction defaults file.
const DefaultConfigPath = "config/extraction.defaults.json"

// Missing-face policies.
const (
	MissingFaceFail     = "fail"
	MissingFaceSentinel = "sentinel"
)

// ExtractionConfig is the run-wide LBP-TOP extraction configuration.
// Every field is optional in JSON; the Get* methods supply defaults.
type ExtractionConfig struct {
	// LBP label variant per plane: regular, riu2 or uniform.
	LBPTypeXY *string `json:"lbp_type_xy,omitempty" validate:"omitempty,oneof=regular riu2 uniform"`
	LBPTypeXT *string `json:"lbp_type_xt,omitempty" validate:"omitempty,oneof=regular riu2 uniform"`
	LBPTypeYT *string `json:"lbp_type_yt,omitempty" validate:"omitempty,oneof=regular riu2 uniform"`

	// Neighbour counts per plane.
	NeighborsXY *int `json:"neighbors_xy,omitempty" validate:"omitempty,oneof=4 8"`
	NeighborsXT *int `json:"neighbors_xt,omitempty" validate:"omitempty,oneof=4 8"`
	NeighborsYT *int `json:"neighbors_yt,omitempty" validate:"omitempty,oneof=4 8"`

	// Spatial radii and the set of temporal radii.
	RadiusX *int  `json:"radius_x,omitempty" validate:"omitempty,min=1"`
	RadiusY *int  `json:"radius_y,omitempty" validate:"omitempty,min=1"`
	RadiusT []int `json:"radius_t,omitempty" validate:"omitempty,min=1,dive,min=1,max=9"`

	// Extended LBP comparison per plane.
	ELBPTypeXY *string `json:"elbp_type_xy,omitempty" validate:"omitempty,oneof=regular transitional direction_coded modified"`
	ELBPTypeXT *string `json:"elbp_type_xt,omitempty" validate:"omitempty,oneof=regular transitional direction_coded modified"`
	ELBPTypeYT *string `json:"elbp_type_yt,omitempty" validate:"omitempty,oneof=regular transitional direction_coded modified"`

	// Circular (interpolated) neighbourhoods per plane.
	CircularXY *bool `json:"circular_xy,omitempty"`
	CircularXT *bool `json:"circular_xt,omitempty"`
	CircularYT *bool `json:"circular_yt,omitempty"`

	// Face normalization: one value means a square face, two mean height, width.
	NormFaceSize   []int `json:"norm_face_size,omitempty" validate:"omitempty,min=1,max=2,dive,min=1"`
	NoNorm         *bool `json:"no_norm,omitempty"`
	FaceSizeFilter *int  `json:"face_size_filter,omitempty" validate:"omitempty,min=0"`

	TanTriggs   *bool   `json:"tan_triggs,omitempty"`
	AllPlanes   *bool   `json:"all_planes,omitempty"`
	MissingFace *string `json:"missing_face,omitempty" validate:"omitempty,oneof=fail sentinel"`
}

// Helper functions to create pointers
func ptrBool(v bool) *bool       { return &v }
func ptrString(v string) *string { return &v }
func ptrInt(v int) *int          { return &v }

var validate = validator.New()

// EmptyExtractionConfig returns an ExtractionConfig with all fields unset.
func EmptyExtractionConfig() *ExtractionConfig {
	return &ExtractionConfig{}
}

// DefaultExtractionConfig returns a config with every field set to its default,
// matching config/extraction.defaults.json.
func DefaultExtractionConfig() *ExtractionConfig {
	return &ExtractionConfig{
		LBPTypeXY:      ptrString("uniform"),
		LBPTypeXT:      ptrString("uniform"),
		LBPTypeYT:      ptrString("uniform"),
		NeighborsXY:    ptrInt(8),
		NeighborsXT:    ptrInt(8),
		NeighborsYT:    ptrInt(8),
		RadiusX:        ptrInt(1),
		RadiusY:        ptrInt(1),
		RadiusT:        []int{1},
		ELBPTypeXY:     ptrString("regular"),
		ELBPTypeXT:     ptrString("regular"),
		ELBPTypeYT:     ptrString("regular"),
		CircularXY:     ptrBool(false),
		CircularXT:     ptrBool(false),
		CircularYT:     ptrBool(false),
		NormFaceSize:   []int{64},
		NoNorm:         ptrBool(false),
		FaceSizeFilter: ptrInt(50),
		TanTriggs:      ptrBool(false),
		AllPlanes:      ptrBool(false),
		MissingFace:    ptrString(MissingFaceFail),
	}
}

// LoadExtractionConfig loads an ExtractionConfig from a JSON file.
// Fields omitted from the file keep their defaults through the Get* methods.
func LoadExtractionConfig(path string) (*ExtractionConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyExtractionConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching the current
// directory and common parent directories. Panics if the file cannot be
// loaded; intended for test setup.
func MustLoadDefaultConfig() *ExtractionConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // from cmd/tools/x
	}
	for _, path := range candidates {
		if cfg, err := LoadExtractionConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks struct tags and the cross-field rules tags cannot express.
func (c *ExtractionConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}

	if len(c.RadiusT) > 0 {
		seen := make(map[int]bool, len(c.RadiusT))
		for _, r := range c.RadiusT {
			if seen[r] {
				return fmt.Errorf("radius_t contains duplicate value %d", r)
			}
			seen[r] = true
		}
	}

	if !c.GetNoNorm() {
		h, w := c.GetNormFaceSize()
		rx, ry := c.GetRadiusX(), c.GetRadiusY()
		if w <= 2*rx || h <= 2*ry {
			return fmt.Errorf("norm_face_size %dx%d too small for spatial radii (%d, %d)", h, w, ry, rx)
		}
	}

	return nil
}

// JSON returns the config as indented JSON, used to record run provenance.
func (c *ExtractionConfig) JSON() (string, error) {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func getString(p *string, def string) string {
	if p == nil {
		return def
	}
	return *p
}

func getInt(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func getBool(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

// GetLBPTypeXY returns the XY label variant or the default.
func (c *ExtractionConfig) GetLBPTypeXY() string { return getString(c.LBPTypeXY, "uniform") }

// GetLBPTypeXT returns the XT label variant or the default.
func (c *ExtractionConfig) GetLBPTypeXT() string { return getString(c.LBPTypeXT, "uniform") }

// GetLBPTypeYT returns the YT label variant or the default.
func (c *ExtractionConfig) GetLBPTypeYT() string { return getString(c.LBPTypeYT, "uniform") }

func (c *ExtractionConfig) GetNeighborsXY() int { return getInt(c.NeighborsXY, 8) }
func (c *ExtractionConfig) GetNeighborsXT() int { return getInt(c.NeighborsXT, 8) }
func (c *ExtractionConfig) GetNeighborsYT() int { return getInt(c.NeighborsYT, 8) }

func (c *ExtractionConfig) GetRadiusX() int { return getInt(c.RadiusX, 1) }
func (c *ExtractionConfig) GetRadiusY() int { return getInt(c.RadiusY, 1) }

// GetRadiusT returns the temporal radius set sorted ascending, or {1}.
func (c *ExtractionConfig) GetRadiusT() []int {
	if len(c.RadiusT) == 0 {
		return []int{1}
	}
	out := append([]int(nil), c.RadiusT...)
	sort.Ints(out)
	return out
}

func (c *ExtractionConfig) GetELBPTypeXY() string { return getString(c.ELBPTypeXY, "regular") }
func (c *ExtractionConfig) GetELBPTypeXT() string { return getString(c.ELBPTypeXT, "regular") }
func (c *ExtractionConfig) GetELBPTypeYT() string { return getString(c.ELBPTypeYT, "regular") }

func (c *ExtractionConfig) GetCircularXY() bool { return getBool(c.CircularXY, false) }
func (c *ExtractionConfig) GetCircularXT() bool { return getBool(c.CircularXT, false) }
func (c *ExtractionConfig) GetCircularYT() bool { return getBool(c.CircularYT, false) }

// GetNormFaceSize returns the normalized face (height, width), default 64×64.
func (c *ExtractionConfig) GetNormFaceSize() (height, width int) {
	switch len(c.NormFaceSize) {
	case 0:
		return 64, 64
	case 1:
		return c.NormFaceSize[0], c.NormFaceSize[0]
	}
	return c.NormFaceSize[0], c.NormFaceSize[1]
}

func (c *ExtractionConfig) GetNoNorm() bool        { return getBool(c.NoNorm, false) }
func (c *ExtractionConfig) GetFaceSizeFilter() int { return getInt(c.FaceSizeFilter, 50) }
func (c *ExtractionConfig) GetTanTriggs() bool     { return getBool(c.TanTriggs, false) }
func (c *ExtractionConfig) GetAllPlanes() bool     { return getBool(c.AllPlanes, false) }

// GetMissingFace returns the missing-face policy, default "fail".
func (c *ExtractionConfig) GetMissingFace() string {
	return getString(c.MissingFace, MissingFaceFail)
}
