package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDefaultExtractionConfig(t *testing.T) {
	cfg := DefaultExtractionConfig()

	if cfg.LBPTypeXY == nil || *cfg.LBPTypeXY != "uniform" {
		t.Errorf("Expected LBPTypeXY uniform, got %v", cfg.LBPTypeXY)
	}
	if cfg.NeighborsXT == nil || *cfg.NeighborsXT != 8 {
		t.Errorf("Expected NeighborsXT 8, got %v", cfg.NeighborsXT)
	}
	if diff := cmp.Diff([]int{1}, cfg.RadiusT); diff != "" {
		t.Errorf("RadiusT mismatch (-want +got):\n%s", diff)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestDefaultsFileMatchesCode(t *testing.T) {
	fromFile := MustLoadDefaultConfig()
	if diff := cmp.Diff(DefaultExtractionConfig(), fromFile); diff != "" {
		t.Errorf("defaults file drifted from DefaultExtractionConfig (-code +file):\n%s", diff)
	}
}

func TestEmptyConfigGetters(t *testing.T) {
	cfg := EmptyExtractionConfig()

	if got := cfg.GetLBPTypeXT(); got != "uniform" {
		t.Errorf("GetLBPTypeXT() = %q, want uniform", got)
	}
	if got := cfg.GetELBPTypeYT(); got != "regular" {
		t.Errorf("GetELBPTypeYT() = %q, want regular", got)
	}
	if got := cfg.GetRadiusT(); !cmp.Equal(got, []int{1}) {
		t.Errorf("GetRadiusT() = %v, want [1]", got)
	}
	if h, w := cfg.GetNormFaceSize(); h != 64 || w != 64 {
		t.Errorf("GetNormFaceSize() = %d,%d, want 64,64", h, w)
	}
	if got := cfg.GetFaceSizeFilter(); got != 50 {
		t.Errorf("GetFaceSizeFilter() = %d, want 50", got)
	}
	if got := cfg.GetMissingFace(); got != MissingFaceFail {
		t.Errorf("GetMissingFace() = %q, want fail", got)
	}
}

func TestGetRadiusTSorted(t *testing.T) {
	cfg := &ExtractionConfig{RadiusT: []int{3, 1, 2}}
	if got := cfg.GetRadiusT(); !cmp.Equal(got, []int{1, 2, 3}) {
		t.Errorf("GetRadiusT() = %v, want [1 2 3]", got)
	}
	if !cmp.Equal(cfg.RadiusT, []int{3, 1, 2}) {
		t.Errorf("GetRadiusT must not reorder the stored slice, got %v", cfg.RadiusT)
	}
}

func TestGetNormFaceSizeTwoValues(t *testing.T) {
	cfg := &ExtractionConfig{NormFaceSize: []int{80, 60}}
	if h, w := cfg.GetNormFaceSize(); h != 80 || w != 60 {
		t.Errorf("GetNormFaceSize() = %d,%d, want 80,60", h, w)
	}
}

func TestLoadExtractionConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "extraction.json")

	testJSON := `{
  "lbp_type_xt": "riu2",
  "radius_t": [1, 2],
  "circular_yt": true,
  "norm_face_size": [32, 48],
  "missing_face": "sentinel"
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadExtractionConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if got := cfg.GetLBPTypeXT(); got != "riu2" {
		t.Errorf("GetLBPTypeXT() = %q, want riu2", got)
	}
	if got := cfg.GetLBPTypeXY(); got != "uniform" {
		t.Errorf("omitted field should default, got %q", got)
	}
	if !cfg.GetCircularYT() {
		t.Error("Expected CircularYT true")
	}
	if h, w := cfg.GetNormFaceSize(); h != 32 || w != 48 {
		t.Errorf("GetNormFaceSize() = %d,%d, want 32,48", h, w)
	}
	if got := cfg.GetMissingFace(); got != MissingFaceSentinel {
		t.Errorf("GetMissingFace() = %q, want sentinel", got)
	}
}

func TestLoadExtractionConfig_Errors(t *testing.T) {
	tmpDir := t.TempDir()

	if _, err := LoadExtractionConfig(filepath.Join(tmpDir, "config.yaml")); err == nil {
		t.Error("expected extension error")
	}
	if _, err := LoadExtractionConfig(filepath.Join(tmpDir, "missing.json")); err == nil {
		t.Error("expected stat error")
	}

	bad := filepath.Join(tmpDir, "bad.json")
	if err := os.WriteFile(bad, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadExtractionConfig(bad); err == nil || !strings.Contains(err.Error(), "parse") {
		t.Errorf("expected parse error, got %v", err)
	}

	invalid := filepath.Join(tmpDir, "invalid.json")
	if err := os.WriteFile(invalid, []byte(`{"neighbors_xy": 16}`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadExtractionConfig(invalid); err == nil || !strings.Contains(err.Error(), "invalid configuration") {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		cfg     *ExtractionConfig
		wantErr bool
	}{
		{"empty", EmptyExtractionConfig(), false},
		{"bad lbp type", &ExtractionConfig{LBPTypeXY: ptrString("lbp16")}, true},
		{"bad elbp type", &ExtractionConfig{ELBPTypeXT: ptrString("trainsitional")}, true},
		{"sixteen neighbours", &ExtractionConfig{NeighborsYT: ptrInt(16)}, true},
		{"four neighbours", &ExtractionConfig{NeighborsYT: ptrInt(4)}, false},
		{"zero radius", &ExtractionConfig{RadiusX: ptrInt(0)}, true},
		{"radius_t zero", &ExtractionConfig{RadiusT: []int{0}}, true},
		{"radius_t too large", &ExtractionConfig{RadiusT: []int{10}}, true},
		{"radius_t duplicate", &ExtractionConfig{RadiusT: []int{1, 1}}, true},
		{"three norm sizes", &ExtractionConfig{NormFaceSize: []int{1, 2, 3}}, true},
		{"face too small for radius", &ExtractionConfig{NormFaceSize: []int{4}, RadiusX: ptrInt(2)}, true},
		{"small face ignored without norm", &ExtractionConfig{NormFaceSize: []int{4}, RadiusX: ptrInt(2), NoNorm: ptrBool(true)}, false},
		{"bad missing policy", &ExtractionConfig{MissingFace: ptrString("skip")}, true},
		{"negative filter", &ExtractionConfig{FaceSizeFilter: ptrInt(-1)}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestJSONRoundTrip(t *testing.T) {
	cfg := DefaultExtractionConfig()
	s, err := cfg.JSON()
	if err != nil {
		t.Fatalf("JSON() error: %v", err)
	}
	if !strings.Contains(s, `"radius_t": [`) {
		t.Errorf("JSON output missing radius_t: %s", s)
	}
}
