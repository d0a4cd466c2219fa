package main

import (
	"errors"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnv(string) string { return "" }

func TestParseArgs_Defaults(t *testing.T) {
	t.Parallel()
	o, err := parseArgs([]string{"in", "out"}, noEnv)
	require.NoError(t, err)

	assert.Equal(t, "in", o.inputDir)
	assert.Equal(t, "out", o.outputDir)
	assert.Equal(t, filepath.Join("in", "manifest.json"), o.manifest)
	assert.Equal(t, 1, o.jobs)
	assert.Equal(t, []int{1}, o.extraction.GetRadiusT())
	assert.Equal(t, "uniform", o.extraction.GetLBPTypeXY())
	assert.Nil(t, o.extraction.LBPTypeXY, "unset flags must not override the config file")
}

func TestParseArgs_ExtractionFlags(t *testing.T) {
	t.Parallel()
	o, err := parseArgs([]string{
		"-lXT", "riu2", "-nXY", "4", "-rX", "2", "-rT", "1,3",
		"-eYT", "transitional", "-cXY", "-normface-size", "48,40",
		"-ff", "30", "-tan-triggs", "-all-planes", "-missing-face", "sentinel",
		"in", "out",
	}, noEnv)
	require.NoError(t, err)

	ec := o.extraction
	assert.Equal(t, "riu2", ec.GetLBPTypeXT())
	assert.Equal(t, 4, ec.GetNeighborsXY())
	assert.Equal(t, 2, ec.GetRadiusX())
	assert.Equal(t, []int{1, 3}, ec.GetRadiusT())
	assert.Equal(t, "transitional", ec.GetELBPTypeYT())
	assert.True(t, ec.GetCircularXY())
	h, w := ec.GetNormFaceSize()
	assert.Equal(t, []int{48, 40}, []int{h, w})
	assert.Equal(t, 30, ec.GetFaceSizeFilter())
	assert.True(t, ec.GetTanTriggs())
	assert.True(t, ec.GetAllPlanes())
	assert.Equal(t, "sentinel", ec.GetMissingFace())
}

func TestParseArgs_ShortAliases(t *testing.T) {
	t.Parallel()
	o, err := parseArgs([]string{"-p", "-e", "-t", "--nn", "in", "out"}, noEnv)
	require.NoError(t, err)

	ec := o.extraction
	assert.True(t, ec.GetAllPlanes())
	assert.True(t, ec.GetTanTriggs())
	assert.True(t, ec.GetNoNorm())
	assert.True(t, o.enrollment)

	o, err = parseArgs([]string{"in", "out"}, noEnv)
	require.NoError(t, err)
	assert.Nil(t, o.extraction.AllPlanes)
	assert.Nil(t, o.extraction.NoNorm)
	assert.False(t, o.enrollment)
}

func TestParseArgs_ConfigFileWithOverride(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "cfg.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"lbp_type_xy": "regular", "radius_t": [2]}`), 0o644))

	o, err := parseArgs([]string{"-config", path, "-rT", "1,2", "in", "out"}, noEnv)
	require.NoError(t, err)
	assert.Equal(t, "regular", o.extraction.GetLBPTypeXY())
	assert.Equal(t, []int{1, 2}, o.extraction.GetRadiusT())
}

func TestParseArgs_Grid(t *testing.T) {
	t.Parallel()
	env := func(k string) string {
		if k == "SGE_TASK_ID" {
			return "7"
		}
		return ""
	}
	o, err := parseArgs([]string{"-grid", "in", "out"}, env)
	require.NoError(t, err)
	assert.Equal(t, 7, o.gridIndex)

	o, err = parseArgs([]string{"-grid", "-grid-index", "2", "in", "out"}, env)
	require.NoError(t, err)
	assert.Equal(t, 2, o.gridIndex)

	_, err = parseArgs([]string{"-grid", "in", "out"}, noEnv)
	assert.Error(t, err)
}

func TestParseArgs_Errors(t *testing.T) {
	t.Parallel()
	for name, args := range map[string][]string{
		"missing positional": {"in"},
		"bad variant":        {"-lXY", "fancy", "in", "out"},
		"bad neighbours":     {"-nXT", "16", "in", "out"},
		"bad radius list":    {"-rT", "1,x", "in", "out"},
		"duplicate radius":   {"-rT", "2,2", "in", "out"},
		"tiny face":          {"-n", "2", "in", "out"},
		"jobs":               {"-jobs", "0", "in", "out"},
		"missing config":     {"-config", "/nonexistent/cfg.json", "in", "out"},
	} {
		_, err := parseArgs(args, noEnv)
		assert.Error(t, err, name)
	}

	_, err := parseArgs([]string{"-h"}, noEnv)
	assert.True(t, errors.Is(err, flag.ErrHelp))
}

func TestParseArgs_Version(t *testing.T) {
	t.Parallel()
	o, err := parseArgs([]string{"-version"}, noEnv)
	require.NoError(t, err)
	assert.True(t, o.showVersion)
}

func TestParseIntList(t *testing.T) {
	t.Parallel()
	v, err := parseIntList(" 1, 2 ,3,")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, v)

	_, err = parseIntList(",")
	assert.Error(t, err)
}
