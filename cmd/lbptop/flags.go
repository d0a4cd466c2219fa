package main

import (
	"flag"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/banshee-data/lbptop/internal/config"
)

// options is the parsed command line.
type options struct {
	inputDir  string
	outputDir string
	manifest  string

	extraction *config.ExtractionConfig

	enrollment bool
	groups     []string

	grid      bool
	gridIndex int
	gridCount bool
	jobs      int

	dbPath      string
	logJSON     bool
	skipExist   bool
	showVersion bool
}

func parseIntList(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", part)
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty list")
	}
	return out, nil
}

// parseArgs parses args (without the program name). Extraction flags override
// the -config file only when given explicitly. getenv supplies SGE_TASK_ID
// for -grid without -grid-index.
func parseArgs(args []string, getenv func(string) string) (*options, error) {
	fs := flag.NewFlagSet("lbptop", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: lbptop [flags] <input_dir> <output_dir>\n\n")
		fmt.Fprintf(fs.Output(), "Extracts LBP-TOP feature matrices from every selected video.\n\n")
		fs.PrintDefaults()
	}

	def := config.DefaultExtractionConfig()
	o := &options{}

	var (
		configPath, normSize, radiusT                  string
		lXY, lXT, lYT, eXY, eXT, eYT, missingFace, grp string
		nXY, nXT, nYT, rX, rY, faceFilter              int
		cXY, cXT, cYT, tanTriggs, allPlanes, noNorm    bool
	)

	fs.StringVar(&o.manifest, "manifest", "", "dataset manifest (default <input_dir>/manifest.json)")
	fs.StringVar(&configPath, "config", "", "extraction config JSON; explicit flags override it")

	fs.StringVar(&normSize, "n", "64", "normalized face size: one value, or height,width")
	fs.StringVar(&normSize, "normface-size", "64", "alias for -n")
	fs.IntVar(&faceFilter, "ff", def.GetFaceSizeFilter(), "drop detected faces smaller than this")
	fs.IntVar(&faceFilter, "facesize-filter", def.GetFaceSizeFilter(), "alias for -ff")
	fs.BoolVar(&tanTriggs, "tan-triggs", false, "apply Tan-Triggs illumination normalization")
	fs.BoolVar(&tanTriggs, "t", false, "alias for -tan-triggs")
	fs.BoolVar(&noNorm, "nonorm", false, "do not crop and resize faces")
	fs.BoolVar(&noNorm, "nn", false, "alias for -nonorm")

	fs.StringVar(&lXY, "lXY", def.GetLBPTypeXY(), "LBP type on XY: regular, riu2, uniform")
	fs.StringVar(&lXT, "lXT", def.GetLBPTypeXT(), "LBP type on XT")
	fs.StringVar(&lYT, "lYT", def.GetLBPTypeYT(), "LBP type on YT")
	fs.IntVar(&nXY, "nXY", def.GetNeighborsXY(), "neighbours on XY: 4 or 8")
	fs.IntVar(&nXT, "nXT", def.GetNeighborsXT(), "neighbours on XT")
	fs.IntVar(&nYT, "nYT", def.GetNeighborsYT(), "neighbours on YT")
	fs.IntVar(&rX, "rX", def.GetRadiusX(), "spatial radius along X")
	fs.IntVar(&rY, "rY", def.GetRadiusY(), "spatial radius along Y")
	fs.StringVar(&radiusT, "rT", "1", "temporal radii, comma separated")
	fs.StringVar(&eXY, "eXY", def.GetELBPTypeXY(), "extended LBP on XY: regular, transitional, direction_coded, modified")
	fs.StringVar(&eXT, "eXT", def.GetELBPTypeXT(), "extended LBP on XT")
	fs.StringVar(&eYT, "eYT", def.GetELBPTypeYT(), "extended LBP on YT")
	fs.BoolVar(&cXY, "cXY", false, "circular neighbourhood on XY")
	fs.BoolVar(&cXT, "cXT", false, "circular neighbourhood on XT")
	fs.BoolVar(&cYT, "cYT", false, "circular neighbourhood on YT")
	fs.BoolVar(&allPlanes, "all-planes", false, "save XY, XT, YT, XT_YT and XY_XT_YT instead of XY_XT_YT only")
	fs.BoolVar(&allPlanes, "p", false, "alias for -all-planes")
	fs.StringVar(&missingFace, "missing-face", def.GetMissingFace(), "missing face policy: fail or sentinel")

	fs.BoolVar(&o.enrollment, "enrollment", false, "process enrollment videos only")
	fs.BoolVar(&o.enrollment, "e", false, "alias for -enrollment")
	fs.StringVar(&grp, "groups", "", "comma separated groups (default train,devel,test)")
	fs.BoolVar(&o.grid, "grid", false, "process one video selected by -grid-index or SGE_TASK_ID")
	fs.IntVar(&o.gridIndex, "grid-index", 0, "1-based task index for -grid")
	fs.BoolVar(&o.gridCount, "grid-count", false, "print the number of selected videos and exit")
	fs.IntVar(&o.jobs, "jobs", 1, "videos processed concurrently")
	fs.StringVar(&o.dbPath, "db", "", "also store features and run provenance in this SQLite database")
	fs.BoolVar(&o.skipExist, "skip-existing", false, "skip videos whose feature files are already in output_dir")
	fs.BoolVar(&o.logJSON, "log-json", false, "structured JSON logs")
	fs.BoolVar(&o.showVersion, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if o.showVersion {
		return o, nil
	}

	rest := fs.Args()
	if len(rest) != 2 {
		fs.Usage()
		return nil, fmt.Errorf("expected <input_dir> <output_dir>, got %d arguments", len(rest))
	}
	o.inputDir, o.outputDir = rest[0], rest[1]
	if o.manifest == "" {
		o.manifest = filepath.Join(o.inputDir, "manifest.json")
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	ec := config.EmptyExtractionConfig()
	if configPath != "" {
		var err error
		if ec, err = config.LoadExtractionConfig(configPath); err != nil {
			return nil, err
		}
	}

	str := func(dst **string, v string, names ...string) {
		for _, n := range names {
			if set[n] {
				*dst = &v
				return
			}
		}
	}
	num := func(dst **int, v int, names ...string) {
		for _, n := range names {
			if set[n] {
				*dst = &v
				return
			}
		}
	}
	boolean := func(dst **bool, v bool, names ...string) {
		for _, n := range names {
			if set[n] {
				*dst = &v
				return
			}
		}
	}

	str(&ec.LBPTypeXY, lXY, "lXY")
	str(&ec.LBPTypeXT, lXT, "lXT")
	str(&ec.LBPTypeYT, lYT, "lYT")
	str(&ec.ELBPTypeXY, eXY, "eXY")
	str(&ec.ELBPTypeXT, eXT, "eXT")
	str(&ec.ELBPTypeYT, eYT, "eYT")
	str(&ec.MissingFace, missingFace, "missing-face")
	num(&ec.NeighborsXY, nXY, "nXY")
	num(&ec.NeighborsXT, nXT, "nXT")
	num(&ec.NeighborsYT, nYT, "nYT")
	num(&ec.RadiusX, rX, "rX")
	num(&ec.RadiusY, rY, "rY")
	num(&ec.FaceSizeFilter, faceFilter, "ff", "facesize-filter")
	boolean(&ec.CircularXY, cXY, "cXY")
	boolean(&ec.CircularXT, cXT, "cXT")
	boolean(&ec.CircularYT, cYT, "cYT")
	boolean(&ec.TanTriggs, tanTriggs, "tan-triggs", "t")
	boolean(&ec.AllPlanes, allPlanes, "all-planes", "p")
	boolean(&ec.NoNorm, noNorm, "nonorm", "nn")

	if set["rT"] {
		radii, err := parseIntList(radiusT)
		if err != nil {
			return nil, fmt.Errorf("-rT: %w", err)
		}
		ec.RadiusT = radii
	}
	if set["n"] || set["normface-size"] {
		size, err := parseIntList(normSize)
		if err != nil {
			return nil, fmt.Errorf("-n: %w", err)
		}
		ec.NormFaceSize = size
	}
	if err := ec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid extraction config: %w", err)
	}
	o.extraction = ec

	if grp != "" {
		o.groups = strings.Split(grp, ",")
	}
	if o.jobs < 1 {
		return nil, fmt.Errorf("-jobs must be >= 1, got %d", o.jobs)
	}
	if o.grid && o.gridIndex == 0 {
		env := getenv("SGE_TASK_ID")
		if env == "" {
			return nil, fmt.Errorf("-grid needs -grid-index or SGE_TASK_ID")
		}
		idx, err := strconv.Atoi(env)
		if err != nil {
			return nil, fmt.Errorf("invalid SGE_TASK_ID %q", env)
		}
		o.gridIndex = idx
	}
	return o, nil
}
