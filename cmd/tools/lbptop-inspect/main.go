// Command lbptop-inspect summarizes feature matrices written by lbptop and
// optionally charts their mean histograms.
//
//	lbptop-inspect [-png dir] [-html file] features/XY/real/client001.dense ...
//	lbptop-inspect -db features.db [-run id]
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/banshee-data/lbptop/internal/featstore"
	"github.com/banshee-data/lbptop/internal/report"
	"github.com/banshee-data/lbptop/internal/security"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		log.Fatalf("lbptop-inspect: %v", err)
	}
}

func run(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("lbptop-inspect", flag.ContinueOnError)
	pngDir := fs.String("png", "", "write a mean-histogram bar chart per file into this directory")
	htmlPath := fs.String("html", "", "write an HTML page with a mean-histogram chart per file")
	dbPath := fs.String("db", "", "list runs and matrices of a feature database instead of reading files")
	runID := fs.String("run", "", "with -db, the run to list (default: latest)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *dbPath != "" {
		return inspectStore(context.Background(), stdout, *dbPath, *runID)
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("no feature files given")
	}

	var named []report.Named
	for _, path := range fs.Args() {
		m, err := featstore.LoadDense(path)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%s: %v\n", path, report.Summarize(m))
		name := label(path)
		named = append(named, report.Named{Name: name, Matrix: m})

		if *pngDir != "" {
			if err := os.MkdirAll(*pngDir, 0o755); err != nil {
				return err
			}
			out := filepath.Join(*pngDir, security.SafeName(name)+".png")
			if err := report.WritePNG(out, name, m); err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
		}
	}

	if *htmlPath != "" {
		f, err := os.Create(*htmlPath)
		if err != nil {
			return err
		}
		if err := report.WriteHTML(f, "LBP-TOP features", named); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}
	return nil
}

// label names a feature file by up to its last three path elements, which
// covers <plane>/<class>/<video> layouts.
func label(path string) string {
	parts := strings.Split(filepath.ToSlash(strings.TrimSuffix(path, featstore.Ext)), "/")
	if len(parts) > 3 {
		parts = parts[len(parts)-3:]
	}
	return strings.Join(parts, "/")
}

func inspectStore(ctx context.Context, w io.Writer, path, runID string) error {
	st, err := featstore.Open(path)
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.ListRuns(ctx)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "no runs")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(w, "run %s dataset=%q status=%s\n", r.RunID, r.Dataset, r.Status)
	}
	if runID == "" {
		runID = runs[len(runs)-1].RunID
	}

	infos, err := st.ListMatrices(ctx, runID)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "matrices of run %s:\n", runID)
	for _, mi := range infos {
		fmt.Fprintf(w, "  %s %s %dx%d (%d undefined rows)\n", mi.VideoID, mi.Plane, mi.Rows, mi.Cols, mi.NaNRows)
	}
	fails, err := st.Failures(ctx, runID)
	if err != nil {
		return err
	}
	for _, f := range fails {
		fmt.Fprintf(w, "  FAILED %s: %s\n", f.VideoID, f.Error)
	}
	return nil
}
