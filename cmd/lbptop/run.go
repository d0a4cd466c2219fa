package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/lbptop/internal/dataset"
	"github.com/banshee-data/lbptop/internal/featstore"
	"github.com/banshee-data/lbptop/internal/frame"
	"github.com/banshee-data/lbptop/internal/lbptop"
	"github.com/banshee-data/lbptop/internal/monitoring"
	"github.com/banshee-data/lbptop/internal/preproc"
	"github.com/banshee-data/lbptop/internal/timeutil"
	"github.com/banshee-data/lbptop/internal/video"
)

// loadVideo is swapped in tests.
var loadVideo = video.Load

// runner processes the selected videos of one invocation.
type runner struct {
	opts      *options
	extractor *lbptop.Extractor
	tanTriggs *preproc.TanTriggs
	sink      featstore.Sink
	dir       *featstore.DirSink
	store     *featstore.Store
	runID     string
	clock     timeutil.Clock

	storeMu sync.Mutex
}

// run executes a whole batch. It returns the number of failed videos; err is
// reserved for problems that stop the batch before or between videos.
func run(ctx context.Context, o *options) (failed int, err error) {
	cfg, err := lbptop.ConfigFromExtraction(o.extraction)
	if err != nil {
		return 0, err
	}
	ex, err := lbptop.NewExtractor(cfg, nil)
	if err != nil {
		return 0, err
	}

	ds, err := dataset.LoadManifest(o.manifest, o.inputDir)
	if err != nil {
		return 0, err
	}
	files, err := ds.Files(dataset.Selection{Enrollment: o.enrollment, Groups: o.groups})
	if err != nil {
		return 0, err
	}
	if o.gridCount {
		fmt.Println(len(files))
		return 0, nil
	}
	if o.grid {
		f, err := dataset.SelectGrid(files, o.gridIndex)
		if err != nil {
			return 0, err
		}
		files = []dataset.File{f}
	}

	dir := featstore.NewDirSink(o.outputDir, cfg.AllPlanes)
	r := &runner{
		opts:      o,
		extractor: ex,
		sink:      dir,
		dir:       dir,
		clock:     timeutil.RealClock{},
	}
	if o.extraction.GetTanTriggs() {
		r.tanTriggs = preproc.NewTanTriggs()
	}
	if o.dbPath != "" {
		if err := r.openStore(ctx, ds.Name()); err != nil {
			return 0, err
		}
		defer r.store.Close()
	}

	monitoring.Logf("Extracting %d videos from %s (%s) with radii %v", len(files), ds.Name(), o.inputDir, cfg.Radii)
	failed, err = r.processAll(ctx, files)

	if r.store != nil {
		status := featstore.RunCompleted
		if failed > 0 || err != nil {
			status = featstore.RunFailed
		}
		if ferr := r.store.FinishRun(context.WithoutCancel(ctx), r.runID, status); ferr != nil {
			monitoring.Logf("failed to finish run %s: %v", r.runID, ferr)
		}
	}
	return failed, err
}

func (r *runner) openStore(ctx context.Context, datasetName string) error {
	st, err := featstore.Open(r.opts.dbPath)
	if err != nil {
		return err
	}
	cfgJSON, err := r.opts.extraction.JSON()
	if err != nil {
		st.Close()
		return err
	}
	id, err := st.BeginRun(ctx, datasetName, cfgJSON)
	if err != nil {
		st.Close()
		return err
	}
	r.store, r.runID = st, id
	r.sink = featstore.MultiSink{r.sink, st.RunSink(id)}
	monitoring.Logf("Recording run %s in %s", id, r.opts.dbPath)
	return nil
}

// processAll runs up to -jobs videos at once. A failing video is logged and
// counted; only cancellation stops the batch.
func (r *runner) processAll(ctx context.Context, files []dataset.File) (int, error) {
	var failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.jobs)

	for i, f := range files {
		if gctx.Err() != nil {
			break
		}
		i, f := i, f
		g.Go(func() error {
			err := r.processFile(gctx, f, i+1, len(files))
			if err == nil {
				return nil
			}
			if errors.Is(err, context.Canceled) {
				return err
			}
			failed.Add(1)
			monitoring.Logf("Failed to process %s: %v", f.ID(), err)
			r.recordFailure(f.ID(), err)
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	return int(failed.Load()), err
}

func (r *runner) recordFailure(videoID string, cause error) {
	if r.store == nil {
		return
	}
	r.storeMu.Lock()
	defer r.storeMu.Unlock()
	if err := r.store.RecordFailure(context.Background(), r.runID, videoID, cause); err != nil {
		monitoring.Logf("failed to record failure of %s: %v", videoID, err)
	}
}

// processFile decodes one video, prepares its frames and face locations, and
// saves its feature matrices.
func (r *runner) processFile(ctx context.Context, f dataset.File, index, total int) error {
	if r.opts.skipExist && r.dir.Exists(f.ID(), lbptop.OutputNames(r.extractor.Config().AllPlanes)...) {
		monitoring.Logf("Skipping %s: features already present", f.ID())
		return nil
	}
	start := r.clock.Now()
	frames, err := loadVideo(f.VideoPath())
	if err != nil {
		return fmt.Errorf("load video: %w", err)
	}
	monitoring.Logf("Processing file %s (%d frames) [%d/%d]", f.VideoPath(), len(frames), index, total)

	if f.Rotated() {
		frames = frames.Map((*frame.Gray).Rotate180)
	}
	locs, err := f.FaceLocations(dataset.LocationOptions{
		FrameCount:  len(frames),
		MinFaceSize: r.opts.extraction.GetFaceSizeFilter(),
	})
	if err != nil {
		return fmt.Errorf("face locations: %w", err)
	}
	if r.tanTriggs != nil {
		frames = r.tanTriggs.ApplySequence(frames)
	}

	feat, err := r.extractor.Extract(ctx, frames, locs)
	if err != nil {
		return err
	}
	if len(feat.Skipped) > 0 {
		monitoring.Logf("%s: %d frames without a face left undefined", f.ID(), len(feat.Skipped))
	}
	for _, out := range feat.Outputs() {
		if err := r.sink.Save(ctx, f.ID(), out.Name, out.Matrix); err != nil {
			return fmt.Errorf("save %s: %w", out.Name, err)
		}
	}
	monitoring.Logf("Finished %s in %v", f.ID(), r.clock.Since(start).Round(time.Millisecond))
	return nil
}
