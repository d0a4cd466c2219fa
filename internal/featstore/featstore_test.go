package featstore

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/lbptop/internal/monitoring"
	"github.com/banshee-data/lbptop/internal/security"
	"github.com/banshee-data/lbptop/internal/timeutil"
)

func init() {
	monitoring.SetLogger(nil)
}

func sampleMatrix() *mat.Dense {
	nan := math.NaN()
	return mat.NewDense(4, 3, []float64{
		nan, nan, nan,
		0.5, 0.25, 0.25,
		0, 1, 0,
		nan, nan, nan,
	})
}

func assertSameMatrix(t *testing.T, want, got *mat.Dense) {
	t.Helper()
	wr, wc := want.Dims()
	gr, gc := got.Dims()
	require.Equal(t, []int{wr, wc}, []int{gr, gc})
	if diff := cmp.Diff(want.RawMatrix().Data, got.RawMatrix().Data, cmpopts.EquateNaNs()); diff != "" {
		t.Errorf("matrix mismatch (-want +got):\n%s", diff)
	}
}

func TestDirSink_Layout(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	ctx := context.Background()

	single := NewDirSink(root, false)
	require.NoError(t, single.Save(ctx, "real/client001", "XY_XT_YT", sampleMatrix()))
	path := filepath.Join(root, "real", "client001.dense")
	assert.Equal(t, path, single.Path("real/client001", "XY_XT_YT"))

	got, err := LoadDense(path)
	require.NoError(t, err)
	assertSameMatrix(t, sampleMatrix(), got)
	assert.True(t, single.Exists("real/client001", "XY_XT_YT"))

	planes := NewDirSink(root, true)
	require.NoError(t, planes.Save(ctx, "attack/a1", "XT", sampleMatrix()))
	_, err = os.Stat(filepath.Join(root, "XT", "attack", "a1.dense"))
	assert.NoError(t, err)
	assert.False(t, planes.Exists("attack/a1", "XT", "YT"))
	assert.False(t, planes.Exists("attack/a1"))

	entries, err := os.ReadDir(filepath.Join(root, "XT", "attack"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestDirSink_RejectsBadIDs(t *testing.T) {
	t.Parallel()
	d := NewDirSink(t.TempDir(), false)
	for _, id := range []string{"", "../escape", "a/../../escape"} {
		assert.Error(t, d.Save(context.Background(), id, "XY", sampleMatrix()), id)
	}
	err := d.Save(context.Background(), "../escape", "XY", sampleMatrix())
	assert.True(t, errors.Is(err, security.ErrEscapesRoot), "%v", err)
}

func TestLoadDense_Errors(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	_, err := LoadDense(filepath.Join(dir, "missing.dense"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.dense")
	require.NoError(t, os.WriteFile(bad, []byte("junk"), 0o644))
	_, err = LoadDense(bad)
	assert.Error(t, err)
}

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "features.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_ClockTimestamps(t *testing.T) {
	t.Parallel()
	s := openStore(t)
	ctx := context.Background()
	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	clock := timeutil.NewMockClock(start)
	s.SetClock(clock)

	runID, err := s.BeginRun(ctx, "replay", "{}")
	require.NoError(t, err)
	clock.Advance(3 * time.Minute)
	require.NoError(t, s.FinishRun(ctx, runID, RunCompleted))

	run, err := s.GetRun(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, start.UnixNano(), run.StartedAtNs)
	require.NotNil(t, run.FinishedAtNs)
	assert.Equal(t, (3 * time.Minute).Nanoseconds(), *run.FinishedAtNs-run.StartedAtNs)
}

func TestStore_RunLifecycle(t *testing.T) {
	t.Parallel()
	s := openStore(t)
	ctx := context.Background()

	v, err := s.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), v)

	runID, err := s.BeginRun(ctx, "replay", `{"radius_t":[1]}`)
	require.NoError(t, err)
	run, err := s.GetRun(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, RunRunning, run.Status)
	assert.Nil(t, run.FinishedAtNs)

	sink := s.RunSink(runID)
	require.NoError(t, sink.Save(ctx, "real/r1", "XY_XT_YT", sampleMatrix()))
	require.NoError(t, sink.Save(ctx, "real/r1", "XY", sampleMatrix()))
	require.NoError(t, s.RecordFailure(ctx, runID, "attack/a1", errors.New("no face")))
	require.NoError(t, s.FinishRun(ctx, runID, RunFailed))

	run, err = s.GetRun(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, RunFailed, run.Status)
	assert.NotNil(t, run.FinishedAtNs)
	assert.Equal(t, "replay", run.Dataset)

	got, err := s.LoadMatrix(ctx, runID, "real/r1", "XY_XT_YT")
	require.NoError(t, err)
	assertSameMatrix(t, sampleMatrix(), got)

	infos, err := s.ListMatrices(ctx, runID)
	require.NoError(t, err)
	want := []MatrixInfo{
		{VideoID: "real/r1", Plane: "XY", Rows: 4, Cols: 3, NaNRows: 2},
		{VideoID: "real/r1", Plane: "XY_XT_YT", Rows: 4, Cols: 3, NaNRows: 2},
	}
	if diff := cmp.Diff(want, infos); diff != "" {
		t.Errorf("ListMatrices mismatch (-want +got):\n%s", diff)
	}

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, runID, runs[0].RunID)

	fails, err := s.Failures(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, []Failure{{VideoID: "attack/a1", Error: "no face"}}, fails)
}

func TestStore_NotFound(t *testing.T) {
	t.Parallel()
	s := openStore(t)
	ctx := context.Background()

	_, err := s.GetRun(ctx, "nope")
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = s.LoadMatrix(ctx, "nope", "v", "XY")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(s.FinishRun(ctx, "nope", RunCompleted), ErrNotFound))
}

func TestStore_SaveReplaces(t *testing.T) {
	t.Parallel()
	s := openStore(t)
	ctx := context.Background()
	runID, err := s.BeginRun(ctx, "", "{}")
	require.NoError(t, err)

	require.NoError(t, s.SaveMatrix(ctx, runID, "v", "XY", sampleMatrix()))
	replacement := mat.NewDense(1, 2, []float64{1, 2})
	require.NoError(t, s.SaveMatrix(ctx, runID, "v", "XY", replacement))

	got, err := s.LoadMatrix(ctx, runID, "v", "XY")
	require.NoError(t, err)
	assertSameMatrix(t, replacement, got)
}

func TestStore_ReopenKeepsData(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "features.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	runID, err := s.BeginRun(ctx, "ds", "{}")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	_, err = s.GetRun(ctx, runID)
	assert.NoError(t, err)
}

type failingSink struct{ err error }

func (f failingSink) Save(context.Context, string, string, *mat.Dense) error { return f.err }

func TestMultiSink(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	boom := errors.New("boom")
	ms := MultiSink{NewDirSink(root, false), failingSink{err: boom}}

	err := ms.Save(context.Background(), "v1", "XY_XT_YT", sampleMatrix())
	assert.True(t, errors.Is(err, boom))
	_, statErr := os.Stat(filepath.Join(root, "v1.dense"))
	assert.NoError(t, statErr, "healthy sinks still receive the matrix")

	assert.NoError(t, MultiSink{}.Save(context.Background(), "v", "XY", sampleMatrix()))
}
