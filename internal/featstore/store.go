package featstore

import (
	"bytes"
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"math"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/lbptop/internal/monitoring"
	"github.com/banshee-data/lbptop/internal/timeutil"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Run statuses.
const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// ErrNotFound is returned when a run or matrix does not exist.
var ErrNotFound = errors.New("featstore: not found")

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA foreign_keys=ON",
}

// Store persists feature matrices, run provenance and per-video failures in
// SQLite.
type Store struct {
	db    *sql.DB
	clock timeutil.Clock
}

// Open opens (creating if needed) the database at path and migrates it to the
// latest schema. ":memory:" gives a private in-memory store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("featstore: %s: %w", p, err)
		}
	}
	s := &Store{db: db, clock: timeutil.RealClock{}}
	if err := s.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// SetClock replaces the clock used for run and matrix timestamps.
func (s *Store) SetClock(c timeutil.Clock) { s.clock = c }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) newMigrate() (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = &migrateLogger{}
	return m, nil
}

// migrateUp applies pending migrations. The migrate instance is not closed
// because that would close the shared database handle.
func (s *Store) migrateUp() error {
	m, err := s.newMigrate()
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// SchemaVersion returns the applied migration version.
func (s *Store) SchemaVersion() (uint, error) {
	m, err := s.newMigrate()
	if err != nil {
		return 0, err
	}
	v, _, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, nil
	}
	return v, err
}

type migrateLogger struct{}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	monitoring.Logf("[migrate] "+format, v...)
}

func (l *migrateLogger) Verbose() bool { return false }

// Run is one extraction run.
type Run struct {
	RunID        string
	Dataset      string
	ConfigJSON   string
	Status       string
	StartedAtNs  int64
	FinishedAtNs *int64
}

// BeginRun records a new run and returns its ID.
func (s *Store) BeginRun(ctx context.Context, dataset, configJSON string) (string, error) {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO extraction_runs (run_id, dataset, config_json, status, started_at_ns)
		VALUES (?, ?, ?, ?, ?)`,
		id, dataset, configJSON, RunRunning, s.clock.Now().UnixNano())
	if err != nil {
		return "", fmt.Errorf("begin run: %w", err)
	}
	return id, nil
}

// FinishRun sets the final status of a run.
func (s *Store) FinishRun(ctx context.Context, runID, status string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE extraction_runs SET status = ?, finished_at_ns = ? WHERE run_id = ?`,
		status, s.clock.Now().UnixNano(), runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: run %s", ErrNotFound, runID)
	}
	return nil
}

// GetRun returns a run by ID.
func (s *Store) GetRun(ctx context.Context, runID string) (*Run, error) {
	var r Run
	var finished sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT run_id, dataset, config_json, status, started_at_ns, finished_at_ns
		FROM extraction_runs WHERE run_id = ?`, runID).Scan(
		&r.RunID, &r.Dataset, &r.ConfigJSON, &r.Status, &r.StartedAtNs, &finished)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: run %s", ErrNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	if finished.Valid {
		v := finished.Int64
		r.FinishedAtNs = &v
	}
	return &r, nil
}

// ListRuns returns all runs, oldest first.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, dataset, config_json, status, started_at_ns, finished_at_ns
		FROM extraction_runs ORDER BY started_at_ns, run_id`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()
	var out []Run
	for rows.Next() {
		var r Run
		var finished sql.NullInt64
		if err := rows.Scan(&r.RunID, &r.Dataset, &r.ConfigJSON, &r.Status, &r.StartedAtNs, &finished); err != nil {
			return nil, err
		}
		if finished.Valid {
			v := finished.Int64
			r.FinishedAtNs = &v
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SaveMatrix stores a matrix, replacing any earlier one for the same run,
// video and plane.
func (s *Store) SaveMatrix(ctx context.Context, runID, videoID, name string, m *mat.Dense) error {
	var buf bytes.Buffer
	if _, err := m.MarshalBinaryTo(&buf); err != nil {
		return fmt.Errorf("encode matrix: %w", err)
	}
	r, c := m.Dims()
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO feature_matrices
			(run_id, video_id, plane, rows, cols, nan_rows, data, created_at_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, videoID, name, r, c, countNaNRows(m), buf.Bytes(), s.clock.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("save matrix %s/%s: %w", videoID, name, err)
	}
	return nil
}

// RecordFailure stores the error that stopped a video.
func (s *Store) RecordFailure(ctx context.Context, runID, videoID string, cause error) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO extraction_failures (run_id, video_id, error, created_at_ns)
		VALUES (?, ?, ?, ?)`,
		runID, videoID, cause.Error(), s.clock.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("record failure: %w", err)
	}
	return nil
}

// Failure is a recorded per-video error.
type Failure struct {
	VideoID string
	Error   string
}

// Failures lists the failures of a run in insertion order.
func (s *Store) Failures(ctx context.Context, runID string) ([]Failure, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT video_id, error FROM extraction_failures
		WHERE run_id = ? ORDER BY failure_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("list failures: %w", err)
	}
	defer rows.Close()
	var out []Failure
	for rows.Next() {
		var f Failure
		if err := rows.Scan(&f.VideoID, &f.Error); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// LoadMatrix reads one stored matrix.
func (s *Store) LoadMatrix(ctx context.Context, runID, videoID, name string) (*mat.Dense, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT data FROM feature_matrices WHERE run_id = ? AND video_id = ? AND plane = ?`,
		runID, videoID, name).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: matrix %s/%s in run %s", ErrNotFound, videoID, name, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("load matrix: %w", err)
	}
	var m mat.Dense
	if err := m.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("decode matrix %s/%s: %w", videoID, name, err)
	}
	return &m, nil
}

// MatrixInfo describes a stored matrix without its data.
type MatrixInfo struct {
	VideoID string
	Plane   string
	Rows    int
	Cols    int
	NaNRows int
}

// ListMatrices lists the matrices of a run ordered by video and plane.
func (s *Store) ListMatrices(ctx context.Context, runID string) ([]MatrixInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT video_id, plane, rows, cols, nan_rows FROM feature_matrices
		WHERE run_id = ? ORDER BY video_id, plane`, runID)
	if err != nil {
		return nil, fmt.Errorf("list matrices: %w", err)
	}
	defer rows.Close()
	var out []MatrixInfo
	for rows.Next() {
		var mi MatrixInfo
		if err := rows.Scan(&mi.VideoID, &mi.Plane, &mi.Rows, &mi.Cols, &mi.NaNRows); err != nil {
			return nil, err
		}
		out = append(out, mi)
	}
	return out, rows.Err()
}

// RunSink binds the store to a run so it can be used as a Sink.
func (s *Store) RunSink(runID string) Sink {
	return runSink{s: s, runID: runID}
}

type runSink struct {
	s     *Store
	runID string
}

func (r runSink) Save(ctx context.Context, videoID, name string, m *mat.Dense) error {
	return r.s.SaveMatrix(ctx, r.runID, videoID, name, m)
}

// countNaNRows counts rows that are NaN in every column.
func countNaNRows(m *mat.Dense) int {
	r, c := m.Dims()
	n := 0
	for i := 0; i < r; i++ {
		all := c > 0
		for j := 0; j < c && all; j++ {
			all = math.IsNaN(m.At(i, j))
		}
		if all {
			n++
		}
	}
	return n
}
