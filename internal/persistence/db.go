// Package persistence exports stage timing measurements to SQLite. It never
// stores simulation state: a run can be analysed afterwards but not resumed.
package persistence

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/ncruces/go-strftime"
	_ "modernc.org/sqlite"

	"github.com/talgya/dotarena/internal/config"
	"github.com/talgya/dotarena/internal/engine"
)

// DefaultPattern names export files after the time the run started.
const DefaultPattern = "timing-%Y%m%d-%H%M%S.db"

// DefaultPath returns the export path for a run started at t.
func DefaultPath(dir string, t time.Time) string {
	return filepath.Join(dir, strftime.Format(DefaultPattern, t))
}

// DB wraps a SQLite connection holding timing runs.
type DB struct {
	conn  *sqlx.DB
	runID string
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		settings_json TEXT NOT NULL,
		stages_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS stage_timings (
		run_id TEXT NOT NULL,
		tick INTEGER NOT NULL,
		stage TEXT NOT NULL,
		nanos INTEGER NOT NULL,
		skipped INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tick_summaries (
		run_id TEXT NOT NULL,
		tick INTEGER NOT NULL,
		nanos INTEGER NOT NULL,
		contacts INTEGER NOT NULL,
		events INTEGER NOT NULL,
		impacted INTEGER NOT NULL,
		removed INTEGER NOT NULL,
		spawned INTEGER NOT NULL,
		dropped INTEGER NOT NULL,
		blocked INTEGER NOT NULL,
		shots INTEGER NOT NULL,
		alive INTEGER NOT NULL,
		PRIMARY KEY (run_id, tick)
	);

	CREATE INDEX IF NOT EXISTS idx_stage_timings_run ON stage_timings(run_id, stage);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// StartRun records a new run and makes it the target of SaveTimings.
func (db *DB) StartRun(settings config.Settings, stages []string) (string, error) {
	settingsJSON, err := json.Marshal(settings)
	if err != nil {
		return "", fmt.Errorf("encode settings: %w", err)
	}
	stagesJSON, err := json.Marshal(stages)
	if err != nil {
		return "", fmt.Errorf("encode stages: %w", err)
	}

	id := uuid.NewString()
	_, err = db.conn.Exec(
		"INSERT INTO runs (id, started_at, settings_json, stages_json) VALUES (?, ?, ?, ?)",
		id, time.Now().UTC().Format(time.RFC3339), string(settingsJSON), string(stagesJSON),
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	db.runID = id
	slog.Info("timing run started", "run", id)
	return id, nil
}

// RunID returns the current run, or "" before StartRun.
func (db *DB) RunID() string {
	return db.runID
}

// SaveTimings appends a batch of samples to the current run.
func (db *DB) SaveTimings(stages []engine.StageSample, ticks []engine.TickSample) error {
	if db.runID == "" {
		return fmt.Errorf("save timings: no run started")
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stageStmt, err := tx.Preparex(`INSERT INTO stage_timings
		(run_id, tick, stage, nanos, skipped) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stageStmt.Close()

	for _, s := range stages {
		skipped := 0
		if s.Skipped {
			skipped = 1
		}
		if _, err := stageStmt.Exec(db.runID, s.Tick, s.Stage, s.Nanos, skipped); err != nil {
			return fmt.Errorf("insert stage timing: %w", err)
		}
	}

	tickStmt, err := tx.Preparex(`INSERT OR REPLACE INTO tick_summaries
		(run_id, tick, nanos, contacts, events, impacted, removed, spawned,
		 dropped, blocked, shots, alive)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer tickStmt.Close()

	for _, t := range ticks {
		st := t.Stats
		_, err := tickStmt.Exec(db.runID, t.Tick, t.Nanos, st.Contacts, st.Events, st.Impacted,
			st.Removed, st.Spawned, st.Dropped, st.Blocked, st.Shots, st.Alive)
		if err != nil {
			return fmt.Errorf("insert tick summary: %w", err)
		}
	}

	return tx.Commit()
}

// StageAverage summarizes one stage over a run. Skipped executions are not
// counted.
type StageAverage struct {
	Stage    string  `db:"stage" json:"stage"`
	Runs     int     `db:"runs" json:"runs"`
	AvgNanos float64 `db:"avg_nanos" json:"avg_nanos"`
	MaxNanos int64   `db:"max_nanos" json:"max_nanos"`
}

// StageAverages returns per-stage averages for a run, slowest first.
func (db *DB) StageAverages(runID string) ([]StageAverage, error) {
	var out []StageAverage
	err := db.conn.Select(&out, `
		SELECT stage, COUNT(*) AS runs, AVG(nanos) AS avg_nanos, MAX(nanos) AS max_nanos
		FROM stage_timings
		WHERE run_id = ? AND skipped = 0
		GROUP BY stage
		ORDER BY avg_nanos DESC`,
		runID,
	)
	return out, err
}

// TickCount returns how many tick summaries a run has.
func (db *DB) TickCount(runID string) (int, error) {
	var n int
	err := db.conn.Get(&n, "SELECT COUNT(*) FROM tick_summaries WHERE run_id = ?", runID)
	return n, err
}
