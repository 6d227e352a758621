package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/sensor.fusion/internal/fusion"
	"github.com/banshee-data/sensor.fusion/internal/sensor"
)

// ErrRunNotFound is returned for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// Run is one fusion session.
type Run struct {
	ID        string     `json:"run_id"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Config    string     `json:"config"`
	Notes     string     `json:"notes,omitempty"`
	Ticks     int        `json:"ticks"`
}

// TickRecord is the persisted summary of one tick.
type TickRecord struct {
	RunID           string    `json:"run_id"`
	Seq             uint64    `json:"seq"`
	Generation      uint64    `json:"generation"`
	At              time.Time `json:"at"`
	Count           int       `json:"count"`
	Valid           bool      `json:"valid"`
	Discarded       bool      `json:"discarded"`
	Activated       int       `json:"activated"`
	Corrections     int       `json:"corrections"`
	RadarCorrected  bool      `json:"radar_corrected"`
	Seeded          int       `json:"seeded"`
	Rejected        int       `json:"rejected"`
	Replaced        int       `json:"replaced"`
	Expired         int       `json:"expired"`
	CameraTruncated int       `json:"camera_truncated"`
	MeanResidual    float64   `json:"mean_residual"`
}

// StartRun creates a run row and returns its ID. configJSON is stored as-is
// so a run can be replayed with the tuning it was recorded under.
func (db *DB) StartRun(ctx context.Context, configJSON, notes string) (string, error) {
	if configJSON == "" {
		configJSON = "{}"
	}
	id := uuid.NewString()
	_, err := db.ExecContext(ctx,
		`INSERT INTO fusion_runs (run_id, started_unix_ns, config_json, notes) VALUES (?, ?, ?, ?)`,
		id, time.Now().UnixNano(), configJSON, notes)
	if err != nil {
		return "", fmt.Errorf("failed to start run: %w", err)
	}
	return id, nil
}

// EndRun stamps the run's end time.
func (db *DB) EndRun(ctx context.Context, runID string) error {
	res, err := db.ExecContext(ctx,
		`UPDATE fusion_runs SET ended_unix_ns = ? WHERE run_id = ?`,
		time.Now().UnixNano(), runID)
	if err != nil {
		return fmt.Errorf("failed to end run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

// RecordTick stores a tick summary and its objects in one transaction.
func (db *DB) RecordTick(ctx context.Context, runID string, r fusion.Result) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tick insert: %w", err)
	}
	defer tx.Rollback()

	at := r.At
	if at.IsZero() {
		at = time.Now()
	}
	rep := r.Report
	_, err = tx.ExecContext(ctx, `
		INSERT INTO fusion_ticks (
			run_id, seq, generation, tick_unix_ns, object_count, valid, discarded,
			activated, corrections, radar_corrected, seeded, rejected, replaced,
			expired, camera_truncated, mean_residual
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, r.Seq, r.Generation, at.UnixNano(), r.Count, r.Valid, r.Discarded,
		rep.Activated, rep.Corrections, rep.RadarCorrected, rep.Seeded, rep.Rejected,
		rep.Replaced, rep.Expired, r.CameraTruncated, rep.MeanResidual)
	if err != nil {
		return fmt.Errorf("failed to insert tick %d: %w", r.Seq, err)
	}

	if len(r.Objects) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO fused_objects (run_id, seq, slot, track_id, x, y, velocity, class)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare object insert: %w", err)
		}
		defer stmt.Close()

		for i, o := range r.Objects {
			if _, err := stmt.ExecContext(ctx, runID, r.Seq, i, o.TrackID, o.X, o.Y, o.Velocity, int(o.Class)); err != nil {
				return fmt.Errorf("failed to insert object %d of tick %d: %w", i, r.Seq, err)
			}
		}
	}

	return tx.Commit()
}

// Runs lists every run, newest first.
func (db *DB) Runs(ctx context.Context) ([]Run, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT r.run_id, r.started_unix_ns, r.ended_unix_ns, r.config_json, r.notes,
		       (SELECT COUNT(*) FROM fusion_ticks t WHERE t.run_id = r.run_id)
		FROM fusion_runs r
		ORDER BY r.started_unix_ns DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run     Run
			started int64
			ended   sql.NullInt64
		)
		if err := rows.Scan(&run.ID, &started, &ended, &run.Config, &run.Notes, &run.Ticks); err != nil {
			return nil, err
		}
		run.StartedAt = time.Unix(0, started).UTC()
		if ended.Valid {
			t := time.Unix(0, ended.Int64).UTC()
			run.EndedAt = &t
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// RunTicks returns the run's ticks in sequence order.
func (db *DB) RunTicks(ctx context.Context, runID string) ([]TickRecord, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT seq, generation, tick_unix_ns, object_count, valid, discarded,
		       activated, corrections, radar_corrected, seeded, rejected, replaced,
		       expired, camera_truncated, mean_residual
		FROM fusion_ticks
		WHERE run_id = ?
		ORDER BY seq`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ticks []TickRecord
	for rows.Next() {
		rec := TickRecord{RunID: runID}
		var at int64
		if err := rows.Scan(&rec.Seq, &rec.Generation, &at, &rec.Count, &rec.Valid, &rec.Discarded,
			&rec.Activated, &rec.Corrections, &rec.RadarCorrected, &rec.Seeded, &rec.Rejected,
			&rec.Replaced, &rec.Expired, &rec.CameraTruncated, &rec.MeanResidual); err != nil {
			return nil, err
		}
		rec.At = time.Unix(0, at).UTC()
		ticks = append(ticks, rec)
	}
	return ticks, rows.Err()
}

// LatestObjects returns the objects of the run's most recent tick, or
// ErrRunNotFound when the run has no ticks.
func (db *DB) LatestObjects(ctx context.Context, runID string) (uint64, []fusion.FusedObject, error) {
	var seq sql.NullInt64
	if err := db.QueryRowContext(ctx,
		`SELECT MAX(seq) FROM fusion_ticks WHERE run_id = ?`, runID).Scan(&seq); err != nil {
		return 0, nil, err
	}
	if !seq.Valid {
		return 0, nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	rows, err := db.QueryContext(ctx, `
		SELECT track_id, x, y, velocity, class
		FROM fused_objects
		WHERE run_id = ? AND seq = ?
		ORDER BY slot`, runID, seq.Int64)
	if err != nil {
		return 0, nil, err
	}
	defer rows.Close()

	objects := []fusion.FusedObject{}
	for rows.Next() {
		var (
			o     fusion.FusedObject
			class int
		)
		if err := rows.Scan(&o.TrackID, &o.X, &o.Y, &o.Velocity, &class); err != nil {
			return 0, nil, err
		}
		o.Class = sensor.Class(class)
		objects = append(objects, o)
	}
	return uint64(seq.Int64), objects, rows.Err()
}

// Recorder persists every tick of one run. It satisfies fusion.Sink.
type Recorder struct {
	db    *DB
	runID string
}

// NewRecorder binds a sink to runID.
func (db *DB) NewRecorder(runID string) *Recorder {
	return &Recorder{db: db, runID: runID}
}

// RunID returns the run the recorder writes to.
func (r *Recorder) RunID() string { return r.runID }

// Consume records the tick. Discarded ticks repeat the sequence number of
// the result they fell back to and are not stored.
func (r *Recorder) Consume(ctx context.Context, res fusion.Result) error {
	if res.Discarded {
		return nil
	}
	return r.db.RecordTick(ctx, r.runID, res)
}

var _ fusion.Sink = (*Recorder)(nil)

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
