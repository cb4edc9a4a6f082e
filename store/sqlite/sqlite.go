/*
Package sqlite provides a SQLite-backed implementation of the batch store.

PURPOSE:
  Durable storage for planning runs and their published output batches.
  The same patterns apply to PostgreSQL; only minor SQL dialect
  differences.

APPEND-ONLY ENFORCEMENT:
  Published records are immutable:
  - No UPDATE statements on material_requirements or capacity_loads
  - No DELETE statements anywhere
  - A new run supersedes the previous batch; history stays queryable

KEY TABLES:
  runs:                  run state machine rows, updated per transition
  material_requirements: one row per item per bucket per run
  capacity_loads:        one row per resource per bucket per run
  run_errors:            per-item structural/configuration errors
  run_warnings:          data-quality warnings
  run_summaries:         dashboard aggregates, one row per run

ATOMIC PUBLISH:
  PublishBatch writes both batches, the summary and the complete state in
  ONE database transaction. A run that fails mid-publish leaves no
  requirement rows behind, which is what makes re-running after a failure
  safe.

DECIMALS:
  Quantities are stored as TEXT and parsed with shopspring/decimal,
  avoiding float drift in reloaded batches.

WAL MODE:
  The database opens with WAL so status polling never blocks a publish.

SEE ALSO:
  - planning/store.go: interface definitions
  - planning/store/memory.go: in-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/planning-engine/planning"
)

// Store implements planning.BatchStore using SQLite.
type Store struct {
	db *sql.DB
}

// New creates a SQLite store at the given path. Use ":memory:" for an
// in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		facility_id TEXT NOT NULL,
		as_of TEXT NOT NULL,
		state TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		started_at TEXT NOT NULL,
		finished_at TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_runs_facility_state ON runs(facility_id, state);

	CREATE TABLE IF NOT EXISTS material_requirements (
		run_id TEXT NOT NULL REFERENCES runs(id),
		item_id TEXT NOT NULL,
		bucket TEXT NOT NULL,
		gross TEXT NOT NULL,
		inventory_applied TEXT NOT NULL,
		receipts_applied TEXT NOT NULL,
		net TEXT NOT NULL,
		order_qty TEXT NOT NULL,
		release_bucket TEXT,
		shortage_qty TEXT NOT NULL,
		shortage_cost TEXT NOT NULL,
		priority TEXT NOT NULL,
		status TEXT NOT NULL,
		demand_weight INTEGER NOT NULL,
		PRIMARY KEY (run_id, item_id, bucket)
	);

	CREATE TABLE IF NOT EXISTS capacity_loads (
		run_id TEXT NOT NULL REFERENCES runs(id),
		resource_id TEXT NOT NULL,
		bucket TEXT NOT NULL,
		planned_load TEXT NOT NULL,
		available TEXT NOT NULL,
		utilization TEXT NOT NULL,
		bottleneck INTEGER NOT NULL,
		excess_hours TEXT NOT NULL,
		PRIMARY KEY (run_id, resource_id, bucket)
	);

	CREATE TABLE IF NOT EXISTS run_errors (
		run_id TEXT NOT NULL REFERENCES runs(id),
		item_id TEXT NOT NULL,
		class TEXT NOT NULL,
		stage TEXT NOT NULL,
		detail TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_run_errors_run ON run_errors(run_id);

	CREATE TABLE IF NOT EXISTS run_warnings (
		run_id TEXT NOT NULL REFERENCES runs(id),
		kind TEXT NOT NULL,
		code TEXT NOT NULL,
		item_id TEXT NOT NULL DEFAULT '',
		resource_id TEXT NOT NULL DEFAULT '',
		bucket TEXT,
		detail TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_run_warnings_run ON run_warnings(run_id);

	CREATE TABLE IF NOT EXISTS run_summaries (
		run_id TEXT PRIMARY KEY REFERENCES runs(id),
		total_materials INTEGER NOT NULL,
		shortage_items INTEGER NOT NULL,
		critical_shortages INTEGER NOT NULL,
		total_shortage_value TEXT NOT NULL,
		average_lead_time TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// RUNS
// =============================================================================

func (s *Store) CreateRun(ctx context.Context, run planning.RunRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, facility_id, as_of, state, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(run.ID), string(run.FacilityID), run.AsOf.String(), string(run.State),
		run.Error, run.StartedAt.Format(time.RFC3339Nano), nullTime(run.FinishedAt))
	return err
}

func (s *Store) UpdateRun(ctx context.Context, run planning.RunRecord) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET state = ?, error = ?, finished_at = ? WHERE id = ?`,
		string(run.State), run.Error, nullTime(run.FinishedAt), string(run.ID))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return planning.ErrRunNotFound
	}
	return nil
}

func (s *Store) GetRun(ctx context.Context, id planning.RunID) (planning.RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, facility_id, as_of, state, error, started_at, finished_at
		FROM runs WHERE id = ?`, string(id))
	return scanRun(row)
}

func (s *Store) ListRuns(ctx context.Context, facility planning.FacilityID) ([]planning.RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, facility_id, as_of, state, error, started_at, finished_at
		FROM runs WHERE facility_id = ?
		ORDER BY started_at DESC, id DESC`, string(facility))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []planning.RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

func (s *Store) LatestCompleted(ctx context.Context, facility planning.FacilityID) (planning.RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, facility_id, as_of, state, error, started_at, finished_at
		FROM runs WHERE facility_id = ? AND state = ?
		ORDER BY finished_at DESC, id DESC LIMIT 1`,
		string(facility), string(planning.RunComplete))
	return scanRun(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (planning.RunRecord, error) {
	var run planning.RunRecord
	var id, facility, asOf, state, started string
	var finished sql.NullString
	err := row.Scan(&id, &facility, &asOf, &state, &run.Error, &started, &finished)
	if err == sql.ErrNoRows {
		return planning.RunRecord{}, planning.ErrRunNotFound
	}
	if err != nil {
		return planning.RunRecord{}, err
	}
	run.ID = planning.RunID(id)
	run.FacilityID = planning.FacilityID(facility)
	run.State = planning.RunState(state)
	if run.AsOf, err = planning.ParseBucket(asOf); err != nil {
		return planning.RunRecord{}, fmt.Errorf("corrupt as_of %q: %w", asOf, err)
	}
	if run.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
		return planning.RunRecord{}, fmt.Errorf("corrupt started_at %q: %w", started, err)
	}
	if finished.Valid && finished.String != "" {
		if run.FinishedAt, err = time.Parse(time.RFC3339Nano, finished.String); err != nil {
			return planning.RunRecord{}, fmt.Errorf("corrupt finished_at %q: %w", finished.String, err)
		}
	}
	return run, nil
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Format(time.RFC3339Nano)
}

// =============================================================================
// PUBLISH - One transaction for batches, summary and terminal state
// =============================================================================

func (s *Store) PublishBatch(ctx context.Context, run planning.RunRecord, mat planning.MaterialRequirementBatch, capBatch planning.CapacityLoadBatch, sum planning.RunSummary) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := publishIn(ctx, tx, run, mat, capBatch, sum); err != nil {
		return err
	}
	return tx.Commit()
}

func publishIn(ctx context.Context, tx *sql.Tx, run planning.RunRecord, mat planning.MaterialRequirementBatch, capBatch planning.CapacityLoadBatch, sum planning.RunSummary) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE runs SET state = ?, error = ?, finished_at = ? WHERE id = ?`,
		string(run.State), run.Error, nullTime(run.FinishedAt), string(run.ID))
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return planning.ErrRunNotFound
	}

	reqStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO material_requirements
		(run_id, item_id, bucket, gross, inventory_applied, receipts_applied, net,
		 order_qty, release_bucket, shortage_qty, shortage_cost, priority, status, demand_weight)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer reqStmt.Close()
	for _, r := range mat.Requirements {
		_, err := reqStmt.ExecContext(ctx,
			string(run.ID), string(r.ItemID), r.Bucket.String(),
			r.Gross.String(), r.InventoryApplied.String(), r.ReceiptsApplied.String(), r.Net.String(),
			r.OrderQty.String(), r.ReleaseBucket.String(), r.ShortageQty.String(), r.ShortageCost.String(),
			string(r.Priority), string(r.Status), r.DemandWeight)
		if err != nil {
			return err
		}
	}

	loadStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO capacity_loads
		(run_id, resource_id, bucket, planned_load, available, utilization, bottleneck, excess_hours)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer loadStmt.Close()
	for _, l := range capBatch.Loads {
		_, err := loadStmt.ExecContext(ctx,
			string(run.ID), string(l.ResourceID), l.Bucket.String(),
			l.PlannedLoad.String(), l.Available.String(), l.Utilization.String(),
			boolToInt(l.Bottleneck), l.ExcessHours.String())
		if err != nil {
			return err
		}
	}

	for _, e := range mat.ItemErrors {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO run_errors (run_id, item_id, class, stage, detail)
			VALUES (?, ?, ?, ?, ?)`,
			string(run.ID), string(e.ItemID), string(e.Class), e.Stage, e.Detail)
		if err != nil {
			return err
		}
	}

	for _, w := range mat.Warnings {
		if err := insertWarning(ctx, tx, run.ID, "material", w); err != nil {
			return err
		}
	}
	for _, w := range capBatch.Warnings {
		if err := insertWarning(ctx, tx, run.ID, "capacity", w); err != nil {
			return err
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO run_summaries
		(run_id, total_materials, shortage_items, critical_shortages, total_shortage_value, average_lead_time)
		VALUES (?, ?, ?, ?, ?, ?)`,
		string(run.ID), sum.TotalMaterials, sum.ShortageItems, sum.CriticalShortages,
		sum.TotalShortageValue.String(), sum.AverageLeadTime.String())
	return err
}

func insertWarning(ctx context.Context, tx *sql.Tx, runID planning.RunID, kind string, w planning.DataWarning) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO run_warnings (run_id, kind, code, item_id, resource_id, bucket, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(runID), kind, w.Code, string(w.ItemID), string(w.ResourceID), w.Bucket.String(), w.Detail)
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// =============================================================================
// BATCH READS
// =============================================================================

func (s *Store) MaterialBatch(ctx context.Context, id planning.RunID) (planning.MaterialRequirementBatch, error) {
	run, err := s.fetchCompleted(ctx, id)
	if err != nil {
		return planning.MaterialRequirementBatch{}, err
	}
	batch := planning.MaterialRequirementBatch{RunID: run.ID, FacilityID: run.FacilityID, AsOf: run.AsOf}

	rows, err := s.db.QueryContext(ctx, `
		SELECT item_id, bucket, gross, inventory_applied, receipts_applied, net,
		       order_qty, release_bucket, shortage_qty, shortage_cost, priority, status, demand_weight
		FROM material_requirements WHERE run_id = ?
		ORDER BY item_id, bucket`, string(id))
	if err != nil {
		return planning.MaterialRequirementBatch{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var r planning.MaterialRequirement
		var itemID, bucket, gross, inv, rcpt, net, order, release, shortQty, shortCost, prio, status string
		if err := rows.Scan(&itemID, &bucket, &gross, &inv, &rcpt, &net,
			&order, &release, &shortQty, &shortCost, &prio, &status, &r.DemandWeight); err != nil {
			return planning.MaterialRequirementBatch{}, err
		}
		r.ItemID = planning.ItemID(itemID)
		r.Priority = planning.PriorityClass(prio)
		r.Status = planning.RequirementStatus(status)
		if r.Bucket, err = planning.ParseBucket(bucket); err != nil {
			return planning.MaterialRequirementBatch{}, err
		}
		if release != "" {
			if r.ReleaseBucket, err = planning.ParseBucket(release); err != nil {
				return planning.MaterialRequirementBatch{}, err
			}
		}
		if err := parseDecimals(map[*decimal.Decimal]string{
			&r.Gross: gross, &r.InventoryApplied: inv, &r.ReceiptsApplied: rcpt,
			&r.Net: net, &r.OrderQty: order, &r.ShortageQty: shortQty, &r.ShortageCost: shortCost,
		}); err != nil {
			return planning.MaterialRequirementBatch{}, err
		}
		batch.Requirements = append(batch.Requirements, r)
	}
	if err := rows.Err(); err != nil {
		return planning.MaterialRequirementBatch{}, err
	}

	if batch.ItemErrors, err = s.loadErrors(ctx, id); err != nil {
		return planning.MaterialRequirementBatch{}, err
	}
	if batch.Warnings, err = s.loadWarnings(ctx, id, "material"); err != nil {
		return planning.MaterialRequirementBatch{}, err
	}
	return batch, nil
}

func (s *Store) CapacityBatch(ctx context.Context, id planning.RunID) (planning.CapacityLoadBatch, error) {
	run, err := s.fetchCompleted(ctx, id)
	if err != nil {
		return planning.CapacityLoadBatch{}, err
	}
	batch := planning.CapacityLoadBatch{RunID: run.ID, FacilityID: run.FacilityID, AsOf: run.AsOf}

	rows, err := s.db.QueryContext(ctx, `
		SELECT resource_id, bucket, planned_load, available, utilization, bottleneck, excess_hours
		FROM capacity_loads WHERE run_id = ?
		ORDER BY bucket, resource_id`, string(id))
	if err != nil {
		return planning.CapacityLoadBatch{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var l planning.CapacityLoad
		var resID, bucket, load, avail, util, excess string
		var bottleneck int
		if err := rows.Scan(&resID, &bucket, &load, &avail, &util, &bottleneck, &excess); err != nil {
			return planning.CapacityLoadBatch{}, err
		}
		l.ResourceID = planning.ResourceID(resID)
		l.Bottleneck = bottleneck != 0
		if l.Bucket, err = planning.ParseBucket(bucket); err != nil {
			return planning.CapacityLoadBatch{}, err
		}
		if err := parseDecimals(map[*decimal.Decimal]string{
			&l.PlannedLoad: load, &l.Available: avail, &l.Utilization: util, &l.ExcessHours: excess,
		}); err != nil {
			return planning.CapacityLoadBatch{}, err
		}
		batch.Loads = append(batch.Loads, l)
	}
	if err := rows.Err(); err != nil {
		return planning.CapacityLoadBatch{}, err
	}

	if batch.Warnings, err = s.loadWarnings(ctx, id, "capacity"); err != nil {
		return planning.CapacityLoadBatch{}, err
	}
	return batch, nil
}

func (s *Store) Summary(ctx context.Context, id planning.RunID) (planning.RunSummary, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT run_id, total_materials, shortage_items, critical_shortages, total_shortage_value, average_lead_time
		FROM run_summaries WHERE run_id = ?`, string(id))

	var sum planning.RunSummary
	var runID, value, lead string
	err := row.Scan(&runID, &sum.TotalMaterials, &sum.ShortageItems, &sum.CriticalShortages, &value, &lead)
	if err == sql.ErrNoRows {
		return planning.RunSummary{}, planning.ErrRunNotFound
	}
	if err != nil {
		return planning.RunSummary{}, err
	}
	sum.RunID = planning.RunID(runID)
	return sum, parseDecimals(map[*decimal.Decimal]string{
		&sum.TotalShortageValue: value, &sum.AverageLeadTime: lead,
	})
}

func (s *Store) fetchCompleted(ctx context.Context, id planning.RunID) (planning.RunRecord, error) {
	run, err := s.GetRun(ctx, id)
	if err != nil {
		return planning.RunRecord{}, err
	}
	if run.State != planning.RunComplete {
		return planning.RunRecord{}, planning.ErrRunNotFound
	}
	return run, nil
}

func (s *Store) loadErrors(ctx context.Context, id planning.RunID) ([]planning.ItemError, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT item_id, class, stage, detail FROM run_errors
		WHERE run_id = ? ORDER BY item_id, class, detail`, string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []planning.ItemError
	for rows.Next() {
		var e planning.ItemError
		var itemID, class string
		if err := rows.Scan(&itemID, &class, &e.Stage, &e.Detail); err != nil {
			return nil, err
		}
		e.ItemID = planning.ItemID(itemID)
		e.Class = planning.ErrorClass(class)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) loadWarnings(ctx context.Context, id planning.RunID, kind string) ([]planning.DataWarning, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT code, item_id, resource_id, bucket, detail FROM run_warnings
		WHERE run_id = ? AND kind = ? ORDER BY item_id, resource_id, code`, string(id), kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []planning.DataWarning
	for rows.Next() {
		var w planning.DataWarning
		var itemID, resID string
		var bucket sql.NullString
		if err := rows.Scan(&w.Code, &itemID, &resID, &bucket, &w.Detail); err != nil {
			return nil, err
		}
		w.ItemID = planning.ItemID(itemID)
		w.ResourceID = planning.ResourceID(resID)
		if bucket.Valid && bucket.String != "" {
			if w.Bucket, err = planning.ParseBucket(bucket.String); err != nil {
				return nil, err
			}
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func parseDecimals(fields map[*decimal.Decimal]string) error {
	for dst, raw := range fields {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return fmt.Errorf("corrupt decimal %q: %w", raw, err)
		}
		*dst = d
	}
	return nil
}
