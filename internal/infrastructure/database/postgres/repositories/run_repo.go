package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"github.com/leohfurlan/reometro-score/internal/application/pipeline"
	"github.com/leohfurlan/reometro-score/internal/domain/scoring"
	"github.com/leohfurlan/reometro-score/internal/infrastructure/database/postgres"
	"github.com/leohfurlan/reometro-score/internal/infrastructure/monitoring/logging"
	"github.com/leohfurlan/reometro-score/pkg/errors"
)

// chunkSize bounds how many rows one INSERT carries, to stay well inside the
// driver's bind-parameter limit.
const chunkSize = 900

// RunRepo persists the output of a pipeline run: the consolidated records
// and their score results under one version.  Records are keyed by primary
// test id so results of other versions survive a reload.
type RunRepo struct {
	db  *sql.DB
	log logging.Logger
}

// NewRunRepo builds the repository over a connection.
func NewRunRepo(conn *postgres.Connection, log logging.Logger) *RunRepo {
	return &RunRepo{db: conn.DB(), log: log}
}

var _ pipeline.RunWriter = (*RunRepo)(nil)
var _ scoring.ResultRepository = (*RunRepo)(nil)

// WriteRun replaces the consolidated-record set and the version's score
// results for the affected records, all inside one transaction.
func (r *RunRepo) WriteRun(ctx context.Context, versionID int64, items []pipeline.RunItem) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "starting run transaction")
	}
	defer tx.Rollback()

	// A run supersedes the previous record set wholesale.
	if _, err := tx.ExecContext(ctx, `DELETE FROM consolidated_records`); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "clearing consolidated records")
	}

	affected := make([]int64, 0, len(items))
	for _, it := range items {
		affected = append(affected, it.Record.PrimaryTestID)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM score_results WHERE version_id = $1 AND record_id = ANY($2)`,
		versionID, pq.Array(affected)); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "clearing version score results")
	}

	for start := 0; start < len(items); start += chunkSize {
		end := start + chunkSize
		if end > len(items) {
			end = len(items)
		}
		if err := insertRecords(ctx, tx, items[start:end]); err != nil {
			return err
		}
		if err := insertResults(ctx, tx, versionID, items[start:end]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "committing run transaction")
	}
	r.log.Info("persisted run output",
		logging.Int64("version_id", versionID),
		logging.Int("records", len(items)))
	return nil
}

func insertRecords(ctx context.Context, tx *sql.Tx, items []pipeline.RunItem) error {
	if len(items) == 0 {
		return nil
	}
	const cols = 18
	var (
		sb   strings.Builder
		args = make([]any, 0, len(items)*cols)
	)
	sb.WriteString(`INSERT INTO consolidated_records
		(primary_test_id, lot, batch, product, variant, method, merged_test_ids,
		 tested_at, rheo_temp, visc_temp,
		 ts2_value, ts2_origin, t90_value, t90_origin, visc_value, visc_origin,
		 raw_lot_text, raw_sample_text) VALUES `)
	for i, it := range items {
		rec := it.Record
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(placeholders(i*cols, cols))
		args = append(args,
			rec.PrimaryTestID, rec.Lot, rec.Batch, rec.Product, rec.Variant, string(rec.Method),
			pq.Array(rec.MergedTestIDs),
			rec.Timestamp, rec.RheoTemp, rec.ViscTemp,
			rec.OnsetTime.Value, string(rec.OnsetTime.Origin),
			rec.CureTime.Value, string(rec.CureTime.Origin),
			rec.Viscosity.Value, string(rec.Viscosity.Origin),
			rec.RawLotText, rec.RawSampleText,
		)
	}
	if _, err := tx.ExecContext(ctx, sb.String(), args...); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "inserting consolidated records")
	}
	return nil
}

func insertResults(ctx context.Context, tx *sql.Tx, versionID int64, items []pipeline.RunItem) error {
	if len(items) == 0 {
		return nil
	}
	var (
		sb   strings.Builder
		args = make([]any, 0, len(items)*7)
	)
	sb.WriteString(`INSERT INTO score_results
		(record_id, version_id, score, action, approved, profile, trace) VALUES `)
	for i, it := range items {
		res := it.Result
		trace, err := json.Marshal(res.Trace)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeSerialization, "encoding score trace")
		}
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(placeholders(i*7, 7))
		args = append(args,
			res.RecordID, versionID, res.Score, res.Action, res.Approved,
			string(res.Profile), trace,
		)
	}
	if _, err := tx.ExecContext(ctx, sb.String(), args...); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "inserting score results")
	}
	return nil
}

// ReplaceForVersion rewrites the version's results for the given records
// outside a full run, used by the rescore path.
func (r *RunRepo) ReplaceForVersion(ctx context.Context, versionID int64, results []scoring.Result) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "starting rescore transaction")
	}
	defer tx.Rollback()

	ids := make([]int64, 0, len(results))
	for _, res := range results {
		ids = append(ids, res.RecordID)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM score_results WHERE version_id = $1 AND record_id = ANY($2)`,
		versionID, pq.Array(ids)); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "clearing version score results")
	}

	items := make([]pipeline.RunItem, 0, len(results))
	for _, res := range results {
		items = append(items, pipeline.RunItem{Result: res})
	}
	for start := 0; start < len(items); start += chunkSize {
		end := start + chunkSize
		if end > len(items) {
			end = len(items)
		}
		if err := insertResults(ctx, tx, versionID, items[start:end]); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "committing rescore transaction")
	}
	return nil
}

// ListForVersion returns every score result stored under a version.
func (r *RunRepo) ListForVersion(ctx context.Context, versionID int64) ([]scoring.Result, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT record_id, version_id, score, action, approved, profile, trace
		FROM score_results WHERE version_id = $1 ORDER BY record_id`, versionID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "listing score results")
	}
	defer rows.Close()

	var out []scoring.Result
	for rows.Next() {
		var (
			res   scoring.Result
			trace []byte
		)
		if err := rows.Scan(&res.RecordID, &res.VersionID, &res.Score, &res.Action,
			&res.Approved, &res.Profile, &trace); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "scanning score result")
		}
		if len(trace) > 0 {
			if err := json.Unmarshal(trace, &res.Trace); err != nil {
				return nil, errors.Wrap(err, errors.ErrCodeSerialization, "decoding score trace")
			}
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "listing score results")
	}
	return out, nil
}

// placeholders renders "($n, $n+1, ...)" for one inserted row.
func placeholders(offset, n int) string {
	var sb strings.Builder
	sb.WriteByte('(')
	for i := 0; i < n; i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('$')
		sb.WriteString(strconv.Itoa(offset + i + 1))
	}
	sb.WriteByte(')')
	return sb.String()
}
