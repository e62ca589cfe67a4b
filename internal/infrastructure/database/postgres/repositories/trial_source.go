package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/leohfurlan/reometro-score/internal/application/pipeline"
	"github.com/leohfurlan/reometro-score/internal/domain/consolidate"
	"github.com/leohfurlan/reometro-score/internal/infrastructure/database/postgres"
	"github.com/leohfurlan/reometro-score/pkg/errors"
)

// TrialSource extracts raw instrument readings from the laboratory database.
// The query is read-only; the lab schema is owned by another system.
type TrialSource struct {
	db *sql.DB
}

// NewTrialSource builds the source over a lab-database connection.
func NewTrialSource(conn *postgres.Connection) *TrialSource {
	return &TrialSource{db: conn.DB()}
}

var _ pipeline.TrialSource = (*TrialSource)(nil)

// FetchSince returns every reading taken on or after minDate, oldest first.
// Null numeric fields degrade to zero so a malformed row never aborts the
// extraction.
func (s *TrialSource) FetchSince(ctx context.Context, minDate time.Time) ([]consolidate.RawTrial, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT test_id, lot_text, batch_text, tested_at, sample_text,
		       legacy_code, plate_temp, machine_group, test_type,
		       onset_time, cure_time, viscosity
		FROM lab_trials
		WHERE tested_at >= $1
		ORDER BY tested_at, test_id`, minDate)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSourceQueryFailed, "querying lab trials")
	}
	defer rows.Close()

	var out []consolidate.RawTrial
	for rows.Next() {
		var (
			t         consolidate.RawTrial
			lot       sql.NullString
			batch     sql.NullString
			sample    sql.NullString
			legacy    sql.NullString
			group     sql.NullString
			testType  sql.NullString
			plateTemp sql.NullFloat64
			onsetTime sql.NullFloat64
			cureTime  sql.NullFloat64
			viscosity sql.NullFloat64
		)
		if err := rows.Scan(&t.TestID, &lot, &batch, &t.Timestamp, &sample,
			&legacy, &plateTemp, &group, &testType,
			&onsetTime, &cureTime, &viscosity); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeSourceQueryFailed, "scanning lab trial")
		}
		t.LotText = lot.String
		t.BatchText = batch.String
		t.SampleText = sample.String
		t.LegacyCode = legacy.String
		t.MachineGroup = group.String
		t.TestType = testType.String
		t.PlateTemp = plateTemp.Float64
		t.OnsetTime = onsetTime.Float64
		t.CureTime = cureTime.Float64
		t.Viscosity = viscosity.Float64
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSourceQueryFailed, "iterating lab trials")
	}
	return out, nil
}
