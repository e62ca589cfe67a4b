package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leohfurlan/reometro-score/internal/application/pipeline"
	"github.com/leohfurlan/reometro-score/internal/domain/consolidate"
	"github.com/leohfurlan/reometro-score/internal/domain/identify"
	"github.com/leohfurlan/reometro-score/internal/domain/scoring"
	"github.com/leohfurlan/reometro-score/internal/infrastructure/database/postgres"
	"github.com/leohfurlan/reometro-score/internal/infrastructure/monitoring/logging"
	apperrors "github.com/leohfurlan/reometro-score/pkg/errors"
)

func newMockRunRepo(t *testing.T) (*RunRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	conn := postgres.NewConnectionWithDB(db, logging.NewNopLogger())
	return NewRunRepo(conn, logging.NewNopLogger()), mock
}

func sampleItems() []pipeline.RunItem {
	rec := &consolidate.Record{
		Lot: "9459", Batch: "1", Product: "MASSA PRETA 100", Variant: "A",
		Method:        identify.MethodLot,
		PrimaryTestID: 101,
		MergedTestIDs: []int64{101, 102},
		Timestamp:     time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		RheoTemp:      178, ViscTemp: 100,
		OnsetTime: consolidate.Measurement{Value: 60, Origin: consolidate.OriginReal},
		CureTime:  consolidate.Measurement{Value: 100, Origin: consolidate.OriginReal},
		Viscosity: consolidate.Measurement{Value: 63, Origin: consolidate.OriginReal},
	}
	return []pipeline.RunItem{{
		Record: rec,
		Result: scoring.Result{
			RecordID: 101, VersionID: 7, Score: 100,
			Action: scoring.ActionApprovePrime, Approved: true,
		},
	}}
}

func TestWriteRun_CommitsAllOrNothing(t *testing.T) {
	repo, mock := newMockRunRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM consolidated_records`).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM score_results WHERE version_id`).
		WithArgs(int64(7), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO consolidated_records`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO score_results`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.WriteRun(context.Background(), 7, sampleItems()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWriteRun_RollsBackOnInsertFailure(t *testing.T) {
	repo, mock := newMockRunRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM consolidated_records`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM score_results WHERE version_id`).
		WithArgs(int64(7), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO consolidated_records`).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := repo.WriteRun(context.Background(), 7, sampleItems())
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeDatabaseError))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceForVersion(t *testing.T) {
	repo, mock := newMockRunRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM score_results WHERE version_id`).
		WithArgs(int64(7), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO score_results`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	results := []scoring.Result{{
		RecordID: 101, VersionID: 7, Score: 82.5,
		Action: scoring.ActionApprove, Approved: true,
	}}
	require.NoError(t, repo.ReplaceForVersion(context.Background(), 7, results))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListForVersion(t *testing.T) {
	repo, mock := newMockRunRepo(t)

	rows := sqlmock.NewRows([]string{"record_id", "version_id", "score", "action", "approved", "profile", "trace"}).
		AddRow(int64(101), int64(7), 100.0, scoring.ActionApprovePrime, true, "HIGH_TEMP",
			[]byte(`[{"name":"ts2","value":60,"score":100}]`))
	mock.ExpectQuery(`SELECT .+ FROM score_results WHERE version_id`).
		WithArgs(int64(7)).
		WillReturnRows(rows)

	results, err := repo.ListForVersion(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, int64(101), results[0].RecordID)
	require.Len(t, results[0].Trace, 1)
	assert.Equal(t, scoring.ParamOnsetTime, results[0].Trace[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTrialSource_FetchSince(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	src := NewTrialSource(postgres.NewConnectionWithDB(db, logging.NewNopLogger()))

	tested := time.Date(2025, 3, 1, 8, 30, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"test_id", "lot_text", "batch_text", "tested_at", "sample_text",
		"legacy_code", "plate_temp", "machine_group", "test_type",
		"onset_time", "cure_time", "viscosity",
	}).
		AddRow(int64(1), "OTR*9459", "1", tested, "MASSA PRETA 100",
			nil, 178.0, "REO-01", "rheometry", 60.0, 100.0, nil).
		AddRow(int64(2), nil, nil, tested, nil, nil, nil, nil, nil, nil, nil, nil)
	mock.ExpectQuery(`SELECT .+ FROM lab_trials`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(rows)

	trials, err := src.FetchSince(context.Background(), tested)
	require.NoError(t, err)
	require.Len(t, trials, 2)
	assert.Equal(t, "OTR*9459", trials[0].LotText)
	assert.Equal(t, 60.0, trials[0].OnsetTime)
	// Null columns degrade to zero values instead of failing the row.
	assert.Equal(t, "", trials[1].LotText)
	assert.Equal(t, 0.0, trials[1].Viscosity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTrialSource_QueryFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	src := NewTrialSource(postgres.NewConnectionWithDB(db, logging.NewNopLogger()))

	mock.ExpectQuery(`SELECT .+ FROM lab_trials`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnError(assert.AnError)

	_, err = src.FetchSince(context.Background(), time.Now())
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeSourceQueryFailed))
}
