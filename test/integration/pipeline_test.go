// Package integration wires the real pipeline components together: a
// generated planning workbook, file-backed reference tables, and mocked
// database connections on both ends.
package integration

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/leohfurlan/reometro-score/internal/application/pipeline"
	"github.com/leohfurlan/reometro-score/internal/domain/catalog"
	"github.com/leohfurlan/reometro-score/internal/domain/identify"
	"github.com/leohfurlan/reometro-score/internal/domain/reference"
	"github.com/leohfurlan/reometro-score/internal/domain/scoring"
	"github.com/leohfurlan/reometro-score/internal/infrastructure/database/postgres"
	"github.com/leohfurlan/reometro-score/internal/infrastructure/database/postgres/repositories"
	"github.com/leohfurlan/reometro-score/internal/infrastructure/monitoring/logging"
	"github.com/leohfurlan/reometro-score/internal/infrastructure/spreadsheet"
)

const trialQuery = `SELECT test_id, lot_text, batch_text, tested_at, sample_text`

func writeWorkbook(t *testing.T, dir string) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetSheetName("Sheet1", "2025"))
	require.NoError(t, f.SetSheetRow("2025", "A1", &[]string{"LOTE", "MASSA", "EQUIPAMENTO"}))
	require.NoError(t, f.SetSheetRow("2025", "A2", &[]string{"9459", "MASSA PRETA 100", "REO A"}))

	path := filepath.Join(dir, "planning.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func writeSpecs(t *testing.T, dir string) string {
	t.Helper()
	specs := `{
	  "products": [
	    {
	      "code": 101,
	      "name": "MASSA PRETA 100",
	      "kind": "MASS",
	      "profiles": [
	        {
	          "key": "HIGH_TEMP",
	          "ref_temp": 177,
	          "params": [
	            {"name": "ts2", "weight": 1, "target": 60, "min": 45, "max": 80},
	            {"name": "t90", "weight": 1, "target": 150, "min": 120, "max": 190},
	            {"name": "viscosity", "weight": 2, "target": 62, "min": 55, "max": 70}
	          ]
	        }
	      ]
	    }
	  ]
	}`
	path := filepath.Join(dir, "specs.json")
	require.NoError(t, os.WriteFile(path, []byte(specs), 0o644))
	return path
}

func activeVersionJSON(t *testing.T) []byte {
	t.Helper()
	snap := scoring.Snapshot{
		Specs: map[string][]catalog.Profile{
			"MASSA PRETA 100": {{
				Key:     catalog.ProfileHighTemp,
				RefTemp: 177,
				Params: []catalog.ParamSpec{
					{Name: scoring.ParamOnsetTime, Weight: 1, Target: 60, Min: 45, Max: 80},
					{Name: scoring.ParamCureTime, Weight: 1, Target: 150, Min: 120, Max: 190},
					{Name: scoring.ParamViscosity, Weight: 2, Target: 62, Min: 55, Max: 70},
				},
			}},
		},
		Rules: scoring.DefaultRules(),
	}
	raw, err := json.Marshal(snap)
	require.NoError(t, err)
	return raw
}

func TestFullRun(t *testing.T) {
	dir := t.TempDir()
	log := logging.NewNopLogger()

	storeDB, storeMock, err := sqlmock.New()
	require.NoError(t, err)
	sourceDB, sourceMock, err := sqlmock.New()
	require.NoError(t, err)

	tested := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	storeMock.ExpectQuery(`SELECT id, label, status, notes, created_at, snapshot`).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "label", "status", "notes", "created_at", "snapshot"}).
			AddRow(int64(7), "baseline", "active", "", tested, activeVersionJSON(t)))

	cols := []string{"test_id", "lot_text", "batch_text", "tested_at", "sample_text",
		"legacy_code", "plate_temp", "machine_group", "test_type",
		"onset_time", "cure_time", "viscosity"}
	sourceMock.ExpectQuery(trialQuery).WillReturnRows(sqlmock.NewRows(cols).
		AddRow(int64(1001), "OTR1801*9459", "B12", tested, "", "", 177.0, "REO-1", "", 60.0, 150.0, 0.0).
		AddRow(int64(1002), "OTR1801*9459", "B12", tested.Add(time.Hour), "", "", 100.0, "VISC-1", "", 0.0, 0.0, 62.0))

	storeMock.ExpectBegin()
	storeMock.ExpectExec(`DELETE FROM consolidated_records`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	storeMock.ExpectExec(`DELETE FROM score_results`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	storeMock.ExpectExec(`INSERT INTO consolidated_records`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	storeMock.ExpectExec(`INSERT INTO score_results`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	storeMock.ExpectCommit()

	storeConn := postgres.NewConnectionWithDB(storeDB, log)
	sourceConn := postgres.NewConnectionWithDB(sourceDB, log)

	refs := &pipeline.SnapshotLoader{
		Sheet: spreadsheet.NewLoader(writeWorkbook(t, dir), []string{"2025"}, log),
		Files: &reference.FileStore{
			LearningPath:    filepath.Join(dir, "learning.json"),
			CorrectionsPath: filepath.Join(dir, "corrections.json"),
			GroupsPath:      filepath.Join(dir, "groups.json"),
		},
		Log: log,
	}

	svc := pipeline.NewService(
		repositories.NewTrialSource(sourceConn),
		refs,
		&pipeline.FileCatalogLoader{Path: writeSpecs(t, dir)},
		scoring.NewVersionService(repositories.NewVersionRepo(storeConn), log),
		repositories.NewRunRepo(storeConn, log),
		nil,
		pipeline.Options{MinDate: time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)},
		log,
	)

	report, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(7), report.VersionID)
	assert.Equal(t, 2, report.Stats.Rows)
	assert.Equal(t, 1, report.Stats.Groups)
	assert.Equal(t, 0, report.Stats.Dropped)
	assert.Equal(t, 1, report.Stats.ByMethod[identify.MethodLot])
	assert.Equal(t, 1, report.Scored)
	assert.Equal(t, 1, report.Approved)

	require.NoError(t, storeMock.ExpectationsWereMet())
	require.NoError(t, sourceMock.ExpectationsWereMet())
}
