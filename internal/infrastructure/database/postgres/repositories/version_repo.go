// Package repositories implements the persistence contracts of the scoring
// pipeline over PostgreSQL.
package repositories

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/leohfurlan/reometro-score/internal/domain/scoring"
	"github.com/leohfurlan/reometro-score/internal/infrastructure/database/postgres"
	"github.com/leohfurlan/reometro-score/pkg/errors"
)

// VersionRepo persists scoring versions.  Rows are append-only apart from
// the status column; snapshots of non-draft versions are never rewritten.
type VersionRepo struct {
	db *sql.DB
}

// NewVersionRepo builds the repository over a connection.
func NewVersionRepo(conn *postgres.Connection) *VersionRepo {
	return &VersionRepo{db: conn.DB()}
}

var _ scoring.VersionRepository = (*VersionRepo)(nil)

const versionColumns = `id, label, status, notes, created_at, snapshot`

// Create appends a new version row and fills in its id and creation time.
func (r *VersionRepo) Create(ctx context.Context, v *scoring.Version) error {
	snap, err := json.Marshal(v.Snapshot)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "encoding version snapshot")
	}
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO scoring_versions (label, status, notes, snapshot)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		v.Label, v.Status, v.Notes, snap,
	).Scan(&v.ID, &v.CreatedAt)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "inserting scoring version")
	}
	return nil
}

// Get returns one version by id.
func (r *VersionRepo) Get(ctx context.Context, id int64) (*scoring.Version, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+versionColumns+` FROM scoring_versions WHERE id = $1`, id)
	v, err := scanVersion(row)
	if err == sql.ErrNoRows {
		return nil, errors.New(errors.ErrCodeVersionNotFound, "scoring version not found")
	}
	return v, err
}

// GetActive returns the single active version.
func (r *VersionRepo) GetActive(ctx context.Context) (*scoring.Version, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+versionColumns+` FROM scoring_versions WHERE status = $1`, scoring.StatusActive)
	v, err := scanVersion(row)
	if err == sql.ErrNoRows {
		return nil, errors.New(errors.ErrCodeNoActiveVersion, "no active scoring version")
	}
	return v, err
}

// List returns every version, newest first.
func (r *VersionRepo) List(ctx context.Context) ([]*scoring.Version, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+versionColumns+` FROM scoring_versions ORDER BY id DESC`)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "listing scoring versions")
	}
	defer rows.Close()

	var out []*scoring.Version
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "listing scoring versions")
	}
	return out, nil
}

// UpdateSnapshot rewrites a version's snapshot.  The lifecycle service only
// calls this for drafts.
func (r *VersionRepo) UpdateSnapshot(ctx context.Context, id int64, snap scoring.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "encoding version snapshot")
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE scoring_versions SET snapshot = $1 WHERE id = $2`, data, id)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "updating version snapshot")
	}
	return requireRow(res)
}

// SetStatus moves a version to a new lifecycle state.
func (r *VersionRepo) SetStatus(ctx context.Context, id int64, status scoring.Status) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE scoring_versions SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "updating version status")
	}
	return requireRow(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVersion(row rowScanner) (*scoring.Version, error) {
	var (
		v    scoring.Version
		snap []byte
	)
	if err := row.Scan(&v.ID, &v.Label, &v.Status, &v.Notes, &v.CreatedAt, &snap); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "scanning scoring version")
	}
	if err := json.Unmarshal(snap, &v.Snapshot); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSnapshotCorrupt, "decoding version snapshot")
	}
	return &v, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "reading affected rows")
	}
	if n == 0 {
		return errors.New(errors.ErrCodeVersionNotFound, "scoring version not found")
	}
	return nil
}
