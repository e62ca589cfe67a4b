package scoring

import (
	"context"

	"github.com/leohfurlan/reometro-score/internal/infrastructure/monitoring/logging"
	"github.com/leohfurlan/reometro-score/pkg/errors"
)

// VersionRepository is the persistence contract of the versioning store.
type VersionRepository interface {
	Create(ctx context.Context, v *Version) error
	Get(ctx context.Context, id int64) (*Version, error)
	GetActive(ctx context.Context) (*Version, error)
	List(ctx context.Context) ([]*Version, error)
	UpdateSnapshot(ctx context.Context, id int64, snap Snapshot) error
	SetStatus(ctx context.Context, id int64, status Status) error
}

// ResultRepository persists score results, one per (record, version).
type ResultRepository interface {
	// ReplaceForVersion deletes the version's results for the given record
	// ids and inserts the new ones, atomically per run.
	ReplaceForVersion(ctx context.Context, versionID int64, results []Result) error
	ListForVersion(ctx context.Context, versionID int64) ([]Result, error)
}

// VersionService enforces the version lifecycle on top of the repository:
// drafts are the only editable state, activation is exclusive, and archived
// versions are immutable.
type VersionService struct {
	repo VersionRepository
	log  logging.Logger
}

// NewVersionService wires the lifecycle rules over a repository.
func NewVersionService(repo VersionRepository, log logging.Logger) *VersionService {
	return &VersionService{repo: repo, log: log}
}

// CreateDraft appends a new draft version with the given snapshot.
func (s *VersionService) CreateDraft(ctx context.Context, label, notes string, snap Snapshot) (*Version, error) {
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	v := &Version{Label: label, Notes: notes, Status: StatusDraft, Snapshot: snap}
	if err := s.repo.Create(ctx, v); err != nil {
		return nil, err
	}
	s.log.Info("created draft scoring version",
		logging.Int64("version_id", v.ID),
		logging.String("label", label))
	return v, nil
}

// UpdateDraft replaces the snapshot of a draft version.  Any other lifecycle
// state refuses the edit.
func (s *VersionService) UpdateDraft(ctx context.Context, id int64, snap Snapshot) error {
	v, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if v.Status != StatusDraft {
		return errors.New(errors.ErrCodeVersionNotDraft, "only draft versions can be edited").
			WithDetail(v.Label)
	}
	if err := snap.Validate(); err != nil {
		return err
	}
	return s.repo.UpdateSnapshot(ctx, id, snap)
}

// Activate promotes a version to active, archiving whichever version was
// active before.  Activating the already-active version is a no-op.
func (s *VersionService) Activate(ctx context.Context, id int64) error {
	v, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if v.Status == StatusActive {
		return nil
	}

	current, err := s.repo.GetActive(ctx)
	switch {
	case err == nil:
		if err := s.repo.SetStatus(ctx, current.ID, StatusArchived); err != nil {
			return err
		}
	case errors.IsCode(err, errors.ErrCodeNoActiveVersion):
		// First activation ever.
	default:
		return err
	}

	if err := s.repo.SetStatus(ctx, id, StatusActive); err != nil {
		return err
	}
	s.log.Info("activated scoring version",
		logging.Int64("version_id", id),
		logging.String("label", v.Label))
	return nil
}

// Archive retires a version.  The active version must be archived through
// Activate on its successor, never directly, so scoring always has an active
// version once one existed.
func (s *VersionService) Archive(ctx context.Context, id int64) error {
	v, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	switch v.Status {
	case StatusArchived:
		return nil
	case StatusActive:
		return errors.New(errors.ErrCodeVersionImmutable, "the active version cannot be archived directly").
			WithDetail(v.Label)
	}
	return s.repo.SetStatus(ctx, id, StatusArchived)
}

// Active returns the currently active version.
func (s *VersionService) Active(ctx context.Context) (*Version, error) {
	return s.repo.GetActive(ctx)
}

// Get returns a version by id.
func (s *VersionService) Get(ctx context.Context, id int64) (*Version, error) {
	return s.repo.Get(ctx, id)
}

// List returns every version, newest first.
func (s *VersionService) List(ctx context.Context) ([]*Version, error) {
	return s.repo.List(ctx)
}

// EnsureBootstrap installs and activates an initial version when the store
// has none, and returns the active version either way.
func (s *VersionService) EnsureBootstrap(ctx context.Context, label string, snap Snapshot) (*Version, error) {
	existing, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return s.repo.GetActive(ctx)
	}

	v, err := s.CreateDraft(ctx, label, "initial configuration", snap)
	if err != nil {
		return nil, err
	}
	if err := s.Activate(ctx, v.ID); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, v.ID)
}
