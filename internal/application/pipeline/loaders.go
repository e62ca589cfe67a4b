package pipeline

import (
	"context"

	"github.com/leohfurlan/reometro-score/internal/domain/catalog"
	"github.com/leohfurlan/reometro-score/internal/domain/reference"
	"github.com/leohfurlan/reometro-score/internal/infrastructure/monitoring/logging"
)

// LotMapSource produces the raw lot map, normally from the planning
// workbook.
type LotMapSource interface {
	LoadLotMap() (map[string]reference.LotEntry, error)
}

// LotMapCache is an optional snapshot cache in front of the LotMapSource.
type LotMapCache interface {
	Get(ctx context.Context) (map[string]reference.LotEntry, bool)
	Set(ctx context.Context, lots map[string]reference.LotEntry)
}

// SnapshotLoader assembles the full reference snapshot: the lot map (cached
// when a cache is wired), plus the file-backed learning, correction, and
// group tables.
type SnapshotLoader struct {
	Sheet LotMapSource
	Cache LotMapCache // may be nil
	Files *reference.FileStore
	Log   logging.Logger
}

var _ ReferenceLoader = (*SnapshotLoader)(nil)

// Load rebuilds the snapshot wholesale.
func (l *SnapshotLoader) Load(ctx context.Context) (*reference.Snapshot, error) {
	lots, cached := map[string]reference.LotEntry{}, false
	if l.Cache != nil {
		lots, cached = l.Cache.Get(ctx)
	}
	if !cached {
		var err error
		lots, err = l.Sheet.LoadLotMap()
		if err != nil {
			return nil, err
		}
		if l.Cache != nil {
			l.Cache.Set(ctx, lots)
		}
	}

	learned, err := l.Files.LoadLearning()
	if err != nil {
		return nil, err
	}
	corrections, err := l.Files.LoadCorrections()
	if err != nil {
		return nil, err
	}
	groups, err := l.Files.LoadGroups()
	if err != nil {
		return nil, err
	}

	l.Log.Info("reference snapshot rebuilt",
		logging.Int("lots", len(lots)),
		logging.Int("learned", len(learned)),
		logging.Int("corrections", len(corrections)),
		logging.Int("groups", len(groups)),
		logging.Bool("lot_map_cached", cached))
	return reference.NewSnapshot(lots, learned, corrections, groups), nil
}

// FileCatalogLoader loads the catalog from the product spec file.
type FileCatalogLoader struct {
	Path string
}

var _ CatalogLoader = (*FileCatalogLoader)(nil)

// Load reads and indexes the product spec file.
func (l *FileCatalogLoader) Load(context.Context) (*catalog.Catalog, error) {
	cat, _, err := catalog.LoadSpecsFile(l.Path)
	return cat, err
}
