package reference

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/leohfurlan/reometro-score/pkg/errors"
)

// FileStore reads and writes the file-backed reference tables.  The learning
// table is the only one the application writes back; corrections and groups
// are edited by hand.
type FileStore struct {
	LearningPath    string
	CorrectionsPath string
	GroupsPath      string
}

// LoadLearning reads the learned lot overrides.  A missing file is an empty
// table, not an error.
//
// Two on-disk formats are accepted: the current one maps lots to objects with
// product and timestamp, the legacy one maps lots straight to product names.
// Legacy entries are migrated in memory with a zero timestamp.
func (fs *FileStore) LoadLearning() (map[string]LearnedEntry, error) {
	raw, err := os.ReadFile(fs.LearningPath)
	if os.IsNotExist(err) {
		return map[string]LearnedEntry{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "reading learning table")
	}

	var entries map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "parsing learning table")
	}

	out := make(map[string]LearnedEntry, len(entries))
	for lot, msg := range entries {
		var e LearnedEntry
		if err := json.Unmarshal(msg, &e); err == nil && e.Product != "" {
			out[lot] = e
			continue
		}
		var legacy string
		if err := json.Unmarshal(msg, &legacy); err != nil {
			return nil, errors.New(errors.ErrCodeSerialization, "unrecognized learning entry").
				WithDetail(fmt.Sprintf("lot %s", lot))
		}
		out[lot] = LearnedEntry{Product: legacy}
	}
	return out, nil
}

// SaveLearning writes the learning table atomically, replacing the previous
// file only after the new content is fully on disk.
func (fs *FileStore) SaveLearning(entries map[string]LearnedEntry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "encoding learning table")
	}
	if err := os.MkdirAll(filepath.Dir(fs.LearningPath), 0o755); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "creating learning table directory")
	}
	tmp := fs.LearningPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "writing learning table")
	}
	if err := os.Rename(tmp, fs.LearningPath); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "replacing learning table")
	}
	return nil
}

// Teach records a lot → product association, overwriting any previous entry
// for the lot.
func (fs *FileStore) Teach(lot, product string) error {
	entries, err := fs.LoadLearning()
	if err != nil {
		return err
	}
	entries[lot] = LearnedEntry{Product: product, TaughtAt: time.Now().UTC()}
	return fs.SaveLearning(entries)
}

// LoadCorrections reads the free-text name correction table.  A missing file
// is an empty table.
func (fs *FileStore) LoadCorrections() (map[string]string, error) {
	raw, err := os.ReadFile(fs.CorrectionsPath)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "reading corrections table")
	}
	var out map[string]string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "parsing corrections table")
	}
	return out, nil
}

// SaveCorrections writes the correction table.  The audit tool uses this to
// seed candidate corrections for review.
func (fs *FileStore) SaveCorrections(table map[string]string) error {
	data, err := json.MarshalIndent(table, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "encoding corrections table")
	}
	if err := os.MkdirAll(filepath.Dir(fs.CorrectionsPath), 0o755); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "creating corrections directory")
	}
	return os.WriteFile(fs.CorrectionsPath, data, 0o644)
}

// LoadGroups reads the machine-group classification table.  A missing file is
// an empty table; groups then classify as KindUnknown.
func (fs *FileStore) LoadGroups() (map[string]EquipmentKind, error) {
	raw, err := os.ReadFile(fs.GroupsPath)
	if os.IsNotExist(err) {
		return map[string]EquipmentKind{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "reading group table")
	}
	var names map[string]string
	if err := json.Unmarshal(raw, &names); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "parsing group table")
	}
	out := make(map[string]EquipmentKind, len(names))
	for g, k := range names {
		switch EquipmentKind(k) {
		case KindRheometer, KindViscometer:
			out[g] = EquipmentKind(k)
		default:
			out[g] = KindUnknown
		}
	}
	return out, nil
}

// SaveGroups writes the machine-group classification table.
func (fs *FileStore) SaveGroups(groups map[string]EquipmentKind) error {
	names := make(map[string]string, len(groups))
	for g, k := range groups {
		names[g] = string(k)
	}
	data, err := json.MarshalIndent(names, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "encoding group table")
	}
	if err := os.MkdirAll(filepath.Dir(fs.GroupsPath), 0o755); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "creating group table directory")
	}
	return os.WriteFile(fs.GroupsPath, data, 0o644)
}
